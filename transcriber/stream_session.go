package transcriber

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hark/encoder"
	"hark/log"
)

const (
	streamChunkMs      = 200
	streamChunkBytes   = encoder.BytesPerSecond * streamChunkMs / 1000
	streamFinalizeIdle = 200 * time.Millisecond
	streamFinalizeMax  = 1000 * time.Millisecond
	streamDrainMax     = 2 * time.Second
)

type rawStreamSession interface {
	Send(pcm []byte) error
	CloseSend() error
	Recv() (streamUpdate, error)
	Close() error
}

type streamUpdate struct {
	Transcript   string
	IsFinal      bool
	SpeechFinal  bool
	FromFinalize bool
}

type dialFunc func(ctx context.Context) (rawStreamSession, error)

type streamSession struct {
	audioCh   chan []byte
	updates   chan Update
	startedAt time.Time

	ended     chan struct{}
	abort     chan struct{}
	sendDone  chan struct{}
	recvDone  chan struct{}
	finalized chan struct{}

	endOnce       sync.Once
	abortOnce     sync.Once
	finalizedOnce sync.Once
	canceled      atomic.Bool
	closing       atomic.Bool

	feedMu     sync.Mutex
	feedBuf    []byte
	feedClosed bool

	mu        sync.Mutex
	err       error
	committed string
	lastSent  string
	stats     streamStats
}

type streamStats struct {
	ConnectDur   time.Duration
	SentChunks   int
	SentBytes    int
	RecvMessages int
	RecvFinal    int
	RecvInterim  int
	FinalizeWait time.Duration
	SessionDur   time.Duration
}

func newStreamSession(ctx context.Context, dial dialFunc) *streamSession {
	ss := &streamSession{
		audioCh:   make(chan []byte, 128),
		updates:   make(chan Update, 64),
		startedAt: time.Now(),
		ended:     make(chan struct{}),
		abort:     make(chan struct{}),
		sendDone:  make(chan struct{}),
		recvDone:  make(chan struct{}),
		finalized: make(chan struct{}),
	}
	go ss.run(ctx, dial)
	return ss
}

func (s *streamSession) Feed(pcm []byte) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.feedClosed {
		return
	}
	s.feedBuf = append(s.feedBuf, pcm...)
	for len(s.feedBuf) >= streamChunkBytes {
		chunk := make([]byte, streamChunkBytes)
		copy(chunk, s.feedBuf[:streamChunkBytes])
		s.feedBuf = s.feedBuf[streamChunkBytes:]
		select {
		case s.audioCh <- chunk:
		case <-s.abort:
			s.feedBuf = nil
			return
		}
	}
}

func (s *streamSession) Updates() <-chan Update { return s.updates }

func (s *streamSession) EndAudio() {
	s.endOnce.Do(func() {
		s.feedMu.Lock()
		if len(s.feedBuf) > 0 && !s.isAborted() {
			tail := make([]byte, len(s.feedBuf))
			copy(tail, s.feedBuf)
			select {
			case s.audioCh <- tail:
			case <-s.abort:
			}
		}
		s.feedBuf = nil
		s.feedClosed = true
		close(s.audioCh)
		s.feedMu.Unlock()
		close(s.ended)
	})
}

func (s *streamSession) Cancel() {
	s.canceled.Store(true)
	s.abortOnce.Do(func() { close(s.abort) })
	s.EndAudio()
}

func (s *streamSession) isAborted() bool {
	select {
	case <-s.abort:
		return true
	default:
		return false
	}
}

func (s *streamSession) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.abortOnce.Do(func() { close(s.abort) })
}

// run owns the connection and is the only writer of terminal updates.
func (s *streamSession) run(ctx context.Context, dial dialFunc) {
	defer close(s.updates)

	connectStart := time.Now()
	ws, err := dial(ctx)
	s.mu.Lock()
	s.stats.ConnectDur = time.Since(connectStart)
	s.mu.Unlock()
	if err != nil {
		s.fail(err)
		close(s.sendDone)
		close(s.recvDone)
		if !s.canceled.Load() {
			s.updates <- Update{Err: err}
		}
		return
	}

	go s.runSender(ws)
	go s.runReceiver(ws)

	select {
	case <-s.ended:
	case <-s.abort:
	case <-ctx.Done():
		s.fail(ctx.Err())
	}

	finalizeStart := time.Now()
	if !s.isAborted() {
		select {
		case <-s.sendDone:
		case <-s.abort:
		}
		select {
		case <-s.finalized:
			select {
			case <-time.After(streamFinalizeIdle):
			case <-s.abort:
			}
		case <-time.After(streamFinalizeMax):
		case <-s.abort:
		}
	}

	s.closing.Store(true)
	ws.Close()
	select {
	case <-s.recvDone:
	case <-time.After(streamDrainMax):
		log.Warn("stream receiver drain timeout")
	}
	<-s.sendDone

	s.mu.Lock()
	stats := s.stats
	stats.FinalizeWait = time.Since(finalizeStart)
	stats.SessionDur = time.Since(s.startedAt)
	text := strings.TrimSpace(s.committed)
	sessionErr := s.err
	s.mu.Unlock()

	if s.canceled.Load() {
		return
	}
	if sessionErr != nil {
		s.updates <- Update{Err: sessionErr}
		return
	}
	s.logMetrics(stats)
	s.updates <- Update{Text: text, Final: true}
}

func (s *streamSession) runSender(ws rawStreamSession) {
	defer close(s.sendDone)
	for {
		select {
		case chunk, ok := <-s.audioCh:
			if !ok {
				if err := ws.CloseSend(); err != nil {
					s.fail(err)
				}
				return
			}
			if err := ws.Send(chunk); err != nil {
				s.fail(err)
				return
			}
			s.mu.Lock()
			s.stats.SentChunks++
			s.stats.SentBytes += len(chunk)
			s.mu.Unlock()
		case <-s.abort:
			return
		}
	}
}

func (s *streamSession) runReceiver(ws rawStreamSession) {
	defer close(s.recvDone)
	for {
		update, err := ws.Recv()
		if err != nil {
			if !s.closing.Load() {
				s.fail(err)
			}
			return
		}

		if update.FromFinalize {
			s.finalizedOnce.Do(func() { close(s.finalized) })
		}

		isFinal := update.IsFinal || update.SpeechFinal || update.FromFinalize
		transcript := strings.TrimSpace(update.Transcript)

		s.mu.Lock()
		s.stats.RecvMessages++
		if isFinal {
			s.stats.RecvFinal++
		} else {
			s.stats.RecvInterim++
		}
		var text string
		if isFinal {
			if transcript != "" {
				s.committed = joinTranscript(s.committed, transcript)
			}
			text = s.committed
		} else {
			text = joinTranscript(s.committed, transcript)
		}
		changed := text != "" && text != s.lastSent
		if changed {
			s.lastSent = text
		}
		s.mu.Unlock()

		if !changed {
			continue
		}
		// a dropped partial is superseded by the next one
		select {
		case s.updates <- Update{Text: text}:
		default:
		}
	}
}

func joinTranscript(committed, next string) string {
	switch {
	case committed == "":
		return next
	case next == "":
		return committed
	}
	return committed + " " + next
}

func (s *streamSession) logMetrics(stats streamStats) {
	log.StreamMetrics(log.StreamMetricsData{
		ConnectMs:    float64(stats.ConnectDur.Milliseconds()),
		FinalizeMs:   float64(stats.FinalizeWait.Milliseconds()),
		TotalMs:      float64(stats.SessionDur.Milliseconds()),
		AudioS:       encoder.Duration(stats.SentBytes).Seconds(),
		SentChunks:   stats.SentChunks,
		SentKB:       float64(stats.SentBytes) / 1024,
		RecvMessages: stats.RecvMessages,
		RecvFinal:    stats.RecvFinal,
		RecvInterim:  stats.RecvInterim,
	})
}
