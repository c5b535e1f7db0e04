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

type transcribeFunc func(ctx context.Context, audio []byte) (string, error)

type batchSession struct {
	provider   string
	ctx        context.Context
	cancel     context.CancelFunc
	transcribe transcribeFunc
	enc        *encoder.Flac
	updates    chan Update
	pcmCh      chan []byte
	encodeDone chan struct{}
	encErr     error

	feedMu     sync.Mutex
	feedClosed bool
	endOnce    sync.Once
	canceled   atomic.Bool
}

func newBatchSession(ctx context.Context, provider string, transcribe transcribeFunc) (*batchSession, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	bs := &batchSession{
		provider:   provider,
		ctx:        ctx,
		cancel:     cancel,
		transcribe: transcribe,
		enc:        enc,
		updates:    make(chan Update, 1),
		pcmCh:      make(chan []byte, 64),
		encodeDone: make(chan struct{}),
	}

	go func() {
		defer close(bs.encodeDone)
		for pcm := range bs.pcmCh {
			if bs.encErr == nil {
				bs.encErr = bs.enc.Write(pcm)
			}
		}
	}()

	return bs, nil
}

func (bs *batchSession) Feed(pcm []byte) {
	bs.feedMu.Lock()
	defer bs.feedMu.Unlock()
	if bs.feedClosed {
		return
	}
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	bs.pcmCh <- buf
}

func (bs *batchSession) Updates() <-chan Update { return bs.updates }

func (bs *batchSession) EndAudio() {
	bs.endOnce.Do(func() {
		bs.feedMu.Lock()
		bs.feedClosed = true
		close(bs.pcmCh)
		bs.feedMu.Unlock()
		go bs.finish()
	})
}

func (bs *batchSession) Cancel() {
	bs.canceled.Store(true)
	bs.cancel()
	bs.EndAudio()
}

func (bs *batchSession) finish() {
	defer close(bs.updates)
	defer bs.cancel()

	<-bs.encodeDone
	if bs.canceled.Load() {
		return
	}
	if bs.encErr != nil {
		bs.updates <- Update{Err: bs.encErr}
		return
	}
	data, err := bs.enc.Finish()
	if err != nil {
		bs.updates <- Update{Err: err}
		return
	}

	start := time.Now()
	text, err := bs.transcribe(bs.ctx, data)
	if bs.canceled.Load() {
		return
	}
	if err != nil {
		bs.updates <- Update{Err: err}
		return
	}
	log.BatchMetrics(bs.provider, bs.enc.AudioDuration().Seconds(), float64(len(data))/1024, time.Since(start))
	bs.updates <- Update{Text: strings.TrimSpace(text), Final: true}
}
