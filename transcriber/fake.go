package transcriber

import (
	"context"
	"sync"

	"hark/auth"
)

// FakeTranscriber scripts recognition without a network. Each session
// reports Partial once audio arrives and Final when audio ends.
type FakeTranscriber struct {
	Partial string
	Final   string
	// Err replaces the final result when set.
	Err error
	// Hold stops EndAudio from finishing the session; tests drive it with
	// FakeSession.Emit instead.
	Hold bool
	// Status is what Authorize answers.
	Status auth.Status
	// SessionErr makes NewSession fail.
	SessionErr error

	mu       sync.Mutex
	lang     string
	sessions []*FakeSession
}

func NewFake(partial, final string) *FakeTranscriber {
	return &FakeTranscriber{Partial: partial, Final: final, Status: auth.Authorized}
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) SetLanguage(lang string) {
	f.mu.Lock()
	f.lang = lang
	f.mu.Unlock()
}

func (f *FakeTranscriber) GetLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lang
}

func (f *FakeTranscriber) Authorize(context.Context) (auth.Status, error) {
	return f.Status, nil
}

func (f *FakeTranscriber) NewSession(_ context.Context, cfg SessionConfig) (Session, error) {
	if f.SessionErr != nil {
		return nil, f.SessionErr
	}
	s := &FakeSession{
		Config:  cfg,
		partial: f.Partial,
		final:   f.Final,
		err:     f.Err,
		hold:    f.Hold,
		updates: make(chan Update, 16),
	}
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()
	return s, nil
}

// Sessions returns every session created so far, oldest first.
func (f *FakeTranscriber) Sessions() []*FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSession(nil), f.sessions...)
}

type FakeSession struct {
	Config SessionConfig

	partial string
	final   string
	err     error
	hold    bool
	updates chan Update

	mu          sync.Mutex
	fed         int
	sentPartial bool
	ended       bool
	canceled    bool
	closed      bool
}

func (s *FakeSession) Feed(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.fed += len(pcm)
	if s.partial != "" && s.Config.Partials && !s.sentPartial {
		s.sentPartial = true
		s.sendLocked(Update{Text: s.partial})
	}
}

func (s *FakeSession) Updates() <-chan Update { return s.updates }

func (s *FakeSession) EndAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	if s.hold {
		return
	}
	if s.err != nil {
		s.sendLocked(Update{Err: s.err})
	} else {
		s.sendLocked(Update{Text: s.final, Final: true})
	}
}

func (s *FakeSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	s.canceled = true
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
}

// Emit delivers u as if the provider produced it. Nothing is delivered
// after a terminal update or Cancel.
func (s *FakeSession) Emit(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendLocked(u)
}

func (s *FakeSession) sendLocked(u Update) {
	if s.closed {
		return
	}
	s.updates <- u
	if u.Terminal() {
		s.closed = true
		close(s.updates)
	}
}

func (s *FakeSession) Fed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fed
}

func (s *FakeSession) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *FakeSession) Canceled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}
