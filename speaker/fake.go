package speaker

import (
	"context"
	"sync"
)

// FakePlayer records what it is asked to play. Each Play holds until its
// context is canceled or Finish is called.
type FakePlayer struct {
	mu      sync.Mutex
	played  [][]byte
	playing bool
	stopped int
	finish  chan struct{}
	started chan struct{}
}

func NewFake() *FakePlayer {
	return &FakePlayer{finish: make(chan struct{}), started: make(chan struct{}, 16)}
}

func (f *FakePlayer) Play(ctx context.Context, pcm []byte, _ int) error {
	f.mu.Lock()
	f.played = append(f.played, pcm)
	f.playing = true
	finish := f.finish
	f.mu.Unlock()

	select {
	case f.started <- struct{}{}:
	default:
	}

	var err error
	select {
	case <-finish:
	case <-ctx.Done():
		err = ctx.Err()
	}

	f.mu.Lock()
	f.playing = false
	if err != nil {
		f.stopped++
	}
	f.mu.Unlock()
	return err
}

// Started delivers one value per Play call.
func (f *FakePlayer) Started() <-chan struct{} { return f.started }

// Finish lets the current and every later Play complete normally.
func (f *FakePlayer) Finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.finish:
	default:
		close(f.finish)
	}
}

func (f *FakePlayer) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// Stopped counts plays cut short by cancellation.
func (f *FakePlayer) Stopped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *FakePlayer) Played() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.played...)
}
