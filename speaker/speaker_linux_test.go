//go:build linux

package speaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPulsePlayStopsOnCancel(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Skipf("no pulse server: %v", err)
	}
	pcm := Tone(16000, 440, 10, 0.05, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Play(ctx, pcm, 16000) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Play() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ten seconds of audio kept playing after cancel")
	}

	// the player is reusable once the canceled stream is gone
	short := Tone(16000, 440, 0.05, 0.05, 0)
	if err := p.Play(context.Background(), short, 16000); err != nil {
		t.Errorf("Play after cancel: %v", err)
	}
}
