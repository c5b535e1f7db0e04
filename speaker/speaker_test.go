package speaker

import (
	"context"
	"encoding/binary"
	"testing"
	"time"
)

func TestTone(t *testing.T) {
	pcm := Tone(1000, 100, 0.5, 0.5, 10)
	if len(pcm) != 1000 {
		t.Fatalf("len = %d, want 1000", len(pcm))
	}
	if first := int16(binary.LittleEndian.Uint16(pcm)); first != 0 {
		t.Errorf("first sample = %d, want 0", first)
	}
	peak := int16(0)
	for i := 0; i < len(pcm); i += 2 {
		if s := int16(binary.LittleEndian.Uint16(pcm[i:])); s > peak {
			peak = s
		}
	}
	if peak <= 0 || peak > 32767/2 {
		t.Errorf("peak = %d, want within half scale", peak)
	}
}

func TestDoubleToneHasGap(t *testing.T) {
	single := Tone(1000, 100, 0.1, 0.5, 10)
	double := doubleTone(1000, 100, 0.1, 0.05, 0.5, 10)
	if want := len(single)*2 + 100; len(double) != want {
		t.Errorf("len = %d, want %d", len(double), want)
	}
}

func TestCuesPlayInBackground(t *testing.T) {
	p := NewFake()
	p.Finish()
	c := NewCues(p)
	c.Start()
	c.End()
	c.Error()
	for i := 0; i < 3; i++ {
		select {
		case <-p.Started():
		case <-time.After(time.Second):
			t.Fatalf("cue %d never played", i)
		}
	}

	var nilCues *Cues
	nilCues.Start()
}

func TestFakePlayerCancel(t *testing.T) {
	p := NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Play(ctx, []byte{1, 2}, 16000) }()
	<-p.Started()
	if !p.Playing() {
		t.Error("not playing")
	}
	cancel()
	if err := <-done; err == nil {
		t.Error("expected cancellation error")
	}
	if p.Playing() || p.Stopped() != 1 {
		t.Errorf("playing=%v stopped=%d", p.Playing(), p.Stopped())
	}
}
