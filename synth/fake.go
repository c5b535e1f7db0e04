package synth

import (
	"context"
	"sync"
)

// FakeSynth renders every utterance as a fixed amount of silence and
// remembers the texts.
type FakeSynth struct {
	sampleRate int
	// Err is returned by Synthesize when set.
	Err error

	mu    sync.Mutex
	texts []string
}

func NewFake(sampleRate int) *FakeSynth {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &FakeSynth{sampleRate: sampleRate}
}

func (f *FakeSynth) Name() string { return "fake" }

func (f *FakeSynth) Synthesize(ctx context.Context, text string) (Audio, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Audio{}, err
	}
	if f.Err != nil {
		return Audio{}, f.Err
	}
	return Audio{PCM: make([]byte, f.sampleRate/5), SampleRate: f.sampleRate}, nil
}

func (f *FakeSynth) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}
