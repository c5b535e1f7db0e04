// Package synth turns text into speech and plays it.
package synth

import (
	"context"
	"fmt"
)

// Audio is synthesized speech as little-endian PCM16 mono.
type Audio struct {
	PCM        []byte
	SampleRate int
}

type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (Audio, error)
}

type Config struct {
	Engine     string // aura, command or fake
	Voice      string
	Command    string
	SampleRate int
	APIKey     string
}

func New(cfg Config) (Synthesizer, error) {
	switch cfg.Engine {
	case "", "aura":
		return NewAura(cfg.APIKey, cfg.Voice, cfg.SampleRate), nil
	case "command":
		return NewCommand(cfg.Command)
	case "fake":
		return NewFake(cfg.SampleRate), nil
	}
	return nil, fmt.Errorf("unknown tts engine %q (use aura, command or fake)", cfg.Engine)
}
