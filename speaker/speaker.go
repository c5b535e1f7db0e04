// Package speaker plays PCM16 mono audio on the default output device.
package speaker

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
)

// Player plays one buffer at a time. Play blocks until the audio has
// drained or ctx is done; canceling ctx silences the output at once.
type Player interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
}

// Nop discards audio.
type Nop struct{}

func (Nop) Play(context.Context, []byte, int) error { return nil }

const cueRate = 44100

// Tone renders a decaying sine tick as little-endian PCM16 mono.
func Tone(sampleRate int, freq, duration, volume, decay float64) []byte {
	n := int(float64(sampleRate) * duration)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func doubleTone(sampleRate int, freq, toneDur, gapDur, volume, decay float64) []byte {
	tone := Tone(sampleRate, freq, toneDur, volume, decay)
	gap := make([]byte, int(float64(sampleRate)*gapDur)*2)
	out := make([]byte, 0, len(tone)*2+len(gap))
	out = append(out, tone...)
	out = append(out, gap...)
	return append(out, tone...)
}

// Cues are the short sounds marking the start and end of a recording.
type Cues struct {
	player Player

	once  sync.Once
	start []byte
	end   []byte
	fail  []byte
}

func NewCues(p Player) *Cues {
	return &Cues{player: p}
}

func (c *Cues) init() {
	c.start = Tone(cueRate, 1200, 0.2, 0.5, 60)
	c.end = Tone(cueRate, 900, 0.2, 0.5, 40)
	c.fail = doubleTone(cueRate, 350, 0.08, 0.05, 0.6, 30)
}

func (c *Cues) Start() { c.play(func() []byte { return c.start }) }
func (c *Cues) End()   { c.play(func() []byte { return c.end }) }
func (c *Cues) Error() { c.play(func() []byte { return c.fail }) }

func (c *Cues) play(pick func() []byte) {
	if c == nil {
		return
	}
	c.once.Do(c.init)
	go c.player.Play(context.Background(), pick(), cueRate)
}
