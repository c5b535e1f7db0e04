package synth

import (
	"context"
	"errors"
	"sync"

	"hark/log"
	"hark/speaker"
)

// Voice speaks utterances one after another. Speak while busy queues the
// text; Stop silences the current utterance and drops the queue.
type Voice struct {
	synth  Synthesizer
	player speaker.Player

	life     context.Context
	shutdown context.CancelFunc
	wake     chan struct{}
	done     chan struct{}

	mu       sync.Mutex
	queue    []string
	cancel   context.CancelFunc
	speaking bool
}

func NewVoice(s Synthesizer, p speaker.Player) *Voice {
	life, shutdown := context.WithCancel(context.Background())
	v := &Voice{
		synth:    s,
		player:   p,
		life:     life,
		shutdown: shutdown,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go v.run()
	return v
}

func (v *Voice) Speak(text string) {
	v.mu.Lock()
	v.queue = append(v.queue, text)
	v.mu.Unlock()
	select {
	case v.wake <- struct{}{}:
	default:
	}
}

func (v *Voice) Stop() {
	v.mu.Lock()
	v.queue = nil
	if v.cancel != nil {
		v.cancel()
	}
	v.mu.Unlock()
}

// Speaking reports whether an utterance is being synthesized or played.
func (v *Voice) Speaking() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.speaking
}

func (v *Voice) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.queue)
}

func (v *Voice) Close() {
	v.Stop()
	v.shutdown()
	<-v.done
}

func (v *Voice) run() {
	defer close(v.done)
	for {
		text, ctx, ok := v.next()
		if !ok {
			select {
			case <-v.wake:
				continue
			case <-v.life.Done():
				return
			}
		}
		v.say(ctx, text)
		v.finish()
	}
}

func (v *Voice) next() (string, context.Context, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.queue) == 0 || v.life.Err() != nil {
		return "", nil, false
	}
	text := v.queue[0]
	v.queue = v.queue[1:]
	ctx, cancel := context.WithCancel(v.life)
	v.cancel = cancel
	v.speaking = true
	return text, ctx, true
}

func (v *Voice) finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.speaking = false
}

func (v *Voice) say(ctx context.Context, text string) {
	log.Infof("tts_start engine=%s chars=%d", v.synth.Name(), len(text))
	a, err := v.synth.Synthesize(ctx, text)
	if err == nil {
		err = v.player.Play(ctx, a.PCM, a.SampleRate)
	}
	switch {
	case errors.Is(err, context.Canceled):
		log.Info("tts_stopped")
	case err != nil:
		log.Warnf("tts: %v", err)
	default:
		log.Info("tts_done")
	}
}
