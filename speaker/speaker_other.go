//go:build !linux

package speaker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoPlayer struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

func New() (Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: %w", err)
	}
	return &malgoPlayer{ctx: ctx}, nil
}

func (p *malgoPlayer) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) < 2 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = uint32(sampleRate)

	var pos atomic.Uint32
	total := uint32(len(pcm) &^ 1)
	drained := make(chan struct{})
	var drainOnce sync.Once

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			start := pos.Load()
			want := frameCount * 2
			n := min(want, total-start)
			copy(out[:n], pcm[start:start+n])
			for i := n; i < uint32(len(out)); i++ {
				out[i] = 0
			}
			pos.Store(start + n)
			if start+n >= total {
				drainOnce.Do(func() { close(drained) })
			}
		},
	}

	device, err := malgo.InitDevice(p.ctx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("malgo playback: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("malgo playback: %w", err)
	}
	defer device.Stop()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
