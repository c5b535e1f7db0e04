//go:build linux

package speaker

import (
	"context"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulsePlayer struct {
	mu     sync.Mutex
	client *pulse.Client
}

func New() (Player, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("hark"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulsePlayer{client: c}, nil
}

func (p *pulsePlayer) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) < 2 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
	}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) || ctx.Err() != nil {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := p.client.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(cs *proto.CreatePlaybackStream) {
			cs.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	defer stream.Close()

	drained := make(chan struct{})
	stream.Start()
	go func() {
		stream.Drain()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		// the deferred Close deletes the stream on the server, which drops
		// buffered audio and answers the pending Drain
		return ctx.Err()
	}
}
