// Package encoder packs captured PCM16 audio into FLAC for upload.
package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096

	BytesPerSecond = SampleRate * Channels * BitsPerSample / 8
)

// Duration is the playing time of n bytes of capture-format PCM.
func Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / BytesPerSecond
}

// Flac turns a stream of little-endian PCM16 mono bytes into a FLAC file.
// It is not safe for concurrent use.
type Flac struct {
	buf         bytes.Buffer
	enc         *flac.Encoder
	pending     []int16
	odd         []byte
	totalFrames uint64
	encodeTime  time.Duration
}

func NewFlac() (*Flac, error) {
	e := &Flac{}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(&e.buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

// Write buffers pcm and encodes every complete block. A trailing odd byte
// is held until the next call.
func (e *Flac) Write(pcm []byte) error {
	start := time.Now()
	defer func() { e.encodeTime += time.Since(start) }()

	if len(e.odd) > 0 {
		pcm = append(e.odd, pcm...)
		e.odd = nil
	}
	n := len(pcm) &^ 1
	for i := 0; i < n; i += 2 {
		e.pending = append(e.pending, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	if n < len(pcm) {
		e.odd = []byte{pcm[n]}
	}

	for len(e.pending) >= BlockSize {
		if err := e.encodeBlock(e.pending[:BlockSize]); err != nil {
			return err
		}
		e.pending = e.pending[BlockSize:]
	}
	return nil
}

func (e *Flac) encodeBlock(block []int16) error {
	samples := make([]int32, len(block))
	for i, s := range block {
		samples[i] = int32(s)
	}

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  len(block),
		}},
	}

	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.totalFrames += uint64(len(block))
	return nil
}

// Finish encodes any partial block, closes the stream and returns the file.
func (e *Flac) Finish() ([]byte, error) {
	if len(e.pending) > 0 {
		if err := e.encodeBlock(e.pending); err != nil {
			return nil, err
		}
		e.pending = nil
	}
	if err := e.enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac encoder: %w", err)
	}
	return e.buf.Bytes(), nil
}

func (e *Flac) TotalFrames() uint64 { return e.totalFrames }

func (e *Flac) EncodeTime() time.Duration { return e.encodeTime }

func (e *Flac) AudioDuration() time.Duration {
	return time.Duration(e.totalFrames) * time.Second / SampleRate
}
