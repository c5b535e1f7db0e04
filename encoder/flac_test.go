package encoder

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/mewkiz/flac"
)

func sine(samples int) []byte {
	pcm := make([]byte, samples*2)
	for i := range samples {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestFlacWriteInOddChunks(t *testing.T) {
	pcm := sine(BlockSize*2 + 300)

	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	// capture callbacks rarely line up with sample boundaries
	for off := 0; off < len(pcm); off += 333 {
		end := min(off+333, len(pcm))
		if err := enc.Write(pcm[off:end]); err != nil {
			t.Fatalf("Write at %d: %v", off, err)
		}
	}
	if got := enc.TotalFrames(); got != BlockSize*2 {
		t.Errorf("TotalFrames before Finish = %d, want %d", got, BlockSize*2)
	}

	data, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if enc.TotalFrames() != BlockSize*2+300 {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), BlockSize*2+300)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}

	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if stream.Info.SampleRate != SampleRate || stream.Info.NChannels != Channels {
		t.Errorf("stream info = %d Hz / %d ch", stream.Info.SampleRate, stream.Info.NChannels)
	}
}

func TestFlacFinishEmpty(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	data, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish on empty encoder: %v", err)
	}
	if enc.TotalFrames() != 0 {
		t.Errorf("TotalFrames = %d, want 0", enc.TotalFrames())
	}
	if len(data) == 0 {
		t.Error("expected non-empty FLAC output (at least header)")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(BytesPerSecond / 2); got != 500*time.Millisecond {
		t.Errorf("Duration = %v", got)
	}
	enc, _ := NewFlac()
	enc.Write(sine(SampleRate))
	enc.Finish()
	if got := enc.AudioDuration(); got != time.Second {
		t.Errorf("AudioDuration = %v", got)
	}
}
