package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext serves PCM from a WAV file as if it came from a microphone.
type FakeContext struct {
	pcm        []byte
	sampleRate int
	realtime   bool

	mu      sync.Mutex
	devices []DeviceInfo
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	pcm, rate, err := DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", wavPath, err)
	}
	return NewFakeContextPCM(pcm, rate, realtime), nil
}

func NewFakeContextPCM(pcm []byte, sampleRate int, realtime bool) *FakeContext {
	return &FakeContext{
		pcm:        pcm,
		sampleRate: sampleRate,
		realtime:   realtime,
		devices:    []DeviceInfo{{ID: "fake", Name: "fake"}},
	}
}

// SetDevices replaces the device list reported by Devices; nil simulates a
// machine with no microphone.
func (f *FakeContext) SetDevices(devices []DeviceInfo) {
	f.mu.Lock()
	f.devices = devices
	f.mu.Unlock()
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DeviceInfo(nil), f.devices...), nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{
		pcm:        f.pcm,
		sampleRate: f.sampleRate,
		realtime:   f.realtime,
		audioDone:  make(chan struct{}),
	}, nil
}

// DecodeWAV returns the samples of a 16-bit WAV file as mono little-endian
// PCM along with its sample rate. Extra channels are dropped.
func DecodeWAV(data []byte) ([]byte, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding WAV: %w", err)
	}
	if dec.BitDepth != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d (want 16)", dec.BitDepth)
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(buf.Data[i*channels])))
	}
	return pcm, int(dec.SampleRate), nil
}

// FakeCapture replays PCM through the registered callback. It also counts
// lifecycle calls so tests can assert on teardown.
type FakeCapture struct {
	pcm        []byte
	sampleRate int
	realtime   bool

	// ConfigureErr and StartErr are returned by Configure and Start.
	ConfigureErr error
	StartErr     error

	mu        sync.Mutex
	cb        DataCallback
	mode      Mode
	running   bool
	stopCh    chan struct{}
	feedDone  chan struct{}
	audioDone chan struct{}
	starts    int
	stops     int
	clears    int
}

func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audioDone
}

func (f *FakeCapture) Configure(mode Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureErr != nil {
		return f.ConfigureErr
	}
	f.mode = mode
	return nil
}

func (f *FakeCapture) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.clears++
	f.mu.Unlock()
}

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Running reports whether Start succeeded and Stop has not been called since.
func (f *FakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Calls returns how many times Start, Stop and ClearCallback ran.
func (f *FakeCapture) Calls() (starts, stops, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.clears
}

// Push delivers pcm to the callback synchronously, as a capture tap would.
func (f *FakeCapture) Push(pcm []byte) {
	if cb := f.callback(); cb != nil {
		cb(pcm, uint32(len(pcm)/fakeBytesPerFrame))
	}
}

func (f *FakeCapture) feedChunk(pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	f.Push(chunk)
	return end
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.starts++
	if f.StartErr != nil {
		f.mu.Unlock()
		return f.StartErr
	}
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	// audioDone is NOT recreated here -- callers may already be waiting on it.
	stopCh, feedDone, audioDone := f.stopCh, f.feedDone, f.audioDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Millisecond
	if f.realtime && f.sampleRate > 0 {
		interval = time.Duration(fakeFrameSize) * time.Second / time.Duration(f.sampleRate)
	}

	go func() {
		defer close(feedDone)
		pos := 0
		finished := false
		for {
			select {
			case <-stopCh:
				return
			default:
			}
			if pos < len(f.pcm) {
				pos = f.feedChunk(pos, chunkBytes)
			} else if !finished {
				finished = true
				close(audioDone)
			}
			select {
			case <-stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.stops++
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopCh)
	feedDone := f.feedDone
	f.mu.Unlock()

	<-feedDone

	f.mu.Lock()
	select {
	case <-f.audioDone:
		f.audioDone = make(chan struct{}) // reset for replay
	default:
	}
	f.mu.Unlock()
}

func (f *FakeCapture) Close() { f.Stop() }
