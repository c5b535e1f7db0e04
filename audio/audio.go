package audio

import (
	"encoding/binary"
	"fmt"
	"strings"
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsMonitor reports whether d is a loopback of an output sink rather than
// a microphone. PulseAudio names those sources "<sink>.monitor".
func IsMonitor(d DeviceInfo) bool {
	return strings.HasSuffix(d.ID, ".monitor")
}

// microphones drops monitor sources from devices.
func microphones(devices []DeviceInfo) []DeviceInfo {
	out := devices[:0:0]
	for _, d := range devices {
		if !IsMonitor(d) {
			out = append(out, d)
		}
	}
	return out
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// Mode selects how a capture device conditions its input.
type Mode int

const (
	// ModeDefault applies the backend's voice gain boost.
	ModeDefault Mode = iota
	// ModeMeasurement captures the signal untouched while playback stays
	// possible on the same machine.
	ModeMeasurement
)

func (m Mode) String() string {
	if m == ModeMeasurement {
		return "measurement"
	}
	return "default"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "measurement":
		return ModeMeasurement, nil
	case "default":
		return ModeDefault, nil
	}
	return ModeDefault, fmt.Errorf("unknown capture mode %q (use measurement or default)", s)
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Inputs lists the capture devices currently present.
type Inputs interface {
	Devices() ([]DeviceInfo, error)
}

type Context interface {
	Inputs
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	// Configure must be called while the device is stopped.
	Configure(mode Mode) error
	Start() error
	// Stop is a no-op on a device that is not running.
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// voiceGain is the software boost applied in ModeDefault.
const voiceGain = 8

// applyGain returns a copy of little-endian PCM16 data scaled by gain,
// clipped to the int16 range.
func applyGain(data []byte, gain int32) []byte {
	out := make([]byte, len(data))
	for i := 0; i+1 < len(data); i += 2 {
		amplified := int32(int16(binary.LittleEndian.Uint16(data[i:]))) * gain
		if amplified > 32767 {
			amplified = 32767
		} else if amplified < -32768 {
			amplified = -32768
		}
		binary.LittleEndian.PutUint16(out[i:], uint16(int16(amplified)))
	}
	return out
}
