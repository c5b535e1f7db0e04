//go:build !linux

package audio

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	c := &malgoCapture{ctx: m.ctx, device: device, config: config}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	ctx      *malgo.AllocatedContext
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	mu      sync.Mutex
	mode    atomic.Int32
	dev     *malgo.Device
	running bool
}

func (c *malgoCapture) gain() int32 {
	if Mode(c.mode.Load()) == ModeMeasurement {
		return 1
	}
	return voiceGain
}

func (c *malgoCapture) init() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = c.config.Channels
	deviceConfig.SampleRate = c.config.SampleRate

	if c.device != nil {
		idBytes, err := hex.DecodeString(c.device.ID)
		if err != nil {
			return fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			cb := c.callback.Load()
			if cb == nil || *cb == nil {
				return
			}
			if c.gain() != 1 {
				data = applyGain(data, c.gain())
			}
			(*cb)(data, frameCount)
		},
	}

	dev, err := malgo.InitDevice(c.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return err
	}
	c.dev = dev
	return nil
}

func (c *malgoCapture) Configure(mode Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("malgo: cannot change capture mode while recording")
	}
	c.mode.Store(int32(mode))
	return nil
}

func (c *malgoCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		if err := c.init(); err != nil {
			return err
		}
	}
	if err := c.dev.Start(); err != nil {
		return err
	}
	c.running = true
	return nil
}

func (c *malgoCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.dev.Stop()
	c.running = false
}

func (c *malgoCapture) Close() {
	c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev != nil {
		c.dev.Uninit()
		c.dev = nil
	}
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *malgoCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *malgoCapture) DeviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}
