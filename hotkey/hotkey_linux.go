//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keyLAlt    = 56
	keyRAlt    = 100
)

var evdevKeys = map[string]uint16{
	"space": 57,
	"r":     19,
	"f8":    66,
	"f9":    67,
	"f10":   68,
}

const inputEventSize = 24

// linuxHotkey reads keyboards straight from evdev, so it works without an
// X server but needs the user in the input group.
type linuxHotkey struct {
	combo   Combo
	code    uint16
	keydown chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

func New(c Combo) (Hotkey, error) {
	code, ok := evdevKeys[c.Key]
	if !ok {
		return nil, fmt.Errorf("hotkey: unsupported key %q", c.Key)
	}
	return &linuxHotkey{
		combo:   c,
		code:    code,
		keydown: make(chan struct{}, 1),
	}, nil
}

func (h *linuxHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var mods modState
	var keyHeld bool

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			pressed := evValue == keyPress
			released := evValue == keyRelease

			if mods.update(evCode, pressed, released) || evCode != h.code {
				continue
			}
			if pressed && !keyHeld && mods.matches(h.combo) {
				keyHeld = true
				select {
				case h.keydown <- struct{}{}:
				default:
				}
			} else if released {
				keyHeld = false
			}
		}
	}
}

type modState struct {
	ctrl, shift, alt bool
}

// update tracks modifier keys and reports whether code was one.
func (m *modState) update(code uint16, pressed, released bool) bool {
	var held *bool
	switch code {
	case keyLCtrl, keyRCtrl:
		held = &m.ctrl
	case keyLShift, keyRShift:
		held = &m.shift
	case keyLAlt, keyRAlt:
		held = &m.alt
	default:
		return false
	}
	*held = pressed || (!released && *held)
	return true
}

func (m modState) matches(c Combo) bool {
	return m.ctrl == c.Ctrl && m.shift == c.Shift && m.alt == c.Alt
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", e.Name())
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}
