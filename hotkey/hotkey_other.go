//go:build !linux

package hotkey

import (
	"fmt"

	"golang.design/x/hotkey"
)

var xKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace,
	"r":     hotkey.KeyR,
	"f8":    hotkey.KeyF8,
	"f9":    hotkey.KeyF9,
	"f10":   hotkey.KeyF10,
}

type xHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	stop    chan struct{}
}

func New(c Combo) (Hotkey, error) {
	key, ok := xKeys[c.Key]
	if !ok {
		return nil, fmt.Errorf("hotkey: unsupported key %q", c.Key)
	}
	if c.Alt {
		return nil, fmt.Errorf("hotkey: alt is only supported on linux")
	}
	var mods []hotkey.Modifier
	if c.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if c.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	return &xHotkey{
		hk:      hotkey.New(mods, key),
		keydown: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}, nil
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-h.hk.Keydown():
			case <-h.stop:
				return
			}
			select {
			case h.keydown <- struct{}{}:
			default:
			}
		}
	}()
	return nil
}

func (h *xHotkey) Unregister() {
	close(h.stop)
	h.hk.Unregister()
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}
