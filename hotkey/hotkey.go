// Package hotkey delivers a global key combination as a toggle signal.
package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
}

// Combo is a key with optional modifiers, written like "ctrl+shift+space".
type Combo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Key   string
}

var keyNames = []string{"space", "r", "f8", "f9", "f10"}

func Parse(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i < len(parts)-1 {
			switch p {
			case "ctrl", "control":
				c.Ctrl = true
			case "shift":
				c.Shift = true
			case "alt", "option":
				c.Alt = true
			default:
				return Combo{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, p)
			}
			continue
		}
		for _, k := range keyNames {
			if p == k {
				c.Key = p
			}
		}
		if c.Key == "" {
			return Combo{}, fmt.Errorf("hotkey %q: unsupported key %q (use one of %s)", s, p, strings.Join(keyNames, ", "))
		}
	}
	return c, nil
}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	return strings.Join(append(parts, c.Key), "+")
}
