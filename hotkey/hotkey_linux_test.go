//go:build linux

package hotkey

import "testing"

func TestModStateMatches(t *testing.T) {
	var m modState
	if !m.update(keyLCtrl, true, false) || !m.update(keyRShift, true, false) {
		t.Fatal("modifiers not recognized")
	}
	if m.update(evdevKeys["space"], true, false) {
		t.Error("space treated as modifier")
	}
	if !m.matches(Combo{Ctrl: true, Shift: true, Key: "space"}) {
		t.Error("ctrl+shift not matched")
	}
	if m.matches(Combo{Ctrl: true, Key: "space"}) {
		t.Error("extra shift ignored")
	}
	m.update(keyRShift, false, true)
	if !m.matches(Combo{Ctrl: true, Key: "r"}) {
		t.Error("shift release not tracked")
	}
}
