// Package clipboard copies the transcript to the system clipboard.
package clipboard

import (
	"strings"

	cb "github.com/atotto/clipboard"
)

// Copy places text on the clipboard. Blank text is ignored so a stray
// keypress does not wipe whatever the user copied last.
func Copy(text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	if cb.Unsupported {
		return false, errUnsupported
	}
	return true, cb.WriteAll(text)
}

func Read() (string, error) {
	return cb.ReadAll()
}
