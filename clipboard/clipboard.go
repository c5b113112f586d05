// Package clipboard copies operator-facing text, such as the log panel, to
// the system clipboard.
package clipboard

import (
	"errors"
	"strings"
	"sync"
)

// ErrUnavailable is returned when no clipboard is attached or the platform
// refused the write.
var ErrUnavailable = errors.New("clipboard: unavailable")

// Writer is a system clipboard. The Wails clipboard manager satisfies it.
type Writer interface {
	SetText(text string) bool
}

var clipboardLock sync.Mutex

// SetText writes text to w.
func SetText(w Writer, text string) error {
	if w == nil {
		return ErrUnavailable
	}
	clipboardLock.Lock()
	defer clipboardLock.Unlock()

	if !w.SetText(text) {
		return ErrUnavailable
	}
	return nil
}

// CopyLines writes lines to w, one per line.
func CopyLines(w Writer, lines []string) error {
	if len(lines) == 0 {
		return errors.New("clipboard: nothing to copy")
	}
	return SetText(w, strings.Join(lines, "\n")+"\n")
}
