package cli

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
)

// Clipboard copies text somewhere the user can paste it from.
type Clipboard interface {
	Copy(text string) error
}

// SystemClipboard writes to the desktop clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Copy(text string) error {
	return clipboard.WriteAll(text)
}

// ManualClipboard is the fallback when no clipboard is reachable: it prints
// the password on its own line for the user to select.
type ManualClipboard struct {
	W io.Writer
}

func (m ManualClipboard) Copy(text string) error {
	_, err := fmt.Fprintf(m.W, "clipboard unavailable, select and copy the password manually:\n\n    %s\n\n", text)
	return err
}

// SelectClipboard picks the system clipboard when the platform supports one
// and the manual fallback writing to w otherwise.
func SelectClipboard(w io.Writer) Clipboard {
	if clipboard.Unsupported {
		return ManualClipboard{W: w}
	}
	return SystemClipboard{}
}

// CopyWithFallback tries primary and falls back to fallback when it fails,
// e.g. when no xclip or xsel binary is installed.
func CopyWithFallback(primary, fallback Clipboard, text string) error {
	if err := primary.Copy(text); err != nil {
		if fallback == nil {
			return fmt.Errorf("copying to clipboard: %w", err)
		}
		return fallback.Copy(text)
	}
	return nil
}
