package export

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	clipboard "golang.design/x/clipboard"

	"matrixdesk/app/mtx"
)

// Maximum clipboard size in bytes (10MB) - helps avoid X11 BadLength errors on Linux
const maxClipboardSize = 10 * 1024 * 1024

// ErrClipboardUnavailable is returned when no system clipboard can be reached
// (headless sessions, missing X11/Wayland).
var ErrClipboardUnavailable = errors.New("clipboard not available")

var (
	clipOnce sync.Once
	clipErr  error

	// clipboardWrite is swapped out by tests.
	clipboardWrite = func(data []byte) error {
		clipOnce.Do(func() {
			if err := clipboard.Init(); err != nil {
				clipErr = fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
			}
		})
		if clipErr != nil {
			return clipErr
		}
		return safeClipboardWrite(clipboard.FmtText, data)
	}
)

// safeClipboardWrite writes data with panic recovery; the clipboard backend
// panics on some display errors.
func safeClipboardWrite(format clipboard.Format, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("clipboard write failed: %v", r)
		}
	}()

	clipboard.Write(format, data)
	return nil
}

// CopyGrid puts g on the clipboard as tab separated text and returns the
// number of bytes copied.
func CopyGrid(g *mtx.Grid) (int, error) {
	if g == nil {
		return 0, fmt.Errorf("no grid to copy")
	}
	var buf bytes.Buffer
	if err := WriteTSV(&buf, g); err != nil {
		return 0, err
	}
	if buf.Len() > maxClipboardSize {
		return 0, fmt.Errorf("data too large for clipboard (%d bytes, max %d bytes / %.1f MB)",
			buf.Len(), maxClipboardSize, float64(maxClipboardSize)/(1024*1024))
	}
	if err := clipboardWrite(buf.Bytes()); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}
