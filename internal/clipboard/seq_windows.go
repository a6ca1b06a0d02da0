//go:build windows

package clipboard

import (
	"errors"

	"golang.org/x/sys/windows"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procGetClipboardSequenceNumber = user32.NewProc("GetClipboardSequenceNumber")
)

// changeCount uses the system clipboard sequence number, which Windows
// increments on every clipboard write.
func changeCount() (uint64, error) {
	if err := procGetClipboardSequenceNumber.Find(); err != nil {
		return 0, err
	}
	ret, _, _ := procGetClipboardSequenceNumber.Call()
	if ret == 0 {
		return 0, errors.New("clipboard sequence number unavailable")
	}
	return uint64(ret), nil
}
