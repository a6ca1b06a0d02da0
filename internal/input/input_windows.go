//go:build windows

package input

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputKeyboard = 1
	keyEventKeyUp = 0x0002
	vkControl     = 0x11
	vkC           = 0x43
	vkV           = 0x56
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// winInput mirrors INPUT with the keyboard union member; the trailing
// padding makes it as large as the mouse member.
type winInput struct {
	inputType uint32
	ki        keyboardInput
	_         uint64
}

func key(vk uint16, up bool) winInput {
	var flags uint32
	if up {
		flags = keyEventKeyUp
	}
	return winInput{inputType: inputKeyboard, ki: keyboardInput{wVk: vk, dwFlags: flags}}
}

func sendInput(inputs ...winInput) error {
	if err := procSendInput.Find(); err != nil {
		return err
	}
	n, _, callErr := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return fmt.Errorf("SendInput injected %d of %d events: %v", n, len(inputs), callErr)
	}
	return nil
}

type sendInputInjector struct{}

func newPlatform() Injector { return sendInputInjector{} }

func (sendInputInjector) Copy(ctx context.Context, hold time.Duration) error {
	if err := sendInput(key(vkControl, false), key(vkC, false)); err != nil {
		return err
	}
	t := time.NewTimer(hold)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	// Always release the keys, even when cancelled.
	return sendInput(key(vkC, true), key(vkControl, true))
}

func (sendInputInjector) Paste(ctx context.Context) error {
	return sendInput(
		key(vkControl, false),
		key(vkV, false),
		key(vkV, true),
		key(vkControl, true),
	)
}
