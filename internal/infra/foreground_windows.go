//go:build windows

package infra

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// ForegroundControllerImpl drives foreground ownership through user32.
// Windows refuses SetForegroundWindow for processes that do not own the
// foreground; AttachInput joins the caller's input queue to the target's
// thread so the claim is allowed.
type ForegroundControllerImpl struct{}

// NewForegroundController creates the native foreground binding.
func NewForegroundController() (domain.ForegroundController, error) {
	return &ForegroundControllerImpl{}, nil
}

func (f *ForegroundControllerImpl) Foreground() domain.Handle {
	hwnd, _, _ := procGetForegroundWindow.Call()
	return domain.Handle(hwnd)
}

func (f *ForegroundControllerImpl) SetForeground(h domain.Handle) bool {
	if h == domain.NoHandle {
		return false
	}
	ret, _, _ := procSetForegroundWindow.Call(uintptr(h))
	return ret != 0
}

func (f *ForegroundControllerImpl) BringToTop(h domain.Handle) error {
	if h == domain.NoHandle {
		return fmt.Errorf("bring to top: no window")
	}
	ret, _, err := procBringWindowToTop.Call(uintptr(h))
	if ret == 0 {
		return fmt.Errorf("bring window %#x to top: %v", uintptr(h), err)
	}
	return nil
}

func (f *ForegroundControllerImpl) AttachInput(target domain.Handle) (func(), error) {
	var pid uint32
	targetThread, _, _ := procGetWindowThreadProcessId.Call(uintptr(target), uintptr(unsafe.Pointer(&pid)))
	if targetThread == 0 {
		return nil, fmt.Errorf("attach input: window %#x has no thread", uintptr(target))
	}
	currentThread, _, _ := procGetCurrentThreadId.Call()
	if targetThread == currentThread {
		return func() {}, nil
	}
	ret, _, err := procAttachThreadInput.Call(currentThread, targetThread, 1)
	if ret == 0 {
		return nil, fmt.Errorf("attach input to thread %d: %v", targetThread, err)
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			procAttachThreadInput.Call(currentThread, targetThread, 0)
		})
	}
	return release, nil
}

// Ensure ForegroundControllerImpl implements domain.ForegroundController.
var _ domain.ForegroundController = (*ForegroundControllerImpl)(nil)
