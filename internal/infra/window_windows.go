//go:build windows

package infra

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// WindowTreeImpl reads the live window hierarchy through user32.
type WindowTreeImpl struct{}

// NewWindowTree creates the native window tree binding.
func NewWindowTree() (domain.WindowTree, error) {
	return &WindowTreeImpl{}, nil
}

func (t *WindowTreeImpl) IsWindow(h domain.Handle) bool {
	if h == domain.NoHandle {
		return false
	}
	ret, _, _ := procIsWindow.Call(uintptr(h))
	return ret != 0
}

func (t *WindowTreeImpl) IsVisible(h domain.Handle) bool {
	if h == domain.NoHandle {
		return false
	}
	ret, _, _ := procIsWindowVisible.Call(uintptr(h))
	return ret != 0
}

func (t *WindowTreeImpl) ClassName(h domain.Handle) (string, error) {
	name, err := className(uintptr(h))
	if err != nil {
		return "", fmt.Errorf("get class name for window %#x: %v", uintptr(h), err)
	}
	return name, nil
}

func (t *WindowTreeImpl) Title(h domain.Handle) string {
	return windowText(uintptr(h))
}

func (t *WindowTreeImpl) ProcessID(h domain.Handle) (int32, error) {
	pid, err := windowProcessID(uintptr(h))
	if err != nil {
		return 0, fmt.Errorf("get process for window %#x: %v", uintptr(h), err)
	}
	return pid, nil
}

// Parent returns the parent for child windows, the owner for owned
// top-level windows, and NoHandle at the top of the chain.
func (t *WindowTreeImpl) Parent(h domain.Handle) domain.Handle {
	if h == domain.NoHandle {
		return domain.NoHandle
	}
	parent, _, _ := procGetParent.Call(uintptr(h))
	if parent != 0 {
		return domain.Handle(parent)
	}
	owner, _, _ := procGetWindow.Call(uintptr(h), GW_OWNER)
	return domain.Handle(owner)
}

func (t *WindowTreeImpl) WindowAtPoint(pt domain.Point) domain.Handle {
	hwnd, _, _ := procWindowFromPoint.Call(packPoint(pt))
	return domain.Handle(hwnd)
}

func (t *WindowTreeImpl) BelowInZOrder(h domain.Handle) domain.Handle {
	if h == domain.NoHandle {
		return domain.NoHandle
	}
	next, _, _ := procGetWindow.Call(uintptr(h), GW_HWNDNEXT)
	return domain.Handle(next)
}

func (t *WindowTreeImpl) TopWindow() domain.Handle {
	top, _, _ := procGetTopWindow.Call(0)
	return domain.Handle(top)
}

// enumWindowsProc collects handles during EnumWindows. EnumWindows reports
// top-level windows in Z-order, topmost first.
var enumWindowsProc = syscall.NewCallback(func(hwnd, lparam uintptr) uintptr {
	list := (*[]domain.Handle)(unsafe.Pointer(lparam))
	*list = append(*list, domain.Handle(hwnd))
	return 1
})

func (t *WindowTreeImpl) EnumTopLevel() []domain.Handle {
	handles := make([]domain.Handle, 0, 128)
	procEnumWindows.Call(enumWindowsProc, uintptr(unsafe.Pointer(&handles)))
	return handles
}

// CursorPos returns the current pointer position in screen coordinates.
func CursorPos() (domain.Point, error) {
	var pt point
	ret, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if ret == 0 {
		return domain.Point{}, fmt.Errorf("get cursor position: %v", err)
	}
	return domain.Point{X: pt.X, Y: pt.Y}, nil
}

// Ensure WindowTreeImpl implements domain.WindowTree.
var _ domain.WindowTree = (*WindowTreeImpl)(nil)
