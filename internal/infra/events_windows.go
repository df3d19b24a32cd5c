//go:build windows

package infra

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// Win32EventSource installs one WinEvent hook for focus changes and two
// low-level hooks for pointer and keyboard presses. All three deliver to a
// dedicated pump thread; hooks silently stop firing when their thread
// stops pumping messages, so the thread does nothing else.
//
// Hook callbacks are process-global, so at most one source runs per
// process.
type Win32EventSource struct {
	logger *zap.Logger

	mu       sync.Mutex
	focusFns []func(domain.FocusEvent)
	clickFns []func(domain.ClickEvent)
	keyFns   []func(domain.KeyEvent)
	running  bool
	threadID uint32
	stopped  chan struct{}

	// seq is touched on the pump thread only.
	seq uint64
}

var (
	callbackOnce     sync.Once
	winEventCallback uintptr
	mouseCallback    uintptr
	keyCallback      uintptr

	activeSource atomic.Pointer[Win32EventSource]
)

// NewEventSource creates the native event source. Hooks are not installed
// until Start.
func NewEventSource(logger *zap.Logger) (domain.EventSource, error) {
	return &Win32EventSource{logger: logger}, nil
}

func (s *Win32EventSource) SubscribeFocus(fn func(domain.FocusEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusFns = append(s.focusFns, fn)
}

func (s *Win32EventSource) SubscribePointerDown(fn func(domain.ClickEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clickFns = append(s.clickFns, fn)
}

func (s *Win32EventSource) SubscribeKeyDown(fn func(domain.KeyEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyFns = append(s.keyFns, fn)
}

type pumpStatus struct {
	threadID uint32
	err      error
}

func (s *Win32EventSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return domain.ErrAlreadyRunning
	}
	if !activeSource.CompareAndSwap(nil, s) {
		return domain.ErrAlreadyRunning
	}

	callbackOnce.Do(func() {
		winEventCallback = syscall.NewCallback(onWinEvent)
		mouseCallback = syscall.NewCallback(onMouseHook)
		keyCallback = syscall.NewCallback(onKeyHook)
	})

	ready := make(chan pumpStatus, 1)
	stopped := make(chan struct{})
	go s.pump(ready, stopped)

	status := <-ready
	if status.err != nil {
		activeSource.Store(nil)
		return status.err
	}
	s.running = true
	s.threadID = status.threadID
	s.stopped = stopped
	s.logger.Info("event hooks installed", zap.Uint32("pump_thread", status.threadID))
	return nil
}

func (s *Win32EventSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	tid := s.threadID
	stopped := s.stopped
	s.mu.Unlock()

	procPostThreadMessageW.Call(uintptr(tid), WM_QUIT, 0, 0)
	<-stopped
	activeSource.Store(nil)
	s.logger.Info("event hooks removed")
	return nil
}

func (s *Win32EventSource) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// pump installs the hooks on its own locked thread and runs the message
// loop until WM_QUIT. Install errors report back through ready before the
// loop starts.
func (s *Win32EventSource) pump(ready chan<- pumpStatus, stopped chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(stopped)

	tid, _, _ := procGetCurrentThreadId.Call()

	focusHook, _, err := procSetWinEventHook.Call(
		EVENT_OBJECT_FOCUS, EVENT_OBJECT_FOCUS,
		0, winEventCallback, 0, 0,
		WINEVENT_OUTOFCONTEXT|WINEVENT_SKIPOWNPROCESS,
	)
	if focusHook == 0 {
		ready <- pumpStatus{err: &domain.HookError{Stage: "focus", Err: fmt.Errorf("SetWinEventHook: %v", err)}}
		return
	}
	defer procUnhookWinEvent.Call(focusHook)

	mouseHook, _, err := procSetWindowsHookExW.Call(WH_MOUSE_LL, mouseCallback, 0, 0)
	if mouseHook == 0 {
		ready <- pumpStatus{err: &domain.HookError{Stage: "mouse", Err: fmt.Errorf("SetWindowsHookEx: %v", err)}}
		return
	}
	defer procUnhookWindowsHookEx.Call(mouseHook)

	keyHook, _, err := procSetWindowsHookExW.Call(WH_KEYBOARD_LL, keyCallback, 0, 0)
	if keyHook == 0 {
		ready <- pumpStatus{err: &domain.HookError{Stage: "keyboard", Err: fmt.Errorf("SetWindowsHookEx: %v", err)}}
		return
	}
	defer procUnhookWindowsHookEx.Call(keyHook)

	ready <- pumpStatus{threadID: uint32(tid)}

	var m msg
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if ret == 0 || int32(ret) == -1 {
			return
		}
	}
}

func onWinEvent(hook uintptr, event uint32, hwnd uintptr, idObject, idChild int32, eventThread, eventTime uint32) uintptr {
	if event == EVENT_OBJECT_FOCUS && hwnd != 0 {
		if src := activeSource.Load(); src != nil {
			src.handleFocus(hwnd, idObject, idChild)
		}
	}
	return 0
}

func onMouseHook(nCode int32, wParam, lParam uintptr) uintptr {
	if nCode >= 0 {
		if src := activeSource.Load(); src != nil {
			src.handleMouse(wParam, lParam)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func onKeyHook(nCode int32, wParam, lParam uintptr) uintptr {
	if nCode >= 0 {
		if src := activeSource.Load(); src != nil {
			src.handleKey(wParam, lParam)
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (s *Win32EventSource) handleFocus(hwnd uintptr, objectID, childID int32) {
	ev := domain.FocusEvent{
		Window:    domain.Handle(hwnd),
		ObjectID:  objectID,
		ChildID:   childID,
		Timestamp: time.Now(),
	}
	for _, fn := range s.snapshotFocusFns() {
		fn(ev)
	}
}

// handleMouse captures button presses. Injected presses never enter the
// pipeline; promoted touch and pen presses are tagged by the dwExtraInfo
// signature.
func (s *Win32EventSource) handleMouse(wParam, lParam uintptr) {
	switch wParam {
	case WM_LBUTTONDOWN, WM_RBUTTONDOWN, WM_MBUTTONDOWN, WM_XBUTTONDOWN:
	default:
		return
	}
	info := (*msLLHookStruct)(unsafe.Pointer(lParam))
	if info.Flags&(LLMHF_INJECTED|LLMHF_LOWER_IL_INJECTED) != 0 {
		return
	}
	pt := domain.Point{X: info.Pt.X, Y: info.Pt.Y}
	hwnd, _, _ := procWindowFromPoint.Call(packPoint(pt))
	s.seq++
	ev := domain.ClickEvent{
		Position:  pt,
		Window:    domain.Handle(hwnd),
		Device:    pointerDeviceFromExtra(info.DwExtraInfo),
		Timestamp: time.Now(),
		Sequence:  s.seq,
	}
	for _, fn := range s.snapshotClickFns() {
		fn(ev)
	}
}

func (s *Win32EventSource) handleKey(wParam, lParam uintptr) {
	if wParam != WM_KEYDOWN && wParam != WM_SYSKEYDOWN {
		return
	}
	info := (*kbdLLHookStruct)(unsafe.Pointer(lParam))
	ev := domain.KeyEvent{
		VK:        info.VkCode,
		Injected:  info.Flags&(LLKHF_INJECTED|LLKHF_LOWER_IL_INJECTED) != 0,
		Timestamp: time.Now(),
	}
	for _, fn := range s.snapshotKeyFns() {
		fn(ev)
	}
}

func pointerDeviceFromExtra(extra uintptr) domain.DeviceType {
	sig := uint32(extra)
	if sig&MI_WP_SIG_MASK == MI_WP_SIGNATURE {
		if sig&MI_WP_PEN_BIT != 0 {
			return domain.DevicePen
		}
		return domain.DeviceTouch
	}
	return domain.DeviceMouse
}

func (s *Win32EventSource) snapshotFocusFns() []func(domain.FocusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]func(domain.FocusEvent)(nil), s.focusFns...)
}

func (s *Win32EventSource) snapshotClickFns() []func(domain.ClickEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]func(domain.ClickEvent)(nil), s.clickFns...)
}

func (s *Win32EventSource) snapshotKeyFns() []func(domain.KeyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]func(domain.KeyEvent)(nil), s.keyFns...)
}

// Ensure Win32EventSource implements domain.EventSource.
var _ domain.EventSource = (*Win32EventSource)(nil)
