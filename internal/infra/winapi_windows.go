//go:build windows

package infra

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	oleacc   = windows.NewLazySystemDLL("oleacc.dll")

	procGetForegroundWindow          = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow          = user32.NewProc("SetForegroundWindow")
	procBringWindowToTop             = user32.NewProc("BringWindowToTop")
	procAttachThreadInput            = user32.NewProc("AttachThreadInput")
	procGetWindowThreadProcessId     = user32.NewProc("GetWindowThreadProcessId")
	procGetClassNameW                = user32.NewProc("GetClassNameW")
	procGetWindowTextW               = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW         = user32.NewProc("GetWindowTextLengthW")
	procIsWindow                     = user32.NewProc("IsWindow")
	procIsWindowVisible              = user32.NewProc("IsWindowVisible")
	procGetAncestor                  = user32.NewProc("GetAncestor")
	procGetParent                    = user32.NewProc("GetParent")
	procGetWindow                    = user32.NewProc("GetWindow")
	procGetTopWindow                 = user32.NewProc("GetTopWindow")
	procEnumWindows                  = user32.NewProc("EnumWindows")
	procWindowFromPoint              = user32.NewProc("WindowFromPoint")
	procGetCursorPos                 = user32.NewProc("GetCursorPos")
	procGetCurrentInputMessageSource = user32.NewProc("GetCurrentInputMessageSource")
	procSetWinEventHook              = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent               = user32.NewProc("UnhookWinEvent")
	procSetWindowsHookExW            = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx          = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx               = user32.NewProc("CallNextHookEx")
	procGetMessageW                  = user32.NewProc("GetMessageW")
	procPostThreadMessageW           = user32.NewProc("PostThreadMessageW")

	procGetCurrentThreadId = kernel32.NewProc("GetCurrentThreadId")

	procAccessibleObjectFromEvent = oleacc.NewProc("AccessibleObjectFromEvent")
	procAccessibleObjectFromPoint = oleacc.NewProc("AccessibleObjectFromPoint")
	procAccessibleChildren        = oleacc.NewProc("AccessibleChildren")
)

const (
	EVENT_OBJECT_FOCUS = 0x8005

	WINEVENT_OUTOFCONTEXT   = 0x0000
	WINEVENT_SKIPOWNPROCESS = 0x0002

	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14

	WM_KEYDOWN     = 0x0100
	WM_SYSKEYDOWN  = 0x0104
	WM_LBUTTONDOWN = 0x0201
	WM_RBUTTONDOWN = 0x0204
	WM_MBUTTONDOWN = 0x0207
	WM_XBUTTONDOWN = 0x020B
	WM_QUIT        = 0x0012

	// KBDLLHOOKSTRUCT and MSLLHOOKSTRUCT flag bits.
	LLKHF_LOWER_IL_INJECTED = 0x0002
	LLKHF_INJECTED          = 0x0010
	LLMHF_INJECTED          = 0x0001
	LLMHF_LOWER_IL_INJECTED = 0x0002

	// Pen/touch promoted mouse events carry this signature in dwExtraInfo.
	MI_WP_SIGNATURE = 0xFF515700
	MI_WP_SIG_MASK  = 0xFFFFFF00
	MI_WP_PEN_BIT   = 0x0080

	GA_PARENT = 1

	GW_HWNDNEXT = 2
	GW_OWNER    = 4

	OBJID_CLIENT = -4
	CHILDID_SELF = 0

	// INPUT_MESSAGE_SOURCE origins.
	IMO_UNAVAILABLE = 0
	IMO_HARDWARE    = 1
	IMO_INJECTED    = 2
	IMO_SYSTEM      = 4

	// INPUT_MESSAGE_SOURCE device types.
	IMDT_UNAVAILABLE = 0
	IMDT_KEYBOARD    = 1
	IMDT_MOUSE       = 2
	IMDT_TOUCH       = 4
	IMDT_PEN         = 8
	IMDT_TOUCHPAD    = 16

	// IAccessible DISPIDs.
	DISPID_ACC_CHILDCOUNT = -5001
	DISPID_ACC_NAME       = -5003
	DISPID_ACC_VALUE      = -5004
	DISPID_ACC_ROLE       = -5006
	DISPID_ACC_STATE      = -5007

	// MSAA roles.
	ROLE_SYSTEM_CARET      = 0x07
	ROLE_SYSTEM_WINDOW     = 0x09
	ROLE_SYSTEM_CLIENT     = 0x0A
	ROLE_SYSTEM_DOCUMENT   = 0x0F
	ROLE_SYSTEM_PANE       = 0x10
	ROLE_SYSTEM_LIST       = 0x21
	ROLE_SYSTEM_TEXT       = 0x2A
	ROLE_SYSTEM_PUSHBUTTON = 0x2B
	ROLE_SYSTEM_COMBOBOX   = 0x2E

	// MSAA state bits.
	STATE_SYSTEM_UNAVAILABLE = 0x00000001
	STATE_SYSTEM_READONLY    = 0x00000040
	STATE_SYSTEM_INVISIBLE   = 0x00008000
	STATE_SYSTEM_FOCUSABLE   = 0x00100000
	STATE_SYSTEM_PROTECTED   = 0x20000000
)

type point struct {
	X int32
	Y int32
}

type msLLHookStruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type kbdLLHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type inputMessageSource struct {
	DeviceType uint32
	OriginID   uint32
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

// packPoint packs a POINT for by-value passing on 64-bit Windows: X in the
// low dword, Y in the high dword.
func packPoint(pt domain.Point) uintptr {
	return uintptr(uint32(pt.X)) | uintptr(uint32(pt.Y))<<32
}

// className reads a window's class name.
func className(hwnd uintptr) (string, error) {
	buf := make([]uint16, 256)
	n, _, err := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return "", err
	}
	return syscall.UTF16ToString(buf[:n]), nil
}

// windowText reads a window's title.
func windowText(hwnd uintptr) string {
	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if length == 0 {
		return ""
	}
	buf := make([]uint16, length+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), length+1)
	return syscall.UTF16ToString(buf)
}

// windowProcessID reads the pid owning a window.
func windowProcessID(hwnd uintptr) (int32, error) {
	var pid uint32
	tid, _, err := procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if tid == 0 {
		return 0, err
	}
	return int32(pid), nil
}
