// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Handle is an opaque native window handle.
type Handle uintptr

// NoHandle is the zero handle (no window).
const NoHandle Handle = 0

// Point is a screen coordinate in pixels.
type Point struct {
	X int32
	Y int32
}

// Rect is a screen rectangle in pixels, edges inclusive on the left/top
// and exclusive on the right/bottom, matching native window rectangles.
type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right && p.Y >= r.Top && p.Y < r.Bottom
}

// Width returns the rectangle width in pixels.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height returns the rectangle height in pixels.
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// DeviceType identifies the physical device class an input event came from.
type DeviceType int

const (
	DeviceUnknown DeviceType = iota
	DeviceMouse
	DeviceTouch
	DevicePen
	DeviceTouchpad
	DeviceKeyboard
)

// IsPointer reports whether the device is a pointing device.
func (d DeviceType) IsPointer() bool {
	switch d {
	case DeviceMouse, DeviceTouch, DevicePen, DeviceTouchpad:
		return true
	}
	return false
}

func (d DeviceType) String() string {
	switch d {
	case DeviceMouse:
		return "mouse"
	case DeviceTouch:
		return "touch"
	case DevicePen:
		return "pen"
	case DeviceTouchpad:
		return "touchpad"
	case DeviceKeyboard:
		return "keyboard"
	default:
		return "unknown"
	}
}

// FocusEvent is raised once per OS focus change. It is ephemeral and
// consumed synchronously by the decision engine.
type FocusEvent struct {
	Window    Handle
	ObjectID  int32
	ChildID   int32
	Timestamp time.Time
}

// ClickEvent is raised once per hardware pointer-button press.
type ClickEvent struct {
	Position  Point
	Window    Handle
	Device    DeviceType
	Timestamp time.Time
	Sequence  uint64
}

// KeyEvent is raised once per global key-down.
type KeyEvent struct {
	VK        uint32
	Injected  bool
	Timestamp time.Time
}

// Modifier virtual-key codes tracked across panel show/hide cycles.
const (
	VKShift   uint32 = 0x10
	VKControl uint32 = 0x11
	VKMenu    uint32 = 0x12 // Alt
	VKLWin    uint32 = 0x5B
	VKRWin    uint32 = 0x5C
)

// IsModifierVK reports whether the virtual-key code is a modifier key.
func IsModifierVK(vk uint32) bool {
	switch vk {
	case VKShift, VKControl, VKMenu, VKLWin, VKRWin:
		return true
	}
	return false
}

// CachedClick is the value held by the engine's single-slot click cache:
// the most recent click plus the window resolved under the click point.
// Validity is positional/ancestry-based, never time-based.
type CachedClick struct {
	Click            ClickEvent
	WindowUnderPoint Handle
}

// Role is the accessibility role of a UI element, reduced to the roles the
// editability rules distinguish. Infra maps native role constants onto these.
type Role int

const (
	RoleUnknown Role = iota
	RoleCaret
	RoleText
	RoleDocument
	RoleClient
	RolePane
	RoleCombobox
	RoleWindow
	RoleList
	RoleButton
)

func (r Role) String() string {
	switch r {
	case RoleCaret:
		return "caret"
	case RoleText:
		return "text"
	case RoleDocument:
		return "document"
	case RoleClient:
		return "client"
	case RolePane:
		return "pane"
	case RoleCombobox:
		return "combobox"
	case RoleWindow:
		return "window"
	case RoleList:
		return "list"
	case RoleButton:
		return "button"
	default:
		return "unknown"
	}
}

// AccessibleElement is what the accessibility layer reports about one
// element: role, name, state flags and bounds. The inspector combines it
// with window and process information into an ElementDescriptor.
type AccessibleElement struct {
	Role          Role
	Name          string
	Bounds        Rect
	Password      bool
	Readonly      bool
	Focusable     bool
	HasValue      bool
	EditableChild bool
}

// ElementDescriptor fully describes the UI element a focus or click event
// landed on. Derived per event, immutable once constructed, never persisted.
type ElementDescriptor struct {
	Window        Handle
	Role          Role
	ClassName     string
	Name          string
	Bounds        Rect
	Password      bool
	Readonly      bool
	Focusable     bool
	HasValue      bool
	EditableChild bool
	ProcessID     int32
	ProcessName   string
}

// SourceOrigin is the OS classification of where the input message being
// processed came from.
type SourceOrigin int

const (
	SourceUnavailable SourceOrigin = iota
	SourceHardware
	SourceInjected
	SourceSystem
)

func (o SourceOrigin) String() string {
	switch o {
	case SourceHardware:
		return "hardware"
	case SourceInjected:
		return "injected"
	case SourceSystem:
		return "system"
	default:
		return "unavailable"
	}
}

// InputSourceVerdict is the per-event origin classification. Never cached;
// it reflects global OS input state at the moment it is read.
type InputSourceVerdict struct {
	Origin SourceOrigin
	Device DeviceType
}

// DecisionKind is the terminal outcome of one decision engine pass.
type DecisionKind int

const (
	TextInputFocused DecisionKind = iota
	NonTextInputFocused
)

func (k DecisionKind) String() string {
	if k == TextInputFocused {
		return "text_input_focused"
	}
	return "non_text_input_focused"
}

// Decision is emitted exactly once per event that survives the blacklist
// filter. Trace tags one engine pass so log lines across components
// correlate.
type Decision struct {
	Kind       DecisionKind
	Descriptor ElementDescriptor
	Trace      string
}

// DaemonStatus is the snapshot the daemon persists for out-of-process
// inspection. UpdatedAt is refreshed on every foreground poll; a stale
// value with a live PID means the event loop is wedged.
type DaemonStatus struct {
	PID          int32  `json:"pid"`
	StartedAt    int64  `json:"started_at"`
	UpdatedAt    int64  `json:"updated_at"`
	Version      string `json:"version,omitempty"`
	AutoShow     bool   `json:"auto_show"`
	HooksActive  bool   `json:"hooks_active"`
	PanelVisible bool   `json:"panel_visible"`
	DroppedFocus uint64 `json:"dropped_focus"`
	DroppedClick uint64 `json:"dropped_click"`
	DroppedKey   uint64 `json:"dropped_key"`
}
