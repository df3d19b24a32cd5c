package domain

// AccessibilityProvider resolves UI elements through the OS accessibility
// layer. Calls may block on the target application's accessibility server;
// implementations carry a call timeout.
type AccessibilityProvider interface {
	// ElementFromEvent resolves the element a focus notification points at.
	ElementFromEvent(window Handle, objectID, childID int32) (AccessibleElement, error)

	// ElementAtPoint resolves the element under a screen point.
	ElementAtPoint(pt Point) (AccessibleElement, error)
}

// InputSourceProvider reports the origin of the input message currently
// being processed. Must be read synchronously while handling an event;
// the value reflects global OS state, not per-event state.
type InputSourceProvider interface {
	CurrentSource() InputSourceVerdict
}

// WindowTree exposes the native window hierarchy for inspection.
// Implementation: Win32 on Windows, simulated elsewhere.
type WindowTree interface {
	// IsWindow reports whether the handle still names a live window.
	IsWindow(h Handle) bool

	// IsVisible reports whether the window is visible on screen.
	IsVisible(h Handle) bool

	// ClassName returns the window class name.
	ClassName(h Handle) (string, error)

	// Title returns the window title, empty when none.
	Title(h Handle) string

	// ProcessID returns the pid owning the window.
	ProcessID(h Handle) (int32, error)

	// Parent returns the parent window, or the owner for owned top-level
	// windows, or NoHandle at the top of the chain.
	Parent(h Handle) Handle

	// WindowAtPoint returns the window under the screen point.
	WindowAtPoint(pt Point) Handle

	// BelowInZOrder returns the next window below h in Z-order, or
	// NoHandle at the bottom.
	BelowInZOrder(h Handle) Handle

	// TopWindow returns the topmost window in Z-order.
	TopWindow() Handle

	// EnumTopLevel returns all top-level windows, topmost first.
	EnumTopLevel() []Handle
}

// ForegroundController changes which window owns the foreground.
type ForegroundController interface {
	// Foreground returns the current foreground window.
	Foreground() Handle

	// SetForeground asks the OS to make h the foreground window.
	// Returns false when the OS rejects the change.
	SetForeground(h Handle) bool

	// BringToTop raises h to the top of the Z-order.
	BringToTop(h Handle) error

	// AttachInput attaches the calling thread's input queue to the
	// thread owning the target window. The returned release func must be
	// called on every exit path; it is safe to call once.
	AttachInput(target Handle) (release func(), err error)
}

// EventSource delivers global focus/pointer/key notifications. Callbacks
// run on the source's dispatch context and must do minimal, non-blocking
// work. Start installs the OS hooks; Stop removes them.
type EventSource interface {
	// SubscribeFocus registers a callback for focus-change notifications.
	SubscribeFocus(fn func(FocusEvent))

	// SubscribePointerDown registers a callback for global pointer-button
	// presses. Injected presses are filtered out at capture time.
	SubscribePointerDown(fn func(ClickEvent))

	// SubscribeKeyDown registers a callback for global key-down events.
	SubscribeKeyDown(fn func(KeyEvent))

	// Start installs the OS hooks. Returns ErrAlreadyRunning when active.
	Start() error

	// Stop removes the hooks and waits for the dispatch loop to exit.
	Stop() error

	// IsRunning reports whether the hooks are installed.
	IsRunning() bool
}

// PanelRenderer draws and hides the actual panel window. The engine only
// drives this abstract surface; rendering itself is an external concern.
type PanelRenderer interface {
	// Show makes the panel visible. With activate false the panel must
	// not take keyboard focus.
	Show(activate bool)

	// Hide makes the panel invisible.
	Hide()

	// IsVisible reports current visibility.
	IsVisible() bool

	// Handle returns the panel's own window handle so the engine can
	// exclude it from every check. NoHandle when the panel has no
	// native window.
	Handle() Handle

	// ApplyScale forwards the configured UI scale to the renderer.
	ApplyScale(scale float64)
}

// ProcessResolver maps pids to executable names.
// Implementation: uses gopsutil for cross-platform support.
type ProcessResolver interface {
	// Name returns the executable name for the pid.
	Name(pid int32) (string, error)

	// Alive reports whether the pid exists and is running.
	Alive(pid int32) bool
}

// InstanceLock ensures only one daemon instance runs per machine.
type InstanceLock interface {
	// Acquire takes the lock. Returns ErrAlreadyRunning when another live
	// process holds it; locks left by dead processes are reclaimed.
	Acquire() error

	// Release drops the lock if the calling process owns it.
	Release() error

	// Owner returns the pid holding the lock, if any.
	Owner() (int32, bool)
}

// StatusStore persists a DaemonStatus snapshot. One writer (the daemon),
// many readers (the status command).
type StatusStore interface {
	// Write replaces the stored snapshot atomically.
	Write(s DaemonStatus) error

	// Read returns the stored snapshot, nil when none exists.
	Read() (*DaemonStatus, error)

	// Clear removes the stored snapshot. Missing is not an error.
	Clear() error
}

// AutostartManager registers the daemon to start at login.
// Implementation: per-user Run registry key on Windows.
type AutostartManager interface {
	// Install registers execPath to run at login, replacing any
	// previous registration.
	Install(execPath string) error

	// Uninstall removes the registration. Not installed is not an error.
	Uninstall() error

	// IsInstalled reports whether a registration exists.
	IsInstalled() bool

	// InstalledCommand returns the registered command line, empty
	// when none.
	InstalledCommand() string

	// NeedsUpdate reports whether a registration exists but runs a
	// different executable than execPath.
	NeedsUpdate(execPath string) bool
}
