package domain

import "errors"

var (
	// ErrElementNotFound is returned by the inspector when the target is
	// blacklisted, gone, or the accessibility layer cannot describe it.
	// Callers drop the event; it is the fail-closed path, not a fault.
	ErrElementNotFound = errors.New("element not found")

	// ErrNotAvailable is returned by real-binding constructors on
	// platforms without the native implementation.
	ErrNotAvailable = errors.New("not available on this platform")

	// ErrAlreadyRunning indicates a second start of something that is
	// singleton by nature (event hooks, the daemon instance lock).
	ErrAlreadyRunning = errors.New("already running")
)

// HookError reports which global hook failed to install. Hook install
// failure is fatal to auto-show only; the panel stays manually toggleable.
type HookError struct {
	Stage string // "focus", "mouse", "keyboard"
	Err   error
}

func (e *HookError) Error() string {
	return "hook install failed at " + e.Stage + ": " + e.Err.Error()
}

func (e *HookError) Unwrap() error { return e.Err }
