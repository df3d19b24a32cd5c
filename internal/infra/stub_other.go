//go:build !windows

package infra

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// The real OS bindings exist only on Windows. These constructors keep the
// rest of the program compiling everywhere; callers fall back to the
// simulated desktop or report the platform gap.

func NewWindowTree() (domain.WindowTree, error) {
	return nil, fmt.Errorf("window tree: %w", domain.ErrNotAvailable)
}

func NewForegroundController() (domain.ForegroundController, error) {
	return nil, fmt.Errorf("foreground controller: %w", domain.ErrNotAvailable)
}

func NewInputSource() (domain.InputSourceProvider, error) {
	return nil, fmt.Errorf("input source classifier: %w", domain.ErrNotAvailable)
}

func NewMSAAProvider(logger *zap.Logger) (domain.AccessibilityProvider, error) {
	return nil, fmt.Errorf("accessibility provider: %w", domain.ErrNotAvailable)
}

func NewEventSource(logger *zap.Logger) (domain.EventSource, error) {
	return nil, fmt.Errorf("event source: %w", domain.ErrNotAvailable)
}

func NewAutostartManager() (domain.AutostartManager, error) {
	return nil, fmt.Errorf("autostart manager: %w", domain.ErrNotAvailable)
}

// CursorPos is only available with the native bindings.
func CursorPos() (domain.Point, error) {
	return domain.Point{}, fmt.Errorf("cursor position: %w", domain.ErrNotAvailable)
}
