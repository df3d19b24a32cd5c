//go:build windows

package infra

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

const (
	runKeyPath        = `Software\Microsoft\Windows\CurrentVersion\Run`
	autostartValue    = "panelmon"
	autostartArgument = "run"
)

// RunKeyAutostart implements domain.AutostartManager through the per-user
// Run registry key. No elevation required; the entry launches at logon
// inside the user's session, which the global hooks need anyway.
type RunKeyAutostart struct {
	valueName string
}

// NewAutostartManager creates the Run key autostart manager.
func NewAutostartManager() (domain.AutostartManager, error) {
	return &RunKeyAutostart{valueName: autostartValue}, nil
}

// Install registers execPath to run at logon, replacing any previous
// registration.
func (a *RunKeyAutostart) Install(execPath string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open Run key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue(a.valueName, autostartCommand(execPath)); err != nil {
		return fmt.Errorf("failed to set autostart value: %w", err)
	}
	return nil
}

// Uninstall removes the registration. Not installed is not an error.
func (a *RunKeyAutostart) Uninstall() error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open Run key: %w", err)
	}
	defer key.Close()

	if err := key.DeleteValue(a.valueName); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("failed to delete autostart value: %w", err)
	}
	return nil
}

// IsInstalled reports whether a registration exists.
func (a *RunKeyAutostart) IsInstalled() bool {
	return a.InstalledCommand() != ""
}

// InstalledCommand returns the registered command line, empty when none.
func (a *RunKeyAutostart) InstalledCommand() string {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer key.Close()

	cmd, _, err := key.GetStringValue(a.valueName)
	if err != nil {
		return ""
	}
	return cmd
}

// NeedsUpdate reports whether a registration exists but runs a different
// executable, typically after the binary moved.
func (a *RunKeyAutostart) NeedsUpdate(execPath string) bool {
	cmd := a.InstalledCommand()
	if cmd == "" {
		return false
	}
	return cmd != autostartCommand(execPath)
}

func autostartCommand(execPath string) string {
	return fmt.Sprintf(`"%s" %s`, execPath, autostartArgument)
}

// Ensure RunKeyAutostart implements domain.AutostartManager.
var _ domain.AutostartManager = (*RunKeyAutostart)(nil)
