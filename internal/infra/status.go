package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// StatusFile implements domain.StatusStore with a JSON file. Writes go
// through a temp file plus rename so a concurrent reader never sees a
// partial snapshot.
type StatusFile struct {
	path string
}

// NewStatusFile creates a status store in the OS temp directory, next to
// the instance lock.
func NewStatusFile() *StatusFile {
	return &StatusFile{path: filepath.Join(os.TempDir(), "panelmon.status")}
}

// NewStatusFileWithPath creates a status store at a specific path (for
// testing).
func NewStatusFileWithPath(path string) *StatusFile {
	return &StatusFile{path: path}
}

// Path returns the status file location.
func (s *StatusFile) Path() string {
	return s.path
}

// Write replaces the stored snapshot atomically.
func (s *StatusFile) Write(status domain.DaemonStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	// Unique temp name per process so a crashed writer cannot clobber a
	// healthy one's in-flight write.
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit status file: %w", err)
	}
	return nil
}

// Read returns the stored snapshot, nil when none exists.
func (s *StatusFile) Read() (*domain.DaemonStatus, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}
	var status domain.DaemonStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status file: %w", err)
	}
	return &status, nil
}

// Clear removes the stored snapshot.
func (s *StatusFile) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Ensure StatusFile implements domain.StatusStore.
var _ domain.StatusStore = (*StatusFile)(nil)
