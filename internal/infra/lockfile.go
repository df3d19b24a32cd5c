package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// LockEntry is the JSON payload stored in the lock file.
type LockEntry struct {
	PID       int32 `json:"pid"`
	StartedAt int64 `json:"started_at"`
}

// FileLock implements domain.InstanceLock with a JSON lock file. Creation
// uses O_EXCL so two starting processes cannot both win; a lock left behind
// by a dead process is detected via its recorded PID and reclaimed.
type FileLock struct {
	path  string
	procs domain.ProcessResolver
}

// NewFileLock creates a lock in the OS temp directory.
func NewFileLock(procs domain.ProcessResolver) domain.InstanceLock {
	return &FileLock{
		path:  filepath.Join(os.TempDir(), "panelmon.lock"),
		procs: procs,
	}
}

// NewFileLockWithPath creates a lock at a specific path (for testing).
func NewFileLockWithPath(path string, procs domain.ProcessResolver) domain.InstanceLock {
	return &FileLock{
		path:  path,
		procs: procs,
	}
}

// Path returns the lock file location.
func (l *FileLock) Path() string {
	return l.path
}

// Acquire takes the lock or fails with ErrAlreadyRunning.
func (l *FileLock) Acquire() error {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			werr := l.writeEntry(f)
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				os.Remove(l.path)
				return fmt.Errorf("failed to write lock file: %w", werr)
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		entry, rerr := l.read()
		if rerr == nil && entry.PID != 0 && entry.PID != int32(os.Getpid()) && l.procs.Alive(entry.PID) {
			return fmt.Errorf("%w: pid %d holds %s", domain.ErrAlreadyRunning, entry.PID, l.path)
		}

		// Stale or unreadable lock from a dead process.
		if rmErr := os.Remove(l.path); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("failed to remove stale lock: %w", rmErr)
		}
	}
	return fmt.Errorf("lock contention on %s", l.path)
}

// Release removes the lock when owned by this process.
func (l *FileLock) Release() error {
	entry, err := l.read()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if entry.PID != int32(os.Getpid()) {
		return fmt.Errorf("lock owned by pid %d, not releasing", entry.PID)
	}
	return os.Remove(l.path)
}

// Owner returns the pid recorded in the lock file.
func (l *FileLock) Owner() (int32, bool) {
	entry, err := l.read()
	if err != nil {
		return 0, false
	}
	return entry.PID, true
}

func (l *FileLock) writeEntry(f *os.File) error {
	entry := LockEntry{
		PID:       int32(os.Getpid()),
		StartedAt: time.Now().Unix(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

func (l *FileLock) read() (*LockEntry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var entry LockEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Ensure FileLock implements domain.InstanceLock.
var _ domain.InstanceLock = (*FileLock)(nil)
