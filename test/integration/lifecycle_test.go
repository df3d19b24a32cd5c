//go:build integration

package integration

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/config"
	"github.com/eliteGoblin/panelmon/internal/domain"
	"github.com/eliteGoblin/panelmon/internal/infra"
	"github.com/eliteGoblin/panelmon/test/fixtures"
)

const disabledConfig = `
[auto_show]
enabled = false
debounce_ms = 0
settle_ms = 0
typing_suppress_ms = 0
`

const enabledConfig = `
[auto_show]
enabled = true
debounce_ms = 0
settle_ms = 0
typing_suppress_ms = 0
`

func TestConfigReload_TogglesHooks(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "panelmon-integration-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(path, []byte(disabledConfig), 0644); err != nil {
		t.Fatal(err)
	}

	scene := fixtures.NewScene()
	p := newPipeline(scene)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	p.daemon.ApplyConfig(cfg)

	logger := zap.NewNop()
	watcher := config.NewWatcher(path, p.daemon.ApplyConfig, logger)
	if err := watcher.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer watcher.Stop()

	p.start()
	defer p.stop()

	time.Sleep(200 * time.Millisecond)
	if scene.Source.IsRunning() {
		t.Fatal("hooks should stay down while auto-show is disabled")
	}

	// Enabling auto-show in the file should start the hooks.
	if err := os.WriteFile(path, []byte(enabledConfig), 0644); err != nil {
		t.Fatal(err)
	}
	if !eventually(3*time.Second, scene.Source.IsRunning) {
		t.Fatal("hooks did not start after config enabled auto-show")
	}

	// A click must now drive the panel end to end.
	scene.PressAndFocus(fixtures.EditorFieldPoint, fixtures.EditorWindow, domain.DeviceMouse)
	if !eventually(2*time.Second, scene.Renderer.IsVisible) {
		t.Fatal("panel did not show after reload enabled auto-show")
	}

	// Disabling it again should stop the hooks.
	if err := os.WriteFile(path, []byte(disabledConfig), 0644); err != nil {
		t.Fatal(err)
	}
	if !eventually(3*time.Second, func() bool { return !scene.Source.IsRunning() }) {
		t.Fatal("hooks did not stop after config disabled auto-show")
	}
}

func TestInstanceLock_ForeignOwner(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "panelmon-lock-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "panelmon.lock")
	procs := infra.NewSimulatedProcesses()
	lock := infra.NewFileLockWithPath(path, procs)

	// A live foreign owner blocks acquisition.
	procs.SetName(4242, "panelmon.exe")
	writeLockEntry(t, path, 4242)

	if err := lock.Acquire(); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if pid, ok := lock.Owner(); !ok || pid != 4242 {
		t.Fatalf("expected owner 4242, got %d (ok=%v)", pid, ok)
	}

	// A dead owner is stale; the lock is reclaimed.
	writeLockEntry(t, path, 31337)

	if err := lock.Acquire(); err != nil {
		t.Fatalf("expected stale lock takeover, got %v", err)
	}
	if pid, ok := lock.Owner(); !ok || pid != int32(os.Getpid()) {
		t.Fatalf("expected owner %d, got %d (ok=%v)", os.Getpid(), pid, ok)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("lock file should be removed after release")
	}
}

func writeLockEntry(t *testing.T, path string, pid int32) {
	t.Helper()
	data, err := json.Marshal(infra.LockEntry{PID: pid, StartedAt: time.Now().Unix()})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}
