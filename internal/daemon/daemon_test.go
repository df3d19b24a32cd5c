package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/config"
	"github.com/eliteGoblin/panelmon/internal/domain"
	"github.com/eliteGoblin/panelmon/internal/infra"
	"github.com/eliteGoblin/panelmon/internal/policy"
	"github.com/eliteGoblin/panelmon/internal/usecase"
)

const (
	editorWindow = domain.Handle(101)
	panelWindow  = domain.Handle(900)
)

type daemonFixture struct {
	desktop  *infra.SimulatedDesktop
	access   *infra.SimulatedAccessibility
	procs    *infra.SimulatedProcesses
	source   *infra.SimulatedEventSource
	input    *infra.SimulatedInputSource
	renderer *infra.LogRenderer
	ctl      *usecase.Controller
	daemon   *Daemon
}

// newDaemonFixture builds the full pipeline over a simulated desktop with
// one editor window holding a text field.
func newDaemonFixture(cfg Config) *daemonFixture {
	logger := zap.NewNop()

	desktop := infra.NewSimulatedDesktop()
	desktop.AddWindow(infra.SimWindow{
		Handle:   editorWindow,
		Class:    "Edit",
		Title:    "readme.txt",
		PID:      42,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 0, Top: 0, Right: 800, Bottom: 600},
	})
	desktop.SetForeground(editorWindow)

	access := infra.NewSimulatedAccessibility(desktop)
	access.SetElement(editorWindow, domain.AccessibleElement{
		Role:      domain.RoleText,
		Bounds:    domain.Rect{Left: 90, Top: 90, Right: 130, Bottom: 110},
		Focusable: true,
		HasValue:  true,
	})

	procs := infra.NewSimulatedProcesses()
	procs.SetName(42, "notepad.exe")

	source := infra.NewSimulatedEventSource()
	input := infra.NewSimulatedInputSource(domain.InputSourceVerdict{})
	renderer := infra.NewLogRendererWithHandle(logger, panelWindow)

	filter := policy.NewFilter()
	rules := policy.NewRuleSet(filter)
	inspector := usecase.NewInspector(desktop, access, procs, filter, rules, logger)
	correlator := usecase.NewCorrelator(desktop, logger)
	engine := usecase.NewEngine(usecase.DefaultEngineConfig(), inspector, input, correlator, desktop, renderer, logger)
	preserver := usecase.NewPreserver(usecase.PreserverConfig{ZOrderHops: 32}, desktop, desktop, renderer, filter, procs, logger)
	controller := usecase.NewController(usecase.ControllerConfig{}, renderer, preserver, logger)

	d := NewDaemon(cfg, source, engine, controller, preserver, filter, renderer, desktop, logger)
	return &daemonFixture{
		desktop:  desktop,
		access:   access,
		procs:    procs,
		source:   source,
		input:    input,
		renderer: renderer,
		ctl:      controller,
		daemon:   d,
	}
}

// apply pushes a config with deterministic timings through ApplyConfig.
func (f *daemonFixture) apply(enabled bool, mutate func(*config.Config)) {
	cfg := config.Default()
	cfg.AutoShow.Enabled = enabled
	cfg.AutoShow.DebounceMs = 0
	cfg.AutoShow.SettleMs = 0
	cfg.AutoShow.TypingSuppressMs = 0
	if mutate != nil {
		mutate(cfg)
	}
	f.daemon.ApplyConfig(cfg)
}

// drained reports whether the daemon loop has consumed every queued
// event. The loop is a single goroutine, so once a channel is empty any
// later event is handled strictly after the drained one.
func (f *daemonFixture) drained() bool {
	return len(f.daemon.focusCh) == 0 && len(f.daemon.clickCh) == 0 && len(f.daemon.keyCh) == 0
}

// start runs the daemon loop and registers cleanup that stops it.
func (f *daemonFixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.daemon.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("daemon did not stop")
		}
	})
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// TestDefaultConfig verifies default daemon configuration.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotZero(t, cfg.FocusBuffer, "FocusBuffer should be set")
	assert.NotZero(t, cfg.ClickBuffer, "ClickBuffer should be set")
	assert.NotZero(t, cfg.KeyBuffer, "KeyBuffer should be set")
	assert.Equal(t, 2*time.Second, cfg.ForegroundPoll)
}

// TestDaemon_AutoShowOnDeliberateClick verifies the full pipeline: a
// hardware click on a text field followed by its focus event shows the
// panel.
func TestDaemon_AutoShowOnDeliberateClick(t *testing.T) {
	f := newDaemonFixture(DefaultConfig())
	f.apply(true, nil)
	f.start(t)
	waitFor(t, f.source.IsRunning, "hooks never started")

	f.source.EmitClick(domain.Point{X: 100, Y: 100}, editorWindow, domain.DeviceMouse)
	waitFor(t, f.drained, "click never drained")
	f.source.EmitFocus(editorWindow, 0, 0)

	waitFor(t, f.renderer.IsVisible, "panel never shown")
	assert.Equal(t, 1, f.renderer.ShowCount())
}

// TestDaemon_FocusWithoutClickIgnored verifies that a focus event with no
// preceding click never shows the panel.
func TestDaemon_FocusWithoutClickIgnored(t *testing.T) {
	f := newDaemonFixture(DefaultConfig())
	f.apply(true, nil)
	f.start(t)
	waitFor(t, f.source.IsRunning, "hooks never started")

	f.source.EmitFocus(editorWindow, 0, 0)

	time.Sleep(250 * time.Millisecond)
	assert.False(t, f.renderer.IsVisible())
}

// TestDaemon_TypingSuppressesAutoShow verifies that a recent hardware key
// press holds back auto-show.
func TestDaemon_TypingSuppressesAutoShow(t *testing.T) {
	f := newDaemonFixture(DefaultConfig())
	f.apply(true, func(c *config.Config) { c.AutoShow.TypingSuppressMs = 60000 })
	f.start(t)
	waitFor(t, f.source.IsRunning, "hooks never started")

	f.source.EmitKey(0x41, false)
	waitFor(t, f.drained, "key never drained")
	f.source.EmitClick(domain.Point{X: 100, Y: 100}, editorWindow, domain.DeviceMouse)
	waitFor(t, f.drained, "click never drained")
	f.source.EmitFocus(editorWindow, 0, 0)

	time.Sleep(250 * time.Millisecond)
	assert.False(t, f.renderer.IsVisible(), "auto-show should be suppressed while typing")
}

// TestDaemon_ApplyConfigTogglesHooks verifies that flipping the enabled
// flag starts and stops the event source at runtime.
func TestDaemon_ApplyConfigTogglesHooks(t *testing.T) {
	f := newDaemonFixture(DefaultConfig())
	f.apply(true, nil)
	f.start(t)
	waitFor(t, f.source.IsRunning, "hooks never started")

	f.apply(false, nil)
	waitFor(t, func() bool { return !f.source.IsRunning() }, "hooks never stopped")

	f.apply(true, nil)
	waitFor(t, f.source.IsRunning, "hooks never restarted")
	assert.Equal(t, 2, f.source.StartCount)
}

// TestDaemon_HookFailureKeepsServing verifies that a hook install failure
// leaves the loop alive and the panel manually toggleable.
func TestDaemon_HookFailureKeepsServing(t *testing.T) {
	f := newDaemonFixture(DefaultConfig())
	f.source.SetStartError(&domain.HookError{Stage: "mouse", Err: errors.New("install denied")})
	f.apply(true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.daemon.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, f.source.IsRunning(), "hooks should not be running")

	f.ctl.Show(false)
	assert.True(t, f.renderer.IsVisible(), "manual show must still work")

	cancel()
	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

// TestDaemon_DropsOldestWhenSaturated verifies the overflow policy keeps
// the newest event.
func TestDaemon_DropsOldestWhenSaturated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FocusBuffer = 1
	f := newDaemonFixture(cfg)

	f.daemon.offerFocus(domain.FocusEvent{Window: 1})
	f.daemon.offerFocus(domain.FocusEvent{Window: 2})
	f.daemon.offerFocus(domain.FocusEvent{Window: 3})

	focus, _, _ := f.daemon.DropCounts()
	assert.Equal(t, uint64(2), focus)

	select {
	case ev := <-f.daemon.focusCh:
		assert.Equal(t, domain.Handle(3), ev.Window, "newest event should survive")
	default:
		t.Fatal("expected a buffered event")
	}
}

// TestDaemon_ShutdownStopsHooksAndHidesPanel verifies cleanup on context
// cancellation.
func TestDaemon_ShutdownStopsHooksAndHidesPanel(t *testing.T) {
	f := newDaemonFixture(DefaultConfig())
	f.apply(true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.daemon.Run(ctx) }()
	waitFor(t, f.source.IsRunning, "hooks never started")

	f.ctl.Show(false)
	assert.True(t, f.renderer.IsVisible())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}

	assert.False(t, f.source.IsRunning(), "hooks should be stopped on shutdown")
	assert.False(t, f.renderer.IsVisible(), "panel should be hidden on shutdown")
}

// TestDaemon_PublishesStatus verifies the heartbeat snapshot and its
// removal on clean shutdown.
func TestDaemon_PublishesStatus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForegroundPoll = 20 * time.Millisecond
	cfg.Version = "test"
	f := newDaemonFixture(cfg)

	store := infra.NewStatusFileWithPath(filepath.Join(t.TempDir(), "panelmon.status"))
	f.daemon.SetStatusStore(store)
	f.apply(true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.daemon.Run(ctx) }()
	waitFor(t, f.source.IsRunning, "hooks never started")

	waitFor(t, func() bool {
		s, err := store.Read()
		return err == nil && s != nil && s.HooksActive
	}, "status snapshot never appeared")

	s, err := store.Read()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int32(os.Getpid()), s.PID)
	assert.Equal(t, "test", s.Version)
	assert.True(t, s.AutoShow)
	assert.NotZero(t, s.StartedAt)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}

	s, err = store.Read()
	require.NoError(t, err)
	assert.Nil(t, s, "status should be cleared on clean shutdown")
}
