// Package main is the CLI entry point for panelmon.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/panelmon/internal/config"
	"github.com/eliteGoblin/panelmon/internal/daemon"
	"github.com/eliteGoblin/panelmon/internal/domain"
	"github.com/eliteGoblin/panelmon/internal/infra"
	"github.com/eliteGoblin/panelmon/internal/policy"
	"github.com/eliteGoblin/panelmon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "panelmon",
	Short: "Input panel daemon - shows the on-screen panel on deliberate text focus",
	Long: `panelmon watches global focus and input events and decides in real time
whether the on-screen input panel should appear. The panel is shown only
when the user deliberately focuses an editable text field with a pointer
press. Programmatic focus changes and injected input never trigger it, and
the focused application keeps keyboard focus while the panel is up.`,
	Version:      Version,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the panel daemon",
	Long: `Runs the daemon in the foreground: installs the global focus and input
hooks, watches the configuration file for edits, and drives the panel
until interrupted.

With --simulate the daemon runs against a scripted in-memory desktop
instead of the OS, which is useful for trying the decision pipeline on
machines without the required hooks.`,
	RunE: runRun,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Describe the UI element under the cursor",
	Long: `Waits a few seconds, then resolves the accessible element under the
mouse cursor and prints how the daemon would classify it. Use this to
check why a particular field does or does not trigger the panel.`,
	RunE: runInspect,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Reads the running daemon's status snapshot and reports whether it is
alive, whether the global hooks are active, and how many events were
dropped under load.`,
	RunE: runStatus,
}

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage start-at-login registration",
	Long: `Registers the daemon in the per-user Run key so it starts at login.
Without a subcommand it reports the current registration.`,
	RunE: runAutostartStatus,
}

var autostartOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Register the daemon to start at login",
	RunE:  runAutostartOn,
}

var autostartOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Remove the start-at-login registration",
	RunE:  runAutostartOff,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath  string
	simulate    bool
	inspectWait int
	inspectJSON bool
	statusJSON  bool
	jsonOutput  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")
	runCmd.Flags().BoolVar(&simulate, "simulate", false, "Run against a simulated desktop instead of the OS")
	inspectCmd.Flags().IntVar(&inspectWait, "delay", 3, "Seconds to wait before inspecting")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output the inspection as JSON")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output the status snapshot as JSON")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	autostartCmd.AddCommand(autostartOnCmd)
	autostartCmd.AddCommand(autostartOffCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(autostartCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if simulate {
		logger, _ := zap.NewDevelopment()
		defer func() { _ = logger.Sync() }()
		return runSimulated(logger)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := createLogger(cfg)
	defer func() { _ = logger.Sync() }()

	procs := infra.NewProcessResolver()
	lock := infra.NewFileLock(procs)
	if err := lock.Acquire(); err != nil {
		if pid, ok := lock.Owner(); ok {
			return fmt.Errorf("another instance is already running (pid %d)", pid)
		}
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	tree, err := infra.NewWindowTree()
	if err != nil {
		return err
	}
	fg, err := infra.NewForegroundController()
	if err != nil {
		return err
	}
	access, err := infra.NewMSAAProvider(logger)
	if err != nil {
		return err
	}
	if c, ok := access.(interface{ Close() }); ok {
		defer c.Close()
	}
	input, err := infra.NewInputSource()
	if err != nil {
		return err
	}
	source, err := infra.NewEventSource(logger)
	if err != nil {
		return err
	}

	renderer := infra.NewLogRenderer(logger)
	filter := policy.NewFilter()
	rules := policy.NewRuleSet(filter)
	inspector := usecase.NewInspector(tree, access, procs, filter, rules, logger)
	correlator := usecase.NewCorrelator(tree, logger)
	engine := usecase.NewEngine(usecase.DefaultEngineConfig(), inspector, input, correlator, tree, renderer, logger)
	preserver := usecase.NewPreserver(usecase.DefaultPreserverConfig(), tree, fg, renderer, filter, procs, logger)
	controller := usecase.NewController(usecase.DefaultControllerConfig(), renderer, preserver, logger)

	dcfg := daemon.DefaultConfig()
	dcfg.Version = Version
	d := daemon.NewDaemon(dcfg, source, engine, controller, preserver, filter, renderer, fg, logger)
	d.SetStatusStore(infra.NewStatusFile())
	d.ApplyConfig(cfg)

	watchPath := configPath
	if watchPath == "" {
		watchPath = config.DefaultPath()
	}
	watcher := config.NewWatcher(watchPath, d.ApplyConfig, logger)
	if err := watcher.Start(); err != nil {
		logger.Warn("config watcher unavailable, edits need a restart", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runSimulated drives the full pipeline over an in-memory desktop with an
// editor window and a toolbar, printing what the daemon decides at each step.
func runSimulated(logger *zap.Logger) error {
	const (
		editorWin = domain.Handle(101)
		toolsWin  = domain.Handle(202)
		panelWin  = domain.Handle(900)
	)

	desktop := infra.NewSimulatedDesktop()
	desktop.AddWindow(infra.SimWindow{
		Handle:   editorWin,
		Class:    "Edit",
		Title:    "notes.txt",
		PID:      42,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 0, Top: 0, Right: 800, Bottom: 600},
	})
	desktop.AddWindow(infra.SimWindow{
		Handle:   toolsWin,
		Class:    "ToolbarWindow32",
		Title:    "Tools",
		PID:      43,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 400, Top: 0, Right: 800, Bottom: 80},
	})
	desktop.SetForeground(editorWin)

	access := infra.NewSimulatedAccessibility(desktop)
	access.SetElement(editorWin, domain.AccessibleElement{
		Role:      domain.RoleText,
		Name:      "notes",
		Bounds:    domain.Rect{Left: 80, Top: 100, Right: 400, Bottom: 140},
		Focusable: true,
		HasValue:  true,
	})
	access.SetElement(toolsWin, domain.AccessibleElement{
		Role:      domain.RoleButton,
		Name:      "Save",
		Bounds:    domain.Rect{Left: 500, Top: 20, Right: 560, Bottom: 60},
		Focusable: true,
	})

	procs := infra.NewSimulatedProcesses()
	procs.SetName(42, "notepad.exe")
	procs.SetName(43, "tools.exe")

	source := infra.NewSimulatedEventSource()
	input := infra.NewSimulatedInputSource(domain.InputSourceVerdict{})
	renderer := infra.NewLogRendererWithHandle(logger, panelWin)

	filter := policy.NewFilter()
	rules := policy.NewRuleSet(filter)
	inspector := usecase.NewInspector(desktop, access, procs, filter, rules, logger)
	correlator := usecase.NewCorrelator(desktop, logger)
	engine := usecase.NewEngine(usecase.DefaultEngineConfig(), inspector, input, correlator, desktop, renderer, logger)
	preserver := usecase.NewPreserver(usecase.DefaultPreserverConfig(), desktop, desktop, renderer, filter, procs, logger)
	controller := usecase.NewController(usecase.ControllerConfig{}, renderer, preserver, logger)

	d := daemon.NewDaemon(daemon.DefaultConfig(), source, engine, controller, preserver, filter, renderer, desktop, logger)

	cfg := config.Default()
	cfg.AutoShow.DebounceMs = 0
	cfg.AutoShow.SettleMs = 0
	cfg.AutoShow.TypingSuppressMs = 0
	d.ApplyConfig(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	if !waitCond(2*time.Second, source.IsRunning) {
		cancel()
		<-done
		return fmt.Errorf("simulated event source did not start")
	}

	fmt.Println("\n=== Simulated Desktop Demo ===")

	fmt.Println("\n--- Programmatic focus on the text field, no click ---")
	source.EmitFocus(editorWin, 0, 0)
	time.Sleep(150 * time.Millisecond)
	fmt.Printf("Panel visible: %v (expected false, focus had no pointer press)\n", renderer.IsVisible())

	fmt.Println("\n--- Pointer click on the text field, focus follows ---")
	source.EmitClick(domain.Point{X: 120, Y: 120}, editorWin, domain.DeviceMouse)
	time.Sleep(50 * time.Millisecond)
	source.EmitFocus(editorWin, 0, 0)
	shown := waitCond(time.Second, renderer.IsVisible)
	fmt.Printf("Panel visible: %v (expected true)\n", shown)
	fmt.Printf("Editor kept focus: %v\n", desktop.Foreground() == editorWin)

	fmt.Println("\n--- Pointer click on a toolbar button ---")
	controller.Hide()
	source.EmitClick(domain.Point{X: 520, Y: 40}, toolsWin, domain.DeviceMouse)
	time.Sleep(50 * time.Millisecond)
	source.EmitFocus(toolsWin, 0, 0)
	time.Sleep(150 * time.Millisecond)
	fmt.Printf("Panel visible: %v (expected false, button is not a text input)\n", renderer.IsVisible())

	cancel()
	<-done

	fmt.Println("\n=== Demo Complete ===")
	return nil
}

func waitCond(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func runInspect(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()

	tree, err := infra.NewWindowTree()
	if err != nil {
		return err
	}
	access, err := infra.NewMSAAProvider(logger)
	if err != nil {
		return err
	}
	if c, ok := access.(interface{ Close() }); ok {
		defer c.Close()
	}

	procs := infra.NewProcessResolver()
	filter := policy.NewFilter()
	rules := policy.NewRuleSet(filter)
	inspector := usecase.NewInspector(tree, access, procs, filter, rules, logger)

	if inspectWait > 0 {
		fmt.Printf("Inspecting the element under the cursor in %d seconds, position it now...\n", inspectWait)
		time.Sleep(time.Duration(inspectWait) * time.Second)
	}

	pt, err := infra.CursorPos()
	if err != nil {
		return fmt.Errorf("read cursor position: %w", err)
	}

	insp, err := inspector.DescribeAtPoint(pt)
	if err != nil {
		return fmt.Errorf("describe element at (%d,%d): %w", pt.X, pt.Y, err)
	}

	if inspectJSON {
		out, err := json.MarshalIndent(insp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	desc := insp.Descriptor
	fmt.Println("\n=== Element Under Cursor ===")
	fmt.Printf("Cursor:     (%d,%d)\n", pt.X, pt.Y)
	fmt.Printf("Window:     %#x\n", uintptr(desc.Window))
	fmt.Printf("Class:      %s\n", desc.ClassName)
	fmt.Printf("Process:    %s (pid %d)\n", desc.ProcessName, desc.ProcessID)
	fmt.Printf("Role:       %s\n", desc.Role)
	fmt.Printf("Name:       %q\n", desc.Name)
	fmt.Printf("Bounds:     (%d,%d)-(%d,%d)\n", desc.Bounds.Left, desc.Bounds.Top, desc.Bounds.Right, desc.Bounds.Bottom)
	fmt.Printf("State:      %s\n", describeState(desc))
	if insp.TextInput {
		fmt.Printf("Text input: yes (rule: %s)\n", insp.Rule)
	} else {
		fmt.Printf("Text input: no (rule: %s)\n", insp.Rule)
	}
	fmt.Println("============================")
	return nil
}

func describeState(desc domain.ElementDescriptor) string {
	var states []string
	if desc.Focusable {
		states = append(states, "focusable")
	}
	if desc.HasValue {
		states = append(states, "has-value")
	}
	if desc.Readonly {
		states = append(states, "readonly")
	}
	if desc.Password {
		states = append(states, "password")
	}
	if desc.EditableChild {
		states = append(states, "editable-child")
	}
	if len(states) == 0 {
		return "none"
	}
	return strings.Join(states, " ")
}

func runStatus(cmd *cobra.Command, args []string) error {
	store := infra.NewStatusFile()
	procs := infra.NewProcessResolver()

	s, err := store.Read()
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	if statusJSON {
		if s == nil {
			fmt.Println("{}")
			return nil
		}
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println("\n=== panelmon Status ===")

	if s == nil {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'panelmon run' to start the daemon.")
		return nil
	}
	if !procs.Alive(s.PID) {
		fmt.Println("Status: NOT RUNNING")
		fmt.Printf("        Last daemon (pid %d) exited without cleanup.\n", s.PID)
		return nil
	}

	fmt.Printf("Status: RUNNING (pid %d)\n", s.PID)
	if s.Version != "" {
		fmt.Printf("Version: %s\n", s.Version)
	}
	started := time.Unix(s.StartedAt, 0)
	fmt.Printf("Started: %s (%s ago)\n", started.Format(time.RFC3339), time.Since(started).Round(time.Second))
	fmt.Printf("Last update: %s ago\n", time.Since(time.Unix(s.UpdatedAt, 0)).Round(time.Second))
	fmt.Printf("Auto-show: %s\n", enabledWord(s.AutoShow))
	fmt.Printf("Hooks active: %v\n", s.HooksActive)
	fmt.Printf("Panel visible: %v\n", s.PanelVisible)
	if s.DroppedFocus+s.DroppedClick+s.DroppedKey > 0 {
		fmt.Printf("Dropped events: focus=%d click=%d key=%d\n",
			s.DroppedFocus, s.DroppedClick, s.DroppedKey)
	}
	return nil
}

func enabledWord(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func runAutostartOn(cmd *cobra.Command, args []string) error {
	mgr, err := infra.NewAutostartManager()
	if err != nil {
		return err
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}
	if err := mgr.Install(execPath); err != nil {
		return err
	}
	fmt.Printf("Registered %s to start at login.\n", execPath)
	return nil
}

func runAutostartOff(cmd *cobra.Command, args []string) error {
	mgr, err := infra.NewAutostartManager()
	if err != nil {
		return err
	}
	if !mgr.IsInstalled() {
		fmt.Println("No start-at-login registration found.")
		return nil
	}
	if err := mgr.Uninstall(); err != nil {
		return err
	}
	fmt.Println("Removed the start-at-login registration.")
	return nil
}

func runAutostartStatus(cmd *cobra.Command, args []string) error {
	mgr, err := infra.NewAutostartManager()
	if err != nil {
		return err
	}
	cmdline := mgr.InstalledCommand()
	if cmdline == "" {
		fmt.Println("Autostart: not registered")
		fmt.Println("\nRun 'panelmon autostart on' to register.")
		return nil
	}
	fmt.Println("Autostart: registered")
	fmt.Printf("Command:   %s\n", cmdline)
	if execPath, err := os.Executable(); err == nil && mgr.NeedsUpdate(execPath) {
		fmt.Println("\nThe registration runs a different binary.")
		fmt.Println("Run 'panelmon autostart on' to update it.")
	}
	return nil
}

func createLogger(cfg *config.Config) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if cfg.Logging.File != "" {
		zcfg.OutputPaths = []string{cfg.Logging.File}
		zcfg.ErrorOutputPaths = []string{cfg.Logging.File}
	}
	if cfg.Logging.Level != "" {
		if lvl, err := zapcore.ParseLevel(cfg.Logging.Level); err == nil {
			zcfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("panelmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
