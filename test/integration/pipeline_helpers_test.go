//go:build integration

package integration

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/config"
	"github.com/eliteGoblin/panelmon/internal/daemon"
	"github.com/eliteGoblin/panelmon/internal/policy"
	"github.com/eliteGoblin/panelmon/internal/usecase"
	"github.com/eliteGoblin/panelmon/test/fixtures"
)

// pipeline wires the full daemon stack over a fixture scene.
type pipeline struct {
	scene      *fixtures.Scene
	filter     *policy.Filter
	controller *usecase.Controller
	daemon     *daemon.Daemon

	cancel context.CancelFunc
	done   chan error
}

func newPipeline(scene *fixtures.Scene) *pipeline {
	logger := zap.NewNop()

	filter := policy.NewFilter()
	rules := policy.NewRuleSet(filter)
	inspector := usecase.NewInspector(scene.Desktop, scene.Access, scene.Procs, filter, rules, logger)
	correlator := usecase.NewCorrelator(scene.Desktop, logger)
	engine := usecase.NewEngine(usecase.DefaultEngineConfig(), inspector, scene.Input, correlator, scene.Desktop, scene.Renderer, logger)
	preserver := usecase.NewPreserver(usecase.PreserverConfig{ZOrderHops: 32}, scene.Desktop, scene.Desktop, scene.Renderer, filter, scene.Procs, logger)
	controller := usecase.NewController(usecase.ControllerConfig{}, scene.Renderer, preserver, logger)

	d := daemon.NewDaemon(daemon.DefaultConfig(), scene.Source, engine, controller, preserver, filter, scene.Renderer, scene.Desktop, logger)

	return &pipeline{
		scene:      scene,
		filter:     filter,
		controller: controller,
		daemon:     d,
	}
}

// applyDefaults pushes an enabled configuration with zeroed delays so the
// pipeline reacts without debounce or settle waits.
func (p *pipeline) applyDefaults(mutate func(*config.Config)) {
	cfg := config.Default()
	cfg.AutoShow.DebounceMs = 0
	cfg.AutoShow.SettleMs = 0
	cfg.AutoShow.TypingSuppressMs = 0
	if mutate != nil {
		mutate(cfg)
	}
	p.daemon.ApplyConfig(cfg)
}

// start launches the daemon loop in the background.
func (p *pipeline) start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- p.daemon.Run(ctx) }()
}

// stop shuts the daemon down and waits for the loop to exit.
func (p *pipeline) stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
	}
	p.cancel = nil
}

// eventually polls cond until it holds or the timeout passes.
func eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
