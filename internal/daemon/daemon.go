// Package daemon wires the event pipeline together: it serializes OS
// callbacks onto one goroutine and drives the decision engine and the
// panel controller from there.
package daemon

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/config"
	"github.com/eliteGoblin/panelmon/internal/domain"
	"github.com/eliteGoblin/panelmon/internal/policy"
	"github.com/eliteGoblin/panelmon/internal/usecase"
)

// Config holds daemon loop configuration.
type Config struct {
	FocusBuffer    int           // focus event channel capacity
	ClickBuffer    int           // click event channel capacity
	KeyBuffer      int           // key event channel capacity
	ForegroundPoll time.Duration // interval for refreshing the focus fallback cache
	Version        string        // reported in the status snapshot
}

// DefaultConfig returns default daemon configuration.
func DefaultConfig() Config {
	return Config{
		FocusBuffer:    64,
		ClickBuffer:    128,
		KeyBuffer:      256,
		ForegroundPoll: 2 * time.Second,
	}
}

// Daemon owns the event loop. Hook callbacks enqueue into bounded
// channels; one goroutine drains them, so the engine and controller never
// see concurrent events. When a channel overflows the oldest event is
// dropped, never the newest.
type Daemon struct {
	cfg        Config
	source     domain.EventSource
	engine     *usecase.Engine
	controller *usecase.Controller
	preserver  *usecase.Preserver
	filter     *policy.Filter
	renderer   domain.PanelRenderer
	fg         domain.ForegroundController
	logger     *zap.Logger

	focusCh chan domain.FocusEvent
	clickCh chan domain.ClickEvent
	keyCh   chan domain.KeyEvent

	status    domain.StatusStore
	startedAt int64

	mu      sync.Mutex
	autoOn  bool
	started bool

	droppedFocus atomic.Uint64
	droppedClick atomic.Uint64
	droppedKey   atomic.Uint64
}

// NewDaemon creates the daemon and subscribes to the event source.
func NewDaemon(
	cfg Config,
	source domain.EventSource,
	engine *usecase.Engine,
	controller *usecase.Controller,
	preserver *usecase.Preserver,
	filter *policy.Filter,
	renderer domain.PanelRenderer,
	fg domain.ForegroundController,
	logger *zap.Logger,
) *Daemon {
	d := &Daemon{
		cfg:        cfg,
		source:     source,
		engine:     engine,
		controller: controller,
		preserver:  preserver,
		filter:     filter,
		renderer:   renderer,
		fg:         fg,
		logger:     logger,
		focusCh:    make(chan domain.FocusEvent, cfg.FocusBuffer),
		clickCh:    make(chan domain.ClickEvent, cfg.ClickBuffer),
		keyCh:      make(chan domain.KeyEvent, cfg.KeyBuffer),
	}
	source.SubscribeFocus(d.offerFocus)
	source.SubscribePointerDown(d.offerClick)
	source.SubscribeKeyDown(d.offerKey)
	return d
}

// SetStatusStore enables status snapshots. Must be called before Run;
// without a store the daemon publishes nothing.
func (d *Daemon) SetStatusStore(store domain.StatusStore) {
	d.status = store
}

// ApplyConfig applies a loaded configuration. Safe to call while the loop
// runs; the config watcher calls it on reload.
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	d.filter.SetExtras(cfg.Filter.ExtraProcessBlacklist, cfg.Filter.ExtraClassBlacklist)
	d.engine.SetConfig(usecase.EngineConfig{
		CorrelateHardware: cfg.AutoShow.CorrelateHardware,
		AcceptUnavailable: cfg.AutoShow.AcceptUnavailable,
	})
	d.controller.SetConfig(usecase.ControllerConfig{
		Debounce:       cfg.AutoShow.Debounce(),
		SettleDelay:    cfg.AutoShow.Settle(),
		TypingSuppress: cfg.AutoShow.TypingSuppress(),
	})
	d.renderer.ApplyScale(cfg.Panel.Scale)

	d.mu.Lock()
	d.autoOn = cfg.AutoShow.Enabled
	started := d.started
	d.mu.Unlock()

	if started {
		d.syncHooks()
	}
	d.logger.Info("configuration applied", zap.Bool("auto_show", cfg.AutoShow.Enabled))
}

// Run starts the hooks (when auto-show is enabled) and blocks draining
// events until the context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.started = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.started = false
		d.mu.Unlock()
	}()

	d.engine.SetDecisionSink(d.controller.HandleDecision)
	d.startedAt = time.Now().Unix()
	d.syncHooks()
	d.publishStatus()

	d.logger.Info("daemon started",
		zap.Int("pid", os.Getpid()),
		zap.Bool("hooks_active", d.source.IsRunning()))

	fgTicker := time.NewTicker(d.cfg.ForegroundPoll)
	defer fgTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			d.shutdown()
			return ctx.Err()

		case ev := <-d.focusCh:
			d.observeForeground()
			d.engine.OnFocus(ev)

		case ev := <-d.clickCh:
			d.engine.OnClick(ev)

		case ev := <-d.keyCh:
			d.controller.OnKeyDown(ev)

		case <-fgTicker.C:
			d.observeForeground()
			d.publishStatus()
		}
	}
}

// DropCounts reports how many events were discarded under backpressure.
func (d *Daemon) DropCounts() (focus, click, key uint64) {
	return d.droppedFocus.Load(), d.droppedClick.Load(), d.droppedKey.Load()
}

// syncHooks brings the event source in line with the auto-show flag. Hook
// install failure disables auto-show only; manual panel toggling keeps
// working.
func (d *Daemon) syncHooks() {
	d.mu.Lock()
	want := d.autoOn
	d.mu.Unlock()

	if want && !d.source.IsRunning() {
		if err := d.source.Start(); err != nil {
			var hookErr *domain.HookError
			switch {
			case errors.As(err, &hookErr):
				d.logger.Error("global hooks unavailable, auto-show disabled",
					zap.String("stage", hookErr.Stage), zap.Error(hookErr.Err))
			case errors.Is(err, domain.ErrAlreadyRunning):
			default:
				d.logger.Error("event source start failed", zap.Error(err))
			}
			return
		}
		d.logger.Info("auto-show active")
	}
	if !want && d.source.IsRunning() {
		if err := d.source.Stop(); err != nil {
			d.logger.Warn("event source stop failed", zap.Error(err))
			return
		}
		d.logger.Info("auto-show inactive")
	}
}

func (d *Daemon) shutdown() {
	if d.source.IsRunning() {
		if err := d.source.Stop(); err != nil {
			d.logger.Warn("event source stop failed", zap.Error(err))
		}
	}
	if d.controller.IsVisible() {
		d.controller.Hide()
	}
	if d.status != nil {
		if err := d.status.Clear(); err != nil {
			d.logger.Warn("status clear failed", zap.Error(err))
		}
	}
	if f, c, k := d.DropCounts(); f+c+k > 0 {
		d.logger.Warn("events dropped under load",
			zap.Uint64("focus", f), zap.Uint64("click", c), zap.Uint64("key", k))
	}
}

// publishStatus runs on the loop goroutine only.
func (d *Daemon) publishStatus() {
	if d.status == nil {
		return
	}
	d.mu.Lock()
	auto := d.autoOn
	d.mu.Unlock()

	f, c, k := d.DropCounts()
	snapshot := domain.DaemonStatus{
		PID:          int32(os.Getpid()),
		StartedAt:    d.startedAt,
		UpdatedAt:    time.Now().Unix(),
		Version:      d.cfg.Version,
		AutoShow:     auto,
		HooksActive:  d.source.IsRunning(),
		PanelVisible: d.renderer.IsVisible(),
		DroppedFocus: f,
		DroppedClick: c,
		DroppedKey:   k,
	}
	if err := d.status.Write(snapshot); err != nil {
		d.logger.Warn("status write failed", zap.Error(err))
	}
}

func (d *Daemon) observeForeground() {
	d.preserver.ObserveForeground(d.fg.Foreground())
}

func (d *Daemon) offerFocus(ev domain.FocusEvent) {
	select {
	case d.focusCh <- ev:
		return
	default:
	}
	d.droppedFocus.Add(1)
	select {
	case <-d.focusCh:
	default:
	}
	select {
	case d.focusCh <- ev:
	default:
	}
}

func (d *Daemon) offerClick(ev domain.ClickEvent) {
	select {
	case d.clickCh <- ev:
		return
	default:
	}
	d.droppedClick.Add(1)
	select {
	case <-d.clickCh:
	default:
	}
	select {
	case d.clickCh <- ev:
	default:
	}
}

func (d *Daemon) offerKey(ev domain.KeyEvent) {
	select {
	case d.keyCh <- ev:
		return
	default:
	}
	d.droppedKey.Add(1)
	select {
	case <-d.keyCh:
	default:
	}
	select {
	case d.keyCh <- ev:
	default:
	}
}
