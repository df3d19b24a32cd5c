package usecase

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// EngineConfig holds decision engine tunables.
type EngineConfig struct {
	// CorrelateHardware runs the click correlator even for confirmed
	// hardware input, rejecting focus changes that do not match the click.
	CorrelateHardware bool
	// AcceptUnavailable lets events with an unavailable source verdict
	// through when the correlator confirms them. When false such events
	// are dropped outright.
	AcceptUnavailable bool
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CorrelateHardware: true,
		AcceptUnavailable: true,
	}
}

// Engine turns raw focus and click events into show/ignore decisions.
// It owns the last-click slot: written on every pointer press, read when a
// focus change needs click confirmation. The slot is guarded by a mutex
// because clicks and focus changes arrive on different OS callback threads.
type Engine struct {
	inspector  *Inspector
	source     domain.InputSourceProvider
	correlator *Correlator
	tree       domain.WindowTree
	renderer   domain.PanelRenderer
	logger     *zap.Logger

	mu       sync.Mutex
	cfg      EngineConfig
	last     domain.CachedClick
	hasClick bool
	sink     func(domain.Decision)
}

// NewEngine creates a decision engine.
func NewEngine(
	cfg EngineConfig,
	inspector *Inspector,
	source domain.InputSourceProvider,
	correlator *Correlator,
	tree domain.WindowTree,
	renderer domain.PanelRenderer,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		inspector:  inspector,
		source:     source,
		correlator: correlator,
		tree:       tree,
		renderer:   renderer,
		logger:     logger,
		cfg:        cfg,
	}
}

// SetDecisionSink registers the callback receiving emitted decisions.
func (e *Engine) SetDecisionSink(fn func(domain.Decision)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = fn
}

// SetConfig swaps the engine tunables, used on settings reload.
func (e *Engine) SetConfig(cfg EngineConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
}

// OnClick records a pointer press into the last-click slot and, when the
// panel is hidden, evaluates the element under the click point. This covers
// re-clicking an already focused field, which raises no focus event.
func (e *Engine) OnClick(ev domain.ClickEvent) {
	under := e.tree.WindowAtPoint(ev.Position)
	if under != domain.NoHandle && under == e.renderer.Handle() {
		return
	}

	e.mu.Lock()
	e.last = domain.CachedClick{Click: ev, WindowUnderPoint: under}
	e.hasClick = true
	click := e.last
	e.mu.Unlock()

	if e.renderer.IsVisible() {
		return
	}

	insp, err := e.inspector.DescribeAtPoint(ev.Position)
	if err != nil {
		e.logger.Debug("click target not describable", zap.Error(err))
		return
	}

	e.evaluate(&click, insp, true)
}

// OnFocus evaluates a focus change. Focus landing on the panel itself and
// focus changes while the panel is already visible are ignored.
func (e *Engine) OnFocus(ev domain.FocusEvent) {
	if ev.Window != domain.NoHandle && ev.Window == e.renderer.Handle() {
		return
	}
	if e.renderer.IsVisible() {
		return
	}

	click := e.snapshotClick()

	insp, err := e.inspector.Describe(ev.Window, ev.ObjectID, ev.ChildID)
	if err != nil {
		e.logger.Debug("focus target not describable",
			zap.Uintptr("hwnd", uintptr(ev.Window)),
			zap.Error(err))
		return
	}

	e.evaluate(click, insp, false)
}

// snapshotClick copies the click slot out under the lock. The inspector and
// correlator are never called while the lock is held.
func (e *Engine) snapshotClick() *domain.CachedClick {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasClick {
		return nil
	}
	click := e.last
	return &click
}

func (e *Engine) evaluate(click *domain.CachedClick, insp *Inspection, directClick bool) {
	trace := uuid.NewString()
	log := e.logger.With(
		zap.String("trace", trace),
		zap.Bool("direct_click", directClick),
		zap.String("process", insp.Descriptor.ProcessName),
		zap.String("class", insp.Descriptor.ClassName),
		zap.String("rule", insp.Rule),
	)

	if !insp.TextInput {
		log.Debug("non-text element focused")
		e.emit(domain.Decision{
			Kind:       domain.NonTextInputFocused,
			Descriptor: insp.Descriptor,
			Trace:      trace,
		})
		return
	}

	cfg := e.currentConfig()
	verdict := e.source.CurrentSource()

	switch verdict.Origin {
	case domain.SourceInjected, domain.SourceSystem:
		log.Debug("dropping synthetic input", zap.String("origin", verdict.Origin.String()))
		return

	case domain.SourceHardware:
		if !verdict.Device.IsPointer() {
			log.Debug("dropping non-pointer hardware input",
				zap.String("device", verdict.Device.String()))
			return
		}
		if cfg.CorrelateHardware && !e.correlator.Correlate(click, insp.Descriptor) {
			log.Debug("hardware input failed click correlation")
			return
		}

	case domain.SourceUnavailable:
		if !cfg.AcceptUnavailable {
			log.Debug("dropping event with unavailable source")
			return
		}
		if !e.correlator.Correlate(click, insp.Descriptor) {
			log.Debug("unconfirmed event failed click correlation")
			return
		}
	}

	log.Info("text input focused",
		zap.String("role", insp.Descriptor.Role.String()),
		zap.String("origin", verdict.Origin.String()))
	e.emit(domain.Decision{
		Kind:       domain.TextInputFocused,
		Descriptor: insp.Descriptor,
		Trace:      trace,
	})
}

func (e *Engine) currentConfig() EngineConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) emit(d domain.Decision) {
	e.mu.Lock()
	sink := e.sink
	e.mu.Unlock()
	if sink != nil {
		sink(d)
	}
}
