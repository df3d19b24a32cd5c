package usecase

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// ControllerConfig holds visibility controller tunables.
type ControllerConfig struct {
	// Debounce is the minimum interval between two auto-shows.
	Debounce time.Duration
	// SettleDelay is waited between showing the panel and restoring focus,
	// giving the renderer time to finish its show transition.
	SettleDelay time.Duration
	// TypingSuppress suppresses auto-show for this long after a hardware
	// key press. Zero disables the check.
	TypingSuppress time.Duration
}

// DefaultControllerConfig returns the default controller configuration.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Debounce:       300 * time.Millisecond,
		SettleDelay:    50 * time.Millisecond,
		TypingSuppress: 500 * time.Millisecond,
	}
}

// Controller drives panel visibility transitions. Auto-show requests come
// in as decisions from the engine; manual show/hide/toggle come from the
// panel's own UI. All transitions run on the daemon goroutine.
type Controller struct {
	renderer  domain.PanelRenderer
	preserver *Preserver
	logger    *zap.Logger
	now       func() time.Time

	mu            sync.Mutex
	cfg           ControllerConfig
	lastAutoShow  time.Time
	lastHardKey   time.Time
	heldModifiers map[uint32]bool
}

// NewController creates a visibility controller.
func NewController(
	cfg ControllerConfig,
	renderer domain.PanelRenderer,
	preserver *Preserver,
	logger *zap.Logger,
) *Controller {
	return NewControllerWithClock(cfg, renderer, preserver, logger, time.Now)
}

// NewControllerWithClock creates a controller with an injected clock,
// used by tests.
func NewControllerWithClock(
	cfg ControllerConfig,
	renderer domain.PanelRenderer,
	preserver *Preserver,
	logger *zap.Logger,
	now func() time.Time,
) *Controller {
	return &Controller{
		renderer:      renderer,
		preserver:     preserver,
		logger:        logger,
		now:           now,
		cfg:           cfg,
		heldModifiers: make(map[uint32]bool),
	}
}

// SetConfig swaps the controller tunables, used on settings reload.
func (c *Controller) SetConfig(cfg ControllerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

func (c *Controller) currentConfig() ControllerConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// IsVisible reports whether the panel is currently shown.
func (c *Controller) IsVisible() bool {
	return c.renderer.IsVisible()
}

// Show makes the panel visible. A show while already visible is a no-op, so
// the window saved on the first show survives. With preserveFocus the
// foreground window is saved before the panel appears and restored after a
// short settle delay.
func (c *Controller) Show(preserveFocus bool) {
	if c.renderer.IsVisible() {
		return
	}

	if preserveFocus {
		c.preserver.OnAboutToShow()
	}

	c.renderer.Show(false)

	settle := c.currentConfig().SettleDelay
	if settle > 0 {
		time.Sleep(settle)
	}

	if preserveFocus {
		if !c.preserver.Restore() {
			c.logger.Warn("focus not restored after show")
		}
	}

	c.logger.Info("panel shown", zap.Bool("preserve_focus", preserveFocus))
}

// Hide dismisses the panel. A hide while already hidden is a no-op. Any
// modifier keys tracked while the panel was up are reset so no modifier
// stays latched across show cycles.
func (c *Controller) Hide() {
	if !c.renderer.IsVisible() {
		return
	}

	c.mu.Lock()
	c.heldModifiers = make(map[uint32]bool)
	c.mu.Unlock()

	c.preserver.OnHide()
	c.renderer.Hide()

	c.logger.Info("panel hidden")
}

// Toggle flips panel visibility.
func (c *Controller) Toggle() {
	if c.renderer.IsVisible() {
		c.Hide()
	} else {
		c.Show(true)
	}
}

// HandleDecision reacts to one engine decision. Only TextInputFocused can
// trigger an auto-show; everything else is informational.
func (c *Controller) HandleDecision(d domain.Decision) {
	switch d.Kind {
	case domain.TextInputFocused:
		c.autoShow(d)
	case domain.NonTextInputFocused:
		c.logger.Debug("non-text focus, leaving panel alone",
			zap.String("trace", d.Trace),
			zap.String("process", d.Descriptor.ProcessName))
	}
}

// OnKeyDown tracks hardware typing for suppression and held modifier keys.
// Injected key presses, including the panel's own output, are ignored.
func (c *Controller) OnKeyDown(ev domain.KeyEvent) {
	if ev.Injected {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastHardKey = ev.Timestamp
	if domain.IsModifierVK(ev.VK) {
		c.heldModifiers[ev.VK] = true
	}
}

// HeldModifiers returns the modifier keys seen down since the last hide.
func (c *Controller) HeldModifiers() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]uint32, 0, len(c.heldModifiers))
	for vk := range c.heldModifiers {
		keys = append(keys, vk)
	}
	return keys
}

func (c *Controller) autoShow(d domain.Decision) {
	if c.renderer.IsVisible() {
		return
	}

	now := c.now()

	c.mu.Lock()
	cfg := c.cfg
	if cfg.Debounce > 0 && !c.lastAutoShow.IsZero() && now.Sub(c.lastAutoShow) < cfg.Debounce {
		c.mu.Unlock()
		c.logger.Debug("auto-show debounced", zap.String("trace", d.Trace))
		return
	}
	if cfg.TypingSuppress > 0 && !c.lastHardKey.IsZero() && now.Sub(c.lastHardKey) < cfg.TypingSuppress {
		c.mu.Unlock()
		c.logger.Debug("auto-show suppressed during typing", zap.String("trace", d.Trace))
		return
	}
	c.lastAutoShow = now
	c.mu.Unlock()

	c.logger.Info("auto-showing panel",
		zap.String("trace", d.Trace),
		zap.String("process", d.Descriptor.ProcessName),
		zap.String("class", d.Descriptor.ClassName))
	c.Show(true)
}
