package usecase

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
	"github.com/eliteGoblin/panelmon/internal/policy"
)

// PreserverConfig holds focus preservation tunables.
type PreserverConfig struct {
	// ZOrderHops bounds the backward Z-order walk when the foreground
	// window at show time is not a usable restore target.
	ZOrderHops int
	// VerifyDelay is how long to wait after a foreground-set call before
	// reading back the actual foreground window.
	VerifyDelay time.Duration
}

// DefaultPreserverConfig returns the default preservation configuration.
func DefaultPreserverConfig() PreserverConfig {
	return PreserverConfig{
		ZOrderHops:  32,
		VerifyDelay: 15 * time.Millisecond,
	}
}

// Preserver remembers which application window held focus before the panel
// appeared and puts focus back afterwards. It keeps two slots: the window
// saved for the current show cycle, and the last legitimate foreground
// window seen at any point, used as a fallback when show time catches a
// system window in the foreground.
type Preserver struct {
	cfg      PreserverConfig
	tree     domain.WindowTree
	fg       domain.ForegroundController
	renderer domain.PanelRenderer
	filter   *policy.Filter
	procs    domain.ProcessResolver
	logger   *zap.Logger

	mu        sync.Mutex
	saved     domain.Handle
	lastValid domain.Handle
}

// NewPreserver creates a focus preservation manager.
func NewPreserver(
	cfg PreserverConfig,
	tree domain.WindowTree,
	fg domain.ForegroundController,
	renderer domain.PanelRenderer,
	filter *policy.Filter,
	procs domain.ProcessResolver,
	logger *zap.Logger,
) *Preserver {
	return &Preserver{
		cfg:      cfg,
		tree:     tree,
		fg:       fg,
		renderer: renderer,
		filter:   filter,
		procs:    procs,
		logger:   logger,
	}
}

// ObserveForeground refreshes the fallback slot whenever a legitimate
// application window is seen holding focus.
func (p *Preserver) ObserveForeground(h domain.Handle) {
	if !p.isLegitimate(h) {
		return
	}
	p.mu.Lock()
	p.lastValid = h
	p.mu.Unlock()
}

// OnAboutToShow captures the window focus should return to after the panel
// is dismissed. Runs before the panel becomes visible, while the real
// foreground is still observable.
func (p *Preserver) OnAboutToShow() {
	current := p.fg.Foreground()

	target := domain.NoHandle
	stage := ""
	switch {
	case p.isLegitimate(current):
		target, stage = current, "foreground"
	default:
		if t := p.cachedFallback(); t != domain.NoHandle {
			target, stage = t, "cache"
		} else if t := p.searchZOrder(current); t != domain.NoHandle {
			target, stage = t, "zorder"
		} else if t := p.searchEnumerated(true); t != domain.NoHandle {
			target, stage = t, "enumerated"
		} else if t := p.searchEnumerated(false); t != domain.NoHandle {
			target, stage = t, "any"
		}
	}

	p.mu.Lock()
	p.saved = target
	if target != domain.NoHandle {
		p.lastValid = target
	}
	p.mu.Unlock()

	if target == domain.NoHandle {
		p.logger.Warn("no restore target found before show")
		return
	}
	p.logger.Debug("saved foreground window",
		zap.Uintptr("hwnd", uintptr(target)),
		zap.String("via", stage))
}

// OnHide refreshes the fallback slot from the current foreground and clears
// the per-cycle slot. Keeps the cache warm even when the panel stays hidden
// while the user switches applications.
func (p *Preserver) OnHide() {
	current := p.fg.Foreground()
	legit := p.isLegitimate(current)

	p.mu.Lock()
	if legit {
		p.lastValid = current
	}
	p.saved = domain.NoHandle
	p.mu.Unlock()
}

// Restore puts the saved window back in the foreground. Tier one is a plain
// foreground-set call; when the OS rejects it, tier two attaches our input
// queue to the target's thread first. Returns true only when the foreground
// actually changed to the saved window.
func (p *Preserver) Restore() bool {
	p.mu.Lock()
	saved := p.saved
	p.mu.Unlock()

	if saved == domain.NoHandle {
		return false
	}
	if !p.tree.IsWindow(saved) {
		p.logger.Debug("saved window no longer exists",
			zap.Uintptr("hwnd", uintptr(saved)))
		p.Clear()
		return false
	}
	if p.fg.Foreground() == saved {
		return true
	}

	if p.fg.SetForeground(saved) && p.verify(saved) {
		return true
	}

	release, err := p.fg.AttachInput(saved)
	if err != nil {
		p.logger.Warn("input queue attach failed",
			zap.Uintptr("hwnd", uintptr(saved)),
			zap.Error(err))
		return false
	}
	defer release()

	if err := p.fg.BringToTop(saved); err != nil {
		p.logger.Debug("bring to top failed", zap.Error(err))
	}
	p.fg.SetForeground(saved)
	if p.verify(saved) {
		return true
	}

	p.logger.Warn("foreground restore did not take effect",
		zap.Uintptr("hwnd", uintptr(saved)),
		zap.Uintptr("actual", uintptr(p.fg.Foreground())))
	return false
}

// HasValidSavedWindow reports whether a live restore target is saved.
func (p *Preserver) HasValidSavedWindow() bool {
	p.mu.Lock()
	saved := p.saved
	p.mu.Unlock()
	return saved != domain.NoHandle && p.tree.IsWindow(saved)
}

// Clear drops the saved restore target.
func (p *Preserver) Clear() {
	p.mu.Lock()
	p.saved = domain.NoHandle
	p.mu.Unlock()
}

func (p *Preserver) verify(want domain.Handle) bool {
	if p.cfg.VerifyDelay > 0 {
		time.Sleep(p.cfg.VerifyDelay)
	}
	return p.fg.Foreground() == want
}

func (p *Preserver) cachedFallback() domain.Handle {
	p.mu.Lock()
	h := p.lastValid
	p.mu.Unlock()
	if p.isLegitimate(h) {
		return h
	}
	return domain.NoHandle
}

// isLegitimate reports whether h is a window worth restoring focus to: a
// live, visible, non-blacklisted window other than the panel itself.
func (p *Preserver) isLegitimate(h domain.Handle) bool {
	if h == domain.NoHandle || h == p.renderer.Handle() {
		return false
	}
	if !p.tree.IsWindow(h) || !p.tree.IsVisible(h) {
		return false
	}
	class, err := p.tree.ClassName(h)
	if err != nil || p.filter.IsClassBlocked(class) {
		return false
	}
	pid, err := p.tree.ProcessID(h)
	if err != nil {
		return false
	}
	name, err := p.procs.Name(pid)
	if err != nil || p.filter.IsProcessBlocked(name) {
		return false
	}
	return true
}

// searchZOrder walks backward through the top-level Z-order starting below
// the given window, preferring a titled restore target over an untitled one.
func (p *Preserver) searchZOrder(from domain.Handle) domain.Handle {
	start := from
	if start == domain.NoHandle || !p.tree.IsWindow(start) {
		start = p.tree.TopWindow()
		if p.isLegitimate(start) && p.tree.Title(start) != "" {
			return start
		}
	}

	untitled := domain.NoHandle
	cur := start
	for hop := 0; hop < p.cfg.ZOrderHops && cur != domain.NoHandle; hop++ {
		cur = p.tree.BelowInZOrder(cur)
		if cur == domain.NoHandle {
			break
		}
		if !p.isLegitimate(cur) {
			continue
		}
		if p.tree.Title(cur) != "" {
			return cur
		}
		if untitled == domain.NoHandle {
			untitled = cur
		}
	}
	return untitled
}

// searchEnumerated scans all top-level windows for a restore target.
func (p *Preserver) searchEnumerated(requireTitle bool) domain.Handle {
	for _, h := range p.tree.EnumTopLevel() {
		if !p.isLegitimate(h) {
			continue
		}
		if requireTitle && p.tree.Title(h) == "" {
			continue
		}
		return h
	}
	return domain.NoHandle
}
