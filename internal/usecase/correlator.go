package usecase

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

const defaultMaxAncestorHops = 8

// Correlator decides whether a focus change was caused by the most recent
// pointer press. All four checks must pass: a cached click exists, the click
// came from a pointer device, the clicked window and the focused window are
// the same or related by ancestry, and the click position lies inside the
// focused element's bounds.
type Correlator struct {
	tree    domain.WindowTree
	maxHops int
	logger  *zap.Logger
}

// NewCorrelator creates a click/focus correlator.
func NewCorrelator(tree domain.WindowTree, logger *zap.Logger) *Correlator {
	return &Correlator{
		tree:    tree,
		maxHops: defaultMaxAncestorHops,
		logger:  logger,
	}
}

// Correlate reports whether the cached click plausibly caused focus to land
// on the target element. A nil click means no pointer press has been seen.
func (c *Correlator) Correlate(click *domain.CachedClick, target domain.ElementDescriptor) bool {
	if click == nil {
		c.logger.Debug("correlation failed: no cached click")
		return false
	}

	// Keyboard presses never validate a focus change; unknown is allowed
	// because the click arrived through the pointer hook.
	if click.Click.Device != domain.DeviceUnknown && !click.Click.Device.IsPointer() {
		c.logger.Debug("correlation failed: non-pointer device",
			zap.String("device", click.Click.Device.String()))
		return false
	}

	if !c.related(click.WindowUnderPoint, target.Window) {
		c.logger.Debug("correlation failed: unrelated windows",
			zap.Uintptr("clicked", uintptr(click.WindowUnderPoint)),
			zap.Uintptr("focused", uintptr(target.Window)))
		return false
	}

	if !target.Bounds.Contains(click.Click.Position) {
		c.logger.Debug("correlation failed: click outside element bounds",
			zap.Int32("x", click.Click.Position.X),
			zap.Int32("y", click.Click.Position.Y))
		return false
	}

	return true
}

// related reports whether a and b are the same window or connected through
// the parent/owner chain within a bounded number of hops. Siblings share an
// ancestor but neither contains the other, so they do not relate.
func (c *Correlator) related(a, b domain.Handle) bool {
	if a == domain.NoHandle || b == domain.NoHandle {
		return false
	}
	if a == b {
		return true
	}
	return c.ancestorOf(b, a) || c.ancestorOf(a, b)
}

// ancestorOf walks child's parent/owner chain looking for ancestor.
func (c *Correlator) ancestorOf(ancestor, child domain.Handle) bool {
	cur := child
	for hop := 0; hop < c.maxHops; hop++ {
		cur = c.tree.Parent(cur)
		if cur == domain.NoHandle {
			return false
		}
		if cur == ancestor {
			return true
		}
	}
	return false
}
