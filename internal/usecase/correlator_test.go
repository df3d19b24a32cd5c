package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

func click(window domain.Handle, x, y int32, device domain.DeviceType) *domain.CachedClick {
	return &domain.CachedClick{
		Click: domain.ClickEvent{
			Position: domain.Point{X: x, Y: y},
			Window:   window,
			Device:   device,
		},
		WindowUnderPoint: window,
	}
}

func target(window domain.Handle) domain.ElementDescriptor {
	return domain.ElementDescriptor{
		Window: window,
		Bounds: domain.Rect{Left: 90, Top: 90, Right: 130, Bottom: 110},
	}
}

// TestCorrelate_NoCachedClick verifies rejection without a prior click
func TestCorrelate_NoCachedClick(t *testing.T) {
	c := NewCorrelator(newMockTree(), zap.NewNop())

	assert.False(t, c.Correlate(nil, target(101)))
}

// TestCorrelate_SameWindowInsideBounds verifies the accepting case
func TestCorrelate_SameWindowInsideBounds(t *testing.T) {
	tree := newMockTree()
	tree.add(101, mockWindow{visible: true})
	c := NewCorrelator(tree, zap.NewNop())

	assert.True(t, c.Correlate(click(101, 100, 100, domain.DeviceMouse), target(101)))
}

// TestCorrelate_KeyboardDeviceRejected verifies non-pointer devices fail
func TestCorrelate_KeyboardDeviceRejected(t *testing.T) {
	tree := newMockTree()
	tree.add(101, mockWindow{visible: true})
	c := NewCorrelator(tree, zap.NewNop())

	assert.False(t, c.Correlate(click(101, 100, 100, domain.DeviceKeyboard), target(101)))
}

// TestCorrelate_UnknownDeviceTreatedAsPointer verifies unknown passes the device check
func TestCorrelate_UnknownDeviceTreatedAsPointer(t *testing.T) {
	tree := newMockTree()
	tree.add(101, mockWindow{visible: true})
	c := NewCorrelator(tree, zap.NewNop())

	assert.True(t, c.Correlate(click(101, 100, 100, domain.DeviceUnknown), target(101)))
}

// TestCorrelate_ClickOutsideBounds verifies the position check
func TestCorrelate_ClickOutsideBounds(t *testing.T) {
	tree := newMockTree()
	tree.add(101, mockWindow{visible: true})
	c := NewCorrelator(tree, zap.NewNop())

	assert.False(t, c.Correlate(click(101, 10, 10, domain.DeviceMouse), target(101)))
}

// TestCorrelate_AncestorRelation verifies parent and child windows relate both ways
func TestCorrelate_AncestorRelation(t *testing.T) {
	tree := newMockTree()
	tree.add(100, mockWindow{visible: true})
	tree.add(101, mockWindow{visible: true, parent: 100})
	c := NewCorrelator(tree, zap.NewNop())

	assert.True(t, c.Correlate(click(100, 100, 100, domain.DeviceMouse), target(101)))
	assert.True(t, c.Correlate(click(101, 100, 100, domain.DeviceMouse), target(100)))
}

// TestCorrelate_SiblingsRejected verifies sibling windows never relate
func TestCorrelate_SiblingsRejected(t *testing.T) {
	tree := newMockTree()
	tree.add(100, mockWindow{visible: true})
	tree.add(101, mockWindow{visible: true, parent: 100})
	tree.add(102, mockWindow{visible: true, parent: 100})
	c := NewCorrelator(tree, zap.NewNop())

	assert.False(t, c.Correlate(click(101, 100, 100, domain.DeviceMouse), target(102)))
}

// TestCorrelate_DeepChainWithinHops verifies ancestry across several hops
func TestCorrelate_DeepChainWithinHops(t *testing.T) {
	tree := newMockTree()
	tree.add(100, mockWindow{visible: true})
	for i := domain.Handle(101); i <= 104; i++ {
		tree.add(i, mockWindow{visible: true, parent: i - 1})
	}
	c := NewCorrelator(tree, zap.NewNop())

	assert.True(t, c.Correlate(click(100, 100, 100, domain.DeviceMouse), target(104)))
}

// TestCorrelate_HopLimitBoundsWalk verifies pathological chains give up
func TestCorrelate_HopLimitBoundsWalk(t *testing.T) {
	tree := newMockTree()
	tree.add(100, mockWindow{visible: true})
	for i := domain.Handle(101); i <= 120; i++ {
		tree.add(i, mockWindow{visible: true, parent: i - 1})
	}
	c := NewCorrelator(tree, zap.NewNop())

	assert.False(t, c.Correlate(click(100, 100, 100, domain.DeviceMouse), target(120)))
}

// TestCorrelate_MissingHandles verifies zero handles reject
func TestCorrelate_MissingHandles(t *testing.T) {
	tree := newMockTree()
	tree.add(101, mockWindow{visible: true})
	c := NewCorrelator(tree, zap.NewNop())

	noWindow := click(domain.NoHandle, 100, 100, domain.DeviceMouse)
	assert.False(t, c.Correlate(noWindow, target(101)))
	assert.False(t, c.Correlate(click(101, 100, 100, domain.DeviceMouse), target(domain.NoHandle)))
}
