package usecase

import (
	"errors"
	"time"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// mockWindow is one window known to the mock tree.
type mockWindow struct {
	class   string
	title   string
	pid     int32
	visible bool
	parent  domain.Handle
}

// mockTree implements domain.WindowTree for testing.
type mockTree struct {
	windows   map[domain.Handle]*mockWindow
	atPoint   domain.Handle
	zorder    []domain.Handle // topmost first
	enumerate []domain.Handle // EnumTopLevel result; falls back to zorder
	classErr  map[domain.Handle]error
}

func newMockTree() *mockTree {
	return &mockTree{
		windows:  make(map[domain.Handle]*mockWindow),
		classErr: make(map[domain.Handle]error),
	}
}

func (m *mockTree) add(h domain.Handle, w mockWindow) {
	m.windows[h] = &w
}

func (m *mockTree) IsWindow(h domain.Handle) bool {
	_, ok := m.windows[h]
	return ok
}

func (m *mockTree) IsVisible(h domain.Handle) bool {
	w, ok := m.windows[h]
	return ok && w.visible
}

func (m *mockTree) ClassName(h domain.Handle) (string, error) {
	if err := m.classErr[h]; err != nil {
		return "", err
	}
	w, ok := m.windows[h]
	if !ok {
		return "", errors.New("invalid window handle")
	}
	return w.class, nil
}

func (m *mockTree) Title(h domain.Handle) string {
	if w, ok := m.windows[h]; ok {
		return w.title
	}
	return ""
}

func (m *mockTree) ProcessID(h domain.Handle) (int32, error) {
	w, ok := m.windows[h]
	if !ok {
		return 0, errors.New("invalid window handle")
	}
	return w.pid, nil
}

func (m *mockTree) Parent(h domain.Handle) domain.Handle {
	if w, ok := m.windows[h]; ok {
		return w.parent
	}
	return domain.NoHandle
}

func (m *mockTree) WindowAtPoint(pt domain.Point) domain.Handle {
	return m.atPoint
}

func (m *mockTree) BelowInZOrder(h domain.Handle) domain.Handle {
	for i, cur := range m.zorder {
		if cur == h && i+1 < len(m.zorder) {
			return m.zorder[i+1]
		}
	}
	return domain.NoHandle
}

func (m *mockTree) TopWindow() domain.Handle {
	if len(m.zorder) == 0 {
		return domain.NoHandle
	}
	return m.zorder[0]
}

func (m *mockTree) EnumTopLevel() []domain.Handle {
	if m.enumerate != nil {
		return m.enumerate
	}
	return m.zorder
}

// mockAccess implements domain.AccessibilityProvider for testing.
type mockAccess struct {
	elem       domain.AccessibleElement
	elemErr    error
	pointElem  domain.AccessibleElement
	pointErr   error
	eventCalls int
	pointCalls int
}

func (m *mockAccess) ElementFromEvent(window domain.Handle, objectID, childID int32) (domain.AccessibleElement, error) {
	m.eventCalls++
	if m.elemErr != nil {
		return domain.AccessibleElement{}, m.elemErr
	}
	return m.elem, nil
}

func (m *mockAccess) ElementAtPoint(pt domain.Point) (domain.AccessibleElement, error) {
	m.pointCalls++
	if m.pointErr != nil {
		return domain.AccessibleElement{}, m.pointErr
	}
	return m.pointElem, nil
}

// mockProcs implements domain.ProcessResolver for testing.
type mockProcs struct {
	names map[int32]string
	alive map[int32]bool
}

func (m *mockProcs) Name(pid int32) (string, error) {
	if name, ok := m.names[pid]; ok {
		return name, nil
	}
	return "", errors.New("no such process")
}

func (m *mockProcs) Alive(pid int32) bool {
	return m.alive[pid]
}

// mockSource implements domain.InputSourceProvider for testing. Verdicts
// are consumed in order; once exhausted the fallback is returned.
type mockSource struct {
	verdicts []domain.InputSourceVerdict
	fallback domain.InputSourceVerdict
}

func (m *mockSource) CurrentSource() domain.InputSourceVerdict {
	if len(m.verdicts) > 0 {
		v := m.verdicts[0]
		m.verdicts = m.verdicts[1:]
		return v
	}
	return m.fallback
}

// mockRenderer implements domain.PanelRenderer for testing. When stealFocus
// is set, showing the panel moves the foreground to the panel window,
// mimicking a renderer that activates on show.
type mockRenderer struct {
	visible    bool
	handle     domain.Handle
	showCalls  []bool
	hideCalls  int
	scale      float64
	stealFocus *mockForeground
}

func (m *mockRenderer) Show(activate bool) {
	m.showCalls = append(m.showCalls, activate)
	m.visible = true
	if m.stealFocus != nil {
		m.stealFocus.foreground = m.handle
	}
}

func (m *mockRenderer) Hide() {
	m.hideCalls++
	m.visible = false
}

func (m *mockRenderer) IsVisible() bool {
	return m.visible
}

func (m *mockRenderer) Handle() domain.Handle {
	return m.handle
}

func (m *mockRenderer) ApplyScale(scale float64) {
	m.scale = scale
}

// mockForeground implements domain.ForegroundController for testing.
type mockForeground struct {
	foreground   domain.Handle
	rejectDirect bool // SetForeground fails unless input queues are attached
	rejectAll    bool // SetForeground always fails
	claimSuccess bool // SetForeground reports success without effect
	attachErr    error
	attached     bool
	setCalls     []domain.Handle
	bringCalls   []domain.Handle
	attachCalls  []domain.Handle
	releaseCount int
}

func (m *mockForeground) Foreground() domain.Handle {
	return m.foreground
}

func (m *mockForeground) SetForeground(h domain.Handle) bool {
	m.setCalls = append(m.setCalls, h)
	if m.claimSuccess {
		return true
	}
	if m.rejectAll {
		return false
	}
	if m.rejectDirect && !m.attached {
		return false
	}
	m.foreground = h
	return true
}

func (m *mockForeground) BringToTop(h domain.Handle) error {
	m.bringCalls = append(m.bringCalls, h)
	return nil
}

func (m *mockForeground) AttachInput(target domain.Handle) (func(), error) {
	m.attachCalls = append(m.attachCalls, target)
	if m.attachErr != nil {
		return nil, m.attachErr
	}
	m.attached = true
	return func() {
		m.attached = false
		m.releaseCount++
	}, nil
}

// fakeClock provides a controllable time source for testing.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}
