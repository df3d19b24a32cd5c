package infra

import (
	"fmt"
	"sync"
	"time"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// SimWindow describes one window in a simulated desktop.
type SimWindow struct {
	Handle   domain.Handle
	Class    string
	Title    string
	PID      int32
	Visible  bool
	Parent   domain.Handle
	TopLevel bool
	Bounds   domain.Rect
}

// SimulatedDesktop implements domain.WindowTree and
// domain.ForegroundController over an in-memory window set. Used by
// simulate mode and the integration suite.
type SimulatedDesktop struct {
	mu         sync.Mutex
	windows    map[domain.Handle]*SimWindow
	zorder     []domain.Handle // top-level only, topmost first
	foreground domain.Handle
	denyDirect bool
	attached   bool
}

// NewSimulatedDesktop creates an empty simulated desktop.
func NewSimulatedDesktop() *SimulatedDesktop {
	return &SimulatedDesktop{
		windows: make(map[domain.Handle]*SimWindow),
	}
}

// AddWindow places a window on the desktop. Top-level windows enter the
// Z-order topmost.
func (d *SimulatedDesktop) AddWindow(w SimWindow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	win := w
	d.windows[w.Handle] = &win
	if w.TopLevel {
		d.zorder = append([]domain.Handle{w.Handle}, d.zorder...)
	}
}

// RemoveWindow destroys a window.
func (d *SimulatedDesktop) RemoveWindow(h domain.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.windows, h)
	for i, cur := range d.zorder {
		if cur == h {
			d.zorder = append(d.zorder[:i], d.zorder[i+1:]...)
			break
		}
	}
	if d.foreground == h {
		d.foreground = domain.NoHandle
	}
}

// DenyDirectForeground makes SetForeground fail unless input queues are
// attached, mimicking the OS foreground lock.
func (d *SimulatedDesktop) DenyDirectForeground(deny bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denyDirect = deny
}

func (d *SimulatedDesktop) IsWindow(h domain.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.windows[h]
	return ok
}

func (d *SimulatedDesktop) IsVisible(h domain.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[h]
	return ok && w.Visible
}

func (d *SimulatedDesktop) ClassName(h domain.Handle) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[h]
	if !ok {
		return "", fmt.Errorf("invalid window handle %#x", uintptr(h))
	}
	return w.Class, nil
}

func (d *SimulatedDesktop) Title(h domain.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[h]; ok {
		return w.Title
	}
	return ""
}

func (d *SimulatedDesktop) ProcessID(h domain.Handle) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[h]
	if !ok {
		return 0, fmt.Errorf("invalid window handle %#x", uintptr(h))
	}
	return w.PID, nil
}

func (d *SimulatedDesktop) Parent(h domain.Handle) domain.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[h]; ok {
		return w.Parent
	}
	return domain.NoHandle
}

// WindowAtPoint hit-tests topmost first, descending into child windows.
func (d *SimulatedDesktop) WindowAtPoint(pt domain.Point) domain.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range d.zorder {
		w := d.windows[h]
		if w == nil || !w.Visible || !w.Bounds.Contains(pt) {
			continue
		}
		return d.descendAtPoint(h, pt)
	}
	return domain.NoHandle
}

// descendAtPoint returns the deepest visible child containing pt.
func (d *SimulatedDesktop) descendAtPoint(parent domain.Handle, pt domain.Point) domain.Handle {
	for h, w := range d.windows {
		if w.Parent == parent && w.Visible && w.Bounds.Contains(pt) {
			return d.descendAtPoint(h, pt)
		}
	}
	return parent
}

func (d *SimulatedDesktop) BelowInZOrder(h domain.Handle) domain.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.zorder {
		if cur == h && i+1 < len(d.zorder) {
			return d.zorder[i+1]
		}
	}
	return domain.NoHandle
}

func (d *SimulatedDesktop) TopWindow() domain.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.zorder) == 0 {
		return domain.NoHandle
	}
	return d.zorder[0]
}

func (d *SimulatedDesktop) EnumTopLevel() []domain.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Handle, len(d.zorder))
	copy(out, d.zorder)
	return out
}

func (d *SimulatedDesktop) Foreground() domain.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.foreground
}

func (d *SimulatedDesktop) SetForeground(h domain.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.windows[h]; !ok {
		return false
	}
	if d.denyDirect && !d.attached {
		return false
	}
	d.foreground = h
	return true
}

// ForceForeground moves focus unconditionally, modeling an activation the
// OS performs itself, such as a window grabbing focus as it appears.
func (d *SimulatedDesktop) ForceForeground(h domain.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.foreground = h
}

func (d *SimulatedDesktop) BringToTop(h domain.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.windows[h]; !ok {
		return fmt.Errorf("invalid window handle %#x", uintptr(h))
	}
	for i, cur := range d.zorder {
		if cur == h {
			d.zorder = append(d.zorder[:i], d.zorder[i+1:]...)
			d.zorder = append([]domain.Handle{h}, d.zorder...)
			break
		}
	}
	return nil
}

func (d *SimulatedDesktop) AttachInput(target domain.Handle) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.windows[target]; !ok {
		return nil, fmt.Errorf("invalid window handle %#x", uintptr(target))
	}
	d.attached = true
	return func() {
		d.mu.Lock()
		d.attached = false
		d.mu.Unlock()
	}, nil
}

// Ensure SimulatedDesktop implements the window interfaces.
var (
	_ domain.WindowTree           = (*SimulatedDesktop)(nil)
	_ domain.ForegroundController = (*SimulatedDesktop)(nil)
)

// SimulatedAccessibility implements domain.AccessibilityProvider over
// per-window elements registered by tests or simulate mode.
type SimulatedAccessibility struct {
	desktop *SimulatedDesktop

	mu       sync.Mutex
	elements map[domain.Handle]domain.AccessibleElement
}

// NewSimulatedAccessibility creates an accessibility provider hit-testing
// through the given desktop.
func NewSimulatedAccessibility(desktop *SimulatedDesktop) *SimulatedAccessibility {
	return &SimulatedAccessibility{
		desktop:  desktop,
		elements: make(map[domain.Handle]domain.AccessibleElement),
	}
}

// SetElement registers the element a window resolves to.
func (a *SimulatedAccessibility) SetElement(h domain.Handle, elem domain.AccessibleElement) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.elements[h] = elem
}

func (a *SimulatedAccessibility) ElementFromEvent(window domain.Handle, objectID, childID int32) (domain.AccessibleElement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	elem, ok := a.elements[window]
	if !ok {
		return domain.AccessibleElement{}, domain.ErrElementNotFound
	}
	return elem, nil
}

func (a *SimulatedAccessibility) ElementAtPoint(pt domain.Point) (domain.AccessibleElement, error) {
	window := a.desktop.WindowAtPoint(pt)
	if window == domain.NoHandle {
		return domain.AccessibleElement{}, domain.ErrElementNotFound
	}
	return a.ElementFromEvent(window, 0, 0)
}

// Ensure SimulatedAccessibility implements domain.AccessibilityProvider.
var _ domain.AccessibilityProvider = (*SimulatedAccessibility)(nil)

// SimulatedEventSource implements domain.EventSource with emit methods
// driving the subscribed callbacks synchronously.
type SimulatedEventSource struct {
	mu       sync.Mutex
	focusFns []func(domain.FocusEvent)
	clickFns []func(domain.ClickEvent)
	keyFns   []func(domain.KeyEvent)
	running  bool
	startErr error
	seq      uint64

	StartCount int
	StopCount  int
}

// NewSimulatedEventSource creates an event source with no subscribers.
func NewSimulatedEventSource() *SimulatedEventSource {
	return &SimulatedEventSource{}
}

// SetStartError makes the next Start fail, for hook-failure tests.
func (s *SimulatedEventSource) SetStartError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

func (s *SimulatedEventSource) SubscribeFocus(fn func(domain.FocusEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusFns = append(s.focusFns, fn)
}

func (s *SimulatedEventSource) SubscribePointerDown(fn func(domain.ClickEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clickFns = append(s.clickFns, fn)
}

func (s *SimulatedEventSource) SubscribeKeyDown(fn func(domain.KeyEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyFns = append(s.keyFns, fn)
}

func (s *SimulatedEventSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return domain.ErrAlreadyRunning
	}
	if s.startErr != nil {
		return s.startErr
	}
	s.running = true
	s.StartCount++
	return nil
}

func (s *SimulatedEventSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.StopCount++
	return nil
}

func (s *SimulatedEventSource) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// EmitFocus delivers a focus-change notification to subscribers.
func (s *SimulatedEventSource) EmitFocus(window domain.Handle, objectID, childID int32) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	fns := append([]func(domain.FocusEvent){}, s.focusFns...)
	s.mu.Unlock()

	ev := domain.FocusEvent{
		Window:    window,
		ObjectID:  objectID,
		ChildID:   childID,
		Timestamp: time.Now(),
	}
	for _, fn := range fns {
		fn(ev)
	}
}

// EmitClick delivers a pointer press to subscribers.
func (s *SimulatedEventSource) EmitClick(pt domain.Point, window domain.Handle, device domain.DeviceType) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	fns := append([]func(domain.ClickEvent){}, s.clickFns...)
	s.mu.Unlock()

	ev := domain.ClickEvent{
		Position:  pt,
		Window:    window,
		Device:    device,
		Timestamp: time.Now(),
		Sequence:  seq,
	}
	for _, fn := range fns {
		fn(ev)
	}
}

// EmitKey delivers a key press to subscribers.
func (s *SimulatedEventSource) EmitKey(vk uint32, injected bool) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	fns := append([]func(domain.KeyEvent){}, s.keyFns...)
	s.mu.Unlock()

	ev := domain.KeyEvent{
		VK:        vk,
		Injected:  injected,
		Timestamp: time.Now(),
	}
	for _, fn := range fns {
		fn(ev)
	}
}

// Ensure SimulatedEventSource implements domain.EventSource.
var _ domain.EventSource = (*SimulatedEventSource)(nil)

// SimulatedProcesses implements domain.ProcessResolver over a static pid
// table.
type SimulatedProcesses struct {
	mu    sync.Mutex
	names map[int32]string
}

// NewSimulatedProcesses creates an empty process table.
func NewSimulatedProcesses() *SimulatedProcesses {
	return &SimulatedProcesses{names: make(map[int32]string)}
}

// SetName registers a running process.
func (p *SimulatedProcesses) SetName(pid int32, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names[pid] = name
}

func (p *SimulatedProcesses) Name(pid int32) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name, ok := p.names[pid]
	if !ok {
		return "", fmt.Errorf("no process with pid %d", pid)
	}
	return name, nil
}

func (p *SimulatedProcesses) Alive(pid int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.names[pid]
	return ok
}

// Ensure SimulatedProcesses implements domain.ProcessResolver.
var _ domain.ProcessResolver = (*SimulatedProcesses)(nil)

// SimulatedInputSource implements domain.InputSourceProvider with a scripted
// verdict queue and a standing fallback.
type SimulatedInputSource struct {
	mu       sync.Mutex
	queue    []domain.InputSourceVerdict
	fallback domain.InputSourceVerdict
}

// NewSimulatedInputSource creates an input source returning fallback once
// the scripted queue drains.
func NewSimulatedInputSource(fallback domain.InputSourceVerdict) *SimulatedInputSource {
	return &SimulatedInputSource{fallback: fallback}
}

// Push appends verdicts consumed in order by CurrentSource.
func (s *SimulatedInputSource) Push(verdicts ...domain.InputSourceVerdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, verdicts...)
}

func (s *SimulatedInputSource) CurrentSource() domain.InputSourceVerdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		v := s.queue[0]
		s.queue = s.queue[1:]
		return v
	}
	return s.fallback
}

// Ensure SimulatedInputSource implements domain.InputSourceProvider.
var _ domain.InputSourceProvider = (*SimulatedInputSource)(nil)
