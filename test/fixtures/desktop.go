// Package fixtures provides canned desktop scenes for integration tests.
package fixtures

import (
	"sync"
	"time"

	"github.com/eliteGoblin/panelmon/internal/domain"
	"github.com/eliteGoblin/panelmon/internal/infra"
)

// Window handles of the canned scene.
const (
	ToolbarWindow  = domain.Handle(0x1001)
	EditorWindow   = domain.Handle(0x1002)
	BrowserWindow  = domain.Handle(0x1003)
	ReadonlyWindow = domain.Handle(0x1004)
	SearchWindow   = domain.Handle(0x1005)
	PanelWindow    = domain.Handle(0x1F00)
)

// Click targets inside the scene's elements.
var (
	ToolbarButtonPoint = domain.Point{X: 300, Y: 40}
	EditorFieldPoint   = domain.Point{X: 300, Y: 230}
	BrowserFieldPoint  = domain.Point{X: 900, Y: 170}
	ReadonlyFieldPoint = domain.Point{X: 300, Y: 790}
	SearchFieldPoint   = domain.Point{X: 900, Y: 790}
)

// Scene is a simulated desktop with one window per classification case: an
// edit control, a browser render widget, a read-only rich edit, a toolbar
// button, and a text field owned by a blacklisted system process. The
// editor starts in the foreground.
type Scene struct {
	Desktop  *infra.SimulatedDesktop
	Access   *infra.SimulatedAccessibility
	Procs    *infra.SimulatedProcesses
	Source   *infra.SimulatedEventSource
	Input    *infra.SimulatedInputSource
	Renderer *PanelRenderer
}

// NewScene builds the canned desktop.
func NewScene() *Scene {
	desktop := infra.NewSimulatedDesktop()

	desktop.AddWindow(infra.SimWindow{
		Handle:   ToolbarWindow,
		Class:    "ToolbarWindow32",
		Title:    "",
		PID:      2001,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 0, Top: 0, Right: 600, Bottom: 80},
	})
	desktop.AddWindow(infra.SimWindow{
		Handle:   EditorWindow,
		Class:    "Edit",
		Title:    "notes.txt - Notepad",
		PID:      2001,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 0, Top: 80, Right: 600, Bottom: 700},
	})
	desktop.AddWindow(infra.SimWindow{
		Handle:   BrowserWindow,
		Class:    "Chrome_WidgetWin_1",
		Title:    "New Tab",
		PID:      2002,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 600, Top: 80, Right: 1280, Bottom: 700},
	})
	desktop.AddWindow(infra.SimWindow{
		Handle:   ReadonlyWindow,
		Class:    "RichEdit50W",
		Title:    "changelog (read only)",
		PID:      2003,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 0, Top: 700, Right: 600, Bottom: 900},
	})
	desktop.AddWindow(infra.SimWindow{
		Handle:   SearchWindow,
		Class:    "Windows.UI.Core.CoreWindow",
		Title:    "Search",
		PID:      2004,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 600, Top: 700, Right: 1280, Bottom: 900},
	})
	desktop.AddWindow(infra.SimWindow{
		Handle:   PanelWindow,
		Class:    "PanelHost",
		Title:    "Input Panel",
		PID:      2000,
		Visible:  true,
		TopLevel: true,
		Bounds:   domain.Rect{Left: 1280, Top: 0, Right: 1600, Bottom: 900},
	})
	desktop.ForceForeground(EditorWindow)

	access := infra.NewSimulatedAccessibility(desktop)
	access.SetElement(ToolbarWindow, domain.AccessibleElement{
		Role:      domain.RoleButton,
		Name:      "Save",
		Bounds:    domain.Rect{Left: 280, Top: 16, Right: 330, Bottom: 64},
		Focusable: true,
	})
	access.SetElement(EditorWindow, domain.AccessibleElement{
		Role:      domain.RoleText,
		Name:      "Text Editor",
		Bounds:    domain.Rect{Left: 40, Top: 200, Right: 560, Bottom: 260},
		Focusable: true,
		HasValue:  true,
	})
	access.SetElement(BrowserWindow, domain.AccessibleElement{
		Role:      domain.RoleText,
		Name:      "Address and search bar",
		Bounds:    domain.Rect{Left: 650, Top: 150, Right: 1230, Bottom: 190},
		Focusable: true,
		HasValue:  true,
	})
	access.SetElement(ReadonlyWindow, domain.AccessibleElement{
		Role:      domain.RoleText,
		Name:      "changelog",
		Bounds:    domain.Rect{Left: 40, Top: 760, Right: 560, Bottom: 820},
		Focusable: true,
		Readonly:  true,
		HasValue:  true,
	})
	access.SetElement(SearchWindow, domain.AccessibleElement{
		Role:      domain.RoleText,
		Name:      "Search box",
		Bounds:    domain.Rect{Left: 650, Top: 760, Right: 1230, Bottom: 820},
		Focusable: true,
		HasValue:  true,
	})

	procs := infra.NewSimulatedProcesses()
	procs.SetName(2000, "panelmon.exe")
	procs.SetName(2001, "notepad.exe")
	procs.SetName(2002, "chrome.exe")
	procs.SetName(2003, "viewer.exe")
	procs.SetName(2004, "searchhost.exe")

	return &Scene{
		Desktop:  desktop,
		Access:   access,
		Procs:    procs,
		Source:   infra.NewSimulatedEventSource(),
		Input:    infra.NewSimulatedInputSource(domain.InputSourceVerdict{}),
		Renderer: NewPanelRenderer(desktop, PanelWindow),
	}
}

// PressAndFocus emits a pointer press at pt followed by the focus event the
// press causes. The pause keeps press-before-focus ordering across the
// daemon's separate event queues.
func (s *Scene) PressAndFocus(pt domain.Point, win domain.Handle, dev domain.DeviceType) {
	s.Source.EmitClick(pt, win, dev)
	time.Sleep(50 * time.Millisecond)
	s.Source.EmitFocus(win, 0, 0)
}

// FocusOnly emits a focus event with no preceding pointer press, the shape
// of a programmatic focus change.
func (s *Scene) FocusOnly(win domain.Handle) {
	s.Source.EmitFocus(win, 0, 0)
}

// PanelRenderer is a domain.PanelRenderer backed by a scene window. Showing
// the panel moves foreground to the panel window, matching how a real panel
// window grabs activation as it appears.
type PanelRenderer struct {
	desktop *infra.SimulatedDesktop
	handle  domain.Handle

	mu      sync.Mutex
	visible bool
	scale   float64
	shows   int
	hides   int
}

// NewPanelRenderer creates a renderer over the given scene window.
func NewPanelRenderer(desktop *infra.SimulatedDesktop, handle domain.Handle) *PanelRenderer {
	return &PanelRenderer{desktop: desktop, handle: handle, scale: 1.0}
}

func (r *PanelRenderer) Show(activate bool) {
	r.mu.Lock()
	if !r.visible {
		r.visible = true
		r.shows++
	}
	r.mu.Unlock()
	r.desktop.ForceForeground(r.handle)
}

func (r *PanelRenderer) Hide() {
	r.mu.Lock()
	if r.visible {
		r.visible = false
		r.hides++
	}
	r.mu.Unlock()
}

func (r *PanelRenderer) IsVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

func (r *PanelRenderer) Handle() domain.Handle {
	return r.handle
}

func (r *PanelRenderer) ApplyScale(scale float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scale = scale
}

// Scale returns the last applied scale factor.
func (r *PanelRenderer) Scale() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scale
}

// ShowCount returns how many times the panel transitioned to visible.
func (r *PanelRenderer) ShowCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shows
}

// Ensure PanelRenderer implements domain.PanelRenderer.
var _ domain.PanelRenderer = (*PanelRenderer)(nil)
