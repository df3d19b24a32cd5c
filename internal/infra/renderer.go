package infra

import (
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/panelmon/internal/domain"
)

// LogRenderer implements domain.PanelRenderer by logging transitions and
// tracking state. The daemon drives this surface until a real panel UI is
// attached; call counters are exposed for tests.
type LogRenderer struct {
	logger *zap.Logger

	mu        sync.Mutex
	handle    domain.Handle
	visible   bool
	scale     float64
	showCount int
	hideCount int
}

// NewLogRenderer creates a renderer without a native window.
func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return NewLogRendererWithHandle(logger, domain.NoHandle)
}

// NewLogRendererWithHandle creates a renderer that reports the given handle
// as its panel window (for testing panel-window exclusion).
func NewLogRendererWithHandle(logger *zap.Logger, handle domain.Handle) *LogRenderer {
	return &LogRenderer{
		logger: logger,
		handle: handle,
		scale:  1.0,
	}
}

// Show marks the panel visible.
func (r *LogRenderer) Show(activate bool) {
	r.mu.Lock()
	r.visible = true
	r.showCount++
	r.mu.Unlock()
	r.logger.Info("renderer: show", zap.Bool("activate", activate))
}

// Hide marks the panel hidden.
func (r *LogRenderer) Hide() {
	r.mu.Lock()
	r.visible = false
	r.hideCount++
	r.mu.Unlock()
	r.logger.Info("renderer: hide")
}

// IsVisible reports the tracked visibility.
func (r *LogRenderer) IsVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible
}

// Handle returns the panel window handle.
func (r *LogRenderer) Handle() domain.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// ApplyScale records the configured UI scale.
func (r *LogRenderer) ApplyScale(scale float64) {
	r.mu.Lock()
	r.scale = scale
	r.mu.Unlock()
	r.logger.Info("renderer: scale applied", zap.Float64("scale", scale))
}

// Scale returns the last applied scale.
func (r *LogRenderer) Scale() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scale
}

// ShowCount returns how many times Show ran.
func (r *LogRenderer) ShowCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showCount
}

// HideCount returns how many times Hide ran.
func (r *LogRenderer) HideCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hideCount
}

// Ensure LogRenderer implements domain.PanelRenderer.
var _ domain.PanelRenderer = (*LogRenderer)(nil)
