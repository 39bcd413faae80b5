// Package overlay maintains the single hover-highlight box used for
// regions without a DOM wrapper, plus the hit-testing entry points the
// scope resolver leans on.
package overlay

import (
	"sync"

	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/index"
	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

// Style selects the visual treatment of the overlay box.
type Style string

const (
	StyleHidden Style = "hidden"
	StyleBox    Style = "box"
	StyleEdge   Style = "edge"
)

// State is the externally observable overlay snapshot, consumed by the
// rendering layer.
type State struct {
	Style Style
	Rect  dom.Rect
	Label string
}

// Engine owns one absolutely positioned overlay element.
type Engine struct {
	idx    *index.Service
	logger interfaces.Logger

	mu         sync.Mutex
	state      State
	suppressed bool
}

// New wires the overlay to the target index.
func New(idx *index.Service, provider interfaces.LoggerProvider) *Engine {
	return &Engine{
		idx:    idx,
		logger: logging.ModuleLogger(provider, "fronteditor.overlay"),
		state:  State{Style: StyleHidden},
	}
}

// ShowBox highlights the full rect.
func (e *Engine) ShowBox(rect dom.Rect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suppressed {
		return
	}
	e.state = State{Style: StyleBox, Rect: rect, Label: e.state.Label}
}

// ShowEdge highlights only the leading edge of the rect.
func (e *Engine) ShowEdge(rect dom.Rect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.suppressed {
		return
	}
	e.state = State{Style: StyleEdge, Rect: rect, Label: e.state.Label}
}

// SetLabel updates the hover label without touching the box.
func (e *Engine) SetLabel(text string) {
	e.mu.Lock()
	e.state.Label = text
	e.mu.Unlock()
}

// Hide clears the overlay.
func (e *Engine) Hide() {
	e.mu.Lock()
	e.state = State{Style: StyleHidden}
	e.mu.Unlock()
}

// Suppress force-hides the overlay while the fullscreen surface is active.
func (e *Engine) Suppress(on bool) {
	e.mu.Lock()
	e.suppressed = on
	if on {
		e.state = State{Style: StyleHidden}
	}
	e.mu.Unlock()
	e.logger.Debug("overlay.suppress", "on", on)
}

// State returns the current overlay snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// FindMarkerTargetFromPoint hit-tests virtual marker-delimited targets,
// preferring the narrowest covering rect.
func (e *Engine) FindMarkerTargetFromPoint(x, y float64) *index.Entry {
	return e.idx.MarkerTargetAt(x, y)
}

// FindFieldSubsectionTargetFromPoint hit-tests every indexed target.
func (e *Engine) FindFieldSubsectionTargetFromPoint(x, y float64) *index.Entry {
	return e.idx.TargetAt(x, y)
}

// HoverAt updates the overlay for a pointer position: marker targets get a
// box and their name as label, everything else hides the overlay.
func (e *Engine) HoverAt(x, y float64) *index.Entry {
	hit := e.idx.MarkerTargetAt(x, y)
	if hit == nil || !hit.HasRect {
		e.Hide()
		return nil
	}
	e.SetLabel(hit.Name)
	e.ShowBox(hit.Rect)
	return hit
}
