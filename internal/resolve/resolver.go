// Package resolve turns a pointer gesture into an edit decision: which
// target to open and on which surface.
package resolve

import (
	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/index"
	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/internal/overlay"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

// Action is what the gesture asks the module to do.
type Action string

const (
	ActionNone       Action = "none"
	ActionInline     Action = "inline"
	ActionFullscreen Action = "fullscreen"
)

// PointerEvent is the gesture input. Text carries the text content under
// the cursor, used for the catalog fallback when nothing is hit.
type PointerEvent struct {
	X, Y  float64
	Ctrl  bool
	Meta  bool
	Shift bool
	Text  string
}

func (e PointerEvent) accel() bool { return e.Ctrl || e.Meta }

// Resolution is the resolver verdict. Target is nil only for ActionNone.
type Resolution struct {
	Action Action
	Target *index.Entry
	Reason string
}

// Resolver owns the gesture policy.
type Resolver struct {
	idx     *index.Service
	overlay *overlay.Engine
	logger  interfaces.Logger
}

// New wires the resolver to the index and overlay engines.
func New(idx *index.Service, ov *overlay.Engine, provider interfaces.LoggerProvider) *Resolver {
	return &Resolver{
		idx:     idx,
		overlay: ov,
		logger:  logging.ModuleLogger(provider, "fronteditor.resolve"),
	}
}

// Resolve maps a double-click to an action. el is the element under the
// cursor, nil when the click landed outside any tracked node.
func (r *Resolver) Resolve(ev PointerEvent, el *dom.Element) Resolution {
	if el == nil {
		return r.resolveVirtual(ev)
	}

	entry := r.entryForElement(el)
	if entry == nil {
		return r.resolveVirtual(ev)
	}

	if ev.Shift {
		if parent := r.enclosingEntry(entry); parent != nil {
			entry = parent
		}
	}

	if ev.accel() {
		if plainField(entry) {
			return done(ActionInline, entry, "inline-field")
		}
		// Modifier on anything wider than a field still opens fullscreen.
		return done(ActionFullscreen, entry, "accel-wide-target")
	}

	if plainField(entry) {
		return done(ActionFullscreen, entry, "field")
	}
	if parent := r.enclosingEntry(entry); parent != nil && entry.Scope == interfaces.ScopeField {
		return done(ActionFullscreen, parent, "promoted")
	}
	return done(ActionFullscreen, entry, "hit")
}

// resolveVirtual handles clicks with no DOM hit: marker regions first, then
// the section catalog by text substring.
func (r *Resolver) resolveVirtual(ev PointerEvent) Resolution {
	if hit := r.overlay.FindMarkerTargetFromPoint(ev.X, ev.Y); hit != nil {
		return done(ActionFullscreen, hit, "marker-hit")
	}
	if hit := r.idx.FindByText(ev.Text); hit != nil && hit.Markdown != "" {
		return done(ActionFullscreen, hit, "catalog-text")
	}
	r.logger.Debug("resolve.miss", "x", ev.X, "y", ev.Y)
	return Resolution{Action: ActionNone, Reason: "no-target"}
}

// entryForElement finds the narrowest indexed target whose element is or
// contains el.
func (r *Resolver) entryForElement(el *dom.Element) *index.Entry {
	var best *index.Entry
	for _, e := range r.idx.Entries() {
		if e.Element == nil {
			continue
		}
		if e.Element != el && !e.Element.Contains(el) {
			continue
		}
		if best == nil || e.Scope.Narrower(best.Scope) {
			best = e
		}
	}
	return best
}

// enclosingEntry returns the narrowest wider-scope target containing the
// entry's element, or its rect for virtual regions.
func (r *Resolver) enclosingEntry(entry *index.Entry) *index.Entry {
	var best *index.Entry
	for _, e := range r.idx.Entries() {
		if e == entry || !entry.Scope.Narrower(e.Scope) {
			continue
		}
		if !covers(e, entry) {
			continue
		}
		if best == nil || e.Scope.Narrower(best.Scope) {
			best = e
		}
	}
	return best
}

func covers(outer, inner *index.Entry) bool {
	if outer.Element != nil && inner.Element != nil {
		return outer.Element.Contains(inner.Element)
	}
	if !outer.HasRect || !inner.HasRect {
		return false
	}
	cx := inner.Rect.X + inner.Rect.W/2
	cy := inner.Rect.Y + inner.Rect.H/2
	return outer.Rect.Contains(cx, cy)
}

// plainField is a standalone tag field that does not belong to a section
// or container, the only shape allowed to open inline.
func plainField(e *index.Entry) bool {
	return e.Scope == interfaces.ScopeField &&
		e.Kind == interfaces.KindTag &&
		e.SectionName == ""
}

func done(action Action, target *index.Entry, reason string) Resolution {
	return Resolution{Action: action, Target: target, Reason: reason}
}
