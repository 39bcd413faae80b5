package resolve

import (
	"testing"

	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/index"
	"github.com/goliatone/go-front-editor/internal/overlay"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

const resolvePage = `<html><body>
<div class="fe-editable" data-md-scope="field" data-md-name="title" data-field-type="heading"><h1>Welcome</h1></div>
<div class="fe-editable" data-md-scope="container" data-md-name="body" data-md-section="intro" data-field-type="container">
  <div class="fe-editable" data-md-scope="field" data-md-name="lead" data-md-section="intro" data-field-type="paragraph"><p>Lead text</p></div>
  <p>Other container content</p>
</div>
<!-- mfe:section:start greeting -->
<p>Hello there friend.</p>
<!-- mfe:section:end greeting -->
</body></html>`

func newResolver(t *testing.T) (*Resolver, *index.Service) {
	t.Helper()
	page, err := dom.LoadString(resolvePage)
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	catalog := []interfaces.SectionIndexEntry{
		{Name: "greeting", Markdown: "Hello there friend."},
	}
	idx := index.New(page, "9", catalog, nil, nil)
	return New(idx, overlay.New(idx, nil), nil), idx
}

func element(t *testing.T, idx *index.Service, id string) *dom.Element {
	t.Helper()
	entry, ok := idx.Get(id)
	if !ok || entry.Element == nil {
		t.Fatalf("no element for %q", id)
	}
	return entry.Element
}

func TestPlainFieldOpensFullscreen(t *testing.T) {
	r, idx := newResolver(t)
	res := r.Resolve(PointerEvent{}, element(t, idx, "field:title"))

	if res.Action != ActionFullscreen {
		t.Fatalf("action = %q, want fullscreen", res.Action)
	}
	if res.Target == nil || res.Target.ID != "field:title" {
		t.Fatalf("target = %+v, want field:title", res.Target)
	}
}

func TestNestedFieldPromotesToContainer(t *testing.T) {
	r, idx := newResolver(t)
	res := r.Resolve(PointerEvent{}, element(t, idx, "field:intro:lead"))

	if res.Action != ActionFullscreen {
		t.Fatalf("action = %q, want fullscreen", res.Action)
	}
	if res.Target.ID != "container:intro:body" {
		t.Fatalf("target = %q, want container:intro:body", res.Target.ID)
	}
	if res.Reason != "promoted" {
		t.Fatalf("reason = %q, want promoted", res.Reason)
	}
}

func TestAccelOpensInlineOnlyForPlainFields(t *testing.T) {
	r, idx := newResolver(t)

	res := r.Resolve(PointerEvent{Ctrl: true}, element(t, idx, "field:title"))
	if res.Action != ActionInline || res.Target.ID != "field:title" {
		t.Fatalf("plain field with ctrl = %+v, want inline field:title", res)
	}

	res = r.Resolve(PointerEvent{Meta: true}, element(t, idx, "field:intro:lead"))
	if res.Action != ActionFullscreen {
		t.Fatalf("section-bound field with cmd = %q, want fullscreen", res.Action)
	}
	if res.Target.ID != "field:intro:lead" {
		t.Fatalf("accel must not promote, got %q", res.Target.ID)
	}
}

func TestShiftClimbsToParentEditable(t *testing.T) {
	r, idx := newResolver(t)
	res := r.Resolve(PointerEvent{Shift: true}, element(t, idx, "field:intro:lead"))

	if res.Action != ActionFullscreen {
		t.Fatalf("action = %q, want fullscreen", res.Action)
	}
	if res.Target.ID != "container:intro:body" {
		t.Fatalf("target = %q, want container:intro:body", res.Target.ID)
	}
}

func TestNoHitFallsBackToMarkerTargets(t *testing.T) {
	r, idx := newResolver(t)
	entry, ok := idx.Get("section:greeting")
	if !ok || !entry.HasRect {
		t.Fatal("marker section not indexed")
	}
	ev := PointerEvent{
		X: entry.Rect.X + entry.Rect.W/2,
		Y: entry.Rect.Y + entry.Rect.H/2,
	}

	res := r.Resolve(ev, nil)
	if res.Action != ActionFullscreen || res.Target.ID != "section:greeting" {
		t.Fatalf("resolution = %+v, want fullscreen section:greeting", res)
	}
	if res.Reason != "marker-hit" {
		t.Fatalf("reason = %q, want marker-hit", res.Reason)
	}
}

func TestNoHitFallsBackToCatalogText(t *testing.T) {
	r, _ := newResolver(t)
	res := r.Resolve(PointerEvent{X: -100, Y: -100, Text: "there friend"}, nil)

	if res.Action != ActionFullscreen || res.Target == nil || res.Target.ID != "section:greeting" {
		t.Fatalf("resolution = %+v, want fullscreen section:greeting", res)
	}
	if res.Reason != "catalog-text" {
		t.Fatalf("reason = %q, want catalog-text", res.Reason)
	}
}

func TestNothingUnderCursorResolvesToNone(t *testing.T) {
	r, _ := newResolver(t)
	res := r.Resolve(PointerEvent{X: -100, Y: -100}, nil)

	if res.Action != ActionNone || res.Target != nil {
		t.Fatalf("resolution = %+v, want none", res)
	}
}
