package index

import (
	"encoding/base64"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

var indexPage = `<!DOCTYPE html>
<html><body>
<div class="fe-editable md-edit" data-md-scope="field" data-md-name="title" data-field-type="heading" data-page="42" data-markdown-b64="` + titleB64 + `">
  <h1>Welcome</h1>
</div>
<div class="fe-editable md-edit" data-md-scope="container" data-md-name="body" data-md-section="intro" data-field-type="container" data-page="42" data-markdown="first\n\nsecond">
  <p>first</p><p>second</p>
</div>
<!--mfe:section:start greeting-->
<p>Hello there, stranger.</p>
<p>Welcome aboard.</p>
<!--mfe:section:end greeting-->
</body></html>`

var titleB64 = base64.StdEncoding.EncodeToString([]byte("# Welcome"))

func newService(t *testing.T) *Service {
	t.Helper()
	page, err := dom.LoadString(indexPage)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	catalog := []interfaces.SectionIndexEntry{{
		Name:     "greeting",
		Markdown: "Hello there, stranger.\n\nWelcome aboard.",
	}}
	return New(page, "42", catalog, nil, nil)
}

func TestIndexCollectsWrappedFields(t *testing.T) {
	s := newService(t)

	title, ok := s.Get("field:title")
	if !ok {
		t.Fatalf("field:title not indexed")
	}
	if title.Markdown != "# Welcome" {
		t.Fatalf("base64 markdown not decoded: %q", title.Markdown)
	}
	if title.FieldType != interfaces.FieldHeading || title.Kind != interfaces.KindTag {
		t.Fatalf("wrong classification: %#v", title.EditableTarget)
	}
	if !title.HasRect {
		t.Fatalf("wrapped field should have a rect")
	}

	body, ok := s.Get("container:intro:body")
	if !ok {
		t.Fatalf("sectioned container id not composed")
	}
	if body.SectionName != "intro" {
		t.Fatalf("section name lost: %#v", body.EditableTarget)
	}
}

func TestIndexBuildsMarkerTargets(t *testing.T) {
	s := newService(t)

	sec, ok := s.Get("section:greeting")
	if !ok {
		t.Fatalf("marker section not indexed")
	}
	if !sec.Virtual || sec.Element != nil {
		t.Fatalf("marker target should be virtual: %#v", sec)
	}
	if sec.Markdown != "Hello there, stranger.\n\nWelcome aboard." {
		t.Fatalf("catalog markdown not attached: %q", sec.Markdown)
	}
	if !sec.HasRect {
		t.Fatalf("marker target should union element rects")
	}
}

func TestTargetAtPrefersNarrowest(t *testing.T) {
	s := newService(t)

	title, _ := s.Get("field:title")
	cx, cy := title.Rect.X+title.Rect.W/2, title.Rect.Y+title.Rect.H/2
	hit := s.TargetAt(cx, cy)
	if hit == nil {
		t.Fatalf("no hit at field center")
	}
	// the h1 lives inside the wrapper; the field target itself is the
	// narrowest indexed rect at that point
	if hit.ID != "field:title" {
		t.Fatalf("expected field:title, got %s", hit.ID)
	}
}

func TestMarkerTargetAtIgnoresWrappedFields(t *testing.T) {
	s := newService(t)

	sec, _ := s.Get("section:greeting")
	cx, cy := sec.Rect.X+sec.Rect.W/2, sec.Rect.Y+sec.Rect.H/2
	hit := s.MarkerTargetAt(cx, cy)
	if hit == nil || hit.ID != "section:greeting" {
		t.Fatalf("marker hit-test failed: %#v", hit)
	}

	title, _ := s.Get("field:title")
	if hit := s.MarkerTargetAt(title.Rect.X+1, title.Rect.Y+1); hit != nil {
		t.Fatalf("marker hit-test must skip wrapped fields, got %s", hit.ID)
	}
}

func TestFindByTextMatchesCatalog(t *testing.T) {
	s := newService(t)

	hit := s.FindByText("Hello there, stranger.")
	if hit == nil || hit.ID != "section:greeting" {
		t.Fatalf("text fallback failed: %#v", hit)
	}
	if s.FindByText("no such text anywhere") != nil {
		t.Fatalf("unexpected match for unrelated text")
	}
}

func TestSetCatalogInvalidates(t *testing.T) {
	s := newService(t)
	if _, ok := s.Get("section:greeting"); !ok {
		t.Fatalf("precondition failed")
	}

	s.SetCatalog([]interfaces.SectionIndexEntry{{Name: "greeting", Markdown: "replaced"}})
	sec, ok := s.Get("section:greeting")
	if !ok || sec.Markdown != "replaced" {
		t.Fatalf("catalog refresh not applied: %#v", sec)
	}
}

func TestFieldIDAndCompositeID(t *testing.T) {
	s := newService(t)
	body, _ := s.Get("container:intro:body")

	if got := body.FieldID(); got != "42|container|intro|body" {
		t.Fatalf("FieldID mismatch: %q", got)
	}
	if got := body.CompositeID(); got != "42:container:intro:body" {
		t.Fatalf("CompositeID mismatch: %q", got)
	}
}

func TestEntryUUIDsSurviveRebuilds(t *testing.T) {
	s := newService(t)
	title, _ := s.Get("field:title")
	body, _ := s.Get("container:intro:body")

	if title.UUID == uuid.Nil || body.UUID == uuid.Nil {
		t.Fatal("entries must carry derived uuids")
	}
	if title.UUID == body.UUID {
		t.Fatal("distinct targets must not collide")
	}

	s.Invalidate()
	again, _ := s.Get("field:title")
	if again.UUID != title.UUID {
		t.Fatalf("uuid changed across rebuild: %s vs %s", again.UUID, title.UUID)
	}
}
