package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-front-editor/internal/bridge"
	"github.com/goliatone/go-front-editor/internal/constraints"
	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/index"
	"github.com/goliatone/go-front-editor/internal/rte"
	"github.com/goliatone/go-front-editor/internal/runtimeconfig"
	"github.com/goliatone/go-front-editor/internal/status"
	"github.com/goliatone/go-front-editor/pkg/rtedoc"

	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

const sessionPage = `<html><body>
<div class="fe-editable" data-md-scope="field" data-md-name="title" data-field-type="heading" data-page="42" data-markdown="# Welcome"><h1>Welcome</h1></div>
<div class="fe-editable" data-md-scope="field" data-md-name="pitch" data-field-type="paragraph" data-page="42" data-markdown="Our pitch."><p>Our pitch.</p></div>
</body></html>`

type fixture struct {
	ctrl   *Controller
	idx    *index.Service
	status *status.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	page, err := dom.LoadString(sessionPage)
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	cfg := runtimeconfig.DefaultConfig()
	idx := index.New(page, "42", nil, nil, nil)
	br := bridge.New()
	st := status.New(nil, nil)
	ctrl := New(idx, br, constraints.New(&cfg, br, nil), st, rte.Factory{}, nil)
	return &fixture{ctrl: ctrl, idx: idx, status: st}
}

func (f *fixture) entry(t *testing.T, id string) *index.Entry {
	t.Helper()
	entry, ok := f.idx.Get(id)
	if !ok {
		t.Fatalf("target %q not indexed", id)
	}
	return entry
}

func (f *fixture) attach(t *testing.T, id string, surface interfaces.Surface) *Session {
	t.Helper()
	sess, err := f.ctrl.Attach(f.entry(t, id), surface)
	if err != nil {
		t.Fatalf("attach %q: %v", id, err)
	}
	return sess
}

func TestAttachParsesMarkdownAndTracksBlockCount(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)

	if sess.OriginalBlockCount() != 1 {
		t.Fatalf("original block count = %d, want 1", sess.OriginalBlockCount())
	}
	doc := sess.Editor.Doc()
	if doc.BlockCount() != 1 || doc.Blocks[0].Kind != rtedoc.KindHeading {
		t.Fatalf("doc = %+v, want a single heading", doc)
	}
	if f.ctrl.HasDirty() {
		t.Fatal("attach must not dirty the draft")
	}
}

func TestEditRecordsDraftAndMarksDirty(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)

	sess.Editor.(*rte.Editor).ReplaceText("Hello")
	draft, ok := f.ctrl.Draft(sess.FieldID())
	if !ok || !draft.Dirty {
		t.Fatalf("draft = %+v, want dirty", draft)
	}
	if draft.Markdown != "# Hello" {
		t.Fatalf("draft markdown = %q, want # Hello", draft.Markdown)
	}
	if got := f.status.State(); got != status.StateDirty {
		t.Fatalf("status = %q, want dirty", got)
	}
}

func TestUnchangedDocumentKeepsOriginalMarkdown(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)

	// A no-op edit: same text typed over itself.
	sess.Editor.(*rte.Editor).ReplaceText("Welcome")
	draft, _ := f.ctrl.Draft(sess.FieldID())
	if draft.Markdown != "# Welcome" {
		t.Fatalf("markdown = %q, want the original byte-for-byte", draft.Markdown)
	}
}

func TestSecondAttachWithoutDetachFails(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "field:title", interfaces.SurfaceFullscreen)

	_, err := f.ctrl.Attach(f.entry(t, "field:pitch"), interfaces.SurfaceInline)
	if !errors.Is(err, ErrAlreadyAttached) {
		t.Fatalf("err = %v, want ErrAlreadyAttached", err)
	}
}

func TestDraftSurvivesSurfaceSwitch(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceInline)
	sess.Editor.(*rte.Editor).ReplaceText("Edited")
	before, _ := f.ctrl.GetMarkdown()

	switched, err := f.ctrl.SwitchSurface(interfaces.SurfaceFullscreen)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if switched.Surface != interfaces.SurfaceFullscreen {
		t.Fatalf("surface = %q, want fullscreen", switched.Surface)
	}

	after, _ := f.ctrl.GetMarkdown()
	if before != after || after != "# Edited" {
		t.Fatalf("markdown across switch = %q then %q, want # Edited", before, after)
	}
	doc := switched.Editor.Doc()
	if doc.Blocks[0].Inlines[0].Text != "Edited" {
		t.Fatalf("editor did not repopulate from the draft: %+v", doc)
	}
}

func TestDetachPersistDraftWritesBackToPage(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)
	sess.Editor.(*rte.Editor).ReplaceText("Edited")

	res, err := f.ctrl.Detach(DetachOptions{PersistDraft: true})
	if err != nil || res.Aborted {
		t.Fatalf("detach: res=%+v err=%v", res, err)
	}

	el := f.entry(t, "field:title").Element
	if got := el.InnerHTML(); !strings.Contains(got, "<h1>Edited</h1>") {
		t.Fatalf("page html = %q, want the draft rendered", got)
	}
	if draft, ok := f.ctrl.Draft("42|field||title"); !ok || !draft.Dirty {
		t.Fatal("draft must stay live after a persisting detach")
	}
}

func TestDetachSaveOnCloseRequestsSave(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)
	sess.Editor.(*rte.Editor).ReplaceText("Edited")

	res, err := f.ctrl.Detach(DetachOptions{SaveOnClose: true})
	if err != nil {
		t.Fatalf("detach: %v", err)
	}
	if !res.SaveRequested {
		t.Fatal("SaveOnClose must surface a save request")
	}
	if f.ctrl.Active() != nil {
		t.Fatal("session must unmount")
	}
}

func TestPromptOnCloseDeclinedKeepsSession(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)
	sess.Editor.(*rte.Editor).ReplaceText("Edited")

	res, err := f.ctrl.Detach(DetachOptions{
		PromptOnClose:  true,
		ConfirmDiscard: func() bool { return false },
	})
	if err != nil {
		t.Fatalf("detach: %v", err)
	}
	if !res.Aborted {
		t.Fatal("declined prompt must abort the detach")
	}
	if f.ctrl.Active() == nil || !f.ctrl.HasDirty() {
		t.Fatal("session and draft must survive a declined prompt")
	}
}

func TestPromptOnCloseConfirmedDiscardsAndRestores(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)
	sess.Editor.(*rte.Editor).ReplaceText("Edited")

	res, err := f.ctrl.Detach(DetachOptions{
		PromptOnClose:  true,
		ConfirmDiscard: func() bool { return true },
	})
	if err != nil || res.Aborted {
		t.Fatalf("detach: res=%+v err=%v", res, err)
	}
	if f.ctrl.HasDirty() {
		t.Fatal("drafts must be discarded")
	}
	el := f.entry(t, "field:title").Element
	if got := el.InnerHTML(); !strings.Contains(got, "Welcome") {
		t.Fatalf("page html = %q, want the original restored", got)
	}
	if got := f.status.State(); got != status.StateIdle {
		t.Fatalf("status = %q, want idle", got)
	}
}

func TestConfirmedDiscardRestoresPersistedDrafts(t *testing.T) {
	f := newFixture(t)

	// First field: edit, then close with persist-draft so the page shows
	// the unsaved markup.
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)
	sess.Editor.(*rte.Editor).ReplaceText("Draft title")
	if _, err := f.ctrl.Detach(DetachOptions{PersistDraft: true}); err != nil {
		t.Fatalf("detach title: %v", err)
	}
	if got := f.entry(t, "field:title").Element.InnerHTML(); !strings.Contains(got, "Draft title") {
		t.Fatalf("title html = %q, want the draft persisted", got)
	}

	// Second field: edit and discard everything through the prompt.
	sess = f.attach(t, "field:pitch", interfaces.SurfaceFullscreen)
	sess.Editor.(*rte.Editor).ReplaceText("Draft pitch")
	res, err := f.ctrl.Detach(DetachOptions{
		PromptOnClose:  true,
		ConfirmDiscard: func() bool { return true },
	})
	if err != nil || res.Aborted {
		t.Fatalf("detach pitch: res=%+v err=%v", res, err)
	}

	if got := f.entry(t, "field:title").Element.InnerHTML(); !strings.Contains(got, "Welcome") {
		t.Fatalf("title html = %q, want the original restored", got)
	}
	if got := f.entry(t, "field:pitch").Element.InnerHTML(); !strings.Contains(got, "Our pitch.") {
		t.Fatalf("pitch html = %q, want the original restored", got)
	}
	if f.ctrl.HasDirty() {
		t.Fatal("drafts must be discarded")
	}
}

func TestMarkSavedClearsDirtyButKeepsDraft(t *testing.T) {
	f := newFixture(t)
	sess := f.attach(t, "field:title", interfaces.SurfaceFullscreen)
	sess.Editor.(*rte.Editor).ReplaceText("Edited")

	f.ctrl.MarkSaved(sess.FieldID())
	if f.ctrl.HasDirty() {
		t.Fatal("saved field must not count as dirty")
	}
	if _, ok := f.ctrl.Draft(sess.FieldID()); !ok {
		t.Fatal("committed draft content should remain for resumption")
	}
	if f.ctrl.ShouldWarnBeforeUnload() {
		t.Fatal("no dirty drafts, no unload warning")
	}
}

func TestTabSwitchesPanesInFullscreen(t *testing.T) {
	f := newFixture(t)

	if f.ctrl.HandleTab(false) {
		t.Fatal("tab without a session must pass through")
	}

	f.attach(t, "field:title", interfaces.SurfaceFullscreen)
	if !f.ctrl.HandleTab(false) || f.ctrl.FocusedPane() != "secondary" {
		t.Fatalf("pane = %q, want secondary", f.ctrl.FocusedPane())
	}
	if !f.ctrl.HandleTab(true) || f.ctrl.FocusedPane() != "primary" {
		t.Fatalf("pane = %q, want primary after shift-tab", f.ctrl.FocusedPane())
	}
}
