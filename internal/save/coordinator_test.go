package save

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-front-editor/internal/bridge"
	savecmd "github.com/goliatone/go-front-editor/internal/commands/save"
	"github.com/goliatone/go-front-editor/internal/constraints"
	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/index"
	"github.com/goliatone/go-front-editor/internal/rte"
	"github.com/goliatone/go-front-editor/internal/runtimeconfig"
	"github.com/goliatone/go-front-editor/internal/session"
	"github.com/goliatone/go-front-editor/internal/status"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

const savePage = `<html><body>
<div class="fe-editable" data-md-scope="field" data-md-name="intro" data-field-type="paragraph" data-page="42" data-markdown="old intro"><p>old intro</p></div>
<div class="fe-editable" data-md-scope="field" data-md-name="pitch" data-field-type="paragraph" data-page="42" data-markdown="old pitch"><p>old pitch</p></div>
<!-- mfe:section:start greeting -->
<p>Hello.</p>
<!-- mfe:section:end greeting -->
</body></html>`

type fakeClient struct {
	tokens  int
	saves   []interfaces.SingleSaveRequest
	batches []interfaces.BatchSaveRequest
	respond func() *interfaces.SaveResponse
	onSave  func()
}

func (f *fakeClient) FetchToken(context.Context) (interfaces.Token, error) {
	f.tokens++
	return interfaces.Token{Name: "csrf_token", Value: "t"}, nil
}

func (f *fakeClient) SaveField(_ context.Context, _ interfaces.Token, req interfaces.SingleSaveRequest) (*interfaces.SaveResponse, error) {
	f.saves = append(f.saves, req)
	if f.onSave != nil {
		f.onSave()
	}
	return f.respond(), nil
}

func (f *fakeClient) SaveBatch(_ context.Context, _ interfaces.Token, req interfaces.BatchSaveRequest) (*interfaces.SaveResponse, error) {
	f.batches = append(f.batches, req)
	if f.onSave != nil {
		f.onSave()
	}
	return f.respond(), nil
}

func (f *fakeClient) Translations(context.Context, string, string, string, string) (map[string]string, error) {
	return nil, nil
}

func (f *fakeClient) ListImages(context.Context, string) ([]interfaces.ImageInfo, error) {
	return nil, nil
}

type saveFixture struct {
	coord    *Coordinator
	client   *fakeClient
	idx      *index.Service
	sessions *session.Controller
	status   *status.Manager
}

func newSaveFixture(t *testing.T) *saveFixture {
	t.Helper()
	page, err := dom.LoadString(savePage)
	if err != nil {
		t.Fatalf("load page: %v", err)
	}
	cfg := runtimeconfig.DefaultConfig()
	idx := index.New(page, "42", nil, nil, nil)
	br := bridge.New()
	st := status.New(nil, nil)
	sessions := session.New(idx, br, constraints.New(&cfg, br, nil), st, rte.Factory{}, nil)
	client := &fakeClient{respond: func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{OK: true}
	}}
	return &saveFixture{
		coord:    NewCoordinator(client, idx, sessions, st, nil),
		client:   client,
		idx:      idx,
		sessions: sessions,
		status:   st,
	}
}

// edit mounts a session on the field, types text, and detaches leaving a
// dirty draft behind.
func (f *saveFixture) edit(t *testing.T, id, text string) *session.Draft {
	t.Helper()
	entry, ok := f.idx.Get(id)
	if !ok {
		t.Fatalf("target %q not indexed", id)
	}
	sess, err := f.sessions.Attach(entry, interfaces.SurfaceFullscreen)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	sess.Editor.(*rte.Editor).ReplaceText(text)
	if _, err := f.sessions.Detach(session.DetachOptions{}); err != nil {
		t.Fatalf("detach: %v", err)
	}
	draft, ok := f.sessions.Draft(sess.FieldID())
	if !ok {
		t.Fatal("draft missing after edit")
	}
	return draft
}

func TestSingleSaveRepliesAndCommits(t *testing.T) {
	f := newSaveFixture(t)
	draft := f.edit(t, "field:intro", "new intro")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK:      true,
			HTMLMap: map[string]string{"42:field:intro": "<p>new intro</p>"},
		}
	}
	if err := f.coord.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	req := f.client.saves[0]
	if req.Markdown != "new intro" || req.Name != "intro" || req.PageID != "42" {
		t.Fatalf("request = %+v", req)
	}

	entry, _ := f.idx.Get("field:intro")
	if got := entry.Element.InnerHTML(); !strings.Contains(got, "new intro") {
		t.Fatalf("page html = %q, want replay applied", got)
	}
	if md, _ := entry.Element.Dataset("markdown"); md != "new intro" {
		t.Fatalf("dataset markdown = %q", md)
	}
	if b64, _ := entry.Element.Dataset("markdownB64"); b64 == "" {
		t.Fatal("dataset markdown-b64 must refresh")
	}

	if f.sessions.HasDirty() {
		t.Fatal("committed draft must stop being dirty")
	}
	if got := f.status.State(); got != status.StateSaved {
		t.Fatalf("status = %q, want saved", got)
	}
	if f.client.tokens != 1 {
		t.Fatalf("token fetches = %d, want 1 (cached)", f.client.tokens)
	}
}

func TestTokenIsCachedAcrossSaves(t *testing.T) {
	f := newSaveFixture(t)
	draft := f.edit(t, "field:intro", "one")
	if err := f.coord.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("save one: %v", err)
	}

	draft2 := f.edit(t, "field:pitch", "two")
	if err := f.coord.SaveDraft(context.Background(), draft2); err != nil {
		t.Fatalf("save two: %v", err)
	}
	if f.client.tokens != 1 {
		t.Fatalf("token fetches = %d, want 1", f.client.tokens)
	}
}

func TestBatchSaveCollectsEveryDirtyField(t *testing.T) {
	f := newSaveFixture(t)
	f.edit(t, "field:intro", "new intro")
	f.edit(t, "field:pitch", "new pitch")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK: true,
			HTMLMap: map[string]string{
				"intro": "<p>new intro</p>",
				"pitch": "<p>new pitch</p>",
			},
		}
	}
	if err := f.coord.SaveAllDirty(context.Background(), "42"); err != nil {
		t.Fatalf("SaveAllDirty: %v", err)
	}

	batch := f.client.batches[0]
	if batch.PageID != "42" || len(batch.Fields) != 2 {
		t.Fatalf("batch = %+v", batch)
	}
	byName := map[string]interfaces.FieldSave{}
	for _, field := range batch.Fields {
		byName[field.Name] = field
	}
	if byName["intro"].Markdown != "new intro" || byName["pitch"].Markdown != "new pitch" {
		t.Fatalf("fields = %+v", batch.Fields)
	}

	for _, id := range []string{"field:intro", "field:pitch"} {
		entry, _ := f.idx.Get(id)
		if got := entry.Element.InnerHTML(); !strings.Contains(got, "new") {
			t.Fatalf("%s html = %q, want name-keyed replay", id, got)
		}
	}
	if f.sessions.HasDirty() {
		t.Fatal("both drafts must clear")
	}
}

func TestPartialHTMLMapKeepsUnmatchedDraftsDirty(t *testing.T) {
	f := newSaveFixture(t)
	f.edit(t, "field:intro", "new intro")
	pitch := f.edit(t, "field:pitch", "new pitch")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK:      true,
			HTMLMap: map[string]string{"intro": "<p>new intro</p>"},
		}
	}
	if err := f.coord.SaveAllDirty(context.Background(), "42"); err != nil {
		t.Fatalf("SaveAllDirty: %v", err)
	}

	if draft, ok := f.sessions.Draft("42|field||intro"); ok && draft.Dirty {
		t.Fatal("matched draft must clear")
	}
	if got, ok := f.sessions.Draft(pitch.Target.FieldID()); !ok || !got.Dirty {
		t.Fatal("draft the response skipped must stay dirty")
	}
	entry, _ := f.idx.Get("field:pitch")
	if got := entry.Element.InnerHTML(); strings.Contains(got, "new") {
		t.Fatalf("pitch html = %q, want untouched", got)
	}
}

func TestBatchWithNothingDirtyReportsNoChanges(t *testing.T) {
	f := newSaveFixture(t)
	if err := f.coord.SaveAllDirty(context.Background(), "42"); err != nil {
		t.Fatalf("SaveAllDirty: %v", err)
	}
	if len(f.client.batches) != 0 {
		t.Fatal("no request must be issued")
	}
	if got := f.status.State(); got != status.StateNoChanges {
		t.Fatalf("status = %q, want no-changes", got)
	}
}

func TestHostRejectionKeepsDraftDirty(t *testing.T) {
	f := newSaveFixture(t)
	draft := f.edit(t, "field:intro", "new intro")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{OK: false, Message: "validation failed"}
	}
	if err := f.coord.SaveDraft(context.Background(), draft); err == nil {
		t.Fatal("rejected save must error")
	}

	if !f.sessions.HasDirty() {
		t.Fatal("draft must stay dirty")
	}
	if got := f.status.State(); got != status.StateError {
		t.Fatalf("status = %q, want error", got)
	}
	if msg := f.status.Message(); !strings.Contains(msg, "validation failed") {
		t.Fatalf("status message = %q", msg)
	}

	entry, _ := f.idx.Get("field:intro")
	if got := entry.Element.InnerHTML(); !strings.Contains(got, "old intro") {
		t.Fatalf("page html = %q, must stay untouched", got)
	}
}

func TestStaleResponseIsDropped(t *testing.T) {
	f := newSaveFixture(t)
	draft := f.edit(t, "field:intro", "new intro")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK:      true,
			HTMLMap: map[string]string{"42:field:intro": "<p>new intro</p>"},
		}
	}
	if err := f.coord.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	// Replay an already-committed tag: a late arrival from an earlier save.
	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK:      true,
			HTMLMap: map[string]string{"42:field:intro": "<p>stale</p>"},
		}
	}
	err := f.coord.executeField(context.Background(), savecmd.FieldCommand{
		PageID:     draft.Target.PageID,
		FieldID:    draft.Target.FieldID(),
		Name:       draft.Target.Name,
		Scope:      string(draft.Target.Scope),
		Markdown:   draft.Markdown,
		RequestTag: 1,
	})
	if err != nil {
		t.Fatalf("executeField: %v", err)
	}

	entry, _ := f.idx.Get("field:intro")
	if got := entry.Element.InnerHTML(); strings.Contains(got, "stale") {
		t.Fatalf("page html = %q, stale response must not apply", got)
	}
}

func TestBareHTMLStringBindsToOriginField(t *testing.T) {
	f := newSaveFixture(t)
	draft := f.edit(t, "field:intro", "new intro")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK:      true,
			HTMLMap: map[string]string{"": "<p>new intro</p>"},
		}
	}
	if err := f.coord.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	entry, _ := f.idx.Get("field:intro")
	if got := entry.Element.InnerHTML(); !strings.Contains(got, "new intro") {
		t.Fatalf("page html = %q, want bare html bound to the saved field", got)
	}
}

func TestMarkerRegionResyncs(t *testing.T) {
	f := newSaveFixture(t)
	draft := f.edit(t, "field:intro", "new intro")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK: true,
			HTMLMap: map[string]string{
				"42:field:intro":   "<p>new intro</p>",
				"section:greeting": "<p>Updated greeting.</p>",
			},
		}
	}
	if err := f.coord.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	rendered := f.idx.Page().Render()
	if !strings.Contains(rendered, "Updated greeting.") {
		t.Fatalf("page = %q, want marker range replaced", rendered)
	}
	if !strings.Contains(rendered, "mfe:section:start greeting") {
		t.Fatal("markers must survive the re-sync")
	}
}

func TestSectionsIndexRefreshesCatalog(t *testing.T) {
	f := newSaveFixture(t)
	draft := f.edit(t, "field:intro", "new intro")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK: true,
			SectionsIndex: []interfaces.SectionIndexEntry{
				{Name: "greeting", Markdown: "Updated greeting."},
			},
		}
	}
	if err := f.coord.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	catalog := f.idx.Catalog()
	if len(catalog) != 1 || catalog[0].Markdown != "Updated greeting." {
		t.Fatalf("catalog = %+v", catalog)
	}
}

func TestEditsDuringSaveStayDirty(t *testing.T) {
	f := newSaveFixture(t)
	draft := f.edit(t, "field:intro", "new intro")

	f.client.respond = func() *interfaces.SaveResponse {
		return &interfaces.SaveResponse{
			OK:      true,
			HTMLMap: map[string]string{"42:field:intro": "<p>new intro</p>"},
		}
	}
	f.client.onSave = func() {
		// A racing edit while the request is in flight.
		f.edit(t, "field:intro", "even newer intro")
		f.client.onSave = nil
	}

	if err := f.coord.SaveDraft(context.Background(), draft); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if !f.sessions.HasDirty() {
		t.Fatal("the racing edit must remain dirty")
	}
}
