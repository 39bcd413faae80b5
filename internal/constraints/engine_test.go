package constraints

import (
	"errors"
	"testing"

	"github.com/goliatone/go-front-editor/internal/bridge"
	"github.com/goliatone/go-front-editor/internal/runtimeconfig"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
	"github.com/goliatone/go-front-editor/pkg/rtedoc"
)

func newEngine(t *testing.T, mutate func(*runtimeconfig.Config)) *Engine {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return New(&cfg, bridge.New(), nil)
}

func headingField(name string) interfaces.EditableTarget {
	return interfaces.EditableTarget{
		ID:        "field:" + name,
		Scope:     interfaces.ScopeField,
		Kind:      interfaces.KindTag,
		Name:      name,
		FieldType: interfaces.FieldHeading,
	}
}

func containerTarget() interfaces.EditableTarget {
	return interfaces.EditableTarget{
		ID:        "container:intro:body",
		Scope:     interfaces.ScopeContainer,
		Kind:      interfaces.KindContainer,
		Name:      "body",
		FieldType: interfaces.FieldContainer,
	}
}

func TestResolveTagFieldAllowsEverything(t *testing.T) {
	eng := newEngine(t, nil)
	rules := eng.Resolve(headingField("title"))

	if rules.MaxBlocks != 1 {
		t.Fatalf("MaxBlocks = %d, want 1", rules.MaxBlocks)
	}
	for _, cmd := range []string{"bold", "italic", "strike", "code", "link", "h1", "list", "quote", "save"} {
		if !rules.Allows(cmd) {
			t.Fatalf("tag field should allow %q", cmd)
		}
	}
}

func TestResolveContainerUsesServerToolbar(t *testing.T) {
	eng := newEngine(t, func(cfg *runtimeconfig.Config) {
		cfg.ContainerToolbar = "bold,italic"
	})
	rules := eng.Resolve(containerTarget())

	if rules.MaxBlocks != 0 {
		t.Fatalf("containers are not block-limited, got MaxBlocks=%d", rules.MaxBlocks)
	}
	if !rules.Allows("bold") || !rules.Allows("italic") {
		t.Fatalf("configured commands missing: %v", rules.CommandList())
	}
	if rules.Allows("h1") || rules.Allows("quote") {
		t.Fatalf("commands outside the toolbar must be denied: %v", rules.CommandList())
	}
	if !rules.Allows("save") {
		t.Fatal("save must always be allowed")
	}
}

func TestResolveUnknownFieldTypeFallsBackToContainerRules(t *testing.T) {
	eng := newEngine(t, func(cfg *runtimeconfig.Config) {
		cfg.ContainerToolbar = "bold"
	})
	target := headingField("widget")
	target.FieldType = interfaces.FieldType("carousel")

	rules := eng.Resolve(target)
	if rules.Allows("italic") {
		t.Fatal("unknown field type must follow the container toolbar")
	}
	if !rules.Allows("bold") || !rules.Allows("save") {
		t.Fatalf("container rules missing: %v", rules.CommandList())
	}
}

func TestGuardKeyEnterPolicy(t *testing.T) {
	eng := newEngine(t, nil)
	field := headingField("title")

	cases := []struct {
		name   string
		target interfaces.EditableTarget
		ev     KeyEvent
		want   KeyDecision
	}{
		{"enter on single-block", field, KeyEvent{Key: "Enter"}, KeySwallow},
		{"shift-enter is a hard break", field, KeyEvent{Key: "Enter", Shift: true}, KeyAllow},
		{"enter inside list item", field, KeyEvent{Key: "Enter", InListItem: true}, KeyAllowAudit},
		{"enter inside blockquote", field, KeyEvent{Key: "Enter", InBlockquote: true}, KeyAllowAudit},
		{"enter in container", containerTarget(), KeyEvent{Key: "Enter"}, KeyAllow},
		{"plain character", field, KeyEvent{Key: "a"}, KeyAllow},
	}
	for _, tc := range cases {
		if got := eng.GuardKey(tc.target, tc.ev); got != tc.want {
			t.Fatalf("%s: decision = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestGuardPasteRejectsMultiBlockOnSingleBlockTarget(t *testing.T) {
	eng := newEngine(t, nil)
	_, err := eng.GuardPaste(headingField("title"), "<p>first</p><p>second</p>")
	if !errors.Is(err, ErrPasteRejected) {
		t.Fatalf("err = %v, want ErrPasteRejected", err)
	}
}

func TestGuardPasteConvertsAcceptedHTML(t *testing.T) {
	eng := newEngine(t, nil)
	blocks, err := eng.GuardPaste(headingField("title"), "<p>hello <strong>world</strong></p>")
	if err != nil {
		t.Fatalf("GuardPaste: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Kind != rtedoc.KindParagraph {
		t.Fatalf("blocks = %+v, want one paragraph", blocks)
	}
	var sawBold bool
	for _, run := range blocks[0].Inlines {
		if run.Bold {
			sawBold = true
		}
	}
	if !sawBold {
		t.Fatalf("bold mark lost in conversion: %+v", blocks[0].Inlines)
	}
}

func TestGuardPasteInlineRunCountsAsOneBlock(t *testing.T) {
	eng := newEngine(t, nil)
	blocks, err := eng.GuardPaste(headingField("title"), "loose <b>inline</b> text")
	if err != nil {
		t.Fatalf("inline-only paste must fit a single-block target: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
}

func TestGuardPasteAllowsMultiBlockInContainers(t *testing.T) {
	eng := newEngine(t, nil)
	blocks, err := eng.GuardPaste(containerTarget(), "<p>one</p><p>two</p>")
	if err != nil {
		t.Fatalf("GuardPaste: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
}

func TestAuditUndoesBlockCountViolation(t *testing.T) {
	eng := newEngine(t, nil)
	ed := &fakeEditor{doc: &rtedoc.Doc{Blocks: []rtedoc.Block{
		{Kind: rtedoc.KindParagraph},
		{Kind: rtedoc.KindParagraph},
	}}}

	if !eng.Audit(headingField("title"), ed) {
		t.Fatal("audit must undo a two-block document on a single-block target")
	}
	if ed.undos != 1 {
		t.Fatalf("undos = %d, want 1", ed.undos)
	}

	ed.doc = &rtedoc.Doc{Blocks: []rtedoc.Block{{Kind: rtedoc.KindHeading, Level: 1}}}
	if eng.Audit(headingField("title"), ed) {
		t.Fatal("audit must pass a compliant document")
	}
}

func TestShouldWarnForExtraContent(t *testing.T) {
	eng := newEngine(t, nil)
	if !eng.ShouldWarnForExtraContent(headingField("title")) {
		t.Fatal("tag/title is a configured warn target")
	}
	if eng.ShouldWarnForExtraContent(headingField("body")) {
		t.Fatal("tag/body is not a warn target")
	}
}

type fakeEditor struct {
	doc   *rtedoc.Doc
	undos int
}

func (f *fakeEditor) Doc() *rtedoc.Doc                           { return f.doc }
func (f *fakeEditor) SetDoc(doc *rtedoc.Doc)                     { f.doc = doc }
func (f *fakeEditor) OnUpdate(func(interfaces.UpdateEvent))      {}
func (f *fakeEditor) ToggleMark(string) error                    { return nil }
func (f *fakeEditor) SetBlock(rtedoc.Kind, int) error            { return nil }
func (f *fakeEditor) InsertBlocks([]rtedoc.Block) error          { return nil }
func (f *fakeEditor) Undo() bool                                 { f.undos++; return true }
func (f *fakeEditor) RenderDOM() string                          { return "" }
func (f *fakeEditor) Focus()                                     {}
func (f *fakeEditor) Destroy()                                   {}
