// Package rte is the built-in rich-text runtime: an in-memory editor over
// the document model with command history. Hosts with a real editor inject
// their own factory instead.
package rte

import (
	"errors"
	"strings"

	"github.com/goliatone/go-front-editor/pkg/interfaces"
	"github.com/goliatone/go-front-editor/pkg/rtedoc"
)

// ErrUnknownMark rejects marks outside the document model.
var ErrUnknownMark = errors.New("rte: unknown mark")

// ErrCommandDenied rejects commands outside the allowed set.
var ErrCommandDenied = errors.New("rte: command not allowed")

// Factory creates in-memory editors.
type Factory struct{}

var _ interfaces.EditorFactory = Factory{}

// CreateEditor builds a fresh empty editor.
func (Factory) CreateEditor(opts interfaces.EditorOptions) interfaces.Editor {
	ed := &Editor{
		surface:   opts.Surface,
		doc:       &rtedoc.Doc{},
		selection: -1,
	}
	for _, cmd := range opts.AllowedCommands {
		if ed.allowed == nil {
			ed.allowed = map[string]bool{}
		}
		ed.allowed[strings.ToLower(cmd)] = true
	}
	return ed
}

// Editor edits one document. The selection is a top-level block index;
// commands apply to the selected block, defaulting to the last one.
type Editor struct {
	surface   interfaces.Surface
	doc       *rtedoc.Doc
	history   []*rtedoc.Doc
	selection int
	allowed   map[string]bool
	listener  func(interfaces.UpdateEvent)
	focused   bool
	destroyed bool
}

var _ interfaces.Editor = (*Editor)(nil)

// Doc returns a snapshot of the current document.
func (e *Editor) Doc() *rtedoc.Doc { return e.doc.Clone() }

// SetDoc loads a document, clearing history, and emits the init event.
func (e *Editor) SetDoc(doc *rtedoc.Doc) {
	if doc == nil {
		doc = &rtedoc.Doc{}
	}
	e.doc = doc.Clone()
	e.history = nil
	e.selection = -1
	e.emit(true)
}

// OnUpdate registers the change listener, replacing any earlier one.
func (e *Editor) OnUpdate(fn func(interfaces.UpdateEvent)) { e.listener = fn }

// SelectBlock moves the selection. Out-of-range indexes select the last
// block.
func (e *Editor) SelectBlock(i int) {
	if i < 0 || i >= e.doc.BlockCount() {
		i = -1
	}
	e.selection = i
}

func (e *Editor) selected() int {
	if e.selection >= 0 && e.selection < e.doc.BlockCount() {
		return e.selection
	}
	return e.doc.BlockCount() - 1
}

// ToggleMark flips an inline mark across the selected block's runs.
func (e *Editor) ToggleMark(mark string) error {
	mark = strings.ToLower(mark)
	if err := e.permit(mark); err != nil {
		return err
	}
	i := e.selected()
	if i < 0 {
		return nil
	}
	flip, ok := markFlipper(mark)
	if !ok {
		return ErrUnknownMark
	}
	e.mutate(func(doc *rtedoc.Doc) {
		block := &doc.Blocks[i]
		on := false
		for _, run := range block.Inlines {
			if !markSet(run, mark) {
				on = true
				break
			}
		}
		for j := range block.Inlines {
			flip(&block.Inlines[j], on)
		}
	})
	return nil
}

// SetBlock converts the selected block to the given kind.
func (e *Editor) SetBlock(kind rtedoc.Kind, level int) error {
	if err := e.permit(commandForBlock(kind, level)); err != nil {
		return err
	}
	i := e.selected()
	if i < 0 {
		return nil
	}
	e.mutate(func(doc *rtedoc.Doc) {
		block := &doc.Blocks[i]
		block.Kind = kind
		block.Level = level
		if kind == rtedoc.KindList && len(block.Items) == 0 {
			block.Items = [][]rtedoc.Block{{{
				Kind:    rtedoc.KindParagraph,
				Inlines: block.Inlines,
			}}}
			block.Inlines = nil
		}
	})
	return nil
}

// InsertBlocks appends blocks after the selection, as a paste would.
func (e *Editor) InsertBlocks(blocks []rtedoc.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	e.mutate(func(doc *rtedoc.Doc) {
		at := e.selected() + 1
		if at <= 0 || at > len(doc.Blocks) {
			at = len(doc.Blocks)
		}
		rest := append([]rtedoc.Block(nil), doc.Blocks[at:]...)
		doc.Blocks = append(doc.Blocks[:at], blocks...)
		doc.Blocks = append(doc.Blocks, rest...)
	})
	return nil
}

// ReplaceText swaps the selected block's runs for a single plain run,
// mimicking typing over a selection.
func (e *Editor) ReplaceText(text string) {
	i := e.selected()
	if i < 0 {
		e.mutate(func(doc *rtedoc.Doc) {
			doc.Blocks = append(doc.Blocks, rtedoc.Block{
				Kind:    rtedoc.KindParagraph,
				Inlines: []rtedoc.Inline{{Text: text}},
			})
		})
		return
	}
	e.mutate(func(doc *rtedoc.Doc) {
		doc.Blocks[i].Inlines = []rtedoc.Inline{{Text: text}}
		doc.Blocks[i].Items = nil
		doc.Blocks[i].Children = nil
	})
}

// Undo rolls back the most recent change.
func (e *Editor) Undo() bool {
	if len(e.history) == 0 {
		return false
	}
	e.doc = e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	e.emit(false)
	return true
}

// RenderDOM serializes the document to HTML for write-back.
func (e *Editor) RenderDOM() string { return RenderHTML(e.doc) }

// Focus marks the editor focused.
func (e *Editor) Focus() { e.focused = true }

// Blur drops keyboard focus, as when an auxiliary pane takes it.
func (e *Editor) Blur() { e.focused = false }

// Focused reports keyboard focus, used by the escape-key policy.
func (e *Editor) Focused() bool { return e.focused && !e.destroyed }

// Destroy tears the editor down.
func (e *Editor) Destroy() {
	e.destroyed = true
	e.focused = false
	e.listener = nil
	e.history = nil
}

func (e *Editor) permit(command string) error {
	// Reverting to a plain paragraph is always legal.
	if command == "" || e.allowed == nil || e.allowed[command] {
		return nil
	}
	return ErrCommandDenied
}

func (e *Editor) mutate(fn func(*rtedoc.Doc)) {
	if e.destroyed {
		return
	}
	e.history = append(e.history, e.doc.Clone())
	fn(e.doc)
	e.emit(false)
}

func (e *Editor) emit(fromInit bool) {
	if e.listener == nil {
		return
	}
	e.listener(interfaces.UpdateEvent{Doc: e.doc.Clone(), FromInit: fromInit})
}

func markSet(run rtedoc.Inline, mark string) bool {
	switch mark {
	case "bold":
		return run.Bold
	case "italic":
		return run.Italic
	case "strike":
		return run.Strike
	case "code":
		return run.Code
	}
	return false
}

func markFlipper(mark string) (func(*rtedoc.Inline, bool), bool) {
	switch mark {
	case "bold":
		return func(r *rtedoc.Inline, on bool) { r.Bold = on }, true
	case "italic":
		return func(r *rtedoc.Inline, on bool) { r.Italic = on }, true
	case "strike":
		return func(r *rtedoc.Inline, on bool) { r.Strike = on }, true
	case "code":
		return func(r *rtedoc.Inline, on bool) { r.Code = on }, true
	}
	return nil, false
}

func commandForBlock(kind rtedoc.Kind, level int) string {
	switch kind {
	case rtedoc.KindHeading:
		switch level {
		case 1:
			return "h1"
		case 2:
			return "h2"
		case 3:
			return "h3"
		}
		return "h1"
	case rtedoc.KindList:
		return "list"
	case rtedoc.KindQuote:
		return "quote"
	}
	return ""
}
