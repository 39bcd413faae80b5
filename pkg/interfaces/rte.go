package interfaces

import "github.com/goliatone/go-front-editor/pkg/rtedoc"

// Surface identifies the UI chrome an edit session mounts into.
type Surface string

const (
	SurfaceInline     Surface = "inline"
	SurfaceFullscreen Surface = "fullscreen"
)

// UpdateEvent is emitted by the RTE runtime after every document change.
// FromInit marks the synthetic event fired while loading the initial
// document; sessions must not flag the draft dirty for it.
type UpdateEvent struct {
	Doc      *rtedoc.Doc
	FromInit bool
}

// Editor is the capability set the engine requires from a rich-text runtime
// instance. The engine never reaches past this contract, so hosts can mount
// any editor able to exchange rtedoc documents.
type Editor interface {
	// Doc returns a snapshot of the current document.
	Doc() *rtedoc.Doc
	// SetDoc replaces the document. Implementations emit an UpdateEvent with
	// FromInit set.
	SetDoc(doc *rtedoc.Doc)
	// OnUpdate registers the change listener. A single listener is enough for
	// the engine; later registrations replace earlier ones.
	OnUpdate(fn func(UpdateEvent))
	// ToggleMark flips the named inline mark (bold, italic, strike, code) on
	// the current selection.
	ToggleMark(mark string) error
	// SetBlock converts the selected top-level block to the given kind. Level
	// is only meaningful for headings.
	SetBlock(kind rtedoc.Kind, level int) error
	// InsertBlocks appends blocks at the selection, as a paste would.
	InsertBlocks(blocks []rtedoc.Block) error
	// Undo rolls back the most recent change. Reports whether anything was
	// undone.
	Undo() bool
	// RenderDOM serializes the current document to HTML for writing back
	// into the page when a session detaches with a live draft.
	RenderDOM() string
	// Focus moves keyboard focus into the editor.
	Focus()
	// Destroy tears the editor down and releases its DOM.
	Destroy()
}

// EditorOptions configures a new RTE instance.
type EditorOptions struct {
	Surface Surface
	// AllowedCommands restricts toolbar/keyboard commands. Empty means all.
	AllowedCommands []string
}

// EditorFactory creates RTE instances. Injected into the module so the
// actual rich-text runtime stays an external collaborator.
type EditorFactory interface {
	CreateEditor(opts EditorOptions) Editor
}
