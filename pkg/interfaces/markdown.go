package interfaces

import "github.com/goliatone/go-front-editor/pkg/rtedoc"

// MarkdownBridge converts between Markdown text and the rich document model.
// Implementations must keep Serialize idempotent on the document: serializing
// and re-parsing yields an equal document.
type MarkdownBridge interface {
	// Parse converts Markdown into a document. Soft line breaks become hard
	// breaks; images, inline code, code fences and strikethrough are
	// first-class.
	Parse(markdown string) (*rtedoc.Doc, error)
	// Serialize renders the document as Markdown with tight lists and "\n"
	// hard breaks. HTML entities inside code fences are decoded.
	Serialize(doc *rtedoc.Doc) (string, error)
	// Roundtrip returns original unchanged when doc is structurally equal to
	// Parse(original); otherwise it serializes doc. Preserving the source
	// avoids gratuitous diffs for raw inline HTML the document model cannot
	// represent.
	Roundtrip(original string, doc *rtedoc.Doc) (string, error)
}
