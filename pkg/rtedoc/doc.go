package rtedoc

import "strings"

// Kind identifies a top-level block type inside a rich document.
type Kind string

const (
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindList      Kind = "list"
	KindQuote     Kind = "quote"
	KindCodeFence Kind = "code_fence"
	KindHTML      Kind = "html"
)

// Image captures an inline image reference.
type Image struct {
	Src   string
	Alt   string
	Title string
}

// Inline is a single run of inline content: a marked text run, an image, or
// a hard line break. Exactly one of Text, Image, HardBreak is meaningful.
type Inline struct {
	Text      string
	Bold      bool
	Italic    bool
	Strike    bool
	Code      bool
	Link      string
	LinkTitle string
	Image     *Image
	HardBreak bool
}

// Block is one node of the document tree. Paragraphs and headings carry
// Inlines; lists carry Items (each item is a block sequence); quotes carry
// Children; fences and raw HTML carry Literal.
type Block struct {
	Kind     Kind
	Level    int
	Inlines  []Inline
	Ordered  bool
	Start    int
	Items    [][]Block
	Children []Block
	Language string
	Literal  string
}

// Doc is the structured rich document exchanged between the Markdown bridge
// and the RTE runtime.
type Doc struct {
	Blocks []Block
}

// BlockCount returns the number of top-level blocks.
func (d *Doc) BlockCount() int {
	if d == nil {
		return 0
	}
	return len(d.Blocks)
}

// IsEmpty reports whether the document has no content at all.
func (d *Doc) IsEmpty() bool {
	if d == nil || len(d.Blocks) == 0 {
		return true
	}
	for _, b := range d.Blocks {
		if !blockEmpty(b) {
			return false
		}
	}
	return true
}

func blockEmpty(b Block) bool {
	switch b.Kind {
	case KindParagraph, KindHeading:
		for _, in := range b.Inlines {
			if in.Image != nil || in.HardBreak || strings.TrimSpace(in.Text) != "" {
				return false
			}
		}
		return true
	case KindList:
		return len(b.Items) == 0
	case KindQuote:
		return len(b.Children) == 0
	default:
		return strings.TrimSpace(b.Literal) == ""
	}
}

// TrimTrailingEmptyParagraph drops a final empty paragraph block when
// present. Markdown parsers append one after single-block content in some
// configurations; single-block targets strip it before counting.
func (d *Doc) TrimTrailingEmptyParagraph() bool {
	if d == nil || len(d.Blocks) == 0 {
		return false
	}
	last := d.Blocks[len(d.Blocks)-1]
	if last.Kind != KindParagraph || !blockEmpty(last) {
		return false
	}
	d.Blocks = d.Blocks[:len(d.Blocks)-1]
	return true
}

// Clone returns a deep copy of the document.
func (d *Doc) Clone() *Doc {
	if d == nil {
		return nil
	}
	out := &Doc{Blocks: cloneBlocks(d.Blocks)}
	return out
}

func cloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
		if b.Inlines != nil {
			out[i].Inlines = make([]Inline, len(b.Inlines))
			copy(out[i].Inlines, b.Inlines)
			for j, in := range b.Inlines {
				if in.Image != nil {
					img := *in.Image
					out[i].Inlines[j].Image = &img
				}
			}
		}
		if b.Items != nil {
			out[i].Items = make([][]Block, len(b.Items))
			for j, item := range b.Items {
				out[i].Items[j] = cloneBlocks(item)
			}
		}
		if b.Children != nil {
			out[i].Children = cloneBlocks(b.Children)
		}
	}
	return out
}

// PlainText flattens the document into whitespace-joined text. Used by
// marker-target fallbacks that match catalog entries by substring.
func (d *Doc) PlainText() string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	writeBlocksText(&sb, d.Blocks)
	return strings.TrimSpace(sb.String())
}

func writeBlocksText(sb *strings.Builder, blocks []Block) {
	for _, b := range blocks {
		switch b.Kind {
		case KindParagraph, KindHeading:
			for _, in := range b.Inlines {
				if in.Text != "" {
					if sb.Len() > 0 {
						sb.WriteByte(' ')
					}
					sb.WriteString(in.Text)
				}
			}
		case KindList:
			for _, item := range b.Items {
				writeBlocksText(sb, item)
			}
		case KindQuote:
			writeBlocksText(sb, b.Children)
		default:
			if strings.TrimSpace(b.Literal) != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(strings.TrimSpace(b.Literal))
			}
		}
	}
}
