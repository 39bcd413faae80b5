// Package bridge converts between Markdown source and the rich document
// model. Parsing runs on goldmark; serialization is a direct renderer tuned
// for tight lists and hard line breaks. When the document is structurally
// unchanged the bridge returns the original source byte-for-byte, because
// the document model is lossy for raw inline HTML.
package bridge

import (
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/goliatone/go-front-editor/pkg/interfaces"
	"github.com/goliatone/go-front-editor/pkg/rtedoc"
)

// ErrParse reports Markdown that could not be converted into a document.
// Fatal to the owning session.
var ErrParse = errors.New("bridge: markdown parse failed")

// Bridge implements interfaces.MarkdownBridge on goldmark.
// Stateless; one instance serves every session.
type Bridge struct {
	md goldmark.Markdown
}

var _ interfaces.MarkdownBridge = (*Bridge)(nil)

// New constructs the bridge with the extension set the editor depends on:
// strikethrough, autolinks and task lists from GFM.
func New() *Bridge {
	return &Bridge{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Strikethrough,
				extension.Linkify,
			),
		),
	}
}

// Parse converts Markdown into a document. Soft line breaks are promoted to
// hard breaks so the editor shows the authored line structure.
func (b *Bridge) Parse(markdown string) (*rtedoc.Doc, error) {
	_, body, err := splitFrontMatter(markdown)
	if err != nil {
		return &rtedoc.Doc{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	src := []byte(body)
	root := b.md.Parser().Parse(text.NewReader(src))

	doc := &rtedoc.Doc{}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		block, ok := convertBlock(n, src)
		if !ok {
			continue
		}
		doc.Blocks = append(doc.Blocks, block)
	}
	return doc, nil
}

func convertBlocks(parent ast.Node, src []byte) []rtedoc.Block {
	var out []rtedoc.Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if block, ok := convertBlock(n, src); ok {
			out = append(out, block)
		}
	}
	return out
}

func convertBlock(n ast.Node, src []byte) (rtedoc.Block, bool) {
	switch node := n.(type) {
	case *ast.Heading:
		return rtedoc.Block{
			Kind:    rtedoc.KindHeading,
			Level:   node.Level,
			Inlines: convertInlines(node, src, inlineState{}),
		}, true
	case *ast.Paragraph:
		return rtedoc.Block{
			Kind:    rtedoc.KindParagraph,
			Inlines: convertInlines(node, src, inlineState{}),
		}, true
	case *ast.TextBlock:
		// tight list items carry text blocks instead of paragraphs
		return rtedoc.Block{
			Kind:    rtedoc.KindParagraph,
			Inlines: convertInlines(node, src, inlineState{}),
		}, true
	case *ast.List:
		block := rtedoc.Block{
			Kind:    rtedoc.KindList,
			Ordered: node.IsOrdered(),
			Start:   node.Start,
		}
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			block.Items = append(block.Items, convertBlocks(item, src))
		}
		return block, true
	case *ast.Blockquote:
		return rtedoc.Block{
			Kind:     rtedoc.KindQuote,
			Children: convertBlocks(node, src),
		}, true
	case *ast.FencedCodeBlock:
		return rtedoc.Block{
			Kind:     rtedoc.KindCodeFence,
			Language: string(node.Language(src)),
			Literal:  linesValue(node, src),
		}, true
	case *ast.CodeBlock:
		return rtedoc.Block{
			Kind:    rtedoc.KindCodeFence,
			Literal: linesValue(node, src),
		}, true
	case *ast.HTMLBlock:
		literal := linesValue(node, src)
		if node.HasClosure() {
			literal += string(node.ClosureLine.Value(src))
		}
		return rtedoc.Block{Kind: rtedoc.KindHTML, Literal: literal}, true
	case *ast.ThematicBreak:
		return rtedoc.Block{Kind: rtedoc.KindHTML, Literal: "---"}, true
	default:
		return rtedoc.Block{}, false
	}
}

func linesValue(n ast.Node, src []byte) string {
	var out []byte
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(src)...)
	}
	return string(out)
}

// inlineState carries the active mark set while descending inline trees.
type inlineState struct {
	bold, italic, strike, code bool
	link, linkTitle            string
}

func (s inlineState) apply(run *rtedoc.Inline) {
	run.Bold = s.bold
	run.Italic = s.italic
	run.Strike = s.strike
	run.Code = s.code
	run.Link = s.link
	run.LinkTitle = s.linkTitle
}

func convertInlines(parent ast.Node, src []byte, state inlineState) []rtedoc.Inline {
	var out []rtedoc.Inline
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, convertInline(n, src, state)...)
	}
	return out
}

func convertInline(n ast.Node, src []byte, state inlineState) []rtedoc.Inline {
	switch node := n.(type) {
	case *ast.Text:
		run := rtedoc.Inline{Text: string(node.Segment.Value(src))}
		state.apply(&run)
		out := []rtedoc.Inline{run}
		// soft breaks become hard breaks: the editor keeps authored lines
		if node.HardLineBreak() || node.SoftLineBreak() {
			out = append(out, rtedoc.Inline{HardBreak: true})
		}
		return out
	case *ast.String:
		run := rtedoc.Inline{Text: string(node.Value)}
		state.apply(&run)
		return []rtedoc.Inline{run}
	case *ast.CodeSpan:
		state.code = true
		return convertInlines(node, src, state)
	case *ast.Emphasis:
		if node.Level >= 2 {
			state.bold = true
		} else {
			state.italic = true
		}
		return convertInlines(node, src, state)
	case *east.Strikethrough:
		state.strike = true
		return convertInlines(node, src, state)
	case *ast.Link:
		state.link = string(node.Destination)
		state.linkTitle = string(node.Title)
		return convertInlines(node, src, state)
	case *ast.AutoLink:
		url := string(node.URL(src))
		run := rtedoc.Inline{Text: url}
		state.link = url
		state.apply(&run)
		return []rtedoc.Inline{run}
	case *ast.Image:
		return []rtedoc.Inline{{Image: &rtedoc.Image{
			Src:   string(node.Destination),
			Alt:   string(node.Text(src)),
			Title: string(node.Title),
		}}}
	case *ast.RawHTML:
		var raw []byte
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			raw = append(raw, seg.Value(src)...)
		}
		run := rtedoc.Inline{Text: string(raw)}
		state.apply(&run)
		return []rtedoc.Inline{run}
	default:
		return convertInlines(n, src, state)
	}
}

// Roundtrip returns original untouched when doc still parses equal to it,
// otherwise it serializes doc (re-attaching any front matter header the
// original carried). The comparison ignores a trailing empty paragraph on
// either side, so the padding block an attached editor carries does not
// force a re-serialization of unchanged source.
func (b *Bridge) Roundtrip(original string, doc *rtedoc.Doc) (string, error) {
	parsed, err := b.Parse(original)
	if err == nil && trimEqual(parsed, doc) {
		return original, nil
	}
	serialized, err := b.Serialize(doc)
	if err != nil {
		return "", err
	}
	header, _, ferr := splitFrontMatter(original)
	if ferr == nil && header != "" {
		return header + serialized, nil
	}
	return serialized, nil
}

func trimEqual(a, b *rtedoc.Doc) bool {
	if a.Equal(b) {
		return true
	}
	at, bt := a.Clone(), b.Clone()
	at.TrimTrailingEmptyParagraph()
	bt.TrimTrailingEmptyParagraph()
	return at.Equal(bt)
}
