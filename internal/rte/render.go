package rte

import (
	"fmt"
	"html"
	"strings"

	"github.com/goliatone/go-front-editor/pkg/rtedoc"
)

// RenderHTML serializes a document to the HTML fragment written back into
// the page on detach. Hard breaks become <br> so the visible page matches
// what the editor showed.
func RenderHTML(doc *rtedoc.Doc) string {
	if doc == nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range doc.Blocks {
		renderBlock(&sb, block)
	}
	return sb.String()
}

func renderBlock(sb *strings.Builder, block rtedoc.Block) {
	switch block.Kind {
	case rtedoc.KindHeading:
		level := block.Level
		if level < 1 || level > 6 {
			level = 1
		}
		fmt.Fprintf(sb, "<h%d>", level)
		renderInlines(sb, block.Inlines)
		fmt.Fprintf(sb, "</h%d>", level)
	case rtedoc.KindList:
		tag := "ul"
		if block.Ordered {
			tag = "ol"
		}
		sb.WriteString("<" + tag)
		if block.Ordered && block.Start > 1 {
			fmt.Fprintf(sb, ` start="%d"`, block.Start)
		}
		sb.WriteString(">")
		for _, item := range block.Items {
			sb.WriteString("<li>")
			for _, child := range item {
				// Tight lists inline the single paragraph.
				if child.Kind == rtedoc.KindParagraph && len(item) == 1 {
					renderInlines(sb, child.Inlines)
					continue
				}
				renderBlock(sb, child)
			}
			sb.WriteString("</li>")
		}
		sb.WriteString("</" + tag + ">")
	case rtedoc.KindQuote:
		sb.WriteString("<blockquote>")
		for _, child := range block.Children {
			renderBlock(sb, child)
		}
		sb.WriteString("</blockquote>")
	case rtedoc.KindCodeFence:
		sb.WriteString("<pre><code")
		if block.Language != "" {
			fmt.Fprintf(sb, ` class="language-%s"`, html.EscapeString(block.Language))
		}
		sb.WriteString(">")
		sb.WriteString(html.EscapeString(block.Literal))
		sb.WriteString("</code></pre>")
	case rtedoc.KindHTML:
		sb.WriteString(block.Literal)
	default:
		sb.WriteString("<p>")
		renderInlines(sb, block.Inlines)
		sb.WriteString("</p>")
	}
}

func renderInlines(sb *strings.Builder, runs []rtedoc.Inline) {
	for _, run := range runs {
		renderInline(sb, run)
	}
}

func renderInline(sb *strings.Builder, run rtedoc.Inline) {
	if run.HardBreak {
		sb.WriteString("<br>")
		return
	}
	if run.Image != nil {
		fmt.Fprintf(sb, `<img src="%s" alt="%s"`,
			html.EscapeString(run.Image.Src), html.EscapeString(run.Image.Alt))
		if run.Image.Title != "" {
			fmt.Fprintf(sb, ` title="%s"`, html.EscapeString(run.Image.Title))
		}
		sb.WriteString(">")
		return
	}

	var open, closers []string
	if run.Link != "" {
		attr := fmt.Sprintf(`<a href="%s"`, html.EscapeString(run.Link))
		if run.LinkTitle != "" {
			attr += fmt.Sprintf(` title="%s"`, html.EscapeString(run.LinkTitle))
		}
		open = append(open, attr+">")
		closers = append([]string{"</a>"}, closers...)
	}
	if run.Bold {
		open = append(open, "<strong>")
		closers = append([]string{"</strong>"}, closers...)
	}
	if run.Italic {
		open = append(open, "<em>")
		closers = append([]string{"</em>"}, closers...)
	}
	if run.Strike {
		open = append(open, "<del>")
		closers = append([]string{"</del>"}, closers...)
	}
	if run.Code {
		open = append(open, "<code>")
		closers = append([]string{"</code>"}, closers...)
	}

	for _, tag := range open {
		sb.WriteString(tag)
	}
	sb.WriteString(html.EscapeString(run.Text))
	for _, tag := range closers {
		sb.WriteString(tag)
	}
}
