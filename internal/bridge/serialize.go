package bridge

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-front-editor/pkg/rtedoc"
)

// Serialize renders the document as Markdown. Lists are tight, hard breaks
// write "\n", and HTML entities inside code fences are decoded so fenced
// source survives the editor's DOM round through entity encoding.
func (b *Bridge) Serialize(doc *rtedoc.Doc) (string, error) {
	if doc == nil {
		return "", nil
	}
	parts := make([]string, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		rendered, err := renderBlock(block, "")
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}
	return strings.Join(parts, "\n\n"), nil
}

func renderBlock(block rtedoc.Block, indent string) (string, error) {
	switch block.Kind {
	case rtedoc.KindHeading:
		level := block.Level
		if level < 1 {
			level = 1
		} else if level > 6 {
			level = 6
		}
		return indent + strings.Repeat("#", level) + " " + renderInlines(block.Inlines, indent), nil
	case rtedoc.KindParagraph:
		return indent + renderInlines(block.Inlines, indent), nil
	case rtedoc.KindList:
		return renderList(block, indent)
	case rtedoc.KindQuote:
		return renderQuote(block, indent)
	case rtedoc.KindCodeFence:
		body := decodeFenceEntities(strings.TrimRight(block.Literal, "\n"))
		var sb strings.Builder
		sb.WriteString(indent + "```" + block.Language + "\n")
		for _, line := range strings.Split(body, "\n") {
			sb.WriteString(indent + line + "\n")
		}
		sb.WriteString(indent + "```")
		return sb.String(), nil
	case rtedoc.KindHTML:
		return indent + strings.TrimRight(block.Literal, "\n"), nil
	default:
		return "", fmt.Errorf("bridge: unknown block kind %q", block.Kind)
	}
}

func renderList(block rtedoc.Block, indent string) (string, error) {
	var lines []string
	number := block.Start
	if number < 1 {
		number = 1
	}
	for _, item := range block.Items {
		marker := "- "
		if block.Ordered {
			marker = fmt.Sprintf("%d. ", number)
			number++
		}
		continuation := indent + strings.Repeat(" ", len(marker))
		var itemParts []string
		for i, child := range item {
			childIndent := continuation
			if i == 0 {
				childIndent = ""
			}
			rendered, err := renderBlock(child, childIndent)
			if err != nil {
				return "", err
			}
			itemParts = append(itemParts, rendered)
		}
		lines = append(lines, indent+marker+strings.Join(itemParts, "\n"))
	}
	return strings.Join(lines, "\n"), nil
}

func renderQuote(block rtedoc.Block, indent string) (string, error) {
	var parts []string
	for _, child := range block.Children {
		rendered, err := renderBlock(child, "")
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}
	joined := strings.Join(parts, "\n\n")
	var sb strings.Builder
	for i, line := range strings.Split(joined, "\n") {
		if i > 0 {
			sb.WriteString("\n")
		}
		if line == "" {
			sb.WriteString(indent + ">")
			continue
		}
		sb.WriteString(indent + "> " + line)
	}
	return sb.String(), nil
}

func renderInlines(runs []rtedoc.Inline, indent string) string {
	var sb strings.Builder
	for _, run := range runs {
		switch {
		case run.HardBreak:
			sb.WriteString("\n" + indent)
		case run.Image != nil:
			sb.WriteString("![" + run.Image.Alt + "](" + run.Image.Src)
			if run.Image.Title != "" {
				sb.WriteString(` "` + run.Image.Title + `"`)
			}
			sb.WriteString(")")
		default:
			sb.WriteString(renderRun(run))
		}
	}
	return sb.String()
}

func renderRun(run rtedoc.Inline) string {
	out := run.Text
	if run.Code {
		out = "`" + out + "`"
	}
	if run.Strike {
		out = "~~" + out + "~~"
	}
	if run.Italic {
		out = "*" + out + "*"
	}
	if run.Bold {
		out = "**" + out + "**"
	}
	if run.Link != "" {
		if run.LinkTitle != "" {
			out = "[" + out + "](" + run.Link + ` "` + run.LinkTitle + `")`
		} else {
			out = "[" + out + "](" + run.Link + ")"
		}
	}
	return out
}

// decodeFenceEntities undoes HTML entity encoding inside fence bodies.
// Inline HTML outside fences keeps its entities. &amp; decodes last so
// double-encoded sequences stay single-decoded.
func decodeFenceEntities(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
