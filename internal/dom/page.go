// Package dom wraps the parsed page tree with the handles the engine needs:
// editable-element lookup, dataset access, innerHTML replacement, comment
// marker ranges, and rect geometry for hit-testing.
package dom

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EditableClass marks server-wrapped editable regions.
const EditableClass = "fe-editable"

var ErrNodeDetached = errors.New("dom: node is no longer attached to the page")

// Page owns a parsed HTML tree.
type Page struct {
	root *html.Node
}

// Load parses a full HTML document.
func Load(r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Page{root: root}, nil
}

// LoadString parses a full HTML document from a string.
func LoadString(s string) (*Page, error) {
	return Load(strings.NewReader(s))
}

// Root exposes the underlying document node.
func (p *Page) Root() *html.Node { return p.root }

// Render serializes the page back to HTML.
func (p *Page) Render() string {
	var buf bytes.Buffer
	html.Render(&buf, p.root)
	return buf.String()
}

// Element is a live handle onto an element node of the page.
type Element struct {
	page *Page
	node *html.Node
}

// Node exposes the wrapped node.
func (e *Element) Node() *html.Node { return e.node }

// Tag returns the lowercase element name.
func (e *Element) Tag() string { return e.node.Data }

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr writes or replaces the named attribute.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// Dataset reads a data attribute by its camelCase dataset name, mirroring
// the DOM dataset API ("markdownB64" -> data-markdown-b64).
func (e *Element) Dataset(name string) (string, bool) {
	return e.Attr("data-" + camelToKebab(name))
}

// SetDataset writes a data attribute by dataset name.
func (e *Element) SetDataset(name, value string) {
	e.SetAttr("data-"+camelToKebab(name), value)
}

// HasClass reports whether the class attribute contains name.
func (e *Element) HasClass(name string) bool {
	classes, ok := e.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(classes) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends name to the class attribute when missing.
func (e *Element) AddClass(name string) {
	if e.HasClass(name) {
		return
	}
	classes, _ := e.Attr("class")
	e.SetAttr("class", strings.TrimSpace(classes+" "+name))
}

// RemoveClass strips name from the class attribute.
func (e *Element) RemoveClass(name string) {
	classes, ok := e.Attr("class")
	if !ok {
		return
	}
	kept := []string{}
	for _, c := range strings.Fields(classes) {
		if c != name {
			kept = append(kept, c)
		}
	}
	e.SetAttr("class", strings.Join(kept, " "))
}

// Parent returns the enclosing element, or nil at the tree top.
func (e *Element) Parent() *Element {
	for n := e.node.Parent; n != nil; n = n.Parent {
		if n.Type == html.ElementNode {
			return &Element{page: e.page, node: n}
		}
	}
	return nil
}

// Closest walks ancestors (self included) until pred matches.
func (e *Element) Closest(pred func(*Element) bool) *Element {
	for el := e; el != nil; el = el.Parent() {
		if pred(el) {
			return el
		}
	}
	return nil
}

// Contains reports whether other sits inside e's subtree.
func (e *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	for n := other.node; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// Text returns the whitespace-collapsed visible text of the subtree.
func (e *Element) Text() string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return sb.String()
}

// InnerHTML serializes the element's children.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}

// SetInnerHTML replaces the element's children with the parsed fragment.
func (e *Element) SetInnerHTML(fragment string) error {
	nodes, err := ParseFragment(fragment)
	if err != nil {
		return err
	}
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// ParseFragment parses an HTML fragment in a detached div context. Used for
// innerHTML replacement and for auditing pasted HTML without touching the
// live page.
func ParseFragment(fragment string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(fragment), ctx)
}

// Elements returns every element matching pred, in document order.
func (p *Page) Elements(pred func(*Element) bool) []*Element {
	var out []*Element
	p.walkElements(func(el *Element) {
		if pred(el) {
			out = append(out, el)
		}
	})
	return out
}

// Editables returns every element carrying the editable wrapper class or a
// data-md-scope attribute.
func (p *Page) Editables() []*Element {
	return p.Elements(func(el *Element) bool {
		if el.HasClass(EditableClass) {
			return true
		}
		_, ok := el.Attr("data-md-scope")
		return ok
	})
}

func (p *Page) walkElements(fn func(*Element)) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			fn(&Element{page: p, node: n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.root)
}

// camelToKebab converts dataset names to attribute suffixes.
func camelToKebab(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
