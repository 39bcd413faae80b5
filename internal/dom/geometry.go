package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Rect is a viewport-space bounding box.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether the point sits inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Area returns the rect surface. Hit-testing prefers smaller areas.
func (r Rect) Area() float64 { return r.W * r.H }

// Union returns the minimal rect covering both.
func (r Rect) Union(other Rect) Rect {
	if r.W == 0 && r.H == 0 {
		return other
	}
	if other.W == 0 && other.H == 0 {
		return r
	}
	x1, y1 := min(r.X, other.X), min(r.Y, other.Y)
	x2 := max(r.X+r.W, other.X+other.W)
	y2 := max(r.Y+r.H, other.Y+other.H)
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Geometry supplies element bounds. The engine carries no layout engine, so
// rects come from a collaborator: browsers inject measured rects, tests and
// headless hosts use FlowGeometry.
type Geometry interface {
	ElementRect(el *Element) (Rect, bool)
}

// FlowGeometry derives synthetic rects from document order: every text run
// occupies one row, an element spans the rows of the text it contains, and
// nesting indents the box. Nested elements therefore always have strictly
// smaller areas than their ancestors, which is the property hit-testing
// relies on.
type FlowGeometry struct {
	PageWidth float64
	RowHeight float64
	Indent    float64

	page  *Page
	rows  map[*html.Node]int // text node -> row index
	depth map[*html.Node]int
}

// NewFlowGeometry measures the supplied page. Re-measure after structural
// page mutations by constructing a fresh instance.
func NewFlowGeometry(p *Page) *FlowGeometry {
	g := &FlowGeometry{
		PageWidth: 1000,
		RowHeight: 20,
		Indent:    10,
		page:      p,
		rows:      map[*html.Node]int{},
		depth:     map[*html.Node]int{},
	}
	row := 0
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		switch n.Type {
		case html.TextNode:
			if trimmedLen(n.Data) > 0 {
				g.rows[n] = row
				row++
			}
		case html.ElementNode:
			g.depth[n] = depth
			if n.DataAtom == atom.Img {
				// images occupy a row of their own
				g.rows[n] = row
				row++
			}
			depth++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth)
		}
	}
	walk(p.root, 0)
	return g
}

// ElementRect implements Geometry.
func (g *FlowGeometry) ElementRect(el *Element) (Rect, bool) {
	first, last := -1, -1
	var scan func(*html.Node)
	scan = func(n *html.Node) {
		if r, ok := g.rows[n]; ok {
			if first < 0 || r < first {
				first = r
			}
			if r > last {
				last = r
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			scan(c)
		}
	}
	scan(el.node)
	if first < 0 {
		return Rect{}, false
	}
	depth := float64(g.depth[el.node])
	x := depth * g.Indent
	w := g.PageWidth - 2*x
	if w <= 0 {
		w = g.Indent
	}
	return Rect{
		X: x,
		Y: float64(first) * g.RowHeight,
		W: w,
		H: float64(last-first+1) * g.RowHeight,
	}, true
}

func trimmedLen(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			n++
		}
	}
	return n
}
