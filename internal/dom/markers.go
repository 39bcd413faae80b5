package dom

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// MarkerKind distinguishes section and subsection comment markers.
type MarkerKind string

const (
	MarkerSection    MarkerKind = "section"
	MarkerSubsection MarkerKind = "subsection"
)

// Marker is a matched start/end comment pair delimiting a region without a
// DOM wrapper: <!--mfe:section:start NAME--> ... <!--mfe:section:end NAME-->
// and <!--mfe:subsection:start SEC::SUB--> ... end.
type Marker struct {
	Kind    MarkerKind
	Section string
	Name    string
	Start   *html.Node
	End     *html.Node
}

// Key composes the index key the marker region is addressed by.
func (m Marker) Key() string {
	if m.Kind == MarkerSubsection {
		return "subsection:" + m.Section + ":" + m.Name
	}
	return "section:" + m.Name
}

var markerRe = regexp.MustCompile(`^\s*mfe:(section|subsection):(start|end)\s+(.+?)\s*$`)

// Markers scans comment nodes and pairs up start/end markers. Unpaired
// markers are dropped.
func (p *Page) Markers() []Marker {
	type open struct {
		marker Marker
	}
	var out []Marker
	pending := map[string]*open{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			if m := markerRe.FindStringSubmatch(n.Data); m != nil {
				kind, edge, payload := MarkerKind(m[1]), m[2], m[3]
				section, name := splitMarkerPayload(kind, payload)
				key := string(kind) + "\x00" + section + "\x00" + name
				if edge == "start" {
					pending[key] = &open{marker: Marker{
						Kind:    kind,
						Section: section,
						Name:    name,
						Start:   n,
					}}
				} else if o, ok := pending[key]; ok {
					o.marker.End = n
					out = append(out, o.marker)
					delete(pending, key)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.root)
	return out
}

func splitMarkerPayload(kind MarkerKind, payload string) (section, name string) {
	if kind == MarkerSubsection {
		if idx := strings.Index(payload, "::"); idx >= 0 {
			return payload[:idx], payload[idx+2:]
		}
	}
	return "", payload
}

// ElementsBetween returns elements whose nodes sit strictly between the
// marker's start and end comments, in document order. Only siblings of the
// markers and their descendants qualify.
func (p *Page) ElementsBetween(m Marker) []*Element {
	if m.Start == nil || m.End == nil {
		return nil
	}
	var out []*Element
	for n := m.Start.NextSibling; n != nil && n != m.End; n = n.NextSibling {
		collectElements(p, n, &out)
	}
	return out
}

func collectElements(p *Page, n *html.Node, out *[]*Element) {
	if n.Type == html.ElementNode {
		*out = append(*out, &Element{page: p, node: n})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectElements(p, c, out)
	}
}

// ReplaceRange swaps the nodes between the marker pair with the parsed
// fragment, keeping both comment markers in place.
func (p *Page) ReplaceRange(m Marker, fragment string) error {
	if m.Start == nil || m.End == nil {
		return fmt.Errorf("dom: marker %q has no end node", m.Key())
	}
	parent := m.Start.Parent
	if parent == nil || m.End.Parent != parent {
		return fmt.Errorf("dom: marker %q start/end are not siblings: %w", m.Key(), ErrNodeDetached)
	}
	for n := m.Start.NextSibling; n != nil && n != m.End; {
		next := n.NextSibling
		parent.RemoveChild(n)
		n = next
	}
	nodes, err := ParseFragment(fragment)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		parent.InsertBefore(n, m.End)
	}
	return nil
}
