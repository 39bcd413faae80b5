package interfaces

import "strings"

// Scope classifies which kind of region a target represents. Ordering
// matters: narrower scopes refine wider ones when rects overlap.
type Scope string

const (
	ScopeField      Scope = "field"
	ScopeContainer  Scope = "container"
	ScopeSection    Scope = "section"
	ScopeSubsection Scope = "subsection"
)

// Narrower reports whether s addresses a strictly smaller region class than
// other: field < container < subsection < section.
func (s Scope) Narrower(other Scope) bool {
	return scopeRank(s) < scopeRank(other)
}

func scopeRank(s Scope) int {
	switch s {
	case ScopeField:
		return 0
	case ScopeContainer:
		return 1
	case ScopeSubsection:
		return 2
	case ScopeSection:
		return 3
	default:
		return 4
	}
}

// TargetKind mirrors the source annotation the region came from.
type TargetKind string

const (
	KindTag        TargetKind = "tag"
	KindContainer  TargetKind = "container"
	KindBind       TargetKind = "bind"
	KindSection    TargetKind = "section"
	KindSubsection TargetKind = "subsection"
)

// FieldType describes the block shape a field renders as.
type FieldType string

const (
	FieldHeading   FieldType = "heading"
	FieldParagraph FieldType = "paragraph"
	FieldList      FieldType = "list"
	FieldQuote     FieldType = "quote"
	FieldBlock     FieldType = "block"
	FieldContainer FieldType = "container"
)

// EditableTarget is the atomic unit of editing: a contiguous region of the
// rendered page whose source is a known slice of the page's Markdown.
// ID is unique within a page. Virtual targets come from comment-marker
// regions and carry no DOM wrapper.
type EditableTarget struct {
	ID             string
	Scope          Scope
	Kind           TargetKind
	Name           string
	SectionName    string
	SubsectionName string
	PageID         string
	FieldType      FieldType
	Markdown       string
	Virtual        bool
}

// FieldID composes the draft/session key: pageId|scope|section|name.
func (t EditableTarget) FieldID() string {
	return t.PageID + "|" + string(t.Scope) + "|" + t.SectionName + "|" + t.Name
}

// CompositeID composes the save-replay key: pageId:scope:section:name with
// empty parts collapsed, matching what the host echoes in its html map.
func (t EditableTarget) CompositeID() string {
	parts := []string{t.PageID, string(t.Scope)}
	if t.SectionName != "" {
		parts = append(parts, t.SectionName)
	}
	parts = append(parts, t.Name)
	return strings.Join(parts, ":")
}

// SingleBlock reports whether the target must stay exactly one block.
func (t EditableTarget) SingleBlock() bool {
	if t.Kind != KindTag {
		return false
	}
	switch t.FieldType {
	case FieldHeading, FieldParagraph, FieldList, FieldQuote:
		return true
	default:
		return false
	}
}
