// Package index discovers every editable target on the rendered page and
// keys them for scope resolution and save replay. Wrapped fields come from
// data attributes, sections and subsections from comment markers merged
// with the server's section catalog.
package index

import (
	"encoding/base64"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/identity"
	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

// Entry is one indexed editable target together with its DOM handles.
// Element is nil for virtual (marker-delimited) targets.
type Entry struct {
	interfaces.EditableTarget

	// UUID is stable across rebuilds, derived from the composite id.
	UUID    uuid.UUID
	Element *dom.Element
	Marker  *dom.Marker
	Rect    dom.Rect
	HasRect bool
}

// GeometryFunc measures a page. The index re-measures on every rebuild so
// invalidation after DOM mutation stays cheap.
type GeometryFunc func(page *dom.Page) dom.Geometry

// Service owns the target index for one page. Rebuilds are lazy: mutation
// signals only mark the index dirty, the next query pays for the scan.
type Service struct {
	page     *dom.Page
	pageID   string
	measure  GeometryFunc
	logger   interfaces.Logger
	mu       sync.Mutex
	catalog  []interfaces.SectionIndexEntry
	dirty    bool
	entries  map[string]*Entry
	ordered  []*Entry
	geometry dom.Geometry
}

// New builds the index service. A nil measure falls back to FlowGeometry.
func New(page *dom.Page, pageID string, catalog []interfaces.SectionIndexEntry, measure GeometryFunc, provider interfaces.LoggerProvider) *Service {
	if measure == nil {
		measure = func(p *dom.Page) dom.Geometry { return dom.NewFlowGeometry(p) }
	}
	return &Service{
		page:    page,
		pageID:  pageID,
		measure: measure,
		catalog: catalog,
		logger:  logging.IndexLogger(provider),
		dirty:   true,
	}
}

// Invalidate marks the index dirty. Wired to scroll (debounced), resize,
// window load, image load, and post-save replay.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// SetCatalog replaces the cached section catalog (fresh sectionsIndex from
// a save response) and marks the index dirty.
func (s *Service) SetCatalog(catalog []interfaces.SectionIndexEntry) {
	s.mu.Lock()
	s.catalog = catalog
	s.dirty = true
	s.mu.Unlock()
}

// Catalog returns the current section catalog snapshot.
func (s *Service) Catalog() []interfaces.SectionIndexEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Get returns the entry with the given id, rebuilding first when dirty.
func (s *Service) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	e, ok := s.entries[id]
	return e, ok
}

// Entries returns every indexed target in document order.
func (s *Service) Entries() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	out := make([]*Entry, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// TargetAt returns the narrowest target whose rect covers the point:
// smallest-area rect wins ties, which realizes the scope refinement rule.
func (s *Service) TargetAt(x, y float64) *Entry {
	return s.pick(x, y, func(*Entry) bool { return true })
}

// MarkerTargetAt restricts hit-testing to virtual marker-delimited targets.
func (s *Service) MarkerTargetAt(x, y float64) *Entry {
	return s.pick(x, y, func(e *Entry) bool { return e.Virtual })
}

func (s *Service) pick(x, y float64, keep func(*Entry) bool) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	var best *Entry
	for _, e := range s.ordered {
		if !e.HasRect || !keep(e) || !e.Rect.Contains(x, y) {
			continue
		}
		if best == nil || e.Rect.Area() < best.Rect.Area() {
			best = e
		}
	}
	return best
}

// FindByText falls back to the section catalog: the first section or
// subsection whose Markdown contains the text (or vice versa) wins.
func (s *Service) FindByText(text string) *Entry {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	for _, e := range s.ordered {
		if !e.Virtual || e.Markdown == "" {
			continue
		}
		if strings.Contains(e.Markdown, text) || strings.Contains(text, e.Markdown) {
			return e
		}
	}
	return nil
}

// ElementFor exposes the page element backing an entry id.
func (s *Service) ElementFor(id string) (*dom.Element, bool) {
	e, ok := s.Get(id)
	if !ok || e.Element == nil {
		return nil, false
	}
	return e.Element, true
}

// Page exposes the underlying page for replay.
func (s *Service) Page() *dom.Page { return s.page }

func (s *Service) rebuildLocked() {
	if !s.dirty && s.entries != nil {
		return
	}
	s.geometry = s.measure(s.page)
	s.entries = map[string]*Entry{}
	s.ordered = s.ordered[:0]

	for _, el := range s.page.Editables() {
		entry := s.entryFromElement(el)
		if entry == nil {
			continue
		}
		s.insert(entry)
	}

	markers := s.page.Markers()
	for i := range markers {
		entry := s.entryFromMarker(&markers[i])
		if entry == nil {
			continue
		}
		s.insert(entry)
	}

	s.dirty = false
	s.logger.Debug("index.rebuilt", "targets", len(s.ordered))
}

// insert resolves duplicate ids toward the narrower scope.
func (s *Service) insert(entry *Entry) {
	if existing, ok := s.entries[entry.ID]; ok {
		if !entry.Scope.Narrower(existing.Scope) {
			return
		}
		for i, e := range s.ordered {
			if e == existing {
				s.ordered[i] = entry
				break
			}
		}
		s.entries[entry.ID] = entry
		return
	}
	s.entries[entry.ID] = entry
	s.ordered = append(s.ordered, entry)
}

func (s *Service) entryFromElement(el *dom.Element) *Entry {
	scopeAttr, ok := el.Dataset("mdScope")
	if !ok {
		return nil
	}
	scope := interfaces.Scope(scopeAttr)
	name, _ := el.Dataset("mdName")
	if name == "" {
		return nil
	}
	section, _ := el.Dataset("mdSection")
	subsection, _ := el.Dataset("mdSubsection")
	fieldType, _ := el.Dataset("fieldType")
	pageID, _ := el.Dataset("page")
	if pageID == "" {
		pageID = s.pageID
	}

	markdown := ""
	if b64, ok := el.Dataset("markdownB64"); ok && b64 != "" {
		if decoded, err := base64.StdEncoding.DecodeString(b64); err == nil {
			markdown = string(decoded)
		} else {
			s.logger.Warn("index.markdown_b64_invalid", "name", name, "error", err)
		}
	}
	if markdown == "" {
		markdown, _ = el.Dataset("markdown")
	}

	entry := &Entry{
		EditableTarget: interfaces.EditableTarget{
			ID:             composeID(scope, section, name),
			Scope:          scope,
			Kind:           kindForScope(scope),
			Name:           name,
			SectionName:    section,
			SubsectionName: subsection,
			PageID:         pageID,
			FieldType:      interfaces.FieldType(fieldType),
			Markdown:       markdown,
		},
		Element: el,
	}
	entry.UUID = identity.TargetUUID(pageID, string(scope), section, name)
	if rect, ok := s.geometry.ElementRect(el); ok {
		entry.Rect = rect
		entry.HasRect = true
	}
	return entry
}

func (s *Service) entryFromMarker(m *dom.Marker) *Entry {
	scope := interfaces.ScopeSection
	kind := interfaces.KindSection
	section := m.Name
	name := m.Name
	if m.Kind == dom.MarkerSubsection {
		scope = interfaces.ScopeSubsection
		kind = interfaces.KindSubsection
		section = m.Section
	}

	entry := &Entry{
		EditableTarget: interfaces.EditableTarget{
			ID:          m.Key(),
			Scope:       scope,
			Kind:        kind,
			Name:        name,
			SectionName: section,
			PageID:      s.pageID,
			FieldType:   interfaces.FieldBlock,
			Markdown:    s.catalogMarkdown(m),
			Virtual:     true,
		},
		Marker: m,
	}
	entry.UUID = identity.TargetUUID(s.pageID, string(scope), section, name)
	if scope == interfaces.ScopeSubsection {
		entry.SubsectionName = m.Name
	}

	var rect dom.Rect
	var has bool
	for _, el := range s.page.ElementsBetween(*m) {
		if r, ok := s.geometry.ElementRect(el); ok {
			rect = rect.Union(r)
			has = true
		}
	}
	entry.Rect = rect
	entry.HasRect = has
	return entry
}

func (s *Service) catalogMarkdown(m *dom.Marker) string {
	for _, sec := range s.catalog {
		if m.Kind == dom.MarkerSection && sec.Name == m.Name {
			return sec.Markdown
		}
		if m.Kind == dom.MarkerSubsection && sec.Name == m.Section {
			for _, sub := range sec.Subsections {
				if sub.Name == m.Name {
					return sub.Markdown
				}
			}
		}
	}
	return ""
}

func composeID(scope interfaces.Scope, section, name string) string {
	if section != "" {
		return string(scope) + ":" + section + ":" + name
	}
	return string(scope) + ":" + name
}

func kindForScope(scope interfaces.Scope) interfaces.TargetKind {
	switch scope {
	case interfaces.ScopeContainer:
		return interfaces.KindContainer
	case interfaces.ScopeSection:
		return interfaces.KindSection
	case interfaces.ScopeSubsection:
		return interfaces.KindSubsection
	default:
		return interfaces.KindTag
	}
}
