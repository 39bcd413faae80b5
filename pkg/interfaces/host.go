package interfaces

import "context"

// Token is the CSRF tuple extracted from the host's token endpoint.
type Token struct {
	Name  string
	Value string
}

// FieldSave is one field in a save request. Key is the composite field id
// (pageId|scope|section|name) the host echoes back in its html map.
type FieldSave struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Scope    string `json:"scope"`
	Section  string `json:"section"`
	Markdown string `json:"markdown"`
}

// SingleSaveRequest is the form-encoded body of a one-field save.
type SingleSaveRequest struct {
	Markdown string
	Name     string
	Scope    string
	Section  string
	PageID   string
	FieldID  string
	Lang     string
}

// BatchSaveRequest posts every dirty field of a page in one request.
type BatchSaveRequest struct {
	PageID string
	Fields []FieldSave
}

// SectionIndexEntry is the server's authoritative snapshot of a section or
// subsection, used when a target has no DOM wrapper.
type SectionIndexEntry struct {
	Name        string              `json:"name"`
	Markdown    string              `json:"markdown"`
	Subsections []SectionIndexEntry `json:"subsections,omitempty"`
}

// SaveResponse is the host's answer to either save shape. HTMLMap keys are
// field-id-like; every page region matching a key gets rewritten.
type SaveResponse struct {
	OK            bool
	Message       string
	HTMLMap       map[string]string
	Markdowns     map[string]string
	SectionsIndex []SectionIndexEntry
}

// ImageInfo describes one entry returned by the host's image listing.
type ImageInfo struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// HostClient is the transport to the page's host server. Implementations
// wrap the query-parameter endpoints the host exposes on the page URL.
type HostClient interface {
	FetchToken(ctx context.Context) (Token, error)
	SaveField(ctx context.Context, token Token, req SingleSaveRequest) (*SaveResponse, error)
	SaveBatch(ctx context.Context, token Token, req BatchSaveRequest) (*SaveResponse, error)
	// Translations fetches per-language Markdown for a field.
	Translations(ctx context.Context, name, pageID, scope, section string) (map[string]string, error)
	ListImages(ctx context.Context, pageID string) ([]ImageInfo, error)
}
