// Package fronteditor turns a rendered CMS page into an editable surface:
// double-click resolves a Markdown-backed region, mounts a rich-text
// session on it, and saves the result back to the host.
package fronteditor

import (
	"context"
	"net/http"

	"github.com/goliatone/go-front-editor/internal/bridge"
	"github.com/goliatone/go-front-editor/internal/constraints"
	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/index"
	"github.com/goliatone/go-front-editor/internal/logging/gologger"
	"github.com/goliatone/go-front-editor/internal/overlay"
	"github.com/goliatone/go-front-editor/internal/resolve"
	"github.com/goliatone/go-front-editor/internal/rte"
	"github.com/goliatone/go-front-editor/internal/save"
	"github.com/goliatone/go-front-editor/internal/session"
	"github.com/goliatone/go-front-editor/internal/status"
	"github.com/goliatone/go-front-editor/internal/windows"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

// Option overrides one of the module's collaborators.
type Option func(*Module)

// WithLoggerProvider injects the logger provider every service logs through.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(m *Module) { m.provider = provider }
}

// WithEditorFactory swaps the built-in in-memory RTE for the host's own.
func WithEditorFactory(factory interfaces.EditorFactory) Option {
	return func(m *Module) { m.factory = factory }
}

// WithHostClient replaces the HTTP host client, mostly for tests.
func WithHostClient(client interfaces.HostClient) Option {
	return func(m *Module) { m.client = client }
}

// WithHTTPClient sets the http.Client the default host client uses.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Module) { m.httpClient = client }
}

// WithScheduler replaces the status timers, mostly for tests.
func WithScheduler(sched interfaces.Scheduler) Option {
	return func(m *Module) { m.scheduler = sched }
}

// WithGeometry replaces the layout measurement used for hit-testing.
func WithGeometry(measure index.GeometryFunc) Option {
	return func(m *Module) { m.measure = measure }
}

// Module is the top-level editable-region engine for one page.
type Module struct {
	cfg  Config
	page *dom.Page

	provider   interfaces.LoggerProvider
	factory    interfaces.EditorFactory
	client     interfaces.HostClient
	httpClient *http.Client
	scheduler  interfaces.Scheduler
	measure    index.GeometryFunc

	idx      *index.Service
	bridge   *bridge.Bridge
	rules    *constraints.Engine
	overlay  *overlay.Engine
	resolver *resolve.Resolver
	status   *status.Manager
	sessions *session.Controller
	windows  *windows.Manager
	saves    *save.Coordinator
}

// New builds the engine over a rendered page.
func New(cfg Config, pageHTML string, opts ...Option) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	page, err := dom.LoadString(pageHTML)
	if err != nil {
		return nil, err
	}

	m := &Module{cfg: cfg, page: page, factory: rte.Factory{}}
	for _, opt := range opts {
		opt(m)
	}

	if m.provider == nil {
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.AddSource,
			Focus:     cfg.Logging.Focus,
		})
		if err != nil {
			return nil, err
		}
		m.provider = provider
	}
	if m.client == nil {
		m.client = save.NewClient(cfg.PageURL, m.httpClient, m.provider)
	}

	m.idx = index.New(page, cfg.PageID, cfg.SectionsIndex, m.measure, m.provider)
	m.bridge = bridge.New()
	m.rules = constraints.New(&m.cfg, m.bridge, m.provider)
	m.overlay = overlay.New(m.idx, m.provider)
	m.resolver = resolve.New(m.idx, m.overlay, m.provider)
	m.status = status.New(m.scheduler, m.provider)
	m.sessions = session.New(m.idx, m.bridge, m.rules, m.status, m.factory, m.provider)
	m.windows = windows.New(m.provider)
	m.saves = save.NewCoordinator(m.client, m.idx, m.sessions, m.status, m.provider)

	m.windows.OnSave(func() {
		ctx := context.Background()
		if sess := m.sessions.Active(); sess != nil {
			if draft, ok := m.sessions.Draft(sess.FieldID()); ok && draft.Dirty {
				_ = m.saves.SaveDraft(ctx, draft)
				return
			}
			m.status.NoChanges()
		}
	})
	return m, nil
}

// Index exposes the content index.
func (m *Module) Index() *index.Service { return m.idx }

// Bridge exposes the Markdown bridge.
func (m *Module) Bridge() interfaces.MarkdownBridge { return m.bridge }

// Constraints exposes the per-target rule engine.
func (m *Module) Constraints() *constraints.Engine { return m.rules }

// Overlay exposes the hover-highlight engine.
func (m *Module) Overlay() *overlay.Engine { return m.overlay }

// Resolver exposes the gesture policy.
func (m *Module) Resolver() *resolve.Resolver { return m.resolver }

// Sessions exposes the session controller.
func (m *Module) Sessions() *session.Controller { return m.sessions }

// Windows exposes the window stack.
func (m *Module) Windows() *windows.Manager { return m.windows }

// Saves exposes the save coordinator.
func (m *Module) Saves() *save.Coordinator { return m.saves }

// Status returns the current save status.
func (m *Module) Status() status.State { return m.status.State() }

// Page exposes the page DOM, mostly for rendering assertions.
func (m *Module) Page() *dom.Page { return m.page }

// HandleDoubleClick resolves the gesture and opens the edit session it
// asks for. The resolution is returned so hosts can render accordingly.
func (m *Module) HandleDoubleClick(ev resolve.PointerEvent, el *dom.Element) (resolve.Resolution, error) {
	res := m.resolver.Resolve(ev, el)
	if res.Action == resolve.ActionNone {
		return res, nil
	}

	surface := interfaces.SurfaceFullscreen
	if res.Action == resolve.ActionInline {
		surface = interfaces.SurfaceInline
	}
	if _, err := m.sessions.Attach(res.Target, surface); err != nil {
		return res, err
	}

	if surface == interfaces.SurfaceFullscreen {
		m.overlay.Suppress(true)
		// Clicking the base crumb pops the auxiliary windows and hands
		// focus back to the session's editor.
		m.windows.SetBase(windows.BasePathFor(res.Target.EditableTarget), func() {
			if sess := m.sessions.Active(); sess != nil {
				sess.Editor.Focus()
			}
		})
		m.windows.Push(res.Target.Name, func() {
			m.closeActiveSession()
		})
	}
	return res, nil
}

// Edit opens a programmatic fullscreen session on arbitrary Markdown,
// detached from any page region. onSave receives the edited Markdown.
func (m *Module) Edit(markdown string, onSave func(markdown string), fieldType string) error {
	entry := &index.Entry{
		EditableTarget: interfaces.EditableTarget{
			ID:        "api:edit",
			Scope:     interfaces.ScopeField,
			Kind:      interfaces.KindTag,
			Name:      "edit",
			PageID:    m.cfg.PageID,
			FieldType: interfaces.FieldType(fieldType),
			Markdown:  markdown,
		},
		Marker: nil,
	}
	if _, err := m.sessions.Attach(entry, interfaces.SurfaceFullscreen); err != nil {
		return err
	}

	m.overlay.Suppress(true)
	m.windows.Push("edit", func() {
		if onSave != nil {
			if md, err := m.sessions.GetMarkdown(); err == nil {
				onSave(md)
			}
		}
		_, _ = m.sessions.Detach(session.DetachOptions{})
		m.overlay.Suppress(false)
	})
	return nil
}

// Close pops the topmost window, detaching its session.
func (m *Module) Close() bool { return m.windows.Pop() }

// IsOpen reports whether any editor window is up.
func (m *Module) IsOpen() bool { return m.windows.Depth() > 0 }

// GetMarkdown returns the active session's current Markdown.
func (m *Module) GetMarkdown() (string, error) { return m.sessions.GetMarkdown() }

// ShouldWarnBeforeUnload reports whether navigation would lose edits.
func (m *Module) ShouldWarnBeforeUnload() bool { return m.sessions.ShouldWarnBeforeUnload() }

// SaveActive saves the active session's draft.
func (m *Module) SaveActive(ctx context.Context) error {
	sess := m.sessions.Active()
	if sess == nil {
		return session.ErrNoActiveSession
	}
	draft, ok := m.sessions.Draft(sess.FieldID())
	if !ok || !draft.Dirty {
		m.status.NoChanges()
		return nil
	}
	return m.saves.SaveDraft(ctx, draft)
}

// SaveAll batch-saves every dirty draft on the page.
func (m *Module) SaveAll(ctx context.Context) error {
	return m.saves.SaveAllDirty(ctx, m.cfg.PageID)
}

func (m *Module) closeActiveSession() {
	if m.sessions.Active() != nil {
		_, _ = m.sessions.Detach(session.DetachOptions{PersistDraft: true})
	}
	if m.windows.Depth() == 0 {
		m.overlay.Suppress(false)
	}
}
