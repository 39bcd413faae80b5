// Package session runs edit sessions: it mounts the RTE on a target,
// tracks drafts by field id, and tears down without losing unsaved work.
package session

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-front-editor/internal/constraints"
	"github.com/goliatone/go-front-editor/internal/identity"
	"github.com/goliatone/go-front-editor/internal/index"
	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/internal/status"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
	"github.com/goliatone/go-front-editor/pkg/rtedoc"
)

// ErrNoActiveSession rejects operations that need a mounted session.
var ErrNoActiveSession = errors.New("session: no active session")

// ErrAlreadyAttached rejects a second attach without a detach.
var ErrAlreadyAttached = errors.New("session: a session is already active")

// Draft is the unsaved edit state for one field.
type Draft struct {
	Target   interfaces.EditableTarget
	Doc      *rtedoc.Doc
	Markdown string
	Dirty    bool
	// OriginalHTML is the element's markup before the first edit; a
	// discard restores it even after the draft was persisted into the
	// page. Committed saves refresh it.
	OriginalHTML string
}

// Session is one mounted editor.
type Session struct {
	Target  *index.Entry
	Surface interfaces.Surface
	Editor  interfaces.Editor

	id                 uuid.UUID
	fieldID            string
	originalHTML       string
	originalMarkdown   string
	originalBlockCount int
}

// ID is the session's stable identifier. Re-attaching to the same field
// yields the same id, so host-side telemetry can correlate sessions.
func (s *Session) ID() uuid.UUID { return s.id }

// FieldID returns the draft key for this session.
func (s *Session) FieldID() string { return s.fieldID }

// OriginalBlockCount returns the block count of the initial document.
func (s *Session) OriginalBlockCount() int { return s.originalBlockCount }

// DetachOptions steer tear-down.
type DetachOptions struct {
	// SaveOnClose asks the caller to run a save after detach.
	SaveOnClose bool
	// PromptOnClose surfaces ConfirmDiscard when dirty drafts exist.
	PromptOnClose bool
	// KeepToolbar leaves the toolbar chrome mounted for a follow-up attach.
	KeepToolbar bool
	// PersistDraft writes the editor's DOM back into the page so the
	// visible content reflects the unsaved edit.
	PersistDraft bool
	// ConfirmDiscard reports whether the user agreed to drop dirty drafts.
	// Only consulted when PromptOnClose is set.
	ConfirmDiscard func() bool
}

// DetachResult reports what tear-down decided.
type DetachResult struct {
	// SaveRequested relays SaveOnClose to the save coordinator.
	SaveRequested bool
	// Aborted is set when the user declined the discard prompt; the
	// session stays mounted.
	Aborted bool
}

// Controller owns the active session and the draft store for one page.
type Controller struct {
	idx     *index.Service
	bridge  interfaces.MarkdownBridge
	rules   *constraints.Engine
	status  *status.Manager
	factory interfaces.EditorFactory
	logger  interfaces.Logger

	active *Session
	drafts map[string]*Draft
	pane   int
}

// New wires the controller.
func New(
	idx *index.Service,
	bridge interfaces.MarkdownBridge,
	rules *constraints.Engine,
	st *status.Manager,
	factory interfaces.EditorFactory,
	provider interfaces.LoggerProvider,
) *Controller {
	return &Controller{
		idx:     idx,
		bridge:  bridge,
		rules:   rules,
		status:  st,
		factory: factory,
		logger:  logging.SessionLogger(provider),
		drafts:  map[string]*Draft{},
	}
}

// Active returns the mounted session, or nil.
func (c *Controller) Active() *Session { return c.active }

// Draft returns the stored draft for a field id.
func (c *Controller) Draft(fieldID string) (*Draft, bool) {
	d, ok := c.drafts[fieldID]
	return d, ok
}

// DirtyDrafts returns every draft with unsaved edits.
func (c *Controller) DirtyDrafts() []*Draft {
	var out []*Draft
	for _, d := range c.drafts {
		if d.Dirty {
			out = append(out, d)
		}
	}
	return out
}

// HasDirty reports whether any field holds unsaved edits.
func (c *Controller) HasDirty() bool {
	for _, d := range c.drafts {
		if d.Dirty {
			return true
		}
	}
	return false
}

// Attach mounts an editor on the target. A live draft for the same field
// repopulates the editor instead of re-parsing Markdown, which is what
// keeps edits across inline/fullscreen switches.
func (c *Controller) Attach(target *index.Entry, surface interfaces.Surface) (*Session, error) {
	if c.active != nil {
		return nil, ErrAlreadyAttached
	}

	fieldID := target.FieldID()
	ruleSet := c.rules.Resolve(target.EditableTarget)
	editor := c.factory.CreateEditor(interfaces.EditorOptions{
		Surface:         surface,
		AllowedCommands: ruleSet.CommandList(),
	})

	sess := &Session{
		Target:           target,
		Surface:          surface,
		Editor:           editor,
		id:               identity.SessionUUID(fieldID),
		fieldID:          fieldID,
		originalMarkdown: target.Markdown,
	}
	if target.Element != nil {
		sess.originalHTML = target.Element.InnerHTML()
	}

	doc, err := c.initialDoc(target, fieldID)
	if err != nil {
		editor.Destroy()
		return nil, err
	}
	sess.originalBlockCount = doc.BlockCount()

	logger := logging.WithSessionContext(c.logger, fieldID, string(target.Scope), string(surface))
	editor.OnUpdate(func(ev interfaces.UpdateEvent) {
		if ev.FromInit {
			return
		}
		c.recordEdit(sess, ev.Doc, logger)
	})
	editor.SetDoc(doc)
	editor.Focus()

	c.active = sess
	c.pane = 0
	logger.Info("session.attach", "blocks", sess.originalBlockCount)
	return sess, nil
}

// initialDoc builds the document the editor starts from: the live draft
// when one exists, otherwise the target's Markdown through the bridge.
func (c *Controller) initialDoc(target *index.Entry, fieldID string) (*rtedoc.Doc, error) {
	if draft, ok := c.drafts[fieldID]; ok && draft.Doc != nil {
		return draft.Doc.Clone(), nil
	}
	doc, err := c.bridge.Parse(target.Markdown)
	if err != nil {
		return nil, err
	}
	if target.SingleBlock() {
		doc.TrimTrailingEmptyParagraph()
	}
	return doc, nil
}

// recordEdit is the modification listener: it snapshots the draft, runs
// the block-count audit, and flags the status machine.
func (c *Controller) recordEdit(sess *Session, doc *rtedoc.Doc, logger interfaces.Logger) {
	if c.rules.Audit(sess.Target.EditableTarget, sess.Editor) {
		doc = sess.Editor.Doc()
	}

	markdown, err := c.bridge.Roundtrip(sess.originalMarkdown, doc)
	if err != nil {
		logger.Error("session.serialize_failed", "error", err)
		return
	}

	// A re-attach after persistDraft snapshots the draft markup, not the
	// page's; the first dirty snapshot is the one a discard restores.
	originalHTML := sess.originalHTML
	if prev, ok := c.drafts[sess.fieldID]; ok && prev.Dirty && prev.OriginalHTML != "" {
		originalHTML = prev.OriginalHTML
	}

	c.drafts[sess.fieldID] = &Draft{
		Target:       sess.Target.EditableTarget,
		Doc:          doc.Clone(),
		Markdown:     markdown,
		Dirty:        true,
		OriginalHTML: originalHTML,
	}
	c.status.MarkDirty(sess.fieldID)
}

// Detach unmounts the active session.
func (c *Controller) Detach(opts DetachOptions) (DetachResult, error) {
	sess := c.active
	if sess == nil {
		return DetachResult{}, ErrNoActiveSession
	}

	if opts.PromptOnClose && c.HasDirty() {
		confirmed := opts.ConfirmDiscard != nil && opts.ConfirmDiscard()
		if !confirmed {
			return DetachResult{Aborted: true}, nil
		}
		c.discardAll()
		c.teardown(sess)
		return DetachResult{}, nil
	}

	if opts.PersistDraft {
		c.persistDraft(sess)
	}

	c.teardown(sess)
	return DetachResult{SaveRequested: opts.SaveOnClose}, nil
}

// SwitchSurface remounts the active session on the other surface. The
// draft carries over by field id.
func (c *Controller) SwitchSurface(surface interfaces.Surface) (*Session, error) {
	sess := c.active
	if sess == nil {
		return nil, ErrNoActiveSession
	}
	if sess.Surface == surface {
		return sess, nil
	}
	target := sess.Target
	c.teardown(sess)
	return c.Attach(target, surface)
}

// GetMarkdown returns the current Markdown for the active session: the
// draft when dirty, the original otherwise.
func (c *Controller) GetMarkdown() (string, error) {
	sess := c.active
	if sess == nil {
		return "", ErrNoActiveSession
	}
	if draft, ok := c.drafts[sess.fieldID]; ok && draft.Dirty {
		return draft.Markdown, nil
	}
	return sess.originalMarkdown, nil
}

// MarkSaved commits a field: the draft stops being dirty but its content
// stays for a later resume.
func (c *Controller) MarkSaved(fieldID string) {
	if d, ok := c.drafts[fieldID]; ok {
		d.Dirty = false
		// The replayed markup is the new baseline a discard returns to.
		if entry, found := c.idx.Get(d.Target.ID); found && entry.Element != nil {
			d.OriginalHTML = entry.Element.InnerHTML()
		}
	}
	c.status.ClearDirty(fieldID)
}

// DiscardAll drops every draft and restores the originals on the page.
func (c *Controller) DiscardAll() {
	c.discardAll()
	if c.active != nil {
		c.teardown(c.active)
	}
}

// ShouldWarnBeforeUnload reports whether navigation needs a confirmation.
func (c *Controller) ShouldWarnBeforeUnload() bool { return c.HasDirty() }

func (c *Controller) discardAll() {
	for fieldID, draft := range c.drafts {
		// Restore through the index so marker regions stay intact. Every
		// draft restores its own snapshot, including fields whose draft
		// was persisted into the page by an earlier detach.
		if entry, ok := c.idx.Get(draft.Target.ID); ok && entry.Element != nil && draft.OriginalHTML != "" {
			if err := entry.Element.SetInnerHTML(draft.OriginalHTML); err != nil {
				c.logger.Warn("session.restore_failed", "field", fieldID, "error", err)
			}
		}
		delete(c.drafts, fieldID)
	}
	c.status.DiscardAll()
	c.idx.Invalidate()
}

// persistDraft renders the editor's document back into the target element
// so the page shows the unsaved edit. The draft itself stays live.
func (c *Controller) persistDraft(sess *Session) {
	if sess.Target.Element == nil {
		return
	}
	rendered := normalizeBreaks(sess.Editor.RenderDOM())
	if rendered == "" {
		return
	}
	if err := sess.Target.Element.SetInnerHTML(rendered); err != nil {
		c.logger.Warn("session.persist_failed", "field", sess.fieldID, "error", err)
		return
	}
	c.idx.Invalidate()
}

func (c *Controller) teardown(sess *Session) {
	sess.Editor.Destroy()
	if c.active == sess {
		c.active = nil
	}
	c.logger.Info("session.detach", "field", sess.fieldID)
}

// Panes of a split fullscreen view, in Tab order.
var panes = []string{"primary", "secondary"}

// FocusedPane returns the pane holding keyboard focus in a split
// fullscreen view.
func (c *Controller) FocusedPane() string { return panes[c.pane] }

// HandleTab moves focus between the split-view panes. Shift reverses.
// Outside a fullscreen session the key is left alone.
func (c *Controller) HandleTab(shift bool) bool {
	sess := c.active
	if sess == nil || sess.Surface != interfaces.SurfaceFullscreen {
		return false
	}
	if shift {
		c.pane = (c.pane + len(panes) - 1) % len(panes)
	} else {
		c.pane = (c.pane + 1) % len(panes)
	}
	if c.pane == 0 {
		sess.Editor.Focus()
	}
	return true
}

// normalizeBreaks folds XML-style self-closing breaks into plain <br>.
func normalizeBreaks(html string) string {
	html = strings.ReplaceAll(html, "<br/>", "<br>")
	return strings.ReplaceAll(html, "<br />", "<br>")
}
