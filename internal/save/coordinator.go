// Package save owns host persistence: the CSRF token cache, both save
// shapes, response ordering, and the htmlMap replay that rewrites the page.
package save

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/goliatone/go-front-editor/internal/commands"
	savecmd "github.com/goliatone/go-front-editor/internal/commands/save"
	"github.com/goliatone/go-front-editor/internal/dom"
	"github.com/goliatone/go-front-editor/internal/index"
	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/internal/session"
	"github.com/goliatone/go-front-editor/internal/status"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

// Coordinator sequences saves and applies host responses to the page.
type Coordinator struct {
	client   interfaces.HostClient
	idx      *index.Service
	sessions *session.Controller
	status   *status.Manager
	logger   interfaces.Logger

	fieldHandler *commands.Handler[savecmd.FieldCommand]
	batchHandler *commands.Handler[savecmd.BatchCommand]

	mu        sync.Mutex
	token     *interfaces.Token
	nextTag   map[string]uint64
	committed map[string]uint64
	inFlight  map[string]*sync.Mutex
}

// NewCoordinator wires the coordinator. Responses mutate the page through
// the index service, never directly.
func NewCoordinator(
	client interfaces.HostClient,
	idx *index.Service,
	sessions *session.Controller,
	st *status.Manager,
	provider interfaces.LoggerProvider,
) *Coordinator {
	c := &Coordinator{
		client:    client,
		idx:       idx,
		sessions:  sessions,
		status:    st,
		logger:    logging.SaveLogger(provider),
		nextTag:   map[string]uint64{},
		committed: map[string]uint64{},
		inFlight:  map[string]*sync.Mutex{},
	}
	c.fieldHandler = commands.NewHandler(c.executeField,
		commands.WithLogger[savecmd.FieldCommand](commands.CommandLogger(provider, "save")),
		commands.WithOperation[savecmd.FieldCommand]("save-field"),
	)
	c.batchHandler = commands.NewHandler(c.executeBatch,
		commands.WithLogger[savecmd.BatchCommand](commands.CommandLogger(provider, "save")),
		commands.WithOperation[savecmd.BatchCommand]("save-batch"),
	)
	return c
}

// SaveDraft persists one field. Requests for the same field queue behind
// each other; stale responses are dropped by tag.
func (c *Coordinator) SaveDraft(ctx context.Context, draft *session.Draft) error {
	target := draft.Target
	fieldID := target.FieldID()

	cmd := savecmd.FieldCommand{
		PageID:     target.PageID,
		FieldID:    fieldID,
		Name:       target.Name,
		Scope:      string(target.Scope),
		Section:    target.SectionName,
		Markdown:   draft.Markdown,
		RequestTag: c.takeTag(fieldID),
	}

	c.status.SaveStarted()
	if err := c.fieldHandler.Execute(ctx, cmd); err != nil {
		c.status.SaveFailed(errMessage(err))
		return err
	}
	return nil
}

// SaveAllDirty persists every dirty draft of a page in one batch request.
func (c *Coordinator) SaveAllDirty(ctx context.Context, pageID string) error {
	drafts := c.sessions.DirtyDrafts()
	if len(drafts) == 0 {
		c.status.NoChanges()
		return nil
	}

	fields := make([]interfaces.FieldSave, 0, len(drafts))
	for _, d := range drafts {
		fields = append(fields, interfaces.FieldSave{
			Key:      d.Target.FieldID(),
			Name:     d.Target.Name,
			Scope:    string(d.Target.Scope),
			Section:  d.Target.SectionName,
			Markdown: d.Markdown,
		})
	}

	cmd := savecmd.BatchCommand{
		PageID:     pageID,
		Fields:     fields,
		RequestTag: c.takeTag("batch:" + pageID),
	}

	c.status.SaveStarted()
	if err := c.batchHandler.Execute(ctx, cmd); err != nil {
		c.status.SaveFailed(errMessage(err))
		return err
	}
	return nil
}

// SaveTranslation persists one field's Markdown for a specific language.
// It shares the single-save semantics but never blocks primary saves.
func (c *Coordinator) SaveTranslation(ctx context.Context, draft *session.Draft, lang string) error {
	target := draft.Target
	cmd := savecmd.FieldCommand{
		PageID:     target.PageID,
		FieldID:    target.FieldID(),
		Name:       target.Name,
		Scope:      string(target.Scope),
		Section:    target.SectionName,
		Markdown:   draft.Markdown,
		Language:   lang,
		RequestTag: c.takeTag("lang:" + lang + ":" + target.FieldID()),
	}
	return c.fieldHandler.Execute(ctx, cmd)
}

func (c *Coordinator) executeField(ctx context.Context, cmd savecmd.FieldCommand) error {
	lock := c.lockFor(cmd.FieldID)
	lock.Lock()
	defer lock.Unlock()

	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	res, err := c.client.SaveField(ctx, token, interfaces.SingleSaveRequest{
		Markdown: cmd.Markdown,
		Name:     cmd.Name,
		Scope:    cmd.Scope,
		Section:  cmd.Section,
		PageID:   cmd.PageID,
		FieldID:  cmd.FieldID,
		Lang:     cmd.Language,
	})
	if err != nil {
		return err
	}
	if !res.OK {
		return hostError(res.Message)
	}

	if c.dropStale(cmd.FieldID, cmd.RequestTag) {
		return nil
	}
	c.applyResponse(res, cmd, savedFields(cmd))
	return nil
}

func (c *Coordinator) executeBatch(ctx context.Context, cmd savecmd.BatchCommand) error {
	lock := c.lockFor("batch:" + cmd.PageID)
	lock.Lock()
	defer lock.Unlock()

	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	res, err := c.client.SaveBatch(ctx, token, interfaces.BatchSaveRequest{
		PageID: cmd.PageID,
		Fields: cmd.Fields,
	})
	if err != nil {
		return err
	}
	if !res.OK {
		return hostError(res.Message)
	}

	if c.dropStale("batch:"+cmd.PageID, cmd.RequestTag) {
		return nil
	}

	saved := map[string]string{}
	for _, f := range cmd.Fields {
		saved[f.Key] = f.Markdown
	}
	c.applyResponse(res, savecmd.FieldCommand{PageID: cmd.PageID}, saved)
	return nil
}

// applyResponse is the replay pass: every editable element whose composite
// id matches an htmlMap key (exactly or by the fuzzy suffix rules) gets its
// HTML and Markdown datasets rewritten, marker regions re-sync, and the
// section catalog refreshes.
func (c *Coordinator) applyResponse(res *interfaces.SaveResponse, origin savecmd.FieldCommand, saved map[string]string) {
	htmlMap := res.HTMLMap
	if bare, ok := htmlMap[""]; ok && origin.FieldID != "" {
		// A bare "html" string belongs to the field that asked.
		delete(htmlMap, "")
		key := compositeKey(origin)
		htmlMap[key] = bare
	}

	matched := map[string]bool{}
	matchedFields := map[string]bool{}
	for _, entry := range c.idx.Entries() {
		if entry.Element == nil {
			continue
		}
		key, html, ok := matchHTML(htmlMap, entry)
		if !ok {
			continue
		}
		matched[key] = true
		matchedFields[entry.FieldID()] = true
		if err := entry.Element.SetInnerHTML(html); err != nil {
			c.logger.Warn("save.replay_failed", "target", entry.ID, "error", err)
			continue
		}
		c.commitEntry(entry, key, res, saved)
	}

	page := c.idx.Page()
	for _, marker := range page.Markers() {
		html, ok := markerHTML(htmlMap, marker)
		if !ok {
			continue
		}
		matched[marker.Key()] = true
		if entry, found := c.idx.Get(marker.Key()); found {
			matchedFields[entry.FieldID()] = true
		}
		if err := page.ReplaceRange(marker, html); err != nil {
			c.logger.Warn("save.marker_resync_failed", "marker", marker.Key(), "error", err)
		}
	}

	for key := range htmlMap {
		if !matched[key] && !fuzzyMatched(matched, key) {
			// MissingTarget: skip the region, keep replaying the rest.
			c.logger.Warn("save.replay_missing_target", "key", key)
		}
	}

	if len(res.SectionsIndex) > 0 {
		c.idx.SetCatalog(res.SectionsIndex)
	}
	c.idx.Invalidate()

	commitAll := len(htmlMap) == 0
	fieldIDs := make([]string, 0, len(saved))
	for fieldID := range saved {
		// Only clear fields the response actually covered; a partial html
		// map leaves unmatched drafts dirty, and edits that raced the
		// save stay dirty too.
		if !commitAll && !matchedFields[fieldID] {
			continue
		}
		if draft, ok := c.sessions.Draft(fieldID); ok && draft.Markdown == saved[fieldID] {
			c.sessions.MarkSaved(fieldID)
		}
		fieldIDs = append(fieldIDs, fieldID)
	}
	c.status.SaveSucceeded(fieldIDs...)
	c.logger.Info("save.applied", "fields", len(fieldIDs), "regions", len(matched))
}

// commitEntry rewrites the element's Markdown datasets after its HTML was
// replaced.
func (c *Coordinator) commitEntry(entry *index.Entry, key string, res *interfaces.SaveResponse, saved map[string]string) {
	markdown, ok := res.Markdowns[key]
	if !ok {
		markdown, ok = saved[entry.FieldID()]
	}
	if !ok {
		return
	}
	entry.Element.SetDataset("markdown", markdown)
	entry.Element.SetDataset("markdownB64", base64.StdEncoding.EncodeToString([]byte(markdown)))
}

// matchHTML resolves an element against the html map with the precedence
// exact > name > scope:name > scope:section:name > fuzzy suffix.
func matchHTML(htmlMap map[string]string, entry *index.Entry) (string, string, bool) {
	if len(htmlMap) == 0 {
		return "", "", false
	}
	elID := entry.CompositeID()
	candidates := []string{
		elID,
		entry.FieldID(),
		entry.Name,
		string(entry.Scope) + ":" + entry.Name,
	}
	if entry.SectionName != "" {
		candidates = append(candidates, string(entry.Scope)+":"+entry.SectionName+":"+entry.Name)
	}
	for _, candidate := range candidates {
		if html, ok := htmlMap[candidate]; ok {
			return candidate, html, true
		}
	}
	for key, html := range htmlMap {
		if strings.HasSuffix(key, ":"+elID) || strings.HasSuffix(elID, ":"+key) {
			return key, html, true
		}
	}
	return "", "", false
}

// markerHTML looks a marker region up in the html map by its key or name.
func markerHTML(htmlMap map[string]string, marker dom.Marker) (string, bool) {
	if html, ok := htmlMap[marker.Key()]; ok {
		return html, true
	}
	if html, ok := htmlMap[marker.Name]; ok {
		return html, true
	}
	return "", false
}

// fuzzyMatched reports whether the key already matched through a suffix
// rule recorded under another name.
func fuzzyMatched(matched map[string]bool, key string) bool {
	for m := range matched {
		if strings.HasSuffix(m, ":"+key) || strings.HasSuffix(key, ":"+m) {
			return true
		}
	}
	return false
}

func compositeKey(cmd savecmd.FieldCommand) string {
	parts := []string{cmd.PageID, cmd.Scope}
	if cmd.Section != "" {
		parts = append(parts, cmd.Section)
	}
	parts = append(parts, cmd.Name)
	return strings.Join(parts, ":")
}

func savedFields(cmd savecmd.FieldCommand) map[string]string {
	return map[string]string{cmd.FieldID: cmd.Markdown}
}

// ensureToken fetches the CSRF tuple once and caches it for the session.
func (c *Coordinator) ensureToken(ctx context.Context) (interfaces.Token, error) {
	c.mu.Lock()
	if c.token != nil {
		token := *c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	token, err := c.client.FetchToken(ctx)
	if err != nil {
		return interfaces.Token{}, err
	}

	c.mu.Lock()
	c.token = &token
	c.mu.Unlock()
	return token, nil
}

// takeTag issues the next monotonic request tag for a key.
func (c *Coordinator) takeTag(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextTag[key]++
	return c.nextTag[key]
}

// dropStale records the commit and reports whether an earlier response
// arrived after a later one already committed.
func (c *Coordinator) dropStale(key string, tag uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tag <= c.committed[key] {
		c.logger.Debug("save.stale_response_dropped", "key", key, "tag", tag)
		return true
	}
	c.committed[key] = tag
	return false
}

func (c *Coordinator) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lock, ok := c.inFlight[key]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	c.inFlight[key] = lock
	return lock
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func hostError(message string) error {
	if message == "" {
		return ErrHostRejected
	}
	return &HostRejectionError{Message: message}
}

// HostRejectionError carries the host's failure message.
type HostRejectionError struct {
	Message string
}

func (e *HostRejectionError) Error() string {
	return "save: host rejected the request: " + e.Message
}

// Unwrap lets errors.Is match ErrHostRejected.
func (e *HostRejectionError) Unwrap() error { return ErrHostRejected }

// Status exposes the current save status for the facade.
func (c *Coordinator) Status() status.State { return c.status.State() }
