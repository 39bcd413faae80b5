// Package windows keeps the LIFO stack of fullscreen editor windows, the
// body scroll lock, and the breadcrumb trail.
package windows

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-front-editor/internal/identity"
	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

const zBase = 100000
const zStep = 100

// Window is one stacked editor root.
type Window struct {
	// ID is the DOM id of the window root, slugged from the label.
	ID string
	// UUID is stable per (label, depth), for host-side correlation.
	UUID  uuid.UUID
	Label string
	Z     int
	// OnClose runs when the window pops, after it leaves the stack.
	OnClose func()
}

// CrumbRole tells the renderer how a breadcrumb item behaves.
type CrumbRole string

const (
	// CrumbLink pops back toward that window when clicked.
	CrumbLink CrumbRole = "link"
	// CrumbCurrent is the last item, never clickable.
	CrumbCurrent CrumbRole = "current"
	// CrumbDisabled renders inert: its label matches the current target.
	CrumbDisabled CrumbRole = "disabled"
)

// Crumb is one breadcrumb item. Base-path items carry Depth -1.
type Crumb struct {
	Label string
	Role  CrumbRole
	Depth int
}

// Manager owns the window stack for one page.
type Manager struct {
	logger interfaces.Logger

	mu           sync.Mutex
	stack        []*Window
	basePath     []string
	baseClick    func()
	scrollLocked bool
	onScrollLock func(bool)
	onSave       func()
}

// New builds an empty stack.
func New(provider interfaces.LoggerProvider) *Manager {
	return &Manager{logger: logging.WindowsLogger(provider)}
}

// OnScrollLock registers the body scroll-lock toggle.
func (m *Manager) OnScrollLock(fn func(locked bool)) {
	m.mu.Lock()
	m.onScrollLock = fn
	m.mu.Unlock()
}

// OnSave registers the Ctrl/Cmd+S handler for the active session.
func (m *Manager) OnSave(fn func()) {
	m.mu.Lock()
	m.onSave = fn
	m.mu.Unlock()
}

// SetBase records the originating target's hierarchy path and the handler
// replayed when its crumb is clicked.
func (m *Manager) SetBase(path []string, onClick func()) {
	m.mu.Lock()
	m.basePath = append([]string(nil), path...)
	m.baseClick = onClick
	m.mu.Unlock()
}

// BasePathFor derives the breadcrumb base path from a target's hierarchy.
func BasePathFor(target interfaces.EditableTarget) []string {
	var path []string
	if target.SectionName != "" {
		path = append(path, target.SectionName)
	}
	if target.SubsectionName != "" && target.SubsectionName != target.Name {
		path = append(path, target.SubsectionName)
	}
	if target.Name != "" && target.Name != target.SectionName {
		path = append(path, target.Name)
	}
	return path
}

// Push stacks a new window. The first push engages the scroll lock.
func (m *Manager) Push(label string, onClose func()) *Window {
	m.mu.Lock()
	depth := len(m.stack)
	id, err := slug.Normalize(fmt.Sprintf("fe-window-%s-%d", label, depth))
	if err != nil || id == "" {
		id = fmt.Sprintf("fe-window-%d", depth)
	}
	win := &Window{
		ID:      id,
		UUID:    identity.WindowUUID(label, depth),
		Label:   label,
		Z:       zBase + depth*zStep,
		OnClose: onClose,
	}
	m.stack = append(m.stack, win)
	lock := m.onScrollLock
	engage := depth == 0
	if engage {
		m.scrollLocked = true
	}
	m.mu.Unlock()

	if engage && lock != nil {
		lock(true)
	}
	m.logger.Debug("windows.push", "id", win.ID, "z", win.Z, "depth", depth+1)
	return win
}

// Pop closes the topmost window. Releasing the last window drops the
// scroll lock. Reports whether a window was closed.
func (m *Manager) Pop() bool {
	m.mu.Lock()
	if len(m.stack) == 0 {
		m.mu.Unlock()
		return false
	}
	win := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	lock := m.onScrollLock
	release := len(m.stack) == 0
	if release {
		m.scrollLocked = false
	}
	m.mu.Unlock()

	if win.OnClose != nil {
		win.OnClose()
	}
	if release && lock != nil {
		lock(false)
	}
	m.logger.Debug("windows.pop", "id", win.ID)
	return true
}

// PopTo pops until at most depth windows remain.
func (m *Manager) PopTo(depth int) {
	for m.Depth() > depth {
		if !m.Pop() {
			return
		}
	}
}

// CloseAll empties the stack.
func (m *Manager) CloseAll() { m.PopTo(0) }

// Depth returns the stack size.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack)
}

// Top returns the active window, or nil for an empty stack.
func (m *Manager) Top() *Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// ScrollLocked reports whether the body scroll lock is engaged.
func (m *Manager) ScrollLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scrollLocked
}

// Breadcrumbs concatenates the base path with the stack labels. The last
// item is the only current crumb; earlier items whose label matches it
// render disabled instead of as links.
func (m *Manager) Breadcrumbs() []Crumb {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := len(m.basePath) + len(m.stack)
	if total == 0 {
		return nil
	}
	crumbs := make([]Crumb, 0, total)
	for _, label := range m.basePath {
		crumbs = append(crumbs, Crumb{Label: label, Role: CrumbLink, Depth: -1})
	}
	for i, win := range m.stack {
		crumbs = append(crumbs, Crumb{Label: win.Label, Role: CrumbLink, Depth: i + 1})
	}

	last := &crumbs[len(crumbs)-1]
	last.Role = CrumbCurrent
	for i := range crumbs[:len(crumbs)-1] {
		if crumbs[i].Label == last.Label {
			crumbs[i].Role = CrumbDisabled
		}
	}
	return crumbs
}

// ClickCrumb handles a breadcrumb click. Base-path crumbs pop back to the
// first window and replay the base click handler; stack crumbs pop their
// descendants.
func (m *Manager) ClickCrumb(crumb Crumb) {
	if crumb.Role != CrumbLink {
		return
	}
	if crumb.Depth < 0 {
		m.PopTo(1)
		m.mu.Lock()
		click := m.baseClick
		m.mu.Unlock()
		if click != nil {
			click()
		}
		return
	}
	m.PopTo(crumb.Depth)
}

// HandleEscape closes the topmost window unless keyboard focus sits in a
// text input. Reports whether a window closed.
func (m *Manager) HandleEscape(textInputFocused bool) bool {
	if textInputFocused {
		return false
	}
	return m.Pop()
}

// HandleSaveKey routes Ctrl/Cmd+S to the active session without closing
// anything. Reports whether a handler ran.
func (m *Manager) HandleSaveKey() bool {
	m.mu.Lock()
	save := m.onSave
	depth := len(m.stack)
	m.mu.Unlock()
	if depth == 0 || save == nil {
		return false
	}
	save()
	return true
}
