// Package status runs the per-page save-status machine. Saved, Error, and
// NoChanges auto-hide on a timer; Dirty sticks until the dirty set empties.
package status

import (
	"sync"
	"time"

	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

// State is one node of the status machine.
type State string

const (
	StateIdle      State = "idle"
	StateDirty     State = "dirty"
	StateSaving    State = "saving"
	StateSaved     State = "saved"
	StateError     State = "error"
	StateNoChanges State = "no-changes"
)

const (
	savedHideAfter = 2 * time.Second
	errorHideAfter = 2500 * time.Millisecond
)

// Listener observes every transition. Message is non-empty only for Error.
type Listener func(state State, message string)

// Manager owns the machine. All transitions are serialized by its mutex so
// timer callbacks and event handlers cannot interleave mid-transition.
type Manager struct {
	sched  interfaces.Scheduler
	logger interfaces.Logger

	mu       sync.Mutex
	state    State
	message  string
	dirty    map[string]bool
	cancel   func()
	listener Listener
}

// New builds the manager. A nil scheduler falls back to real timers.
func New(sched interfaces.Scheduler, provider interfaces.LoggerProvider) *Manager {
	if sched == nil {
		sched = interfaces.TimerScheduler{}
	}
	return &Manager{
		sched:  sched,
		logger: logging.StatusLogger(provider),
		state:  StateIdle,
		dirty:  map[string]bool{},
	}
}

// OnChange registers the transition listener, replacing any earlier one.
func (m *Manager) OnChange(fn Listener) {
	m.mu.Lock()
	m.listener = fn
	m.mu.Unlock()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Message returns the message attached to the current state.
func (m *Manager) Message() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.message
}

// DirtyCount returns the number of fields with unsaved edits.
func (m *Manager) DirtyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirty)
}

// MarkDirty records an unsaved edit on the field and shows Dirty.
func (m *Manager) MarkDirty(fieldID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty[fieldID] = true
	m.transitionLocked(StateDirty, "")
}

// ClearDirty drops the field from the dirty set, as a commit or discard
// does. The visible state only resets once the set empties.
func (m *Manager) ClearDirty(fieldID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dirty, fieldID)
	if len(m.dirty) == 0 && m.state == StateDirty {
		m.transitionLocked(StateIdle, "")
	}
}

// DiscardAll empties the dirty set and resets to Idle.
func (m *Manager) DiscardAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = map[string]bool{}
	m.transitionLocked(StateIdle, "")
}

// SaveStarted shows Saving for an in-flight request.
func (m *Manager) SaveStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionLocked(StateSaving, "")
}

// SaveSucceeded shows Saved, clears the saved fields, and auto-hides.
func (m *Manager) SaveSucceeded(fieldIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range fieldIDs {
		delete(m.dirty, id)
	}
	m.transitionLocked(StateSaved, "")
	m.hideAfterLocked(savedHideAfter)
}

// SaveFailed shows Error with the host message and auto-hides back to
// Dirty: the draft survives a failed save.
func (m *Manager) SaveFailed(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionLocked(StateError, message)
	m.hideAfterLocked(errorHideAfter)
}

// NoChanges reports a save request that found nothing dirty.
func (m *Manager) NoChanges() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionLocked(StateNoChanges, "")
	m.hideAfterLocked(savedHideAfter)
}

func (m *Manager) transitionLocked(next State, message string) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.state == next && m.message == message {
		return
	}
	m.logger.Debug("status.transition", "from", m.state, "to", next)
	m.state = next
	m.message = message
	if m.listener != nil {
		m.listener(next, message)
	}
}

// hideAfterLocked schedules the fall-back transition out of a transient
// state: Dirty when edits remain, Idle otherwise.
func (m *Manager) hideAfterLocked(d time.Duration) {
	m.cancel = m.sched.AfterFunc(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cancel = nil
		switch m.state {
		case StateSaved, StateError, StateNoChanges:
		default:
			return
		}
		if len(m.dirty) > 0 {
			m.transitionLocked(StateDirty, "")
			return
		}
		m.transitionLocked(StateIdle, "")
	})
}
