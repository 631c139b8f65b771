// Package session owns the per-file diff review state machine. Every
// accept/reject trigger, whether it arrives as an agent tool call or as a
// local action inside the editor, funnels through one finalize path per
// path, so a session can terminate only once and notify only once.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ndsl6211/nvim-gemini-cli/internal/editor"
	"github.com/ndsl6211/nvim-gemini-cli/internal/notify"
)

// ErrNoSession is returned for operations on a path that has no session,
// live or tombstoned.
var ErrNoSession = errors.New("no diff session for path")

// entry is the exclusion domain for one file path. Its mutex serializes
// every transition for that path, including the editor round-trip that
// backs the transition.
type entry struct {
	mu   sync.Mutex
	sess *DiffSession
}

// Manager arbitrates concurrent transitions on diff sessions keyed by
// canonical file path. Different paths proceed concurrently; the same
// path is totally ordered.
//
// Terminated sessions linger as tombstones for the retention period so
// that a finalize arriving after the race was lost is a clean no-op, then
// a background sweep evicts them.
type Manager struct {
	bridge    editor.Bridge
	events    *notify.Fanout
	retention time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	stop     chan struct{}
	stopOnce sync.Once
}

func NewManager(bridge editor.Bridge, events *notify.Fanout, retention time.Duration) *Manager {
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	m := &Manager{
		bridge:    bridge,
		events:    events,
		retention: retention,
		entries:   make(map[string]*entry),
		stop:      make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Stop halts the tombstone sweep. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) entryFor(path string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	if !ok {
		e = &entry{}
		m.entries[path] = e
	}
	return e
}

func (m *Manager) lookup(path string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[path]
}

// Get returns a copy of the session for path, live or tombstoned.
func (m *Manager) Get(path string) (*DiffSession, bool) {
	e := m.lookup(path)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return nil, false
	}
	copy := *e.sess
	return &copy, true
}

// OpenCount returns the number of sessions currently in the Open state.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	count := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.sess != nil && e.sess.State == Open {
			count++
		}
		e.mu.Unlock()
	}
	return count
}

// Open creates a session for path and renders its diff view. An existing
// Open session for the same path is first terminated as Superseded,
// silently, so the agent can iterate a proposal without orphaning review
// UI or tripping the notification guarantee.
func (m *Manager) Open(path, newContent string) error {
	e := m.entryFor(path)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess != nil && e.sess.State == Open {
		e.sess.State = Terminated
		e.sess.Outcome = Superseded
		e.sess.TerminatedAt = time.Now()
	}

	if err := m.bridge.OpenDiff(path, newContent); err != nil {
		return fmt.Errorf("open diff: %w", err)
	}

	e.sess = &DiffSession{
		Path:     path,
		State:    Open,
		Outcome:  None,
		OpenedAt: time.Now(),
	}
	return nil
}

// Accept finalizes the session with outcome Accepted on behalf of the
// agent: the editor persists the working content first, and only a
// successful persist completes the transition.
func (m *Manager) Accept(path string) error {
	return m.finalizeAccept(path, nil)
}

// AcceptLocal finalizes on behalf of the user's in-editor accept action.
// The editor has already persisted content by the time the signal
// arrives, so no bridge call is made.
func (m *Manager) AcceptLocal(path, content string) error {
	return m.finalizeAccept(path, &content)
}

// finalizeAccept is the single accept transition, reached from the tool
// call and from the local editor signal. Whichever trigger runs second
// observes Terminated and returns without persisting or notifying again.
func (m *Manager) finalizeAccept(path string, persisted *string) error {
	e := m.lookup(path)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNoSession, path)
	}

	e.mu.Lock()
	if e.sess == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSession, path)
	}
	if e.sess.State == Terminated {
		e.mu.Unlock()
		return nil
	}

	content := ""
	if persisted != nil {
		content = *persisted
	} else {
		c, err := m.bridge.AcceptDiff(path)
		if err != nil {
			// Persist failed: the session stays Open and nothing is emitted.
			e.mu.Unlock()
			return fmt.Errorf("accept diff: %w", err)
		}
		content = c
	}

	e.sess.State = Terminated
	e.sess.Outcome = Accepted
	e.sess.TerminatedAt = time.Now()
	e.mu.Unlock()

	// Published outside the path lock so a slow subscriber cannot stall
	// the next operation on this path.
	m.events.Publish(notify.Event{
		Method: notify.MethodDiffAccepted,
		Params: map[string]any{"filePath": path, "content": content},
	})
	return nil
}

// Reject finalizes the session with outcome Rejected on behalf of the
// agent, discarding the working content.
func (m *Manager) Reject(path string) error {
	return m.finalizeReject(path, true)
}

// RejectLocal finalizes on behalf of the user's in-editor reject action;
// the editor has already torn the view down.
func (m *Manager) RejectLocal(path string) error {
	return m.finalizeReject(path, false)
}

func (m *Manager) finalizeReject(path string, closeView bool) error {
	e := m.lookup(path)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrNoSession, path)
	}

	e.mu.Lock()
	if e.sess == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSession, path)
	}
	if e.sess.State == Terminated {
		e.mu.Unlock()
		return nil
	}

	if closeView {
		// Discarding cannot fail; a view teardown error is not a reason
		// to leave the session open.
		if err := m.bridge.RejectDiff(path); err != nil {
			log.Printf("session: reject diff view for %s: %v", path, err)
		}
	}

	e.sess.State = Terminated
	e.sess.Outcome = Rejected
	e.sess.TerminatedAt = time.Now()
	e.mu.Unlock()

	m.events.Publish(notify.Event{
		Method: notify.MethodDiffRejected,
		Params: map[string]any{"filePath": path},
	})
	return nil
}

// Close terminates the session without judgement and returns the current
// working content from the editor. Closing an already-terminated session
// is a no-op that returns empty content. The closed notification is
// neutral and does not count toward the accept/reject guarantee.
func (m *Manager) Close(path string, suppressNotify bool) (string, error) {
	e := m.lookup(path)
	if e == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSession, path)
	}

	e.mu.Lock()
	if e.sess == nil {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrNoSession, path)
	}
	if e.sess.State == Terminated {
		e.mu.Unlock()
		return "", nil
	}

	content, err := m.bridge.CloseDiff(path)
	if err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("close diff: %w", err)
	}

	e.sess.State = Terminated
	e.sess.TerminatedAt = time.Now()
	e.mu.Unlock()

	if !suppressNotify {
		m.events.Publish(notify.Event{
			Method: notify.MethodDiffClosed,
			Params: map[string]any{"filePath": path},
		})
	}
	return content, nil
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.retention / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep evicts tombstones older than the retention period. TryLock skips
// any entry with a transition in flight; it will be collected next round.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for path, e := range m.entries {
		if !e.mu.TryLock() {
			continue
		}
		expired := e.sess != nil &&
			e.sess.State == Terminated &&
			now.Sub(e.sess.TerminatedAt) > m.retention
		e.mu.Unlock()
		if expired {
			delete(m.entries, path)
		}
	}
}
