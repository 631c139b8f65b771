package editor

import (
	"fmt"
	"sync"
)

// Memory is an in-process Bridge with no editor attached. It backs the
// server's standalone mode and the test suites: diff views are entries in
// a map, "disk" is a second map, and user edits are simulated by mutating
// the working content directly.
type Memory struct {
	mu      sync.Mutex
	working map[string]string // open diff views, path -> working content
	files   map[string]string // persisted content, path -> file content

	// FailAccept, when set, is returned by AcceptDiff before anything is
	// persisted. Lets tests exercise the persist-failure path.
	FailAccept error
}

func NewMemory() *Memory {
	return &Memory{
		working: make(map[string]string),
		files:   make(map[string]string),
	}
}

func (m *Memory) OpenDiff(path, newContent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working[path] = newContent
	return nil
}

func (m *Memory) CloseDiff(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.working[path]
	if !ok {
		return "", fmt.Errorf("no diff view for %s", path)
	}
	delete(m.working, path)
	return content, nil
}

func (m *Memory) AcceptDiff(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAccept != nil {
		return "", m.FailAccept
	}
	content, ok := m.working[path]
	if !ok {
		return "", fmt.Errorf("no diff view for %s", path)
	}
	m.files[path] = content
	delete(m.working, path)
	return content, nil
}

func (m *Memory) RejectDiff(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.working, path)
	return nil
}

// SetWorkingContent overwrites the working content of an open diff view,
// standing in for the user editing the buffer.
func (m *Memory) SetWorkingContent(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.working[path]; ok {
		m.working[path] = content
	}
}

// FileContent returns what AcceptDiff last persisted for path.
func (m *Memory) FileContent(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	return content, ok
}
