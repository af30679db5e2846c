package editor

import (
	"sync"
	"time"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/log"
	"github.com/matthewbaird/scheduler/internal/schema"
)

// Manager keeps the editor dialog exclusive: at most one session is open.
// Sessions past maxAge or idle past idleTimeout are dropped on access.
type Manager struct {
	mu          sync.Mutex
	schema      *schema.Schema
	opts        Options
	current     *Session
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts. Zero
// timeouts never expire.
func NewManager(s *schema.Schema, opts Options, maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		schema:      s,
		opts:        opts,
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Open starts a session from src. It fails with ErrSessionOpen while
// another live session exists.
func (m *Manager) Open(src calendar.Source) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.stale(m.current) {
		return nil, ErrSessionOpen
	}
	m.current = nil

	s, err := Open(m.schema, src, m.opts)
	if err != nil {
		return nil, err
	}
	s.onClose = m.release
	m.current = s
	return s, nil
}

// Current returns the open session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.stale(m.current) {
		log.Info("editor: dropping stale session", "session", m.current.ID)
		m.current = nil
	}
	return m.current
}

// Get retrieves the open session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	if s := m.Current(); s != nil && s.ID == id {
		return s
	}
	return nil
}

// Close closes the open session with the given ID.
func (m *Manager) Close(id string, clear bool) error {
	s := m.Get(id)
	if s == nil {
		return nil
	}
	return s.Close(clear)
}

// Cleanup drops the open session when it is stale. A session mid-save is
// kept.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.stale(m.current) {
		m.current = nil
	}
}

func (m *Manager) stale(s *Session) bool {
	if s.saving.Load() {
		return false
	}
	return s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout)
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == s {
		m.current = nil
	}
}
