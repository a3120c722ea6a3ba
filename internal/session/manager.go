// Package session keeps one controller per client session, created on
// first use and dropped after a period of inactivity.
package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hyperengineering/pavilion/internal/controller"
	"github.com/hyperengineering/pavilion/internal/prefs"
	"github.com/hyperengineering/pavilion/internal/store"
	"github.com/hyperengineering/pavilion/internal/types"
)

type entry struct {
	ctrl    *controller.Controller
	created time.Time

	mu           sync.Mutex
	lastAccessed time.Time
}

func (e *entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastAccessed = now
	e.mu.Unlock()
}

func (e *entry) accessed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccessed
}

// Options holds the dependencies shared by every session's controller.
type Options struct {
	KV      store.Store
	Gateway controller.Gateway
	Daily   controller.Daily
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager lazily creates controllers keyed by session ID.
type Manager struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewManager creates an empty Manager.
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{opts: opts, sessions: make(map[string]*entry)}
}

// Get returns the controller for id, creating it if necessary.
// View state is in memory; preferences persist under Namespace(id).
func (m *Manager) Get(ctx context.Context, id string) (*controller.Controller, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	now := m.opts.Now()

	// Fast path: already live
	m.mu.RLock()
	if e, ok := m.sessions[id]; ok {
		m.mu.RUnlock()
		e.touch(now)
		return e.ctrl, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if e, ok := m.sessions[id]; ok {
		e.touch(now)
		return e.ctrl, nil
	}

	ctrl := controller.New(controller.Options{
		Session: id,
		Prefs:   prefs.New(m.opts.KV, Namespace(id)),
		Gateway: m.opts.Gateway,
		Daily:   m.opts.Daily,
		Now:     m.opts.Now,
	})
	m.sessions[id] = &entry{ctrl: ctrl, created: now, lastAccessed: now}

	slog.Info("session created",
		"component", "session",
		"action", "session_created",
		"session_id", id,
	)
	return ctrl, nil
}

// List returns the live sessions ordered by ID.
func (m *Manager) List() []types.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.SessionInfo, 0, len(m.sessions))
	for id, e := range m.sessions {
		out = append(out, types.SessionInfo{ID: id, Created: e.created, LastAccessed: e.accessed()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle drops sessions not accessed for longer than idle and returns
// how many were removed. Persisted preferences are kept.
func (m *Manager) EvictIdle(idle time.Duration) int {
	cutoff := m.opts.Now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, e := range m.sessions {
		if e.accessed().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
			slog.Debug("session evicted",
				"component", "session",
				"action", "session_evicted",
				"session_id", id,
			)
		}
	}
	return evicted
}
