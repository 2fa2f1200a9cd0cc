package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ai-diet-planner/internal/render"
)

// Manager owns the state of every client seen by this process. States live
// in memory only and are dropped once their client has been idle too long.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*State
	now    func() time.Time
}

func NewManager() *Manager {
	return &Manager{states: make(map[string]*State), now: time.Now}
}

// Get returns the state of clientID, creating it if needed, and marks the
// client as seen. created is true when a new state was made, so the caller
// can seed it from preferences.
func (m *Manager) Get(clientID string) (st *State, created bool) {
	m.mu.RLock()
	st, ok := m.states[clientID]
	if ok {
		st.touch(m.now())
	}
	m.mu.RUnlock()
	if ok {
		return st, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[clientID]; ok {
		st.touch(m.now())
		return st, false
	}
	st = newState(clientID)
	st.touch(m.now())
	m.states[clientID] = st
	return st, true
}

// Lookup returns an existing state without creating one.
func (m *Manager) Lookup(clientID string) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[clientID]
	return st, ok
}

// Drop forgets a client and releases its charts.
func (m *Manager) Drop(clientID string) {
	m.mu.Lock()
	st, ok := m.states[clientID]
	delete(m.states, clientID)
	m.mu.Unlock()

	if ok {
		release(st)
	}
}

// Evict drops every client not seen for idle and returns how many went.
func (m *Manager) Evict(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	var stale []*State
	for id, st := range m.states {
		if st.idle(cutoff) {
			stale = append(stale, st)
			delete(m.states, id)
		}
	}
	m.mu.Unlock()

	for _, st := range stale {
		release(st)
	}
	return len(stale)
}

func release(st *State) {
	st.canvas.Release(render.MacroCanvasID)
	st.canvas.Release(render.MealCanvasID)
}

// Run evicts idle clients every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, idle, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Evict(idle); n > 0 {
				log.Debug().Int("evicted", n).Int("remaining", m.Len()).Msg("Dropped idle clients")
			}
		}
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
