package memory

import (
	"sync"

	"skillsprint-arena/internal/app"
)

// MatchRegistry is an in-memory implementation of app.MatchRegistry. It also
// indexes matches by member connection so disconnects resolve in one lookup.
type MatchRegistry struct {
	mu      sync.RWMutex
	matches map[string]*app.Match
	byConn  map[string]string
}

func NewMatchRegistry() *MatchRegistry {
	return &MatchRegistry{
		matches: make(map[string]*app.Match),
		byConn:  make(map[string]string),
	}
}

func (r *MatchRegistry) Put(m *app.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[m.ID()] = m
	for _, p := range m.Participants() {
		r.byConn[p.ConnID] = m.ID()
	}
}

func (r *MatchRegistry) Get(matchID string) (*app.Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[matchID]
	return m, ok
}

func (r *MatchRegistry) ByConn(connID string) (*app.Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matchID, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	m, ok := r.matches[matchID]
	return m, ok
}

func (r *MatchRegistry) Remove(matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return
	}
	delete(r.matches, matchID)
	for _, p := range m.Participants() {
		if r.byConn[p.ConnID] == matchID {
			delete(r.byConn, p.ConnID)
		}
	}
}
