package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"skillsprint-arena/internal/app"
)

// MatchRegistry is a Redis-aware implementation of app.MatchRegistry.
// Notes:
//   - Matches themselves stay in a local in-memory map so the in-process
//     state machine keeps its mutex discipline.
//   - Redis marks match liveness (and could be extended to route
//     cross-instance events for a clustered arena).
type MatchRegistry struct {
	client *redis.Client
	ttl    time.Duration

	mu      sync.RWMutex
	matches map[string]*app.Match
	byConn  map[string]string
}

func NewMatchRegistry(client *redis.Client, ttl time.Duration) *MatchRegistry {
	return &MatchRegistry{
		client:  client,
		ttl:     ttl,
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
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(m.ID()), "1", r.ttl).Err()
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
	_ = r.client.Del(context.Background(), r.key(matchID)).Err()
}

func (r *MatchRegistry) key(matchID string) string {
	return "arena:match:" + matchID
}
