package memory

import (
	"context"
	"sort"
	"sync"

	"skillsprint-arena/internal/domain"
)

// Leaderboard is an in-memory implementation of app.LeaderboardStore.
// Entries are created on first award and never deleted.
type Leaderboard struct {
	mu sync.RWMutex
	xp map[string]int
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{xp: make(map[string]int)}
}

func (l *Leaderboard) Award(_ context.Context, username string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.xp[username] += amount
	return nil
}

// TopK returns up to k entries ordered by descending XP, ties broken by
// username so repeated queries agree.
func (l *Leaderboard) TopK(_ context.Context, k int) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	entries := make([]domain.LeaderboardEntry, 0, len(l.xp))
	for username, xp := range l.xp {
		entries = append(entries, domain.LeaderboardEntry{Username: username, XP: xp})
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].Username < entries[j].Username
	})
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries, nil
}
