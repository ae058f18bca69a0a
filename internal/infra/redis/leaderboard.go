package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"skillsprint-arena/internal/domain"
)

const leaderboardKey = "arena:leaderboard"

// Leaderboard stores cumulative XP in a Redis sorted set keyed by display
// name, so standings survive the process and can be shared across instances.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) Award(ctx context.Context, username string, amount int) error {
	return l.client.ZIncrBy(ctx, leaderboardKey, float64(amount), username).Err()
}

// TopK returns up to k entries by descending XP. Redis orders equal scores
// lexicographically, which keeps repeated queries deterministic.
func (l *Leaderboard) TopK(ctx context.Context, k int) ([]domain.LeaderboardEntry, error) {
	if k <= 0 {
		return nil, nil
	}
	members, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(k-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		name, _ := m.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{Username: name, XP: int(m.Score)})
	}
	return entries, nil
}
