package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"skillsprint-arena/internal/common/ident"
	"skillsprint-arena/internal/domain"
)

// Outbound event names, mirrored by the transport layer.
const (
	EventLobbyStatus     = "lobby-status"
	EventStartMatch      = "start-match"
	EventScoreUpdate     = "score-update"
	EventMatchEnd        = "match-end"
	EventLeaderboardData = "leaderboard-data"
	EventOpponentLeft    = "opponent-left"
)

// MatchRegistry maps live match IDs (and member connections) to matches.
type MatchRegistry interface {
	Put(m *Match)
	Get(matchID string) (*Match, bool)
	ByConn(connID string) (*Match, bool)
	Remove(matchID string)
}

// QuestionSource draws n distinct questions in random order.
type QuestionSource interface {
	Draw(ctx context.Context, n int) ([]domain.Question, error)
}

// LeaderboardStore accumulates experience points keyed by display name.
type LeaderboardStore interface {
	Award(ctx context.Context, username string, amount int) error
	TopK(ctx context.Context, k int) ([]domain.LeaderboardEntry, error)
}

const leaderboardSize = 10

// Arena routes inbound participant events into the waiting queue, the match
// registry, and the leaderboard. No lock is held while a sink send runs.
type Arena struct {
	queue         *WaitingQueue
	matches       MatchRegistry
	questions     QuestionSource
	board         LeaderboardStore
	ids           ident.Generator
	questionCount int

	// pairMu makes dequeue-and-register one atomic step, so a racing
	// disconnect observes a participant either still queued or already in
	// the registry, never in between.
	pairMu sync.Mutex
}

func NewArena(matches MatchRegistry, questions QuestionSource, board LeaderboardStore, ids ident.Generator, questionCount int) *Arena {
	if questionCount <= 0 {
		questionCount = 5
	}
	return &Arena{
		queue:         NewWaitingQueue(),
		matches:       matches,
		questions:     questions,
		board:         board,
		ids:           ids,
		questionCount: questionCount,
	}
}

// JoinLobby enqueues a connection and opportunistically pairs the two oldest
// waiters. An empty username gets a generated anonymous name. A connection
// whose match is still live cannot re-queue; it must finish or disconnect
// first.
func (a *Arena) JoinLobby(ctx context.Context, connID, username string, sink EventSink) error {
	if _, inMatch := a.matches.ByConn(connID); inMatch {
		return domain.ErrAlreadyInMatch
	}
	if username == "" {
		username = anonName(connID)
	}
	p := &Participant{ConnID: connID, Username: username, Sink: sink}

	count, err := a.queue.Enqueue(p)
	if err != nil {
		return err
	}
	sink.Send(EventLobbyStatus, domain.LobbyStatus{WaitingCount: count})
	return a.tryPair(ctx)
}

func (a *Arena) tryPair(ctx context.Context) error {
	match, first, second, err := a.formMatch(ctx)
	if err != nil || match == nil {
		return err
	}

	views := match.QuestionViews()
	first.Sink.Send(EventStartMatch, domain.MatchStart{
		MatchID:   match.ID(),
		Opponent:  second.Ref(),
		Questions: views,
	})
	second.Sink.Send(EventStartMatch, domain.MatchStart{
		MatchID:   match.ID(),
		Opponent:  first.Ref(),
		Questions: views,
	})
	log.Printf("match %s started: %s vs %s", match.ID(), first.Username, second.Username)
	return nil
}

// formMatch dequeues a pair and registers their match under pairMu; sink
// sends stay outside the lock. Returns a nil match when fewer than two are
// waiting.
func (a *Arena) formMatch(ctx context.Context) (*Match, *Participant, *Participant, error) {
	a.pairMu.Lock()
	defer a.pairMu.Unlock()

	first, second, ok := a.queue.TryPairNext()
	if !ok {
		return nil, nil, nil, nil
	}

	questions, err := a.questions.Draw(ctx, a.questionCount)
	if err != nil {
		// Pairing failed before either side saw a match; put both back in
		// arrival order so a later join retries.
		if _, qerr := a.queue.Enqueue(first); qerr != nil {
			log.Printf("requeue %s: %v", first.ConnID, qerr)
		}
		if _, qerr := a.queue.Enqueue(second); qerr != nil {
			log.Printf("requeue %s: %v", second.ConnID, qerr)
		}
		return nil, nil, nil, fmt.Errorf("draw questions: %w", err)
	}

	match := NewMatch(a.ids.NewID(), first, second, questions)
	a.matches.Put(match)
	return match, first, second, nil
}

// SubmitAnswer scores one answer and broadcasts the update. Unknown match
// IDs, foreign connections, out-of-range indices, and duplicate submissions
// are silent no-ops; they indicate a stale or racing client.
func (a *Arena) SubmitAnswer(ctx context.Context, connID string, sub domain.AnswerSubmission) {
	match, ok := a.matches.Get(sub.MatchID)
	if !ok {
		return
	}
	out := match.SubmitAnswer(connID, sub.QIndex, sub.SelectedIndex, sub.TimeTakenMs)
	if !out.Accepted {
		return
	}

	participants := match.Participants()
	for _, p := range participants {
		p.Sink.Send(EventScoreUpdate, out.Update)
	}

	if out.Outcome == nil {
		return
	}
	a.matches.Remove(match.ID())
	for _, award := range out.Outcome.Awards {
		if err := a.board.Award(ctx, award.Username, award.Amount); err != nil {
			log.Printf("award %d xp to %s: %v", award.Amount, award.Username, err)
		}
	}
	for _, p := range participants {
		p.Sink.Send(EventMatchEnd, out.Outcome.Result)
	}
	log.Printf("match %s finished, winner: %s", match.ID(), out.Outcome.Result.Winner)
}

// Leaderboard sends the current top entries to the requester.
func (a *Arena) Leaderboard(ctx context.Context, sink EventSink) {
	entries, err := a.board.TopK(ctx, leaderboardSize)
	if err != nil {
		log.Printf("leaderboard query: %v", err)
		return
	}
	sink.Send(EventLeaderboardData, entries)
}

// Disconnect removes a waiting participant and aborts any match the
// connection belongs to, notifying the survivor. Both paths run: a stale
// queue entry must not shadow a live match. No XP is awarded for an aborted
// match.
func (a *Arena) Disconnect(ctx context.Context, connID string) {
	a.pairMu.Lock()
	a.queue.Remove(connID)
	match, ok := a.matches.ByConn(connID)
	a.pairMu.Unlock()
	if !ok {
		return
	}
	survivor, aborted := match.Abort(connID)
	if !aborted {
		return
	}
	a.matches.Remove(match.ID())
	if survivor != nil {
		survivor.Sink.Send(EventOpponentLeft, struct{}{})
	}
	log.Printf("match %s aborted, %s left", match.ID(), connID)
}

func anonName(connID string) string {
	suffix := connID
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return "Anon-" + suffix
}
