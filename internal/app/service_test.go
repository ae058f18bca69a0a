package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"skillsprint-arena/internal/app"
	"skillsprint-arena/internal/domain"
	"skillsprint-arena/internal/infra/memory"
)

type recordedEvent struct {
	name    string
	payload any
}

type fakeSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *fakeSink) Send(name string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{name: name, payload: payload})
}

func (s *fakeSink) byName(name string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, e := range s.events {
		if e.name == name {
			out = append(out, e.payload)
		}
	}
	return out
}

type fixedSource struct {
	questions []domain.Question
}

func (f *fixedSource) Draw(_ context.Context, n int) ([]domain.Question, error) {
	if n > len(f.questions) {
		n = len(f.questions)
	}
	return f.questions[:n], nil
}

type seqIDs struct {
	n int
}

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("match-%d", s.n)
}

func testQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Prompt: "q0", Options: []string{"a", "b"}, Correct: 0},
		{ID: 2, Prompt: "q1", Options: []string{"a", "b"}, Correct: 1},
		{ID: 3, Prompt: "q2", Options: []string{"a", "b"}, Correct: 0},
		{ID: 4, Prompt: "q3", Options: []string{"a", "b"}, Correct: 1},
		{ID: 5, Prompt: "q4", Options: []string{"a", "b"}, Correct: 0},
	}
}

func newTestArena() (*app.Arena, app.LeaderboardStore) {
	board := memory.NewLeaderboard()
	arena := app.NewArena(
		memory.NewMatchRegistry(),
		&fixedSource{questions: testQuestions()},
		board,
		&seqIDs{},
		5,
	)
	return arena, board
}

func TestDuelFlowFromJoinToMatchEnd(t *testing.T) {
	ctx := context.Background()
	arena, board := newTestArena()
	sinkA, sinkB := &fakeSink{}, &fakeSink{}

	require.NoError(t, arena.JoinLobby(ctx, "conn-a", "Alice", sinkA))
	statuses := sinkA.byName(app.EventLobbyStatus)
	require.Len(t, statuses, 1)
	require.Equal(t, domain.LobbyStatus{WaitingCount: 1}, statuses[0])

	require.NoError(t, arena.JoinLobby(ctx, "conn-b", "Bob", sinkB))

	startsA := sinkA.byName(app.EventStartMatch)
	startsB := sinkB.byName(app.EventStartMatch)
	require.Len(t, startsA, 1)
	require.Len(t, startsB, 1)

	startA := startsA[0].(domain.MatchStart)
	startB := startsB[0].(domain.MatchStart)
	require.Equal(t, startA.MatchID, startB.MatchID)
	require.Equal(t, domain.PlayerRef{ID: "conn-b", Username: "Bob"}, startA.Opponent)
	require.Equal(t, domain.PlayerRef{ID: "conn-a", Username: "Alice"}, startB.Opponent)
	require.Equal(t, startA.Questions, startB.Questions)
	require.Len(t, startA.Questions, 5)
	matchID := startA.MatchID

	// Alice: q0 correct in 500ms, the rest wrong.
	arena.SubmitAnswer(ctx, "conn-a", domain.AnswerSubmission{MatchID: matchID, QIndex: 0, SelectedIndex: 0, TimeTakenMs: 500})
	updates := sinkB.byName(app.EventScoreUpdate)
	require.Len(t, updates, 1)
	require.Equal(t, domain.ScoreUpdate{PlayerID: "conn-a", Username: "Alice", Score: 950, QIndex: 0}, updates[0])

	for i := 1; i < 5; i++ {
		arena.SubmitAnswer(ctx, "conn-a", domain.AnswerSubmission{MatchID: matchID, QIndex: i, SelectedIndex: -1})
	}

	// Bob: q0 at Alice's speed, everything else correct instantly.
	correct := []int{0, 1, 0, 1, 0}
	arena.SubmitAnswer(ctx, "conn-b", domain.AnswerSubmission{MatchID: matchID, QIndex: 0, SelectedIndex: 0, TimeTakenMs: 500})
	for i := 1; i < 5; i++ {
		arena.SubmitAnswer(ctx, "conn-b", domain.AnswerSubmission{MatchID: matchID, QIndex: i, SelectedIndex: correct[i]})
	}

	for _, sink := range []*fakeSink{sinkA, sinkB} {
		ends := sink.byName(app.EventMatchEnd)
		require.Len(t, ends, 1)
		result := ends[0].(domain.MatchResult)
		require.Equal(t, "Bob", result.Winner)
		require.Equal(t, 950, result.Players[0].Score)
		require.Equal(t, 4950, result.Players[1].Score)
	}

	entries, err := board.TopK(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []domain.LeaderboardEntry{
		{Username: "Bob", XP: 100},
		{Username: "Alice", XP: 30},
	}, entries)

	// The match is deregistered: replays are silent no-ops.
	before := len(sinkA.byName(app.EventScoreUpdate))
	arena.SubmitAnswer(ctx, "conn-a", domain.AnswerSubmission{MatchID: matchID, QIndex: 0, SelectedIndex: 0})
	require.Len(t, sinkA.byName(app.EventScoreUpdate), before)
}

func TestTieAwardsBothParticipants(t *testing.T) {
	ctx := context.Background()
	arena, board := newTestArena()
	sinkA, sinkB := &fakeSink{}, &fakeSink{}

	require.NoError(t, arena.JoinLobby(ctx, "conn-a", "Alice", sinkA))
	require.NoError(t, arena.JoinLobby(ctx, "conn-b", "Bob", sinkB))
	matchID := sinkA.byName(app.EventStartMatch)[0].(domain.MatchStart).MatchID

	for i := 0; i < 5; i++ {
		arena.SubmitAnswer(ctx, "conn-a", domain.AnswerSubmission{MatchID: matchID, QIndex: i, SelectedIndex: -1})
		arena.SubmitAnswer(ctx, "conn-b", domain.AnswerSubmission{MatchID: matchID, QIndex: i, SelectedIndex: -1})
	}

	result := sinkA.byName(app.EventMatchEnd)[0].(domain.MatchResult)
	require.Equal(t, domain.WinnerTie, result.Winner)

	entries, err := board.TopK(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []domain.LeaderboardEntry{
		{Username: "Alice", XP: 60},
		{Username: "Bob", XP: 60},
	}, entries)
}

func TestDisconnectAbortsMatchWithoutAwards(t *testing.T) {
	ctx := context.Background()
	arena, board := newTestArena()
	sinkA, sinkB := &fakeSink{}, &fakeSink{}

	require.NoError(t, arena.JoinLobby(ctx, "conn-a", "Alice", sinkA))
	require.NoError(t, arena.JoinLobby(ctx, "conn-b", "Bob", sinkB))
	matchID := sinkA.byName(app.EventStartMatch)[0].(domain.MatchStart).MatchID

	arena.Disconnect(ctx, "conn-b")

	require.Len(t, sinkA.byName(app.EventOpponentLeft), 1)
	require.Empty(t, sinkB.byName(app.EventOpponentLeft))

	entries, err := board.TopK(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, entries)

	// Subsequent answers for the dead match are silent no-ops.
	arena.SubmitAnswer(ctx, "conn-a", domain.AnswerSubmission{MatchID: matchID, QIndex: 0, SelectedIndex: 0})
	require.Empty(t, sinkA.byName(app.EventScoreUpdate))
}

func TestThirdJoinerWaitsForFourth(t *testing.T) {
	ctx := context.Background()
	arena, _ := newTestArena()
	sinkA, sinkB, sinkC, sinkD := &fakeSink{}, &fakeSink{}, &fakeSink{}, &fakeSink{}

	require.NoError(t, arena.JoinLobby(ctx, "conn-a", "Alice", sinkA))
	require.NoError(t, arena.JoinLobby(ctx, "conn-b", "Bob", sinkB))
	require.NoError(t, arena.JoinLobby(ctx, "conn-c", "Carol", sinkC))

	require.Len(t, sinkA.byName(app.EventStartMatch), 1)
	require.Len(t, sinkB.byName(app.EventStartMatch), 1)
	require.Empty(t, sinkC.byName(app.EventStartMatch))
	require.Equal(t, domain.LobbyStatus{WaitingCount: 1}, sinkC.byName(app.EventLobbyStatus)[0])

	require.NoError(t, arena.JoinLobby(ctx, "conn-d", "Dave", sinkD))
	carolStart := sinkC.byName(app.EventStartMatch)
	require.Len(t, carolStart, 1)
	require.Equal(t, "conn-d", carolStart[0].(domain.MatchStart).Opponent.ID)
}

func TestRejoinWhileInMatchIsRejected(t *testing.T) {
	ctx := context.Background()
	arena, board := newTestArena()
	sinkA, sinkB := &fakeSink{}, &fakeSink{}

	require.NoError(t, arena.JoinLobby(ctx, "conn-a", "Alice", sinkA))
	require.NoError(t, arena.JoinLobby(ctx, "conn-b", "Bob", sinkB))
	matchID := sinkA.byName(app.EventStartMatch)[0].(domain.MatchStart).MatchID

	// A second join from a connection with a live match must not queue it.
	err := arena.JoinLobby(ctx, "conn-a", "Alice", sinkA)
	require.ErrorIs(t, err, domain.ErrAlreadyInMatch)
	require.Len(t, sinkA.byName(app.EventLobbyStatus), 1)

	// Its disconnect must still reach the match: Bob is notified and the
	// session dies instead of lingering.
	arena.Disconnect(ctx, "conn-a")
	require.Len(t, sinkB.byName(app.EventOpponentLeft), 1)

	arena.SubmitAnswer(ctx, "conn-b", domain.AnswerSubmission{MatchID: matchID, QIndex: 0, SelectedIndex: 0})
	require.Empty(t, sinkB.byName(app.EventScoreUpdate))

	entries, topErr := board.TopK(ctx, 10)
	require.NoError(t, topErr)
	require.Empty(t, entries)
}

type gatedSource struct {
	questions []domain.Question
	entered   chan struct{}
	release   chan struct{}
}

func (g *gatedSource) Draw(_ context.Context, n int) ([]domain.Question, error) {
	close(g.entered)
	<-g.release
	if n > len(g.questions) {
		n = len(g.questions)
	}
	return g.questions[:n], nil
}

func TestDisconnectDuringPairingAbortsMatch(t *testing.T) {
	ctx := context.Background()
	source := &gatedSource{
		questions: testQuestions(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	board := memory.NewLeaderboard()
	arena := app.NewArena(memory.NewMatchRegistry(), source, board, &seqIDs{}, 5)
	sinkA, sinkB := &fakeSink{}, &fakeSink{}

	require.NoError(t, arena.JoinLobby(ctx, "conn-a", "Alice", sinkA))

	joinDone := make(chan error, 1)
	go func() {
		joinDone <- arena.JoinLobby(ctx, "conn-b", "Bob", sinkB)
	}()

	// Alice disconnects while the pair is dequeued but the draw is still in
	// flight. The disconnect must land after registration and abort the
	// match rather than vanishing between the two structures.
	<-source.entered
	discDone := make(chan struct{})
	go func() {
		arena.Disconnect(ctx, "conn-a")
		close(discDone)
	}()
	close(source.release)

	require.NoError(t, <-joinDone)
	<-discDone

	require.Len(t, sinkB.byName(app.EventStartMatch), 1)
	require.Len(t, sinkB.byName(app.EventOpponentLeft), 1)

	entries, err := board.TopK(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDisconnectRemovesQueuedParticipant(t *testing.T) {
	ctx := context.Background()
	arena, _ := newTestArena()
	sinkA, sinkB, sinkC := &fakeSink{}, &fakeSink{}, &fakeSink{}

	require.NoError(t, arena.JoinLobby(ctx, "conn-a", "Alice", sinkA))
	arena.Disconnect(ctx, "conn-a")

	require.NoError(t, arena.JoinLobby(ctx, "conn-b", "Bob", sinkB))
	require.NoError(t, arena.JoinLobby(ctx, "conn-c", "Carol", sinkC))

	require.Empty(t, sinkA.byName(app.EventStartMatch))
	bobStart := sinkB.byName(app.EventStartMatch)
	require.Len(t, bobStart, 1)
	require.Equal(t, "conn-c", bobStart[0].(domain.MatchStart).Opponent.ID)
}

func TestJoinWithoutUsernameGetsAnonName(t *testing.T) {
	ctx := context.Background()
	arena, _ := newTestArena()
	sinkA, sinkB := &fakeSink{}, &fakeSink{}

	require.NoError(t, arena.JoinLobby(ctx, "abcdef-123", "", sinkA))
	require.NoError(t, arena.JoinLobby(ctx, "conn-b", "Bob", sinkB))

	start := sinkB.byName(app.EventStartMatch)[0].(domain.MatchStart)
	require.Equal(t, "Anon-abcd", start.Opponent.Username)
}

func TestLeaderboardRequestReturnsTopTen(t *testing.T) {
	ctx := context.Background()
	arena, board := newTestArena()
	sink := &fakeSink{}

	for i := 0; i < 12; i++ {
		require.NoError(t, board.Award(ctx, fmt.Sprintf("player-%02d", i), 10+i))
	}

	arena.Leaderboard(ctx, sink)
	data := sink.byName(app.EventLeaderboardData)
	require.Len(t, data, 1)
	entries := data[0].([]domain.LeaderboardEntry)
	require.Len(t, entries, 10)
	require.Equal(t, "player-11", entries[0].Username)
	require.Equal(t, 21, entries[0].XP)
}
