package app

import (
	"sync"
	"time"

	"skillsprint-arena/internal/domain"
)

// MatchState is the lifecycle state of a match session.
type MatchState string

const (
	// MatchForming exists only inside the constructor; both participants are
	// known at creation so the state flips to InProgress before the match is
	// visible to anyone else.
	MatchForming    MatchState = "forming"
	MatchInProgress MatchState = "in_progress"
	MatchCompleted  MatchState = "completed"
	MatchAborted    MatchState = "aborted"
)

// Experience awarded at completion.
const (
	xpWin  = 100
	xpLoss = 30
	xpTie  = 60
)

type playerState struct {
	participant   *Participant
	score         int
	answered      []bool
	answeredCount int
}

// Match is one two-participant duel. It is the sole mutator of its players'
// scores; the question list never changes after construction.
type Match struct {
	id        string
	createdAt time.Time
	questions []domain.Question

	mu      sync.Mutex
	state   MatchState
	players map[string]*playerState
	order   [2]string
}

// NewMatch builds an in-progress match between a and b over the given
// questions. The two participants must have distinct connection IDs.
func NewMatch(id string, a, b *Participant, questions []domain.Question) *Match {
	m := &Match{
		id:        id,
		createdAt: time.Now(),
		questions: questions,
		state:     MatchForming,
		players: map[string]*playerState{
			a.ConnID: {participant: a, answered: make([]bool, len(questions))},
			b.ConnID: {participant: b, answered: make([]bool, len(questions))},
		},
		order: [2]string{a.ConnID, b.ConnID},
	}
	m.state = MatchInProgress
	return m
}

func (m *Match) ID() string {
	return m.id
}

func (m *Match) State() MatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Participants returns both participants in join order.
func (m *Match) Participants() [2]*Participant {
	return [2]*Participant{
		m.players[m.order[0]].participant,
		m.players[m.order[1]].participant,
	}
}

// QuestionViews projects the question list without answer keys.
func (m *Match) QuestionViews() []domain.QuestionView {
	views := make([]domain.QuestionView, 0, len(m.questions))
	for _, q := range m.questions {
		views = append(views, q.View())
	}
	return views
}

// Award is one leaderboard credit produced by a completed match.
type Award struct {
	Username string
	Amount   int
}

// MatchOutcome is produced exactly once, by the submission that completes the
// match.
type MatchOutcome struct {
	Result domain.MatchResult
	Awards []Award
}

// AnswerOutcome reports what a submission did. Accepted is false for stale,
// foreign, out-of-range, or duplicate submissions; those mutate nothing.
type AnswerOutcome struct {
	Accepted bool
	Update   domain.ScoreUpdate
	Outcome  *MatchOutcome
}

// SubmitAnswer scores one answer. A correct answer earns 1000 minus a time
// penalty capped at 800; incorrect or timed-out (selected < 0) answers earn
// nothing but still count as answered. Each question index is scored at most
// once per participant.
func (m *Match) SubmitAnswer(connID string, qIndex, selected int, elapsedMs int64) AnswerOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != MatchInProgress {
		return AnswerOutcome{}
	}
	ps, ok := m.players[connID]
	if !ok {
		return AnswerOutcome{}
	}
	if qIndex < 0 || qIndex >= len(m.questions) {
		return AnswerOutcome{}
	}
	if ps.answered[qIndex] {
		return AnswerOutcome{}
	}

	ps.answered[qIndex] = true
	ps.answeredCount++
	if selected == m.questions[qIndex].Correct {
		ps.score += answerGain(elapsedMs)
	}

	out := AnswerOutcome{
		Accepted: true,
		Update: domain.ScoreUpdate{
			PlayerID: connID,
			Username: ps.participant.Username,
			Score:    ps.score,
			QIndex:   qIndex,
		},
	}
	if m.allAnsweredLocked() {
		out.Outcome = m.completeLocked()
	}
	return out
}

// Abort moves an in-progress match to Aborted because connID vanished and
// returns the surviving participant. Terminal states are left untouched.
func (m *Match) Abort(connID string) (survivor *Participant, aborted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != MatchInProgress {
		return nil, false
	}
	if _, ok := m.players[connID]; !ok {
		return nil, false
	}
	m.state = MatchAborted
	for id, ps := range m.players {
		if id != connID {
			survivor = ps.participant
		}
	}
	return survivor, true
}

func (m *Match) allAnsweredLocked() bool {
	for _, ps := range m.players {
		if ps.answeredCount < len(m.questions) {
			return false
		}
	}
	return true
}

func (m *Match) completeLocked() *MatchOutcome {
	m.state = MatchCompleted

	p1 := m.players[m.order[0]]
	p2 := m.players[m.order[1]]
	result := domain.MatchResult{
		Players: []domain.PlayerResult{
			{ID: m.order[0], Username: p1.participant.Username, Score: p1.score},
			{ID: m.order[1], Username: p2.participant.Username, Score: p2.score},
		},
	}

	var awards []Award
	switch {
	case p1.score > p2.score:
		result.Winner = p1.participant.Username
		awards = []Award{
			{Username: p1.participant.Username, Amount: xpWin},
			{Username: p2.participant.Username, Amount: xpLoss},
		}
	case p2.score > p1.score:
		result.Winner = p2.participant.Username
		awards = []Award{
			{Username: p2.participant.Username, Amount: xpWin},
			{Username: p1.participant.Username, Amount: xpLoss},
		}
	default:
		result.Winner = domain.WinnerTie
		awards = []Award{
			{Username: p1.participant.Username, Amount: xpTie},
			{Username: p2.participant.Username, Amount: xpTie},
		}
	}
	return &MatchOutcome{Result: result, Awards: awards}
}

// answerGain is 1000 minus one point per 10ms elapsed, never below 200.
func answerGain(elapsedMs int64) int {
	penalty := elapsedMs / 10
	if penalty > 800 {
		penalty = 800
	}
	if penalty < 0 {
		penalty = 0
	}
	return 1000 - int(penalty)
}
