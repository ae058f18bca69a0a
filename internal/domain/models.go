package domain

import "math/rand"

// Question models an MCQ item; Correct is the zero-based index into Options.
type Question struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"q"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
}

// QuestionView is the client-facing projection of a Question with the answer
// key stripped.
type QuestionView struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"q"`
	Options []string `json:"options"`
}

// View strips the correct-index field for transmission to participants.
func (q Question) View() QuestionView {
	return QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
}

// QuestionBank is an immutable catalog of questions.
type QuestionBank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Sample draws up to n distinct questions in random order using a permutation
// prefix. It never mutates the bank.
func (b QuestionBank) Sample(rnd *rand.Rand, n int) []Question {
	if n > len(b.Questions) {
		n = len(b.Questions)
	}
	perm := rnd.Perm(len(b.Questions))
	drawn := make([]Question, 0, n)
	for _, idx := range perm[:n] {
		drawn = append(drawn, b.Questions[idx])
	}
	return drawn
}

// AnswerSubmission is the scoring signal from a participant.
type AnswerSubmission struct {
	MatchID       string
	QIndex        int
	SelectedIndex int
	TimeTakenMs   int64
}

// PlayerRef identifies a participant to their opponent.
type PlayerRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PlayerResult is one side of a finished match.
type PlayerResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// LobbyStatus reports the waiting-queue length to a joining participant.
type LobbyStatus struct {
	WaitingCount int `json:"waitingCount"`
}

// MatchStart is sent to each paired participant with their own opponent view.
type MatchStart struct {
	MatchID   string         `json:"matchId"`
	Opponent  PlayerRef      `json:"opponent"`
	Questions []QuestionView `json:"questions"`
}

// ScoreUpdate is broadcast to both participants after an accepted answer.
type ScoreUpdate struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	QIndex   int    `json:"qIndex"`
}

// WinnerTie is the winner marker for a drawn match.
const WinnerTie = "tie"

// MatchResult carries both final scores and the outcome.
type MatchResult struct {
	Players []PlayerResult `json:"players"`
	Winner  string         `json:"winner"`
}

// LeaderboardEntry maps a display name to cumulative experience points.
type LeaderboardEntry struct {
	Username string `json:"username"`
	XP       int    `json:"xp"`
}
