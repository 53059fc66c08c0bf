package server

import (
	"fmt"
	"time"
)

// Phase is the current step of question flow. Values are validated at every
// boundary; an unrecognized phase string is a hard error, never a default.
type Phase string

const (
	PhaseWaiting       Phase = "waiting"
	PhaseQuestionShown Phase = "question_shown"
	PhaseOptionsShown  Phase = "options_shown"
	PhaseReveal        Phase = "reveal"
	PhaseFinished      Phase = "finished"
)

func ParsePhase(raw string) (Phase, error) {
	switch Phase(raw) {
	case PhaseWaiting, PhaseQuestionShown, PhaseOptionsShown, PhaseReveal, PhaseFinished:
		return Phase(raw), nil
	}
	return "", fmt.Errorf("unrecognized phase %q", raw)
}

type SessionSummary struct {
	ID        string    `json:"session_id"`
	Name      string    `json:"name"`
	Phase     Phase     `json:"phase"`
	Players   int64     `json:"players"`
	Questions int64     `json:"questions"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

type PlayerView struct {
	ID       string    `json:"player_id"`
	Nickname string    `json:"nickname"`
	Active   bool      `json:"active"`
	JoinedAt time.Time `json:"joined_at"`
}

type BuzzerView struct {
	PlayerID      string `json:"player_id"`
	Nickname      string `json:"nickname"`
	BuzzedAtNanos int64  `json:"buzzed_at_nanos"`
}

type AnswerView struct {
	PlayerID    string `json:"player_id"`
	Nickname    string `json:"nickname"`
	AnswerIndex int    `json:"answer_index"`
	IsCorrect   bool   `json:"is_correct"`
}

// QuestionView is the client-facing projection of a question. CorrectIndex
// and Explanation stay hidden until the phase reaches reveal.
type QuestionView struct {
	Index        int      `json:"index"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	ImageRef     string   `json:"image_ref,omitempty"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

type Snapshot struct {
	SessionID       string        `json:"session_id"`
	GameStarted     bool          `json:"game_started"`
	Phase           Phase         `json:"phase"`
	CurrentQuestion int           `json:"current_question"`
	QuestionCount   int           `json:"question_count"`
	FirstBuzzer     *string       `json:"first_buzzer,omitempty"`
	BuzzLocked      bool          `json:"buzz_locked"`
	Version         int64         `json:"version"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Question        *QuestionView `json:"question,omitempty"`
	Buzzers         []BuzzerView  `json:"buzzers"`
	Answers         []AnswerView  `json:"answers"`
	SpokenPlayerIDs []string      `json:"spoken_player_ids"`
	Players         []PlayerView  `json:"players"`
}

type SummaryEntry struct {
	QuestionIndex     int    `json:"question_index"`
	Question          string `json:"question"`
	PlayerAnswerText  string `json:"player_answer_text"`
	CorrectAnswerText string `json:"correct_answer_text"`
	IsCorrect         bool   `json:"is_correct"`
	Answered          bool   `json:"answered"`
	Explanation       string `json:"explanation,omitempty"`
}

type PlayerSummary struct {
	PlayerID       string         `json:"player_id"`
	Nickname       string         `json:"nickname"`
	TotalQuestions int            `json:"total_questions"`
	AnsweredCount  int            `json:"answered_count"`
	CorrectCount   int            `json:"correct_count"`
	IncorrectCount int            `json:"incorrect_count"`
	Unanswered     []int          `json:"unanswered"`
	Breakdown      []SummaryEntry `json:"breakdown"`
}

type AnswerStats struct {
	QuestionIndex     int      `json:"question_index"`
	AnsweredCount     int      `json:"answered_count"`
	ActivePlayerCount int      `json:"active_player_count"`
	AllAnswered       bool     `json:"all_answered"`
	AnsweredNames     []string `json:"answered_names"`
	NotAnsweredNames  []string `json:"not_answered_names"`
}

type SaveSummary struct {
	Name      string    `json:"name"`
	SavedAt   time.Time `json:"saved_at"`
	Players   int       `json:"players"`
	Questions int       `json:"questions"`
}
