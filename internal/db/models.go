package db

import (
	"time"

	"gorm.io/datatypes"
)

// Session is the isolation boundary. Every other row hangs off a session id
// and is deleted with it.
type Session struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"size:64;not null"`
	Notes     string    `gorm:"size:4096;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// GameState holds one row per session. Version only ever moves forward and is
// bumped once per committed phase transition; optimistic writers compare it.
type GameState struct {
	SessionID           string    `gorm:"primaryKey;size:36"`
	GameStarted         bool      `gorm:"not null;default:false"`
	CurrentQuestion     int       `gorm:"not null;default:0"`
	Phase               string    `gorm:"size:32;not null"`
	FirstBuzzerPlayerID *string   `gorm:"size:36"`
	BuzzLocked          bool      `gorm:"not null;default:false"`
	Version             int64     `gorm:"not null;default:1"`
	UpdatedAt           time.Time `gorm:"not null"`
}

type Player struct {
	ID        string    `gorm:"primaryKey;size:36"`
	SessionID string    `gorm:"size:36;index;not null;uniqueIndex:idx_players_session_nickname"`
	Nickname  string    `gorm:"size:64;not null;uniqueIndex:idx_players_session_nickname"`
	Active    bool      `gorm:"not null;default:true"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Question rows are immutable once written; replacing a session's set is
// all-or-nothing. CorrectText is a derived-at-write audit copy of the option
// at CorrectIndex, kept so a desynchronized answer key is detectable.
type Question struct {
	ID           uint                        `gorm:"primaryKey"`
	SessionID    string                      `gorm:"size:36;not null;uniqueIndex:idx_questions_session_position"`
	Position     int                         `gorm:"not null;uniqueIndex:idx_questions_session_position"`
	Text         string                      `gorm:"size:1024;not null"`
	Options      datatypes.JSONSlice[string] `gorm:"not null"`
	CorrectIndex int                         `gorm:"not null"`
	CorrectText  string                      `gorm:"size:512;not null"`
	ImageRef     string                      `gorm:"size:512;not null;default:''"`
	Explanation  string                      `gorm:"size:2048;not null;default:''"`
	CreatedAt    time.Time                   `gorm:"not null"`
}

// BuzzerEvent uniqueness on (session, player, question) is the race-prevention
// primitive: concurrent buzzes by the same player collapse to one accepted row
// at the storage layer. BuzzedAtNanos comes from the process monotonic clock,
// read inside the inserting transaction.
type BuzzerEvent struct {
	ID            uint      `gorm:"primaryKey"`
	SessionID     string    `gorm:"size:36;not null;uniqueIndex:idx_buzzes_session_player_question"`
	PlayerID      string    `gorm:"size:36;not null;uniqueIndex:idx_buzzes_session_player_question"`
	QuestionIndex int       `gorm:"not null;uniqueIndex:idx_buzzes_session_player_question"`
	BuzzedAtNanos int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

// AnswerEvent shares the buzzer uniqueness key but is upsertable: a player may
// change their answer until reveal. IsCorrect is recomputed at every write.
type AnswerEvent struct {
	ID              uint      `gorm:"primaryKey"`
	SessionID       string    `gorm:"size:36;not null;uniqueIndex:idx_answers_session_player_question"`
	PlayerID        string    `gorm:"size:36;not null;uniqueIndex:idx_answers_session_player_question"`
	QuestionIndex   int       `gorm:"not null;uniqueIndex:idx_answers_session_player_question"`
	AnswerIndex     int       `gorm:"not null"`
	IsCorrect       bool      `gorm:"not null"`
	AnsweredAtNanos int64     `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

type SpokenMark struct {
	ID            uint      `gorm:"primaryKey"`
	SessionID     string    `gorm:"size:36;not null;uniqueIndex:idx_spoken_session_player_question"`
	PlayerID      string    `gorm:"size:36;not null;uniqueIndex:idx_spoken_session_player_question"`
	QuestionIndex int       `gorm:"not null;uniqueIndex:idx_spoken_session_player_question"`
	CreatedAt     time.Time `gorm:"not null"`
}

// SessionSnapshot is a named full export of a session (state, questions,
// players, notes) used for backup and restore. Saving under an existing name
// overwrites.
type SessionSnapshot struct {
	ID        uint           `gorm:"primaryKey"`
	Name      string         `gorm:"size:64;uniqueIndex;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}
