package server

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quizmaster/internal/db"
)

// Ledger is the append-only event store for buzzes, answers, and spoken
// marks, scoped by (session, question). Concurrency safety comes from the
// storage layer: unique indexes decide buzzer races, upsert clauses implement
// answer overwrites. No in-process locks.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(conn *gorm.DB) *Ledger {
	return &Ledger{db: conn}
}

// RecordBuzzer accepts at most one buzz per player per question. The
// timestamp is read inside the transaction, so ordering reflects commit
// order under contention rather than network arrival order.
func (l *Ledger) RecordBuzzer(sessionID, playerID string, questionIndex int) error {
	err := l.db.Transaction(func(tx *gorm.DB) error {
		state, err := loadState(tx, sessionID)
		if err != nil {
			return err
		}
		if Phase(state.Phase) != PhaseQuestionShown || state.CurrentQuestion != questionIndex {
			return ErrInvalidPhase
		}
		if state.BuzzLocked {
			return ErrBuzzLocked
		}
		if _, err := loadPlayer(tx, sessionID, playerID); err != nil {
			return err
		}
		event := db.BuzzerEvent{
			SessionID:     sessionID,
			PlayerID:      playerID,
			QuestionIndex: questionIndex,
			BuzzedAtNanos: monotonicNanos(),
		}
		if err := tx.Create(&event).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyBuzzed
			}
			return err
		}
		// first accepted buzz claims the slot; the guard keeps later
		// writers from overwriting it
		return tx.Model(&db.GameState{}).
			Where("session_id = ? AND first_buzzer_player_id IS NULL", sessionID).
			Update("first_buzzer_player_id", playerID).Error
	})
	if err != nil && isStorageBusy(err) {
		return ErrStorageBusy
	}
	return err
}

// Buzzers returns accepted buzzes for the question, earliest first. Ties on
// the monotonic timestamp fall back to insertion order.
func (l *Ledger) Buzzers(sessionID string, questionIndex int) ([]BuzzerView, error) {
	var events []db.BuzzerEvent
	if err := l.db.Where("session_id = ? AND question_index = ?", sessionID, questionIndex).
		Order("buzzed_at_nanos asc, id asc").Find(&events).Error; err != nil {
		return nil, err
	}
	nicknames, err := l.nicknames(sessionID)
	if err != nil {
		return nil, err
	}
	views := make([]BuzzerView, 0, len(events))
	for _, event := range events {
		views = append(views, BuzzerView{
			PlayerID:      event.PlayerID,
			Nickname:      nicknames[event.PlayerID],
			BuzzedAtNanos: event.BuzzedAtNanos,
		})
	}
	return views, nil
}

// RecordAnswer upserts the player's answer while options are shown; a second
// submission overwrites the first. Correctness is recomputed against the
// question's answer key at the moment of write and stored for audit.
func (l *Ledger) RecordAnswer(sessionID, playerID string, questionIndex, answerIndex int) (isCorrect bool, correctText string, err error) {
	err = l.db.Transaction(func(tx *gorm.DB) error {
		state, err := loadState(tx, sessionID)
		if err != nil {
			return err
		}
		if Phase(state.Phase) != PhaseOptionsShown || state.CurrentQuestion != questionIndex {
			return ErrInvalidPhase
		}
		if _, err := loadPlayer(tx, sessionID, playerID); err != nil {
			return err
		}
		question, err := questionAt(tx, sessionID, questionIndex)
		if err != nil {
			return err
		}
		if answerIndex < 0 || answerIndex >= len(question.Options) {
			return validationErrorf("answer_index", "must be between 0 and %d", len(question.Options)-1)
		}
		correctText = correctOptionText(question)
		isCorrect = question.Options[answerIndex] == correctText
		event := db.AnswerEvent{
			SessionID:       sessionID,
			PlayerID:        playerID,
			QuestionIndex:   questionIndex,
			AnswerIndex:     answerIndex,
			IsCorrect:       isCorrect,
			AnsweredAtNanos: monotonicNanos(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "session_id"}, {Name: "player_id"}, {Name: "question_index"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"answer_index", "is_correct", "answered_at_nanos", "updated_at",
			}),
		}).Create(&event).Error
	})
	if err != nil {
		if isStorageBusy(err) {
			return false, "", ErrStorageBusy
		}
		return false, "", err
	}
	return isCorrect, correctText, nil
}

func (l *Ledger) Answers(sessionID string, questionIndex int) ([]AnswerView, error) {
	var events []db.AnswerEvent
	if err := l.db.Where("session_id = ? AND question_index = ?", sessionID, questionIndex).
		Order("answered_at_nanos asc, id asc").Find(&events).Error; err != nil {
		return nil, err
	}
	nicknames, err := l.nicknames(sessionID)
	if err != nil {
		return nil, err
	}
	views := make([]AnswerView, 0, len(events))
	for _, event := range events {
		views = append(views, AnswerView{
			PlayerID:    event.PlayerID,
			Nickname:    nicknames[event.PlayerID],
			AnswerIndex: event.AnswerIndex,
			IsCorrect:   event.IsCorrect,
		})
	}
	return views, nil
}

// MarkSpoken is an idempotent set insert with no phase guard: the moderator
// can mark a player at any point in the question's window.
func (l *Ledger) MarkSpoken(sessionID, playerID string, questionIndex int) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		if _, err := loadPlayer(tx, sessionID, playerID); err != nil {
			return err
		}
		mark := db.SpokenMark{
			SessionID:     sessionID,
			PlayerID:      playerID,
			QuestionIndex: questionIndex,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mark).Error
	})
}

func (l *Ledger) SpokenPlayers(sessionID string, questionIndex int) ([]string, error) {
	var marks []db.SpokenMark
	if err := l.db.Where("session_id = ? AND question_index = ?", sessionID, questionIndex).
		Order("id asc").Find(&marks).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(marks))
	for _, mark := range marks {
		ids = append(ids, mark.PlayerID)
	}
	return ids, nil
}

// ClearQuestion purges the ledger scope for one question. Only the
// controller calls this, on phase advance.
func (l *Ledger) ClearQuestion(tx *gorm.DB, sessionID string, questionIndex int) error {
	for _, model := range []any{&db.BuzzerEvent{}, &db.AnswerEvent{}, &db.SpokenMark{}} {
		if err := tx.Where("session_id = ? AND question_index = ?", sessionID, questionIndex).
			Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// ClearSession purges every ledger scope for the session.
func (l *Ledger) ClearSession(tx *gorm.DB, sessionID string) error {
	for _, model := range []any{&db.BuzzerEvent{}, &db.AnswerEvent{}, &db.SpokenMark{}} {
		if err := tx.Where("session_id = ?", sessionID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) nicknames(sessionID string) (map[string]string, error) {
	var players []db.Player
	if err := l.db.Where("session_id = ?", sessionID).Find(&players).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(players))
	for _, player := range players {
		byID[player.ID] = player.Nickname
	}
	return byID, nil
}
