package server

import (
	"gorm.io/gorm"

	"quizmaster/internal/db"
)

// Controller drives the question flow:
//
//	waiting → question_shown → options_shown → reveal → (next question | finished)
//
// Every committed transition is a single transaction that adjusts the state
// row (bumping the version) and clears the ledger scopes the new phase must
// not inherit.
type Controller struct {
	db     *gorm.DB
	ledger *Ledger
	bank   *Bank
}

func NewController(conn *gorm.DB, ledger *Ledger, bank *Bank) *Controller {
	return &Controller{db: conn, ledger: ledger, bank: bank}
}

// Start begins a fresh game at question 0. All event scopes from any prior
// run are purged first.
func (c *Controller) Start(sessionID string) error {
	return c.run(func(tx *gorm.DB) error {
		if _, err := loadState(tx, sessionID); err != nil {
			return err
		}
		count, err := countQuestions(tx, sessionID)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrQuestionNotFound
		}
		if err := c.ledger.ClearSession(tx, sessionID); err != nil {
			return err
		}
		return transition(tx, sessionID, []Phase{PhaseWaiting}, 0, map[string]any{
			"phase":                  string(PhaseQuestionShown),
			"game_started":           true,
			"current_question":       0,
			"first_buzzer_player_id": nil,
		})
	})
}

// ShowOptions opens the answering window. Buzzers from the question_shown
// phase stay on the ledger for reference.
func (c *Controller) ShowOptions(sessionID string) error {
	return c.run(func(tx *gorm.DB) error {
		return transition(tx, sessionID, []Phase{PhaseQuestionShown}, 0, map[string]any{
			"phase": string(PhaseOptionsShown),
		})
	})
}

func (c *Controller) Reveal(sessionID string) error {
	return c.run(func(tx *gorm.DB) error {
		return transition(tx, sessionID, []Phase{PhaseOptionsShown}, 0, map[string]any{
			"phase": string(PhaseReveal),
		})
	})
}

// Advance moves from reveal to the next question, or to finished when the
// bank is exhausted. expectedVersion guards against two moderators (or a
// duplicated request) double-advancing: on mismatch nothing mutates and the
// caller gets ErrVersionConflict.
func (c *Controller) Advance(sessionID string, expectedVersion int64) error {
	return c.run(func(tx *gorm.DB) error {
		state, err := loadState(tx, sessionID)
		if err != nil {
			return err
		}
		count, err := countQuestions(tx, sessionID)
		if err != nil {
			return err
		}
		next := state.CurrentQuestion + 1
		if int64(next) >= count {
			return transition(tx, sessionID, []Phase{PhaseReveal}, expectedVersion, map[string]any{
				"phase":        string(PhaseFinished),
				"game_started": false,
			})
		}
		if err := transition(tx, sessionID, []Phase{PhaseReveal}, expectedVersion, map[string]any{
			"phase":                  string(PhaseQuestionShown),
			"current_question":       next,
			"first_buzzer_player_id": nil,
		}); err != nil {
			return err
		}
		// only the incoming question's scope is cleared; earlier scopes
		// stay for summaries
		return c.ledger.ClearQuestion(tx, sessionID, next)
	})
}

// SoftReset returns the session to waiting, keeping players and questions
// but dropping every recorded event.
func (c *Controller) SoftReset(sessionID string) error {
	return c.run(func(tx *gorm.DB) error {
		if err := c.ledger.ClearSession(tx, sessionID); err != nil {
			return err
		}
		return transition(tx, sessionID, allPhases(), 0, map[string]any{
			"phase":                  string(PhaseWaiting),
			"game_started":           false,
			"current_question":       0,
			"first_buzzer_player_id": nil,
			"buzz_locked":            false,
		})
	})
}

// FullReset additionally removes the players.
func (c *Controller) FullReset(sessionID string) error {
	return c.run(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&db.Player{}).Error; err != nil {
			return err
		}
		if err := c.ledger.ClearSession(tx, sessionID); err != nil {
			return err
		}
		return transition(tx, sessionID, allPhases(), 0, map[string]any{
			"phase":                  string(PhaseWaiting),
			"game_started":           false,
			"current_question":       0,
			"first_buzzer_player_id": nil,
			"buzz_locked":            false,
		})
	})
}

func (c *Controller) run(fn func(tx *gorm.DB) error) error {
	err := c.db.Transaction(fn)
	if err != nil && isStorageBusy(err) {
		return ErrStorageBusy
	}
	return err
}

func countQuestions(tx *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := tx.Model(&db.Question{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

func allPhases() []Phase {
	return []Phase{PhaseWaiting, PhaseQuestionShown, PhaseOptionsShown, PhaseReveal, PhaseFinished}
}
