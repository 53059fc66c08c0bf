package server

import (
	"errors"

	"gorm.io/gorm"

	"quizmaster/internal/db"
)

// StateStore reads and mutates the per-session game state row. The version
// column is the optimistic-concurrency token: it advances exactly once per
// committed transition and is never reused.
type StateStore struct {
	db *gorm.DB
}

func NewStateStore(conn *gorm.DB) *StateStore {
	return &StateStore{db: conn}
}

func (s *StateStore) Get(sessionID string) (db.GameState, error) {
	return loadState(s.db, sessionID)
}

func (s *StateStore) SetBuzzLock(sessionID string, locked bool) error {
	result := s.db.Model(&db.GameState{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{"buzz_locked": locked, "updated_at": timeNowUTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUnknownSession
	}
	return nil
}

func loadState(tx *gorm.DB, sessionID string) (db.GameState, error) {
	var state db.GameState
	err := tx.Where("session_id = ?", sessionID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return state, ErrUnknownSession
		}
		return state, err
	}
	if _, err := ParsePhase(state.Phase); err != nil {
		return state, err
	}
	return state, nil
}

// transition performs the compare-and-set at the heart of every phase change:
// a single UPDATE guarded by the current phase (and, when the caller supplies
// one, the expected version). Zero rows affected means the guard failed; the
// state is re-read once to report why.
func transition(tx *gorm.DB, sessionID string, from []Phase, expectedVersion int64, updates map[string]any) error {
	fromValues := make([]string, 0, len(from))
	for _, phase := range from {
		fromValues = append(fromValues, string(phase))
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = timeNowUTC()

	query := tx.Model(&db.GameState{}).
		Where("session_id = ? AND phase IN ?", sessionID, fromValues)
	if expectedVersion > 0 {
		query = query.Where("version = ?", expectedVersion)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		if isStorageBusy(result.Error) {
			return ErrStorageBusy
		}
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	state, err := loadState(tx, sessionID)
	if err != nil {
		return err
	}
	if expectedVersion > 0 && state.Version != expectedVersion {
		return ErrVersionConflict
	}
	return ErrInvalidPhase
}
