package server

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"quizmaster/internal/db"
)

// Registry creates, looks up, and deletes sessions. Sessions are fully
// isolated from each other; every operation names its session explicitly.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(conn *gorm.DB) *Registry {
	return &Registry{db: conn}
}

func defaultState(sessionID string) db.GameState {
	return db.GameState{
		SessionID:       sessionID,
		Phase:           string(PhaseWaiting),
		CurrentQuestion: 0,
		Version:         1,
		UpdatedAt:       timeNowUTC(),
	}
}

func (r *Registry) Create(name string) (string, error) {
	name, err := validateSessionName(name)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&db.Session{ID: id, Name: name}).Error; err != nil {
			return err
		}
		state := defaultState(id)
		return tx.Create(&state).Error
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Ensure initializes a session on first reference to an unseen id: a fresh
// waiting state at version 1 and an empty question bank. Calling it on an
// existing session changes nothing.
func (r *Registry) Ensure(id string) error {
	if id == "" {
		return ErrUnknownSession
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		session := db.Session{ID: id, Name: id}
		if err := tx.Where(db.Session{ID: id}).FirstOrCreate(&session).Error; err != nil {
			return err
		}
		state := defaultState(id)
		return tx.Where(db.GameState{SessionID: id}).FirstOrCreate(&state).Error
	})
}

func (r *Registry) Exists(id string) (bool, error) {
	var count int64
	if err := r.db.Model(&db.Session{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Registry) List() ([]SessionSummary, error) {
	var sessions []db.Session
	if err := r.db.Order("created_at asc").Find(&sessions).Error; err != nil {
		return nil, err
	}
	list := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summary := SessionSummary{
			ID:        session.ID,
			Name:      session.Name,
			CreatedAt: session.CreatedAt,
		}
		var state db.GameState
		if err := r.db.Where("session_id = ?", session.ID).First(&state).Error; err == nil {
			phase, err := ParsePhase(state.Phase)
			if err != nil {
				return nil, err
			}
			summary.Phase = phase
			summary.Version = state.Version
		}
		r.db.Model(&db.Player{}).Where("session_id = ?", session.ID).Count(&summary.Players)
		r.db.Model(&db.Question{}).Where("session_id = ?", session.ID).Count(&summary.Questions)
		list = append(list, summary)
	}
	return list, nil
}

// Delete removes the session and cascades to every owned row.
func (r *Registry) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&db.Session{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUnknownSession
		}
		for _, model := range []any{
			&db.GameState{}, &db.Player{}, &db.Question{},
			&db.BuzzerEvent{}, &db.AnswerEvent{}, &db.SpokenMark{},
		} {
			if err := tx.Where("session_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Registry) SetNotes(id, notes string) error {
	notes, err := validateNotes(notes)
	if err != nil {
		return err
	}
	result := r.db.Model(&db.Session{}).Where("id = ?", id).Update("notes", notes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUnknownSession
	}
	return nil
}

func loadSession(tx *gorm.DB, id string) (db.Session, error) {
	var session db.Session
	if err := tx.Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session, ErrUnknownSession
		}
		return session, err
	}
	return session, nil
}
