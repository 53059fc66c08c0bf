package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quizmaster/internal/db"
)

// Saves handles named full exports of a session: game state, question set,
// players, and notes, serialized into a single row. The export is the only
// durable interchange format and must round-trip losslessly.
type Saves struct {
	db *gorm.DB
}

func NewSaves(conn *gorm.DB) *Saves {
	return &Saves{db: conn}
}

type exportState struct {
	GameStarted     bool   `json:"game_started"`
	CurrentQuestion int    `json:"current_question"`
	Phase           string `json:"phase"`
	BuzzLocked      bool   `json:"buzz_locked"`
	Version         int64  `json:"version"`
}

type exportPlayer struct {
	Nickname string    `json:"nickname"`
	Active   bool      `json:"active"`
	JoinedAt time.Time `json:"joined_at"`
}

type exportQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	CorrectText  string   `json:"correct_text"`
	ImageRef     string   `json:"image_ref,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

type sessionExport struct {
	SessionName string           `json:"session_name"`
	Notes       string           `json:"notes"`
	State       exportState      `json:"state"`
	Players     []exportPlayer   `json:"players"`
	Questions   []exportQuestion `json:"questions"`
	SavedAt     time.Time        `json:"saved_at"`
}

// Save snapshots the session under the given name, overwriting any previous
// save with that name.
func (s *Saves) Save(sessionID, name string) error {
	name, err := validateSaveName(name)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		session, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		state, err := loadState(tx, sessionID)
		if err != nil {
			return err
		}
		var players []db.Player
		if err := tx.Where("session_id = ?", sessionID).
			Order("joined_at asc, id asc").Find(&players).Error; err != nil {
			return err
		}
		var questions []db.Question
		if err := tx.Where("session_id = ?", sessionID).
			Order("position asc").Find(&questions).Error; err != nil {
			return err
		}

		export := sessionExport{
			SessionName: session.Name,
			Notes:       session.Notes,
			State: exportState{
				GameStarted:     state.GameStarted,
				CurrentQuestion: state.CurrentQuestion,
				Phase:           state.Phase,
				BuzzLocked:      state.BuzzLocked,
				Version:         state.Version,
			},
			SavedAt: timeNowUTC(),
		}
		for _, player := range players {
			export.Players = append(export.Players, exportPlayer{
				Nickname: player.Nickname,
				Active:   player.Active,
				JoinedAt: player.JoinedAt,
			})
		}
		for _, question := range questions {
			export.Questions = append(export.Questions, exportQuestion{
				Text:         question.Text,
				Options:      question.Options,
				CorrectIndex: question.CorrectIndex,
				CorrectText:  question.CorrectText,
				ImageRef:     question.ImageRef,
				Explanation:  question.Explanation,
			})
		}

		payload, err := json.Marshal(export)
		if err != nil {
			return err
		}
		record := db.SessionSnapshot{Name: name, Payload: datatypes.JSON(payload)}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).Create(&record).Error
	})
}

// Load restores a saved export into a brand-new session and returns its id.
// Player ids are regenerated; nicknames and join order are preserved.
func (s *Saves) Load(name string) (string, error) {
	var record db.SessionSnapshot
	if err := s.db.Where("name = ?", name).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSaveNotFound
		}
		return "", err
	}
	var export sessionExport
	if err := json.Unmarshal(record.Payload, &export); err != nil {
		return "", err
	}
	if _, err := ParsePhase(export.State.Phase); err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&db.Session{
			ID:    sessionID,
			Name:  export.SessionName,
			Notes: export.Notes,
		}).Error; err != nil {
			return err
		}
		state := db.GameState{
			SessionID:       sessionID,
			GameStarted:     export.State.GameStarted,
			CurrentQuestion: export.State.CurrentQuestion,
			Phase:           export.State.Phase,
			BuzzLocked:      export.State.BuzzLocked,
			Version:         export.State.Version,
			UpdatedAt:       timeNowUTC(),
		}
		if state.Version < 1 {
			state.Version = 1
		}
		if err := tx.Create(&state).Error; err != nil {
			return err
		}
		for _, player := range export.Players {
			if err := tx.Create(&db.Player{
				ID:        uuid.NewString(),
				SessionID: sessionID,
				Nickname:  player.Nickname,
				Active:    player.Active,
				JoinedAt:  player.JoinedAt,
			}).Error; err != nil {
				return err
			}
		}
		for position, question := range export.Questions {
			if err := tx.Create(&db.Question{
				SessionID:    sessionID,
				Position:     position,
				Text:         question.Text,
				Options:      datatypes.NewJSONSlice(question.Options),
				CorrectIndex: question.CorrectIndex,
				CorrectText:  question.CorrectText,
				ImageRef:     question.ImageRef,
				Explanation:  question.Explanation,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (s *Saves) List() ([]SaveSummary, error) {
	var records []db.SessionSnapshot
	if err := s.db.Order("updated_at desc").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]SaveSummary, 0, len(records))
	for _, record := range records {
		summary := SaveSummary{Name: record.Name, SavedAt: record.UpdatedAt}
		var export sessionExport
		if err := json.Unmarshal(record.Payload, &export); err == nil {
			summary.Players = len(export.Players)
			summary.Questions = len(export.Questions)
		}
		list = append(list, summary)
	}
	return list, nil
}

func (s *Saves) Delete(name string) error {
	result := s.db.Where("name = ?", name).Delete(&db.SessionSnapshot{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSaveNotFound
	}
	return nil
}
