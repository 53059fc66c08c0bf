package server

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"quizmaster/internal/db"
)

// Join registers a nickname in the session. Rejoining with an existing
// nickname is idempotent: the unique (session, nickname) index catches the
// race and the existing player's id is returned instead of an error.
func (r *Registry) Join(sessionID, nickname string) (playerID string, existing bool, err error) {
	nickname, err = validateNickname(nickname)
	if err != nil {
		return "", false, err
	}
	if err := r.Ensure(sessionID); err != nil {
		return "", false, err
	}
	player := db.Player{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Nickname:  nickname,
		Active:    true,
		JoinedAt:  timeNowUTC(),
	}
	createErr := r.db.Create(&player).Error
	if createErr == nil {
		return player.ID, false, nil
	}
	if !isUniqueViolation(createErr) {
		if isStorageBusy(createErr) {
			return "", false, ErrStorageBusy
		}
		return "", false, createErr
	}
	var found db.Player
	if err := r.db.Where("session_id = ? AND nickname = ?", sessionID, nickname).First(&found).Error; err != nil {
		return "", false, err
	}
	// rejoin reactivates a previously deactivated player
	if !found.Active {
		if err := r.db.Model(&db.Player{}).Where("id = ?", found.ID).Update("active", true).Error; err != nil {
			return "", false, err
		}
	}
	return found.ID, true, nil
}

func (r *Registry) Players(sessionID string) ([]PlayerView, error) {
	var players []db.Player
	if err := r.db.Where("session_id = ?", sessionID).
		Order("joined_at asc, id asc").Find(&players).Error; err != nil {
		return nil, err
	}
	views := make([]PlayerView, 0, len(players))
	for _, player := range players {
		views = append(views, PlayerView{
			ID:       player.ID,
			Nickname: player.Nickname,
			Active:   player.Active,
			JoinedAt: player.JoinedAt,
		})
	}
	return views, nil
}

func (r *Registry) SetPlayerActive(sessionID, playerID string, active bool) error {
	result := r.db.Model(&db.Player{}).
		Where("session_id = ? AND id = ?", sessionID, playerID).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUnknownPlayer
	}
	return nil
}

func loadPlayer(tx *gorm.DB, sessionID, playerID string) (db.Player, error) {
	var player db.Player
	err := tx.Where("session_id = ? AND id = ?", sessionID, playerID).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return player, ErrUnknownPlayer
		}
		return player, err
	}
	return player, nil
}
