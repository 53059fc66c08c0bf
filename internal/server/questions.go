package server

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"quizmaster/internal/db"
)

// Bank owns the ordered question set of a session. Replacement is
// all-or-nothing: either every question validates and commits, or the
// existing set stays untouched.
type Bank struct {
	db *gorm.DB
}

func NewBank(conn *gorm.DB) *Bank {
	return &Bank{db: conn}
}

type QuestionInput struct {
	Text         string   `json:"text" yaml:"text"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correct_index" yaml:"correct_index"`
	ImageRef     string   `json:"image_ref,omitempty" yaml:"image_ref"`
	Explanation  string   `json:"explanation,omitempty" yaml:"explanation"`
}

// ReplaceAll validates, shuffles, and atomically swaps the session's
// question set. Each question's options are independently permuted and the
// stored correct index is remapped to the new position of the originally
// correct option, then verified by exact text match. A verification miss
// falls back to the first exact text match; no match at all aborts the whole
// replacement with ErrIntegrity — a wrong answer key must never persist.
func (b *Bank) ReplaceAll(sessionID string, inputs []QuestionInput) (int, error) {
	if len(inputs) == 0 {
		return 0, validationErrorf("questions", "at least one question is required")
	}
	records := make([]db.Question, 0, len(inputs))
	for i, input := range inputs {
		if err := validateQuestion(i, input); err != nil {
			return 0, err
		}
		record, err := shuffleQuestion(sessionID, i, input)
		if err != nil {
			return 0, err
		}
		records = append(records, record)
	}
	err := b.db.Transaction(func(tx *gorm.DB) error {
		if _, err := loadSession(tx, sessionID); err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&db.Question{}).Error; err != nil {
			return err
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		if isStorageBusy(err) {
			return 0, ErrStorageBusy
		}
		return 0, err
	}
	return len(records), nil
}

func shuffleQuestion(sessionID string, position int, input QuestionInput) (db.Question, error) {
	correctText := input.Options[input.CorrectIndex]
	perm := rand.Perm(len(input.Options))
	options := make([]string, len(input.Options))
	correctIndex := -1
	for newPos, oldPos := range perm {
		options[newPos] = input.Options[oldPos]
		if oldPos == input.CorrectIndex {
			correctIndex = newPos
		}
	}
	if correctIndex < 0 || options[correctIndex] != correctText {
		// duplicate option text can make the remap ambiguous; the first
		// exact match is still a correct answer key
		correctIndex = -1
		for i, option := range options {
			if option == correctText {
				correctIndex = i
				break
			}
		}
		if correctIndex < 0 {
			return db.Question{}, fmt.Errorf("question %d: %w", position, ErrIntegrity)
		}
	}
	return db.Question{
		SessionID:    sessionID,
		Position:     position,
		Text:         input.Text,
		Options:      datatypes.NewJSONSlice(options),
		CorrectIndex: correctIndex,
		CorrectText:  correctText,
		ImageRef:     input.ImageRef,
		Explanation:  input.Explanation,
	}, nil
}

func (b *Bank) Questions(sessionID string) ([]db.Question, error) {
	var questions []db.Question
	if err := b.db.Where("session_id = ?", sessionID).
		Order("position asc").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (b *Bank) Count(sessionID string) (int64, error) {
	var count int64
	err := b.db.Model(&db.Question{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

func questionAt(tx *gorm.DB, sessionID string, position int) (db.Question, error) {
	var question db.Question
	err := tx.Where("session_id = ? AND position = ?", sessionID, position).First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return question, ErrQuestionNotFound
		}
		return question, err
	}
	return question, nil
}

// correctOptionText resolves the answer text for a question, preferring the
// stored index but falling back to the audit copy if the two ever disagree
// (a denormalized field is never trusted blindly).
func correctOptionText(question db.Question) string {
	if question.CorrectIndex >= 0 && question.CorrectIndex < len(question.Options) {
		text := question.Options[question.CorrectIndex]
		if text == question.CorrectText || question.CorrectText == "" {
			return text
		}
	}
	for _, option := range question.Options {
		if option == question.CorrectText {
			return option
		}
	}
	if question.CorrectIndex >= 0 && question.CorrectIndex < len(question.Options) {
		return question.Options[question.CorrectIndex]
	}
	return question.CorrectText
}
