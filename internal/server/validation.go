package server

import (
	"strconv"
	"strings"
)

const (
	maxNicknameLength     = 24
	maxSessionNameLength  = 64
	maxSaveNameLength     = 64
	maxNotesLength        = 4096
	maxQuestionLength     = 1024
	maxOptionLength       = 512
	maxExplanationLength  = 2048
	maxOptionsPerQuestion = 12
)

func validateNickname(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", validationErrorf("nickname", "is required")
	}
	if len(trimmed) > maxNicknameLength {
		return "", validationErrorf("nickname", "must be %d characters or fewer", maxNicknameLength)
	}
	return trimmed, nil
}

func validateSessionName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", validationErrorf("name", "is required")
	}
	if len(trimmed) > maxSessionNameLength {
		return "", validationErrorf("name", "must be %d characters or fewer", maxSessionNameLength)
	}
	return trimmed, nil
}

func validateSaveName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", validationErrorf("name", "is required")
	}
	if len(trimmed) > maxSaveNameLength {
		return "", validationErrorf("name", "must be %d characters or fewer", maxSaveNameLength)
	}
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			continue
		}
		if r == '-' || r == '_' || r == '.' || r == ' ' {
			continue
		}
		return "", validationErrorf("name", "contains unsupported characters")
	}
	return trimmed, nil
}

func validateNotes(notes string) (string, error) {
	if len(notes) > maxNotesLength {
		return "", validationErrorf("notes", "must be %d characters or fewer", maxNotesLength)
	}
	return notes, nil
}

// validateQuestion is fail-closed: any violation rejects the entire
// replacement set.
func validateQuestion(index int, input QuestionInput) error {
	field := func(name string) string {
		return "questions[" + strconv.Itoa(index) + "]." + name
	}
	if normalizeText(input.Text) == "" {
		return validationErrorf(field("text"), "is required")
	}
	if len(input.Text) > maxQuestionLength {
		return validationErrorf(field("text"), "must be %d characters or fewer", maxQuestionLength)
	}
	if len(input.Options) < 2 {
		return validationErrorf(field("options"), "at least 2 options are required")
	}
	if len(input.Options) > maxOptionsPerQuestion {
		return validationErrorf(field("options"), "at most %d options are allowed", maxOptionsPerQuestion)
	}
	for i, option := range input.Options {
		if normalizeText(option) == "" {
			return validationErrorf(field("options"), "option %d is empty", i)
		}
		if len(option) > maxOptionLength {
			return validationErrorf(field("options"), "option %d exceeds %d characters", i, maxOptionLength)
		}
	}
	if input.CorrectIndex < 0 || input.CorrectIndex >= len(input.Options) {
		return validationErrorf(field("correct_index"), "must be between 0 and %d", len(input.Options)-1)
	}
	if len(input.Explanation) > maxExplanationLength {
		return validationErrorf(field("explanation"), "must be %d characters or fewer", maxExplanationLength)
	}
	return nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}
