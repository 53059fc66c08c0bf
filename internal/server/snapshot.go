package server

import (
	"gorm.io/gorm"

	"quizmaster/internal/db"
)

// Snapshots assembles the polled read views. Pure composition over the
// store; nothing here mutates.
type Snapshots struct {
	db       *gorm.DB
	registry *Registry
	ledger   *Ledger
	bank     *Bank
	states   *StateStore
}

func NewSnapshots(conn *gorm.DB, registry *Registry, ledger *Ledger, bank *Bank, states *StateStore) *Snapshots {
	return &Snapshots{db: conn, registry: registry, ledger: ledger, bank: bank, states: states}
}

// Snapshot builds the full polled state for both moderator and player
// frontends. The answer key of the current question is withheld until the
// phase reaches reveal.
func (s *Snapshots) Snapshot(sessionID string) (Snapshot, error) {
	state, err := s.states.Get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	phase := Phase(state.Phase)

	players, err := s.registry.Players(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	buzzers, err := s.ledger.Buzzers(sessionID, state.CurrentQuestion)
	if err != nil {
		return Snapshot{}, err
	}
	answers, err := s.ledger.Answers(sessionID, state.CurrentQuestion)
	if err != nil {
		return Snapshot{}, err
	}
	spoken, err := s.ledger.SpokenPlayers(sessionID, state.CurrentQuestion)
	if err != nil {
		return Snapshot{}, err
	}
	count, err := s.bank.Count(sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		SessionID:       sessionID,
		GameStarted:     state.GameStarted,
		Phase:           phase,
		CurrentQuestion: state.CurrentQuestion,
		QuestionCount:   int(count),
		FirstBuzzer:     state.FirstBuzzerPlayerID,
		BuzzLocked:      state.BuzzLocked,
		Version:         state.Version,
		UpdatedAt:       state.UpdatedAt,
		Buzzers:         buzzers,
		Answers:         answers,
		SpokenPlayerIDs: spoken,
		Players:         players,
	}

	if phase == PhaseQuestionShown || phase == PhaseOptionsShown || phase == PhaseReveal {
		question, err := questionAt(s.db, sessionID, state.CurrentQuestion)
		if err != nil {
			return Snapshot{}, err
		}
		view := QuestionView{
			Index:    question.Position,
			Text:     question.Text,
			Options:  question.Options,
			ImageRef: question.ImageRef,
		}
		if phase == PhaseReveal {
			correct := question.CorrectIndex
			view.CorrectIndex = &correct
			view.Explanation = question.Explanation
		}
		snapshot.Question = &view
	}
	return snapshot, nil
}

// PlayerSummary joins the player's answers against the full question set.
// Unanswered questions are listed explicitly, never omitted.
func (s *Snapshots) PlayerSummary(sessionID, playerID string) (PlayerSummary, error) {
	player, err := loadPlayer(s.db, sessionID, playerID)
	if err != nil {
		return PlayerSummary{}, err
	}
	questions, err := s.bank.Questions(sessionID)
	if err != nil {
		return PlayerSummary{}, err
	}
	var answers []db.AnswerEvent
	if err := s.db.Where("session_id = ? AND player_id = ?", sessionID, playerID).
		Find(&answers).Error; err != nil {
		return PlayerSummary{}, err
	}
	byIndex := make(map[int]db.AnswerEvent, len(answers))
	for _, answer := range answers {
		byIndex[answer.QuestionIndex] = answer
	}

	summary := PlayerSummary{
		PlayerID:       playerID,
		Nickname:       player.Nickname,
		TotalQuestions: len(questions),
		Unanswered:     []int{},
		Breakdown:      make([]SummaryEntry, 0, len(questions)),
	}
	for _, question := range questions {
		entry := SummaryEntry{
			QuestionIndex:     question.Position,
			Question:          question.Text,
			CorrectAnswerText: correctOptionText(question),
			Explanation:       question.Explanation,
		}
		if answer, ok := byIndex[question.Position]; ok {
			entry.Answered = true
			if answer.AnswerIndex >= 0 && answer.AnswerIndex < len(question.Options) {
				entry.PlayerAnswerText = question.Options[answer.AnswerIndex]
			}
			// stored audit flag, re-derived in case the answer key moved
			// underneath it
			entry.IsCorrect = entry.PlayerAnswerText == entry.CorrectAnswerText
			summary.AnsweredCount++
			if entry.IsCorrect {
				summary.CorrectCount++
			} else {
				summary.IncorrectCount++
			}
		} else {
			summary.Unanswered = append(summary.Unanswered, question.Position)
		}
		summary.Breakdown = append(summary.Breakdown, entry)
	}
	return summary, nil
}

// AnswerStats is the moderator's aggregate for one question. AllAnswered is
// only true when at least one active player exists and every active player
// has an answer on the ledger.
func (s *Snapshots) AnswerStats(sessionID string, questionIndex int) (AnswerStats, error) {
	if _, err := loadState(s.db, sessionID); err != nil {
		return AnswerStats{}, err
	}
	players, err := s.registry.Players(sessionID)
	if err != nil {
		return AnswerStats{}, err
	}
	answers, err := s.ledger.Answers(sessionID, questionIndex)
	if err != nil {
		return AnswerStats{}, err
	}
	answered := make(map[string]bool, len(answers))
	for _, answer := range answers {
		answered[answer.PlayerID] = true
	}

	stats := AnswerStats{
		QuestionIndex:    questionIndex,
		AnsweredNames:    []string{},
		NotAnsweredNames: []string{},
	}
	for _, player := range players {
		if !player.Active {
			continue
		}
		stats.ActivePlayerCount++
		if answered[player.ID] {
			stats.AnsweredCount++
			stats.AnsweredNames = append(stats.AnsweredNames, player.Nickname)
		} else {
			stats.NotAnsweredNames = append(stats.NotAnsweredNames, player.Nickname)
		}
	}
	stats.AllAnswered = stats.ActivePlayerCount > 0 && stats.AnsweredCount == stats.ActivePlayerCount
	return stats, nil
}
