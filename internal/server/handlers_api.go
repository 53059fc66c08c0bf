package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
)

type createSessionRequest struct {
	Name string `json:"name"`
}

type joinRequest struct {
	Nickname string `json:"nickname"`
}

type buzzRequest struct {
	PlayerID      string `json:"player_id"`
	QuestionIndex int    `json:"question_index"`
}

type answerRequest struct {
	PlayerID      string `json:"player_id"`
	QuestionIndex int    `json:"question_index"`
	AnswerIndex   int    `json:"answer_index"`
}

type spokenRequest struct {
	PlayerID      string `json:"player_id"`
	QuestionIndex int    `json:"question_index"`
}

type advanceRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

type buzzLockRequest struct {
	Locked bool `json:"locked"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type saveRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.registry.Create(req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("session created", slog.String("session_id", id), slog.String("name", req.Name))
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"session_id": id,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.registry.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"sessions": list,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.Delete(id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("session deleted", slog.String("session_id", id))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, existing, err := s.registry.Join(sessionID, req.Nickname)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("player joined",
		slog.String("session_id", sessionID),
		slog.String("player_id", playerID),
		slog.Bool("existing", existing))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"player_id": playerID,
		"existing":  existing,
	})
}

func (s *Server) handleBuzz(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req buzzRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.ledger.RecordBuzzer(sessionID, req.PlayerID, req.QuestionIndex)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case errors.Is(err, ErrAlreadyBuzzed), errors.Is(err, ErrInvalidPhase), errors.Is(err, ErrBuzzLocked):
		// expected under concurrent play; the client shows a soft message
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"reason":  err.Error(),
		})
	default:
		writeDomainError(w, err)
	}
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req answerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	isCorrect, correctText, err := s.ledger.RecordAnswer(sessionID, req.PlayerID, req.QuestionIndex, req.AnswerIndex)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":             true,
			"is_correct":          isCorrect,
			"correct_answer_text": correctText,
		})
	case errors.Is(err, ErrInvalidPhase):
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"reason":  err.Error(),
		})
	default:
		writeDomainError(w, err)
	}
}

func (s *Server) handleMarkSpoken(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req spokenRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ledger.MarkSpoken(sessionID, req.PlayerID, req.QuestionIndex); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	snapshot, err := s.snapshots.Snapshot(sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handlePlayerSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	playerID := r.PathValue("playerID")
	summary, err := s.snapshots.PlayerSummary(sessionID, playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAnswerStats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	questionIndex, err := strconv.Atoi(r.PathValue("question"))
	if err != nil || questionIndex < 0 {
		writeError(w, http.StatusBadRequest, "invalid question index")
		return
	}
	stats, err := s.snapshots.AnswerStats(sessionID, questionIndex)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePhaseCommand(name string, command func(sessionID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")
		if err := command(sessionID); err != nil {
			writeDomainError(w, err)
			return
		}
		s.logger.Info("phase command", slog.String("session_id", sessionID), slog.String("command", name))
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req advanceRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.control.Advance(sessionID, req.ExpectedVersion)
	if errors.Is(err, ErrVersionConflict) {
		state, stateErr := s.states.Get(sessionID)
		if stateErr != nil {
			writeDomainError(w, stateErr)
			return
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"success":         false,
			"error":           err.Error(),
			"current_version": state.Version,
		})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("phase command", slog.String("session_id", sessionID), slog.String("command", "next"))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleBuzzLock(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req buzzLockRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.states.SetBuzzLock(sessionID, req.Locked); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "locked": req.Locked})
}

func (s *Server) handleUpdateQuestions(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var inputs []QuestionInput
	if err := readJSON(r.Body, &inputs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.registry.Ensure(sessionID); err != nil {
		writeDomainError(w, err)
		return
	}
	count, err := s.bank.ReplaceAll(sessionID, inputs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("questions replaced",
		slog.String("session_id", sessionID),
		slog.Int("count", count))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   count,
	})
}

func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req notesRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.registry.SetNotes(sessionID, req.Notes); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	var req saveRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.saves.Save(sessionID, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("session saved", slog.String("session_id", sessionID), slog.String("name", req.Name))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "name": req.Name})
}

func (s *Server) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	sessionID, err := s.saves.Load(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.Info("session loaded", slog.String("name", name), slog.String("session_id", sessionID))
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"session_id": sessionID,
	})
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	list, err := s.saves.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"saves":   list,
	})
}

func (s *Server) handleDeleteSave(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.saves.Delete(name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
