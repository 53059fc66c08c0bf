package server

import (
	"log/slog"
	"net/http"

	"gorm.io/gorm"

	"quizmaster/internal/config"
)

type Server struct {
	db        *gorm.DB
	cfg       config.Config
	logger    *slog.Logger
	registry  *Registry
	states    *StateStore
	bank      *Bank
	ledger    *Ledger
	control   *Controller
	snapshots *Snapshots
	saves     *Saves
}

func New(conn *gorm.DB, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	registry := NewRegistry(conn)
	states := NewStateStore(conn)
	bank := NewBank(conn)
	ledger := NewLedger(conn)
	return &Server{
		db:        conn,
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		states:    states,
		bank:      bank,
		ledger:    ledger,
		control:   NewController(conn, ledger, bank),
		snapshots: NewSnapshots(conn, registry, ledger, bank, states),
		saves:     NewSaves(conn),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	mux.HandleFunc("POST /api/sessions/{id}/join", s.handleJoin)
	mux.HandleFunc("POST /api/sessions/{id}/buzz", s.handleBuzz)
	mux.HandleFunc("POST /api/sessions/{id}/answers", s.handleSubmitAnswer)
	mux.HandleFunc("POST /api/sessions/{id}/spoken", s.handleMarkSpoken)

	mux.HandleFunc("GET /api/sessions/{id}/state", s.handleGetState)
	mux.HandleFunc("GET /api/sessions/{id}/players/{playerID}/summary", s.handlePlayerSummary)
	mux.HandleFunc("GET /api/sessions/{id}/stats/{question}", s.handleAnswerStats)

	mux.HandleFunc("POST /api/sessions/{id}/start", s.handlePhaseCommand("start", s.control.Start))
	mux.HandleFunc("POST /api/sessions/{id}/options", s.handlePhaseCommand("options", s.control.ShowOptions))
	mux.HandleFunc("POST /api/sessions/{id}/reveal", s.handlePhaseCommand("reveal", s.control.Reveal))
	mux.HandleFunc("POST /api/sessions/{id}/next", s.handleAdvance)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handlePhaseCommand("reset", s.control.SoftReset))
	mux.HandleFunc("POST /api/sessions/{id}/reset/full", s.handlePhaseCommand("reset_full", s.control.FullReset))
	mux.HandleFunc("POST /api/sessions/{id}/buzz-lock", s.handleBuzzLock)

	mux.HandleFunc("PUT /api/sessions/{id}/questions", s.handleUpdateQuestions)
	mux.HandleFunc("PUT /api/sessions/{id}/notes", s.handleUpdateNotes)

	mux.HandleFunc("POST /api/sessions/{id}/save", s.handleSaveSession)
	mux.HandleFunc("POST /api/saves/{name}/load", s.handleLoadSession)
	mux.HandleFunc("GET /api/saves", s.handleListSaves)
	mux.HandleFunc("DELETE /api/saves/{name}", s.handleDeleteSave)

	return mux
}
