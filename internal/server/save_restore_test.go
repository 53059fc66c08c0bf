package server

import (
	"errors"
	"testing"

	"quizmaster/internal/config"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	srv := New(newTestDB(t), config.Default(), nil)
	sessionID := seedSession(t, srv)
	joinPlayer(t, srv, sessionID, "Ana")
	joinPlayer(t, srv, sessionID, "Bo")
	if err := srv.registry.SetNotes(sessionID, "pub quiz, round two"); err != nil {
		t.Fatalf("notes: %v", err)
	}
	if err := srv.control.Start(sessionID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := srv.control.ShowOptions(sessionID); err != nil {
		t.Fatalf("options: %v", err)
	}

	if err := srv.saves.Save(sessionID, "friday-night"); err != nil {
		t.Fatalf("save: %v", err)
	}
	restoredID, err := srv.saves.Load("friday-night")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if restoredID == sessionID {
		t.Fatal("load must create a fresh session")
	}

	state, err := srv.states.Get(restoredID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if Phase(state.Phase) != PhaseOptionsShown || state.CurrentQuestion != 0 || !state.GameStarted {
		t.Fatalf("restored state wrong: %+v", state)
	}

	original, err := srv.registry.Players(sessionID)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	restored, err := srv.registry.Players(restoredID)
	if err != nil {
		t.Fatalf("restored players: %v", err)
	}
	if len(restored) != len(original) {
		t.Fatalf("expected %d players, got %d", len(original), len(restored))
	}
	for i := range restored {
		if restored[i].Nickname != original[i].Nickname {
			t.Fatalf("player order changed: %q vs %q", restored[i].Nickname, original[i].Nickname)
		}
		if restored[i].ID == original[i].ID {
			t.Fatal("player ids must be regenerated on load")
		}
	}

	questions, err := srv.bank.Questions(restoredID)
	if err != nil {
		t.Fatalf("restored questions: %v", err)
	}
	if len(questions) != len(testQuestions()) {
		t.Fatalf("expected %d questions, got %d", len(testQuestions()), len(questions))
	}
	for i, question := range questions {
		want := testQuestions()[i].Options[testQuestions()[i].CorrectIndex]
		if question.Options[question.CorrectIndex] != want {
			t.Fatalf("question %d answer key lost in round trip", i)
		}
	}

	session, err := loadSession(srv.db, restoredID)
	if err != nil {
		t.Fatalf("load restored session: %v", err)
	}
	if session.Notes != "pub quiz, round two" {
		t.Fatalf("notes not restored: %q", session.Notes)
	}
}

func TestSaveOverwritesSameName(t *testing.T) {
	srv := New(newTestDB(t), config.Default(), nil)
	sessionID := seedSession(t, srv)
	joinPlayer(t, srv, sessionID, "Ana")

	if err := srv.saves.Save(sessionID, "slot"); err != nil {
		t.Fatalf("save: %v", err)
	}
	joinPlayer(t, srv, sessionID, "Bo")
	if err := srv.saves.Save(sessionID, "slot"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	saves, err := srv.saves.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(saves) != 1 {
		t.Fatalf("expected one save slot, got %d", len(saves))
	}
	if saves[0].Players != 2 {
		t.Fatalf("expected overwritten save with 2 players, got %d", saves[0].Players)
	}
}

func TestLoadMissingSave(t *testing.T) {
	srv := New(newTestDB(t), config.Default(), nil)
	if _, err := srv.saves.Load("nope"); !errors.Is(err, ErrSaveNotFound) {
		t.Fatalf("expected ErrSaveNotFound, got %v", err)
	}
}

func TestDeleteSave(t *testing.T) {
	srv := New(newTestDB(t), config.Default(), nil)
	sessionID := seedSession(t, srv)
	if err := srv.saves.Save(sessionID, "gone-soon"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := srv.saves.Delete("gone-soon"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := srv.saves.Delete("gone-soon"); !errors.Is(err, ErrSaveNotFound) {
		t.Fatalf("expected ErrSaveNotFound on repeat delete, got %v", err)
	}
	if _, err := srv.saves.Load("gone-soon"); !errors.Is(err, ErrSaveNotFound) {
		t.Fatalf("expected ErrSaveNotFound after delete, got %v", err)
	}
}

func TestSaveUnknownSession(t *testing.T) {
	srv := New(newTestDB(t), config.Default(), nil)
	if err := srv.saves.Save("missing", "slot"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}
