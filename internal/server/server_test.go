package server

import (
	"net/http"
	"testing"
)

func TestHTTPSessionLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions", createSessionRequest{Name: "office quiz"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	sessionID, _ := body["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("missing session_id in %v", body)
	}

	resp = doRequest(t, ts, http.MethodPut, "/api/sessions/"+sessionID+"/questions", testQuestions())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("questions: status %d", resp.StatusCode)
	}
	if body = decodeBody(t, resp); body["count"].(float64) != float64(len(testQuestions())) {
		t.Fatalf("unexpected count: %v", body["count"])
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/join", joinRequest{Nickname: "Ana"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", resp.StatusCode)
	}
	body = decodeBody(t, resp)
	playerID, _ := body["player_id"].(string)
	if playerID == "" || body["existing"].(bool) {
		t.Fatalf("unexpected join response: %v", body)
	}

	// rejoin with the same nickname returns the same player
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/join", joinRequest{Nickname: "Ana"})
	body = decodeBody(t, resp)
	if body["player_id"].(string) != playerID || !body["existing"].(bool) {
		t.Fatalf("rejoin must return the existing player: %v", body)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/sessions/"+sessionID+"/state", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state: status %d", resp.StatusCode)
	}
	var snap Snapshot
	decodeInto(t, resp, &snap)
	if snap.Phase != PhaseWaiting || len(snap.Players) != 1 || snap.QuestionCount != len(testQuestions()) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/sessions/"+sessionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodGet, "/api/sessions/"+sessionID+"/state", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("state after delete: status %d", resp.StatusCode)
	}
}

func TestHTTPBuzzSoftReject(t *testing.T) {
	srv, ts := newTestServer(t)
	sessionID := seedSession(t, srv)
	playerID := joinPlayer(t, srv, sessionID, "Ana")

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}

	buzz := buzzRequest{PlayerID: playerID, QuestionIndex: 0}
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/buzz", buzz)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("buzz: status %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["success"] != true {
		t.Fatalf("first buzz rejected: %v", body)
	}

	// duplicate buzz comes back 200 with success=false, not an error status
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/buzz", buzz)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repeat buzz: status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != false || body["reason"] == "" {
		t.Fatalf("expected soft rejection with reason: %v", body)
	}
}

func TestHTTPAnswerFlow(t *testing.T) {
	srv, ts := newTestServer(t)
	sessionID := seedSession(t, srv)
	playerID := joinPlayer(t, srv, sessionID, "Ana")
	if err := srv.control.Start(sessionID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// answers are rejected softly until the options are on screen
	answer := answerRequest{PlayerID: playerID, QuestionIndex: 0, AnswerIndex: 0}
	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/answers", answer)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("early answer: status %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["success"] != false {
		t.Fatalf("expected soft rejection before options_shown: %v", body)
	}

	if err := srv.control.ShowOptions(sessionID); err != nil {
		t.Fatalf("options: %v", err)
	}
	answer.AnswerIndex = correctIndexOf(t, srv, sessionID, 0)
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/answers", answer)
	body := decodeBody(t, resp)
	if body["success"] != true || body["is_correct"] != true {
		t.Fatalf("unexpected answer response: %v", body)
	}

	// out-of-range index is a hard validation error
	answer.AnswerIndex = 99
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/answers", answer)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range answer: status %d", resp.StatusCode)
	}
}

func TestHTTPAdvanceVersionConflict(t *testing.T) {
	srv, ts := newTestServer(t)
	sessionID := seedSession(t, srv)
	if err := srv.control.Start(sessionID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := srv.control.ShowOptions(sessionID); err != nil {
		t.Fatalf("options: %v", err)
	}
	if err := srv.control.Reveal(sessionID); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	state, err := srv.states.Get(sessionID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/next",
		advanceRequest{ExpectedVersion: state.Version - 1})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale advance: status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["current_version"].(float64) != float64(state.Version) {
		t.Fatalf("conflict response must report the live version: %v", body)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/next",
		advanceRequest{ExpectedVersion: state.Version})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("matching advance: status %d", resp.StatusCode)
	}
}

func TestHTTPValidationErrors(t *testing.T) {
	srv, ts := newTestServer(t)
	sessionID := seedSession(t, srv)

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/join", joinRequest{Nickname: "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank nickname: status %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPut, "/api/sessions/"+sessionID+"/questions", []QuestionInput{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty question set: status %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/join",
		map[string]any{"nickname": "Ana", "bogus": 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: status %d", resp.StatusCode)
	}
}

func TestHTTPSaveEndpoints(t *testing.T) {
	srv, ts := newTestServer(t)
	sessionID := seedSession(t, srv)
	joinPlayer(t, srv, sessionID, "Ana")

	resp := doRequest(t, ts, http.MethodPost, "/api/sessions/"+sessionID+"/save", saveRequest{Name: "slot-a"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save: status %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/saves", nil)
	body := decodeBody(t, resp)
	saves, _ := body["saves"].([]any)
	if len(saves) != 1 {
		t.Fatalf("expected one save, got %v", body)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/saves/slot-a/load", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("load: status %d", resp.StatusCode)
	}
	body = decodeBody(t, resp)
	restoredID, _ := body["session_id"].(string)
	if restoredID == "" || restoredID == sessionID {
		t.Fatalf("load must create a fresh session: %v", body)
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/saves/slot-a", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete save: status %d", resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/saves/slot-a/load", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("load deleted save: status %d", resp.StatusCode)
	}
}

func TestHTTPUnknownSession(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/sessions/missing/state", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("state: status %d", resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/sessions/missing/start", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("start: status %d", resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodDelete, "/api/sessions/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
}
