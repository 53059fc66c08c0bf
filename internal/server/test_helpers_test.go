package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"quizmaster/internal/config"
	"quizmaster/internal/db"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(newTestDB(t), config.Default(), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func testQuestions() []QuestionInput {
	return []QuestionInput{
		{
			Text:         "Which planet is closest to the sun?",
			Options:      []string{"Mercury", "Venus", "Mars"},
			CorrectIndex: 0,
			Explanation:  "Mercury orbits at roughly 58 million km.",
		},
		{
			Text:         "How many legs does a spider have?",
			Options:      []string{"6", "8"},
			CorrectIndex: 1,
		},
		{
			Text:         "Which of these is a prime number?",
			Options:      []string{"9", "15", "21", "23"},
			CorrectIndex: 3,
		},
	}
}

// seedSession creates a session with the default test question set and
// returns its id.
func seedSession(t *testing.T, srv *Server) string {
	t.Helper()
	sessionID, err := srv.registry.Create("test quiz")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := srv.bank.ReplaceAll(sessionID, testQuestions()); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return sessionID
}

func joinPlayer(t *testing.T, srv *Server, sessionID, nickname string) string {
	t.Helper()
	playerID, _, err := srv.registry.Join(sessionID, nickname)
	if err != nil {
		t.Fatalf("join %s: %v", nickname, err)
	}
	return playerID
}

// correctIndexOf resolves the post-shuffle position of the correct option
// for the session's question at the given index.
func correctIndexOf(t *testing.T, srv *Server, sessionID string, questionIndex int) int {
	t.Helper()
	question, err := questionAt(srv.db, sessionID, questionIndex)
	if err != nil {
		t.Fatalf("load question %d: %v", questionIndex, err)
	}
	return question.CorrectIndex
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}
