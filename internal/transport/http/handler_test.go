package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/auth"
	"quizdesk-service/internal/config"
	"quizdesk-service/internal/domain"
	"quizdesk-service/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.AttemptService) {
	t.Helper()

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	users := memory.NewUserStore()
	quizzes := memory.NewQuizStore()
	results := memory.NewResultStore()
	quizCache := memory.NewQuizCache(quizzes, time.Minute)

	authService := app.NewAuthService(users, auth.NewHasher(4), tokens)
	quizService := app.NewQuizService(quizzes, users, quizCache)
	resultService := app.NewResultService(results, quizzes, users)
	attemptService := app.NewAttemptServiceWithClock(
		quizCache,
		resultService,
		memory.NewAttemptRegistry(),
		config.SaveDrop,
		0,
		time.Now,
		time.Millisecond,
	)

	handler := NewHandler(authService, quizService, resultService, attemptService)
	mux := http.NewServeMux()
	handler.Routes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, attemptService
}

func postJSON(t *testing.T, url, token string, payload any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func registerUser(t *testing.T, server *httptest.Server, username string, role domain.Role) app.Session {
	t.Helper()
	resp, body := postJSON(t, server.URL+"/auth/register", "", map[string]any{
		"username": username,
		"password": "secret123",
		"name":     "User " + username,
		"email":    username + "@example.com",
		"role":     role,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}
	var session app.Session
	raw, _ := json.Marshal(body)
	if err := json.Unmarshal(raw, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session
}

func createQuiz(t *testing.T, server *httptest.Server, token, title string, timerMinutes int) string {
	t.Helper()
	draft := map[string]any{
		"title": title,
		"questions": []map[string]any{
			{"text": "What is 2 + 2?", "options": []string{"3", "4", "5", "22"}, "correctOption": 1},
			{"text": "Red planet?", "options": []string{"Venus", "Jupiter", "Mars", "Saturn"}, "correctOption": 2},
		},
	}
	if timerMinutes > 0 {
		draft["timerEnabled"] = true
		draft["timeLimit"] = timerMinutes
	} else {
		draft["timerEnabled"] = false
	}
	resp, body := postJSON(t, server.URL+"/quizzes", token, draft)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create quiz: status %d", resp.StatusCode)
	}
	var quiz domain.QuizSummary
	if err := json.Unmarshal(body["quiz"], &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	return quiz.ID
}

func TestRegisterValidationAndConflict(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := postJSON(t, server.URL+"/auth/register", "", map[string]any{
		"username": "ab", "password": "secret123", "name": "A", "email": "a@example.com",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for short username, got %d", resp.StatusCode)
	}

	registerUser(t, server, "alice", domain.RoleStudent)
	resp, _ = postJSON(t, server.URL+"/auth/register", "", map[string]any{
		"username": "alice2", "password": "secret123", "name": "Alice Again", "email": "alice@example.com",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestLoginFlow(t *testing.T) {
	server, _ := newTestServer(t)
	registerUser(t, server, "alice", domain.RoleStudent)

	resp, _ := postJSON(t, server.URL+"/auth/login", "", map[string]any{"username": "alice", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	resp, body := postJSON(t, server.URL+"/auth/login", "", map[string]any{"username": "alice", "password": "secret123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 login, got %d", resp.StatusCode)
	}
	if _, ok := body["token"]; !ok {
		t.Fatalf("expected token in login response")
	}
}

func TestQuizEndpointsEnforceRoles(t *testing.T) {
	server, _ := newTestServer(t)
	admin := registerUser(t, server, "teacher", domain.RoleAdmin)
	student := registerUser(t, server, "alice", domain.RoleStudent)

	// No token: 401. Student token: 403.
	resp, _ := postJSON(t, server.URL+"/quizzes", "", map[string]any{"title": "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp, _ = postJSON(t, server.URL+"/quizzes", student.Token, map[string]any{"title": "x"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", resp.StatusCode)
	}

	quizID := createQuiz(t, server, admin.Token, "Capitals", 0)

	// Public listing needs no auth.
	listResp, err := http.Get(server.URL + "/quizzes")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer listResp.Body.Close()
	var listing struct {
		Quizzes []domain.QuizSummary `json:"quizzes"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Quizzes) != 1 || listing.Quizzes[0].CreatorUsername != "teacher" {
		t.Fatalf("expected one quiz with creator resolved, got %+v", listing.Quizzes)
	}

	// A different admin deleting it gets 404, same as a missing id.
	other := registerUser(t, server, "rival", domain.RoleAdmin)
	for _, id := range []string{quizID, "no-such-id"} {
		req, _ := http.NewRequest(http.MethodDelete, server.URL+"/quizzes/"+id, nil)
		req.Header.Set("Authorization", "Bearer "+other.Token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 for id %q, got %d", id, resp.StatusCode)
		}
	}

	// The owner succeeds.
	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/quizzes/"+quizID, nil)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for owner delete, got %d", delResp.StatusCode)
	}
}

func TestResultsScopedToStudent(t *testing.T) {
	server, _ := newTestServer(t)
	admin := registerUser(t, server, "teacher", domain.RoleAdmin)
	alice := registerUser(t, server, "alice", domain.RoleStudent)
	bob := registerUser(t, server, "bob", domain.RoleStudent)

	quizID := createQuiz(t, server, admin.Token, "Capitals", 0)

	sub := map[string]any{
		"quizId": quizID, "score": 50, "totalQuestions": 2, "correctAnswers": 1,
		"answers": []map[string]any{
			{"questionId": "q1", "selectedOption": 1, "isCorrect": true},
			{"questionId": "q2", "selectedOption": 0, "isCorrect": false},
		},
		"timeTaken": 30,
	}
	for _, token := range []string{alice.Token, bob.Token} {
		resp, _ := postJSON(t, server.URL+"/results", token, sub)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("record result: status %d", resp.StatusCode)
		}
	}

	fetch := func(token string) []domain.ResultView {
		req, _ := http.NewRequest(http.MethodGet, server.URL+"/results", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get results: %v", err)
		}
		defer resp.Body.Close()
		var body struct {
			Results []domain.ResultView `json:"results"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode results: %v", err)
		}
		return body.Results
	}

	own := fetch(alice.Token)
	if len(own) != 1 || own[0].UserID != alice.User.ID {
		t.Fatalf("expected alice to see only her result, got %+v", own)
	}
	all := fetch(admin.Token)
	if len(all) != 2 {
		t.Fatalf("expected admin to see both results, got %d", len(all))
	}
}

func TestAttemptWebSocketFlow(t *testing.T) {
	server, _ := newTestServer(t)
	admin := registerUser(t, server, "teacher", domain.RoleAdmin)
	student := registerUser(t, server, "alice", domain.RoleStudent)

	quizID := createQuiz(t, server, admin.Token, "Capitals", 0)

	u := fmt.Sprintf("ws%s/attempts/ws?quizId=%s&token=%s", server.URL[len("http"):], quizID, student.Token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, payload := readNext(t, conn)
	if msgType != "started" {
		t.Fatalf("expected started, got %s", msgType)
	}
	var started startedPayload
	if err := json.Unmarshal(payload, &started); err != nil {
		t.Fatalf("decode started: %v", err)
	}
	if len(started.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(started.Questions))
	}

	answer := func(questionID string, option int) {
		msg := map[string]any{
			"type":    "answer",
			"payload": map[string]any{"questionId": questionID, "option": option},
		}
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write answer: %v", err)
		}
	}
	answer(started.Questions[0].ID, 1) // correct
	answer(started.Questions[1].ID, 0) // wrong

	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msgType, payload := readNext(t, conn)
		if msgType != "completed" {
			continue
		}
		var snap app.AttemptSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if snap.Result == nil || snap.Result.Score != 50 || snap.Result.CorrectAnswers != 1 {
			t.Fatalf("expected score 50 with 1 correct, got %+v", snap.Result)
		}
		return
	}
	t.Fatalf("never received completion")
}

func TestAttemptWebSocketTimeoutForfeits(t *testing.T) {
	server, _ := newTestServer(t)
	admin := registerUser(t, server, "teacher", domain.RoleAdmin)
	student := registerUser(t, server, "alice", domain.RoleStudent)

	// 1 minute limit counted in 1ms test ticks: expires almost immediately.
	quizID := createQuiz(t, server, admin.Token, "Speed Round", 1)

	u := fmt.Sprintf("ws%s/attempts/ws?quizId=%s&token=%s", server.URL[len("http"):], quizID, student.Token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msgType, payload := readNext(t, conn)
		if msgType != "completed" {
			continue
		}
		var snap app.AttemptSnapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if !snap.Expired || snap.Result == nil || snap.Result.Score != 0 {
			t.Fatalf("expected forfeited result, got %+v", snap)
		}
		for _, rec := range snap.Result.Answers {
			if rec.SelectedOption != -1 || rec.IsCorrect {
				t.Fatalf("expected every answer {-1,false}, got %+v", rec)
			}
		}
		return
	}
	t.Fatalf("never received timeout completion")
}

func TestDeletedQuizNotStartable(t *testing.T) {
	server, _ := newTestServer(t)
	admin := registerUser(t, server, "teacher", domain.RoleAdmin)
	student := registerUser(t, server, "alice", domain.RoleStudent)

	quizID := createQuiz(t, server, admin.Token, "Capitals", 0)
	wsBase := fmt.Sprintf("ws%s/attempts/ws?quizId=%s&token=%s", server.URL[len("http"):], quizID, student.Token)

	// First attempt warms the quiz cache.
	conn, _, err := websocket.DefaultDialer.Dial(wsBase, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if msgType, _ := readNext(t, conn); msgType != "started" {
		t.Fatalf("expected started, got %s", msgType)
	}
	conn.Close()

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/quizzes/"+quizID, nil)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for owner delete, got %d", delResp.StatusCode)
	}

	// The cached document must not outlive the quiz: a new attempt fails even
	// though the cache entry's TTL has not run out.
	conn2, _, err := websocket.DefaultDialer.Dial(wsBase, nil)
	if err != nil {
		t.Fatalf("dial after delete: %v", err)
	}
	defer conn2.Close()
	if msgType, _ := readNext(t, conn2); msgType != "error" {
		t.Fatalf("expected error starting attempt on deleted quiz, got %s", msgType)
	}
}

func TestSocketCloseAbandonsAttempt(t *testing.T) {
	server, attempts := newTestServer(t)
	admin := registerUser(t, server, "teacher", domain.RoleAdmin)
	student := registerUser(t, server, "alice", domain.RoleStudent)

	quizID := createQuiz(t, server, admin.Token, "Capitals", 0)

	u := fmt.Sprintf("ws%s/attempts/ws?quizId=%s&token=%s", server.URL[len("http"):], quizID, student.Token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	msgType, payload := readNext(t, conn)
	if msgType != "started" {
		t.Fatalf("expected started, got %s", msgType)
	}
	var started startedPayload
	if err := json.Unmarshal(payload, &started); err != nil {
		t.Fatalf("decode started: %v", err)
	}

	// Flood the handler with messages that each produce an error reply, never
	// reading any of them, then drop the connection. The handler must still
	// unwind and abandon the attempt rather than wedging on a full send queue.
	for i := 0; i < 40; i++ {
		if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
			break
		}
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := attempts.Get(started.AttemptID); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("attempt still registered after socket close")
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}
