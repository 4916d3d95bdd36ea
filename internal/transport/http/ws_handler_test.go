package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"
	"quizmaster/internal/infra/memory"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	settings := app.DefaultSettings()
	settings.AutoAdvance = false
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuiz()), time.Minute),
		memory.NewHistoryStore(),
		app.WithLogger(logger),
		app.WithSettings(settings),
	)
	server := httptest.NewServer(NewRouter(service, logger))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketAnswerFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "quizId=quiz-1&userId=u1&instantFeedback=true&showExplanation=true")

	started := readUntil(t, conn, "started")
	if started["quizId"] != "quiz-1" || started["sessionId"] == "" {
		t.Fatalf("unexpected started payload %v", started)
	}
	question := readUntil(t, conn, "question")
	if question["questionId"] != "q1" || question["type"] != "vrai_faux" {
		t.Fatalf("unexpected question %v", question)
	}

	send(t, conn, "answer", map[string]any{"index": 0, "value": true})
	result := readUntil(t, conn, "answerResult")
	if result["isCorrect"] != true || result["pointsEarned"] != float64(10) {
		t.Fatalf("expected correct answer worth 10, got %v", result)
	}

	send(t, conn, "advance", nil)
	completed := readUntil(t, conn, "completed")
	if completed["status"] != "finished" {
		t.Fatalf("expected finished, got %v", completed)
	}
	completion, _ := completed["completion"].(map[string]any)
	attempt, _ := completion["attempt"].(map[string]any)
	if attempt["score"] != "1/1" {
		t.Fatalf("expected score 1/1, got %v", completed)
	}

	resp, err := http.Get(server.URL + "/stats?userId=u1")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Stats  domain.Stats   `json:"stats"`
		Badges []domain.Badge `json:"badges"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if body.Stats.TotalQuizzes != 1 || len(body.Badges) == 0 {
		t.Fatalf("unexpected stats %+v", body)
	}
}

func TestWebSocketReportsErrors(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "quizId=quiz-1&userId=u1")
	readUntil(t, conn, "started")

	send(t, conn, "dance", nil)
	if msg := readUntil(t, conn, "error"); msg["code"] != "unsupported" {
		t.Fatalf("expected unsupported error, got %v", msg)
	}

	send(t, conn, "answer", map[string]any{"index": 0, "value": "maybe"})
	if msg := readUntil(t, conn, "error"); msg["code"] != "rejected" {
		t.Fatalf("expected rejected error, got %v", msg)
	}

	send(t, conn, "cancel", nil)
	if msg := readUntil(t, conn, "completed"); msg["status"] != "cancelled" || msg["completion"] != nil {
		t.Fatalf("expected cancelled without completion, got %v", msg)
	}
}

func TestWebSocketConfigurationError(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "quizId=quiz-1&userId=u1&mode=errors")
	if msg := readUntil(t, conn, "error"); msg["code"] != "configuration" {
		t.Fatalf("expected configuration error, got %v", msg)
	}
}

func TestRejectsBadRequests(t *testing.T) {
	server := newTestServer(t)
	for _, path := range []string{"/ws?quizId=quiz-1", "/ws?quizId=quiz-1&userId=u1&timeLimit=soon", "/stats"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(server.URL + "/history?userId=nobody")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()
	var history []domain.Attempt
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil || history == nil || len(history) != 0 {
		t.Fatalf("expected empty history array, got %v %v", history, err)
	}
}

func TestErrorsAvailability(t *testing.T) {
	server := newTestServer(t)
	get := func(path string) *http.Response {
		t.Helper()
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("/errors?userId=u1&quizId=quiz-1")
	var body struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Available {
		t.Fatalf("expected no errors available, got %+v %v", body, err)
	}
	if resp := get("/errors?userId=u1&quizId=missing"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing quiz, got %d", resp.StatusCode)
	}
	if resp := get("/errors?userId=u1"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without quizId, got %d", resp.StatusCode)
	}
}

func TestSessionProgressEndpoint(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "quizId=quiz-1&userId=u1")
	started := readUntil(t, conn, "started")
	sessionID, _ := started["sessionId"].(string)

	resp, err := http.Get(server.URL + "/session?sessionId=" + sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	defer resp.Body.Close()
	var snap domain.SessionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if snap.SessionID != sessionID || snap.Status != domain.StatusActive || snap.Total != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	missing, err := http.Get(server.URL + "/session?sessionId=nope")
	if err != nil {
		t.Fatalf("get missing session: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}
}

func TestQueueMessageStopsWhenWriterExits(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})

	if !queueMessage(send, writerDone, outboundMessage[any]{Type: "snapshot"}) {
		t.Fatalf("expected message to be queued")
	}
	close(writerDone)

	done := make(chan bool)
	go func() { done <- queueMessage(send, writerDone, outboundMessage[any]{Type: "snapshot"}) }()
	select {
	case queued := <-done:
		if queued {
			t.Fatalf("expected a full queue with a stopped writer to refuse the message")
		}
	case <-time.After(time.Second):
		t.Fatalf("queueMessage blocked after the writer stopped")
	}
}

func TestSessionConfigFromQuery(t *testing.T) {
	cfg, err := sessionConfig(map[string][]string{
		"mode":          {"custom"},
		"count":         {"5"},
		"timeLimit":     {"90"},
		"allowBack":     {"true"},
		"errorSessions": {"2"},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Mode != domain.ModeCustom || cfg.QuestionCount != 5 || cfg.TimeLimit != 90*time.Second || !cfg.AllowBack || cfg.ErrorSessions != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := sessionConfig(map[string][]string{"allowBack": {"perhaps"}}); err == nil || !strings.Contains(err.Error(), "allowBack") {
		t.Fatalf("expected allowBack error, got %v", err)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips interleaved snapshots and returns the payload of the first message of type expect.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", expect, err)
		}
		if msg.Type == expect {
			return msg.Payload
		}
	}
	t.Fatalf("no %s message received", expect)
	return nil
}

func sampleQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Basics",
			Questions: []domain.Question{
				{
					ID:          "q1",
					Type:        domain.TypeBoolean,
					Text:        "Is 2 + 2 equal to 4?",
					Explanation: "It is.",
					Answer:      domain.BooleanKey{Value: true},
				},
			},
		},
	}
}
