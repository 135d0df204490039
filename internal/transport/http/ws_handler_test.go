package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"math-maxxer-service/internal/domain"
	"math-maxxer-service/internal/metrics"
)

func TestWebSocketStreamsEventsAndAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.store.CreateSession(ctx, domain.GameSession{ID: "s1", UserID: "u1", Difficulty: domain.Beginner, TimeControl: "3+2", TotalQuestions: 2}); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	u := "ws" + env.server.URL[len("http"):] + "/ws?token=" + env.token(t, "u1")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readNext(conn, t, "ready")

	if err := env.bus.Publish(ctx, domain.Event{Type: domain.EventMatchFound, UserID: "u1", MatchID: "m1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_, payload := readNext(conn, t, domain.EventMatchFound)
	if payload["matchId"] != "m1" {
		t.Fatalf("unexpected event payload %+v", payload)
	}

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"sessionId":  "s1",
			"questionId": "q1",
			"answer":     "4",
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, payload = readNext(conn, t, "answerResult")
	if payload["correct"] != true {
		t.Fatalf("expected correct answer, got %+v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketHandlerReturnsAfterClientDrops(t *testing.T) {
	env := newTestEnv(t)
	before := testutil.ToFloat64(metrics.ActiveSockets)

	u := "ws" + env.server.URL[len("http"):] + "/ws?token=" + env.token(t, "u1")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readNext(conn, t, "ready")

	// every message earns an error reply the client never reads
	for i := 0; i < 200; i++ {
		if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
			break
		}
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(metrics.ActiveSockets) > before {
		if time.Now().After(deadline) {
			t.Fatalf("handler still running after client dropped: %v sockets", testutil.ToFloat64(metrics.ActiveSockets))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + env.server.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
