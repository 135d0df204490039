package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/metrics"
)

// WSHandler streams the caller's events (queue changes, match found, match
// completed) and accepts answers for the caller's running game.
type WSHandler struct {
	events   app.Subscriber
	answers  *app.AnswerService
	upgrader websocket.Upgrader
}

func NewWSHandler(events app.Subscriber, answers *app.AnswerService) *WSHandler {
	return &WSHandler{
		events:  events,
		answers: answers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// answerPayload targets either a solo session or a match.
type answerPayload struct {
	SessionID  string `json:"sessionId"`
	MatchID    string `json:"matchId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type readyPayload struct {
	UserID string `json:"userId"`
}

// ServeWS must sit behind the auth middleware.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	if userID == "" {
		http.Error(w, "missing caller", http.StatusUnauthorized)
		return
	}

	events, cancel, err := h.events.Subscribe(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	metrics.ActiveSockets.Inc()
	defer metrics.ActiveSockets.Dec()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// unblocks the reader loop below
				conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: event.Type, Payload: event}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// push reports false once the writer has gone away
	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	push(outboundMessage[any]{Type: "ready", Payload: readyPayload{UserID: userID}})

read:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				if !push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}) {
					break read
				}
				continue
			}
			var correct bool
			switch {
			case payload.MatchID != "":
				correct, err = h.answers.SubmitMatchAnswer(r.Context(), userID, payload.MatchID, payload.QuestionID, payload.Answer)
			case payload.SessionID != "":
				correct, err = h.answers.SubmitSoloAnswer(r.Context(), userID, payload.SessionID, payload.QuestionID, payload.Answer)
			default:
				if !push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "answer needs sessionId or matchId"}}) {
					break read
				}
				continue
			}
			if err != nil {
				if !push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}) {
					break read
				}
				continue
			}
			push(outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID: payload.QuestionID,
				Correct:    correct,
			}})
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}
