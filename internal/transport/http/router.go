package http

import (
	"net/http"

	"math-maxxer-service/internal/metrics"
)

// NewRouter wires every endpoint. Everything except /healthz and /metrics
// requires a bearer token.
func NewRouter(h *Handler, ws *WSHandler, auth *Authenticator) http.Handler {
	protected := http.NewServeMux()
	protected.HandleFunc("POST /complete-solo-game", h.CompleteSoloGame)
	protected.HandleFunc("POST /complete-match", h.CompleteMatch)
	protected.HandleFunc("POST /complete-daily-challenge", h.CompleteDailyChallenge)
	protected.HandleFunc("POST /rpc/verify_answer", h.VerifyAnswer)
	protected.HandleFunc("POST /rpc/find_match", h.FindMatch)
	protected.HandleFunc("POST /sessions", h.StartSession)
	protected.HandleFunc("POST /sessions/{id}/answers", h.SubmitSessionAnswer)
	protected.HandleFunc("POST /matches/{id}/answers", h.SubmitMatchAnswer)
	protected.HandleFunc("POST /matchmaking/queue", h.JoinQueue)
	protected.HandleFunc("DELETE /matchmaking/queue", h.LeaveQueue)
	protected.HandleFunc("GET /matchmaking/queue", h.QueueStatus)
	protected.HandleFunc("GET /ws", ws.ServeWS)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/", auth.Middleware(protected))
	return mux
}
