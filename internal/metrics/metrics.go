// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"math-maxxer-service/internal/domain"
)

var (
	// Completions counts completion attempts by kind (solo/match/challenge) and
	// outcome (success, target_not_met, failure).
	Completions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathmaxxer_completions_total",
			Help: "Total number of game completion attempts",
		},
		[]string{"kind", "outcome"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mathmaxxer_completion_duration_seconds",
			Help:    "Time spent applying a game completion",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Verifications counts verifier calls; result is correct, incorrect or rate_limited.
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathmaxxer_answer_verifications_total",
			Help: "Total number of answer verifications",
		},
		[]string{"result"},
	)

	MatchesPaired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mathmaxxer_matches_paired_total",
			Help: "Total number of matches created by matchmaking",
		},
	)

	QueueExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mathmaxxer_queue_entries_expired_total",
			Help: "Queue entries removed after waiting too long",
		},
	)

	ActiveSockets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mathmaxxer_websocket_connections_current",
			Help: "Current number of open notification sockets",
		},
	)
)

// Outcome maps an error to a short label value. A challenge run below target is
// recorded but unrewarded, so it gets its own label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrTargetNotMet):
		return "target_not_met"
	default:
		return "failure"
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
