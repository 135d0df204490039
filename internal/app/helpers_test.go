package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"math-maxxer-service/internal/domain"
	"math-maxxer-service/internal/infra/memory"
)

var testNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func seedProfile(t *testing.T, store *memory.Store, p domain.Profile) {
	t.Helper()
	if err := store.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("seed profile %s: %v", p.ID, err)
	}
}

func seedSession(t *testing.T, store *memory.Store, s domain.GameSession) {
	t.Helper()
	if err := store.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("seed session %s: %v", s.ID, err)
	}
}

// seedGameAnswers appends correct answers first, then wrong ones.
func seedGameAnswers(t *testing.T, store *memory.Store, sessionID, userID string, correct, wrong int) {
	t.Helper()
	for i := 0; i < correct+wrong; i++ {
		err := store.AppendGameAnswer(context.Background(), domain.AnswerRecord{
			OwnerID:    sessionID,
			UserID:     userID,
			QuestionID: fmt.Sprintf("q%d", i),
			IsCorrect:  i < correct,
		})
		if err != nil {
			t.Fatalf("seed answer: %v", err)
		}
	}
}

func seedMatchAnswers(t *testing.T, store *memory.Store, matchID, userID string, correct, wrong int) {
	t.Helper()
	for i := 0; i < correct+wrong; i++ {
		err := store.AppendMatchAnswer(context.Background(), domain.AnswerRecord{
			OwnerID:    matchID,
			UserID:     userID,
			QuestionID: fmt.Sprintf("q%d", i),
			IsCorrect:  i < correct,
		})
		if err != nil {
			t.Fatalf("seed answer: %v", err)
		}
	}
}

func mustProfile(t *testing.T, store *memory.Store, userID string) domain.Profile {
	t.Helper()
	p, err := store.GetProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("get profile %s: %v", userID, err)
	}
	return p
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(eventType, userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == eventType && ev.UserID == userID {
			n++
		}
	}
	return n
}
