package app_test

import (
	"context"
	"errors"
	"testing"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/domain"
	"math-maxxer-service/internal/infra/memory"
)

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "u1"})
	svc := app.NewGameServiceWithClock(store, fixedClock)

	session, err := svc.StartSession(ctx, "u1", domain.Advanced, "15+15", "")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.ID == "" || session.TotalQuestions != 15 || session.IsCompleted || !session.StartedAt.Equal(testNow) {
		t.Fatalf("unexpected session: %+v", session)
	}
	if _, err := store.GetSession(ctx, session.ID); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
}

func TestStartSessionUsesChallengeSettings(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "u1"})
	seedChallenge(t, store, 7)
	svc := app.NewGameService(store)

	session, err := svc.StartSession(ctx, "u1", domain.Beginner, "3+2", "c1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.ChallengeID != "c1" || session.Difficulty != domain.Intermediate || session.TotalQuestions != 10 {
		t.Fatalf("challenge settings not applied: %+v", session)
	}
}

func TestStartSessionValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "u1"})
	svc := app.NewGameService(store)

	if _, err := svc.StartSession(ctx, "", domain.Beginner, "3+2", ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.StartSession(ctx, "u1", "legendary", "3+2", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for difficulty, got %v", err)
	}
	if _, err := svc.StartSession(ctx, "u1", domain.Beginner, "4+4", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for time control, got %v", err)
	}
	if _, err := svc.StartSession(ctx, "u1", domain.Beginner, "3+2", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected challenge not found, got %v", err)
	}
}
