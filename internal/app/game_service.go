package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"math-maxxer-service/internal/domain"
)

// GameService opens solo sessions for practice and daily challenges.
type GameService struct {
	store Store
	now   func() time.Time
}

func NewGameService(store Store) *GameService {
	return NewGameServiceWithClock(store, time.Now)
}

// NewGameServiceWithClock is used by tests that need fixed timestamps.
func NewGameServiceWithClock(store Store, now func() time.Time) *GameService {
	return &GameService{store: store, now: now}
}

// StartSession creates a session for the caller. When challengeID is set the
// challenge dictates difficulty and time control.
func (s *GameService) StartSession(ctx context.Context, callerID string, difficulty domain.Difficulty, timeControl, challengeID string) (domain.GameSession, error) {
	if callerID == "" {
		return domain.GameSession{}, domain.ErrUnauthorized
	}

	if challengeID != "" {
		challenge, err := s.store.GetChallenge(ctx, challengeID)
		if err != nil {
			return domain.GameSession{}, err
		}
		difficulty = challenge.Difficulty
		timeControl = challenge.TimeControl
	}

	if !difficulty.Valid() {
		return domain.GameSession{}, fmt.Errorf("%w: unknown difficulty %q", domain.ErrValidation, difficulty)
	}
	total, ok := domain.QuestionsForTimeControl(timeControl)
	if !ok || !domain.ValidTimeControl(timeControl) {
		return domain.GameSession{}, fmt.Errorf("%w: unknown time control %q", domain.ErrValidation, timeControl)
	}
	if _, err := s.store.GetProfile(ctx, callerID); err != nil {
		return domain.GameSession{}, err
	}

	session := domain.GameSession{
		ID:             uuid.NewString(),
		UserID:         callerID,
		Difficulty:     difficulty,
		TimeControl:    timeControl,
		TotalQuestions: total,
		StartedAt:      s.now(),
		ChallengeID:    challengeID,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return domain.GameSession{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}
