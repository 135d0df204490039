package app

import (
	"context"
	"errors"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"math-maxxer-service/internal/domain"
	"math-maxxer-service/internal/metrics"
	"math-maxxer-service/internal/rating"
)

// CompletionService applies the end-of-game flows: solo, match and daily challenge.
// Every flow reads, scores and writes inside one transaction so a failure leaves no
// partial rating change behind.
type CompletionService struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

func NewCompletionService(store Store, publisher Publisher) *CompletionService {
	return NewCompletionServiceWithClock(store, publisher, time.Now)
}

// NewCompletionServiceWithClock is used by tests that need fixed timestamps.
func NewCompletionServiceWithClock(store Store, publisher Publisher, now func() time.Time) *CompletionService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &CompletionService{store: store, publisher: publisher, now: now}
}

// CompleteSoloGame scores a finished practice session and updates the owner's practice rating.
func (s *CompletionService) CompleteSoloGame(ctx context.Context, callerID, sessionID string) (result domain.SoloResult, err error) {
	timer := prometheus.NewTimer(metrics.CompletionDuration.WithLabelValues("solo"))
	defer func() {
		timer.ObserveDuration()
		metrics.Completions.WithLabelValues("solo", metrics.Outcome(err)).Inc()
	}()

	if callerID == "" {
		return domain.SoloResult{}, domain.ErrUnauthorized
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != callerID {
			return domain.ErrForbidden
		}
		if session.IsCompleted {
			return domain.ErrGameAlreadyCompleted
		}

		score, err := SessionScore(ctx, tx, session.ID, callerID)
		if err != nil {
			return err
		}
		profile, err := tx.GetProfile(ctx, callerID)
		if err != nil {
			return err
		}

		pct := rating.ScorePercentage(score, session.TotalQuestions)
		delta := rating.SoloDelta(session.Difficulty, pct, profile.TotalGames)
		now := s.now()

		profile.PracticeRating = rating.Apply(profile.PracticeRating, delta)
		profile.TotalGames++
		profile.UpdatedAt = now

		completed, err := tx.CompleteSession(ctx, session.ID, score, now)
		if err != nil {
			return err
		}
		if !completed {
			return domain.ErrGameAlreadyCompleted
		}
		if err := tx.UpdateProfile(ctx, profile); err != nil {
			return err
		}

		result = domain.SoloResult{
			Score:             score,
			PointsEarned:      delta,
			NewPracticeRating: profile.PracticeRating,
			TotalGames:        profile.TotalGames,
		}
		return nil
	})
	if err != nil {
		return domain.SoloResult{}, err
	}
	return result, nil
}

// CompleteMatch settles a head-to-head match. Either participant may call it; the
// second call fails with ErrMatchAlreadyCompleted.
func (s *CompletionService) CompleteMatch(ctx context.Context, callerID, matchID string) (result domain.MatchResult, err error) {
	timer := prometheus.NewTimer(metrics.CompletionDuration.WithLabelValues("match"))
	defer func() {
		timer.ObserveDuration()
		metrics.Completions.WithLabelValues("match", metrics.Outcome(err)).Inc()
	}()

	if callerID == "" {
		return domain.MatchResult{}, domain.ErrUnauthorized
	}

	var settled domain.Match
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if !match.HasPlayer(callerID) {
			return domain.ErrForbidden
		}
		if match.Status == domain.MatchCompleted {
			return domain.ErrMatchAlreadyCompleted
		}
		if match.Player2ID == "" {
			return domain.ErrMatchNotStarted
		}

		p1Score, p2Score, err := MatchScores(ctx, tx, match)
		if err != nil {
			return err
		}

		draw := p1Score == p2Score
		winnerID := ""
		if !draw {
			winnerID = match.Player1ID
			if p2Score > p1Score {
				winnerID = match.Player2ID
			}
		}

		now := s.now()
		p1Delta := rating.MatchDelta(match.Difficulty, winnerID == match.Player1ID, draw)
		p2Delta := rating.MatchDelta(match.Difficulty, winnerID == match.Player2ID, draw)
		// profiles are locked in id order so matches with swapped seats cannot deadlock
		deltas := map[string]int{match.Player1ID: p1Delta, match.Player2ID: p2Delta}
		players := []string{match.Player1ID, match.Player2ID}
		slices.Sort(players)
		for _, userID := range players {
			if err := s.settlePlayer(ctx, tx, userID, deltas[userID], winnerID, draw, now); err != nil {
				return err
			}
		}

		match.Player1Score = p1Score
		match.Player2Score = p2Score
		match.WinnerID = winnerID
		match.Status = domain.MatchCompleted
		match.CompletedAt = &now
		updated, err := tx.CompleteMatch(ctx, match)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrMatchAlreadyCompleted
		}

		settled = match
		result = domain.MatchResult{
			Player1RatingChange: p1Delta,
			Player2RatingChange: p2Delta,
			Player1Score:        p1Score,
			Player2Score:        p2Score,
		}
		if !draw {
			result.WinnerID = &winnerID
		}
		return nil
	})
	if err != nil {
		return domain.MatchResult{}, err
	}

	s.notify(ctx, domain.EventMatchCompleted, settled.ID, settled.Player1ID, settled.Player2ID)
	return result, nil
}

func (s *CompletionService) settlePlayer(ctx context.Context, tx Tx, userID string, delta int, winnerID string, draw bool, now time.Time) error {
	profile, err := tx.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	profile.IQRating = rating.Apply(profile.IQRating, delta)
	profile.TotalGames++
	if !draw {
		if userID == winnerID {
			profile.Wins++
		} else {
			profile.Losses++
		}
	}
	profile.UpdatedAt = now
	return tx.UpdateProfile(ctx, profile)
}

// CompleteDailyChallenge records a challenge run and grants the reward when the
// target is met. Below target the session is still marked completed and the
// returned error is ErrTargetNotMet alongside a populated result.
func (s *CompletionService) CompleteDailyChallenge(ctx context.Context, callerID, sessionID, challengeID string) (result domain.ChallengeResult, err error) {
	timer := prometheus.NewTimer(metrics.CompletionDuration.WithLabelValues("challenge"))
	defer func() {
		timer.ObserveDuration()
		metrics.Completions.WithLabelValues("challenge", metrics.Outcome(err)).Inc()
	}()

	if callerID == "" {
		return domain.ChallengeResult{}, domain.ErrUnauthorized
	}

	targetMet := false
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != callerID {
			return domain.ErrForbidden
		}
		if session.ChallengeID != challengeID {
			return domain.ErrSessionNotInChallenge
		}
		if session.IsCompleted {
			return domain.ErrGameAlreadyCompleted
		}

		challenge, err := tx.GetChallenge(ctx, challengeID)
		if err != nil {
			return err
		}
		score, err := SessionScore(ctx, tx, session.ID, callerID)
		if err != nil {
			return err
		}
		claimed, err := tx.HasChallengeCompletion(ctx, callerID, challengeID)
		if err != nil {
			return err
		}
		if claimed {
			return domain.ErrChallengeAlreadyCompleted
		}

		profile, err := tx.GetProfile(ctx, callerID)
		if err != nil {
			return err
		}

		now := s.now()
		completed, err := tx.CompleteSession(ctx, session.ID, score, now)
		if err != nil {
			return err
		}
		if !completed {
			return domain.ErrGameAlreadyCompleted
		}

		result = domain.ChallengeResult{
			ChallengeID:       challenge.ID,
			Score:             score,
			TargetScore:       challenge.TargetScore,
			NewPracticeRating: profile.PracticeRating,
			NewIQRating:       profile.IQRating,
		}
		if score < challenge.TargetScore {
			return nil
		}

		if err := tx.InsertChallengeCompletion(ctx, domain.ChallengeCompletion{
			ID:            uuid.NewString(),
			UserID:        callerID,
			ChallengeID:   challenge.ID,
			ScoreAchieved: score,
			CompletedAt:   now,
		}); err != nil {
			return err
		}
		profile.PracticeRating = rating.Apply(profile.PracticeRating, challenge.RewardPracticeRating)
		profile.IQRating = rating.Apply(profile.IQRating, challenge.RewardIQRating)
		profile.UpdatedAt = now
		if err := tx.UpdateProfile(ctx, profile); err != nil {
			return err
		}

		targetMet = true
		result.TargetMet = true
		result.RewardPracticeRating = challenge.RewardPracticeRating
		result.RewardIQRating = challenge.RewardIQRating
		result.NewPracticeRating = profile.PracticeRating
		result.NewIQRating = profile.IQRating
		return nil
	})
	if err != nil {
		return domain.ChallengeResult{}, err
	}
	if !targetMet {
		return result, domain.ErrTargetNotMet
	}
	return result, nil
}

func (s *CompletionService) notify(ctx context.Context, eventType, matchID string, userIDs ...string) {
	at := s.now()
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		err := s.publisher.Publish(ctx, domain.Event{Type: eventType, UserID: userID, MatchID: matchID, At: at})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("publish %s to %s: %v", eventType, userID, err)
		}
	}
}
