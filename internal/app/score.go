package app

import (
	"context"
	"fmt"

	"math-maxxer-service/internal/domain"
)

// SessionScore recomputes a solo score from the answer log. Client-reported
// scores are never consulted.
func SessionScore(ctx context.Context, answers AnswerRepository, sessionID, userID string) (int, error) {
	score, err := answers.CountCorrectGameAnswers(ctx, sessionID, userID)
	if err != nil {
		return 0, fmt.Errorf("aggregate session score: %w", err)
	}
	return score, nil
}

// MatchScores recomputes both players' scores from the match answer log.
func MatchScores(ctx context.Context, answers AnswerRepository, match domain.Match) (int, int, error) {
	counts, err := answers.CountCorrectMatchAnswers(ctx, match.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate match scores: %w", err)
	}
	return counts[match.Player1ID], counts[match.Player2ID], nil
}
