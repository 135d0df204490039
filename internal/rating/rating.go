// Package rating holds the pure rating arithmetic for solo and competitive games.
package rating

import (
	"math"

	"math-maxxer-service/internal/domain"
)

// Tier is the per-difficulty reward table. Win doubles as the solo base points.
type Tier struct {
	Win  int
	Loss int
}

var tiers = map[domain.Difficulty]Tier{
	domain.Beginner:     {Win: 15, Loss: -8},
	domain.Elementary:   {Win: 18, Loss: -9},
	domain.Intermediate: {Win: 21, Loss: -10},
	domain.Advanced:     {Win: 24, Loss: -12},
	domain.Expert:       {Win: 27, Loss: -13},
	domain.Master:       {Win: 30, Loss: -15},
}

// TierFor returns the table for d. Unknown tiers fall back to beginner so a bad
// row never blocks a game from completing.
func TierFor(d domain.Difficulty) Tier {
	if t, ok := tiers[d]; ok {
		return t
	}
	return tiers[domain.Beginner]
}

// Performance bands for solo games, in percent.
const (
	LossBelow    = 40.0
	PartialBelow = 70.0
)

// SoloDelta computes practice rating points for a finished solo session.
// gamesPlayed is the profile's total_games before this session.
func SoloDelta(d domain.Difficulty, scorePercentage float64, gamesPlayed int) int {
	tier := TierFor(d)
	switch {
	case scorePercentage < LossBelow:
		return tier.Loss
	case scorePercentage < PartialBelow:
		return scale(tier.Win, 0.5)
	}

	// experience decay keeps heavy grinders from inflating practice rating
	switch {
	case gamesPlayed < 10:
		return tier.Win
	case gamesPlayed < 30:
		return scale(tier.Win, 0.8)
	case gamesPlayed < 50:
		return scale(tier.Win, 0.67)
	default:
		return scale(tier.Win, 0.53)
	}
}

// MatchDelta computes competitive rating change for one side of a match.
func MatchDelta(d domain.Difficulty, isWinner, isDraw bool) int {
	if isDraw {
		return 0
	}
	tier := TierFor(d)
	if isWinner {
		return tier.Win
	}
	return tier.Loss
}

// ScorePercentage converts a raw score to a percentage; an empty session counts as 0%.
func ScorePercentage(score, totalQuestions int) float64 {
	if totalQuestions <= 0 {
		return 0
	}
	return float64(score) / float64(totalQuestions) * 100
}

// Apply adds delta to current, clamping at zero.
func Apply(current, delta int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}

func scale(base int, factor float64) int {
	return int(math.Floor(float64(base) * factor))
}
