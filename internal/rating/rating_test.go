package rating

import (
	"testing"

	"math-maxxer-service/internal/domain"
)

func TestSoloDeltaBands(t *testing.T) {
	cases := []struct {
		name       string
		difficulty domain.Difficulty
		percentage float64
		games      int
		want       int
	}{
		{"beginner good new player", domain.Beginner, 80, 3, 15},
		{"beginner good veteran", domain.Beginner, 80, 35, 10},
		{"beginner good mid", domain.Beginner, 70, 10, 12},
		{"beginner good grinder", domain.Beginner, 100, 50, 7},
		{"master average", domain.Master, 69.9, 0, 15},
		{"master poor", domain.Master, 39.9, 0, -15},
		{"intermediate partial", domain.Intermediate, 40, 100, 10},
		{"expert decay 30", domain.Expert, 90, 30, 18},
		{"advanced decay 29", domain.Advanced, 90, 29, 19},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SoloDelta(tc.difficulty, tc.percentage, tc.games); got != tc.want {
				t.Fatalf("SoloDelta(%s, %.1f, %d) = %d, want %d", tc.difficulty, tc.percentage, tc.games, got, tc.want)
			}
		})
	}
}

func TestTiersStrictlyIncrease(t *testing.T) {
	prev := Tier{}
	for i, d := range domain.Difficulties {
		tier := TierFor(d)
		if i > 0 && (tier.Win <= prev.Win || tier.Loss > prev.Loss) {
			t.Fatalf("tier %s (%+v) does not grow over previous %+v", d, tier, prev)
		}
		if tier.Win <= 0 || tier.Loss >= 0 {
			t.Fatalf("tier %s has wrong signs: %+v", d, tier)
		}
		prev = tier
	}
}

func TestUnknownDifficultyUsesBeginner(t *testing.T) {
	if got := SoloDelta("legendary", 100, 0); got != 15 {
		t.Fatalf("expected beginner base 15, got %d", got)
	}
	if got := MatchDelta("", false, false); got != -8 {
		t.Fatalf("expected beginner loss -8, got %d", got)
	}
}

func TestMatchDelta(t *testing.T) {
	if got := MatchDelta(domain.Master, true, false); got != 30 {
		t.Fatalf("winner delta = %d", got)
	}
	if got := MatchDelta(domain.Master, false, false); got != -15 {
		t.Fatalf("loser delta = %d", got)
	}
	if got := MatchDelta(domain.Master, false, true); got != 0 {
		t.Fatalf("draw delta = %d", got)
	}
}

func TestApplyClampsAtZero(t *testing.T) {
	for _, d := range domain.Difficulties {
		if got := Apply(3, SoloDelta(d, 0, 0)); got != 0 {
			t.Fatalf("%s: expected clamp to 0, got %d", d, got)
		}
		if got := Apply(0, MatchDelta(d, false, false)); got != 0 {
			t.Fatalf("%s: expected clamp to 0, got %d", d, got)
		}
	}
	if got := Apply(1000, 15); got != 1015 {
		t.Fatalf("expected 1015, got %d", got)
	}
}

func TestScorePercentage(t *testing.T) {
	if got := ScorePercentage(4, 5); got != 80 {
		t.Fatalf("expected 80, got %v", got)
	}
	if got := ScorePercentage(3, 0); got != 0 {
		t.Fatalf("expected empty session to count as 0, got %v", got)
	}
}
