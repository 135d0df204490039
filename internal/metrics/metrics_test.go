package metrics

import (
	"context"
	"fmt"
	"testing"

	"math-maxxer-service/internal/domain"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{domain.ErrTargetNotMet, "target_not_met"},
		{fmt.Errorf("complete: %w", domain.ErrTargetNotMet), "target_not_met"},
		{domain.ErrGameAlreadyCompleted, "failure"},
		{context.Canceled, "failure"},
	}
	for _, tc := range cases {
		if got := Outcome(tc.err); got != tc.want {
			t.Fatalf("Outcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
