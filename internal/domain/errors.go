package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller identity is missing or invalid.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrForbidden is returned when the caller is authenticated but does not own the resource.
	ErrForbidden = fmt.Errorf("%w: caller is not allowed to act on this resource", ErrUnauthorized)
	// ErrAuthenticationRequired is the verifier's variant of ErrUnauthorized.
	ErrAuthenticationRequired = fmt.Errorf("%w: Authentication required", ErrUnauthorized)

	ErrNotFound          = errors.New("not found")
	ErrSessionNotFound   = fmt.Errorf("Game session %w", ErrNotFound)
	ErrMatchNotFound     = fmt.Errorf("Match %w", ErrNotFound)
	ErrProfileNotFound   = fmt.Errorf("Profile %w", ErrNotFound)
	ErrQuestionNotFound  = fmt.Errorf("Question %w", ErrNotFound)
	ErrChallengeNotFound = fmt.Errorf("Challenge %w", ErrNotFound)
	ErrQueueEntryMissing = fmt.Errorf("Queue entry %w", ErrNotFound)

	// ErrAlreadyCompleted guards against applying a completion twice.
	ErrAlreadyCompleted          = errors.New("already completed")
	ErrGameAlreadyCompleted      = fmt.Errorf("Game %w", ErrAlreadyCompleted)
	ErrMatchAlreadyCompleted     = fmt.Errorf("Match %w", ErrAlreadyCompleted)
	ErrChallengeAlreadyCompleted = fmt.Errorf("Challenge %w", ErrAlreadyCompleted)

	// ErrValidation marks malformed or inconsistent requests.
	ErrValidation            = errors.New("validation failed")
	ErrSessionNotInChallenge = fmt.Errorf("%w: Session is not associated with this challenge", ErrValidation)
	ErrMatchNotStarted       = fmt.Errorf("%w: match has no second player", ErrValidation)
	ErrAlreadyQueued         = fmt.Errorf("%w: already in matchmaking queue", ErrValidation)
	ErrQuestionAnswered      = fmt.Errorf("%w: question already answered", ErrValidation)
	ErrAllQuestionsAnswered  = fmt.Errorf("%w: every question has been answered", ErrValidation)

	// ErrRateLimited is returned by the answer verifier when a caller exceeds the attempt budget.
	ErrRateLimited = errors.New("Rate limit exceeded")

	// ErrTargetNotMet reports a daily challenge run that was recorded without a reward.
	ErrTargetNotMet = errors.New("did not meet target score")
)
