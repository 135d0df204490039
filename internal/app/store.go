package app

import (
	"context"
	"time"

	"math-maxxer-service/internal/domain"
)

// SessionRepository persists solo game sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session domain.GameSession) error
	GetSession(ctx context.Context, sessionID string) (domain.GameSession, error)
	// CompleteSession marks the session completed only if it is not already;
	// it reports whether this call made the transition.
	CompleteSession(ctx context.Context, sessionID string, score int, completedAt time.Time) (bool, error)
}

// MatchRepository persists competitive matches.
type MatchRepository interface {
	CreateMatch(ctx context.Context, match domain.Match) error
	GetMatch(ctx context.Context, matchID string) (domain.Match, error)
	// CompleteMatch writes scores and winner only if the match is not completed yet.
	CompleteMatch(ctx context.Context, match domain.Match) (bool, error)
}

// AnswerRepository is the append-only answer log for both solo and match play.
// A user answers each question at most once per session or match; appending a
// second answer fails with domain.ErrQuestionAnswered.
type AnswerRepository interface {
	AppendGameAnswer(ctx context.Context, answer domain.AnswerRecord) error
	AppendMatchAnswer(ctx context.Context, answer domain.AnswerRecord) error
	AnsweredGameQuestions(ctx context.Context, sessionID, userID string) ([]string, error)
	AnsweredMatchQuestions(ctx context.Context, matchID, userID string) ([]string, error)
	CountCorrectGameAnswers(ctx context.Context, sessionID, userID string) (int, error)
	// CountCorrectMatchAnswers returns correct answers per user id.
	CountCorrectMatchAnswers(ctx context.Context, matchID string) (map[string]int, error)
	RecordVerificationAttempt(ctx context.Context, userID, questionID string, at time.Time) error
}

// ProfileRepository reads and writes player profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile domain.Profile) error
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, profile domain.Profile) error
}

// ChallengeRepository holds daily challenges and reward claims.
type ChallengeRepository interface {
	CreateChallenge(ctx context.Context, challenge domain.DailyChallenge) error
	GetChallenge(ctx context.Context, challengeID string) (domain.DailyChallenge, error)
	HasChallengeCompletion(ctx context.Context, userID, challengeID string) (bool, error)
	InsertChallengeCompletion(ctx context.Context, completion domain.ChallengeCompletion) error
}

// QueueRepository is the shared matchmaking table.
type QueueRepository interface {
	Enqueue(ctx context.Context, entry domain.QueueEntry) error
	GetQueueEntry(ctx context.Context, userID string) (domain.QueueEntry, error)
	DeleteQueueEntry(ctx context.Context, userID string) (bool, error)
	// QueueCandidates lists entries in the bucket other than excludeUserID whose
	// rating lies in [minRating, maxRating], oldest first.
	QueueCandidates(ctx context.Context, difficulty domain.Difficulty, timeControl, excludeUserID string, minRating, maxRating int) ([]domain.QueueEntry, error)
	ListQueue(ctx context.Context) ([]domain.QueueEntry, error)
	CountQueue(ctx context.Context) (int, error)
	// LockQueueBucket serializes pairing within one (difficulty, time control) bucket
	// for the rest of the enclosing transaction.
	LockQueueBucket(ctx context.Context, difficulty domain.Difficulty, timeControl string) error
}

// Tx is everything a unit of work can touch.
type Tx interface {
	SessionRepository
	MatchRepository
	AnswerRepository
	ProfileRepository
	ChallengeRepository
	QueueRepository
}

// Store is a Tx that can also open transactions. Reads and writes made on the
// Store itself outside RunInTx are auto-committed.
type Store interface {
	Tx
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// QuestionRepository loads questions with their canonical answers.
type QuestionRepository interface {
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// RateLimiter admits or rejects one verification attempt for key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Publisher delivers state changes to the notification layer.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Event) error { return nil }

// Subscriber streams one user's events until cancel is called.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan domain.Event, func(), error)
}
