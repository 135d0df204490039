package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/domain"
)

func TestStoreRollsBackFailedTx(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.CreateProfile(ctx, domain.Profile{ID: "u1", IQRating: 1000}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		profile, err := tx.GetProfile(ctx, "u1")
		if err != nil {
			return err
		}
		profile.IQRating = 5000
		if err := tx.UpdateProfile(ctx, profile); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected tx error, got %v", err)
	}

	profile, _ := store.GetProfile(ctx, "u1")
	if profile.IQRating != 1000 {
		t.Fatalf("expected rollback, rating is %d", profile.IQRating)
	}
}

func TestStoreCompleteSessionOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.CreateSession(ctx, domain.GameSession{ID: "s1", UserID: "u1"})

	now := time.Now()
	first, err := store.CompleteSession(ctx, "s1", 3, now)
	if err != nil || !first {
		t.Fatalf("expected first completion, got %v %v", first, err)
	}
	second, err := store.CompleteSession(ctx, "s1", 5, now)
	if err != nil || second {
		t.Fatalf("expected second completion to be refused, got %v %v", second, err)
	}
	session, _ := store.GetSession(ctx, "s1")
	if session.Score != 3 {
		t.Fatalf("expected first score kept, got %d", session.Score)
	}
}

func TestStoreQueueOrderingAndUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

	entries := []domain.QueueEntry{
		{ID: "e2", UserID: "late", Difficulty: domain.Expert, TimeControl: "5+5", IQRating: 1000, CreatedAt: base.Add(time.Second)},
		{ID: "e1", UserID: "early", Difficulty: domain.Expert, TimeControl: "5+5", IQRating: 1050, CreatedAt: base},
		{ID: "e3", UserID: "far", Difficulty: domain.Expert, TimeControl: "5+5", IQRating: 1400, CreatedAt: base},
		{ID: "e4", UserID: "other", Difficulty: domain.Master, TimeControl: "5+5", IQRating: 1000, CreatedAt: base},
	}
	for _, e := range entries {
		if err := store.Enqueue(ctx, e); err != nil {
			t.Fatalf("enqueue %s: %v", e.UserID, err)
		}
	}
	if err := store.Enqueue(ctx, domain.QueueEntry{UserID: "late"}); !errors.Is(err, domain.ErrAlreadyQueued) {
		t.Fatalf("expected duplicate rejected, got %v", err)
	}

	candidates, err := store.QueueCandidates(ctx, domain.Expert, "5+5", "me", 900, 1100)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(candidates) != 2 || candidates[0].UserID != "early" || candidates[1].UserID != "late" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}

	if deleted, _ := store.DeleteQueueEntry(ctx, "early"); !deleted {
		t.Fatalf("expected delete")
	}
	if deleted, _ := store.DeleteQueueEntry(ctx, "early"); deleted {
		t.Fatalf("expected second delete to be a no-op")
	}
	if n, _ := store.CountQueue(ctx); n != 3 {
		t.Fatalf("expected 3 queued, got %d", n)
	}
}

func TestStoreCountsCorrectAnswersPerOwner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	answers := []domain.AnswerRecord{
		{OwnerID: "m1", UserID: "a", QuestionID: "q1", IsCorrect: true},
		{OwnerID: "m1", UserID: "a", QuestionID: "q2", IsCorrect: true},
		{OwnerID: "m1", UserID: "a", QuestionID: "q3", IsCorrect: false},
		{OwnerID: "m1", UserID: "b", QuestionID: "q1", IsCorrect: true},
		{OwnerID: "m2", UserID: "a", QuestionID: "q1", IsCorrect: true},
	}
	for _, a := range answers {
		_ = store.AppendMatchAnswer(ctx, a)
	}
	counts, _ := store.CountCorrectMatchAnswers(ctx, "m1")
	if counts["a"] != 2 || counts["b"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestStoreRejectsSecondAnswerToSameQuestion(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	first := domain.AnswerRecord{OwnerID: "s1", UserID: "a", QuestionID: "q1", IsCorrect: true}
	if err := store.AppendGameAnswer(ctx, first); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := store.AppendGameAnswer(ctx, first); !errors.Is(err, domain.ErrQuestionAnswered) {
		t.Fatalf("expected duplicate rejected, got %v", err)
	}
	if err := store.AppendGameAnswer(ctx, domain.AnswerRecord{OwnerID: "s1", UserID: "b", QuestionID: "q1"}); err != nil {
		t.Fatalf("other user may answer the same question: %v", err)
	}
	ids, _ := store.AnsweredGameQuestions(ctx, "s1", "a")
	if len(ids) != 1 || ids[0] != "q1" {
		t.Fatalf("unexpected answered questions: %v", ids)
	}
}

func TestStoreTrimsOldVerificationAttempts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	start := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = store.RecordVerificationAttempt(ctx, "u1", "q1", start.Add(time.Duration(i)*time.Minute))
	}
	_ = store.RecordVerificationAttempt(ctx, "u1", "q1", start.Add(attemptRetention+90*time.Second))
	if n := store.VerificationAttempts("u1"); n != 2 {
		t.Fatalf("expected attempts past retention dropped, got %d", n)
	}

	// attempts survive a rolled back transaction
	_ = store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		_ = tx.RecordVerificationAttempt(ctx, "u2", "q1", start)
		return errors.New("boom")
	})
	if n := store.VerificationAttempts("u2"); n != 1 {
		t.Fatalf("expected attempt kept after rollback, got %d", n)
	}
}
