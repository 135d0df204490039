package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"math-maxxer-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("get question: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	q, err := repo.GetQuestion(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
	if q.Answer != "4" {
		t.Fatalf("expected canonical answer kept in cache, got %q", q.Answer)
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("get question: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("get question after ttl: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls.Load())
	}
}

func TestQuestionRepositoryCollapsesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleQuestions()), gate: release}
	repo := NewQuestionRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
				t.Errorf("get question: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.calls.Load() != 1 {
		t.Fatalf("expected single load for concurrent misses, got %d", loader.calls.Load())
	}
}

func TestQuestionRepositoryUnknown(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionLoader(nil), time.Minute)
	if _, err := repo.GetQuestion(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls atomic.Int32
	gate  chan struct{}
}

func (l *countingLoader) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.QuestionLoader.LoadQuestion(ctx, questionID)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Prompt: "2 + 2", Answer: "4", Difficulty: domain.Beginner},
		{ID: "q2", Prompt: "12 x 12", Answer: "144", Difficulty: domain.Elementary},
	}
}
