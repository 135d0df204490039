package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"math-maxxer-service/internal/domain"
)

// QuestionLoader fetches questions from the backing store.
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// QuestionRepository caches questions in Redis (one hash per question) and falls
// back to a loader on cache miss.
// Stored as: HSET question:{questionID} question {prompt} answer {answer} difficulty {difficulty}
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	key := r.key(questionID)
	if question, ok := r.cached(ctx, key, questionID); ok {
		return question, nil
	}

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		// another caller may have filled the cache while we waited
		if question, ok := r.cached(ctx, key, questionID); ok {
			return question, nil
		}

		question, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key,
			"question", question.Prompt,
			"answer", question.Answer,
			"difficulty", string(question.Difficulty),
		)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (r *QuestionRepository) cached(ctx context.Context, key, questionID string) (domain.Question, bool) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil || fields["answer"] == "" {
		return domain.Question{}, false
	}
	return domain.Question{
		ID:         questionID,
		Prompt:     fields["question"],
		Answer:     fields["answer"],
		Difficulty: domain.Difficulty(fields["difficulty"]),
	}, true
}

func (r *QuestionRepository) key(questionID string) string {
	return "question:" + questionID
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
