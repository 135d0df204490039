package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"math-maxxer-service/internal/domain"
)

// QuestionLoader reads the question bank straight from Postgres with pgx. It
// backs the question caches.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	q := domain.Question{ID: questionID}
	var difficulty string
	err := l.pool.QueryRow(ctx,
		`SELECT question, answer, difficulty FROM questions WHERE id=$1`, questionID,
	).Scan(&q.Prompt, &q.Answer, &difficulty)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	return q, nil
}

// UpsertQuestions writes the given questions in one batch.
func (l *QuestionLoader) UpsertQuestions(ctx context.Context, questions []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(
			`INSERT INTO questions (id, question, answer, difficulty) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET question=EXCLUDED.question, answer=EXCLUDED.answer, difficulty=EXCLUDED.difficulty`,
			q.ID, q.Prompt, q.Answer, string(q.Difficulty),
		)
	}
	results := l.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range questions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert question: %w", err)
		}
	}
	return nil
}
