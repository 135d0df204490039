package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/domain"
)

// Store is the Postgres implementation of app.Store built on bun. Rows read
// inside RunInTx are locked FOR UPDATE until the transaction ends.
type Store struct {
	*queries
	db *bun.DB
}

var _ app.Store = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{queries: &queries{db: db}, db: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &queries{db: tx, inTx: true})
	})
}

type queries struct {
	db   bun.IDB
	inTx bool
}

func (q *queries) lock(sel *bun.SelectQuery) *bun.SelectQuery {
	if q.inTx {
		return sel.For("UPDATE")
	}
	return sel
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func (q *queries) CreateSession(ctx context.Context, session domain.GameSession) error {
	if _, err := q.db.NewInsert().Model(newSessionRow(session)).Exec(ctx); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (q *queries) GetSession(ctx context.Context, sessionID string) (domain.GameSession, error) {
	var row sessionRow
	err := q.lock(q.db.NewSelect().Model(&row).Where("gs.id = ?", sessionID)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("select session: %w", err)
	}
	return row.toDomain(), nil
}

func (q *queries) CompleteSession(ctx context.Context, sessionID string, score int, completedAt time.Time) (bool, error) {
	res, err := q.db.NewUpdate().
		Model((*sessionRow)(nil)).
		Set("is_completed = TRUE").
		Set("score = ?", score).
		Set("completed_at = ?", completedAt).
		Where("id = ?", sessionID).
		Where("is_completed = FALSE").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("complete session: %w", err)
	}
	return affected(res)
}

func (q *queries) CreateMatch(ctx context.Context, match domain.Match) error {
	if _, err := q.db.NewInsert().Model(newMatchRow(match)).Exec(ctx); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (q *queries) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	var row matchRow
	err := q.lock(q.db.NewSelect().Model(&row).Where("m.id = ?", matchID)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("select match: %w", err)
	}
	return row.toDomain(), nil
}

func (q *queries) CompleteMatch(ctx context.Context, match domain.Match) (bool, error) {
	res, err := q.db.NewUpdate().
		Model(newMatchRow(match)).
		Column("player1_score", "player2_score", "winner_id", "status", "completed_at").
		WherePK().
		Where("status != ?", string(domain.MatchCompleted)).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("complete match: %w", err)
	}
	return affected(res)
}

func (q *queries) AppendGameAnswer(ctx context.Context, answer domain.AnswerRecord) error {
	row := &gameAnswerRow{
		ID:            answerID(answer.ID),
		GameSessionID: answer.OwnerID,
		UserID:        answer.UserID,
		QuestionID:    answer.QuestionID,
		UserAnswer:    answer.UserAnswer,
		IsCorrect:     answer.IsCorrect,
		AnsweredAt:    answer.AnsweredAt,
	}
	if _, err := q.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrQuestionAnswered
		}
		return fmt.Errorf("insert game answer: %w", err)
	}
	return nil
}

func (q *queries) AppendMatchAnswer(ctx context.Context, answer domain.AnswerRecord) error {
	row := &matchAnswerRow{
		ID:         answerID(answer.ID),
		MatchID:    answer.OwnerID,
		UserID:     answer.UserID,
		QuestionID: answer.QuestionID,
		UserAnswer: answer.UserAnswer,
		IsCorrect:  answer.IsCorrect,
		AnsweredAt: answer.AnsweredAt,
	}
	if _, err := q.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrQuestionAnswered
		}
		return fmt.Errorf("insert match answer: %w", err)
	}
	return nil
}

func (q *queries) AnsweredGameQuestions(ctx context.Context, sessionID, userID string) ([]string, error) {
	var ids []string
	err := q.db.NewSelect().
		Model((*gameAnswerRow)(nil)).
		Column("question_id").
		Where("game_session_id = ?", sessionID).
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("select answered game questions: %w", err)
	}
	return ids, nil
}

func (q *queries) AnsweredMatchQuestions(ctx context.Context, matchID, userID string) ([]string, error) {
	var ids []string
	err := q.db.NewSelect().
		Model((*matchAnswerRow)(nil)).
		Column("question_id").
		Where("match_id = ?", matchID).
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("select answered match questions: %w", err)
	}
	return ids, nil
}

func answerID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (q *queries) CountCorrectGameAnswers(ctx context.Context, sessionID, userID string) (int, error) {
	n, err := q.db.NewSelect().
		Model((*gameAnswerRow)(nil)).
		Where("game_session_id = ?", sessionID).
		Where("user_id = ?", userID).
		Where("is_correct").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count game answers: %w", err)
	}
	return n, nil
}

func (q *queries) CountCorrectMatchAnswers(ctx context.Context, matchID string) (map[string]int, error) {
	var rows []struct {
		UserID  string `bun:"user_id"`
		Correct int    `bun:"correct"`
	}
	err := q.db.NewSelect().
		Model((*matchAnswerRow)(nil)).
		Column("user_id").
		ColumnExpr("count(*) AS correct").
		Where("match_id = ?", matchID).
		Where("is_correct").
		Group("user_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("count match answers: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.Correct
	}
	return counts, nil
}

func (q *queries) RecordVerificationAttempt(ctx context.Context, userID, questionID string, at time.Time) error {
	row := &verificationAttemptRow{UserID: userID, QuestionID: questionID, AttemptedAt: at}
	if _, err := q.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert verification attempt: %w", err)
	}
	return nil
}

func (q *queries) CreateProfile(ctx context.Context, profile domain.Profile) error {
	_, err := q.db.NewInsert().
		Model(newProfileRow(profile)).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (q *queries) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var row profileRow
	err := q.lock(q.db.NewSelect().Model(&row).Where("p.id = ?", userID)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return row.toDomain(), nil
}

func (q *queries) UpdateProfile(ctx context.Context, profile domain.Profile) error {
	res, err := q.db.NewUpdate().
		Model(newProfileRow(profile)).
		Column("iq_rating", "practice_rating", "wins", "losses", "total_games", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (q *queries) CreateChallenge(ctx context.Context, challenge domain.DailyChallenge) error {
	_, err := q.db.NewInsert().
		Model(newChallengeRow(challenge)).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	return nil
}

func (q *queries) GetChallenge(ctx context.Context, challengeID string) (domain.DailyChallenge, error) {
	var row challengeRow
	err := q.db.NewSelect().Model(&row).Where("dc.id = ?", challengeID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyChallenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("select challenge: %w", err)
	}
	return row.toDomain(), nil
}

func (q *queries) HasChallengeCompletion(ctx context.Context, userID, challengeID string) (bool, error) {
	exists, err := q.db.NewSelect().
		Model((*challengeCompletionRow)(nil)).
		Where("user_id = ?", userID).
		Where("challenge_id = ?", challengeID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check challenge completion: %w", err)
	}
	return exists, nil
}

func (q *queries) InsertChallengeCompletion(ctx context.Context, completion domain.ChallengeCompletion) error {
	row := &challengeCompletionRow{
		ID:            completion.ID,
		UserID:        completion.UserID,
		ChallengeID:   completion.ChallengeID,
		ScoreAchieved: completion.ScoreAchieved,
		CompletedAt:   completion.CompletedAt,
	}
	_, err := q.db.NewInsert().Model(row).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrChallengeAlreadyCompleted
	}
	if err != nil {
		return fmt.Errorf("insert challenge completion: %w", err)
	}
	return nil
}

func (q *queries) Enqueue(ctx context.Context, entry domain.QueueEntry) error {
	_, err := q.db.NewInsert().Model(newQueueRow(entry)).Exec(ctx)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyQueued
	}
	if err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

func (q *queries) GetQueueEntry(ctx context.Context, userID string) (domain.QueueEntry, error) {
	var row queueRow
	err := q.db.NewSelect().Model(&row).Where("mq.user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QueueEntry{}, domain.ErrQueueEntryMissing
	}
	if err != nil {
		return domain.QueueEntry{}, fmt.Errorf("select queue entry: %w", err)
	}
	return row.toDomain(), nil
}

func (q *queries) DeleteQueueEntry(ctx context.Context, userID string) (bool, error) {
	res, err := q.db.NewDelete().
		Model((*queueRow)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete queue entry: %w", err)
	}
	return affected(res)
}

func (q *queries) QueueCandidates(ctx context.Context, difficulty domain.Difficulty, timeControl, excludeUserID string, minRating, maxRating int) ([]domain.QueueEntry, error) {
	var rows []queueRow
	err := q.db.NewSelect().
		Model(&rows).
		Where("mq.difficulty = ?", string(difficulty)).
		Where("mq.time_control = ?", timeControl).
		Where("mq.user_id != ?", excludeUserID).
		Where("mq.iq_rating BETWEEN ? AND ?", minRating, maxRating).
		Order("mq.created_at ASC", "mq.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select queue candidates: %w", err)
	}
	return queueEntries(rows), nil
}

func (q *queries) ListQueue(ctx context.Context) ([]domain.QueueEntry, error) {
	var rows []queueRow
	err := q.db.NewSelect().
		Model(&rows).
		Order("mq.created_at ASC", "mq.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select queue: %w", err)
	}
	return queueEntries(rows), nil
}

func (q *queries) CountQueue(ctx context.Context) (int, error) {
	n, err := q.db.NewSelect().Model((*queueRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

// LockQueueBucket takes a transaction-scoped advisory lock on the bucket. Outside
// a transaction the lock is released as soon as the statement finishes.
func (q *queries) LockQueueBucket(ctx context.Context, difficulty domain.Difficulty, timeControl string) error {
	bucket := "matchmaking:" + string(difficulty) + ":" + timeControl
	if _, err := q.db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", bucket); err != nil {
		return fmt.Errorf("lock queue bucket: %w", err)
	}
	return nil
}

func queueEntries(rows []queueRow) []domain.QueueEntry {
	out := make([]domain.QueueEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
