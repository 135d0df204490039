package app

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"math-maxxer-service/internal/domain"
	"math-maxxer-service/internal/metrics"
)

// AnswerService is the server-side answer verifier. Clients never see canonical
// answers; they submit a candidate and get a verdict.
type AnswerService struct {
	store     Store
	questions QuestionRepository
	limiter   RateLimiter
	validate  *validator.Validate
	now       func() time.Time
}

func NewAnswerService(store Store, questions QuestionRepository, limiter RateLimiter) *AnswerService {
	return NewAnswerServiceWithClock(store, questions, limiter, time.Now)
}

// NewAnswerServiceWithClock is used by tests that need fixed timestamps.
func NewAnswerServiceWithClock(store Store, questions QuestionRepository, limiter RateLimiter, now func() time.Time) *AnswerService {
	return &AnswerService{
		store:     store,
		questions: questions,
		limiter:   limiter,
		validate:  validator.New(),
		now:       now,
	}
}

type answerInput struct {
	QuestionID string `validate:"required,max=64"`
	Answer     string `validate:"required,max=100"`
}

// Verify checks a candidate answer for one question. It records the attempt but
// never touches score state.
func (s *AnswerService) Verify(ctx context.Context, callerID, questionID, answer string) (bool, error) {
	if callerID == "" {
		return false, domain.ErrAuthenticationRequired
	}

	input := answerInput{QuestionID: strings.TrimSpace(questionID), Answer: strings.TrimSpace(answer)}
	if err := s.validate.Struct(input); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	allowed, err := s.limiter.Allow(ctx, callerID)
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		metrics.Verifications.WithLabelValues("rate_limited").Inc()
		return false, domain.ErrRateLimited
	}

	question, err := s.questions.GetQuestion(ctx, input.QuestionID)
	if err != nil {
		return false, err
	}
	if err := s.store.RecordVerificationAttempt(ctx, callerID, question.ID, s.now()); err != nil {
		return false, fmt.Errorf("record verification attempt: %w", err)
	}

	correct := AnswersMatch(question.Answer, input.Answer)
	if correct {
		metrics.Verifications.WithLabelValues("correct").Inc()
	} else {
		metrics.Verifications.WithLabelValues("incorrect").Inc()
	}
	return correct, nil
}

// SubmitSoloAnswer verifies an answer and appends it to the session's answer log.
// Each question counts once, and no more than total_questions answers are taken.
func (s *AnswerService) SubmitSoloAnswer(ctx context.Context, callerID, sessionID, questionID, answer string) (bool, error) {
	if callerID == "" {
		return false, domain.ErrUnauthorized
	}
	questionID = strings.TrimSpace(questionID)
	if _, err := checkSoloAnswer(ctx, s.store, callerID, sessionID, questionID); err != nil {
		return false, err
	}

	correct, err := s.Verify(ctx, callerID, questionID, answer)
	if err != nil {
		return false, err
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		session, err := checkSoloAnswer(ctx, tx, callerID, sessionID, questionID)
		if err != nil {
			return err
		}
		return tx.AppendGameAnswer(ctx, s.record(session.ID, callerID, questionID, answer, correct))
	})
	if err != nil {
		return false, err
	}
	return correct, nil
}

func checkSoloAnswer(ctx context.Context, tx Tx, callerID, sessionID, questionID string) (domain.GameSession, error) {
	session, err := tx.GetSession(ctx, sessionID)
	if err != nil {
		return domain.GameSession{}, err
	}
	if session.UserID != callerID {
		return domain.GameSession{}, domain.ErrForbidden
	}
	if session.IsCompleted {
		return domain.GameSession{}, domain.ErrGameAlreadyCompleted
	}
	answered, err := tx.AnsweredGameQuestions(ctx, session.ID, callerID)
	if err != nil {
		return domain.GameSession{}, err
	}
	if err := checkAnswerSlot(answered, questionID, session.TotalQuestions); err != nil {
		return domain.GameSession{}, err
	}
	return session, nil
}

// SubmitMatchAnswer verifies an answer and appends it to the match's answer log,
// with the same once-per-question and question-count limits as solo play.
func (s *AnswerService) SubmitMatchAnswer(ctx context.Context, callerID, matchID, questionID, answer string) (bool, error) {
	if callerID == "" {
		return false, domain.ErrUnauthorized
	}
	questionID = strings.TrimSpace(questionID)
	if _, err := checkMatchAnswer(ctx, s.store, callerID, matchID, questionID); err != nil {
		return false, err
	}

	correct, err := s.Verify(ctx, callerID, questionID, answer)
	if err != nil {
		return false, err
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		match, err := checkMatchAnswer(ctx, tx, callerID, matchID, questionID)
		if err != nil {
			return err
		}
		return tx.AppendMatchAnswer(ctx, s.record(match.ID, callerID, questionID, answer, correct))
	})
	if err != nil {
		return false, err
	}
	return correct, nil
}

func checkMatchAnswer(ctx context.Context, tx Tx, callerID, matchID, questionID string) (domain.Match, error) {
	match, err := tx.GetMatch(ctx, matchID)
	if err != nil {
		return domain.Match{}, err
	}
	if !match.HasPlayer(callerID) {
		return domain.Match{}, domain.ErrForbidden
	}
	if match.Status == domain.MatchCompleted {
		return domain.Match{}, domain.ErrMatchAlreadyCompleted
	}
	answered, err := tx.AnsweredMatchQuestions(ctx, match.ID, callerID)
	if err != nil {
		return domain.Match{}, err
	}
	total, _ := domain.QuestionsForTimeControl(match.TimeControl)
	if err := checkAnswerSlot(answered, questionID, total); err != nil {
		return domain.Match{}, err
	}
	return match, nil
}

// checkAnswerSlot rejects a repeated question and answers past total. A
// non-positive total means the game has no question count to enforce.
func checkAnswerSlot(answered []string, questionID string, total int) error {
	if slices.Contains(answered, questionID) {
		return domain.ErrQuestionAnswered
	}
	if total > 0 && len(answered) >= total {
		return domain.ErrAllQuestionsAnswered
	}
	return nil
}

func (s *AnswerService) record(ownerID, userID, questionID, answer string, correct bool) domain.AnswerRecord {
	return domain.AnswerRecord{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		UserID:     userID,
		QuestionID: questionID,
		UserAnswer: strings.TrimSpace(answer),
		IsCorrect:  correct,
		AnsweredAt: s.now(),
	}
}

// AnswersMatch compares a candidate to the canonical answer. Surrounding space and
// letter case are ignored, and numeric answers compare by value ("4.0" == "4").
func AnswersMatch(canonical, candidate string) bool {
	canonical = strings.TrimSpace(canonical)
	candidate = strings.TrimSpace(candidate)
	if canonical == "" || candidate == "" {
		return false
	}
	if strings.EqualFold(canonical, candidate) {
		return true
	}
	want, err := strconv.ParseFloat(canonical, 64)
	if err != nil {
		return false
	}
	got, err := strconv.ParseFloat(candidate, 64)
	if err != nil {
		return false
	}
	return want == got
}
