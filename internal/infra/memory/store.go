package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/domain"
)

// Store is an in-memory implementation of app.Store for development and tests.
// Transactions run one at a time against a copy of the state that replaces the
// live state only when the callback succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
}

var _ app.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(ctx, draft); err != nil {
		return err
	}
	s.state = draft
	return nil
}

// VerificationAttempts returns how many verifier attempts are retained for userID.
func (s *Store) VerificationAttempts(userID string) int {
	s.mu.Lock()
	log := s.state.attempts
	s.mu.Unlock()
	return log.count(userID)
}

func (s *Store) CreateSession(ctx context.Context, session domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateSession(ctx, session)
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetSession(ctx, sessionID)
}

func (s *Store) CompleteSession(ctx context.Context, sessionID string, score int, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CompleteSession(ctx, sessionID, score, completedAt)
}

func (s *Store) CreateMatch(ctx context.Context, match domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateMatch(ctx, match)
}

func (s *Store) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetMatch(ctx, matchID)
}

func (s *Store) CompleteMatch(ctx context.Context, match domain.Match) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CompleteMatch(ctx, match)
}

func (s *Store) AppendGameAnswer(ctx context.Context, answer domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AppendGameAnswer(ctx, answer)
}

func (s *Store) AppendMatchAnswer(ctx context.Context, answer domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AppendMatchAnswer(ctx, answer)
}

func (s *Store) AnsweredGameQuestions(ctx context.Context, sessionID, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AnsweredGameQuestions(ctx, sessionID, userID)
}

func (s *Store) AnsweredMatchQuestions(ctx context.Context, matchID, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AnsweredMatchQuestions(ctx, matchID, userID)
}

func (s *Store) CountCorrectGameAnswers(ctx context.Context, sessionID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountCorrectGameAnswers(ctx, sessionID, userID)
}

func (s *Store) CountCorrectMatchAnswers(ctx context.Context, matchID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountCorrectMatchAnswers(ctx, matchID)
}

func (s *Store) RecordVerificationAttempt(ctx context.Context, userID, questionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RecordVerificationAttempt(ctx, userID, questionID, at)
}

func (s *Store) CreateProfile(ctx context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateProfile(ctx, profile)
}

func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetProfile(ctx, userID)
}

func (s *Store) UpdateProfile(ctx context.Context, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateProfile(ctx, profile)
}

func (s *Store) CreateChallenge(ctx context.Context, challenge domain.DailyChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateChallenge(ctx, challenge)
}

func (s *Store) GetChallenge(ctx context.Context, challengeID string) (domain.DailyChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetChallenge(ctx, challengeID)
}

func (s *Store) HasChallengeCompletion(ctx context.Context, userID, challengeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HasChallengeCompletion(ctx, userID, challengeID)
}

func (s *Store) InsertChallengeCompletion(ctx context.Context, completion domain.ChallengeCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InsertChallengeCompletion(ctx, completion)
}

func (s *Store) Enqueue(ctx context.Context, entry domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Enqueue(ctx, entry)
}

func (s *Store) GetQueueEntry(ctx context.Context, userID string) (domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetQueueEntry(ctx, userID)
}

func (s *Store) DeleteQueueEntry(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteQueueEntry(ctx, userID)
}

func (s *Store) QueueCandidates(ctx context.Context, difficulty domain.Difficulty, timeControl, excludeUserID string, minRating, maxRating int) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.QueueCandidates(ctx, difficulty, timeControl, excludeUserID, minRating, maxRating)
}

func (s *Store) ListQueue(ctx context.Context) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListQueue(ctx)
}

func (s *Store) CountQueue(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CountQueue(ctx)
}

// LockQueueBucket is a no-op: the store already runs one transaction at a time.
func (s *Store) LockQueueBucket(context.Context, domain.Difficulty, string) error {
	return nil
}

// attemptRetention bounds how long verifier attempts are kept.
const attemptRetention = time.Hour

type attempt struct {
	userID     string
	questionID string
	at         time.Time
}

// attemptLog is shared by every copy of the state and is never rolled back.
// Entries older than attemptRetention are dropped on append.
type attemptLog struct {
	mu      sync.Mutex
	entries []attempt
}

func (l *attemptLog) add(a attempt) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := a.at.Add(-attemptRetention)
	keep := 0
	for keep < len(l.entries) && l.entries[keep].at.Before(cutoff) {
		keep++
	}
	l.entries = append(l.entries[keep:], a)
}

func (l *attemptLog) count(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, a := range l.entries {
		if a.userID == userID {
			n++
		}
	}
	return n
}

// state is the unlocked data set. It doubles as the app.Tx handed to transactions.
type state struct {
	profiles     map[string]domain.Profile
	sessions     map[string]domain.GameSession
	matches      map[string]domain.Match
	challenges   map[string]domain.DailyChallenge
	completions  map[string]domain.ChallengeCompletion
	gameAnswers  []domain.AnswerRecord
	matchAnswers []domain.AnswerRecord
	queue        []domain.QueueEntry
	attempts     *attemptLog
}

func newState() *state {
	return &state{
		profiles:    make(map[string]domain.Profile),
		sessions:    make(map[string]domain.GameSession),
		matches:     make(map[string]domain.Match),
		challenges:  make(map[string]domain.DailyChallenge),
		completions: make(map[string]domain.ChallengeCompletion),
		attempts:    &attemptLog{},
	}
}

func (st *state) clone() *state {
	return &state{
		profiles:     maps.Clone(st.profiles),
		sessions:     maps.Clone(st.sessions),
		matches:      maps.Clone(st.matches),
		challenges:   maps.Clone(st.challenges),
		completions:  maps.Clone(st.completions),
		gameAnswers:  slices.Clone(st.gameAnswers),
		matchAnswers: slices.Clone(st.matchAnswers),
		queue:        slices.Clone(st.queue),
		attempts:     st.attempts,
	}
}

func completionKey(userID, challengeID string) string {
	return userID + "|" + challengeID
}

func (st *state) CreateSession(_ context.Context, session domain.GameSession) error {
	st.sessions[session.ID] = session
	return nil
}

func (st *state) GetSession(_ context.Context, sessionID string) (domain.GameSession, error) {
	session, ok := st.sessions[sessionID]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (st *state) CompleteSession(_ context.Context, sessionID string, score int, completedAt time.Time) (bool, error) {
	session, ok := st.sessions[sessionID]
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	if session.IsCompleted {
		return false, nil
	}
	session.IsCompleted = true
	session.Score = score
	session.CompletedAt = &completedAt
	st.sessions[sessionID] = session
	return true, nil
}

func (st *state) CreateMatch(_ context.Context, match domain.Match) error {
	st.matches[match.ID] = match
	return nil
}

func (st *state) GetMatch(_ context.Context, matchID string) (domain.Match, error) {
	match, ok := st.matches[matchID]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return match, nil
}

func (st *state) CompleteMatch(_ context.Context, match domain.Match) (bool, error) {
	current, ok := st.matches[match.ID]
	if !ok {
		return false, domain.ErrMatchNotFound
	}
	if current.Status == domain.MatchCompleted {
		return false, nil
	}
	st.matches[match.ID] = match
	return true, nil
}

func (st *state) AppendGameAnswer(_ context.Context, answer domain.AnswerRecord) error {
	if answeredAlready(st.gameAnswers, answer) {
		return domain.ErrQuestionAnswered
	}
	st.gameAnswers = append(st.gameAnswers, answer)
	return nil
}

func (st *state) AppendMatchAnswer(_ context.Context, answer domain.AnswerRecord) error {
	if answeredAlready(st.matchAnswers, answer) {
		return domain.ErrQuestionAnswered
	}
	st.matchAnswers = append(st.matchAnswers, answer)
	return nil
}

func answeredAlready(log []domain.AnswerRecord, answer domain.AnswerRecord) bool {
	for _, existing := range log {
		if existing.OwnerID == answer.OwnerID && existing.UserID == answer.UserID && existing.QuestionID == answer.QuestionID {
			return true
		}
	}
	return false
}

func answeredQuestions(log []domain.AnswerRecord, ownerID, userID string) []string {
	var ids []string
	for _, answer := range log {
		if answer.OwnerID == ownerID && answer.UserID == userID {
			ids = append(ids, answer.QuestionID)
		}
	}
	return ids
}

func (st *state) AnsweredGameQuestions(_ context.Context, sessionID, userID string) ([]string, error) {
	return answeredQuestions(st.gameAnswers, sessionID, userID), nil
}

func (st *state) AnsweredMatchQuestions(_ context.Context, matchID, userID string) ([]string, error) {
	return answeredQuestions(st.matchAnswers, matchID, userID), nil
}

func (st *state) CountCorrectGameAnswers(_ context.Context, sessionID, userID string) (int, error) {
	n := 0
	for _, answer := range st.gameAnswers {
		if answer.OwnerID == sessionID && answer.UserID == userID && answer.IsCorrect {
			n++
		}
	}
	return n, nil
}

func (st *state) CountCorrectMatchAnswers(_ context.Context, matchID string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, answer := range st.matchAnswers {
		if answer.OwnerID == matchID && answer.IsCorrect {
			counts[answer.UserID]++
		}
	}
	return counts, nil
}

func (st *state) RecordVerificationAttempt(_ context.Context, userID, questionID string, at time.Time) error {
	st.attempts.add(attempt{userID: userID, questionID: questionID, at: at})
	return nil
}

func (st *state) CreateProfile(_ context.Context, profile domain.Profile) error {
	st.profiles[profile.ID] = profile
	return nil
}

func (st *state) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	profile, ok := st.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (st *state) UpdateProfile(_ context.Context, profile domain.Profile) error {
	if _, ok := st.profiles[profile.ID]; !ok {
		return domain.ErrProfileNotFound
	}
	st.profiles[profile.ID] = profile
	return nil
}

func (st *state) CreateChallenge(_ context.Context, challenge domain.DailyChallenge) error {
	st.challenges[challenge.ID] = challenge
	return nil
}

func (st *state) GetChallenge(_ context.Context, challengeID string) (domain.DailyChallenge, error) {
	challenge, ok := st.challenges[challengeID]
	if !ok {
		return domain.DailyChallenge{}, domain.ErrChallengeNotFound
	}
	return challenge, nil
}

func (st *state) HasChallengeCompletion(_ context.Context, userID, challengeID string) (bool, error) {
	_, ok := st.completions[completionKey(userID, challengeID)]
	return ok, nil
}

func (st *state) InsertChallengeCompletion(_ context.Context, completion domain.ChallengeCompletion) error {
	key := completionKey(completion.UserID, completion.ChallengeID)
	if _, ok := st.completions[key]; ok {
		return domain.ErrChallengeAlreadyCompleted
	}
	st.completions[key] = completion
	return nil
}

func (st *state) Enqueue(_ context.Context, entry domain.QueueEntry) error {
	for _, queued := range st.queue {
		if queued.UserID == entry.UserID {
			return domain.ErrAlreadyQueued
		}
	}
	st.queue = append(st.queue, entry)
	return nil
}

func (st *state) GetQueueEntry(_ context.Context, userID string) (domain.QueueEntry, error) {
	for _, entry := range st.queue {
		if entry.UserID == userID {
			return entry, nil
		}
	}
	return domain.QueueEntry{}, domain.ErrQueueEntryMissing
}

func (st *state) DeleteQueueEntry(_ context.Context, userID string) (bool, error) {
	for i, entry := range st.queue {
		if entry.UserID == userID {
			st.queue = slices.Delete(st.queue, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func (st *state) QueueCandidates(ctx context.Context, difficulty domain.Difficulty, timeControl, excludeUserID string, minRating, maxRating int) ([]domain.QueueEntry, error) {
	ordered, _ := st.ListQueue(ctx)
	var out []domain.QueueEntry
	for _, entry := range ordered {
		if entry.UserID == excludeUserID || entry.Difficulty != difficulty || entry.TimeControl != timeControl {
			continue
		}
		if entry.IQRating < minRating || entry.IQRating > maxRating {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (st *state) ListQueue(context.Context) ([]domain.QueueEntry, error) {
	ordered := slices.Clone(st.queue)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered, nil
}

func (st *state) CountQueue(context.Context) (int, error) {
	return len(st.queue), nil
}

func (st *state) LockQueueBucket(context.Context, domain.Difficulty, string) error {
	return nil
}
