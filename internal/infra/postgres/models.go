package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"math-maxxer-service/internal/domain"
)

type profileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID             string    `bun:"id,pk"`
	Username       string    `bun:"username"`
	IQRating       int       `bun:"iq_rating,notnull"`
	PracticeRating int       `bun:"practice_rating,notnull"`
	Wins           int       `bun:"wins,notnull"`
	Losses         int       `bun:"losses,notnull"`
	TotalGames     int       `bun:"total_games,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newProfileRow(p domain.Profile) *profileRow {
	return &profileRow{
		ID:             p.ID,
		Username:       p.Username,
		IQRating:       p.IQRating,
		PracticeRating: p.PracticeRating,
		Wins:           p.Wins,
		Losses:         p.Losses,
		TotalGames:     p.TotalGames,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (r profileRow) toDomain() domain.Profile {
	return domain.Profile{
		ID:             r.ID,
		Username:       r.Username,
		IQRating:       r.IQRating,
		PracticeRating: r.PracticeRating,
		Wins:           r.Wins,
		Losses:         r.Losses,
		TotalGames:     r.TotalGames,
		UpdatedAt:      r.UpdatedAt,
	}
}

type sessionRow struct {
	bun.BaseModel `bun:"table:game_sessions,alias:gs"`

	ID             string     `bun:"id,pk"`
	UserID         string     `bun:"user_id,notnull"`
	Difficulty     string     `bun:"difficulty,notnull"`
	TimeControl    string     `bun:"time_control,notnull"`
	TotalQuestions int        `bun:"total_questions,notnull"`
	Score          int        `bun:"score,notnull"`
	IsCompleted    bool       `bun:"is_completed,notnull"`
	StartedAt      time.Time  `bun:"started_at,nullzero,notnull,default:current_timestamp"`
	CompletedAt    *time.Time `bun:"completed_at"`
	ChallengeID    string     `bun:"challenge_id,nullzero"`
}

func newSessionRow(s domain.GameSession) *sessionRow {
	return &sessionRow{
		ID:             s.ID,
		UserID:         s.UserID,
		Difficulty:     string(s.Difficulty),
		TimeControl:    s.TimeControl,
		TotalQuestions: s.TotalQuestions,
		Score:          s.Score,
		IsCompleted:    s.IsCompleted,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		ChallengeID:    s.ChallengeID,
	}
}

func (r sessionRow) toDomain() domain.GameSession {
	return domain.GameSession{
		ID:             r.ID,
		UserID:         r.UserID,
		Difficulty:     domain.Difficulty(r.Difficulty),
		TimeControl:    r.TimeControl,
		TotalQuestions: r.TotalQuestions,
		Score:          r.Score,
		IsCompleted:    r.IsCompleted,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		ChallengeID:    r.ChallengeID,
	}
}

type matchRow struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID           string     `bun:"id,pk"`
	Player1ID    string     `bun:"player1_id,notnull"`
	Player2ID    string     `bun:"player2_id,nullzero"`
	Difficulty   string     `bun:"difficulty,notnull"`
	TimeControl  string     `bun:"time_control,notnull"`
	Player1Score int        `bun:"player1_score,notnull"`
	Player2Score int        `bun:"player2_score,notnull"`
	Status       string     `bun:"status,notnull"`
	WinnerID     string     `bun:"winner_id,nullzero"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	CompletedAt  *time.Time `bun:"completed_at"`
}

func newMatchRow(m domain.Match) *matchRow {
	return &matchRow{
		ID:           m.ID,
		Player1ID:    m.Player1ID,
		Player2ID:    m.Player2ID,
		Difficulty:   string(m.Difficulty),
		TimeControl:  m.TimeControl,
		Player1Score: m.Player1Score,
		Player2Score: m.Player2Score,
		Status:       string(m.Status),
		WinnerID:     m.WinnerID,
		CreatedAt:    m.CreatedAt,
		CompletedAt:  m.CompletedAt,
	}
}

func (r matchRow) toDomain() domain.Match {
	return domain.Match{
		ID:           r.ID,
		Player1ID:    r.Player1ID,
		Player2ID:    r.Player2ID,
		Difficulty:   domain.Difficulty(r.Difficulty),
		TimeControl:  r.TimeControl,
		Player1Score: r.Player1Score,
		Player2Score: r.Player2Score,
		Status:       domain.MatchStatus(r.Status),
		WinnerID:     r.WinnerID,
		CreatedAt:    r.CreatedAt,
		CompletedAt:  r.CompletedAt,
	}
}

type gameAnswerRow struct {
	bun.BaseModel `bun:"table:game_answers,alias:ga"`

	ID            string    `bun:"id,pk"`
	GameSessionID string    `bun:"game_session_id,notnull"`
	UserID        string    `bun:"user_id,notnull"`
	QuestionID    string    `bun:"question_id,notnull"`
	UserAnswer    string    `bun:"user_answer"`
	IsCorrect     bool      `bun:"is_correct,notnull"`
	AnsweredAt    time.Time `bun:"answered_at,nullzero,notnull,default:current_timestamp"`
}

type matchAnswerRow struct {
	bun.BaseModel `bun:"table:match_answers,alias:ma"`

	ID         string    `bun:"id,pk"`
	MatchID    string    `bun:"match_id,notnull"`
	UserID     string    `bun:"user_id,notnull"`
	QuestionID string    `bun:"question_id,notnull"`
	UserAnswer string    `bun:"user_answer"`
	IsCorrect  bool      `bun:"is_correct,notnull"`
	AnsweredAt time.Time `bun:"answered_at,nullzero,notnull,default:current_timestamp"`
}

type verificationAttemptRow struct {
	bun.BaseModel `bun:"table:answer_verification_attempts,alias:ava"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      string    `bun:"user_id,notnull"`
	QuestionID  string    `bun:"question_id,notnull"`
	AttemptedAt time.Time `bun:"attempted_at,notnull"`
}

type challengeRow struct {
	bun.BaseModel `bun:"table:daily_challenges,alias:dc"`

	ID                   string    `bun:"id,pk"`
	ChallengeDate        time.Time `bun:"challenge_date,notnull"`
	Difficulty           string    `bun:"difficulty,notnull"`
	TimeControl          string    `bun:"time_control,notnull"`
	TargetScore          int       `bun:"target_score,notnull"`
	RewardPracticeRating int       `bun:"reward_practice_rating,notnull"`
	RewardIQRating       int       `bun:"reward_iq_rating,notnull"`
}

func newChallengeRow(c domain.DailyChallenge) *challengeRow {
	return &challengeRow{
		ID:                   c.ID,
		ChallengeDate:        c.ChallengeDate,
		Difficulty:           string(c.Difficulty),
		TimeControl:          c.TimeControl,
		TargetScore:          c.TargetScore,
		RewardPracticeRating: c.RewardPracticeRating,
		RewardIQRating:       c.RewardIQRating,
	}
}

func (r challengeRow) toDomain() domain.DailyChallenge {
	return domain.DailyChallenge{
		ID:                   r.ID,
		ChallengeDate:        r.ChallengeDate,
		Difficulty:           domain.Difficulty(r.Difficulty),
		TimeControl:          r.TimeControl,
		TargetScore:          r.TargetScore,
		RewardPracticeRating: r.RewardPracticeRating,
		RewardIQRating:       r.RewardIQRating,
	}
}

type challengeCompletionRow struct {
	bun.BaseModel `bun:"table:user_challenge_completions,alias:ucc"`

	ID            string    `bun:"id,pk"`
	UserID        string    `bun:"user_id,notnull"`
	ChallengeID   string    `bun:"challenge_id,notnull"`
	ScoreAchieved int       `bun:"score_achieved,notnull"`
	CompletedAt   time.Time `bun:"completed_at,notnull"`
}

type queueRow struct {
	bun.BaseModel `bun:"table:matchmaking_queue,alias:mq"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id,notnull,unique"`
	Difficulty  string    `bun:"difficulty,notnull"`
	TimeControl string    `bun:"time_control,notnull"`
	IQRating    int       `bun:"iq_rating,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newQueueRow(e domain.QueueEntry) *queueRow {
	return &queueRow{
		ID:          e.ID,
		UserID:      e.UserID,
		Difficulty:  string(e.Difficulty),
		TimeControl: e.TimeControl,
		IQRating:    e.IQRating,
		CreatedAt:   e.CreatedAt,
	}
}

func (r queueRow) toDomain() domain.QueueEntry {
	return domain.QueueEntry{
		ID:          r.ID,
		UserID:      r.UserID,
		Difficulty:  domain.Difficulty(r.Difficulty),
		TimeControl: r.TimeControl,
		IQRating:    r.IQRating,
		CreatedAt:   r.CreatedAt,
	}
}
