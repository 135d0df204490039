package domain

import (
	"strconv"
	"strings"
	"time"
)

// Difficulty is one of the six ordered question tiers.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Elementary   Difficulty = "elementary"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
	Master       Difficulty = "master"
)

// Difficulties lists every tier from easiest to hardest.
var Difficulties = []Difficulty{Beginner, Elementary, Intermediate, Advanced, Expert, Master}

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

// TimeControls are the supported "<minutes>+<questions>" formats.
var TimeControls = []string{"3+2", "5+5", "10+10", "15+15", "30+30"}

// ValidTimeControl reports whether tc is one of TimeControls.
func ValidTimeControl(tc string) bool {
	for _, known := range TimeControls {
		if tc == known {
			return true
		}
	}
	return false
}

// QuestionsForTimeControl returns the question count encoded in a time control ("5+5" -> 5).
func QuestionsForTimeControl(tc string) (int, bool) {
	_, questions, ok := strings.Cut(tc, "+")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(questions)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Profile holds the per-user counters and ratings the game mutates.
type Profile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	IQRating       int       `json:"iq_rating"`
	PracticeRating int       `json:"practice_rating"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	TotalGames     int       `json:"total_games"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Question is a single arithmetic prompt with its canonical answer.
type Question struct {
	ID         string     `json:"id"`
	Prompt     string     `json:"question"`
	Answer     string     `json:"-"`
	Difficulty Difficulty `json:"difficulty"`
}

// GameSession is a solo run (practice or daily challenge).
type GameSession struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Difficulty     Difficulty `json:"difficulty"`
	TimeControl    string     `json:"time_control"`
	TotalQuestions int        `json:"total_questions"`
	Score          int        `json:"score"`
	IsCompleted    bool       `json:"is_completed"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ChallengeID    string     `json:"challenge_id,omitempty"`
}

// MatchStatus tracks a head-to-head match through its lifecycle.
type MatchStatus string

const (
	MatchWaiting    MatchStatus = "waiting"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

// Match is a competitive game between two players.
type Match struct {
	ID           string      `json:"id"`
	Player1ID    string      `json:"player1_id"`
	Player2ID    string      `json:"player2_id,omitempty"`
	Difficulty   Difficulty  `json:"difficulty"`
	TimeControl  string      `json:"time_control"`
	Player1Score int         `json:"player1_score"`
	Player2Score int         `json:"player2_score"`
	Status       MatchStatus `json:"status"`
	WinnerID     string      `json:"winner_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// HasPlayer reports whether userID is one of the two participants.
func (m Match) HasPlayer(userID string) bool {
	return userID != "" && (m.Player1ID == userID || m.Player2ID == userID)
}

// AnswerRecord is an append-only verdict for one question attempt.
// OwnerID is the game session id or the match id depending on the log it lives in.
type AnswerRecord struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	UserID     string    `json:"user_id"`
	QuestionID string    `json:"question_id"`
	UserAnswer string    `json:"user_answer"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

// QueueEntry is a player waiting for an opponent.
type QueueEntry struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Difficulty  Difficulty `json:"difficulty"`
	TimeControl string     `json:"time_control"`
	IQRating    int        `json:"iq_rating"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DailyChallenge is the challenge definition for one calendar day.
type DailyChallenge struct {
	ID                   string     `json:"id"`
	ChallengeDate        time.Time  `json:"challenge_date"`
	Difficulty           Difficulty `json:"difficulty"`
	TimeControl          string     `json:"time_control"`
	TargetScore          int        `json:"target_score"`
	RewardPracticeRating int        `json:"reward_practice_rating"`
	RewardIQRating       int        `json:"reward_iq_rating"`
}

// ChallengeCompletion records that a user claimed a challenge reward.
type ChallengeCompletion struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ChallengeID   string    `json:"challenge_id"`
	ScoreAchieved int       `json:"score_achieved"`
	CompletedAt   time.Time `json:"completed_at"`
}

// SoloResult is returned by solo game completion.
type SoloResult struct {
	Score             int `json:"score"`
	PointsEarned      int `json:"points_earned"`
	NewPracticeRating int `json:"new_practice_rating"`
	TotalGames        int `json:"total_games"`
}

// MatchResult is returned by match completion. WinnerID is nil on a draw.
type MatchResult struct {
	WinnerID            *string `json:"winnerId"`
	Player1RatingChange int     `json:"player1RatingChange"`
	Player2RatingChange int     `json:"player2RatingChange"`
	Player1Score        int     `json:"player1Score"`
	Player2Score        int     `json:"player2Score"`
}

// ChallengeResult describes what a daily challenge completion granted.
type ChallengeResult struct {
	ChallengeID          string `json:"challenge_id"`
	Score                int    `json:"score"`
	TargetScore          int    `json:"target_score"`
	TargetMet            bool   `json:"target_met"`
	RewardPracticeRating int    `json:"reward_practice_rating"`
	RewardIQRating       int    `json:"reward_iq_rating"`
	NewPracticeRating    int    `json:"new_practice_rating"`
	NewIQRating          int    `json:"new_iq_rating"`
}

// Winner returns the winner's id, or "" on a draw.
func (r MatchResult) Winner() string {
	if r.WinnerID == nil {
		return ""
	}
	return *r.WinnerID
}

// QueueStatus summarizes the matchmaking queue from one player's view.
type QueueStatus struct {
	InQueue    bool `json:"in_queue"`
	QueueCount int  `json:"queue_count"`
}

// Event types delivered over the notification channel.
const (
	EventQueueChanged   = "queue.changed"
	EventMatchFound     = "match.found"
	EventMatchCompleted = "match.completed"
)

// Event is a state change addressed to a single user.
type Event struct {
	Type    string    `json:"type"`
	UserID  string    `json:"userId"`
	MatchID string    `json:"matchId,omitempty"`
	At      time.Time `json:"at"`
}
