package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/config"
	"math-maxxer-service/internal/domain"
	"math-maxxer-service/internal/infra/postgres"
	transport "math-maxxer-service/internal/transport/http"
)

// NewSeedCmd loads the sample question bank, profiles and today's challenge.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed sample questions, players and today's challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg)
		},
	}
}

func runSeed(ctx context.Context, cfg config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := Migrate(ctx, db); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.NewQuestionLoader(pool).UpsertQuestions(ctx, sampleQuestions()); err != nil {
		return err
	}
	if err := seedStore(ctx, postgres.NewStore(db), time.Now().UTC()); err != nil {
		return err
	}
	return printDevTokens(cfg)
}

// seedStore inserts the sample players and today's challenge, skipping rows
// that already exist.
func seedStore(ctx context.Context, store app.Store, now time.Time) error {
	for _, p := range sampleProfiles(now) {
		if _, err := store.GetProfile(ctx, p.ID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := store.CreateProfile(ctx, p); err != nil {
			return fmt.Errorf("seed profile %s: %w", p.Username, err)
		}
	}
	challenge := dailyChallenge(now)
	if _, err := store.GetChallenge(ctx, challenge.ID); errors.Is(err, domain.ErrNotFound) {
		if err := store.CreateChallenge(ctx, challenge); err != nil {
			return fmt.Errorf("seed challenge: %w", err)
		}
	} else if err != nil {
		return err
	}
	log.Printf("seeded %d players and challenge %s", len(sampleProfiles(now)), challenge.ID)
	return nil
}

func printDevTokens(cfg config.Config) error {
	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret)
	for _, p := range sampleProfiles(time.Now()) {
		token, err := auth.Issue(p.ID, 24*time.Hour)
		if err != nil {
			return err
		}
		log.Printf("dev token for %s (%s): %s", p.Username, p.ID, token)
	}
	return nil
}

var (
	aliceID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("mathmaxxer/alice")).String()
	bobID   = uuid.NewSHA1(uuid.NameSpaceOID, []byte("mathmaxxer/bob")).String()
)

func sampleProfiles(now time.Time) []domain.Profile {
	return []domain.Profile{
		{ID: aliceID, Username: "alice", IQRating: 1000, PracticeRating: 1000, UpdatedAt: now},
		{ID: bobID, Username: "bob", IQRating: 1050, PracticeRating: 1000, UpdatedAt: now},
	}
}

// dailyChallenge derives a stable id from the calendar day so reseeding is idempotent.
func dailyChallenge(now time.Time) domain.DailyChallenge {
	day := now.UTC().Truncate(24 * time.Hour)
	return domain.DailyChallenge{
		ID:                   uuid.NewSHA1(uuid.NameSpaceOID, []byte("mathmaxxer/challenge/"+day.Format(time.DateOnly))).String(),
		ChallengeDate:        day,
		Difficulty:           domain.Intermediate,
		TimeControl:          "5+5",
		TargetScore:          4,
		RewardPracticeRating: 25,
		RewardIQRating:       10,
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q-beg-1", Prompt: "What is 7 + 5?", Answer: "12", Difficulty: domain.Beginner},
		{ID: "q-beg-2", Prompt: "What is 9 - 4?", Answer: "5", Difficulty: domain.Beginner},
		{ID: "q-ele-1", Prompt: "What is 6 x 7?", Answer: "42", Difficulty: domain.Elementary},
		{ID: "q-ele-2", Prompt: "What is 81 / 9?", Answer: "9", Difficulty: domain.Elementary},
		{ID: "q-int-1", Prompt: "What is 15% of 80?", Answer: "12", Difficulty: domain.Intermediate},
		{ID: "q-int-2", Prompt: "What is 3.5 x 4?", Answer: "14", Difficulty: domain.Intermediate},
		{ID: "q-adv-1", Prompt: "What is 17 x 23?", Answer: "391", Difficulty: domain.Advanced},
		{ID: "q-adv-2", Prompt: "What is the square root of 729?", Answer: "27", Difficulty: domain.Advanced},
		{ID: "q-exp-1", Prompt: "What is 2^12?", Answer: "4096", Difficulty: domain.Expert},
		{ID: "q-exp-2", Prompt: "What is 123 x 45?", Answer: "5535", Difficulty: domain.Expert},
		{ID: "q-mas-1", Prompt: "What is 987 x 654?", Answer: "645498", Difficulty: domain.Master},
		{ID: "q-mas-2", Prompt: "What is 7/8 as a decimal?", Answer: "0.875", Difficulty: domain.Master},
	}
}
