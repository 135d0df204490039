package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 2025100101_create_core_tables.sql
var createCoreTablesSQL string

// Migrations holds every schema change, applied in file name order.
var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createCoreTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS
				answer_verification_attempts,
				user_challenge_completions,
				matchmaking_queue,
				match_answers,
				game_answers,
				matches,
				game_sessions,
				daily_challenges,
				questions,
				profiles`)
			return err
		},
	)
}
