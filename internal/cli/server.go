package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/config"
	"math-maxxer-service/internal/infra/memory"
	"math-maxxer-service/internal/infra/postgres"
	redisinfra "math-maxxer-service/internal/infra/redis"
	"math-maxxer-service/internal/jobs"
	transport "math-maxxer-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type eventBus interface {
	app.Publisher
	app.Subscriber
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var (
		store  app.Store
		loader memory.QuestionLoader
	)
	if cfg.Postgres.URL != "" {
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
		store = postgres.NewStore(db)
		loader = postgres.NewQuestionLoader(pool)
	} else {
		log.Printf("no postgres configured, using in-memory store with sample data")
		mem := memory.NewStore()
		if err := seedStore(ctx, mem, time.Now().UTC()); err != nil {
			return err
		}
		if err := printDevTokens(cfg); err != nil {
			return err
		}
		store = mem
		loader = memory.NewStaticQuestionLoader(sampleQuestions())
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	window := config.TTLDuration(cfg.RateLimit.Window, time.Minute)
	maxAttempts := cfg.RateLimit.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 60
	}

	var (
		questions app.QuestionRepository
		limiter   app.RateLimiter
		bus       eventBus
	)
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
		limiter = redisinfra.NewRateLimiter(redisClient, maxAttempts, window)
		bus = redisinfra.NewEventBus(redisClient)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		limiter = memory.NewRateLimiter(maxAttempts, window)
		bus = memory.NewEventBus()
	}

	mmCfg := app.MatchmakingConfig{
		InitialWindow: cfg.Matchmaking.InitialWindow,
		WindowStep:    cfg.Matchmaking.WindowStep,
		WidenEvery:    config.TTLDuration(cfg.Matchmaking.WidenEvery, 0),
		MaxWindow:     cfg.Matchmaking.MaxWindow,
		MaxWait:       config.TTLDuration(cfg.Matchmaking.MaxWait, 0),
	}
	matchmaker := app.NewMatchmaker(store, bus, mmCfg)
	answers := app.NewAnswerService(store, questions, limiter)
	handler := transport.NewHandler(
		app.NewCompletionService(store, bus),
		answers,
		app.NewGameService(store),
		matchmaker,
	)

	sweeper, err := jobs.NewScheduler(matchmaker, config.TTLDuration(cfg.Matchmaking.SweepEvery, 5*time.Second))
	if err != nil {
		return err
	}
	sweeper.Start()
	defer func() {
		if err := sweeper.Shutdown(); err != nil {
			log.Printf("scheduler shutdown: %v", err)
		}
	}()

	auth := transport.NewAuthenticator(cfg.Auth.JWTSecret)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(handler, transport.NewWSHandler(bus, answers), auth),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting math maxxer on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
