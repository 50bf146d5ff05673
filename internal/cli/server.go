package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"campus-assessment-service/internal/app"
	"campus-assessment-service/internal/config"
	"campus-assessment-service/internal/domain"
	"campus-assessment-service/internal/infra/memory"
	pgstore "campus-assessment-service/internal/infra/postgres"
	redisinfra "campus-assessment-service/internal/infra/redis"
	"campus-assessment-service/internal/infra/sandbox"
	transport "campus-assessment-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "assessment").Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Store selection: Postgres when configured, in-memory sample data
	// otherwise (dev mode).
	type stores interface {
		app.EventStore
		app.RegistrationStore
		app.QuestionRepository
		app.SessionStore
		app.ContestStore
		app.ProblemStore
		app.SubmissionStore
		app.ParticipantDirectory
	}
	var store stores
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewStore(pool)
	} else {
		log.Warn().Msg("no postgres configured, using in-memory sample data")
		store = sampleStore()
	}

	var questions app.QuestionRepository = store
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		questionTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
		questions = redisinfra.NewQuestionCache(redisClient, store, questionTTL)
	}

	if cfg.Sandbox.URL == "" {
		log.Warn().Msg("no sandbox configured, code judging will fail every test case")
	}
	executor := sandbox.NewClient(
		cfg.Sandbox.URL,
		cfg.Sandbox.ClientID,
		cfg.Sandbox.ClientSecret,
		config.Duration(cfg.Sandbox.Timeout, 30*time.Second),
		log.With().Str("component", "sandbox").Logger(),
	)

	assessments := app.NewAssessmentService(store, store, questions, store)
	judge := app.NewJudgeService(store, store, store, store, executor, log.With().Str("component", "judge").Logger())
	leaderboards := app.NewLeaderboardService(store, store, store, store, store, store)
	registrations := app.NewRegistrationService(store, store)
	sweeper := app.NewSweeper(store, store, store, log.With().Str("component", "sweep").Logger())

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweeper.Start(sweepCtx, config.Duration(cfg.Sweep.Interval, 2*time.Minute))

	live := transport.NewLiveStandingsHandler(leaderboards,
		config.Duration(cfg.Standings.PushInterval, 3*time.Second),
		log.With().Str("component", "ws").Logger())
	handler := transport.NewHandler(assessments, judge, leaderboards, registrations, live,
		log.With().Str("component", "http").Logger())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting assessment service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleStore seeds a minimal dataset for running without a database.
func sampleStore() *memory.Store {
	store := memory.NewStore()
	now := time.Now()

	store.PutEvent(domain.Event{
		ID:         "event-1",
		Title:      "Sample aptitude round",
		StartTime:  now.Add(-time.Hour),
		EndTime:    now.Add(time.Hour),
		Duration:   30 * time.Minute,
		TotalMarks: 8,
	})
	store.PutQuestions("event-1", []domain.Question{
		{
			ID:            "q1",
			EventID:       "event-1",
			Text:          "What is 2 + 2?",
			Options:       []string{"3", "4", "5"},
			CorrectOption: 1,
			Marks:         5,
			Penalty:       1,
		},
		{
			ID:            "q2",
			EventID:       "event-1",
			Text:          "Which base does binary use?",
			Options:       []string{"2", "8", "10"},
			CorrectOption: 0,
			Marks:         3,
		},
	})
	store.PutContest(domain.Contest{
		ID:         "contest-1",
		Title:      "Sample coding round",
		StartTime:  now.Add(-time.Hour),
		EndTime:    now.Add(time.Hour),
		ProblemIDs: []string{"problem-1"},
	})
	store.PutProblem(domain.Problem{
		ID:          "problem-1",
		Title:       "Echo",
		Description: "Read one line and print it back.",
		Difficulty:  "easy",
		TestCases: []domain.TestCase{
			{Input: "hello", ExpectedOutput: "hello", Hidden: true},
			{Input: "world", ExpectedOutput: "world", Hidden: true},
		},
	})
	store.PutParticipant(domain.Participant{ID: "participant-1", Name: "Sample Participant", RollNumber: "CS-001"})
	_ = store.CreateRegistration(context.Background(), domain.Registration{
		ID:            "reg-1",
		EventID:       "event-1",
		ParticipantID: "participant-1",
		RegisteredAt:  now.Add(-2 * time.Hour),
		Status:        domain.RegistrationActive,
	})
	return store
}
