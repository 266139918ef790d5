package cli

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"telequiz/internal/app"
	"telequiz/internal/config"
	filestore "telequiz/internal/infra/file"
	"telequiz/internal/infra/memory"
	pgstore "telequiz/internal/infra/postgres"
	rediscache "telequiz/internal/infra/redis"
	"telequiz/internal/transport/telegram"
	"telequiz/internal/transport/ws"
)

const (
	defaultQuestionsFile = "data/questions.json"
	defaultStatsFile     = "data/stats.json"
)

// NewStartCmd builds the CLI subcommand that starts the bot and the
// health/websocket endpoint.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var bunDB *bun.DB
	var pgPool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		defer bunDB.Close()

		pgPool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pgPool.Close()
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

	questionRepo, statsRepo, err := buildRepositories(cfg, bunDB)
	if err != nil {
		return err
	}

	store, err := app.NewQuestionStore(ctx, questionRepo, logger)
	if err != nil {
		return err
	}
	pool := app.NewRotationPool(store, logger)

	var source app.StatsSource = app.NewRepositorySource(statsRepo)
	if pgPool != nil {
		source = pgstore.NewLeaderboardSource(pgPool)
	}

	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Minute)
	var cache app.LeaderboardCache = memory.NewLeaderboardCache(redisTTL)
	if redisClient != nil {
		cache = rediscache.NewLeaderboardCache(redisClient, redisTTL, logger)
	}
	board := app.NewLeaderboardView(source, cache, logger)

	var history app.HistoryRecorder
	if bunDB != nil {
		history = pgstore.NewHistoryRecorder(bunDB)
	}
	ledger := app.NewAnswerLedger(statsRepo, history, board, logger)

	cooldownInterval := config.TTLDuration(cfg.Quiz.CooldownInterval, 10*time.Second)
	cooldown := app.NewCommandCooldown(cooldownInterval, 0)

	bot, err := telegram.New(cfg.Telegram.Token, store, pool, ledger, board, cooldown, statsRepo, logger, telegram.Options{
		BindingTTL:    config.TTLDuration(cfg.Quiz.BindingTTL, time.Hour),
		SweepInterval: config.TTLDuration(cfg.Quiz.SweepInterval, 10*time.Minute),
	})
	if err != nil {
		return err
	}

	feedInterval := config.TTLDuration(cfg.Quiz.FeedInterval, 15*time.Second)
	feed := ws.NewLeaderboardFeed(board, feedInterval, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/leaderboard", feed.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections outlive any write deadline
	}

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("http endpoint listening", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildRepositories picks the storage backend: Postgres when configured,
// otherwise the legacy JSON files.
func buildRepositories(cfg config.Config, bunDB *bun.DB) (app.QuestionRepository, app.StatsRepository, error) {
	if bunDB != nil {
		return pgstore.NewQuestionRepository(bunDB), pgstore.NewStatsRepository(bunDB), nil
	}

	questionsFile := cfg.Data.QuestionsFile
	if questionsFile == "" {
		questionsFile = defaultQuestionsFile
	}
	statsFile := cfg.Data.StatsFile
	if statsFile == "" {
		statsFile = defaultStatsFile
	}

	questionRepo, err := filestore.NewQuestionRepository(questionsFile)
	if err != nil {
		return nil, nil, err
	}
	statsRepo, err := filestore.NewStatsRepository(statsFile)
	if err != nil {
		return nil, nil, err
	}
	return questionRepo, statsRepo, nil
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("DEBUG") == "true" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
