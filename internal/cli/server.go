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

	"skillsprint-arena/internal/app"
	"skillsprint-arena/internal/common/ident"
	"skillsprint-arena/internal/config"
	"skillsprint-arena/internal/domain"
	"skillsprint-arena/internal/infra/memory"
	pgloader "skillsprint-arena/internal/infra/postgres"
	arenaredis "skillsprint-arena/internal/infra/redis"
	transport "skillsprint-arena/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the arena server",
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

	if cfg.Postgres.URL != "" {
		if err := applyMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "4000"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	bankID := cfg.Match.Bank
	if bankID == "" {
		bankID = "web-basics"
	}
	bankTTL := config.TTLDuration(cfg.Match.BankTTL, 10*time.Minute)

	var questions app.QuestionSource
	switch {
	case pool != nil && redisClient != nil:
		questions = arenaredis.NewQuestionBank(redisClient, pgloader.NewBankLoader(pool), bankID, bankTTL)
	case pool != nil:
		questions = memory.NewQuestionBank(pgloader.NewBankLoader(pool), bankID, bankTTL)
	default:
		loader := memory.NewStaticBankLoader(map[string]domain.QuestionBank{bankID: builtinBank(bankID)})
		questions = memory.NewQuestionBank(loader, bankID, bankTTL)
	}

	var registry app.MatchRegistry
	var board app.LeaderboardStore
	if redisClient != nil {
		registry = arenaredis.NewMatchRegistry(redisClient, redisTTL)
		board = arenaredis.NewLeaderboard(redisClient)
	} else {
		registry = memory.NewMatchRegistry()
		board = memory.NewLeaderboard()
	}

	ids := ident.New()
	arena := app.NewArena(registry, questions, board, ids, cfg.Match.Questions)
	wsHandler := transport.NewWSHandler(arena, ids)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting arena on :%s", finalPort)
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

// builtinBank is the bundled micro-course bank, used when Postgres is not
// configured.
func builtinBank(id string) domain.QuestionBank {
	return domain.QuestionBank{
		ID: id,
		Questions: []domain.Question{
			{
				ID:      1,
				Prompt:  "What is HTML primarily used for?",
				Options: []string{"Styling", "Structure of web pages", "Server-side logic", "Database"},
				Correct: 1,
			},
			{
				ID:      2,
				Prompt:  "Which language is primarily used for styling web pages?",
				Options: []string{"JavaScript", "C++", "CSS", "Python"},
				Correct: 2,
			},
			{
				ID:      3,
				Prompt:  "What does JSON stand for?",
				Options: []string{"Java Simple Object Notation", "JavaScript Object Notation", "Just Simple Object Name", "Joined Standard Object Notation"},
				Correct: 1,
			},
			{
				ID:      4,
				Prompt:  "Which one is not a JavaScript framework?",
				Options: []string{"React", "Angular", "Laravel", "Vue"},
				Correct: 2,
			},
			{
				ID:      5,
				Prompt:  "What is REST used for?",
				Options: []string{"Styling", "APIs/HTTP architecture", "Database storage", "Testing frameworks"},
				Correct: 1,
			},
			{
				ID:      6,
				Prompt:  "Which HTTP method is idempotent?",
				Options: []string{"POST", "PATCH", "GET", "CONNECT"},
				Correct: 2,
			},
		},
	}
}
