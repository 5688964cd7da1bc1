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

	"studygroup-quiz-service/internal/app"
	"studygroup-quiz-service/internal/config"
	"studygroup-quiz-service/internal/domain"
	"studygroup-quiz-service/internal/infra/memory"
	pgstore "studygroup-quiz-service/internal/infra/postgres"
	redisrepo "studygroup-quiz-service/internal/infra/redis"
	transport "studygroup-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz attempt server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisrepo.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		bank = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.AttemptStore
	if pool != nil {
		store = pgstore.NewAttemptStore(pool)
	} else {
		store = memory.NewAttemptStore()
	}
	service := app.NewAttemptService(store, bank)

	handler := transport.NewHandler(service)
	countdown := transport.NewCountdownHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/attempts", countdown.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz attempt service on :%s", finalPort)
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

// sampleQuizzes seeds the memory-only wiring so the service is usable
// without Postgres; production deployments load quizzes from the database.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:                   "quiz-1",
			Title:                "Warm-up: arithmetic",
			Category:             "math",
			Difficulty:           "easy",
			Active:               true,
			TimeLimitSeconds:     300,
			PassingScorePercent:  50,
			MaxAttempts:          3,
			RevealCorrectAnswers: true,
			Questions: []domain.Question{
				{
					ID:            "q1",
					Text:          "What is 2 + 2?",
					Type:          domain.QuestionTypeSingleChoice,
					Options:       []string{"3", "4", "5"},
					CorrectOption: 1,
					Explanation:   "Two plus two is four.",
					Points:        1,
				},
				{
					ID:            "q2",
					Text:          "What is 3 x 3?",
					Type:          domain.QuestionTypeSingleChoice,
					Options:       []string{"6", "9", "12"},
					CorrectOption: 1,
					Points:        1,
				},
			},
		},
	}
}
