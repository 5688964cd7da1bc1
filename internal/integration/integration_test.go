package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"studygroup-quiz-service/internal/app"
	"studygroup-quiz-service/internal/domain"
	pgstore "studygroup-quiz-service/internal/infra/postgres"
	pgmigrations "studygroup-quiz-service/internal/infra/postgres/migrations"
	infraredis "studygroup-quiz-service/internal/infra/redis"
)

// quizJSON uses the keyed-options encoding on purpose: the loader must
// normalize it before the core ever sees it.
const quizJSON = `{
	"id": "quiz-1",
	"title": "Integration basics",
	"active": true,
	"timeLimitSeconds": 600,
	"passingScorePercent": 50,
	"maxAttempts": 2,
	"revealCorrectAnswers": false,
	"questions": [
		{"id": "q1", "text": "pick B", "options": {"A": "wrong", "B": "right"}, "correctOption": "B", "points": 2, "explanation": "secret"},
		{"id": "q2", "text": "pick A", "options": ["right", "wrong"], "correctOption": 0, "points": 2}
	]
}`

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	bank := infraredis.NewQuizRepository(redisClient, pgstore.NewQuizLoader(pool), 5*time.Minute)
	store := pgstore.NewAttemptStore(pool)
	service := app.NewAttemptService(store, bank)

	started, err := service.Start(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.AttemptNumber != 1 || len(started.Questions) != 2 {
		t.Fatalf("unexpected start result: %+v", started)
	}
	for _, q := range started.Questions {
		if len(q.Options) != 2 {
			t.Fatalf("normalization lost options: %+v", q)
		}
	}

	// A second start must hit the partial unique index.
	if _, err := service.Start(ctx, "quiz-1", "u1"); err != domain.ErrAttemptInProgress {
		t.Fatalf("expected ErrAttemptInProgress, got %v", err)
	}

	one := 1
	zero := 0
	result, err := service.Submit(ctx, started.AttemptID, []domain.ResponseInput{
		{QuestionID: "q1", SelectedOption: &one},  // "B" normalized to index 1, correct
		{QuestionID: "q2", SelectedOption: &zero}, // correct
	}, 30)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 100 || !result.Passed {
		t.Fatalf("expected full score, got %d passed=%v", result.Score, result.Passed)
	}

	// Retry is rejected, stored result untouched.
	if _, err := service.Submit(ctx, started.AttemptID, nil, 0); err != domain.ErrAttemptCompleted {
		t.Fatalf("expected ErrAttemptCompleted, got %v", err)
	}
	status, err := service.Get(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if status.Result == nil || status.Result.Score != 100 {
		t.Fatalf("stored result changed: %+v", status.Result)
	}
	// revealCorrectAnswers is false for this quiz.
	for _, pq := range status.Result.PerQuestion {
		if pq.CorrectOption != nil || pq.Explanation != "" {
			t.Fatalf("answer data leaked for %s", pq.QuestionID)
		}
	}

	// Attempt numbering continues, then the limit applies.
	second, err := service.Start(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.AttemptNumber != 2 {
		t.Fatalf("expected attempt 2, got %d", second.AttemptNumber)
	}
	if _, err := service.Submit(ctx, second.AttemptID, nil, 0); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if _, err := service.Start(ctx, "quiz-1", "u1"); err != domain.ErrAttemptLimitReached {
		t.Fatalf("expected ErrAttemptLimitReached, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, "quiz-1", quizJSON); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
