package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"studygroup-quiz-service/internal/domain"
)

const pgUniqueViolation = "23505"

// AttemptStore is the relational implementation of app.AttemptStore.
//
// Atomicity comes from two constraints rather than application locks: a
// partial unique index on (quiz_id, user_id) WHERE state='in_progress'
// guarantees at most one active attempt per owner, and a unique
// (quiz_id, user_id, attempt_number) keeps numbering contiguous under
// races. Two concurrent starts therefore resolve to one insert and one
// unique violation, which is surfaced as ErrAttemptInProgress.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt, maxAttempts int) (domain.Attempt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE quiz_id=$1 AND user_id=$2`,
		attempt.QuizID, attempt.UserID,
	).Scan(&count)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("count attempts: %w", err)
	}
	if maxAttempts > 0 && count >= maxAttempts {
		return domain.Attempt{}, domain.ErrAttemptLimitReached
	}
	attempt.AttemptNumber = count + 1

	questions, err := json.Marshal(attempt.Questions)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO attempts
		   (id, quiz_id, user_id, attempt_number, state, started_at,
		    time_limit_seconds, passing_score_percent, reveal_answers, questions)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		attempt.ID, attempt.QuizID, attempt.UserID, attempt.AttemptNumber,
		string(attempt.State), attempt.StartedAt,
		attempt.TimeLimitSeconds, attempt.PassingScorePercent, attempt.RevealAnswers,
		questions,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.Attempt{}, domain.ErrAttemptInProgress
		}
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Attempt{}, fmt.Errorf("commit: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var (
		attempt   domain.Attempt
		state     string
		questions []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, quiz_id, user_id, attempt_number, state, started_at, completed_at,
		        time_limit_seconds, passing_score_percent, reveal_answers,
		        score, passed, time_spent_seconds, questions
		   FROM attempts WHERE id=$1`,
		attemptID,
	).Scan(
		&attempt.ID, &attempt.QuizID, &attempt.UserID, &attempt.AttemptNumber,
		&state, &attempt.StartedAt, &attempt.CompletedAt,
		&attempt.TimeLimitSeconds, &attempt.PassingScorePercent, &attempt.RevealAnswers,
		&attempt.Score, &attempt.Passed, &attempt.TimeSpentSeconds, &questions,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	attempt.State = domain.AttemptState(state)
	if err := json.Unmarshal(questions, &attempt.Questions); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	if attempt.State.Terminal() {
		responses, err := s.loadResponses(ctx, attemptID, attempt.Questions)
		if err != nil {
			return domain.Attempt{}, err
		}
		attempt.Responses = responses
	}
	return attempt, nil
}

func (s *AttemptStore) Complete(ctx context.Context, attemptID string, completion domain.Completion) (domain.Attempt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Compare-and-set: only the caller that flips in_progress wins; any
	// concurrent or retried completion sees zero rows.
	tag, err := tx.Exec(ctx,
		`UPDATE attempts
		    SET state=$2, completed_at=$3, score=$4, passed=$5, time_spent_seconds=$6
		  WHERE id=$1 AND state=$7`,
		attemptID, string(completion.State), completion.CompletedAt,
		completion.Score, completion.Passed, completion.TimeSpentSeconds,
		string(domain.AttemptInProgress),
	)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("complete attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM attempts WHERE id=$1)`, attemptID).Scan(&exists); err != nil {
			return domain.Attempt{}, fmt.Errorf("check attempt: %w", err)
		}
		if !exists {
			return domain.Attempt{}, domain.ErrAttemptNotFound
		}
		return domain.Attempt{}, domain.ErrAttemptCompleted
	}

	// Response rows are written once, in the same transaction as the state
	// flip, so readers never observe a half-graded attempt.
	batch := &pgx.Batch{}
	for _, r := range completion.Responses {
		batch.Queue(
			`INSERT INTO responses (attempt_id, question_id, selected_option, is_correct)
			 VALUES ($1,$2,$3,$4)`,
			attemptID, r.QuestionID, r.SelectedOption, r.IsCorrect,
		)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for range completion.Responses {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return domain.Attempt{}, fmt.Errorf("insert responses: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return domain.Attempt{}, fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Attempt{}, fmt.Errorf("commit: %w", err)
	}
	return s.Get(ctx, attemptID)
}

// loadResponses returns response rows ordered by the attempt's snapshot.
func (s *AttemptStore) loadResponses(ctx context.Context, attemptID string, questions []domain.Question) ([]domain.Response, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id, selected_option, is_correct FROM responses WHERE attempt_id=$1`,
		attemptID,
	)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	defer rows.Close()

	byQuestion := make(map[string]domain.Response)
	for rows.Next() {
		var r domain.Response
		if err := rows.Scan(&r.QuestionID, &r.SelectedOption, &r.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		byQuestion[r.QuestionID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}

	ordered := make([]domain.Response, 0, len(byQuestion))
	for _, q := range questions {
		if r, ok := byQuestion[q.ID]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}
