package app

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"studygroup-quiz-service/internal/domain"
)

// AttemptStore abstracts how attempts are persisted (in-memory, Postgres, ...).
// Implementations must make Create and Complete atomic: Create assigns the
// next contiguous attempt number and fails with domain.ErrAttemptInProgress
// (or ErrAttemptLimitReached) when the invariants would break, and Complete
// is a compare-and-set on state so that exactly one caller wins the
// in_progress → terminal transition.
type AttemptStore interface {
	Create(ctx context.Context, attempt domain.Attempt, maxAttempts int) (domain.Attempt, error)
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	Complete(ctx context.Context, attemptID string, completion domain.Completion) (domain.Attempt, error)
}

// QuestionBank loads quiz content including grading data. Nothing it returns
// may be forwarded to clients unfiltered.
type QuestionBank interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptService orchestrates the attempt lifecycle: starting, submitting,
// lazy expiry, scoring, and the answer-reveal gate.
type AttemptService struct {
	store AttemptStore
	bank  QuestionBank
	now   func() time.Time
}

func NewAttemptService(store AttemptStore, bank QuestionBank) *AttemptService {
	return NewAttemptServiceWithClock(store, bank, time.Now)
}

// NewAttemptServiceWithClock allows deterministic time in tests.
func NewAttemptServiceWithClock(store AttemptStore, bank QuestionBank, now func() time.Time) *AttemptService {
	return &AttemptService{
		store: store,
		bank:  bank,
		now:   now,
	}
}

// Start opens a new attempt for (quizID, userID). The quiz policy and the
// question list are snapshotted onto the attempt; when the quiz randomizes
// questions, a fixed per-attempt ordering is drawn here and persisted, so
// every later read of the attempt sees the same order.
func (s *AttemptService) Start(ctx context.Context, quizID, userID string) (domain.StartResult, error) {
	quiz, err := s.bank.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.StartResult{}, err
	}
	if !quiz.Active {
		return domain.StartResult{}, domain.ErrQuizNotFound
	}

	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	if quiz.RandomizeQuestions {
		// Package-level Shuffle is locked internally, so concurrent
		// starts never share an unsynchronized rand source.
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	attempt := domain.Attempt{
		ID:                  uuid.NewString(),
		QuizID:              quiz.ID,
		UserID:              userID,
		State:               domain.AttemptInProgress,
		StartedAt:           s.now(),
		TimeLimitSeconds:    quiz.TimeLimitSeconds,
		PassingScorePercent: quiz.PassingScorePercent,
		RevealAnswers:       quiz.RevealCorrectAnswers,
		Questions:           questions,
	}

	created, err := s.store.Create(ctx, attempt, quiz.MaxAttempts)
	if err != nil {
		return domain.StartResult{}, err
	}

	return domain.StartResult{
		AttemptID:     created.ID,
		AttemptNumber: created.AttemptNumber,
		Deadline:      created.Deadline(),
		Questions:     sanitizeQuestions(created.Questions),
	}, nil
}

// Submit grades the attempt and moves it to a terminal state exactly once.
// clientElapsedSeconds is what the client's countdown believed; it is logged
// when it disagrees badly with the server clock but never trusted; elapsed
// time is always now minus StartedAt. A submit arriving after the deadline is
// still scored from what was sent, but lands in expired rather than
// completed.
func (s *AttemptService) Submit(ctx context.Context, attemptID string, responses []domain.ResponseInput, clientElapsedSeconds int) (domain.AttemptResult, error) {
	attempt, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if attempt.State.Terminal() {
		return domain.AttemptResult{}, domain.ErrAttemptCompleted
	}

	if err := validateResponses(attempt.Questions, responses); err != nil {
		return domain.AttemptResult{}, err
	}

	now := s.now()
	elapsed := int(now.Sub(attempt.StartedAt).Seconds())
	if clientElapsedSeconds > 0 && abs(clientElapsedSeconds-elapsed) > 5 {
		log.Printf("attempt %s: client reported %ds elapsed, server measured %ds", attemptID, clientElapsedSeconds, elapsed)
	}

	state := domain.AttemptCompleted
	if attempt.Overdue(now) {
		state = domain.AttemptExpired
	}
	return s.finalize(ctx, attempt, responses, state, now, elapsed)
}

// Get reports the attempt's current status. Expiry is evaluated lazily here:
// a running attempt whose deadline has passed is finalized on this read with
// every question unanswered.
func (s *AttemptService) Get(ctx context.Context, attemptID string) (domain.AttemptStatus, error) {
	attempt, err := s.store.Get(ctx, attemptID)
	if err != nil {
		return domain.AttemptStatus{}, err
	}

	now := s.now()
	if attempt.State == domain.AttemptInProgress && attempt.Overdue(now) {
		result, err := s.finalize(ctx, attempt, nil, domain.AttemptExpired, now, attempt.TimeLimitSeconds)
		if err == domain.ErrAttemptCompleted {
			// Lost the race against a concurrent submit; the stored
			// terminal result is what we should report.
			attempt, err = s.store.Get(ctx, attemptID)
			if err != nil {
				return domain.AttemptStatus{}, err
			}
			return terminalStatus(attempt), nil
		}
		if err != nil {
			return domain.AttemptStatus{}, err
		}
		return domain.AttemptStatus{
			AttemptID: attemptID,
			State:     result.State,
			Result:    &result,
		}, nil
	}

	if attempt.State.Terminal() {
		return terminalStatus(attempt), nil
	}

	status := domain.AttemptStatus{
		AttemptID: attempt.ID,
		State:     attempt.State,
		Deadline:  attempt.Deadline(),
	}
	if d := attempt.Deadline(); d != nil {
		remaining := int(d.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		status.RemainingSeconds = &remaining
	}
	return status, nil
}

// finalize scores the attempt and attempts the single CAS transition to a
// terminal state. The store decides the winner under concurrency.
func (s *AttemptService) finalize(ctx context.Context, attempt domain.Attempt, responses []domain.ResponseInput, state domain.AttemptState, now time.Time, elapsed int) (domain.AttemptResult, error) {
	summary := Score(attempt.Questions, responses)
	passed := summary.Percent >= attempt.PassingScorePercent

	completed, err := s.store.Complete(ctx, attempt.ID, domain.Completion{
		State:            state,
		CompletedAt:      now,
		Score:            summary.Percent,
		Passed:           passed,
		TimeSpentSeconds: elapsed,
		Responses:        summary.Responses,
	})
	if err != nil {
		return domain.AttemptResult{}, err
	}
	return buildResult(completed), nil
}

func validateResponses(questions []domain.Question, responses []domain.ResponseInput) error {
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	seen := make(map[string]bool, len(responses))
	for _, r := range responses {
		if !known[r.QuestionID] {
			return domain.ErrUnknownQuestion
		}
		if seen[r.QuestionID] {
			return domain.ErrDuplicateResponse
		}
		seen[r.QuestionID] = true
	}
	return nil
}

func terminalStatus(a domain.Attempt) domain.AttemptStatus {
	result := buildResult(a)
	return domain.AttemptStatus{
		AttemptID: a.ID,
		State:     a.State,
		Result:    &result,
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
