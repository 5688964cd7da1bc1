package memory

import (
	"context"
	"sync"

	"studygroup-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore. A single
// mutex gives the same atomicity the relational adapter gets from its
// transactions: attempt-number assignment, the single-active-attempt check
// and the terminal compare-and-set all happen under the lock.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	// byOwner indexes attempt IDs per (quizID, userID) in creation order.
	byOwner map[ownerKey][]string
}

type ownerKey struct {
	quizID string
	userID string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		byOwner:  make(map[ownerKey][]string),
	}
}

func (s *AttemptStore) Create(ctx context.Context, attempt domain.Attempt, maxAttempts int) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey{quizID: attempt.QuizID, userID: attempt.UserID}
	prior := s.byOwner[key]
	if maxAttempts > 0 && len(prior) >= maxAttempts {
		return domain.Attempt{}, domain.ErrAttemptLimitReached
	}
	for _, id := range prior {
		if s.attempts[id].State == domain.AttemptInProgress {
			return domain.Attempt{}, domain.ErrAttemptInProgress
		}
	}

	attempt.AttemptNumber = len(prior) + 1
	s.attempts[attempt.ID] = attempt
	s.byOwner[key] = append(prior, attempt.ID)
	return attempt, nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptStore) Complete(ctx context.Context, attemptID string, completion domain.Completion) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if attempt.State != domain.AttemptInProgress {
		return domain.Attempt{}, domain.ErrAttemptCompleted
	}

	completedAt := completion.CompletedAt
	score := completion.Score
	passed := completion.Passed
	attempt.State = completion.State
	attempt.CompletedAt = &completedAt
	attempt.Score = &score
	attempt.Passed = &passed
	attempt.TimeSpentSeconds = completion.TimeSpentSeconds
	attempt.Responses = completion.Responses
	s.attempts[attemptID] = attempt
	return attempt, nil
}
