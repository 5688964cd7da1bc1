package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz does not exist or is not active.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates an unknown attempt ID.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptInProgress is returned when the user already has a running
	// attempt for the quiz; callers should fetch that attempt, not retry.
	ErrAttemptInProgress = errors.New("attempt already in progress")
	// ErrAttemptLimitReached means the quiz's max attempt count is exhausted.
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	// ErrAttemptCompleted is returned for a duplicate submit; the stored
	// result from the first submit is unchanged and can be fetched.
	ErrAttemptCompleted = errors.New("attempt already completed")
	// ErrUnknownQuestion indicates a response references a question outside
	// the attempt's snapshot.
	ErrUnknownQuestion = errors.New("response references unknown question")
	// ErrDuplicateResponse indicates two responses target the same question.
	ErrDuplicateResponse = errors.New("duplicate response for question")
)
