package domain

import "time"

// QuestionTypeSingleChoice is the only question type currently supported:
// exactly one option is correct.
const QuestionTypeSingleChoice = "single_choice"

// AttemptState tracks where an attempt is in its lifecycle.
type AttemptState string

const (
	// AttemptInProgress means the attempt is running and may still be submitted.
	AttemptInProgress AttemptState = "in_progress"
	// AttemptCompleted means the attempt was submitted before its deadline.
	AttemptCompleted AttemptState = "completed"
	// AttemptExpired means the deadline passed; the attempt was scored from
	// whatever responses arrived late, or none at all.
	AttemptExpired AttemptState = "expired"
)

// Terminal reports whether the state permits no further mutation.
func (s AttemptState) Terminal() bool {
	return s == AttemptCompleted || s == AttemptExpired
}

// Question models a single-best-answer question. CorrectOption indexes into
// Options; Points defaults to 1 if zero.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Explanation   string   `json:"explanation,omitempty"`
	Points        int      `json:"points"`
}

// Quiz is the full quiz definition including grading policy. Only the core
// service may hold this shape; clients see QuestionView instead.
type Quiz struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Category             string     `json:"category,omitempty"`
	Difficulty           string     `json:"difficulty,omitempty"`
	Active               bool       `json:"active"`
	TimeLimitSeconds     int        `json:"timeLimitSeconds"` // 0 = untimed
	PassingScorePercent  int        `json:"passingScorePercent"`
	MaxAttempts          int        `json:"maxAttempts"` // 0 = unlimited
	RandomizeQuestions   bool       `json:"randomizeQuestions"`
	RevealCorrectAnswers bool       `json:"revealCorrectAnswers"`
	Questions            []Question `json:"questions"`
}

// Attempt is one user's timed run through a quiz. The quiz policy and the
// (possibly shuffled) question list are snapshotted at start so later edits
// to the quiz never affect a running or finished attempt.
type Attempt struct {
	ID                  string
	QuizID              string
	UserID              string
	AttemptNumber       int
	State               AttemptState
	StartedAt           time.Time
	CompletedAt         *time.Time
	TimeLimitSeconds    int
	PassingScorePercent int
	RevealAnswers       bool
	Score               *int
	Passed              *bool
	TimeSpentSeconds    int
	Questions           []Question
	Responses           []Response
}

// Deadline returns when the attempt expires, or nil for untimed quizzes.
func (a Attempt) Deadline() *time.Time {
	if a.TimeLimitSeconds <= 0 {
		return nil
	}
	d := a.StartedAt.Add(time.Duration(a.TimeLimitSeconds) * time.Second)
	return &d
}

// Overdue reports whether the deadline has passed as of now.
func (a Attempt) Overdue(now time.Time) bool {
	d := a.Deadline()
	return d != nil && now.After(*d)
}

// Response records what a user submitted for one snapshot question.
// SelectedOption is nil when the question was left unanswered. IsCorrect is
// derived once at scoring time and never recomputed.
type Response struct {
	QuestionID     string
	SelectedOption *int
	IsCorrect      bool
}

// ResponseInput is the raw submission for one question, before scoring.
type ResponseInput struct {
	QuestionID     string `json:"questionId"`
	SelectedOption *int   `json:"selectedOption"`
}

// Completion carries everything Submit derived for an attempt's one-shot
// transition to a terminal state.
type Completion struct {
	State            AttemptState
	CompletedAt      time.Time
	Score            int
	Passed           bool
	TimeSpentSeconds int
	Responses        []Response
}
