package domain

import "time"

// QuestionView is the client-safe projection of a question. It deliberately
// has no field for the correct option or the explanation; those only ever
// appear in QuestionReview, behind the review gate.
type QuestionView struct {
	ID      string   `json:"questionId"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

// StartResult is returned when an attempt is opened.
type StartResult struct {
	AttemptID     string         `json:"attemptId"`
	AttemptNumber int            `json:"attemptNumber"`
	Deadline      *time.Time     `json:"deadline,omitempty"`
	Questions     []QuestionView `json:"questions"`
}

// QuestionReview is the per-question slice of a terminal attempt's result.
// CorrectOption and Explanation are populated only when the quiz reveals
// answers and the attempt is terminal.
type QuestionReview struct {
	QuestionID    string `json:"questionId"`
	UserAnswer    *int   `json:"userAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectOption *int   `json:"correctAnswer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// AttemptResult is the graded outcome of a terminal attempt.
type AttemptResult struct {
	AttemptID        string           `json:"attemptId"`
	QuizID           string           `json:"quizId"`
	AttemptNumber    int              `json:"attemptNumber"`
	State            AttemptState     `json:"state"`
	Score            int              `json:"score"`
	Passed           bool             `json:"isPassed"`
	CorrectCount     int              `json:"correctCount"`
	TotalQuestions   int              `json:"totalQuestions"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
	CompletedAt      time.Time        `json:"completedAt"`
	PerQuestion      []QuestionReview `json:"perQuestion"`
}

// AttemptStatus is the answer to "where is this attempt now". Result is nil
// while the attempt is still running.
type AttemptStatus struct {
	AttemptID        string         `json:"attemptId"`
	State            AttemptState   `json:"state"`
	Deadline         *time.Time     `json:"deadline,omitempty"`
	RemainingSeconds *int           `json:"remainingSeconds,omitempty"`
	Result           *AttemptResult `json:"result,omitempty"`
}
