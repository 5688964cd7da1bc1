package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"studygroup-quiz-service/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres and normalizes it into the
// canonical domain shape.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz, err := decodeQuiz(raw)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz %s: %w", quizID, err)
	}
	return quiz, nil
}

// Authoring tools disagree on how options are encoded: some store an ordered
// array, others a label-keyed map like {"A": "...", "B": "..."} with the
// correct answer given as a label. decodeQuiz accepts both and normalizes to
// the canonical ordered list with an index-valued correct option, so the
// core never sees the split.

type quizRecord struct {
	ID                   string           `json:"id"`
	Title                string           `json:"title"`
	Category             string           `json:"category"`
	Difficulty           string           `json:"difficulty"`
	Active               bool             `json:"active"`
	TimeLimitSeconds     int              `json:"timeLimitSeconds"`
	PassingScorePercent  int              `json:"passingScorePercent"`
	MaxAttempts          int              `json:"maxAttempts"`
	RandomizeQuestions   bool             `json:"randomizeQuestions"`
	RevealCorrectAnswers bool             `json:"revealCorrectAnswers"`
	Questions            []questionRecord `json:"questions"`
}

type questionRecord struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Type          string          `json:"type"`
	Options       json.RawMessage `json:"options"`
	CorrectOption json.RawMessage `json:"correctOption"`
	Explanation   string          `json:"explanation"`
	Points        int             `json:"points"`
}

func decodeQuiz(raw []byte) (domain.Quiz, error) {
	var rec quizRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:                   rec.ID,
		Title:                rec.Title,
		Category:             rec.Category,
		Difficulty:           rec.Difficulty,
		Active:               rec.Active,
		TimeLimitSeconds:     rec.TimeLimitSeconds,
		PassingScorePercent:  rec.PassingScorePercent,
		MaxAttempts:          rec.MaxAttempts,
		RandomizeQuestions:   rec.RandomizeQuestions,
		RevealCorrectAnswers: rec.RevealCorrectAnswers,
		Questions:            make([]domain.Question, 0, len(rec.Questions)),
	}
	for _, q := range rec.Questions {
		options, correct, err := normalizeOptions(q.Options, q.CorrectOption)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("question %s: %w", q.ID, err)
		}
		qType := q.Type
		if qType == "" {
			qType = domain.QuestionTypeSingleChoice
		}
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:            q.ID,
			Text:          q.Text,
			Type:          qType,
			Options:       options,
			CorrectOption: correct,
			Explanation:   q.Explanation,
			Points:        q.Points,
		})
	}
	return quiz, nil
}

func normalizeOptions(rawOptions, rawCorrect json.RawMessage) ([]string, int, error) {
	// Array form: options are already ordered, the correct reference is an index.
	var list []string
	if err := json.Unmarshal(rawOptions, &list); err == nil {
		var idx int
		if err := json.Unmarshal(rawCorrect, &idx); err != nil {
			return nil, 0, fmt.Errorf("array options need a numeric correct reference: %w", err)
		}
		if idx < 0 || idx >= len(list) {
			return nil, 0, fmt.Errorf("correct option %d out of range", idx)
		}
		return list, idx, nil
	}

	// Keyed form: sort labels for a stable order, resolve the label to an index.
	var keyed map[string]string
	if err := json.Unmarshal(rawOptions, &keyed); err != nil {
		return nil, 0, fmt.Errorf("unsupported options encoding: %w", err)
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var label string
	if err := json.Unmarshal(rawCorrect, &label); err != nil {
		return nil, 0, fmt.Errorf("keyed options need a label correct reference: %w", err)
	}
	options := make([]string, 0, len(keys))
	correct := -1
	for i, k := range keys {
		options = append(options, keyed[k])
		if k == label {
			correct = i
		}
	}
	if correct < 0 {
		return nil, 0, fmt.Errorf("correct label %q not among options", label)
	}
	return options, correct, nil
}
