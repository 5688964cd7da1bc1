package app_test

import (
	"testing"

	"studygroup-quiz-service/internal/app"
	"studygroup-quiz-service/internal/domain"
)

func twoQuestionSet() []domain.Question {
	return []domain.Question{
		{ID: "q1", Text: "first", Type: domain.QuestionTypeSingleChoice, Options: []string{"a", "b"}, CorrectOption: 1, Points: 2},
		{ID: "q2", Text: "second", Type: domain.QuestionTypeSingleChoice, Options: []string{"a", "b", "c"}, CorrectOption: 0, Points: 2},
	}
}

func intPtr(n int) *int { return &n }

func TestScoreHalfCorrect(t *testing.T) {
	summary := app.Score(twoQuestionSet(), []domain.ResponseInput{
		{QuestionID: "q1", SelectedOption: intPtr(1)}, // correct
		{QuestionID: "q2", SelectedOption: intPtr(2)}, // wrong
	})

	if summary.RawPoints != 2 || summary.TotalPoints != 4 {
		t.Fatalf("expected 2/4 points, got %d/%d", summary.RawPoints, summary.TotalPoints)
	}
	if summary.Percent != 50 {
		t.Fatalf("expected 50%%, got %d", summary.Percent)
	}
	if summary.CorrectCount != 1 {
		t.Fatalf("expected 1 correct, got %d", summary.CorrectCount)
	}
}

func TestScoreNoResponses(t *testing.T) {
	summary := app.Score(twoQuestionSet(), nil)

	if summary.Percent != 0 {
		t.Fatalf("expected 0%%, got %d", summary.Percent)
	}
	if len(summary.Responses) != 2 {
		t.Fatalf("expected a response row per question, got %d", len(summary.Responses))
	}
	for _, r := range summary.Responses {
		if r.IsCorrect {
			t.Fatalf("question %s marked correct with no submission", r.QuestionID)
		}
		if r.SelectedOption != nil {
			t.Fatalf("question %s should be unanswered", r.QuestionID)
		}
	}
}

func TestScoreOutOfRangeIsJustWrong(t *testing.T) {
	summary := app.Score(twoQuestionSet(), []domain.ResponseInput{
		{QuestionID: "q1", SelectedOption: intPtr(99)},
		{QuestionID: "q2", SelectedOption: intPtr(-1)},
	})
	if summary.RawPoints != 0 || summary.CorrectCount != 0 {
		t.Fatalf("out-of-range answers must score zero, got %d points", summary.RawPoints)
	}
}

func TestScoreZeroQuestions(t *testing.T) {
	summary := app.Score(nil, nil)
	if summary.Percent != 0 || summary.TotalPoints != 0 {
		t.Fatalf("empty quiz must score 0, got %d%% over %d points", summary.Percent, summary.TotalPoints)
	}
}

func TestScoreRoundsPercent(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", Options: []string{"a", "b"}, CorrectOption: 0, Points: 1},
		{ID: "q2", Options: []string{"a", "b"}, CorrectOption: 0, Points: 1},
		{ID: "q3", Options: []string{"a", "b"}, CorrectOption: 0, Points: 1},
	}
	summary := app.Score(questions, []domain.ResponseInput{
		{QuestionID: "q1", SelectedOption: intPtr(0)},
	})
	// 1/3 = 33.33..., rounds to 33
	if summary.Percent != 33 {
		t.Fatalf("expected 33, got %d", summary.Percent)
	}

	summary = app.Score(questions, []domain.ResponseInput{
		{QuestionID: "q1", SelectedOption: intPtr(0)},
		{QuestionID: "q2", SelectedOption: intPtr(0)},
	})
	// 2/3 = 66.66..., rounds to 67
	if summary.Percent != 67 {
		t.Fatalf("expected 67, got %d", summary.Percent)
	}
}

func TestScoreDefaultsZeroPointsToOne(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", Options: []string{"a", "b"}, CorrectOption: 1},
	}
	summary := app.Score(questions, []domain.ResponseInput{
		{QuestionID: "q1", SelectedOption: intPtr(1)},
	})
	if summary.RawPoints != 1 || summary.TotalPoints != 1 || summary.Percent != 100 {
		t.Fatalf("expected 1/1 = 100%%, got %d/%d = %d%%", summary.RawPoints, summary.TotalPoints, summary.Percent)
	}
}

func TestScoreDeterministic(t *testing.T) {
	responses := []domain.ResponseInput{
		{QuestionID: "q1", SelectedOption: intPtr(1)},
		{QuestionID: "q2", SelectedOption: intPtr(2)},
	}
	first := app.Score(twoQuestionSet(), responses)
	for i := 0; i < 5; i++ {
		again := app.Score(twoQuestionSet(), responses)
		if again.Percent != first.Percent || again.RawPoints != first.RawPoints || again.CorrectCount != first.CorrectCount {
			t.Fatalf("scoring not deterministic: %+v vs %+v", first, again)
		}
	}
}
