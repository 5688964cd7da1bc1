package app

import (
	"math"

	"studygroup-quiz-service/internal/domain"
)

// ScoreSummary is the outcome of grading one attempt. Responses holds one
// entry per snapshot question, in snapshot order, including questions the
// user never answered.
type ScoreSummary struct {
	RawPoints    int
	TotalPoints  int
	Percent      int
	CorrectCount int
	Responses    []domain.Response
}

// Score grades a set of responses against the attempt's question snapshot.
// It is a pure function: no clock, no storage, identical inputs always give
// identical outputs, which is what makes duplicate submits safe to reject
// without rescoring.
//
// A response is correct iff its selected option index equals the question's
// correct option exactly. Unanswered questions and out-of-range indexes are
// simply incorrect, never an error.
func Score(questions []domain.Question, responses []domain.ResponseInput) ScoreSummary {
	selected := make(map[string]*int, len(responses))
	for _, r := range responses {
		selected[r.QuestionID] = r.SelectedOption
	}

	summary := ScoreSummary{
		Responses: make([]domain.Response, 0, len(questions)),
	}
	for _, q := range questions {
		points := q.Points
		if points <= 0 {
			points = 1
		}
		summary.TotalPoints += points

		choice := selected[q.ID]
		correct := choice != nil &&
			*choice >= 0 && *choice < len(q.Options) &&
			*choice == q.CorrectOption
		if correct {
			summary.RawPoints += points
			summary.CorrectCount++
		}
		summary.Responses = append(summary.Responses, domain.Response{
			QuestionID:     q.ID,
			SelectedOption: choice,
			IsCorrect:      correct,
		})
	}

	if summary.TotalPoints > 0 {
		summary.Percent = int(math.Round(100 * float64(summary.RawPoints) / float64(summary.TotalPoints)))
	}
	return summary
}
