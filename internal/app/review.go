package app

import "studygroup-quiz-service/internal/domain"

// buildResult shapes a terminal attempt into the payload callers may see.
// This is the single choke point deciding whether correct options and
// explanations leave the service: they are included only when the quiz was
// configured to reveal answers AND the attempt is terminal. Everything else
// (score, pass flag, per-question correctness) is always included.
func buildResult(a domain.Attempt) domain.AttemptResult {
	reveal := a.RevealAnswers && a.State.Terminal()

	byID := make(map[string]domain.Question, len(a.Questions))
	for _, q := range a.Questions {
		byID[q.ID] = q
	}

	result := domain.AttemptResult{
		AttemptID:        a.ID,
		QuizID:           a.QuizID,
		AttemptNumber:    a.AttemptNumber,
		State:            a.State,
		TimeSpentSeconds: a.TimeSpentSeconds,
		TotalQuestions:   len(a.Questions),
		PerQuestion:      make([]domain.QuestionReview, 0, len(a.Responses)),
	}
	if a.Score != nil {
		result.Score = *a.Score
	}
	if a.Passed != nil {
		result.Passed = *a.Passed
	}
	if a.CompletedAt != nil {
		result.CompletedAt = *a.CompletedAt
	}

	for _, r := range a.Responses {
		review := domain.QuestionReview{
			QuestionID: r.QuestionID,
			UserAnswer: r.SelectedOption,
			IsCorrect:  r.IsCorrect,
		}
		if r.IsCorrect {
			result.CorrectCount++
		}
		if reveal {
			if q, ok := byID[r.QuestionID]; ok {
				correct := q.CorrectOption
				review.CorrectOption = &correct
				review.Explanation = q.Explanation
			}
		}
		result.PerQuestion = append(result.PerQuestion, review)
	}
	return result
}

// sanitizeQuestions strips grading data from a question snapshot for
// delivery to the test-taker.
func sanitizeQuestions(questions []domain.Question) []domain.QuestionView {
	views := make([]domain.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, domain.QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: q.Options,
		})
	}
	return views
}
