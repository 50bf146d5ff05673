package app

import (
	"math"

	"campus-assessment-service/internal/domain"
)

// scoreAnswers grades a full answer batch against an event's question set.
// A correct answer adds the question's marks; a wrong one subtracts its
// penalty (possibly zero). The total is floored at zero. An answer
// referencing an unknown question rejects the whole batch: no partial
// scoring of an invalid submission.
func scoreAnswers(questions []domain.Question, answers []domain.Answer) (total float64, correct, wrong int, err error) {
	if len(answers) > len(questions) {
		return 0, 0, 0, domain.ErrTooManyAnswers
	}

	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	for _, ans := range answers {
		question, ok := byID[ans.QuestionID]
		if !ok {
			return 0, 0, 0, domain.ErrUnknownQuestion
		}
		if ans.SelectedOption == question.CorrectOption {
			total += question.Marks
			correct++
		} else {
			total -= question.Penalty
			wrong++
		}
	}

	if total < 0 {
		total = 0
	}
	return total, correct, wrong, nil
}

// passRatioScore maps passed/total test cases onto a 0..100 score.
func passRatioScore(passed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(passed) / float64(total) * 100))
}
