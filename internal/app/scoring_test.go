package app

import (
	"errors"
	"testing"

	"campus-assessment-service/internal/domain"
)

func TestScoreAnswersMixedResult(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", CorrectOption: 1, Marks: 5, Penalty: 1},
		{ID: "q2", CorrectOption: 0, Marks: 3, Penalty: 0},
	}
	answers := []domain.Answer{
		{QuestionID: "q1", SelectedOption: 1},
		{QuestionID: "q2", SelectedOption: 2},
	}

	total, correct, wrong, err := scoreAnswers(questions, answers)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if total != 5 || correct != 1 || wrong != 1 {
		t.Fatalf("expected total=5 correct=1 wrong=1, got total=%v correct=%d wrong=%d", total, correct, wrong)
	}
}

func TestScoreAnswersFloorsAtZero(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", CorrectOption: 0, Marks: 1, Penalty: 10},
		{ID: "q2", CorrectOption: 0, Marks: 1, Penalty: 10},
	}
	answers := []domain.Answer{
		{QuestionID: "q1", SelectedOption: 1},
		{QuestionID: "q2", SelectedOption: 1},
	}

	total, correct, wrong, err := scoreAnswers(questions, answers)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected floored total 0, got %v", total)
	}
	if correct != 0 || wrong != 2 {
		t.Fatalf("expected correct=0 wrong=2, got correct=%d wrong=%d", correct, wrong)
	}
}

func TestScoreAnswersRejectsUnknownQuestion(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", CorrectOption: 0, Marks: 5},
	}
	answers := []domain.Answer{
		{QuestionID: "q-bogus", SelectedOption: 0},
	}

	_, _, _, err := scoreAnswers(questions, answers)
	if !errors.Is(err, domain.ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestScoreAnswersRejectsOversizedBatch(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", CorrectOption: 0, Marks: 5},
	}
	answers := []domain.Answer{
		{QuestionID: "q1", SelectedOption: 0},
		{QuestionID: "q1", SelectedOption: 1},
	}

	_, _, _, err := scoreAnswers(questions, answers)
	if !errors.Is(err, domain.ErrTooManyAnswers) {
		t.Fatalf("expected ErrTooManyAnswers, got %v", err)
	}
}

func TestScoreAnswersZeroPenaltyWrongAnswer(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", CorrectOption: 0, Marks: 3, Penalty: 0},
	}
	answers := []domain.Answer{
		{QuestionID: "q1", SelectedOption: 2},
	}

	total, correct, wrong, err := scoreAnswers(questions, answers)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if total != 0 || correct != 0 || wrong != 1 {
		t.Fatalf("expected total=0 correct=0 wrong=1, got total=%v correct=%d wrong=%d", total, correct, wrong)
	}
}

func TestPassRatioScore(t *testing.T) {
	cases := []struct {
		passed, total, want int
	}{
		{0, 0, 0},
		{0, 2, 0},
		{1, 2, 50},
		{2, 2, 100},
		{1, 3, 33},
		{2, 3, 67},
	}
	for _, c := range cases {
		if got := passRatioScore(c.passed, c.total); got != c.want {
			t.Fatalf("passRatioScore(%d, %d) = %d, want %d", c.passed, c.total, got, c.want)
		}
	}
}
