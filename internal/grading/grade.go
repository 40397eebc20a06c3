// Package grading turns a definition and an answer set into a Result. It is
// a pure function over its inputs: no I/O, no clock, no randomness, so the
// same pair always grades to the same Result.
package grading

import (
	"math"
	"strings"

	"github.com/talentflow/talentflow-backend/internal/model"
)

// Grade scores every question in definition order and aggregates the counts.
// Unanswered questions count as wrong. Answered responses that cannot be
// auto-graded (short-text without a reference answer, numeric without one)
// also count as wrong but are flagged NeedsReview in the detail.
func Grade(def *model.AssessmentDefinition, answers model.AnswerSet) *model.Result {
	detail := make([]model.QuestionResult, 0, len(def.Questions))
	correct := 0

	for i := range def.Questions {
		q := &def.Questions[i]
		value, answered := answers[q.ID]

		qr := gradeQuestion(q, value, answered)
		if qr.IsCorrect {
			correct++
		}
		detail = append(detail, qr)
	}

	total := len(def.Questions)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(100 * float64(correct) / float64(total)))
	}

	return &model.Result{
		AssessmentID:      def.ID,
		TotalQuestions:    total,
		CorrectCount:      correct,
		WrongCount:        total - correct,
		Percentage:        percentage,
		Passed:            percentage >= def.PassingScorePercent,
		PerQuestionDetail: detail,
	}
}

func gradeQuestion(q *model.Question, value model.AnswerValue, answered bool) model.QuestionResult {
	qr := model.QuestionResult{QuestionID: q.ID}
	if answered {
		v := value
		qr.UserAnswer = &v
	}

	switch q.Type.Normalized() {
	case model.QuestionTypeSingleChoice:
		idx, ok := q.CorrectChoice()
		if ok {
			qr.CorrectAnswer = model.RawJSON(idx)
			qr.IsCorrect = answered && value.Choice != nil && *value.Choice == idx
		}

	case model.QuestionTypeMultiChoice:
		qr.CorrectAnswer = model.RawJSON(append([]int{}, q.CorrectAnswers...))
		qr.IsCorrect = answered && indexSetsEqual(value.Choices, q.CorrectAnswers)

	case model.QuestionTypeShortText:
		ref, ok := q.CorrectText()
		hasText := answered && value.Text != nil && strings.TrimSpace(*value.Text) != ""
		if ok {
			qr.CorrectAnswer = model.RawJSON(ref)
			qr.IsCorrect = hasText && strings.EqualFold(
				strings.TrimSpace(*value.Text), strings.TrimSpace(ref))
		} else if hasText {
			// Answered, but there is nothing to grade against.
			qr.NeedsReview = true
		}

	case model.QuestionTypeLongText:
		minLen := 0
		if q.MinLength != nil {
			minLen = *q.MinLength
		}
		hasText := answered && value.Text != nil && strings.TrimSpace(*value.Text) != ""
		qr.IsCorrect = hasText && len(strings.TrimSpace(*value.Text)) >= minLen

	case model.QuestionTypeNumeric:
		ref, ok := q.CorrectNumber()
		if ok {
			qr.CorrectAnswer = model.RawJSON(ref)
			// Exact equality, no tolerance.
			qr.IsCorrect = answered && value.Number != nil && *value.Number == ref
		} else if answered && value.Number != nil {
			qr.NeedsReview = true
		}

	case model.QuestionTypeFileUpload:
		qr.IsCorrect = answered && value.File != nil && value.File.Name != ""
	}

	return qr
}

// indexSetsEqual compares two index slices as sets: order-independent, with
// duplicates collapsed. A size mismatch after dedup means not equal.
func indexSetsEqual(a, b []int) bool {
	setA := make(map[int]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[int]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for v := range setA {
		if _, ok := setB[v]; !ok {
			return false
		}
	}
	return true
}
