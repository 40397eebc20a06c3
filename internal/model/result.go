package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionResult is the graded outcome for one question. CorrectAnswer is
// present only for variants that define one. NeedsReview marks responses that
// were answered but not auto-gradable (counted as incorrect in the aggregate).
type QuestionResult struct {
	QuestionID    uuid.UUID       `json:"questionId"`
	UserAnswer    *AnswerValue    `json:"userAnswer,omitempty"`
	CorrectAnswer json.RawMessage `json:"correctAnswer,omitempty"`
	IsCorrect     bool            `json:"isCorrect"`
	NeedsReview   bool            `json:"needsReview,omitempty"`
}

// Result is the immutable grading output for one submission. Regrading the
// same (definition, answer set) pair yields an identical Result.
type Result struct {
	ID                uuid.UUID        `json:"id,omitempty"`
	AssessmentID      uuid.UUID        `json:"assessmentId"`
	AttemptID         uuid.UUID        `json:"attemptId,omitempty"`
	CandidateID       int              `json:"candidateId,omitempty"`
	TotalQuestions    int              `json:"totalQuestions"`
	CorrectCount      int              `json:"correctCount"`
	WrongCount        int              `json:"wrongCount"`
	Percentage        int              `json:"percentage"`
	Passed            bool             `json:"passed"`
	PerQuestionDetail []QuestionResult `json:"perQuestionDetail"`
	SubmittedAt       time.Time        `json:"submittedAt,omitempty"`
}

// RedactCorrectAnswers strips reference answers from questions the candidate
// got right, so the results view only reveals the correct answer where the
// response was wrong.
func (r *Result) RedactCorrectAnswers() {
	for i := range r.PerQuestionDetail {
		if r.PerQuestionDetail[i].IsCorrect {
			r.PerQuestionDetail[i].CorrectAnswer = nil
		}
	}
}
