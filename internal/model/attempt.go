package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates persisted attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt represents a candidate's run at an assessment. One row per
// candidate-assessment pair; a retake resets the row in place.
type Attempt struct {
	ID              uuid.UUID     `json:"id"`
	AssessmentID    uuid.UUID     `json:"assessmentId"`
	CandidateID     int           `json:"candidateId"`
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      *time.Time    `json:"finishedAt,omitempty"`
	Status          AttemptStatus `json:"status"`
	FinalPercentage *int          `json:"finalPercentage,omitempty"`
}

// AttemptState is the recovery payload for a page reload: autosaved answers
// plus the server-computed remaining time.
type AttemptState struct {
	AssessmentID     uuid.UUID              `json:"assessmentId"`
	CandidateID      int                    `json:"candidateId"`
	AutosavedAnswers map[string]AnswerValue `json:"autosavedAnswers"`
	RemainingSeconds int                    `json:"remainingSeconds"`
}

// StartAttemptRequest is the payload for a candidate starting an assessment.
type StartAttemptRequest struct {
	InviteToken string `json:"inviteToken" binding:"omitempty,min=4,max=20"`
}
