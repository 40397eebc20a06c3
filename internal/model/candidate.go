package model

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is an applicant invited to take assessments for a job.
type Candidate struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	JobID          uuid.UUID `json:"job_id"`
	AccessCodeHash string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// CandidateLoginRequest is the payload for candidate sign-in.
type CandidateLoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	AccessCode string `json:"access_code" binding:"required,min=6"`
}
