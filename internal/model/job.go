package model

import (
	"time"

	"github.com/google/uuid"
)

// Job is the posting an assessment belongs to. Jobs are managed elsewhere in
// the product; this service only reads them as a foreign reference.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateJobRequest is the payload for creating a job posting.
type CreateJobRequest struct {
	Title string `json:"title" binding:"required,min=3,max=200"`
}
