package model

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus enumerates the lifecycle states of an assessment.
type AssessmentStatus string

const (
	AssessmentStatusDraft     AssessmentStatus = "DRAFT"
	AssessmentStatusPublished AssessmentStatus = "PUBLISHED"
	AssessmentStatusArchived  AssessmentStatus = "ARCHIVED"
)

// ErrQuestionNotFound is returned by builder operations addressing a question
// ID that is not part of the definition.
var ErrQuestionNotFound = errors.New("question not found in definition")

// AssessmentDefinition is the authored, gradable description of an
// assessment: metadata plus the ordered question list. Saves replace the
// question list wholesale; there is no partial-field diffing contract.
type AssessmentDefinition struct {
	ID                  uuid.UUID        `json:"id"`
	JobID               uuid.UUID        `json:"jobId"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	TimeLimitMinutes    int              `json:"timeLimitMinutes"`
	PassingScorePercent int              `json:"passingScorePercent"`
	Questions           []Question       `json:"questions"`
	Status              AssessmentStatus `json:"status"`
	InviteToken         string           `json:"inviteToken,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// nextOrder returns one past the highest order value in the definition.
// Deleted questions leave gaps, so this is not len(Questions)+1.
func (d *AssessmentDefinition) nextOrder() int {
	max := 0
	for i := range d.Questions {
		if d.Questions[i].Order > max {
			max = d.Questions[i].Order
		}
	}
	return max + 1
}

// QuestionByID returns a pointer into the definition's question list.
func (d *AssessmentDefinition) QuestionByID(id uuid.UUID) *Question {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			return &d.Questions[i]
		}
	}
	return nil
}

// AddQuestion appends a new question of the given type with the next order
// value and the per-type default template. Returns the new question.
func (d *AssessmentDefinition) AddQuestion(t QuestionType) *Question {
	q := NewQuestion(t)
	q.Order = d.nextOrder()
	d.Questions = append(d.Questions, q)
	return &d.Questions[len(d.Questions)-1]
}

// QuestionPatch carries a partial update for a question. Nil fields are left
// untouched. ID and Order are never part of a patch.
type QuestionPatch struct {
	Type           *QuestionType   `json:"type,omitempty"`
	Text           *string         `json:"text,omitempty"`
	Required       *bool           `json:"required,omitempty"`
	Options        []string        `json:"options,omitempty"`
	CorrectAnswer  json.RawMessage `json:"correctAnswer,omitempty"`
	CorrectAnswers []int           `json:"correctAnswers,omitempty"`
	MaxLength      *int            `json:"maxLength,omitempty"`
	MinLength      *int            `json:"minLength,omitempty"`
	Range          *NumericRange   `json:"range,omitempty"`
	AcceptedTypes  []string        `json:"acceptedTypes,omitempty"`
	MaxSize        *int64          `json:"maxSize,omitempty"`
}

// UpdateQuestion merges a patch into the addressed question. The question's
// ID and Order never change. Switching the type re-applies the new type's
// default template before the rest of the patch, so the question is never
// left with fields from two variants.
func (d *AssessmentDefinition) UpdateQuestion(id uuid.UUID, patch QuestionPatch) (*Question, error) {
	q := d.QuestionByID(id)
	if q == nil {
		return nil, ErrQuestionNotFound
	}

	if patch.Type != nil && patch.Type.Normalized() != q.Type.Normalized() {
		fresh := NewQuestion(*patch.Type)
		fresh.ID = q.ID
		fresh.Order = q.Order
		fresh.Text = q.Text
		fresh.Required = q.Required
		*q = fresh
	}

	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.Required != nil {
		q.Required = *patch.Required
	}
	if patch.Options != nil {
		q.Options = patch.Options
	}
	if patch.CorrectAnswer != nil {
		q.CorrectAnswer = patch.CorrectAnswer
	}
	if patch.CorrectAnswers != nil {
		q.CorrectAnswers = patch.CorrectAnswers
	}
	if patch.MaxLength != nil {
		q.MaxLength = *patch.MaxLength
	}
	if patch.MinLength != nil {
		q.MinLength = patch.MinLength
	}
	if patch.Range != nil {
		q.Range = patch.Range
	}
	if patch.AcceptedTypes != nil {
		q.AcceptedTypes = patch.AcceptedTypes
	}
	if patch.MaxSize != nil {
		q.MaxSize = *patch.MaxSize
	}

	return q, nil
}

// DeleteQuestion removes the question. Sibling order values are NOT
// renumbered: order is a display label and gaps are tolerated. Navigation
// always runs on slice position, never on order values.
func (d *AssessmentDefinition) DeleteQuestion(id uuid.UUID) error {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			d.Questions = append(d.Questions[:i], d.Questions[i+1:]...)
			return nil
		}
	}
	return ErrQuestionNotFound
}

// ReorderQuestions rearranges the list to match ids and renumbers order
// contiguously from 1. Every existing question must appear exactly once.
func (d *AssessmentDefinition) ReorderQuestions(ids []uuid.UUID) error {
	if len(ids) != len(d.Questions) {
		return errors.New("reorder must list every question exactly once")
	}

	reordered := make([]Question, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return errors.New("reorder must list every question exactly once")
		}
		seen[id] = true

		q := d.QuestionByID(id)
		if q == nil {
			return ErrQuestionNotFound
		}
		reordered = append(reordered, *q)
	}

	for i := range reordered {
		reordered[i].Order = i + 1
	}
	d.Questions = reordered
	return nil
}

// Validate checks every question's structural constraints.
func (d *AssessmentDefinition) Validate() error {
	for i := range d.Questions {
		if err := d.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreateAssessmentRequest is the payload for creating a new assessment.
type CreateAssessmentRequest struct {
	JobID               uuid.UUID `json:"jobId" binding:"required"`
	Title               string    `json:"title" binding:"required,min=3,max=255"`
	Description         string    `json:"description" binding:"omitempty,max=2000"`
	TimeLimitMinutes    int       `json:"timeLimitMinutes" binding:"required,min=1,max=480"`
	PassingScorePercent int       `json:"passingScorePercent" binding:"min=0,max=100"`
	InviteToken         string    `json:"inviteToken" binding:"omitempty,min=4,max=20"`
}

// UpdateAssessmentRequest is the payload for updating assessment metadata.
type UpdateAssessmentRequest struct {
	Title               string  `json:"title" binding:"omitempty,min=3,max=255"`
	Description         *string `json:"description" binding:"omitempty,max=2000"`
	TimeLimitMinutes    int     `json:"timeLimitMinutes" binding:"omitempty,min=1,max=480"`
	PassingScorePercent *int    `json:"passingScorePercent" binding:"omitempty,min=0,max=100"`
	InviteToken         string  `json:"inviteToken" binding:"omitempty,min=4,max=20"`
}

// AddQuestionRequest is the payload for appending a question to a draft.
type AddQuestionRequest struct {
	Type string `json:"type" binding:"required,oneof=single-choice multi-choice short-text long-text numeric file-upload"`
}

// ReorderQuestionsRequest is the payload for reordering a draft's questions.
type ReorderQuestionsRequest struct {
	QuestionIDs []uuid.UUID `json:"questionIds" binding:"required,min=1"`
}
