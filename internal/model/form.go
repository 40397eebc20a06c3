package model

import (
	"github.com/google/uuid"
)

// FormQuestion is a question stripped of its reference answers, safe to send
// to a candidate or to render a builder preview.
type FormQuestion struct {
	ID       uuid.UUID    `json:"id"`
	Order    int          `json:"order"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
	Required bool         `json:"required"`

	Options       []string      `json:"options,omitempty"`
	MaxLength     int           `json:"maxLength,omitempty"`
	MinLength     *int          `json:"minLength,omitempty"`
	Range         *NumericRange `json:"range,omitempty"`
	AcceptedTypes []string      `json:"acceptedTypes,omitempty"`
	MaxSize       int64         `json:"maxSize,omitempty"`
}

// FormPayload renders a definition as a fillable form without timing or
// grading concerns. Used for the candidate paper and the builder preview,
// and cached in Redis on publish.
type FormPayload struct {
	AssessmentID     uuid.UUID      `json:"assessmentId"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	TimeLimitMinutes int            `json:"timeLimitMinutes"`
	Questions        []FormQuestion `json:"questions"`
}

// BuildFormPayload projects a definition into its candidate-facing form.
func BuildFormPayload(def *AssessmentDefinition) *FormPayload {
	questions := make([]FormQuestion, len(def.Questions))
	for i, q := range def.Questions {
		questions[i] = FormQuestion{
			ID:            q.ID,
			Order:         q.Order,
			Type:          q.Type.Normalized(),
			Text:          q.Text,
			Required:      q.Required,
			Options:       q.Options,
			MaxLength:     q.MaxLength,
			MinLength:     q.MinLength,
			Range:         q.Range,
			AcceptedTypes: q.AcceptedTypes,
			MaxSize:       q.MaxSize,
		}
	}

	return &FormPayload{
		AssessmentID:     def.ID,
		Title:            def.Title,
		Description:      def.Description,
		TimeLimitMinutes: def.TimeLimitMinutes,
		Questions:        questions,
	}
}
