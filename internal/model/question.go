package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// QuestionType is the closed set of question variants. An empty type is a
// legacy record and is treated as single-choice everywhere.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "single-choice"
	QuestionTypeMultiChoice  QuestionType = "multi-choice"
	QuestionTypeShortText    QuestionType = "short-text"
	QuestionTypeLongText     QuestionType = "long-text"
	QuestionTypeNumeric      QuestionType = "numeric"
	QuestionTypeFileUpload   QuestionType = "file-upload"
)

// QuestionTypes lists every valid variant, used for request validation.
var QuestionTypes = []QuestionType{
	QuestionTypeSingleChoice,
	QuestionTypeMultiChoice,
	QuestionTypeShortText,
	QuestionTypeLongText,
	QuestionTypeNumeric,
	QuestionTypeFileUpload,
}

// Normalized resolves the legacy empty type to single-choice.
func (t QuestionType) Normalized() QuestionType {
	if t == "" {
		return QuestionTypeSingleChoice
	}
	return t
}

// NumericRange bounds the accepted input of a numeric question.
type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Question is a single assessment question, tagged by Type. Variant-specific
// fields are nil/empty for the variants they do not apply to. CorrectAnswer
// is polymorphic (option index, number, or reference text depending on Type),
// so it is carried as raw JSON with typed accessors below.
type Question struct {
	ID       uuid.UUID    `json:"id"`
	Order    int          `json:"order"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
	Required bool         `json:"required"`

	// single-choice / multi-choice
	Options        []string        `json:"options,omitempty"`
	CorrectAnswer  json.RawMessage `json:"correctAnswer,omitempty"`
	CorrectAnswers []int           `json:"correctAnswers,omitempty"`

	// short-text / long-text
	MaxLength int  `json:"maxLength,omitempty"`
	MinLength *int `json:"minLength,omitempty"`

	// numeric
	Range *NumericRange `json:"range,omitempty"`

	// file-upload
	AcceptedTypes []string `json:"acceptedTypes,omitempty"`
	MaxSize       int64    `json:"maxSize,omitempty"`
}

// NewQuestion returns a fresh question of the given type populated with the
// builder default template, so drafts never contain partially-invalid
// questions. Order is assigned by the definition when the question is added.
func NewQuestion(t QuestionType) Question {
	q := Question{
		ID:       uuid.New(),
		Type:     t.Normalized(),
		Required: true,
	}

	switch q.Type {
	case QuestionTypeSingleChoice:
		q.Options = []string{"Option 1", "Option 2"}
		q.CorrectAnswer = RawJSON(0)
	case QuestionTypeMultiChoice:
		q.Options = []string{"Option 1", "Option 2"}
		q.CorrectAnswers = []int{}
	case QuestionTypeShortText:
		q.MaxLength = 200
	case QuestionTypeLongText:
		q.MaxLength = 2000
	case QuestionTypeNumeric:
		q.Range = &NumericRange{Min: 0, Max: 100}
	case QuestionTypeFileUpload:
		q.AcceptedTypes = []string{".pdf"}
		q.MaxSize = 5 * 1024 * 1024
	}

	return q
}

// RawJSON marshals a value into a json.RawMessage. Marshal errors are
// impossible for the scalar reference-answer types this is used with.
func RawJSON(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// CorrectChoice decodes the reference answer as an option index
// (single-choice and legacy questions).
func (q *Question) CorrectChoice() (int, bool) {
	if len(q.CorrectAnswer) == 0 {
		return 0, false
	}
	var idx int
	if err := json.Unmarshal(q.CorrectAnswer, &idx); err != nil {
		return 0, false
	}
	return idx, true
}

// CorrectNumber decodes the reference answer as a number (numeric questions).
func (q *Question) CorrectNumber() (float64, bool) {
	if len(q.CorrectAnswer) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(q.CorrectAnswer, &n); err != nil {
		return 0, false
	}
	return n, true
}

// CorrectText decodes the reference answer as text (short-text questions).
func (q *Question) CorrectText() (string, bool) {
	if len(q.CorrectAnswer) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(q.CorrectAnswer, &s); err != nil {
		return "", false
	}
	return s, true
}

// IsAnswered reports whether the value counts as an answer for progress
// tracking. This is independent of correctness grading.
func (q *Question) IsAnswered(v AnswerValue) bool {
	switch q.Type.Normalized() {
	case QuestionTypeSingleChoice:
		return v.Choice != nil
	case QuestionTypeMultiChoice:
		return len(v.Choices) > 0
	case QuestionTypeShortText, QuestionTypeLongText:
		return v.Text != nil && strings.TrimSpace(*v.Text) != ""
	case QuestionTypeNumeric:
		return v.Number != nil
	case QuestionTypeFileUpload:
		return v.File != nil && v.File.Name != ""
	}
	return false
}

// Validate checks the variant-specific structural constraints. Violations are
// authoring defects and are rejected at builder time, never at taking time.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is required")
	}

	switch q.Type.Normalized() {
	case QuestionTypeSingleChoice:
		if len(q.Options) < 2 {
			return errors.New("single-choice questions need at least 2 options")
		}
		idx, ok := q.CorrectChoice()
		if !ok || idx < 0 || idx >= len(q.Options) {
			return errors.New("correctAnswer must index an existing option")
		}
	case QuestionTypeMultiChoice:
		if len(q.Options) < 2 {
			return errors.New("multi-choice questions need at least 2 options")
		}
		for _, idx := range q.CorrectAnswers {
			if idx < 0 || idx >= len(q.Options) {
				return fmt.Errorf("correctAnswers contains out-of-range index %d", idx)
			}
		}
	case QuestionTypeShortText, QuestionTypeLongText:
		if q.MaxLength <= 0 {
			return errors.New("maxLength must be positive")
		}
		if q.MinLength != nil && (*q.MinLength < 0 || *q.MinLength > q.MaxLength) {
			return errors.New("minLength must be within [0, maxLength]")
		}
	case QuestionTypeNumeric:
		if q.Range == nil {
			return errors.New("numeric questions need a range")
		}
		if q.Range.Min > q.Range.Max {
			return errors.New("range min must not exceed max")
		}
	case QuestionTypeFileUpload:
		if len(q.AcceptedTypes) == 0 {
			return errors.New("file-upload questions need acceptedTypes")
		}
		if q.MaxSize <= 0 {
			return errors.New("maxSize must be positive")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}

	return nil
}
