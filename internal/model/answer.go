package model

import (
	"github.com/google/uuid"
)

// FileRef identifies an uploaded artifact. Presence, not content, is what
// grading looks at.
type FileRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// AnswerValue is a candidate response. Exactly one field is set, matching the
// question variant: an option index, a set of option indices, free text, a
// number, or an uploaded-file reference.
type AnswerValue struct {
	Choice  *int     `json:"choice,omitempty"`
	Choices []int    `json:"choices,omitempty"`
	Text    *string  `json:"text,omitempty"`
	Number  *float64 `json:"number,omitempty"`
	File    *FileRef `json:"file,omitempty"`
}

// ChoiceAnswer builds a single-choice answer value.
func ChoiceAnswer(idx int) AnswerValue {
	return AnswerValue{Choice: &idx}
}

// ChoicesAnswer builds a multi-choice answer value.
func ChoicesAnswer(indices ...int) AnswerValue {
	return AnswerValue{Choices: indices}
}

// TextAnswer builds a text answer value.
func TextAnswer(s string) AnswerValue {
	return AnswerValue{Text: &s}
}

// NumberAnswer builds a numeric answer value.
func NumberAnswer(n float64) AnswerValue {
	return AnswerValue{Number: &n}
}

// FileAnswer builds a file-upload answer value.
func FileAnswer(ref FileRef) AnswerValue {
	return AnswerValue{File: &ref}
}

// AnswerSet maps question IDs to the candidate's responses. A set is owned by
// exactly one taking session and is discarded wholesale on retake.
type AnswerSet map[uuid.UUID]AnswerValue

// Put upserts a response. Edits are last-write-wins: any prior value for the
// question is replaced.
func (s AnswerSet) Put(questionID uuid.UUID, v AnswerValue) {
	s[questionID] = v
}

// Clone returns an independent copy, used when handing a snapshot to the
// grading engine so later edits cannot leak into a graded result.
func (s AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
