package model

import (
	"testing"
)

func TestNormalizedTreatsEmptyTypeAsSingleChoice(t *testing.T) {
	if QuestionType("").Normalized() != QuestionTypeSingleChoice {
		t.Fatal("legacy empty type must normalize to single-choice")
	}
	if QuestionTypeNumeric.Normalized() != QuestionTypeNumeric {
		t.Fatal("explicit types must pass through unchanged")
	}
}

func TestNewQuestionTemplatesAreValidOnceTextIsSet(t *testing.T) {
	for _, qt := range QuestionTypes {
		q := NewQuestion(qt)
		q.Text = "placeholder"
		if err := q.Validate(); err != nil {
			t.Fatalf("template for %s should validate: %v", qt, err)
		}
		if !q.Required {
			t.Fatalf("template for %s should default to required", qt)
		}
	}
}

func TestCorrectAnswerAccessors(t *testing.T) {
	q := Question{CorrectAnswer: RawJSON(2)}
	if idx, ok := q.CorrectChoice(); !ok || idx != 2 {
		t.Fatalf("CorrectChoice = %d, %v", idx, ok)
	}

	q = Question{CorrectAnswer: RawJSON(37.5)}
	if n, ok := q.CorrectNumber(); !ok || n != 37.5 {
		t.Fatalf("CorrectNumber = %v, %v", n, ok)
	}

	q = Question{CorrectAnswer: RawJSON("answer")}
	if s, ok := q.CorrectText(); !ok || s != "answer" {
		t.Fatalf("CorrectText = %q, %v", s, ok)
	}

	q = Question{}
	if _, ok := q.CorrectChoice(); ok {
		t.Fatal("missing reference answer must report !ok")
	}
}

func TestIsAnsweredPerVariant(t *testing.T) {
	empty := ""
	blank := "   "
	filled := "something"

	cases := []struct {
		name     string
		qt       QuestionType
		value    AnswerValue
		answered bool
	}{
		{"single choice set", QuestionTypeSingleChoice, ChoiceAnswer(0), true},
		{"single choice unset", QuestionTypeSingleChoice, AnswerValue{}, false},
		{"legacy type choice", "", ChoiceAnswer(1), true},
		{"multi choice nonempty", QuestionTypeMultiChoice, ChoicesAnswer(1), true},
		{"multi choice empty", QuestionTypeMultiChoice, ChoicesAnswer(), false},
		{"short text filled", QuestionTypeShortText, TextAnswer(filled), true},
		{"short text empty", QuestionTypeShortText, TextAnswer(empty), false},
		{"short text whitespace", QuestionTypeShortText, TextAnswer(blank), false},
		{"long text filled", QuestionTypeLongText, TextAnswer(filled), true},
		{"numeric zero is an answer", QuestionTypeNumeric, NumberAnswer(0), true},
		{"numeric unset", QuestionTypeNumeric, AnswerValue{}, false},
		{"file present", QuestionTypeFileUpload, FileAnswer(FileRef{Name: "cv.pdf"}), true},
		{"file missing name", QuestionTypeFileUpload, FileAnswer(FileRef{}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Question{Type: tc.qt}
			if got := q.IsAnswered(tc.value); got != tc.answered {
				t.Fatalf("IsAnswered = %v, want %v", got, tc.answered)
			}
		})
	}
}

func TestValidateRejectsStructuralDefects(t *testing.T) {
	tooSmall := -1
	cases := []struct {
		name string
		q    Question
	}{
		{"empty text", func() Question {
			q := NewQuestion(QuestionTypeSingleChoice)
			return q
		}()},
		{"one option", func() Question {
			q := NewQuestion(QuestionTypeSingleChoice)
			q.Text = "t"
			q.Options = []string{"only"}
			return q
		}()},
		{"correct index out of range", func() Question {
			q := NewQuestion(QuestionTypeSingleChoice)
			q.Text = "t"
			q.CorrectAnswer = RawJSON(5)
			return q
		}()},
		{"multi correct index out of range", func() Question {
			q := NewQuestion(QuestionTypeMultiChoice)
			q.Text = "t"
			q.CorrectAnswers = []int{0, 9}
			return q
		}()},
		{"negative min length", func() Question {
			q := NewQuestion(QuestionTypeLongText)
			q.Text = "t"
			q.MinLength = &tooSmall
			return q
		}()},
		{"inverted numeric range", func() Question {
			q := NewQuestion(QuestionTypeNumeric)
			q.Text = "t"
			q.Range = &NumericRange{Min: 10, Max: 1}
			return q
		}()},
		{"file upload without accepted types", func() Question {
			q := NewQuestion(QuestionTypeFileUpload)
			q.Text = "t"
			q.AcceptedTypes = nil
			return q
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.q.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
