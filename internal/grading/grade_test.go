package grading

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/talentflow/talentflow-backend/internal/model"
)

func question(t model.QuestionType, order int, mutate func(*model.Question)) model.Question {
	q := model.NewQuestion(t)
	q.Order = order
	q.Text = "q"
	if mutate != nil {
		mutate(&q)
	}
	return q
}

func TestGradeSingleChoice(t *testing.T) {
	def := &model.AssessmentDefinition{
		ID:                  uuid.New(),
		PassingScorePercent: 50,
		Questions: []model.Question{
			question(model.QuestionTypeSingleChoice, 1, func(q *model.Question) {
				q.Options = []string{"a", "b", "c"}
				q.CorrectAnswer = model.RawJSON(1)
			}),
		},
	}
	qid := def.Questions[0].ID

	cases := []struct {
		name    string
		answers model.AnswerSet
		correct bool
	}{
		{"matching index", model.AnswerSet{qid: model.ChoiceAnswer(1)}, true},
		{"wrong index", model.AnswerSet{qid: model.ChoiceAnswer(2)}, false},
		{"unanswered", model.AnswerSet{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Grade(def, tc.answers)
			if r.PerQuestionDetail[0].IsCorrect != tc.correct {
				t.Fatalf("isCorrect = %v, want %v", r.PerQuestionDetail[0].IsCorrect, tc.correct)
			}
		})
	}
}

func TestGradeMultiChoiceIsOrderIndependent(t *testing.T) {
	def := &model.AssessmentDefinition{
		ID: uuid.New(),
		Questions: []model.Question{
			question(model.QuestionTypeMultiChoice, 1, func(q *model.Question) {
				q.Options = []string{"a", "b", "c"}
				q.CorrectAnswers = []int{0, 2}
			}),
		},
	}
	qid := def.Questions[0].ID

	cases := []struct {
		name    string
		choices []int
		correct bool
	}{
		{"same order", []int{0, 2}, true},
		{"reversed order", []int{2, 0}, true},
		{"duplicates collapse", []int{0, 2, 2}, true},
		{"subset", []int{0}, false},
		{"superset", []int{0, 1, 2}, false},
		{"empty", []int{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Grade(def, model.AnswerSet{qid: model.ChoicesAnswer(tc.choices...)})
			if r.PerQuestionDetail[0].IsCorrect != tc.correct {
				t.Fatalf("choices %v: isCorrect = %v, want %v",
					tc.choices, r.PerQuestionDetail[0].IsCorrect, tc.correct)
			}
		})
	}
}

func TestGradeShortText(t *testing.T) {
	withRef := question(model.QuestionTypeShortText, 1, func(q *model.Question) {
		q.CorrectAnswer = model.RawJSON("Goroutine")
	})
	noRef := question(model.QuestionTypeShortText, 2, func(q *model.Question) {
		q.CorrectAnswer = nil
	})
	def := &model.AssessmentDefinition{ID: uuid.New(), Questions: []model.Question{withRef, noRef}}

	r := Grade(def, model.AnswerSet{
		withRef.ID: model.TextAnswer("  goroutine "),
		noRef.ID:   model.TextAnswer("anything"),
	})

	if !r.PerQuestionDetail[0].IsCorrect {
		t.Fatal("trimmed case-insensitive match must grade correct")
	}
	if r.PerQuestionDetail[1].IsCorrect {
		t.Fatal("no reference answer means never auto-correct")
	}
	if !r.PerQuestionDetail[1].NeedsReview {
		t.Fatal("answered question without a reference must be flagged for review")
	}
}

func TestGradeLongTextByMinLength(t *testing.T) {
	minLen := 10
	def := &model.AssessmentDefinition{
		ID: uuid.New(),
		Questions: []model.Question{
			question(model.QuestionTypeLongText, 1, func(q *model.Question) {
				q.MinLength = &minLen
			}),
		},
	}
	qid := def.Questions[0].ID

	if r := Grade(def, model.AnswerSet{qid: model.TextAnswer("long enough answer")}); !r.PerQuestionDetail[0].IsCorrect {
		t.Fatal("text meeting minLength must grade correct")
	}
	if r := Grade(def, model.AnswerSet{qid: model.TextAnswer("short")}); r.PerQuestionDetail[0].IsCorrect {
		t.Fatal("text below minLength must grade wrong")
	}
	if r := Grade(def, model.AnswerSet{qid: model.TextAnswer("   padded    ")}); r.PerQuestionDetail[0].IsCorrect {
		t.Fatal("surrounding whitespace must not count toward minLength")
	}
}

func TestGradeNumericExactEquality(t *testing.T) {
	def := &model.AssessmentDefinition{
		ID: uuid.New(),
		Questions: []model.Question{
			question(model.QuestionTypeNumeric, 1, func(q *model.Question) {
				q.CorrectAnswer = model.RawJSON(30.0)
			}),
		},
	}
	qid := def.Questions[0].ID

	if r := Grade(def, model.AnswerSet{qid: model.NumberAnswer(30)}); !r.PerQuestionDetail[0].IsCorrect {
		t.Fatal("exact value must grade correct")
	}
	if r := Grade(def, model.AnswerSet{qid: model.NumberAnswer(29.999)}); r.PerQuestionDetail[0].IsCorrect {
		t.Fatal("no tolerance: 29.999 must grade wrong against 30")
	}
}

func TestGradeFileUploadPresence(t *testing.T) {
	def := &model.AssessmentDefinition{
		ID:        uuid.New(),
		Questions: []model.Question{question(model.QuestionTypeFileUpload, 1, nil)},
	}
	qid := def.Questions[0].ID

	r := Grade(def, model.AnswerSet{qid: model.FileAnswer(model.FileRef{Name: "cv.pdf", Size: 1024})})
	if !r.PerQuestionDetail[0].IsCorrect {
		t.Fatal("a present file reference must grade correct")
	}
	if r := Grade(def, model.AnswerSet{}); r.PerQuestionDetail[0].IsCorrect {
		t.Fatal("missing file must grade wrong")
	}
}

func TestGradeAggregateAndInclusivePassBoundary(t *testing.T) {
	def := &model.AssessmentDefinition{ID: uuid.New(), PassingScorePercent: 70}
	for i := 0; i < 10; i++ {
		def.Questions = append(def.Questions, question(model.QuestionTypeSingleChoice, i+1, func(q *model.Question) {
			q.Options = []string{"a", "b"}
			q.CorrectAnswer = model.RawJSON(0)
		}))
	}

	answers := make(model.AnswerSet)
	for i := 0; i < 7; i++ {
		answers[def.Questions[i].ID] = model.ChoiceAnswer(0)
	}
	for i := 7; i < 10; i++ {
		answers[def.Questions[i].ID] = model.ChoiceAnswer(1)
	}

	r := Grade(def, answers)
	if r.CorrectCount != 7 || r.WrongCount != 3 || r.TotalQuestions != 10 {
		t.Fatalf("aggregate mismatch: %d correct, %d wrong of %d", r.CorrectCount, r.WrongCount, r.TotalQuestions)
	}
	if r.Percentage != 70 {
		t.Fatalf("percentage = %d, want 70", r.Percentage)
	}
	if !r.Passed {
		t.Fatal("70 at threshold 70 must pass (inclusive)")
	}

	def.PassingScorePercent = 71
	if r := Grade(def, answers); r.Passed {
		t.Fatal("70 at threshold 71 must fail")
	}
}

func TestGradeIsDeterministic(t *testing.T) {
	def := &model.AssessmentDefinition{ID: uuid.New(), PassingScorePercent: 50}
	def.Questions = append(def.Questions,
		question(model.QuestionTypeSingleChoice, 1, func(q *model.Question) {
			q.Options = []string{"a", "b"}
			q.CorrectAnswer = model.RawJSON(0)
		}),
		question(model.QuestionTypeMultiChoice, 2, func(q *model.Question) {
			q.Options = []string{"a", "b", "c"}
			q.CorrectAnswers = []int{1, 2}
		}),
		question(model.QuestionTypeShortText, 3, func(q *model.Question) {
			q.CorrectAnswer = model.RawJSON("ok")
		}),
	)
	answers := model.AnswerSet{
		def.Questions[0].ID: model.ChoiceAnswer(0),
		def.Questions[1].ID: model.ChoicesAnswer(2, 1),
		def.Questions[2].ID: model.TextAnswer("OK"),
	}

	first, _ := json.Marshal(Grade(def, answers))
	for i := 0; i < 20; i++ {
		next, _ := json.Marshal(Grade(def, answers))
		if string(first) != string(next) {
			t.Fatalf("grading diverged on run %d", i)
		}
	}
}

func TestGradeEmptyDefinition(t *testing.T) {
	def := &model.AssessmentDefinition{ID: uuid.New(), PassingScorePercent: 70}
	r := Grade(def, model.AnswerSet{})
	if r.Percentage != 0 || r.TotalQuestions != 0 {
		t.Fatalf("empty definition should grade to zero, got %d%% of %d", r.Percentage, r.TotalQuestions)
	}
}

func TestRedactCorrectAnswersKeepsWrongOnes(t *testing.T) {
	def := &model.AssessmentDefinition{ID: uuid.New()}
	def.Questions = append(def.Questions,
		question(model.QuestionTypeSingleChoice, 1, func(q *model.Question) {
			q.Options = []string{"a", "b"}
			q.CorrectAnswer = model.RawJSON(0)
		}),
		question(model.QuestionTypeSingleChoice, 2, func(q *model.Question) {
			q.Options = []string{"a", "b"}
			q.CorrectAnswer = model.RawJSON(1)
		}),
	)
	answers := model.AnswerSet{
		def.Questions[0].ID: model.ChoiceAnswer(0), // correct
		def.Questions[1].ID: model.ChoiceAnswer(0), // wrong
	}

	r := Grade(def, answers)
	r.RedactCorrectAnswers()

	if r.PerQuestionDetail[0].CorrectAnswer != nil {
		t.Fatal("correct answers should be redacted for correctly answered questions")
	}
	if r.PerQuestionDetail[1].CorrectAnswer == nil {
		t.Fatal("the reference answer must survive for wrong answers")
	}
}
