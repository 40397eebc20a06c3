package model

import (
	"testing"

	"github.com/google/uuid"
)

func draftWith(n int) *AssessmentDefinition {
	d := &AssessmentDefinition{
		ID:               uuid.New(),
		Title:            "Frontend Screening",
		TimeLimitMinutes: 20,
		Status:           AssessmentStatusDraft,
	}
	for i := 0; i < n; i++ {
		q := d.AddQuestion(QuestionTypeSingleChoice)
		q.Text = "q"
	}
	return d
}

func TestAddQuestionAssignsSequentialOrder(t *testing.T) {
	d := draftWith(3)
	for i, q := range d.Questions {
		if q.Order != i+1 {
			t.Fatalf("question %d has order %d", i, q.Order)
		}
	}
}

func TestDeleteQuestionLeavesOrderGaps(t *testing.T) {
	d := draftWith(3)
	if err := d.DeleteQuestion(d.Questions[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(d.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(d.Questions))
	}
	if d.Questions[0].Order != 1 || d.Questions[1].Order != 3 {
		t.Fatalf("delete must not renumber: got orders %d, %d",
			d.Questions[0].Order, d.Questions[1].Order)
	}

	// The next added question continues past the highest surviving order.
	q := d.AddQuestion(QuestionTypeShortText)
	if q.Order != 4 {
		t.Fatalf("expected order 4 after gap, got %d", q.Order)
	}
}

func TestDeleteUnknownQuestion(t *testing.T) {
	d := draftWith(1)
	if err := d.DeleteQuestion(uuid.New()); err != ErrQuestionNotFound {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestReorderRenumbersContiguously(t *testing.T) {
	d := draftWith(3)
	a, b, c := d.Questions[0].ID, d.Questions[1].ID, d.Questions[2].ID

	if err := d.ReorderQuestions([]uuid.UUID{c, a, b}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	want := []uuid.UUID{c, a, b}
	for i, q := range d.Questions {
		if q.ID != want[i] {
			t.Fatalf("position %d holds the wrong question", i)
		}
		if q.Order != i+1 {
			t.Fatalf("position %d has order %d, want %d", i, q.Order, i+1)
		}
	}
}

func TestReorderRejectsPartialOrDuplicateLists(t *testing.T) {
	d := draftWith(3)
	a, b := d.Questions[0].ID, d.Questions[1].ID

	if err := d.ReorderQuestions([]uuid.UUID{a, b}); err == nil {
		t.Fatal("partial reorder list must be rejected")
	}
	if err := d.ReorderQuestions([]uuid.UUID{a, a, b}); err == nil {
		t.Fatal("duplicate IDs must be rejected")
	}
	if err := d.ReorderQuestions([]uuid.UUID{a, b, uuid.New()}); err == nil {
		t.Fatal("unknown IDs must be rejected")
	}
}

func TestUpdateQuestionMergesPatchAndKeepsIdentity(t *testing.T) {
	d := draftWith(2)
	target := d.Questions[1]

	text := "What is a goroutine?"
	required := false
	updated, err := d.UpdateQuestion(target.ID, QuestionPatch{
		Text:     &text,
		Required: &required,
		Options:  []string{"a lightweight thread", "a package", "a channel"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.ID != target.ID || updated.Order != target.Order {
		t.Fatal("patching must never change ID or order")
	}
	if updated.Text != text || updated.Required {
		t.Fatal("patched fields did not stick")
	}
	if len(updated.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(updated.Options))
	}
}

func TestUpdateQuestionTypeSwitchReappliesTemplate(t *testing.T) {
	d := draftWith(1)
	target := d.Questions[0]
	text := "How many retries?"
	if _, err := d.UpdateQuestion(target.ID, QuestionPatch{Text: &text}); err != nil {
		t.Fatalf("update: %v", err)
	}

	numeric := QuestionTypeNumeric
	updated, err := d.UpdateQuestion(target.ID, QuestionPatch{Type: &numeric})
	if err != nil {
		t.Fatalf("type switch: %v", err)
	}

	if updated.ID != target.ID || updated.Order != target.Order {
		t.Fatal("type switch must preserve ID and order")
	}
	if updated.Text != text {
		t.Fatal("type switch must preserve the question text")
	}
	if updated.Options != nil || updated.CorrectAnswer != nil {
		t.Fatal("choice fields must be cleared after switching to numeric")
	}
	if updated.Range == nil {
		t.Fatal("numeric template must be applied on type switch")
	}
}

func TestUpdateUnknownQuestion(t *testing.T) {
	d := draftWith(1)
	if _, err := d.UpdateQuestion(uuid.New(), QuestionPatch{}); err != ErrQuestionNotFound {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}
