package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/talentflow-backend/internal/model"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) NewTicker(time.Duration) Ticker { return &fakeTicker{ch: make(chan time.Time)} }

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

type recordingSink struct {
	mu       sync.Mutex
	calls    int
	failNext int
	results  []*model.Result
	block    chan struct{}
}

func (r *recordingSink) PersistSubmission(ctx context.Context, result *model.Result) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failNext > 0 {
		r.failNext--
		return errors.New("database unavailable")
	}
	r.results = append(r.results, result)
	return nil
}

func (r *recordingSink) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// tickerRunning reports whether a countdown ticker is live. Test-only peek.
func (s *Session) tickerRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker != nil
}

func newChoiceDefinition(n int) *model.AssessmentDefinition {
	def := &model.AssessmentDefinition{
		ID:                  uuid.New(),
		Title:               "Backend Screening",
		TimeLimitMinutes:    30,
		PassingScorePercent: 70,
	}
	for i := 0; i < n; i++ {
		def.Questions = append(def.Questions, model.Question{
			ID:            uuid.New(),
			Order:         i + 1,
			Type:          model.QuestionTypeSingleChoice,
			Text:          "pick the first option",
			Options:       []string{"right", "wrong"},
			CorrectAnswer: model.RawJSON(0),
		})
	}
	return def
}

func newTestSession(t *testing.T, def *model.AssessmentDefinition, sink SubmissionSink) *Session {
	t.Helper()
	if sink == nil {
		sink = &recordingSink{}
	}
	return New(Config{
		AttemptID:   uuid.New(),
		CandidateID: 7,
		Definition:  def,
		Clock:       &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
		Sink:        sink,
	})
}

func TestTickCountsDownMonotonically(t *testing.T) {
	s := newTestSession(t, newChoiceDefinition(2), nil)

	before := s.Snapshot().RemainingSeconds
	if before != 30*60 {
		t.Fatalf("expected full time limit, got %d", before)
	}

	for i := 0; i < 5; i++ {
		s.tick()
	}
	if got := s.Snapshot().RemainingSeconds; got != before-5 {
		t.Fatalf("expected %d remaining, got %d", before-5, got)
	}
}

func TestAdvisoryWindow(t *testing.T) {
	def := newChoiceDefinition(1)
	def.TimeLimitMinutes = 6
	s := newTestSession(t, def, nil)

	if s.Snapshot().AutoSubmitSoon {
		t.Fatal("advisory must not fire above the threshold")
	}
	for i := 0; i < 60; i++ {
		s.tick()
	}
	snap := s.Snapshot()
	if snap.RemainingSeconds != AdvisoryThresholdSeconds {
		t.Fatalf("expected remaining %d, got %d", AdvisoryThresholdSeconds, snap.RemainingSeconds)
	}
	if !snap.AutoSubmitSoon {
		t.Fatal("advisory should fire at the threshold")
	}
}

func TestAutoSubmitFiresExactlyOnce(t *testing.T) {
	def := newChoiceDefinition(2)
	sink := &recordingSink{}
	s := New(Config{
		AttemptID:        uuid.New(),
		CandidateID:      1,
		Definition:       def,
		RemainingSeconds: 2,
		Clock:            &fakeClock{now: time.Now()},
		Sink:             sink,
	})

	s.tick()
	if s.Status() != StatusInProgress {
		t.Fatalf("one second left, expected IN_PROGRESS, got %s", s.Status())
	}

	s.tick()
	if s.Status() != StatusSubmitted {
		t.Fatalf("expected SUBMITTED at zero, got %s", s.Status())
	}

	// Late ticks after submission must not grade or persist again.
	s.tick()
	s.tick()
	if sink.callCount() != 1 {
		t.Fatalf("expected exactly one persist, got %d", sink.callCount())
	}
}

func TestFailedPersistReturnsToConfirmPendingWithAnswersRetained(t *testing.T) {
	def := newChoiceDefinition(2)
	sink := &recordingSink{failNext: 1}
	s := newTestSession(t, def, sink)

	if err := s.Answer(def.Questions[0].ID, model.ChoiceAnswer(0)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, _, err := s.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}

	if _, err := s.ConfirmSubmit(context.Background()); err == nil {
		t.Fatal("expected persistence error")
	}
	if s.Status() != StatusConfirmPending {
		t.Fatalf("expected CONFIRM_PENDING after failed persist, got %s", s.Status())
	}
	if len(s.Answers()) != 1 {
		t.Fatal("answers must be retained after a failed persist")
	}

	result, err := s.ConfirmSubmit(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.Status() != StatusSubmitted {
		t.Fatalf("expected SUBMITTED after retry, got %s", s.Status())
	}
	if result.CorrectCount != 1 || result.TotalQuestions != 2 {
		t.Fatalf("unexpected result: %d/%d", result.CorrectCount, result.TotalQuestions)
	}
}

func TestAnswerEditedAfterFailedPersistIsRegraded(t *testing.T) {
	def := newChoiceDefinition(1)
	sink := &recordingSink{failNext: 1}
	s := newTestSession(t, def, sink)
	qid := def.Questions[0].ID

	if err := s.Answer(qid, model.ChoiceAnswer(1)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, _, err := s.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if _, err := s.ConfirmSubmit(context.Background()); err == nil {
		t.Fatal("expected persistence error")
	}

	// Correct the answer during the retry window.
	if err := s.Answer(qid, model.ChoiceAnswer(0)); err != nil {
		t.Fatalf("edit answer: %v", err)
	}
	if _, _, err := s.RequestSubmit(); err != nil {
		t.Fatalf("re-request submit: %v", err)
	}

	result, err := s.ConfirmSubmit(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.CorrectCount != 1 {
		t.Fatalf("expected the edited answer to be graded, got correctCount=%d", result.CorrectCount)
	}
}

func TestCountdownResumesAfterFailedUserSubmit(t *testing.T) {
	def := newChoiceDefinition(1)
	sink := &recordingSink{failNext: 1}
	s := newTestSession(t, def, sink)

	s.StartTimer()
	if !s.tickerRunning() {
		t.Fatal("countdown should run after StartTimer")
	}

	if _, _, err := s.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if _, err := s.ConfirmSubmit(context.Background()); err == nil {
		t.Fatal("expected persistence error")
	}

	if s.Status() != StatusConfirmPending {
		t.Fatalf("expected CONFIRM_PENDING, got %s", s.Status())
	}
	if !s.tickerRunning() {
		t.Fatal("countdown must resume after a failed user-initiated submit")
	}

	// Expiry can still force the submit; the sink works on the second call.
	for s.Snapshot().RemainingSeconds > 0 {
		s.tick()
	}
	if s.Status() != StatusSubmitted {
		t.Fatalf("expected SUBMITTED after expiry retry, got %s", s.Status())
	}
}

func TestFailedAutoSubmitDoesNotRetryAutomatically(t *testing.T) {
	def := newChoiceDefinition(1)
	sink := &recordingSink{failNext: 1}
	s := New(Config{
		AttemptID:        uuid.New(),
		CandidateID:      1,
		Definition:       def,
		RemainingSeconds: 1,
		Clock:            &fakeClock{now: time.Now()},
		Sink:             sink,
	})

	s.StartTimer()
	s.tick()

	if s.Status() != StatusConfirmPending {
		t.Fatalf("expected CONFIRM_PENDING after failed auto-submit, got %s", s.Status())
	}
	if s.tickerRunning() {
		t.Fatal("countdown must stay stopped at zero; retry is manual")
	}
	if _, err := s.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("manual retry: %v", err)
	}
	if s.Status() != StatusSubmitted {
		t.Fatalf("expected SUBMITTED after manual retry, got %s", s.Status())
	}
}

func TestReentrantSubmitIsRefusedWhileInFlight(t *testing.T) {
	def := newChoiceDefinition(1)
	sink := &recordingSink{block: make(chan struct{})}
	s := newTestSession(t, def, sink)

	if _, _, err := s.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.ConfirmSubmit(context.Background()); err != nil {
			t.Errorf("first submit: %v", err)
		}
	}()

	// Wait until the first submit holds SUBMITTING.
	for s.Status() != StatusSubmitting {
		time.Sleep(time.Millisecond)
	}
	if _, err := s.ConfirmSubmit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(sink.block)
	<-done
	if sink.callCount() != 1 {
		t.Fatalf("expected one persist, got %d", sink.callCount())
	}
}

func TestAnswerLastWriteWinsAndUnknownQuestionRejected(t *testing.T) {
	def := newChoiceDefinition(1)
	s := newTestSession(t, def, nil)
	qid := def.Questions[0].ID

	if err := s.Answer(qid, model.ChoiceAnswer(1)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := s.Answer(qid, model.ChoiceAnswer(0)); err != nil {
		t.Fatalf("re-answer: %v", err)
	}
	answers := s.Answers()
	if got := answers[qid].Choice; got == nil || *got != 0 {
		t.Fatal("expected the later answer to win")
	}

	if err := s.Answer(uuid.New(), model.ChoiceAnswer(0)); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
}

func TestNavigationClampsAtBothEnds(t *testing.T) {
	def := newChoiceDefinition(3)
	s := newTestSession(t, def, nil)

	if got := s.Previous(); got != 0 {
		t.Fatalf("previous at start should clamp to 0, got %d", got)
	}
	if got := s.JumpTo(99); got != 2 {
		t.Fatalf("jump past end should clamp to 2, got %d", got)
	}
	if got := s.Next(); got != 2 {
		t.Fatalf("next at end should clamp to 2, got %d", got)
	}
	if got := s.JumpTo(-5); got != 0 {
		t.Fatalf("negative jump should clamp to 0, got %d", got)
	}
}

func TestAnswerDuringConfirmPendingRollsBack(t *testing.T) {
	def := newChoiceDefinition(2)
	s := newTestSession(t, def, nil)

	answered, total, err := s.RequestSubmit()
	if err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if answered != 0 || total != 2 {
		t.Fatalf("expected 0/2, got %d/%d", answered, total)
	}
	if s.Status() != StatusConfirmPending {
		t.Fatalf("expected CONFIRM_PENDING, got %s", s.Status())
	}

	if err := s.Answer(def.Questions[0].ID, model.ChoiceAnswer(0)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if s.Status() != StatusInProgress {
		t.Fatalf("answering while pending must roll back to IN_PROGRESS, got %s", s.Status())
	}
}

func TestRetakeResetsEverything(t *testing.T) {
	def := newChoiceDefinition(2)
	sink := &recordingSink{}
	s := newTestSession(t, def, sink)

	if err := s.Retake(); !errors.Is(err, ErrRetakeUnavailable) {
		t.Fatalf("retake before submission must fail, got %v", err)
	}

	if err := s.Answer(def.Questions[0].ID, model.ChoiceAnswer(0)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	s.JumpTo(1)
	for i := 0; i < 10; i++ {
		s.tick()
	}
	if _, _, err := s.RequestSubmit(); err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if _, err := s.ConfirmSubmit(context.Background()); err != nil {
		t.Fatalf("confirm submit: %v", err)
	}

	if err := s.Retake(); err != nil {
		t.Fatalf("retake: %v", err)
	}
	snap := s.Snapshot()
	if snap.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", snap.Status)
	}
	if snap.AnsweredCount != 0 {
		t.Fatal("retake must start with an empty answer set")
	}
	if snap.CurrentQuestionIndex != 0 {
		t.Fatal("retake must start at the first question")
	}
	if snap.RemainingSeconds != 30*60 {
		t.Fatalf("retake must restore the full time limit, got %d", snap.RemainingSeconds)
	}
	if _, ok := s.Result(); ok {
		t.Fatal("prior result must not leak into the new run")
	}
}

func TestSessionsDoNotShareState(t *testing.T) {
	def := newChoiceDefinition(1)
	a := newTestSession(t, def, nil)
	b := newTestSession(t, def, nil)

	if err := a.Answer(def.Questions[0].ID, model.ChoiceAnswer(0)); err != nil {
		t.Fatalf("answer: %v", err)
	}
	a.tick()

	if got := b.Snapshot().AnsweredCount; got != 0 {
		t.Fatalf("answers leaked across sessions: %d", got)
	}
	if got := b.Snapshot().RemainingSeconds; got != 30*60 {
		t.Fatalf("timer leaked across sessions: %d", got)
	}
}

func TestManagerResumesSameSession(t *testing.T) {
	m := NewManager()
	def := newChoiceDefinition(1)
	attemptID := uuid.New()

	build := func() (*Session, error) {
		return New(Config{
			AttemptID:  attemptID,
			Definition: def,
			Clock:      &fakeClock{now: time.Now()},
			Sink:       &recordingSink{},
		}), nil
	}

	first, created, err := m.GetOrCreate(attemptID, build)
	if err != nil || !created {
		t.Fatalf("expected fresh session, created=%v err=%v", created, err)
	}
	second, created, err := m.GetOrCreate(attemptID, build)
	if err != nil || created {
		t.Fatalf("expected resume, created=%v err=%v", created, err)
	}
	if first != second {
		t.Fatal("manager must hand back the same session for an attempt")
	}

	m.Remove(attemptID)
	if _, ok := m.Get(attemptID); ok {
		t.Fatal("session should be gone after Remove")
	}
}
