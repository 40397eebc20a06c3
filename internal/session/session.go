// Package session owns the timed taking flow of one assessment attempt: an
// explicit state machine driven by user actions and a 1-second countdown.
// Each session exclusively owns its answer set and its ticker; nothing is
// shared between sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/talentflow-backend/internal/grading"
	"github.com/talentflow/talentflow-backend/internal/model"
)

// Status enumerates the live states of a taking session.
type Status string

const (
	StatusInProgress     Status = "IN_PROGRESS"
	StatusConfirmPending Status = "CONFIRM_PENDING"
	StatusSubmitting     Status = "SUBMITTING"
	StatusSubmitted      Status = "SUBMITTED"
)

// AdvisoryThresholdSeconds is the countdown point below which the session
// surfaces an "auto-submit is imminent" advisory. Presentation-only.
const AdvisoryThresholdSeconds = 5 * 60

// submitTimeout bounds the persistence call made from the timer path.
const submitTimeout = 10 * time.Second

// Domain errors.
var (
	ErrNotInProgress     = errors.New("session is not in progress")
	ErrAlreadySubmitted  = errors.New("session is already submitted")
	ErrSubmitInFlight    = errors.New("submission already in flight")
	ErrRetakeUnavailable = errors.New("retake is only available after submission")
	ErrUnknownQuestion   = errors.New("question is not part of this assessment")
)

// SubmissionSink receives the graded result for persistence. A returned error
// puts the session back into CONFIRM_PENDING with all answers retained, so
// the candidate can retry on demand.
type SubmissionSink interface {
	PersistSubmission(ctx context.Context, result *model.Result) error
}

// Notifier receives progress ticks and the completion event. Implementations
// must not block; the WebSocket layer fans these out to the client.
type Notifier interface {
	Progress(attemptID uuid.UUID, p Progress)
	Completed(attemptID uuid.UUID, result *model.Result)
}

// Progress is the counter snapshot emitted on every state-affecting event.
type Progress struct {
	AnsweredCount    int    `json:"answeredCount"`
	TotalQuestions   int    `json:"totalQuestions"`
	RemainingSeconds int    `json:"remainingSeconds"`
	AutoSubmitSoon   bool   `json:"autoSubmitSoon"`
	Status           Status `json:"status"`
}

// Snapshot is the full recoverable view of a session.
type Snapshot struct {
	AttemptID            uuid.UUID `json:"attemptId"`
	Status               Status    `json:"status"`
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	AnsweredCount        int       `json:"answeredCount"`
	TotalQuestions       int       `json:"totalQuestions"`
	RemainingSeconds     int       `json:"remainingSeconds"`
	AutoSubmitSoon       bool      `json:"autoSubmitSoon"`
}

// Config assembles a session. Definition and Sink are required. Answers and
// RemainingSeconds restore a recovered attempt; zero values mean a fresh
// start with the definition's full time limit.
type Config struct {
	AttemptID        uuid.UUID
	CandidateID      int
	Definition       *model.AssessmentDefinition
	Answers          model.AnswerSet
	RemainingSeconds int
	Clock            Clock
	Sink             SubmissionSink
	Notifier         Notifier
}

// Session is the per-attempt state machine. All exported methods are safe for
// concurrent use; the Submitting status doubles as a mutex so at most one
// grading invocation happens per submission cycle.
type Session struct {
	attemptID   uuid.UUID
	candidateID int

	mu        sync.Mutex
	def       *model.AssessmentDefinition
	answers   model.AnswerSet
	current   int
	remaining int
	status    Status
	result    *model.Result

	clock      Clock
	sink       SubmissionSink
	notifier   Notifier
	ticker     Ticker
	tickerDone chan struct{}
}

// New builds a session in IN_PROGRESS. The countdown does not run until
// StartTimer is called.
func New(cfg Config) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}

	answers := cfg.Answers
	if answers == nil {
		answers = make(model.AnswerSet)
	}

	remaining := cfg.RemainingSeconds
	if remaining <= 0 {
		remaining = cfg.Definition.TimeLimitMinutes * 60
	}

	return &Session{
		attemptID:   cfg.AttemptID,
		candidateID: cfg.CandidateID,
		def:         cfg.Definition,
		answers:     answers,
		remaining:   remaining,
		status:      StatusInProgress,
		clock:       clock,
		sink:        cfg.Sink,
		notifier:    cfg.Notifier,
	}
}

// AttemptID returns the attempt this session belongs to.
func (s *Session) AttemptID() uuid.UUID { return s.attemptID }

// CandidateID returns the owning candidate.
func (s *Session) CandidateID() int { return s.candidateID }

// StartTimer begins the 1-second countdown. Idempotent: a session never runs
// two tickers at once.
func (s *Session) StartTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress && s.status != StatusConfirmPending {
		return
	}
	s.startTickerLocked()
}

func (s *Session) startTickerLocked() {
	if s.ticker != nil {
		return
	}
	t := s.clock.NewTicker(time.Second)
	done := make(chan struct{})
	s.ticker = t
	s.tickerDone = done

	go func() {
		for {
			select {
			case <-t.C():
				s.tick()
			case <-done:
				return
			}
		}
	}()
}

// stopTickerLocked cancels the countdown deterministically. Called whenever
// the session leaves IN_PROGRESS/CONFIRM_PENDING and when time expires.
func (s *Session) stopTickerLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.tickerDone)
	s.ticker = nil
	s.tickerDone = nil
}

// tick advances the countdown by one second. Reaching zero triggers exactly
// one transition into SUBMITTING.
func (s *Session) tick() {
	s.mu.Lock()
	if s.status != StatusInProgress && s.status != StatusConfirmPending {
		s.stopTickerLocked()
		s.mu.Unlock()
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	expired := s.remaining == 0
	if expired {
		s.stopTickerLocked()
	}
	progress := s.progressLocked()
	s.mu.Unlock()

	s.notifyProgress(progress)

	if expired {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		// Auto-submit. A persistence failure leaves the session in
		// CONFIRM_PENDING so the candidate can retry manually.
		_, _ = s.submit(ctx)
	}
}

// Answer stores a response, replacing any prior value for the question
// (last write wins). Accepted in IN_PROGRESS and CONFIRM_PENDING; answering
// while a confirmation is pending rolls the session back to IN_PROGRESS.
func (s *Session) Answer(questionID uuid.UUID, value model.AnswerValue) error {
	s.mu.Lock()
	if s.status != StatusInProgress && s.status != StatusConfirmPending {
		s.mu.Unlock()
		return ErrNotInProgress
	}
	if s.def.QuestionByID(questionID) == nil {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}

	s.answers.Put(questionID, value)
	// Invalidate any result graded before a failed persist; the next submit
	// must grade the edited answer set, not the stale one.
	s.result = nil
	if s.status == StatusConfirmPending {
		s.status = StatusInProgress
	}
	progress := s.progressLocked()
	s.mu.Unlock()

	s.notifyProgress(progress)
	return nil
}

// Next moves to the following question, clamped to the last one.
func (s *Session) Next() int { return s.JumpTo(s.CurrentIndex() + 1) }

// Previous moves to the preceding question, clamped to the first one.
func (s *Session) Previous() int { return s.JumpTo(s.CurrentIndex() - 1) }

// JumpTo navigates to the given question index. Out-of-range indices are
// silently clamped, never an error. Navigation outside IN_PROGRESS is a
// no-op returning the current position.
func (s *Session) JumpTo(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return s.current
	}
	if index < 0 {
		index = 0
	}
	if max := len(s.def.Questions) - 1; index > max {
		index = max
	}
	if index < 0 {
		index = 0
	}
	s.current = index
	return s.current
}

// CurrentIndex returns the current navigation position.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// RequestSubmit moves IN_PROGRESS → CONFIRM_PENDING and reports how many
// questions are answered so the client can ask for confirmation.
func (s *Session) RequestSubmit() (answered, total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusInProgress:
		s.status = StatusConfirmPending
	case StatusConfirmPending:
		// Already pending; just report counts again.
	case StatusSubmitting:
		return 0, 0, ErrSubmitInFlight
	default:
		return 0, 0, ErrAlreadySubmitted
	}

	return s.answeredCountLocked(), len(s.def.Questions), nil
}

// ConfirmSubmit grades the current answer set and hands the result to the
// sink. On persistence failure the session returns to CONFIRM_PENDING with
// all answers retained and the error is reported to the caller.
func (s *Session) ConfirmSubmit(ctx context.Context) (*model.Result, error) {
	return s.submit(ctx)
}

// submit is the single entry into SUBMITTING, shared by user confirmation and
// countdown expiry. Re-entrant calls while a submit is in flight are refused
// with ErrSubmitInFlight; callers treat that as a silent no-op.
func (s *Session) submit(ctx context.Context) (*model.Result, error) {
	s.mu.Lock()
	switch s.status {
	case StatusSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	case StatusSubmitted:
		result := s.result
		s.mu.Unlock()
		return result, nil
	}

	s.status = StatusSubmitting
	s.stopTickerLocked()

	// Grade at most once per submission cycle. A retry after a failed
	// persist reuses the already-computed result unless an answer was
	// edited in between, which clears it; the answer set cannot change
	// while SUBMITTING.
	if s.result == nil {
		result := grading.Grade(s.def, s.answers.Clone())
		result.AttemptID = s.attemptID
		result.CandidateID = s.candidateID
		result.SubmittedAt = s.clock.Now().UTC()
		s.result = result
	}
	result := s.result
	s.mu.Unlock()

	if err := s.sink.PersistSubmission(ctx, result); err != nil {
		s.mu.Lock()
		if s.status == StatusSubmitting {
			s.status = StatusConfirmPending
			// Resume the countdown so expiry can still force a submit.
			// At zero the ticker stays stopped; a failed auto-submit
			// waits for a manual retry instead of looping.
			if s.remaining > 0 {
				s.startTickerLocked()
			}
		}
		progress := s.progressLocked()
		s.mu.Unlock()
		s.notifyProgress(progress)
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	s.mu.Lock()
	s.status = StatusSubmitted
	progress := s.progressLocked()
	s.mu.Unlock()

	s.notifyProgress(progress)
	if s.notifier != nil {
		s.notifier.Completed(s.attemptID, result)
	}
	return result, nil
}

// Retake resets the session to a fresh run: empty answer set, first question,
// full time limit, countdown restarted. Only valid after submission.
func (s *Session) Retake() error {
	s.mu.Lock()
	if s.status != StatusSubmitted {
		s.mu.Unlock()
		return ErrRetakeUnavailable
	}

	s.answers = make(model.AnswerSet)
	s.current = 0
	s.remaining = s.def.TimeLimitMinutes * 60
	s.result = nil
	s.status = StatusInProgress
	s.startTickerLocked()
	progress := s.progressLocked()
	s.mu.Unlock()

	s.notifyProgress(progress)
	return nil
}

// Result returns the graded result once the session is SUBMITTED.
func (s *Session) Result() (*model.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusSubmitted {
		return nil, false
	}
	return s.result, true
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Answers returns a copy of the current answer set.
func (s *Session) Answers() model.AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Clone()
}

// Snapshot returns the recoverable view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		AttemptID:            s.attemptID,
		Status:               s.status,
		CurrentQuestionIndex: s.current,
		AnsweredCount:        s.answeredCountLocked(),
		TotalQuestions:       len(s.def.Questions),
		RemainingSeconds:     s.remaining,
		AutoSubmitSoon:       s.autoSubmitSoonLocked(),
	}
}

func (s *Session) answeredCountLocked() int {
	count := 0
	for i := range s.def.Questions {
		q := &s.def.Questions[i]
		if v, ok := s.answers[q.ID]; ok && q.IsAnswered(v) {
			count++
		}
	}
	return count
}

func (s *Session) autoSubmitSoonLocked() bool {
	active := s.status == StatusInProgress || s.status == StatusConfirmPending
	return active && s.remaining <= AdvisoryThresholdSeconds
}

func (s *Session) progressLocked() Progress {
	return Progress{
		AnsweredCount:    s.answeredCountLocked(),
		TotalQuestions:   len(s.def.Questions),
		RemainingSeconds: s.remaining,
		AutoSubmitSoon:   s.autoSubmitSoonLocked(),
		Status:           s.status,
	}
}

func (s *Session) notifyProgress(p Progress) {
	if s.notifier != nil {
		s.notifier.Progress(s.attemptID, p)
	}
}

// Close stops the countdown without submitting. Used when the candidate
// navigates away: session state is discarded with no compensating action.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickerLocked()
}
