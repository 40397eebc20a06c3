package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentflow/talentflow-backend/internal/config"
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/repository"
)

// Domain errors.
var (
	ErrAssessmentNotAvailable = errors.New("assessment is not available for taking")
	ErrInvalidInviteToken     = errors.New("invalid invite token")
	ErrAttemptCompleted       = errors.New("attempt is already completed")
)

// AttemptService handles the candidate-side attempt lifecycle: lobby,
// starting (and retaking), state recovery, and submission persistence.
type AttemptService struct {
	attemptRepo    *repository.AttemptRepository
	assessmentRepo *repository.AssessmentRepository
	submissionRepo *repository.SubmissionRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	assessmentRepo *repository.AssessmentRepository,
	submissionRepo *repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo:    attemptRepo,
		assessmentRepo: assessmentRepo,
		submissionRepo: submissionRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "attempt_service").Logger(),
	}
}

// LobbyStatus represents the concrete state of an assessment in the lobby.
type LobbyStatus string

const (
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
)

// LobbyAssessment is an assessment as displayed in the candidate lobby:
// header fields only, never the questions.
type LobbyAssessment struct {
	ID                  uuid.UUID   `json:"id"`
	Title               string      `json:"title"`
	Description         string      `json:"description,omitempty"`
	TimeLimitMinutes    int         `json:"timeLimitMinutes"`
	QuestionCount       int         `json:"questionCount"`
	LobbyStatus         LobbyStatus `json:"lobbyStatus"`
	FinalPercentage     *int        `json:"finalPercentage,omitempty"`
	PassingScorePercent int         `json:"passingScorePercent"`
}

// GetLobby returns the published assessments for the candidate's job, with
// the candidate's attempt status overlaid.
func (s *AttemptService) GetLobby(ctx context.Context, candidateID int, jobID uuid.UUID) ([]LobbyAssessment, error) {
	assessments, _, err := s.assessmentRepo.ListByJobPaginated(ctx, &jobID, 100, 0)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}

	lobby := []LobbyAssessment{}
	for i := range assessments {
		a := &assessments[i]
		if a.Status != model.AssessmentStatusPublished {
			continue
		}

		entry := LobbyAssessment{
			ID:                  a.ID,
			Title:               a.Title,
			Description:         a.Description,
			TimeLimitMinutes:    a.TimeLimitMinutes,
			QuestionCount:       len(a.Questions),
			LobbyStatus:         LobbyStatusAvailable,
			PassingScorePercent: a.PassingScorePercent,
		}

		attempt, err := s.attemptRepo.GetForCandidate(ctx, a.ID, candidateID)
		if err == nil {
			if attempt.Status == model.AttemptStatusCompleted {
				entry.LobbyStatus = LobbyStatusCompleted
				entry.FinalPercentage = attempt.FinalPercentage
			} else {
				entry.LobbyStatus = LobbyStatusInProgress
			}
		} else if !errors.Is(err, repository.ErrNoActiveAttempt) {
			return nil, fmt.Errorf("get attempt: %w", err)
		}

		lobby = append(lobby, entry)
	}

	return lobby, nil
}

// Start validates the invite token and opens an attempt for the candidate.
//
// Idempotent for an attempt already in progress: refreshing or rejoining
// returns the existing attempt with its original start time, never a fresh
// clock. A completed attempt is reset for a retake: new start time, and the
// previous run's autosaved answers are wiped so nothing leaks across runs.
func (s *AttemptService) Start(ctx context.Context, assessmentID uuid.UUID, candidateID int, inviteToken string) (*model.Attempt, error) {
	def, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}

	if def.Status != model.AssessmentStatusPublished {
		return nil, ErrAssessmentNotAvailable
	}
	if def.InviteToken != "" && def.InviteToken != inviteToken {
		return nil, ErrInvalidInviteToken
	}

	existing, err := s.attemptRepo.GetForCandidate(ctx, assessmentID, candidateID)
	if err != nil && !errors.Is(err, repository.ErrNoActiveAttempt) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}

	if existing != nil && existing.Status == model.AttemptStatusInProgress {
		// Rejoin: make sure Redis has the start time, then hand the
		// attempt back unchanged.
		startKey := config.CacheKey.AttemptStartKey(candidateID, assessmentID.String())
		_ = s.rdb.Set(ctx, startKey, existing.StartedAt.Unix(), 0)
		return existing, nil
	}

	retake := existing != nil

	attempt, err := s.attemptRepo.Start(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("start attempt: %w", err)
	}

	pipe := s.rdb.Pipeline()
	if retake {
		pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(candidateID, assessmentID.String()))
	}
	pipe.Set(ctx, config.CacheKey.AttemptStartKey(candidateID, assessmentID.String()), attempt.StartedAt.Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		// The fallback in GetAttemptState reads PostgreSQL, so the
		// attempt is still usable.
		s.log.Warn().Err(err).
			Str("assessment_id", assessmentID.String()).
			Int("candidate_id", candidateID).
			Msg("Failed to cache start time")
	}

	return attempt, nil
}

// Retake resets a completed attempt for a fresh run: new start time, wiped
// autosave buffers. The invite token was already validated on the first
// start, so it is not re-checked here.
func (s *AttemptService) Retake(ctx context.Context, assessmentID uuid.UUID, candidateID int) (*model.Attempt, error) {
	existing, err := s.attemptRepo.GetForCandidate(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if existing.Status != model.AttemptStatusCompleted {
		return nil, errors.New("retake requires a completed attempt")
	}

	attempt, err := s.attemptRepo.Start(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("reset attempt: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(candidateID, assessmentID.String()))
	pipe.Set(ctx, config.CacheKey.AttemptStartKey(candidateID, assessmentID.String()), attempt.StartedAt.Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).
			Str("assessment_id", assessmentID.String()).
			Int("candidate_id", candidateID).
			Msg("Failed to reset attempt cache")
	}

	return attempt, nil
}

// VerifyActiveAttempt checks that the candidate has an IN_PROGRESS attempt
// for the assessment and returns it.
func (s *AttemptService) VerifyActiveAttempt(ctx context.Context, assessmentID uuid.UUID, candidateID int) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetForCandidate(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("no active attempt: %w", err)
	}
	if attempt.Status == model.AttemptStatusCompleted {
		return nil, ErrAttemptCompleted
	}
	return attempt, nil
}

// GetAttemptState recovers the current state of an in-progress attempt: the
// autosaved answers and the authoritative remaining time, computed from the
// persisted start timestamp rather than any client-side clock.
func (s *AttemptService) GetAttemptState(ctx context.Context, assessmentID uuid.UUID, candidateID int) (*model.AttemptState, error) {
	answersKey := config.CacheKey.AttemptAnswersKey(candidateID, assessmentID.String())
	rawAnswers, err := s.rdb.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get autosaved answers: %w", err)
	}

	answers := make(map[string]model.AnswerValue, len(rawAnswers))
	for qid, raw := range rawAnswers {
		var v model.AnswerValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			s.log.Warn().Str("question_id", qid).Msg("Skipping undecodable autosaved answer")
			continue
		}
		answers[qid] = v
	}

	durationMinutes, err := s.getDurationMinutes(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	startTimeUnix, err := s.getStartTime(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, err
	}

	startTime := time.Unix(startTimeUnix, 0)
	endTime := startTime.Add(time.Duration(durationMinutes) * time.Minute)
	remaining := time.Until(endTime)
	if remaining < 0 {
		remaining = 0
	}

	return &model.AttemptState{
		AssessmentID:     assessmentID,
		CandidateID:      candidateID,
		AutosavedAnswers: answers,
		RemainingSeconds: int(remaining.Seconds()),
	}, nil
}

func (s *AttemptService) getDurationMinutes(ctx context.Context, assessmentID uuid.UUID) (int, error) {
	durationStr, err := s.rdb.Get(ctx, config.CacheKey.AssessmentDurationKey(assessmentID.String())).Result()
	if err == nil {
		minutes, convErr := strconv.Atoi(durationStr)
		if convErr != nil {
			return 0, fmt.Errorf("invalid duration format in redis: %w", convErr)
		}
		return minutes, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("get duration: %w", err)
	}

	// Cache miss: read the source of truth and self-heal.
	def, dbErr := s.assessmentRepo.GetByID(ctx, assessmentID)
	if dbErr != nil {
		return 0, fmt.Errorf("duration not found in cache or db: %w", dbErr)
	}
	_ = s.rdb.Set(ctx, config.CacheKey.AssessmentDurationKey(assessmentID.String()), def.TimeLimitMinutes, 0)
	return def.TimeLimitMinutes, nil
}

func (s *AttemptService) getStartTime(ctx context.Context, assessmentID uuid.UUID, candidateID int) (int64, error) {
	startKey := config.CacheKey.AttemptStartKey(candidateID, assessmentID.String())

	val, err := s.rdb.Get(ctx, startKey).Result()
	if err == nil {
		unix, parseErr := strconv.ParseInt(val, 10, 64)
		if parseErr != nil {
			return 0, fmt.Errorf("invalid start time format in cache: %w", parseErr)
		}
		return unix, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis error getting start time: %w", err)
	}

	// Cache miss (evicted or legacy attempt): fall back to PostgreSQL and
	// self-heal so the next read is fast.
	unix, dbErr := s.attemptRepo.StartedAtSeconds(ctx, assessmentID, candidateID)
	if dbErr != nil {
		return 0, fmt.Errorf("attempt not found in cache or db: %w", dbErr)
	}
	_ = s.rdb.Set(ctx, startKey, unix, 0)
	return unix, nil
}

// AutosaveAnswer mirrors an accepted answer into Redis (fast read-back for
// reconnects) and queues it for durable persistence by the answer worker.
func (s *AttemptService) AutosaveAnswer(ctx context.Context, attempt *model.Attempt, questionID uuid.UUID, value model.AnswerValue) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}

	answersKey := config.CacheKey.AttemptAnswersKey(attempt.CandidateID, attempt.AssessmentID.String())
	if err := s.rdb.HSet(ctx, answersKey, questionID.String(), encoded).Err(); err != nil {
		return fmt.Errorf("autosave answer: %w", err)
	}

	job, _ := json.Marshal(answerJob{
		AttemptID:  attempt.ID.String(),
		QuestionID: questionID.String(),
		Answer:     json.RawMessage(encoded),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, job).Err(); err != nil {
		// Redis already holds the answer; the durable copy catches up on
		// the next autosave.
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to queue answer persist")
	}
	return nil
}

// answerJob is the persist_answers_queue payload.
type answerJob struct {
	AttemptID  string          `json:"attempt_id"`
	QuestionID string          `json:"question_id"`
	Answer     json.RawMessage `json:"answer"`
}

// resultJob is the persist_results_queue payload: the per-question detail of
// one submission plus the keys needed for autosave cleanup.
type resultJob struct {
	SubmissionID string                 `json:"submission_id"`
	AttemptID    string                 `json:"attempt_id"`
	AssessmentID string                 `json:"assessment_id"`
	CandidateID  int                    `json:"candidate_id"`
	Detail       []model.QuestionResult `json:"detail"`
}

// PersistSubmission stores a graded result. The aggregate row and the
// attempt completion are written synchronously; a submission only counts
// once they are durable. The per-question detail and autosave cleanup go
// through the result worker.
func (s *AttemptService) PersistSubmission(ctx context.Context, result *model.Result) error {
	if err := s.submissionRepo.Create(ctx, result); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	if err := s.attemptRepo.Complete(ctx, result.AttemptID, result.Percentage); err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}

	job, _ := json.Marshal(resultJob{
		SubmissionID: result.ID.String(),
		AttemptID:    result.AttemptID.String(),
		AssessmentID: result.AssessmentID.String(),
		CandidateID:  result.CandidateID,
		Detail:       result.PerQuestionDetail,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, job).Err(); err != nil {
		// The queue is unavailable; write the detail inline so the result
		// view is never missing rows.
		s.log.Warn().Err(err).Str("attempt_id", result.AttemptID.String()).Msg("Result queue unavailable, writing detail inline")
		if err := s.submissionRepo.BulkInsertAnswers(ctx, result.ID, result.PerQuestionDetail); err != nil {
			s.log.Error().Err(err).Str("submission_id", result.ID.String()).Msg("Inline detail write failed")
		}
	}

	s.log.Info().
		Str("attempt_id", result.AttemptID.String()).
		Int("percentage", result.Percentage).
		Bool("passed", result.Passed).
		Msg("Submission persisted")
	return nil
}

// GetResult retrieves the stored result for an attempt.
func (s *AttemptService) GetResult(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	return s.submissionRepo.GetLatestByAttempt(ctx, attemptID)
}

// GetResultForCandidate retrieves the stored result of the candidate's
// completed attempt on an assessment.
func (s *AttemptService) GetResultForCandidate(ctx context.Context, assessmentID uuid.UUID, candidateID int) (*model.Result, error) {
	attempt, err := s.attemptRepo.GetForCandidate(ctx, assessmentID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusCompleted {
		return nil, errors.New("attempt has no result yet")
	}
	return s.submissionRepo.GetLatestByAttempt(ctx, attempt.ID)
}

// ListByAssessment retrieves all attempts for an assessment (recruiter view).
func (s *AttemptService) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Attempt, error) {
	return s.attemptRepo.ListByAssessment(ctx, assessmentID)
}
