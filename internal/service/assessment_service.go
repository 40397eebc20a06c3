package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentflow/talentflow-backend/internal/config"
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/repository"
	"github.com/talentflow/talentflow-backend/internal/response"
)

// Domain Errors
var (
	ErrNoQuestions            = errors.New("assessment has no questions, cannot publish")
	ErrAssessmentNotDraft     = errors.New("assessment status is not DRAFT")
	ErrAssessmentNotPublished = errors.New("assessment status is not PUBLISHED")
	ErrInvalidDefinition      = errors.New("assessment definition is invalid")
)

// AssessmentService handles the builder lifecycle and Redis caching. Builder
// edits always load the definition, mutate it in memory, and replace the
// stored question list wholesale.
type AssessmentService struct {
	assessmentRepo *repository.AssessmentRepository
	jobRepo        *repository.JobRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(
	assessmentRepo *repository.AssessmentRepository,
	jobRepo *repository.JobRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		jobRepo:        jobRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "assessment_service").Logger(),
	}
}

// GetByID retrieves an assessment by its UUID.
func (s *AssessmentService) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentDefinition, error) {
	return s.assessmentRepo.GetByID(ctx, id)
}

// ListByJob retrieves assessments, optionally filtered by job, paginated.
func (s *AssessmentService) ListByJob(ctx context.Context, jobID *uuid.UUID, page, perPage int) ([]model.AssessmentDefinition, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	assessments, total, err := s.assessmentRepo.ListByJobPaginated(ctx, jobID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if assessments == nil {
		assessments = []model.AssessmentDefinition{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return assessments, pagination, nil
}

// Create inserts a new assessment as DRAFT under the given job.
func (s *AssessmentService) Create(ctx context.Context, req *model.CreateAssessmentRequest) (*model.AssessmentDefinition, error) {
	if _, err := s.jobRepo.GetByID(ctx, req.JobID); err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	def := &model.AssessmentDefinition{
		JobID:               req.JobID,
		Title:               req.Title,
		Description:         req.Description,
		TimeLimitMinutes:    req.TimeLimitMinutes,
		PassingScorePercent: req.PassingScorePercent,
		InviteToken:         req.InviteToken,
		Questions:           []model.Question{},
		Status:              model.AssessmentStatusDraft,
	}
	if err := s.assessmentRepo.Create(ctx, def); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	return def, nil
}

// UpdateMetadata modifies a draft assessment's header fields.
func (s *AssessmentService) UpdateMetadata(ctx context.Context, id uuid.UUID, req *model.UpdateAssessmentRequest) (*model.AssessmentDefinition, error) {
	def, err := s.requireDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		def.Title = req.Title
	}
	if req.Description != nil {
		def.Description = *req.Description
	}
	if req.TimeLimitMinutes > 0 {
		def.TimeLimitMinutes = req.TimeLimitMinutes
	}
	if req.PassingScorePercent != nil {
		def.PassingScorePercent = *req.PassingScorePercent
	}
	if req.InviteToken != "" {
		def.InviteToken = req.InviteToken
	}

	if err := s.assessmentRepo.UpdateMetadata(ctx, def); err != nil {
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	return def, nil
}

// AddQuestion appends a question of the given type with its default template.
func (s *AssessmentService) AddQuestion(ctx context.Context, id uuid.UUID, questionType model.QuestionType) (*model.Question, error) {
	def, err := s.requireDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	q := def.AddQuestion(questionType)
	if err := s.assessmentRepo.ReplaceQuestions(ctx, id, def.Questions); err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}
	return q, nil
}

// UpdateQuestion merges a patch into one question of a draft.
func (s *AssessmentService) UpdateQuestion(ctx context.Context, id, questionID uuid.UUID, patch model.QuestionPatch) (*model.Question, error) {
	def, err := s.requireDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	q, err := def.UpdateQuestion(questionID, patch)
	if err != nil {
		return nil, err
	}
	if err := s.assessmentRepo.ReplaceQuestions(ctx, id, def.Questions); err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}
	return q, nil
}

// DeleteQuestion removes one question from a draft. Remaining order values
// keep their gaps.
func (s *AssessmentService) DeleteQuestion(ctx context.Context, id, questionID uuid.UUID) error {
	def, err := s.requireDraft(ctx, id)
	if err != nil {
		return err
	}

	if err := def.DeleteQuestion(questionID); err != nil {
		return err
	}
	if err := s.assessmentRepo.ReplaceQuestions(ctx, id, def.Questions); err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	return nil
}

// ReorderQuestions applies an explicit new ordering to a draft.
func (s *AssessmentService) ReorderQuestions(ctx context.Context, id uuid.UUID, questionIDs []uuid.UUID) (*model.AssessmentDefinition, error) {
	def, err := s.requireDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := def.ReorderQuestions(questionIDs); err != nil {
		return nil, err
	}
	if err := s.assessmentRepo.ReplaceQuestions(ctx, id, def.Questions); err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}
	return def, nil
}

// Publish validates the definition, changes status to PUBLISHED, and caches
// the candidate form + duration in Redis. This is the path that populates
// the fast lane the taking flow reads from.
func (s *AssessmentService) Publish(ctx context.Context, id uuid.UUID) error {
	def, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get assessment: %w", err)
	}

	if def.Status != model.AssessmentStatusDraft {
		return ErrAssessmentNotDraft
	}
	if len(def.Questions) == 0 {
		return ErrNoQuestions
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, err)
	}

	if err := s.WarmFormCache(ctx, def); err != nil {
		return err
	}

	if err := s.assessmentRepo.UpdateStatus(ctx, id, model.AssessmentStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("assessment_id", id.String()).Msg("Assessment published")
	return nil
}

// Archive takes a published assessment out of circulation and drops its
// cached form.
func (s *AssessmentService) Archive(ctx context.Context, id uuid.UUID) error {
	def, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get assessment: %w", err)
	}
	if def.Status != model.AssessmentStatusPublished {
		return ErrAssessmentNotPublished
	}

	if err := s.assessmentRepo.UpdateStatus(ctx, id, model.AssessmentStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.AssessmentFormKey(id.String()))
	pipe.Del(ctx, config.CacheKey.AssessmentDurationKey(id.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("assessment_id", id.String()).Msg("Failed to drop cached form")
	}

	s.log.Info().Str("assessment_id", id.String()).Msg("Assessment archived")
	return nil
}

// WarmFormCache loads an assessment's candidate form and duration into Redis.
// Core cache-warming logic shared by Publish and PrewarmAllCaches.
func (s *AssessmentService) WarmFormCache(ctx context.Context, def *model.AssessmentDefinition) error {
	if len(def.Questions) == 0 {
		return ErrNoQuestions
	}

	payload := model.BuildFormPayload(def)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal form payload: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AssessmentFormKey(def.ID.String()), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.AssessmentDurationKey(def.ID.String()), def.TimeLimitMinutes, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("assessment_id", def.ID.String()).
		Int("questions", len(def.Questions)).
		Msg("Form cache warmed")
	return nil
}

// PrewarmAllCaches loads all published assessments into Redis on application
// startup, so the first candidate never waits on a cold cache.
func (s *AssessmentService) PrewarmAllCaches(ctx context.Context) error {
	assessments, err := s.assessmentRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published assessments: %w", err)
	}

	if len(assessments) == 0 {
		s.log.Info().Msg("No published assessments to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(assessments)).Msg("Prewarming published assessments...")

	warmed := 0
	for i := range assessments {
		if err := s.WarmFormCache(ctx, &assessments[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("assessment_id", assessments[i].ID.String()).
				Msg("Failed to warm assessment, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(assessments)).
		Msg("Prewarming complete")
	return nil
}

// GetFormPayload retrieves the cached candidate form from Redis, falling back
// to PostgreSQL with a self-heal write on cache miss.
func (s *AssessmentService) GetFormPayload(ctx context.Context, id uuid.UUID) (*model.FormPayload, error) {
	key := config.CacheKey.AssessmentFormKey(id.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var payload model.FormPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal form payload: %w", err)
		}
		return &payload, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get form payload: %w", err)
	}

	// Cache miss: rebuild from the source of truth and self-heal.
	def, dbErr := s.assessmentRepo.GetByID(ctx, id)
	if dbErr != nil {
		return nil, fmt.Errorf("assessment not found in cache or db: %w", dbErr)
	}
	if def.Status != model.AssessmentStatusPublished {
		return nil, ErrAssessmentNotPublished
	}
	if err := s.WarmFormCache(ctx, def); err != nil {
		s.log.Warn().Err(err).Str("assessment_id", id.String()).Msg("Self-heal warm failed")
	}
	return model.BuildFormPayload(def), nil
}

// Preview renders the candidate-facing form of a draft or published
// assessment for the builder's preview pane. Reference answers never leave
// the server.
func (s *AssessmentService) Preview(ctx context.Context, id uuid.UUID) (*model.FormPayload, error) {
	def, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return model.BuildFormPayload(def), nil
}

// Delete removes a draft assessment.
func (s *AssessmentService) Delete(ctx context.Context, id uuid.UUID) error {
	def, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if def.Status != model.AssessmentStatusDraft {
		return ErrAssessmentNotDraft
	}
	return s.assessmentRepo.Delete(ctx, id)
}

func (s *AssessmentService) requireDraft(ctx context.Context, id uuid.UUID) (*model.AssessmentDefinition, error) {
	def, err := s.assessmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	if def.Status != model.AssessmentStatusDraft {
		return nil, ErrAssessmentNotDraft
	}
	return def, nil
}
