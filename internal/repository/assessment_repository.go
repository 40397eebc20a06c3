package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentflow/talentflow-backend/internal/model"
)

// AssessmentRepository handles assessment data access. The question list is
// stored as a single jsonb column: saves replace the list wholesale, which
// matches the builder's editing contract and keeps reads one-row cheap.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

const assessmentColumns = `id, job_id, title, description, time_limit_minutes,
	passing_score_percent, questions, status, invite_token, created_at, updated_at`

func scanAssessment(row interface{ Scan(dest ...interface{}) error }) (*model.AssessmentDefinition, error) {
	a := &model.AssessmentDefinition{}
	var questions []byte
	err := row.Scan(&a.ID, &a.JobID, &a.Title, &a.Description, &a.TimeLimitMinutes,
		&a.PassingScorePercent, &questions, &a.Status, &a.InviteToken, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &a.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return a, nil
}

// GetByID retrieves an assessment by its UUID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AssessmentDefinition, error) {
	return scanAssessment(r.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id))
}

// GetByInviteToken retrieves a published assessment by its invite token.
func (r *AssessmentRepository) GetByInviteToken(ctx context.Context, token string) (*model.AssessmentDefinition, error) {
	return scanAssessment(r.pool.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments
		 WHERE invite_token = $1 AND status = $2`, token, model.AssessmentStatusPublished))
}

// ListByJobPaginated retrieves assessments for a job with pagination. A nil
// jobID lists everything.
func (r *AssessmentRepository) ListByJobPaginated(ctx context.Context, jobID *uuid.UUID, limit, offset int) ([]model.AssessmentDefinition, int, error) {
	countQuery := `SELECT COUNT(*) FROM assessments`
	var countArgs []interface{}
	if jobID != nil {
		countQuery += ` WHERE job_id = $1`
		countArgs = append(countArgs, *jobID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + assessmentColumns + ` FROM assessments`
	var args []interface{}
	if jobID != nil {
		query += ` WHERE job_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, *jobID, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var assessments []model.AssessmentDefinition
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, total, rows.Err()
}

// Create inserts a new assessment with an empty question list.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.AssessmentDefinition) error {
	questions, err := json.Marshal(a.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	if a.Questions == nil {
		questions = []byte("[]")
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments (job_id, title, description, time_limit_minutes,
		                          passing_score_percent, questions, status, invite_token)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		a.JobID, a.Title, a.Description, a.TimeLimitMinutes,
		a.PassingScorePercent, questions, a.Status, a.InviteToken,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// UpdateMetadata updates the assessment header fields without touching the
// question list.
func (r *AssessmentRepository) UpdateMetadata(ctx context.Context, a *model.AssessmentDefinition) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessments
		 SET title = $1, description = $2, time_limit_minutes = $3,
		     passing_score_percent = $4, invite_token = $5, updated_at = NOW()
		 WHERE id = $6`,
		a.Title, a.Description, a.TimeLimitMinutes, a.PassingScorePercent, a.InviteToken, a.ID)
	return err
}

// ReplaceQuestions overwrites the whole question list. This is the only write
// path for questions; there is no per-field diffing at the storage layer.
func (r *AssessmentRepository) ReplaceQuestions(ctx context.Context, id uuid.UUID, questions []model.Question) error {
	encoded, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	if questions == nil {
		encoded = []byte("[]")
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE assessments SET questions = $1, updated_at = NOW() WHERE id = $2`,
		encoded, id)
	return err
}

// UpdateStatus updates an assessment's lifecycle status.
func (r *AssessmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AssessmentStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assessments SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// ListPublished returns all assessments with PUBLISHED status.
// Used for cache prewarming on application startup.
func (r *AssessmentRepository) ListPublished(ctx context.Context) ([]model.AssessmentDefinition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE status = $1`,
		model.AssessmentStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []model.AssessmentDefinition
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, rows.Err()
}

// Delete removes a draft assessment.
func (r *AssessmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	return err
}
