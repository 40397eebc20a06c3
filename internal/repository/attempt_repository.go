package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentflow/talentflow-backend/internal/model"
)

// ErrNoActiveAttempt is returned when a candidate has no in-progress attempt
// for an assessment.
var ErrNoActiveAttempt = errors.New("no active attempt")

// AttemptRepository handles attempt data access. One candidate has at most
// one attempt row per assessment; a retake reuses the row with a fresh start
// time, so retakes never see earlier answers.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, assessment_id, candidate_id, started_at, finished_at, status, final_percentage`

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.AssessmentID, &a.CandidateID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.FinalPercentage)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetForCandidate retrieves the candidate's attempt for an assessment.
func (r *AttemptRepository) GetForCandidate(ctx context.Context, assessmentID uuid.UUID, candidateID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE assessment_id = $1 AND candidate_id = $2`, assessmentID, candidateID,
	).Scan(&a.ID, &a.AssessmentID, &a.CandidateID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.FinalPercentage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoActiveAttempt
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Start creates the attempt row, or resets an existing one back to
// IN_PROGRESS with a fresh start time (retake). Returns the attempt.
func (r *AttemptRepository) Start(ctx context.Context, assessmentID uuid.UUID, candidateID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attempts (assessment_id, candidate_id, started_at, status)
		 VALUES ($1, $2, NOW(), $3)
		 ON CONFLICT (assessment_id, candidate_id)
		 DO UPDATE SET started_at = NOW(), finished_at = NULL,
		               status = $3, final_percentage = NULL
		 RETURNING `+attemptColumns,
		assessmentID, candidateID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.AssessmentID, &a.CandidateID, &a.StartedAt, &a.FinishedAt, &a.Status, &a.FinalPercentage)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Complete marks the attempt finished with its final percentage.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID, finalPercentage int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, finished_at = NOW(), final_percentage = $2
		 WHERE id = $3`,
		model.AttemptStatusCompleted, finalPercentage, id)
	return err
}

// ListByAssessment retrieves all attempts for an assessment, newest first.
func (r *AttemptRepository) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE assessment_id = $1 ORDER BY started_at DESC`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.AssessmentID, &a.CandidateID, &a.StartedAt,
			&a.FinishedAt, &a.Status, &a.FinalPercentage); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// StartedAtSeconds returns the attempt's start time as a Unix timestamp.
// PostgreSQL fallback for the Redis attempt-start key.
func (r *AttemptRepository) StartedAtSeconds(ctx context.Context, assessmentID uuid.UUID, candidateID int) (int64, error) {
	var unix int64
	err := r.pool.QueryRow(ctx,
		`SELECT EXTRACT(EPOCH FROM started_at)::bigint FROM attempts
		 WHERE assessment_id = $1 AND candidate_id = $2 AND status = $3`,
		assessmentID, candidateID, model.AttemptStatusInProgress,
	).Scan(&unix)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoActiveAttempt
	}
	return unix, err
}
