package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentflow/talentflow-backend/internal/model"
)

// JobRepository handles job data access. Jobs are owned by another part of
// the product; this service reads them as the parent of an assessment.
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// GetByID retrieves a job by its UUID.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	j := &model.Job{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, created_at FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.Title, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// List retrieves all jobs, newest first.
func (r *JobRepository) List(ctx context.Context) ([]model.Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, created_at FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		if err := rows.Scan(&j.ID, &j.Title, &j.CreatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Create inserts a new job. Used by the demo seeder.
func (r *JobRepository) Create(ctx context.Context, j *model.Job) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO jobs (title) VALUES ($1) RETURNING id, created_at`,
		j.Title,
	).Scan(&j.ID, &j.CreatedAt)
}
