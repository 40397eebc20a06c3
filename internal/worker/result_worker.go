package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/talentflow/talentflow-backend/internal/config"
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/repository"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue: it writes the per-question
// detail of each submission and then clears the attempt's autosave buffers.
// The aggregate submission row was already written synchronously at submit
// time, so everything here is repeatable.
type ResultWorker struct {
	pool           *pgxpool.Pool
	rdb            *redis.Client
	submissionRepo *repository.SubmissionRepository
	log            zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, submissionRepo *repository.SubmissionRepository, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool:           pool,
		rdb:            rdb,
		submissionRepo: submissionRepo,
		log:            log.With().Str("component", "result_worker").Logger(),
	}
}

type resultPayload struct {
	SubmissionID string                 `json:"submission_id"`
	AttemptID    string                 `json:"attempt_id"`
	AssessmentID string                 `json:"assessment_id"`
	CandidateID  int                    `json:"candidate_id"`
	Detail       []model.QuestionResult `json:"detail"`
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*resultPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p resultPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*resultPayload) {
	if len(batch) == 0 {
		return
	}

	for _, p := range batch {
		if err := w.persistDetail(ctx, p); err != nil {
			w.log.Warn().Err(err).
				Str("submission_id", p.SubmissionID).
				Msg("bulk detail insert failed, using fallback")

			if err := w.persistDetailSingles(ctx, p); err != nil {
				w.log.Error().Err(err).
					Str("submission_id", p.SubmissionID).
					Msg("fallback failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
				continue
			}
		}
	}

	// Detail is durable; the autosave buffers are no longer needed.
	w.bulkClearAutosaves(ctx, batch)
}

// persistDetail writes one submission's rows in a single UNNEST round trip.
func (w *ResultWorker) persistDetail(ctx context.Context, p *resultPayload) error {
	submissionID, err := uuid.Parse(p.SubmissionID)
	if err != nil {
		return err
	}
	return w.submissionRepo.BulkInsertAnswers(ctx, submissionID, p.Detail)
}

// persistDetailSingles is the row-at-a-time fallback.
func (w *ResultWorker) persistDetailSingles(ctx context.Context, p *resultPayload) error {
	submissionID, err := uuid.Parse(p.SubmissionID)
	if err != nil {
		return err
	}
	for _, qr := range p.Detail {
		if err := w.submissionRepo.InsertAnswer(ctx, submissionID, qr); err != nil {
			return err
		}
	}
	return nil
}

// bulkClearAutosaves removes the Redis answer buffers and start keys, plus
// the durable autosave rows, for every completed attempt in the batch.
func (w *ResultWorker) bulkClearAutosaves(ctx context.Context, batch []*resultPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.AttemptAnswersKey(p.CandidateID, p.AssessmentID))
		pipe.Del(ctx, config.CacheKey.AttemptStartKey(p.CandidateID, p.AssessmentID))
	}
	_, _ = pipe.Exec(ctx)

	for _, p := range batch {
		attemptID, err := uuid.Parse(p.AttemptID)
		if err != nil {
			continue
		}
		if _, err := w.pool.Exec(ctx,
			`DELETE FROM attempt_answers WHERE attempt_id = $1`, attemptID); err != nil {
			w.log.Warn().Err(err).Str("attempt_id", p.AttemptID).Msg("Failed to clear attempt answers")
		}
	}
}
