package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentflow/talentflow-backend/internal/model"
)

// SubmissionRepository persists graded results. The aggregate row is written
// synchronously at submit time; the per-question detail rows are written by
// the result worker afterwards.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts the aggregate submission row and fills in the generated ID.
func (r *SubmissionRepository) Create(ctx context.Context, result *model.Result) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO submissions (attempt_id, assessment_id, candidate_id,
		                          total_questions, correct_count, wrong_count,
		                          percentage, passed, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		result.AttemptID, result.AssessmentID, result.CandidateID,
		result.TotalQuestions, result.CorrectCount, result.WrongCount,
		result.Percentage, result.Passed, result.SubmittedAt,
	).Scan(&result.ID)
}

// BulkInsertAnswers writes the per-question detail of one submission in a
// single round trip using UNNEST. Answers are stored as jsonb so every
// variant's shape survives unchanged.
func (r *SubmissionRepository) BulkInsertAnswers(ctx context.Context, submissionID uuid.UUID, detail []model.QuestionResult) error {
	if len(detail) == 0 {
		return nil
	}

	questionIDs := make([]uuid.UUID, len(detail))
	userAnswers := make([]string, len(detail))
	correctAnswers := make([]string, len(detail))
	isCorrect := make([]bool, len(detail))
	needsReview := make([]bool, len(detail))

	for i, qr := range detail {
		questionIDs[i] = qr.QuestionID
		userAnswers[i] = encodeJSONColumn(qr.UserAnswer)
		correctAnswers[i] = encodeRawColumn(qr.CorrectAnswer)
		isCorrect[i] = qr.IsCorrect
		needsReview[i] = qr.NeedsReview
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO submission_answers (submission_id, question_id, user_answer,
		                                 correct_answer, is_correct, needs_review)
		 SELECT $1, q, u::jsonb, c::jsonb, ic, nr
		 FROM UNNEST(
		     $2::uuid[],
		     $3::text[],
		     $4::text[],
		     $5::boolean[],
		     $6::boolean[]
		 ) AS t(q, u, c, ic, nr)`,
		submissionID, questionIDs, userAnswers, correctAnswers, isCorrect, needsReview)
	if err != nil {
		return fmt.Errorf("bulk insert submission answers: %w", err)
	}
	return nil
}

// InsertAnswer writes a single detail row. Fallback when the bulk path fails.
func (r *SubmissionRepository) InsertAnswer(ctx context.Context, submissionID uuid.UUID, qr model.QuestionResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO submission_answers (submission_id, question_id, user_answer,
		                                 correct_answer, is_correct, needs_review)
		 VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6)`,
		submissionID, qr.QuestionID, encodeJSONColumn(qr.UserAnswer),
		encodeRawColumn(qr.CorrectAnswer), qr.IsCorrect, qr.NeedsReview)
	return err
}

// GetLatestByAttempt retrieves the most recent submission for an attempt,
// with its per-question detail.
func (r *SubmissionRepository) GetLatestByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	result := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, assessment_id, candidate_id, total_questions,
		        correct_count, wrong_count, percentage, passed, submitted_at
		 FROM submissions WHERE attempt_id = $1
		 ORDER BY submitted_at DESC LIMIT 1`, attemptID,
	).Scan(&result.ID, &result.AttemptID, &result.AssessmentID, &result.CandidateID,
		&result.TotalQuestions, &result.CorrectCount, &result.WrongCount,
		&result.Percentage, &result.Passed, &result.SubmittedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT question_id, user_answer, correct_answer, is_correct, needs_review
		 FROM submission_answers WHERE submission_id = $1 ORDER BY id`, result.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var qr model.QuestionResult
		var userAnswer, correctAnswer []byte
		if err := rows.Scan(&qr.QuestionID, &userAnswer, &correctAnswer, &qr.IsCorrect, &qr.NeedsReview); err != nil {
			return nil, err
		}
		if len(userAnswer) > 0 && string(userAnswer) != "null" {
			var v model.AnswerValue
			if err := json.Unmarshal(userAnswer, &v); err != nil {
				return nil, fmt.Errorf("decode user answer: %w", err)
			}
			qr.UserAnswer = &v
		}
		if len(correctAnswer) > 0 && string(correctAnswer) != "null" {
			qr.CorrectAnswer = json.RawMessage(correctAnswer)
		}
		result.PerQuestionDetail = append(result.PerQuestionDetail, qr)
	}
	return result, rows.Err()
}

func encodeJSONColumn(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func encodeRawColumn(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
