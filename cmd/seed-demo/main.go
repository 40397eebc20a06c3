package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/talentflow/talentflow-backend/internal/config"
	"github.com/talentflow/talentflow-backend/internal/database"
	"github.com/talentflow/talentflow-backend/internal/logger"
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo job with a published assessment covering every question type,
// a recruiter, and a batch of candidates. Candidate access code is "letmein".
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	jobRepo := repository.NewJobRepository(pool)
	candidateRepo := repository.NewCandidateRepository(pool)
	recruiterRepo := repository.NewRecruiterRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)

	fmt.Println("=== Seeding Demo Data ===")

	// Job
	jobTitle := "Backend Engineer"
	job := &model.Job{Title: jobTitle}

	var existing model.Job
	err = pool.QueryRow(ctx,
		"SELECT id, title, created_at FROM jobs WHERE title = $1", jobTitle,
	).Scan(&existing.ID, &existing.Title, &existing.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			if err := jobRepo.Create(ctx, job); err != nil {
				log.Fatal().Err(err).Msg("Failed to create job")
			}
			fmt.Printf("Created job %q with ID: %s\n", job.Title, job.ID)
		} else {
			log.Fatal().Err(err).Msg("Failed to check existing job")
		}
	} else {
		job = &existing
		fmt.Printf("Found existing job %q with ID: %s\n", job.Title, job.ID)
	}

	// Recruiter
	recruiterHash, err := bcrypt.GenerateFromPassword([]byte("recruiter1"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash recruiter password")
	}
	recruiter := &model.Recruiter{
		Name:         "Demo Recruiter",
		Email:        "recruiter@talentflow.dev",
		PasswordHash: string(recruiterHash),
	}
	if err := recruiterRepo.Create(ctx, recruiter); err != nil {
		fmt.Printf("Recruiter not created (may already exist): %v\n", err)
	} else {
		fmt.Printf("Created recruiter %s with ID: %d\n", recruiter.Email, recruiter.ID)
	}

	// Candidates
	accessHash, err := bcrypt.GenerateFromPassword([]byte("letmein"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash access code")
	}

	names := []string{
		"Ava Thompson", "Liam Carter", "Mia Rodriguez", "Noah Kim", "Zoe Patel",
		"Ethan Brooks", "Lily Nguyen", "Owen Murphy", "Ruby Hassan", "Caleb Jones",
	}

	successCount := 0
	for i, name := range names {
		candidate := &model.Candidate{
			Name:           name,
			Email:          fmt.Sprintf("candidate%d@talentflow.dev", i+1),
			JobID:          job.ID,
			AccessCodeHash: string(accessHash),
		}
		if err := candidateRepo.Create(ctx, candidate); err != nil {
			fmt.Printf("Error creating candidate %s: %v\n", candidate.Email, err)
		} else {
			successCount++
		}
	}
	fmt.Printf("Seeded %d/%d candidates.\n", successCount, len(names))

	// Assessment with every question type, published so candidates can take it
	// right away.
	def := &model.AssessmentDefinition{
		JobID:               job.ID,
		Title:               "Backend Screening",
		Description:         "A short screen covering fundamentals.",
		TimeLimitMinutes:    30,
		PassingScorePercent: 60,
		Status:              model.AssessmentStatusDraft,
	}

	single := def.AddQuestion(model.QuestionTypeSingleChoice)
	single.Text = "Which HTTP status code means Not Found?"
	single.Options = []string{"200", "301", "404", "500"}
	single.CorrectAnswer = model.RawJSON(2)

	multi := def.AddQuestion(model.QuestionTypeMultiChoice)
	multi.Text = "Which of these are relational databases?"
	multi.Options = []string{"PostgreSQL", "Redis", "MySQL", "Kafka"}
	multi.CorrectAnswers = []int{0, 2}

	short := def.AddQuestion(model.QuestionTypeShortText)
	short.Text = "What does SQL stand for? (three words)"
	short.CorrectAnswer = model.RawJSON("Structured Query Language")

	long := def.AddQuestion(model.QuestionTypeLongText)
	long.Text = "Describe a time you debugged a production incident."
	minLen := 100
	long.MinLength = &minLen

	numeric := def.AddQuestion(model.QuestionTypeNumeric)
	numeric.Text = "What is the default PostgreSQL port?"
	numeric.CorrectAnswer = model.RawJSON(5432)

	file := def.AddQuestion(model.QuestionTypeFileUpload)
	file.Text = "Upload your resume."
	file.Required = false

	if err := assessmentRepo.Create(ctx, def); err != nil {
		log.Fatal().Err(err).Msg("Failed to create assessment")
	}
	if err := assessmentRepo.UpdateStatus(ctx, def.ID, model.AssessmentStatusPublished); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish assessment")
	}
	fmt.Printf("Created published assessment %q with ID: %s\n", def.Title, def.ID)

	fmt.Println("\nSeed completed!")
	fmt.Println("Recruiter login:  recruiter@talentflow.dev / recruiter1")
	fmt.Println("Candidate login:  candidate1@talentflow.dev / letmein")
}
