package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/repository"
	"github.com/talentflow/talentflow-backend/internal/response"
	"github.com/talentflow/talentflow-backend/internal/validator"
)

// JobHandler exposes the job postings assessments attach to.
type JobHandler struct {
	jobRepo *repository.JobRepository
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobRepo *repository.JobRepository) *JobHandler {
	return &JobHandler{jobRepo: jobRepo}
}

// List godoc
// GET /api/v1/recruiter/jobs
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.jobRepo.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}

	response.Success(c, http.StatusOK, gin.H{"jobs": jobs})
}

// Get godoc
// GET /api/v1/recruiter/jobs/:job_id
func (h *JobHandler) Get(c *gin.Context) {
	jobID, ok := parseUUIDParam(c, "job_id")
	if !ok {
		return
	}

	job, err := h.jobRepo.GetByID(c.Request.Context(), jobID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"job": job})
}

// Create godoc
// POST /api/v1/recruiter/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var req model.CreateJobRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	job := &model.Job{Title: req.Title}
	if err := h.jobRepo.Create(c.Request.Context(), job); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"job": job})
}
