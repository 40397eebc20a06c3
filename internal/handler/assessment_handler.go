package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/response"
	"github.com/talentflow/talentflow-backend/internal/service"
	"github.com/talentflow/talentflow-backend/internal/validator"
)

// AssessmentHandler handles the recruiter-facing builder endpoints.
type AssessmentHandler struct {
	assessmentService *service.AssessmentService
	attemptService    *service.AttemptService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(
	assessmentService *service.AssessmentService,
	attemptService *service.AttemptService,
) *AssessmentHandler {
	return &AssessmentHandler{
		assessmentService: assessmentService,
		attemptService:    attemptService,
	}
}

// Create godoc
// POST /api/v1/recruiter/assessments
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	def, err := h.assessmentService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assessment": def})
}

// List godoc
// GET /api/v1/recruiter/assessments?job_id=&page=&per_page=
func (h *AssessmentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	var jobID *uuid.UUID
	if raw := c.Query("job_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		jobID = &parsed
	}

	assessments, pagination, err := h.assessmentService.ListByJob(c.Request.Context(), jobID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"assessments": assessments}, pagination)
}

// Get godoc
// GET /api/v1/recruiter/assessments/:assessment_id
func (h *AssessmentHandler) Get(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	def, err := h.assessmentService.GetByID(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": def})
}

// Update godoc
// PATCH /api/v1/recruiter/assessments/:assessment_id
func (h *AssessmentHandler) Update(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	var req model.UpdateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	def, err := h.assessmentService.UpdateMetadata(c.Request.Context(), assessmentID, &req)
	if err != nil {
		failBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": def})
}

// Delete godoc
// DELETE /api/v1/recruiter/assessments/:assessment_id
func (h *AssessmentHandler) Delete(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	if err := h.assessmentService.Delete(c.Request.Context(), assessmentID); err != nil {
		failBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Publish godoc
// POST /api/v1/recruiter/assessments/:assessment_id/publish
// Validates the definition and warms the candidate form cache.
func (h *AssessmentHandler) Publish(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	if err := h.assessmentService.Publish(c.Request.Context(), assessmentID); err != nil {
		switch {
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
		case errors.Is(err, service.ErrAssessmentNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotDraft)
		case errors.Is(err, service.ErrInvalidDefinition):
			response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": string(model.AssessmentStatusPublished)})
}

// Archive godoc
// POST /api/v1/recruiter/assessments/:assessment_id/archive
func (h *AssessmentHandler) Archive(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	if err := h.assessmentService.Archive(c.Request.Context(), assessmentID); err != nil {
		response.Fail(c, http.StatusConflict, response.ErrActionForbidden)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": string(model.AssessmentStatusArchived)})
}

// Preview godoc
// GET /api/v1/recruiter/assessments/:assessment_id/preview
// Renders the candidate-facing form without reference answers.
func (h *AssessmentHandler) Preview(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	form, err := h.assessmentService.Preview(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"form": form})
}

// AddQuestion godoc
// POST /api/v1/recruiter/assessments/:assessment_id/questions
// Appends a question of the requested type with its default template.
func (h *AssessmentHandler) AddQuestion(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.assessmentService.AddQuestion(c.Request.Context(), assessmentID, model.QuestionType(req.Type))
	if err != nil {
		failBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// UpdateQuestion godoc
// PATCH /api/v1/recruiter/assessments/:assessment_id/questions/:question_id
// Merges a partial patch; switching the type re-applies the new template.
func (h *AssessmentHandler) UpdateQuestion(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}
	questionID, ok := parseUUIDParam(c, "question_id")
	if !ok {
		return
	}

	var patch model.QuestionPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.assessmentService.UpdateQuestion(c.Request.Context(), assessmentID, questionID, patch)
	if err != nil {
		if errors.Is(err, model.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
			return
		}
		failBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// DeleteQuestion godoc
// DELETE /api/v1/recruiter/assessments/:assessment_id/questions/:question_id
// Removes the question. Sibling order labels keep their gaps.
func (h *AssessmentHandler) DeleteQuestion(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}
	questionID, ok := parseUUIDParam(c, "question_id")
	if !ok {
		return
	}

	if err := h.assessmentService.DeleteQuestion(c.Request.Context(), assessmentID, questionID); err != nil {
		if errors.Is(err, model.ErrQuestionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
			return
		}
		failBuilderError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ReorderQuestions godoc
// PUT /api/v1/recruiter/assessments/:assessment_id/questions/order
// Applies an explicit ordering; every question must be listed exactly once.
func (h *AssessmentHandler) ReorderQuestions(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	var req model.ReorderQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	def, err := h.assessmentService.ReorderQuestions(c.Request.Context(), assessmentID, req.QuestionIDs)
	if err != nil {
		if errors.Is(err, service.ErrAssessmentNotDraft) {
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotDraft)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidReorder)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessment": def})
}

// ListAttempts godoc
// GET /api/v1/recruiter/assessments/:assessment_id/attempts
// Lists every candidate attempt with its final percentage.
func (h *AssessmentHandler) ListAttempts(c *gin.Context) {
	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	attempts, err := h.attemptService.ListByAssessment(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetAttemptResult godoc
// GET /api/v1/recruiter/attempts/:attempt_id/result
// Returns the full per-question detail, reference answers included.
func (h *AssessmentHandler) GetAttemptResult(c *gin.Context) {
	attemptID, ok := parseUUIDParam(c, "attempt_id")
	if !ok {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), attemptID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrResultNotReady)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// failBuilderError maps the common builder errors to response codes.
func failBuilderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssessmentNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrAssessmentNotDraft)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
