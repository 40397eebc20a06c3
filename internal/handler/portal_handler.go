package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/talentflow/talentflow-backend/internal/middleware"
	"github.com/talentflow/talentflow-backend/internal/model"
	"github.com/talentflow/talentflow-backend/internal/response"
	"github.com/talentflow/talentflow-backend/internal/service"
	"github.com/talentflow/talentflow-backend/internal/validator"
)

// PortalHandler handles candidate-facing endpoints: the lobby, attempt
// lifecycle, and result viewing. The live taking flow itself runs over
// WebSocket (see WSHandler).
type PortalHandler struct {
	attemptService    *service.AttemptService
	assessmentService *service.AssessmentService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	attemptService *service.AttemptService,
	assessmentService *service.AssessmentService,
) *PortalHandler {
	return &PortalHandler{
		attemptService:    attemptService,
		assessmentService: assessmentService,
	}
}

// GetLobby godoc
// GET /api/v1/candidate/lobby
// Returns the published assessments for the candidate's job with attempt
// status overlaid.
func (h *PortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	jobID, err := uuid.Parse(claims.JobID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	lobby, err := h.attemptService.GetLobby(c.Request.Context(), claims.UserID, jobID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assessments": lobby})
}

// StartAttempt godoc
// POST /api/v1/candidate/assessments/:assessment_id/start
// Validates the invite token and opens (or rejoins) an attempt. Idempotent
// for an attempt already in progress.
func (h *PortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), assessmentID, claims.UserID, req.InviteToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInviteToken):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidInviteToken)
		case errors.Is(err, service.ErrAssessmentNotAvailable):
			response.Fail(c, http.StatusBadRequest, response.ErrAssessmentNotAvailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetAttemptState godoc
// GET /api/v1/candidate/assessments/:assessment_id/state
// Returns the autosaved answers and authoritative remaining time, for
// resuming an interrupted attempt.
func (h *PortalHandler) GetAttemptState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	if _, err := h.attemptService.VerifyActiveAttempt(c.Request.Context(), assessmentID, claims.UserID); err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrAttemptNotFound)
		return
	}

	state, err := h.attemptService.GetAttemptState(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// GetAssessmentForm godoc
// GET /api/v1/candidate/assessments/:assessment_id/form
// Returns the candidate form from Redis. Requires an active attempt, so a
// candidate can never pull a form they have not started.
func (h *PortalHandler) GetAssessmentForm(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	if _, err := h.attemptService.VerifyActiveAttempt(c.Request.Context(), assessmentID, claims.UserID); err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	form, err := h.assessmentService.GetFormPayload(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAssessmentNotAvailable)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"form": form})
}

// GetResult godoc
// GET /api/v1/candidate/assessments/:assessment_id/result
// Returns the candidate's stored result for their attempt. Reference answers
// are included only for questions answered incorrectly.
func (h *PortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, ok := parseUUIDParam(c, "assessment_id")
	if !ok {
		return
	}

	result, err := h.attemptService.GetResultForCandidate(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrResultNotReady)
		return
	}

	result = candidateResultView(result)
	response.Success(c, http.StatusOK, gin.H{"result": result})
}
