package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/talentflow/talentflow-backend/internal/config"
	"github.com/talentflow/talentflow-backend/internal/handler"
	"github.com/talentflow/talentflow-backend/internal/middleware"
	"github.com/talentflow/talentflow-backend/internal/response"
	"github.com/talentflow/talentflow-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Portal     *handler.PortalHandler
	Assessment *handler.AssessmentHandler
	Job        *handler.JobHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/candidate/login", handlers.Auth.CandidateLogin)
		auth.POST("/recruiter/login", handlers.Auth.RecruiterLogin)

		// Authenticated profile routes
		auth.POST("/candidate/logout", middleware.RequireCandidateJWT(authService), handlers.Auth.CandidateLogout)
		auth.GET("/candidate/me", middleware.RequireCandidateJWT(authService), handlers.Auth.GetCandidateProfile)
		auth.GET("/recruiter/me", middleware.RequireRecruiterJWT(authService), handlers.Auth.GetRecruiterProfile)
	}

	// Candidate portal: JWT plus the single-device session check, so a timed
	// attempt can only run from the device that logged in.
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		candidateAPI.GET("/lobby", handlers.Portal.GetLobby)
		candidateAPI.POST("/assessments/:assessment_id/start", handlers.Portal.StartAttempt)
		candidateAPI.GET("/assessments/:assessment_id/state", handlers.Portal.GetAttemptState)
		candidateAPI.GET("/assessments/:assessment_id/form", handlers.Portal.GetAssessmentForm)
		candidateAPI.GET("/assessments/:assessment_id/result", handlers.Portal.GetResult)
	}

	// WebSocket taking stream. Browsers cannot set the Authorization header on
	// a WebSocket handshake, so the token rides in the query string.
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/candidate/assessments/:assessment_id/stream", handlers.WS.AssessmentStream)
	}

	recruiterAPI := router.Group("/api/v1/recruiter")
	recruiterAPI.Use(middleware.RequireRecruiterJWT(authService))
	{
		// Jobs
		recruiterAPI.GET("/jobs", handlers.Job.List)
		recruiterAPI.POST("/jobs", handlers.Job.Create)
		recruiterAPI.GET("/jobs/:job_id", handlers.Job.Get)

		// Assessment builder
		recruiterAPI.POST("/assessments", handlers.Assessment.Create)
		recruiterAPI.GET("/assessments", handlers.Assessment.List)
		recruiterAPI.GET("/assessments/:assessment_id", handlers.Assessment.Get)
		recruiterAPI.PATCH("/assessments/:assessment_id", handlers.Assessment.Update)
		recruiterAPI.DELETE("/assessments/:assessment_id", handlers.Assessment.Delete)

		// Question editing
		recruiterAPI.POST("/assessments/:assessment_id/questions", handlers.Assessment.AddQuestion)
		recruiterAPI.PATCH("/assessments/:assessment_id/questions/:question_id", handlers.Assessment.UpdateQuestion)
		recruiterAPI.DELETE("/assessments/:assessment_id/questions/:question_id", handlers.Assessment.DeleteQuestion)
		recruiterAPI.PUT("/assessments/:assessment_id/questions/order", handlers.Assessment.ReorderQuestions)

		// Lifecycle and preview
		recruiterAPI.POST("/assessments/:assessment_id/publish", handlers.Assessment.Publish)
		recruiterAPI.POST("/assessments/:assessment_id/archive", handlers.Assessment.Archive)
		recruiterAPI.GET("/assessments/:assessment_id/preview", handlers.Assessment.Preview)

		// Results
		recruiterAPI.GET("/assessments/:assessment_id/attempts", handlers.Assessment.ListAttempts)
		recruiterAPI.GET("/attempts/:attempt_id/result", handlers.Assessment.GetAttemptResult)

		// Session administration
		recruiterAPI.POST("/candidates/:candidate_id/reset-session", handlers.Auth.ResetCandidateSession)
	}

	return router
}
