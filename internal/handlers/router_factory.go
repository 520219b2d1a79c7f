package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"examprep/internal/config"
	"examprep/internal/middleware"
	"examprep/internal/observability"
	"examprep/internal/services"
	"examprep/internal/version"
)

// NewRouter creates the HTTP router with all middleware and routes wired
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	questionService services.QuestionServiceInterface,
	planService services.StudyPlanServiceInterface,
	scheduler services.SchedulerServiceInterface,
	phaseGate services.PhaseGateServiceInterface,
	wrongAnswers services.WrongAnswerServiceInterface,
	ingestion services.IngestionServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))

	// HTTP request logging through the observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "backend"})
	})

	// OpenTelemetry middleware with automatic error attributes
	router.Use(observability.GinMiddlewareWithErrorHandling("examprep-backend"))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Session middleware
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	// Security headers
	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	// Initialize handlers
	authHandler := NewAuthHandler(userService, cfg, logger)
	studyHandler := NewStudyHandler(planService, scheduler, phaseGate, cfg, logger)
	quizHandler := NewQuizHandler(questionService, wrongAnswers, cfg, logger)
	adminHandler := NewAdminHandler(userService, questionService, ingestion, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "backend",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
		}

		study := v1.Group("/study", middleware.RequireAuth())
		{
			study.POST("/plans", studyHandler.CreatePlan)
			study.GET("/plans/active", studyHandler.GetActivePlan)
			study.POST("/plans/:id/abandon", studyHandler.AbandonPlan)
			study.POST("/plans/:id/advance", studyHandler.AdvanceDay)
			study.GET("/routine", studyHandler.GetDailyRoutine)
			study.GET("/sessions/reading", studyHandler.GetReadingSession)
			study.GET("/sessions/review", studyHandler.GetReviewSession)
			study.POST("/sessions/complete", studyHandler.CompleteSession)
			study.POST("/phase1/results", studyHandler.RecordPhase1Result)
			study.GET("/phase2/eligibility", studyHandler.GetPhase2Eligibility)
		}

		quiz := v1.Group("/quiz", middleware.RequireAuth())
		{
			quiz.GET("/questions", quizHandler.ListQuestions)
			quiz.GET("/questions/:id", quizHandler.GetQuestion)
			quiz.POST("/answer", quizHandler.SubmitAnswer)
			quiz.GET("/wrong-answers", quizHandler.ListWrongAnswers)
		}

		admin := v1.Group("/admin", middleware.RequireAdmin(userService))
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/questions", adminHandler.CreateQuestion)
			admin.PUT("/questions/:id", adminHandler.UpdateQuestion)
			admin.DELETE("/questions/:id", adminHandler.DeleteQuestion)
			admin.POST("/ingestion/jobs", adminHandler.CreateIngestionJob)
			admin.GET("/ingestion/jobs", adminHandler.ListIngestionJobs)
			admin.POST("/ingestion/jobs/:id/extraction", adminHandler.ProcessExtraction)
			admin.POST("/ingestion/jobs/:id/approve", adminHandler.ApproveIngestionJob)
		}
	}

	return router
}
