package handlers

import (
	"net/http"
	"strconv"
	"time"

	"examprep/internal/config"
	"examprep/internal/middleware"
	"examprep/internal/models"
	"examprep/internal/observability"
	"examprep/internal/services"
	contextutils "examprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// StudyHandler exposes the study plan, daily routine, and phase gate
type StudyHandler struct {
	planService services.StudyPlanServiceInterface
	scheduler   services.SchedulerServiceInterface
	phaseGate   services.PhaseGateServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewStudyHandler creates a new StudyHandler instance
func NewStudyHandler(planService services.StudyPlanServiceInterface, scheduler services.SchedulerServiceInterface, phaseGate services.PhaseGateServiceInterface, cfg *config.Config, logger *observability.Logger) *StudyHandler {
	return &StudyHandler{
		planService: planService,
		scheduler:   scheduler,
		phaseGate:   phaseGate,
		cfg:         cfg,
		logger:      logger,
	}
}

type createPlanRequest struct {
	Certification string `json:"certification" binding:"required"`
	CourseType    string `json:"course_type" binding:"required"`
	StartDate     string `json:"start_date"`
}

// CreatePlan enrolls the authenticated user in a new study program
func (h *StudyHandler) CreatePlan(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	if len(h.cfg.GetSubjectsForCertification(req.Certification)) == 0 {
		RespondWithError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInvalidInput,
			"unknown certification: %s", req.Certification))
		return
	}

	startDate := time.Now().UTC()
	if req.StartDate != "" {
		parsed, err := contextutils.ParseDate(req.StartDate)
		if err != nil {
			RespondWithValidationError(c, err)
			return
		}
		startDate = parsed
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), userID, req.Certification,
		models.CourseType(req.CourseType), startDate)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetActivePlan returns the caller's current plan
func (h *StudyHandler) GetActivePlan(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	plan, err := h.planService.GetActivePlan(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// AbandonPlan resets the caller's plan; the record is retained as history
func (h *StudyHandler) AbandonPlan(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	plan, err := h.ownedPlan(c, userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	if err := h.planService.AbandonPlan(c.Request.Context(), plan.ID); err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
}

// AdvanceDay marks the current day complete and moves the plan forward
func (h *StudyHandler) AdvanceDay(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	plan, err := h.ownedPlan(c, userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	updated, err := h.planService.AdvanceDay(c.Request.Context(), plan.ID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// GetDailyRoutine returns the plan, today's log, and freshly computed quotas
func (h *StudyHandler) GetDailyRoutine(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_daily_routine")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	routine, err := h.scheduler.GetDailyRoutine(ctx, userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, routine)
}

// GetReadingSession assembles today's new-concept session
func (h *StudyHandler) GetReadingSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_reading_session")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	routine, err := h.scheduler.GetDailyRoutine(ctx, userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}
	if len(routine.Log.TargetSubjects) == 0 {
		RespondWithError(c, h.logger, contextutils.ErrorWithContextf("daily log has no target subject"))
		return
	}

	session, err := h.scheduler.BuildReadingSession(ctx, routine.Stats,
		routine.Log.TargetSubjects[0], routine.Plan.Certification)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetReviewSession assembles today's review session with gap-filling
func (h *StudyHandler) GetReviewSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_review_session")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	routine, err := h.scheduler.GetDailyRoutine(ctx, userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}
	if len(routine.Log.TargetSubjects) == 0 {
		RespondWithError(c, h.logger, contextutils.ErrorWithContextf("daily log has no target subject"))
		return
	}

	session, err := h.scheduler.BuildReviewSession(ctx, userID, routine.Stats,
		routine.Log.TargetSubjects[0], routine.Plan.Certification)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

type completeSessionRequest struct {
	Kind        string `json:"kind" binding:"required"`
	QuestionIDs []int  `json:"question_ids"`
}

// CompleteSession marks today's reading or review session finished
func (h *StudyHandler) CompleteSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "complete_session")
	defer observability.FinishSpan(span, nil)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req completeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	plan, err := h.planService.GetActivePlan(ctx, userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	err = h.scheduler.MarkSessionComplete(ctx, plan.ID, plan.CurrentDay,
		models.SessionKind(req.Kind), req.QuestionIDs)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

type phase1ResultRequest struct {
	Subject        string  `json:"subject" binding:"required"`
	Accuracy       float64 `json:"accuracy" binding:"min=0,max=100"`
	TotalQuestions int     `json:"total_questions" binding:"required,min=1"`
	CorrectCount   int     `json:"correct_count" binding:"min=0"`
}

// RecordPhase1Result stores a mastery-quiz result and returns the derived
// per-subject readiness.
func (h *StudyHandler) RecordPhase1Result(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req phase1ResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	status, err := h.phaseGate.RecordPhase1Result(c.Request.Context(), userID, req.Subject,
		req.Accuracy, req.TotalQuestions, req.CorrectCount, time.Now().UTC())
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetPhase2Eligibility reports whether every subject of the caller's
// certification is ready for the full mock exam.
func (h *StudyHandler) GetPhase2Eligibility(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	plan, err := h.planService.GetActivePlan(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	subjects := h.cfg.GetSubjectsForCertification(plan.Certification)
	eligible, perSubject, err := h.phaseGate.CanStartPhase2(c.Request.Context(), userID, subjects)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"eligible": eligible,
		"subjects": perSubject,
	})
}

// ownedPlan resolves the :id path parameter and verifies ownership
func (h *StudyHandler) ownedPlan(c *gin.Context, userID int) (*models.StudyPlan, error) {
	planID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid plan id")
	}

	plan, err := h.planService.GetPlanByID(c.Request.Context(), planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, contextutils.WrapErrorf(contextutils.ErrForbidden, "plan %d", planID)
	}
	return plan, nil
}
