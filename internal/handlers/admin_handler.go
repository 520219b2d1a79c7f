package handlers

import (
	"io"
	"net/http"
	"strconv"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	"examprep/internal/services"
	contextutils "examprep/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxExtractionPayload bounds the AI payload size accepted by the review endpoint
const maxExtractionPayload = 1 << 20

// AdminHandler exposes question management and the ingestion review queue
type AdminHandler struct {
	userService services.UserServiceInterface
	questionSvc services.QuestionServiceInterface
	ingestion   services.IngestionServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(userService services.UserServiceInterface, questionSvc services.QuestionServiceInterface, ingestion services.IngestionServiceInterface, cfg *config.Config, logger *observability.Logger) *AdminHandler {
	return &AdminHandler{
		userService: userService,
		questionSvc: questionSvc,
		ingestion:   ingestion,
		cfg:         cfg,
		logger:      logger,
	}
}

// ListUsers returns all accounts
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// CreateQuestion inserts a hand-entered question into the bank
func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	var question models.Question
	if err := c.ShouldBindJSON(&question); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	created, err := h.questionSvc.CreateQuestion(c.Request.Context(), &question)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// UpdateQuestion replaces an existing question's fields
func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		RespondWithValidationError(c, err)
		return
	}

	var question models.Question
	if err := c.ShouldBindJSON(&question); err != nil {
		RespondWithValidationError(c, err)
		return
	}
	question.ID = id

	if err := h.questionSvc.UpdateQuestion(c.Request.Context(), &question); err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question from the bank
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		RespondWithValidationError(c, err)
		return
	}

	if err := h.questionSvc.DeleteQuestion(c.Request.Context(), id); err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type createJobRequest struct {
	Certification string `json:"certification" binding:"required"`
	Subject       string `json:"subject" binding:"required"`
	SourceFile    string `json:"source_file"`
	QuestionID    int    `json:"question_id"`
}

// CreateIngestionJob registers a new extraction job, optionally attached
// to an already-stored question.
func (h *AdminHandler) CreateIngestionJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	job, err := h.ingestion.CreateJob(c.Request.Context(), req.Certification, req.Subject, req.SourceFile)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	if req.QuestionID > 0 {
		if err := h.ingestion.AttachQuestion(c.Request.Context(), job.ID, req.QuestionID); err != nil {
			RespondWithError(c, h.logger, err)
			return
		}
		job, err = h.ingestion.GetJob(c.Request.Context(), job.ID)
		if err != nil {
			RespondWithError(c, h.logger, err)
			return
		}
	}

	c.JSON(http.StatusCreated, job)
}

// ListIngestionJobs returns jobs in the requested state, defaulting to the
// human-review queue.
func (h *AdminHandler) ListIngestionJobs(c *gin.Context) {
	status := models.IngestionStatus(c.DefaultQuery("status", string(models.IngestionStatusNeedsReview)))
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			RespondWithValidationError(c, err)
			return
		}
		limit = parsed
	}

	jobs, err := h.ingestion.ListJobsByStatus(c.Request.Context(), status, limit)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// ProcessExtraction feeds a raw AI extraction payload through the
// classification pipeline for the given job.
func (h *AdminHandler) ProcessExtraction(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondWithValidationError(c, err)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxExtractionPayload))
	if err != nil {
		RespondWithError(c, h.logger, contextutils.WrapError(err, "failed to read payload"))
		return
	}

	job, err := h.ingestion.ProcessExtraction(c.Request.Context(), jobID, payload)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ApproveIngestionJob is the human-review resolution for a flagged job
func (h *AdminHandler) ApproveIngestionJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondWithValidationError(c, err)
		return
	}

	if err := h.ingestion.ApproveJob(c.Request.Context(), jobID); err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}
