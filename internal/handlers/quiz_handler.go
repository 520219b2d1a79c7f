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

// QuizHandler serves questions and processes answer submissions
type QuizHandler struct {
	questionSvc  services.QuestionServiceInterface
	wrongAnswers services.WrongAnswerServiceInterface
	cfg          *config.Config
	logger       *observability.Logger
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(questionSvc services.QuestionServiceInterface, wrongAnswers services.WrongAnswerServiceInterface, cfg *config.Config, logger *observability.Logger) *QuizHandler {
	return &QuizHandler{
		questionSvc:  questionSvc,
		wrongAnswers: wrongAnswers,
		cfg:          cfg,
		logger:       logger,
	}
}

// ListQuestions returns questions filtered by certification/subject/year
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	filter := models.QuestionFilter{
		Certification: c.Query("certification"),
		Subject:       c.Query("subject"),
	}
	if filter.Certification == "" {
		RespondWithError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrMissingRequired, "certification is required"))
		return
	}
	if yearStr := c.Query("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			RespondWithValidationError(c, err)
			return
		}
		filter.Year = year
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			RespondWithValidationError(c, err)
			return
		}
		filter.Limit = limit
	}

	questions, err := h.questionSvc.LoadQuestions(c.Request.Context(), filter)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions, "count": len(questions)})
}

// GetQuestion returns a single question by ID
func (h *QuizHandler) GetQuestion(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		RespondWithValidationError(c, err)
		return
	}

	question, err := h.questionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// SubmitAnswer grades an answer. A miss is recorded atomically in the
// wrong-answer tracker; a correct answer clears any existing record.
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	question, err := h.questionSvc.GetByID(c.Request.Context(), req.QuestionID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	if req.UserAnswerIndex < 0 || req.UserAnswerIndex >= len(question.Options) {
		RespondWithError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInvalidAnswerIndex,
			"answer index %d outside 0..%d", req.UserAnswerIndex, len(question.Options)-1))
		return
	}

	resp := models.AnswerResponse{
		IsCorrect:   req.UserAnswerIndex == question.AnswerIndex,
		AnswerIndex: question.AnswerIndex,
	}

	if resp.IsCorrect {
		if err := h.wrongAnswers.Remove(c.Request.Context(), userID, question.ID); err != nil {
			if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
				RespondWithError(c, h.logger, err)
				return
			}
		}
	} else {
		wa, upsertErr := h.wrongAnswers.Upsert(c.Request.Context(), userID, question.ID)
		if upsertErr != nil {
			RespondWithError(c, h.logger, upsertErr)
			return
		}
		resp.WrongCount = wa.WrongCount
	}

	c.JSON(http.StatusOK, resp)
}

// ListWrongAnswers returns the caller's wrong answers and their review buckets
func (h *QuizHandler) ListWrongAnswers(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	answers, err := h.wrongAnswers.List(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	due, err := h.wrongAnswers.ListDue(c.Request.Context(), userID, time.Now().UTC())
	if err != nil {
		RespondWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wrong_answers":  answers,
		"due_short_term": due[models.ReviewDueShortTerm],
		"due_long_term":  due[models.ReviewDueLongTerm],
	})
}
