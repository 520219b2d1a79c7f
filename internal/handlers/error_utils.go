// Package handlers provides the HTTP layer for the exam-prep application.
package handlers

import (
	"errors"
	"net/http"

	"examprep/internal/middleware"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// RespondWithError translates a service error into a structured HTTP
// response. NoQuestionsAvailable gets a user-facing blocking message so
// the UI never starts an empty session silently.
func RespondWithError(c *gin.Context, logger *observability.Logger, err error) {
	_ = c.Error(err)

	if errors.Is(err, contextutils.ErrNoQuestionsAvailable) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "No questions available for this session",
			"message": "복습할 문제가 없습니다. 먼저 문제를 풀어주세요.",
			"code":    string(contextutils.ErrorCodeNoQuestionsAvailable),
		})
		return
	}

	var appErr *contextutils.AppError
	if contextutils.AsError(err, &appErr) {
		if appErr.Severity == contextutils.SeverityError || appErr.Severity == contextutils.SeverityFatal {
			logger.Error(c.Request.Context(), "Request failed", err, map[string]interface{}{
				"path": c.Request.URL.Path,
			})
		}
		middleware.StandardizeAppError(c, appErr)
		return
	}

	logger.Error(c.Request.Context(), "Unhandled error", err, map[string]interface{}{
		"path": c.Request.URL.Path,
	})
	middleware.StandardizeHTTPError(c, http.StatusInternalServerError, "Internal server error", err.Error())
}

// RespondWithValidationError sends a 400 for malformed request bodies
func RespondWithValidationError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
		"code":    string(contextutils.ErrorCodeInvalidInput),
	})
}
