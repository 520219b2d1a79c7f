package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware recovers panics and converts them into
// structured 500 responses instead of dropping the connection.
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stackTrace := string(debug.Stack())
				if logger != nil {
					logger.Error(c.Request.Context(), "Panic recovered", fmt.Errorf("panic: %v", r), map[string]interface{}{
						"path":   c.Request.URL.Path,
						"method": c.Request.Method,
						"stack":  stackTrace,
					})
				}

				appErr := contextutils.NewAppError(
					contextutils.ErrorCodeInternalError,
					contextutils.SeverityFatal,
					"Internal server error",
					"A panic occurred while processing the request",
				)
				if gin.Mode() == gin.DebugMode {
					appErr.Details = fmt.Sprintf("%s\nStack trace: %s", appErr.Details, stackTrace)
				}

				HandleAppError(c, appErr)
				c.Abort()
			}
		}()

		c.Next()
	}
}

// HandleAppError handles any AppError and sends the appropriate HTTP response
func HandleAppError(c *gin.Context, err error) {
	if appErr, ok := err.(*contextutils.AppError); ok {
		StandardizeAppError(c, appErr)
		return
	}
	StandardizeHTTPError(c, http.StatusInternalServerError, "Internal server error", err.Error())
}

// StandardizeAppError sends a structured error response using AppError
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	statusCode := mapErrorCodeToHTTPStatus(err.Code)

	errorJSON := err.ToJSON()
	errorJSON["retryable"] = contextutils.IsRetryable(err)

	c.JSON(statusCode, errorJSON)
}

// StandardizeHTTPError creates a consistent HTTP error response for plain errors
func StandardizeHTTPError(c *gin.Context, statusCode int, message, details string) {
	c.JSON(statusCode, gin.H{
		"error":   message,
		"details": details,
		"code":    string(contextutils.ErrorCodeInternalError),
	})
}

// mapErrorCodeToHTTPStatus maps application error codes to HTTP status codes
func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.ErrorCodeRecordNotFound,
		contextutils.ErrorCodePlanNotFound,
		contextutils.ErrorCodeQuestionNotFound,
		contextutils.ErrorCodeIngestionJobNotFound:
		return http.StatusNotFound
	case contextutils.ErrorCodeInvalidInput,
		contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeValidationFailed,
		contextutils.ErrorCodeInvalidAnswerIndex,
		contextutils.ErrorCodePlanDayOutOfRange,
		contextutils.ErrorCodeStructurePayloadInvalid:
		return http.StatusBadRequest
	case contextutils.ErrorCodeUnauthorized,
		contextutils.ErrorCodeInvalidCredentials,
		contextutils.ErrorCodeSessionExpired:
		return http.StatusUnauthorized
	case contextutils.ErrorCodeForbidden:
		return http.StatusForbidden
	case contextutils.ErrorCodeRecordExists,
		contextutils.ErrorCodeConflict,
		contextutils.ErrorCodePlanAlreadyActive:
		return http.StatusConflict
	case contextutils.ErrorCodePlanCompleted:
		return http.StatusGone
	case contextutils.ErrorCodeNoQuestionsAvailable:
		return http.StatusUnprocessableEntity
	case contextutils.ErrorCodeTimeout:
		return http.StatusRequestTimeout
	case contextutils.ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ServiceUnavailable sends a 503 with a structured body
func ServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": message,
		"code":  string(contextutils.ErrorCodeServiceUnavailable),
	})
}
