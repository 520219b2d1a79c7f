package middleware

import (
	"net/http"
	"testing"

	contextutils "examprep/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	cases := []struct {
		code     contextutils.ErrorCode
		expected int
	}{
		{contextutils.ErrorCodeRecordNotFound, http.StatusNotFound},
		{contextutils.ErrorCodePlanNotFound, http.StatusNotFound},
		{contextutils.ErrorCodeQuestionNotFound, http.StatusNotFound},
		{contextutils.ErrorCodeIngestionJobNotFound, http.StatusNotFound},
		{contextutils.ErrorCodeInvalidInput, http.StatusBadRequest},
		{contextutils.ErrorCodeInvalidAnswerIndex, http.StatusBadRequest},
		{contextutils.ErrorCodePlanDayOutOfRange, http.StatusBadRequest},
		{contextutils.ErrorCodeStructurePayloadInvalid, http.StatusBadRequest},
		{contextutils.ErrorCodeInvalidCredentials, http.StatusUnauthorized},
		{contextutils.ErrorCodeForbidden, http.StatusForbidden},
		{contextutils.ErrorCodePlanAlreadyActive, http.StatusConflict},
		{contextutils.ErrorCodePlanCompleted, http.StatusGone},
		{contextutils.ErrorCodeNoQuestionsAvailable, http.StatusUnprocessableEntity},
		{contextutils.ErrorCodeTimeout, http.StatusRequestTimeout},
		{contextutils.ErrorCodeServiceUnavailable, http.StatusServiceUnavailable},
		{contextutils.ErrorCodeInternalError, http.StatusInternalServerError},
		{contextutils.ErrorCode("SOMETHING_NEW"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.expected, mapErrorCodeToHTTPStatus(tc.code))
		})
	}
}
