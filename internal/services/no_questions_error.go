package services

import (
	"fmt"

	contextutils "examprep/internal/utils"
)

// NoQuestionsAvailableError is returned when a review session cannot be
// assembled because both the wrong-answer list and the fallback pool are empty.
type NoQuestionsAvailableError struct {
	Subject        string
	Certification  string
	WrongCount     int
	FallbackCount  int
	RequestedCount int
}

func (e *NoQuestionsAvailableError) Error() string {
	return fmt.Sprintf("no questions available for session (subject=%s certification=%s wrong_count=%d fallback_count=%d requested=%d)", e.Subject, e.Certification, e.WrongCount, e.FallbackCount, e.RequestedCount)
}

// Unwrap allows errors.Is(..., contextutils.ErrNoQuestionsAvailable) to work.
func (e *NoQuestionsAvailableError) Unwrap() error {
	return contextutils.ErrNoQuestionsAvailable
}
