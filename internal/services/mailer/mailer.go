// Package mailer defines the email-sending interface for the exam-prep application.
package mailer

import (
	"context"

	"examprep/internal/models"
)

// Mailer defines the interface for email sending functionality
type Mailer interface {
	// SendReviewReminder sends a review-due reminder listing the wrong
	// answers that have crossed a reminder threshold
	SendReviewReminder(ctx context.Context, user *models.User, due map[models.ReviewDueBucket][]models.WrongAnswer) error

	// SendEmail sends a generic email with the given parameters
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error

	// IsEnabled returns whether email functionality is enabled
	IsEnabled() bool

	// RecordSentNotification records a sent notification in the database
	RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) error
}
