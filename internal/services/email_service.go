package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"html/template"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	"examprep/internal/services/mailer"
	contextutils "examprep/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// EmailService implements the mailer.Mailer interface using gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
	db     *sql.DB
}

// Ensure EmailService implements the Mailer interface
var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates a new EmailService instance
func NewEmailService(cfg *config.Config, logger *observability.Logger, db *sql.DB) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
		db:     db,
	}
}

// IsEnabled returns whether email functionality is enabled
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.dialer != nil
}

var reviewReminderTemplate = template.Must(template.New("review_reminder").Parse(`
<h2>복습 알림</h2>
<p>{{.Username}}님, 복습할 문제가 기다리고 있습니다.</p>
{{if .ShortTermCount}}<p>7일차 복습 대상: <strong>{{.ShortTermCount}}문제</strong></p>{{end}}
{{if .LongTermCount}}<p>30일차 복습 대상: <strong>{{.LongTermCount}}문제</strong></p>{{end}}
<p>오답은 잊기 전에 다시 풀어야 내 것이 됩니다.</p>
`))

// SendReviewReminder sends a review-due reminder to a user
func (e *EmailService) SendReviewReminder(ctx context.Context, user *models.User, due map[models.ReviewDueBucket][]models.WrongAnswer) (err error) {
	ctx, span := observability.TraceFunction(ctx, "email", "SendReviewReminder",
		observability.AttributeUserID(user.ID),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping review reminder", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}
	if !user.Email.Valid || user.Email.String == "" {
		e.logger.Warn(ctx, "User has no email address, skipping review reminder", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	shortTerm := len(due[models.ReviewDueShortTerm])
	longTerm := len(due[models.ReviewDueLongTerm])
	if shortTerm == 0 && longTerm == 0 {
		return nil
	}

	var body bytes.Buffer
	err = reviewReminderTemplate.Execute(&body, map[string]interface{}{
		"Username":       user.Username,
		"ShortTermCount": shortTerm,
		"LongTermCount":  longTerm,
	})
	if err != nil {
		return contextutils.WrapError(err, "failed to render reminder template")
	}

	subject := fmt.Sprintf("복습 알림: %d문제가 기다리고 있어요", shortTerm+longTerm)
	sendErr := e.send(user.Email.String, subject, body.String())

	status := "sent"
	errMsg := ""
	if sendErr != nil {
		status = "failed"
		errMsg = sendErr.Error()
	}
	if recordErr := e.RecordSentNotification(ctx, user.ID, "review_reminder", subject, "review_reminder", status, errMsg); recordErr != nil {
		e.logger.Error(ctx, "Failed to record sent notification", recordErr)
	}

	if sendErr != nil {
		return contextutils.WrapError(sendErr, "failed to send review reminder")
	}

	span.SetAttributes(
		attribute.Int("reminder.short_term", shortTerm),
		attribute.Int("reminder.long_term", longTerm),
	)
	return nil
}

// SendEmail sends a generic email with the given parameters
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceFunction(ctx, "email", "SendEmail",
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping send", map[string]interface{}{"template": templateName})
		return nil
	}

	var body bytes.Buffer
	switch templateName {
	case "review_reminder":
		if err := reviewReminderTemplate.Execute(&body, data); err != nil {
			return contextutils.WrapError(err, "failed to render template")
		}
	default:
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown email template: %s", templateName)
	}

	return e.send(to, subject, body.String())
}

func (e *EmailService) send(to, subject, htmlBody string) error {
	m := mail.NewMessage()
	m.SetAddressHeader("From", e.cfg.Email.SMTP.FromAddress, e.cfg.Email.SMTP.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return e.dialer.DialAndSend(m)
}

// RecordSentNotification records a sent notification in the database
func (e *EmailService) RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) (err error) {
	ctx, span := observability.TraceFunction(ctx, "email", "RecordSentNotification",
		observability.AttributeUserID(userID),
		attribute.String("notification.type", notificationType),
		attribute.String("notification.status", status),
	)
	defer observability.FinishSpan(span, &err)

	_, err = e.db.ExecContext(ctx, `
		INSERT INTO sent_notifications (user_id, notification_type, subject, template_name, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		userID, notificationType, subject, templateName, status, nullIfEmpty(errorMessage))
	if err != nil {
		return contextutils.WrapError(err, "failed to record notification")
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
