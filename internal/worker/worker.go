// Package worker contains the background worker responsible for sending
// review-due reminder emails and sweeping stale ingestion jobs. The worker
// runs independently of HTTP request handling.
package worker

import (
	"context"
	"sync"
	"time"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	"examprep/internal/services"
	"examprep/internal/services/mailer"

	"go.opentelemetry.io/otel/attribute"
)

// Status represents the current state of the worker
type Status struct {
	IsRunning       bool      `json:"is_running"`
	CurrentActivity string    `json:"current_activity,omitempty"`
	LastRunStart    time.Time `json:"last_run_start"`
	LastRunFinish   time.Time `json:"last_run_finish"`
	LastRunError    string    `json:"last_run_error,omitempty"`
	NextRun         time.Time `json:"next_run"`
}

// Worker periodically sends review reminders and reports on the ingestion
// review queue.
type Worker struct {
	userService  services.UserServiceInterface
	wrongAnswers services.WrongAnswerServiceInterface
	ingestion    services.IngestionServiceInterface
	emailService mailer.Mailer
	cfg          *config.Config
	logger       *observability.Logger
	instance     string

	mu     sync.RWMutex
	status Status
	// lastReminderDate is the last UTC date reminders were sent, so one
	// reminder pass happens per day regardless of the check interval
	lastReminderDate string

	manualTrigger chan struct{}
	cancel        context.CancelFunc

	// timeNow is swapped out in tests
	timeNow func() time.Time
}

// NewWorker creates a new background worker instance
func NewWorker(userService services.UserServiceInterface, wrongAnswers services.WrongAnswerServiceInterface, ingestion services.IngestionServiceInterface, emailService mailer.Mailer, cfg *config.Config, logger *observability.Logger, instance string) *Worker {
	return &Worker{
		userService:   userService,
		wrongAnswers:  wrongAnswers,
		ingestion:     ingestion,
		emailService:  emailService,
		cfg:           cfg,
		logger:        logger,
		instance:      instance,
		manualTrigger: make(chan struct{}, 1),
		timeNow:       time.Now,
	}
}

// Start runs the worker loop until the context is cancelled
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.setRunning(true)
	defer w.setRunning(false)

	w.logger.Info(ctx, "Worker started", map[string]interface{}{"instance": w.instance})

	ticker := time.NewTicker(config.WorkerCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Worker stopping", map[string]interface{}{"instance": w.instance})
			return
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.manualTrigger:
			w.runOnce(ctx)
		}
	}
}

// Stop cancels the worker loop
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Trigger requests an immediate run, coalescing concurrent requests
func (w *Worker) Trigger() {
	select {
	case w.manualTrigger <- struct{}{}:
	default:
	}
}

// GetStatus returns a snapshot of the worker state
func (w *Worker) GetStatus() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *Worker) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.IsRunning = running
}

func (w *Worker) setActivity(activity string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.CurrentActivity = activity
}

func (w *Worker) runOnce(ctx context.Context) {
	ctx, span := observability.TraceWorkerFunction(ctx, "runOnce",
		attribute.String("worker.instance", w.instance),
	)
	defer span.End()

	now := w.timeNow().UTC()

	w.mu.Lock()
	w.status.LastRunStart = now
	w.status.LastRunError = ""
	w.status.NextRun = now.Add(config.WorkerCheckInterval)
	w.mu.Unlock()

	var runErr error
	if err := w.checkForReviewReminders(ctx, now); err != nil {
		runErr = err
		w.logger.Error(ctx, "Review reminder pass failed", err)
	}
	if err := w.reportReviewQueue(ctx); err != nil {
		runErr = err
		w.logger.Error(ctx, "Review queue report failed", err)
	}

	w.mu.Lock()
	w.status.LastRunFinish = w.timeNow().UTC()
	if runErr != nil {
		w.status.LastRunError = runErr.Error()
	}
	w.status.CurrentActivity = ""
	w.mu.Unlock()
}

// checkForReviewReminders sends one reminder pass per UTC day at or after
// the configured hour.
func (w *Worker) checkForReviewReminders(ctx context.Context, now time.Time) error {
	ctx, span := observability.TraceWorkerFunction(ctx, "checkForReviewReminders",
		attribute.Bool("email.enabled", w.cfg.Email.Enabled),
		attribute.Bool("reminder.enabled", w.cfg.Email.DailyReminder.Enabled),
		attribute.Int("reminder.hour", w.cfg.Email.DailyReminder.Hour),
	)
	defer span.End()

	if !w.cfg.Email.Enabled || !w.cfg.Email.DailyReminder.Enabled {
		return nil
	}
	if now.Hour() < w.cfg.Email.DailyReminder.Hour {
		return nil
	}

	today := now.Format("2006-01-02")
	w.mu.Lock()
	alreadySent := w.lastReminderDate == today
	if !alreadySent {
		w.lastReminderDate = today
	}
	w.mu.Unlock()
	if alreadySent {
		return nil
	}

	w.setActivity("sending review reminders")

	users, err := w.userService.ListUsers(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for _, user := range users {
		if !user.Email.Valid || user.Email.String == "" {
			continue
		}

		due, dueErr := w.wrongAnswers.ListDue(ctx, user.ID, now)
		if dueErr != nil {
			w.logger.Error(ctx, "Failed to compute due buckets", dueErr, map[string]interface{}{
				"user_id": user.ID,
			})
			continue
		}
		if len(due[models.ReviewDueShortTerm]) == 0 && len(due[models.ReviewDueLongTerm]) == 0 {
			continue
		}

		u := user
		if sendErr := w.emailService.SendReviewReminder(ctx, &u, due); sendErr != nil {
			w.logger.Error(ctx, "Failed to send review reminder", sendErr, map[string]interface{}{
				"user_id": user.ID,
			})
			continue
		}
		sent++
	}

	span.SetAttributes(attribute.Int("reminders.sent", sent))
	w.logger.Info(ctx, "Review reminder pass complete", map[string]interface{}{
		"users_checked":  len(users),
		"reminders_sent": sent,
	})
	return nil
}

// reportReviewQueue surfaces the size of the human-review backlog so
// operators notice a stuck ingestion pipeline.
func (w *Worker) reportReviewQueue(ctx context.Context) error {
	ctx, span := observability.TraceWorkerFunction(ctx, "reportReviewQueue")
	defer span.End()

	w.setActivity("checking ingestion review queue")

	jobs, err := w.ingestion.ListJobsByStatus(ctx, models.IngestionStatusNeedsReview, 100)
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("review_queue.size", len(jobs)))
	if len(jobs) > 0 {
		w.logger.Info(ctx, "Ingestion jobs awaiting human review", map[string]interface{}{
			"count": len(jobs),
		})
	}
	return nil
}
