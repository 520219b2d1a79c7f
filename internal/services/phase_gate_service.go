package services

import (
	"context"
	"database/sql"
	"time"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// PhaseGateServiceInterface defines the interface for mock-exam gating
type PhaseGateServiceInterface interface {
	RecordPhase1Result(ctx context.Context, userID int, subject string, accuracy float64, totalQuestions, correctCount int, recordedAt time.Time) (*models.PhaseStatus, error)
	GetPhaseStatus(ctx context.Context, userID int, subject string) (*models.PhaseStatus, error)
	CanStartPhase2(ctx context.Context, userID int, allSubjects []string) (bool, map[string]bool, error)
}

// PhaseGateService gates access to full mock exams on rolling per-subject
// accuracy. Readiness is always re-derived from recorded history, never
// maintained as an independent flag that could desync.
type PhaseGateService struct {
	db     *sql.DB
	logger *observability.Logger
	cfg    config.PhaseGateConfig
}

// NewPhaseGateService creates a new PhaseGateService instance
func NewPhaseGateService(db *sql.DB, logger *observability.Logger, cfg config.PhaseGateConfig) *PhaseGateService {
	return &PhaseGateService{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

// RecordPhase1Result stores a mastery-quiz result and returns the derived
// status. History keeps only the most recent entries, newest first.
func (s *PhaseGateService) RecordPhase1Result(ctx context.Context, userID int, subject string, accuracy float64, totalQuestions, correctCount int, recordedAt time.Time) (result0 *models.PhaseStatus, err error) {
	ctx, span := observability.TracePhaseGateFunction(ctx, "RecordPhase1Result",
		observability.AttributeUserID(userID),
		observability.AttributeSubject(subject),
		attribute.Float64("result.accuracy", accuracy),
	)
	defer observability.FinishSpan(span, &err)

	if totalQuestions <= 0 || correctCount < 0 || correctCount > totalQuestions {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput,
			"invalid result: %d/%d", correctCount, totalQuestions)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error(ctx, "Failed to roll back transaction", rbErr)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO phase_results (user_id, subject, accuracy, total_questions, correct_count, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, subject, accuracy, totalQuestions, correctCount, recordedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert phase result")
	}

	// Prune beyond the history bound so the table stays small per subject
	_, err = tx.ExecContext(ctx, `
		DELETE FROM phase_results
		WHERE user_id = $1 AND subject = $2 AND id NOT IN (
			SELECT id FROM phase_results
			WHERE user_id = $1 AND subject = $2
			ORDER BY recorded_at DESC, id DESC
			LIMIT $3
		)`,
		userID, subject, s.cfg.HistoryLimit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to prune phase history")
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit phase result")
	}

	status, err := s.GetPhaseStatus(ctx, userID, subject)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("phase.ready", status.Ready))
	return status, nil
}

// GetPhaseStatus loads the bounded history for a subject and derives
// readiness from it. A subject with no history at all is not ready.
func (s *PhaseGateService) GetPhaseStatus(ctx context.Context, userID int, subject string) (result0 *models.PhaseStatus, err error) {
	ctx, span := observability.TracePhaseGateFunction(ctx, "GetPhaseStatus",
		observability.AttributeUserID(userID),
		observability.AttributeSubject(subject),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT accuracy, total_questions, correct_count, recorded_at
		FROM phase_results
		WHERE user_id = $1 AND subject = $2
		ORDER BY recorded_at DESC, id DESC
		LIMIT $3`,
		userID, subject, s.cfg.HistoryLimit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query phase history")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	history := []models.PhaseHistoryEntry{}
	for rows.Next() {
		var entry models.PhaseHistoryEntry
		if err := rows.Scan(&entry.Accuracy, &entry.TotalQuestions, &entry.CorrectCount, &entry.RecordedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan phase result")
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating phase results")
	}

	status := &models.PhaseStatus{
		UserID:  userID,
		Subject: subject,
		History: history,
		Ready:   s.deriveReady(history),
	}

	span.SetAttributes(
		attribute.Int("phase.history_len", len(history)),
		attribute.Bool("phase.ready", status.Ready),
	)
	return status, nil
}

// deriveReady requires a full streak of the most recent results to clear
// the accuracy threshold. Fewer results than the streak means not ready.
func (s *PhaseGateService) deriveReady(history []models.PhaseHistoryEntry) bool {
	if len(history) < s.cfg.RequiredStreak {
		return false
	}
	for _, entry := range history[:s.cfg.RequiredStreak] {
		if entry.Accuracy < s.cfg.AccuracyThreshold {
			return false
		}
	}
	return true
}

// CanStartPhase2 reports whether every subject of the certification is
// ready, along with the per-subject breakdown for the UI.
func (s *PhaseGateService) CanStartPhase2(ctx context.Context, userID int, allSubjects []string) (result0 bool, result1 map[string]bool, err error) {
	ctx, span := observability.TracePhaseGateFunction(ctx, "CanStartPhase2",
		observability.AttributeUserID(userID),
		attribute.Int("subjects.count", len(allSubjects)),
	)
	defer observability.FinishSpan(span, &err)

	if len(allSubjects) == 0 {
		return false, nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "no subjects configured")
	}

	perSubject := make(map[string]bool, len(allSubjects))
	allReady := true
	for _, subject := range allSubjects {
		status, statusErr := s.GetPhaseStatus(ctx, userID, subject)
		if statusErr != nil {
			return false, nil, statusErr
		}
		perSubject[subject] = status.Ready
		if !status.Ready {
			allReady = false
		}
	}

	span.SetAttributes(attribute.Bool("phase.all_ready", allReady))
	return allReady, perSubject, nil
}
