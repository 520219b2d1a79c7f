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

// WrongAnswerServiceInterface defines the interface for wrong-answer tracking
type WrongAnswerServiceInterface interface {
	Upsert(ctx context.Context, userID, questionID int) (*models.WrongAnswer, error)
	List(ctx context.Context, userID int) ([]models.WrongAnswer, error)
	ListDue(ctx context.Context, userID int, now time.Time) (map[models.ReviewDueBucket][]models.WrongAnswer, error)
	Remove(ctx context.Context, userID, questionID int) error
}

// WrongAnswerService tracks repeated misses and derives review-due buckets
type WrongAnswerService struct {
	db     *sql.DB
	logger *observability.Logger
	cfg    config.ReviewReminderConfig
}

// NewWrongAnswerService creates a new WrongAnswerService instance
func NewWrongAnswerService(db *sql.DB, logger *observability.Logger, cfg config.ReviewReminderConfig) *WrongAnswerService {
	return &WrongAnswerService{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

// Upsert records a miss for (userID, questionID). The increment happens in
// a single statement so concurrent submissions from multiple tabs cannot
// lose an update.
func (s *WrongAnswerService) Upsert(ctx context.Context, userID, questionID int) (result0 *models.WrongAnswer, err error) {
	ctx, span := observability.TraceWrongAnswerFunction(ctx, "Upsert",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	var wa models.WrongAnswer
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO wrong_answers (user_id, question_id, added_date, wrong_count)
		VALUES ($1, $2, NOW(), 1)
		ON CONFLICT (user_id, question_id)
		DO UPDATE SET wrong_count = wrong_answers.wrong_count + 1
		RETURNING id, user_id, question_id, added_date, wrong_count`,
		userID, questionID,
	).Scan(&wa.ID, &wa.UserID, &wa.QuestionID, &wa.AddedDate, &wa.WrongCount)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to upsert wrong answer")
	}

	span.SetAttributes(attribute.Int("wrong_answer.count", wa.WrongCount))
	return &wa, nil
}

// List returns the user's wrong answers ordered by wrong_count descending,
// ties broken by record ID for a stable order.
func (s *WrongAnswerService) List(ctx context.Context, userID int) (result0 []models.WrongAnswer, err error) {
	ctx, span := observability.TraceWrongAnswerFunction(ctx, "List",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, question_id, added_date, wrong_count
		FROM wrong_answers
		WHERE user_id = $1
		ORDER BY wrong_count DESC, id ASC`,
		userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query wrong answers")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	answers := []models.WrongAnswer{}
	for rows.Next() {
		var wa models.WrongAnswer
		if err := rows.Scan(&wa.ID, &wa.UserID, &wa.QuestionID, &wa.AddedDate, &wa.WrongCount); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan wrong answer")
		}
		answers = append(answers, wa)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating wrong answers")
	}

	span.SetAttributes(attribute.Int("wrong_answers.count", len(answers)))
	return answers, nil
}

// ListDue groups the user's wrong answers into reminder buckets. There is
// no persisted next-review date; the bucket is derived from the record's
// age on every read.
func (s *WrongAnswerService) ListDue(ctx context.Context, userID int, now time.Time) (result0 map[models.ReviewDueBucket][]models.WrongAnswer, err error) {
	ctx, span := observability.TraceWrongAnswerFunction(ctx, "ListDue",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	answers, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	buckets := map[models.ReviewDueBucket][]models.WrongAnswer{}
	for _, wa := range answers {
		bucket := s.BucketFor(wa, now)
		buckets[bucket] = append(buckets[bucket], wa)
	}

	span.SetAttributes(
		attribute.Int("due.short_term", len(buckets[models.ReviewDueShortTerm])),
		attribute.Int("due.long_term", len(buckets[models.ReviewDueLongTerm])),
	)
	return buckets, nil
}

// BucketFor classifies a single wrong answer by its age in whole UTC days
func (s *WrongAnswerService) BucketFor(wa models.WrongAnswer, now time.Time) models.ReviewDueBucket {
	age := contextutils.DaysSince(wa.AddedDate, now)
	switch {
	case age >= s.cfg.LongTermDays:
		return models.ReviewDueLongTerm
	case age >= s.cfg.ShortTermDays:
		return models.ReviewDueShortTerm
	default:
		return models.ReviewDueNone
	}
}

// Remove deletes a wrong-answer record once the learner has mastered it
func (s *WrongAnswerService) Remove(ctx context.Context, userID, questionID int) (err error) {
	ctx, span := observability.TraceWrongAnswerFunction(ctx, "Remove",
		observability.AttributeUserID(userID),
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM wrong_answers WHERE user_id = $1 AND question_id = $2",
		userID, questionID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete wrong answer")
	}
	return requireOneRow(result, contextutils.ErrRecordNotFound, questionID)
}
