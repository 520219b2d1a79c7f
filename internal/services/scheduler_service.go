package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// SchedulerServiceInterface defines the interface for daily study scheduling
type SchedulerServiceInterface interface {
	ComputeDailyQuota(totalQuestions, planDays, currentDay int) models.DailyStats
	EnsureDailyLog(ctx context.Context, planID, dayNumber int, allSubjects []string) (*models.DailyStudyLog, error)
	BuildReadingSession(ctx context.Context, stats models.DailyStats, subject, certification string) (*models.StudySession, error)
	BuildReviewSession(ctx context.Context, userID int, stats models.DailyStats, fallbackSubject, certification string) (*models.StudySession, error)
	GetDailyRoutine(ctx context.Context, userID int) (*DailyRoutine, error)
	MarkSessionComplete(ctx context.Context, planID, dayNumber int, kind models.SessionKind, questionIDs []int) error
}

// DailyRoutine is everything the routine screen needs for the current day
type DailyRoutine struct {
	Plan  *models.StudyPlan     `json:"plan"`
	Log   *models.DailyStudyLog `json:"log"`
	Stats models.DailyStats     `json:"stats"`
}

// SchedulerService decides the learner's daily reading/review quotas and
// assembles the question sessions that fill them.
type SchedulerService struct {
	db           *sql.DB
	logger       *observability.Logger
	cfg          config.SchedulerConfig
	planService  StudyPlanServiceInterface
	questionSvc  QuestionServiceInterface
	wrongAnswers WrongAnswerServiceInterface
	// subjectsLookup maps a certification to its configured subject list
	subjectsLookup func(certification string) []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSchedulerService creates a new SchedulerService instance
func NewSchedulerService(db *sql.DB, logger *observability.Logger, cfg config.SchedulerConfig, planService StudyPlanServiceInterface, questionSvc QuestionServiceInterface, wrongAnswers WrongAnswerServiceInterface, subjectsLookup func(certification string) []string) *SchedulerService {
	return &SchedulerService{
		db:             db,
		logger:         logger,
		cfg:            cfg,
		planService:    planService,
		questionSvc:    questionSvc,
		wrongAnswers:   wrongAnswers,
		subjectsLookup: subjectsLookup,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRandomSource replaces the shuffle source. Tests use a fixed seed.
func (s *SchedulerService) SetRandomSource(rng *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
}

func (s *SchedulerService) shuffle(questions []models.Question) []models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ShuffleQuestions(questions, s.rng)
}

// ComputeDailyQuota derives today's new/review question quotas. Pure and
// deterministic: the same inputs always produce the same stats.
//
// Daily capacity spreads the whole bank over the course so each question is
// seen repetitionCoefficient times in aggregate. The last stretch of the
// course switches entirely to review, and the review quota never drops
// below the configured floor even for tiny banks.
func (s *SchedulerService) ComputeDailyQuota(totalQuestions, planDays, currentDay int) models.DailyStats {
	dailyCapacity := int(math.Ceil(float64(totalQuestions) * s.cfg.RepetitionCoefficient / float64(planDays)))
	progress := float64(currentDay) / float64(planDays)

	var newCount, reviewCount int
	if progress < s.cfg.FinalPhaseThreshold {
		newCount = int(math.Ceil(float64(dailyCapacity) * s.cfg.NewRatio))
		reviewCount = int(math.Floor(float64(dailyCapacity) * (1 - s.cfg.NewRatio)))
	} else {
		newCount = 0
		reviewCount = dailyCapacity
	}

	if newCount < 0 {
		newCount = 0
	}
	if reviewCount < s.cfg.ReviewFloor {
		reviewCount = s.cfg.ReviewFloor
	}

	return models.DailyStats{NewCount: newCount, ReviewCount: reviewCount}
}

// EnsureDailyLog returns the log for (planID, dayNumber), creating it on
// first visit. The subject rotation walks the certification's subjects one
// per day. Idempotent: the conditional insert means concurrent calls for
// the same day still yield a single log.
func (s *SchedulerService) EnsureDailyLog(ctx context.Context, planID, dayNumber int, allSubjects []string) (result0 *models.DailyStudyLog, err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "EnsureDailyLog",
		observability.AttributePlanID(planID),
		observability.AttributePlanDay(dayNumber),
	)
	defer observability.FinishSpan(span, &err)

	if len(allSubjects) == 0 {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "no subjects configured")
	}

	targetSubjects := pq.StringArray{rotationSubject(dayNumber, allSubjects)}

	// Conditional insert keeps the operation idempotent: a second call for
	// the same (plan, day) hits the unique constraint and inserts nothing.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_study_logs (plan_id, day_number, target_subjects, completed_reading, completed_review, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, FALSE, NOW(), NOW())
		ON CONFLICT (plan_id, day_number) DO NOTHING`,
		planID, dayNumber, targetSubjects)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to ensure daily log")
	}

	log, err := s.getDailyLog(ctx, planID, dayNumber)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.StringSlice("log.target_subjects", log.TargetSubjects))
	return log, nil
}

// rotationSubject walks the certification's subject list one entry per
// day, wrapping back to the first subject after the last.
func rotationSubject(dayNumber int, allSubjects []string) string {
	return allSubjects[(dayNumber-1)%len(allSubjects)]
}

func (s *SchedulerService) getDailyLog(ctx context.Context, planID, dayNumber int) (*models.DailyStudyLog, error) {
	var log models.DailyStudyLog
	var targetSubjects pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT id, plan_id, day_number, target_subjects, completed_reading, completed_review,
			reading_question_ids, review_question_ids, target_new_count, target_review_count,
			created_at, updated_at
		FROM daily_study_logs
		WHERE plan_id = $1 AND day_number = $2`,
		planID, dayNumber,
	).Scan(&log.ID, &log.PlanID, &log.DayNumber, &targetSubjects,
		&log.CompletedReading, &log.CompletedReview,
		&log.ReadingQuestionIDs, &log.ReviewQuestionIDs,
		&log.TargetNewCount, &log.TargetReviewCount,
		&log.CreatedAt, &log.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "daily log plan=%d day=%d", planID, dayNumber)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get daily log")
	}
	log.TargetSubjects = targetSubjects
	return &log, nil
}

// BuildReadingSession assembles today's new-concept session. The session
// size never falls below the reading floor, so a quota that rounds to zero
// still yields a usable session.
func (s *SchedulerService) BuildReadingSession(ctx context.Context, stats models.DailyStats, subject, certification string) (result0 *models.StudySession, err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "BuildReadingSession",
		observability.AttributeSubject(subject),
		observability.AttributeCertification(certification),
		attribute.Int("quota.new", stats.NewCount),
	)
	defer observability.FinishSpan(span, &err)

	questions, err := s.questionSvc.LoadQuestions(ctx, models.QuestionFilter{
		Certification: certification,
		Subject:       subject,
	})
	if err != nil {
		return nil, err
	}

	take := stats.NewCount
	if take < s.cfg.ReadingFloor {
		take = s.cfg.ReadingFloor
	}

	shuffled := s.shuffle(questions)
	if take > len(shuffled) {
		take = len(shuffled)
	}

	session := &models.StudySession{
		Kind:      models.SessionKindReading,
		Title:     fmt.Sprintf("%s 개념 학습", subject),
		Subject:   subject,
		Questions: shuffled[:take],
	}

	span.SetAttributes(attribute.Int("session.size", len(session.Questions)))
	return session, nil
}

// BuildReviewSession assembles today's review session from the user's
// wrong answers, hardest first. When there are fewer wrong answers than
// the quota, the gap is filled with random non-duplicate questions from
// the fallback subject, and the session title changes to signal the mix.
func (s *SchedulerService) BuildReviewSession(ctx context.Context, userID int, stats models.DailyStats, fallbackSubject, certification string) (result0 *models.StudySession, err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "BuildReviewSession",
		observability.AttributeUserID(userID),
		observability.AttributeSubject(fallbackSubject),
		attribute.Int("quota.review", stats.ReviewCount),
	)
	defer observability.FinishSpan(span, &err)

	wrongAnswers, err := s.wrongAnswers.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	selected := []models.Question{}
	selectedIDs := map[int]bool{}
	for _, wa := range wrongAnswers {
		if len(selected) >= stats.ReviewCount {
			break
		}
		question, getErr := s.questionSvc.GetByID(ctx, wa.QuestionID)
		if getErr != nil {
			if contextutils.IsError(getErr, contextutils.ErrQuestionNotFound) {
				// Question deleted from the bank since the miss was recorded
				s.logger.Warn(ctx, "Wrong answer references missing question", map[string]interface{}{
					"question_id": wa.QuestionID,
				})
				continue
			}
			return nil, getErr
		}
		selected = append(selected, *question)
		selectedIDs[question.ID] = true
	}
	wrongSelected := len(selected)

	// Gap-fill from the fallback subject, excluding already-selected IDs
	gapFilled := 0
	if len(selected) < stats.ReviewCount {
		excludeIDs := make([]int, 0, len(selectedIDs))
		for id := range selectedIDs {
			excludeIDs = append(excludeIDs, id)
		}
		fillers, fillErr := s.questionSvc.GetRandomQuestions(ctx, fallbackSubject, certification,
			stats.ReviewCount-len(selected), excludeIDs)
		if fillErr != nil {
			return nil, fillErr
		}
		fillers = s.shuffle(fillers)
		for _, q := range fillers {
			if selectedIDs[q.ID] {
				continue
			}
			selected = append(selected, q)
			selectedIDs[q.ID] = true
			gapFilled++
		}
	}

	if len(selected) == 0 {
		return nil, &NoQuestionsAvailableError{
			Subject:        fallbackSubject,
			Certification:  certification,
			WrongCount:     len(wrongAnswers),
			FallbackCount:  0,
			RequestedCount: stats.ReviewCount,
		}
	}

	kind := models.SessionKindPureReview
	title := "오답 복습"
	if gapFilled > 0 {
		kind = models.SessionKindReinforcement
		title = fmt.Sprintf("오답 복습 + %s 보충", fallbackSubject)
	}

	session := &models.StudySession{
		Kind:      kind,
		Title:     title,
		Subject:   fallbackSubject,
		Questions: selected,
	}

	span.SetAttributes(
		attribute.Int("session.size", len(session.Questions)),
		attribute.Int("session.from_wrong_answers", wrongSelected),
		attribute.Int("session.gap_filled", gapFilled),
	)
	return session, nil
}

// GetDailyRoutine loads the active plan, recomputes today's quotas, and
// ensures the daily log exists. Stats are derived fresh on every call,
// never cached.
func (s *SchedulerService) GetDailyRoutine(ctx context.Context, userID int) (result0 *DailyRoutine, err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "GetDailyRoutine",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	plan, err := s.planService.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	totalQuestions, err := s.questionSvc.GetTotalCount(ctx, plan.Certification)
	if err != nil {
		return nil, err
	}

	stats := s.ComputeDailyQuota(totalQuestions, plan.CourseType.TotalDays(), plan.CurrentDay)

	subjects := s.subjectsForCertification(ctx, plan.Certification)
	log, err := s.EnsureDailyLog(ctx, plan.ID, plan.CurrentDay, subjects)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		observability.AttributePlanDay(plan.CurrentDay),
		attribute.Int("quota.new", stats.NewCount),
		attribute.Int("quota.review", stats.ReviewCount),
	)
	return &DailyRoutine{Plan: plan, Log: log, Stats: stats}, nil
}

// subjectsForCertification resolves the subject rotation for a
// certification, preferring the configured list and falling back to the
// distinct subjects present in the bank.
func (s *SchedulerService) subjectsForCertification(ctx context.Context, certification string) []string {
	if s.subjectsLookup != nil {
		if subjects := s.subjectsLookup(certification); len(subjects) > 0 {
			return subjects
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT subject FROM questions WHERE certification = $1 ORDER BY subject", certification)
	if err != nil {
		s.logger.Error(ctx, "Failed to query subjects", err)
		return nil
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	subjects := []string{}
	for rows.Next() {
		var subject string
		if err := rows.Scan(&subject); err != nil {
			s.logger.Error(ctx, "Failed to scan subject", err)
			return nil
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error(ctx, "Error iterating subjects", err)
		return nil
	}
	return subjects
}

// MarkSessionComplete records that today's reading or review session was
// finished, storing the question IDs that made up the session.
func (s *SchedulerService) MarkSessionComplete(ctx context.Context, planID, dayNumber int, kind models.SessionKind, questionIDs []int) (err error) {
	ctx, span := observability.TraceSchedulerFunction(ctx, "MarkSessionComplete",
		observability.AttributePlanID(planID),
		observability.AttributePlanDay(dayNumber),
		attribute.String("session.kind", string(kind)),
	)
	defer observability.FinishSpan(span, &err)

	ids := make(pq.Int64Array, 0, len(questionIDs))
	for _, id := range questionIDs {
		ids = append(ids, int64(id))
	}

	var query string
	switch kind {
	case models.SessionKindReading:
		query = `UPDATE daily_study_logs
			SET completed_reading = TRUE, reading_question_ids = $1, target_new_count = $2, updated_at = NOW()
			WHERE plan_id = $3 AND day_number = $4`
	case models.SessionKindPureReview, models.SessionKindReinforcement:
		query = `UPDATE daily_study_logs
			SET completed_review = TRUE, review_question_ids = $1, target_review_count = $2, updated_at = NOW()
			WHERE plan_id = $3 AND day_number = $4`
	default:
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown session kind: %s", kind)
	}

	result, err := s.db.ExecContext(ctx, query, ids, len(questionIDs), planID, dayNumber)
	if err != nil {
		return contextutils.WrapError(err, "failed to mark session complete")
	}
	return requireOneRow(result, contextutils.ErrRecordNotFound, planID)
}
