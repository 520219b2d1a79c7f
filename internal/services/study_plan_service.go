package services

import (
	"context"
	"database/sql"
	"time"

	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// StudyPlanServiceInterface defines the interface for study plan lifecycle operations
type StudyPlanServiceInterface interface {
	CreatePlan(ctx context.Context, userID int, certification string, courseType models.CourseType, startDate time.Time) (*models.StudyPlan, error)
	GetActivePlan(ctx context.Context, userID int) (*models.StudyPlan, error)
	GetPlanByID(ctx context.Context, planID int) (*models.StudyPlan, error)
	AdvanceDay(ctx context.Context, planID int) (*models.StudyPlan, error)
	AbandonPlan(ctx context.Context, planID int) error
}

// StudyPlanService manages learner enrollments in fixed-length programs
type StudyPlanService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewStudyPlanService creates a new StudyPlanService instance
func NewStudyPlanService(db *sql.DB, logger *observability.Logger) *StudyPlanService {
	return &StudyPlanService{
		db:     db,
		logger: logger,
	}
}

const planColumns = `id, user_id, certification, course_type, start_date, current_day, status, created_at, updated_at`

// CreatePlan enrolls the user in a new program. Only one active plan per
// user is allowed; an abandoned or completed plan is retained as history
// and does not block a new enrollment.
func (s *StudyPlanService) CreatePlan(ctx context.Context, userID int, certification string, courseType models.CourseType, startDate time.Time) (result0 *models.StudyPlan, err error) {
	ctx, span := observability.TracePlanFunction(ctx, "CreatePlan",
		observability.AttributeUserID(userID),
		observability.AttributeCertification(certification),
		attribute.String("plan.course_type", string(courseType)),
	)
	defer observability.FinishSpan(span, &err)

	if !courseType.Valid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid course type: %s", courseType)
	}

	existing, err := s.GetActivePlan(ctx, userID)
	if err != nil && !contextutils.IsError(err, contextutils.ErrPlanNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrPlanAlreadyActive, "plan %d", existing.ID)
	}

	plan := &models.StudyPlan{
		UserID:        userID,
		Certification: certification,
		CourseType:    courseType,
		StartDate:     contextutils.StartOfDayUTC(startDate),
		CurrentDay:    1,
		Status:        models.PlanStatusActive,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO study_plans (user_id, certification, course_type, start_date, current_day, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		plan.UserID, plan.Certification, plan.CourseType, plan.StartDate, plan.CurrentDay, plan.Status,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert study plan")
	}

	span.SetAttributes(observability.AttributePlanID(plan.ID))
	s.logger.Info(ctx, "Study plan created", map[string]interface{}{
		"plan_id":       plan.ID,
		"user_id":       userID,
		"certification": certification,
		"course_type":   string(courseType),
	})
	return plan, nil
}

// GetActivePlan returns the user's active plan, or ErrPlanNotFound
func (s *StudyPlanService) GetActivePlan(ctx context.Context, userID int) (result0 *models.StudyPlan, err error) {
	ctx, span := observability.TracePlanFunction(ctx, "GetActivePlan",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM study_plans WHERE user_id = $1 AND status = $2`,
		userID, models.PlanStatusActive)
	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrPlanNotFound, "no active plan for user %d", userID)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get active plan")
	}
	return plan, nil
}

// GetPlanByID returns a plan regardless of status, or ErrPlanNotFound
func (s *StudyPlanService) GetPlanByID(ctx context.Context, planID int) (result0 *models.StudyPlan, err error) {
	ctx, span := observability.TracePlanFunction(ctx, "GetPlanByID",
		observability.AttributePlanID(planID),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM study_plans WHERE id = $1`, planID)
	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrPlanNotFound, "plan %d", planID)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get plan")
	}
	return plan, nil
}

// AdvanceDay marks the current day complete and moves the plan forward.
// Advancing past the final day of the course completes the plan.
func (s *StudyPlanService) AdvanceDay(ctx context.Context, planID int) (result0 *models.StudyPlan, err error) {
	ctx, span := observability.TracePlanFunction(ctx, "AdvanceDay",
		observability.AttributePlanID(planID),
	)
	defer observability.FinishSpan(span, &err)

	plan, err := s.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == models.PlanStatusCompleted {
		return nil, contextutils.WrapErrorf(contextutils.ErrPlanCompleted, "plan %d", planID)
	}
	if !plan.IsActive() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "plan %d is %s", planID, plan.Status)
	}

	nextDay, nextStatus := advanceTarget(plan.CurrentDay, plan.CourseType.TotalDays())

	err = s.db.QueryRowContext(ctx, `
		UPDATE study_plans
		SET current_day = $1, status = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+planColumns,
		nextDay, nextStatus, planID,
	).Scan(&plan.ID, &plan.UserID, &plan.Certification, &plan.CourseType, &plan.StartDate,
		&plan.CurrentDay, &plan.Status, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to advance plan day")
	}

	span.SetAttributes(
		observability.AttributePlanDay(plan.CurrentDay),
		attribute.String("plan.status", string(plan.Status)),
	)
	if plan.Status == models.PlanStatusCompleted {
		s.logger.Info(ctx, "Study plan completed", map[string]interface{}{"plan_id": planID})
	}
	return plan, nil
}

// advanceTarget computes the day and status after finishing currentDay.
// The stored day clamps at the course length so a completed plan still
// satisfies the 1..totalDays range that Validate enforces.
func advanceTarget(currentDay, totalDays int) (int, models.PlanStatus) {
	next := currentDay + 1
	if next > totalDays {
		return totalDays, models.PlanStatusCompleted
	}
	return next, models.PlanStatusActive
}

// AbandonPlan marks the plan abandoned. The plan and its daily logs are
// retained as history; the learner may then create a fresh plan.
func (s *StudyPlanService) AbandonPlan(ctx context.Context, planID int) (err error) {
	ctx, span := observability.TracePlanFunction(ctx, "AbandonPlan",
		observability.AttributePlanID(planID),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `
		UPDATE study_plans
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.PlanStatusAbandoned, planID, models.PlanStatusActive)
	if err != nil {
		return contextutils.WrapError(err, "failed to abandon plan")
	}
	return requireOneRow(result, contextutils.ErrPlanNotFound, planID)
}

func scanPlan(row rowScanner) (*models.StudyPlan, error) {
	var plan models.StudyPlan
	err := row.Scan(&plan.ID, &plan.UserID, &plan.Certification, &plan.CourseType,
		&plan.StartDate, &plan.CurrentDay, &plan.Status, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
