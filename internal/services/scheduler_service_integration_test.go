//go:build integration

package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSchedulerTest(t *testing.T, db *sql.DB) (*SchedulerService, *models.StudyPlan) {
	ctx := context.Background()
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})

	userService := NewUserService(db, logger)
	user, err := userService.CreateUser(ctx, "learner", "learner@example.com", "password123")
	require.NoError(t, err)

	planService := NewStudyPlanService(db, logger)
	plan, err := planService.CreatePlan(ctx, user.ID, "전기기사", models.Course60Day, time.Now())
	require.NoError(t, err)

	questionService := NewQuestionService(db, logger)
	wrongAnswerService := NewWrongAnswerService(db, logger, config.ReviewReminderConfig{ShortTermDays: 7, LongTermDays: 30})
	scheduler := NewSchedulerService(db, logger, config.SchedulerDefaults(), planService, questionService, wrongAnswerService, nil)
	return scheduler, plan
}

func TestSchedulerService_EnsureDailyLogIdempotent(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer func() { require.NoError(t, db.Close()) }()

	ctx := context.Background()
	scheduler, plan := setupSchedulerTest(t, db)
	subjects := []string{"회로이론", "전자기학", "전기기기"}

	first, err := scheduler.EnsureDailyLog(ctx, plan.ID, 2, subjects)
	require.NoError(t, err)
	assert.Equal(t, []string{"전자기학"}, first.TargetSubjects)
	assert.False(t, first.CompletedReading)
	assert.False(t, first.CompletedReview)

	second, err := scheduler.EnsureDailyLog(ctx, plan.ID, 2, subjects)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeated call must return the same log row")
	assert.Equal(t, first.TargetSubjects, second.TargetSubjects)

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM daily_study_logs WHERE plan_id = $1 AND day_number = $2",
		plan.ID, 2).Scan(&count))
	assert.Equal(t, 1, count, "the conditional insert must never create a second row")
}

func TestSchedulerService_EnsureDailyLogRotationWraps(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer func() { require.NoError(t, db.Close()) }()

	ctx := context.Background()
	scheduler, plan := setupSchedulerTest(t, db)
	subjects := []string{"회로이론", "전자기학", "전기기기"}

	// Day 4 wraps back to the first subject
	log, err := scheduler.EnsureDailyLog(ctx, plan.ID, 4, subjects)
	require.NoError(t, err)
	assert.Equal(t, []string{"회로이론"}, log.TargetSubjects)

	_, err = scheduler.EnsureDailyLog(ctx, plan.ID, 0, nil)
	assert.Error(t, err, "empty subject list is rejected")
}
