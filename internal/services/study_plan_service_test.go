package services

import (
	"testing"

	"examprep/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceTarget(t *testing.T) {
	t.Run("mid-course advances one day and stays active", func(t *testing.T) {
		day, status := advanceTarget(10, 60)
		assert.Equal(t, 11, day)
		assert.Equal(t, models.PlanStatusActive, status)
	})

	t.Run("finishing the final day completes the plan", func(t *testing.T) {
		day, status := advanceTarget(60, 60)
		assert.Equal(t, models.PlanStatusCompleted, status)
		assert.Equal(t, 60, day, "completed plan keeps the day within the course length")
	})

	t.Run("completed plan still passes validation", func(t *testing.T) {
		day, status := advanceTarget(90, 90)
		plan := &models.StudyPlan{
			UserID:        1,
			Certification: "전기기사",
			CourseType:    models.Course90Day,
			CurrentDay:    day,
			Status:        status,
		}
		require.NoError(t, plan.Validate())
	})
}
