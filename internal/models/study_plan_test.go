package models

import (
	"testing"

	contextutils "examprep/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestCourseType(t *testing.T) {
	assert.Equal(t, 60, Course60Day.TotalDays())
	assert.Equal(t, 90, Course90Day.TotalDays())
	assert.Equal(t, 0, CourseType("30_day").TotalDays())

	assert.True(t, Course60Day.Valid())
	assert.True(t, Course90Day.Valid())
	assert.False(t, CourseType("").Valid())
	assert.False(t, CourseType("forever").Valid())
}

func TestStudyPlan_Validate(t *testing.T) {
	t.Run("valid plan passes", func(t *testing.T) {
		plan := StudyPlan{CourseType: Course60Day, CurrentDay: 1}
		assert.NoError(t, plan.Validate())

		plan.CurrentDay = 60
		assert.NoError(t, plan.Validate())
	})

	t.Run("day outside course bounds fails", func(t *testing.T) {
		plan := StudyPlan{CourseType: Course60Day, CurrentDay: 0}
		err := plan.Validate()
		assert.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrPlanDayOutOfRange))

		plan.CurrentDay = 61
		err = plan.Validate()
		assert.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrPlanDayOutOfRange))

		plan = StudyPlan{CourseType: Course90Day, CurrentDay: 90}
		assert.NoError(t, plan.Validate())
	})

	t.Run("unknown course type fails", func(t *testing.T) {
		plan := StudyPlan{CourseType: "120_day", CurrentDay: 1}
		assert.Error(t, plan.Validate())
	})
}

func TestStudyPlan_IsActive(t *testing.T) {
	assert.True(t, (&StudyPlan{Status: PlanStatusActive}).IsActive())
	assert.False(t, (&StudyPlan{Status: PlanStatusCompleted}).IsActive())
	assert.False(t, (&StudyPlan{Status: PlanStatusAbandoned}).IsActive())
}
