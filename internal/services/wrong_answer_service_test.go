package services

import (
	"testing"
	"time"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"

	"github.com/stretchr/testify/assert"
)

func TestWrongAnswerService_BucketFor(t *testing.T) {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	s := NewWrongAnswerService(nil, logger, config.ReviewReminderConfig{ShortTermDays: 7, LongTermDays: 30})

	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		added    time.Time
		expected models.ReviewDueBucket
	}{
		{"same day", now.Add(-3 * time.Hour), models.ReviewDueNone},
		{"six days old", now.AddDate(0, 0, -6), models.ReviewDueNone},
		{"exactly seven days", now.AddDate(0, 0, -7), models.ReviewDueShortTerm},
		{"three weeks old", now.AddDate(0, 0, -21), models.ReviewDueShortTerm},
		{"exactly thirty days", now.AddDate(0, 0, -30), models.ReviewDueLongTerm},
		{"months old", now.AddDate(0, -3, 0), models.ReviewDueLongTerm},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wa := models.WrongAnswer{AddedDate: tc.added}
			assert.Equal(t, tc.expected, s.BucketFor(wa, now))
		})
	}

	t.Run("age counts calendar days not elapsed hours", func(t *testing.T) {
		// Only 6 days and 2 hours elapsed, but 7 calendar days have passed
		added := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
		early := time.Date(2025, 3, 21, 1, 0, 0, 0, time.UTC)
		wa := models.WrongAnswer{AddedDate: added}
		assert.Equal(t, models.ReviewDueShortTerm, s.BucketFor(wa, early))
	})
}
