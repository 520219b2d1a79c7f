package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.InDelta(t, 3.0, cfg.Scheduler.RepetitionCoefficient, 0.001)
	assert.Equal(t, 10, cfg.Scheduler.ReviewFloor)
	assert.Equal(t, 5, cfg.Scheduler.ReadingFloor)
	assert.InDelta(t, 0.8, cfg.Scheduler.FinalPhaseThreshold, 0.001)
	assert.InDelta(t, 0.6, cfg.Scheduler.NewRatio, 0.001)

	assert.InDelta(t, 70.0, cfg.PhaseGate.AccuracyThreshold, 0.001)
	assert.Equal(t, 3, cfg.PhaseGate.RequiredStreak)
	assert.Equal(t, 5, cfg.PhaseGate.HistoryLimit)

	assert.Equal(t, 7, cfg.ReviewReminder.ShortTermDays)
	assert.Equal(t, 30, cfg.ReviewReminder.LongTermDays)
}

func TestConfig_ApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Scheduler: SchedulerConfig{ReviewFloor: 20, RepetitionCoefficient: 2.0},
		PhaseGate: PhaseGateConfig{RequiredStreak: 5},
	}
	cfg.applyDefaults()

	assert.Equal(t, 20, cfg.Scheduler.ReviewFloor)
	assert.InDelta(t, 2.0, cfg.Scheduler.RepetitionCoefficient, 0.001)
	assert.Equal(t, 5, cfg.PhaseGate.RequiredStreak)
	// Untouched fields still get defaults
	assert.Equal(t, 5, cfg.PhaseGate.HistoryLimit)
}

func TestConfig_GetSubjectsForCertification(t *testing.T) {
	cfg := &Config{
		Certifications: map[string]CertificationConfig{
			"전기기사": {
				Name:     "전기기사",
				Subjects: []string{"회로이론", "전자기학", "전기기기"},
			},
		},
	}

	t.Run("known certification returns subjects in order", func(t *testing.T) {
		subjects := cfg.GetSubjectsForCertification("전기기사")
		assert.Equal(t, []string{"회로이론", "전자기학", "전기기기"}, subjects)
	})

	t.Run("unknown certification returns empty", func(t *testing.T) {
		assert.Empty(t, cfg.GetSubjectsForCertification("정보처리기사"))
	})

	t.Run("nil map returns empty", func(t *testing.T) {
		empty := &Config{}
		assert.Empty(t, empty.GetSubjectsForCertification("전기기사"))
	})
}

func TestConfig_GetCertifications(t *testing.T) {
	cfg := &Config{
		Certifications: map[string]CertificationConfig{
			"b-cert": {},
			"a-cert": {},
		},
	}
	assert.Equal(t, []string{"a-cert", "b-cert"}, cfg.GetCertifications())
	assert.Empty(t, (&Config{}).GetCertifications())
}
