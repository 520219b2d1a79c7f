package services

import (
	"testing"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"

	"github.com/stretchr/testify/assert"
)

func newTestPhaseGate() *PhaseGateService {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewPhaseGateService(nil, logger, config.PhaseGateDefaults())
}

func history(accuracies ...float64) []models.PhaseHistoryEntry {
	entries := make([]models.PhaseHistoryEntry, len(accuracies))
	for i, acc := range accuracies {
		entries[i] = models.PhaseHistoryEntry{Accuracy: acc, TotalQuestions: 20, CorrectCount: int(acc / 5)}
	}
	return entries
}

func TestPhaseGateService_DeriveReady(t *testing.T) {
	s := newTestPhaseGate()

	t.Run("three recent passes are ready", func(t *testing.T) {
		assert.True(t, s.deriveReady(history(72, 75, 80)))
	})

	t.Run("one miss in the streak blocks readiness", func(t *testing.T) {
		assert.False(t, s.deriveReady(history(72, 65, 80)))
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		assert.True(t, s.deriveReady(history(70, 70, 70)))
		assert.False(t, s.deriveReady(history(69.9, 70, 70)))
	})

	t.Run("fewer results than the streak is never ready", func(t *testing.T) {
		assert.False(t, s.deriveReady(nil))
		assert.False(t, s.deriveReady(history(95)))
		assert.False(t, s.deriveReady(history(95, 95)))
	})

	t.Run("only the newest streak counts", func(t *testing.T) {
		// History is newest first: an old failure beyond the streak is ignored
		assert.True(t, s.deriveReady(history(80, 85, 90, 10, 20)))
		// A recent failure is not excused by older passes
		assert.False(t, s.deriveReady(history(10, 85, 90, 95, 95)))
	})
}
