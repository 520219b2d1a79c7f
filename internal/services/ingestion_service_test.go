package services

import (
	"context"
	"testing"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngestion() *IngestionService {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewIngestionService(nil, logger, NewClassifierService(logger), NewVerificationService(logger), nil)
}

func TestIngestionService_DecodeStructureAnalysis(t *testing.T) {
	s := newTestIngestion()
	ctx := context.Background()

	t.Run("valid payload decodes", func(t *testing.T) {
		payload := []byte(`{
			"question_text_raw": "다음 회로에서 전류를 구하시오",
			"has_diagram": true,
			"diagram_type": "CIRCUIT",
			"diagram_elements": ["전지", "저항"],
			"unknowns": ["I"],
			"given_values": ["12V", "4Ω"]
		}`)
		structure, err := s.DecodeStructureAnalysis(ctx, payload)
		require.NoError(t, err)
		assert.Equal(t, "다음 회로에서 전류를 구하시오", structure.QuestionTextRaw)
		assert.True(t, structure.HasDiagram)
		assert.Equal(t, models.DiagramCircuit, structure.DiagramType)
		assert.Equal(t, []string{"12V", "4Ω"}, structure.GivenValues)
	})

	t.Run("missing required field is rejected", func(t *testing.T) {
		payload := []byte(`{"question_text_raw": "문제", "has_diagram": false}`)
		_, err := s.DecodeStructureAnalysis(ctx, payload)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrStructurePayloadInvalid))
	})

	t.Run("wrong field type is rejected", func(t *testing.T) {
		payload := []byte(`{"question_text_raw": "문제", "has_diagram": "yes", "diagram_type": "CIRCUIT"}`)
		_, err := s.DecodeStructureAnalysis(ctx, payload)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrStructurePayloadInvalid))
	})

	t.Run("unknown diagram type enum is rejected", func(t *testing.T) {
		payload := []byte(`{"question_text_raw": "문제", "has_diagram": true, "diagram_type": "PIE_CHART"}`)
		_, err := s.DecodeStructureAnalysis(ctx, payload)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrStructurePayloadInvalid))
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		_, err := s.DecodeStructureAnalysis(ctx, []byte(`{not json`))
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrStructurePayloadInvalid))
	})

	t.Run("extra fields are tolerated", func(t *testing.T) {
		payload := []byte(`{
			"question_text_raw": "문제",
			"has_diagram": false,
			"diagram_type": "UNKNOWN",
			"extraction_model": "v2"
		}`)
		structure, err := s.DecodeStructureAnalysis(ctx, payload)
		require.NoError(t, err)
		assert.Equal(t, models.DiagramUnknown, structure.DiagramType)
	})
}
