package services

import (
	"context"
	"testing"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"

	"github.com/stretchr/testify/assert"
)

func newTestVerifier() *VerificationService {
	return NewVerificationService(observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
}

func completeCircuitInput() *models.StructuredSolveInput {
	voltage := 12.0
	capacity := 100.0
	series := 5
	parallel := 3
	return &models.StructuredSolveInput{
		Type: models.ProblemClassCircuit,
		Circuit: &models.CircuitSolveInput{
			Battery:         models.BatteryInput{Voltage: &voltage, Capacity: &capacity},
			SeriesPerString: &series,
			ParallelStrings: &parallel,
		},
		RawTokens: []string{"12V", "100Ah"},
	}
}

func TestVerificationService_VerifySolveInput(t *testing.T) {
	s := newTestVerifier()
	ctx := context.Background()

	t.Run("plain text question without class is verified", func(t *testing.T) {
		q := &models.Question{ProblemType: models.ProblemTypeText}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationVerified, result.Status)
	})

	t.Run("diagram question without class needs review", func(t *testing.T) {
		q := &models.Question{ProblemType: models.ProblemTypeDiagram}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationNeedsReview, result.Status)
		assert.Equal(t, models.ReasonStructureMissing, result.Reason)
	})

	t.Run("table question without class needs review", func(t *testing.T) {
		q := &models.Question{ProblemType: models.ProblemTypeTableGraph}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationNeedsReview, result.Status)
		assert.Equal(t, models.ReasonStructureMissing, result.Reason)
	})

	t.Run("classified question without solve input needs review", func(t *testing.T) {
		q := &models.Question{
			ProblemType:  models.ProblemTypeDiagram,
			ProblemClass: models.ProblemClassCircuit,
		}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationNeedsReview, result.Status)
		assert.Equal(t, models.ReasonSolveInputMissing, result.Reason)
	})

	t.Run("complete circuit input is verified", func(t *testing.T) {
		q := &models.Question{
			ProblemType:  models.ProblemTypeDiagram,
			ProblemClass: models.ProblemClassCircuit,
			SolveInput:   completeCircuitInput(),
		}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationVerified, result.Status)
		assert.Empty(t, result.Reason)
	})

	t.Run("dropping any circuit field flags it", func(t *testing.T) {
		strip := []func(*models.StructuredSolveInput){
			func(si *models.StructuredSolveInput) { si.Circuit.Battery.Voltage = nil },
			func(si *models.StructuredSolveInput) { si.Circuit.Battery.Capacity = nil },
			func(si *models.StructuredSolveInput) { si.Circuit.SeriesPerString = nil },
			func(si *models.StructuredSolveInput) { si.Circuit.ParallelStrings = nil },
		}
		for i, mutate := range strip {
			input := completeCircuitInput()
			mutate(input)
			q := &models.Question{
				ProblemType:  models.ProblemTypeDiagram,
				ProblemClass: models.ProblemClassCircuit,
				SolveInput:   input,
			}
			result := s.VerifySolveInput(ctx, q)
			assert.Equal(t, models.VerificationNeedsReview, result.Status, "variant %d", i)
			assert.Equal(t, models.ReasonCircuitIncomplete, result.Reason, "variant %d", i)
		}
	})

	t.Run("flux needs both angles and time", func(t *testing.T) {
		theta1 := "θ1=30"
		theta2 := "θ2=60"
		elapsed := "t=0.02s"

		q := &models.Question{
			ProblemType:  models.ProblemTypeDiagram,
			ProblemClass: models.ProblemClassFlux,
			SolveInput: &models.StructuredSolveInput{
				Type: models.ProblemClassFlux,
				Flux: &models.FluxSolveInput{Theta1: &theta1, Theta2: &theta2, Time: &elapsed},
			},
		}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationVerified, result.Status)

		q.SolveInput.Flux.Time = nil
		result = s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationNeedsReview, result.Status)
		assert.Equal(t, models.ReasonFluxIncomplete, result.Reason)
	})

	t.Run("geometry needs raw tokens", func(t *testing.T) {
		q := &models.Question{
			ProblemType:  models.ProblemTypeDiagram,
			ProblemClass: models.ProblemClassGeometry,
			SolveInput: &models.StructuredSolveInput{
				Type:     models.ProblemClassGeometry,
				Geometry: &models.GeometrySolveInput{},
			},
		}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationNeedsReview, result.Status)
		assert.Equal(t, models.ReasonGeometryIncomplete, result.Reason)

		q.SolveInput.RawTokens = []string{"한 변 10cm"}
		result = s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationVerified, result.Status)
	})

	t.Run("unknown class with leftover data needs review", func(t *testing.T) {
		q := &models.Question{
			ProblemType:  models.ProblemTypeDiagram,
			ProblemClass: models.ProblemClassUnknown,
			SolveInput: &models.StructuredSolveInput{
				Type:      models.ProblemClassUnknown,
				RawTokens: []string{"12V"},
			},
		}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationNeedsReview, result.Status)
		assert.Equal(t, models.ReasonUnknownProblemClass, result.Reason)
	})

	t.Run("unknown class with empty input is verified", func(t *testing.T) {
		q := &models.Question{
			ProblemType:  models.ProblemTypeText,
			ProblemClass: models.ProblemClassUnknown,
			SolveInput:   &models.StructuredSolveInput{Type: models.ProblemClassUnknown},
		}
		result := s.VerifySolveInput(ctx, q)
		assert.Equal(t, models.VerificationVerified, result.Status)
	})
}
