package services

import (
	"context"
	"testing"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier() *ClassifierService {
	return NewClassifierService(observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
}

func TestClassifierService_ClassifyProblemClass(t *testing.T) {
	s := newTestClassifier()
	ctx := context.Background()

	t.Run("nil structure is unknown", func(t *testing.T) {
		assert.Equal(t, models.ProblemClassUnknown, s.ClassifyProblemClass(ctx, nil))
	})

	t.Run("circuit keywords", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			QuestionTextRaw: "다음 회로에서 전체 저항을 구하시오",
		}
		assert.Equal(t, models.ProblemClassCircuit, s.ClassifyProblemClass(ctx, structure))
	})

	t.Run("flux keywords", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			QuestionTextRaw: "자극 m에 의한 입체각을 구하시오",
		}
		assert.Equal(t, models.ProblemClassFlux, s.ClassifyProblemClass(ctx, structure))
	})

	t.Run("geometry keywords", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			QuestionTextRaw: "평면에 투영된 면적을 구하시오",
		}
		assert.Equal(t, models.ProblemClassGeometry, s.ClassifyProblemClass(ctx, structure))
	})

	t.Run("flux wins the tie against circuit", func(t *testing.T) {
		// Mentions both flux (자속) and circuit (회로) terms; flux rules run first
		structure := &models.QuestionStructureAnalysis{
			QuestionTextRaw: "자속이 회로에 유도된다",
		}
		assert.Equal(t, models.ProblemClassFlux, s.ClassifyProblemClass(ctx, structure))
	})

	t.Run("diagram elements count toward the match", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			QuestionTextRaw: "그림을 보고 답하시오",
			DiagramElements: []string{"직렬 연결된 전지"},
		}
		assert.Equal(t, models.ProblemClassCircuit, s.ClassifyProblemClass(ctx, structure))
	})

	t.Run("AI diagram type is the fallback only", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			QuestionTextRaw: "그림의 값을 구하시오",
			DiagramType:     models.DiagramGeometry,
		}
		assert.Equal(t, models.ProblemClassGeometry, s.ClassifyProblemClass(ctx, structure))

		// Keywords override a contradicting AI label
		structure = &models.QuestionStructureAnalysis{
			QuestionTextRaw: "병렬 회로의 전압",
			DiagramType:     models.DiagramGeometry,
		}
		assert.Equal(t, models.ProblemClassCircuit, s.ClassifyProblemClass(ctx, structure))
	})

	t.Run("no match and no diagram type is unknown", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			QuestionTextRaw: "다음 중 옳은 것은?",
		}
		assert.Equal(t, models.ProblemClassUnknown, s.ClassifyProblemClass(ctx, structure))
	})
}

func TestClassifierService_BuildSolveInput_Circuit(t *testing.T) {
	s := newTestClassifier()
	ctx := context.Background()

	t.Run("extracts all four fields", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			GivenValues: []string{"12V", "100Ah"},
		}
		input := s.BuildSolveInput(ctx, structure, models.ProblemClassCircuit, "직렬 5 병렬 3 연결")
		require.NotNil(t, input.Circuit)
		assert.Equal(t, models.ProblemClassCircuit, input.Type)
		assert.Nil(t, input.Flux)
		assert.Nil(t, input.Geometry)

		require.NotNil(t, input.Circuit.Battery.Voltage)
		assert.InDelta(t, 12, *input.Circuit.Battery.Voltage, 0.001)
		require.NotNil(t, input.Circuit.Battery.Capacity)
		assert.InDelta(t, 100, *input.Circuit.Battery.Capacity, 0.001)
		require.NotNil(t, input.Circuit.SeriesPerString)
		assert.Equal(t, 5, *input.Circuit.SeriesPerString)
		require.NotNil(t, input.Circuit.ParallelStrings)
		assert.Equal(t, 3, *input.Circuit.ParallelStrings)
		assert.True(t, input.Circuit.Complete())
	})

	t.Run("kV scales to volts and mAh to amp-hours", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			GivenValues: []string{"1.5kV", "500mAh"},
		}
		input := s.BuildSolveInput(ctx, structure, models.ProblemClassCircuit, "")
		require.NotNil(t, input.Circuit.Battery.Voltage)
		assert.InDelta(t, 1500, *input.Circuit.Battery.Voltage, 0.001)
		require.NotNil(t, input.Circuit.Battery.Capacity)
		assert.InDelta(t, 0.5, *input.Circuit.Battery.Capacity, 0.001)
	})

	t.Run("count before the keyword also matches", func(t *testing.T) {
		input := s.BuildSolveInput(ctx, nil, models.ProblemClassCircuit, "전지 4 직렬, 2 병렬")
		require.NotNil(t, input.Circuit.SeriesPerString)
		assert.Equal(t, 4, *input.Circuit.SeriesPerString)
		require.NotNil(t, input.Circuit.ParallelStrings)
		assert.Equal(t, 2, *input.Circuit.ParallelStrings)
	})

	t.Run("missing values stay nil", func(t *testing.T) {
		input := s.BuildSolveInput(ctx, nil, models.ProblemClassCircuit, "회로 문제")
		assert.Nil(t, input.Circuit.Battery.Voltage)
		assert.Nil(t, input.Circuit.Battery.Capacity)
		assert.Nil(t, input.Circuit.SeriesPerString)
		assert.Nil(t, input.Circuit.ParallelStrings)
		assert.False(t, input.Circuit.Complete())
	})
}

func TestClassifierService_BuildSolveInput_Flux(t *testing.T) {
	s := newTestClassifier()
	ctx := context.Background()

	t.Run("fields match tokens independently", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			GivenValues: []string{"자극 m=5", "반지름 a=10cm", "θ1=30도", "θ2=60도", "시간 t=0.02s", "거리 d=1m"},
		}
		input := s.BuildSolveInput(ctx, structure, models.ProblemClassFlux, "")
		require.NotNil(t, input.Flux)
		assert.Nil(t, input.Circuit)

		require.NotNil(t, input.Flux.Monopole)
		assert.Equal(t, "자극 m=5", *input.Flux.Monopole)
		require.NotNil(t, input.Flux.Radius)
		assert.Equal(t, "반지름 a=10cm", *input.Flux.Radius)
		require.NotNil(t, input.Flux.Theta1)
		assert.Equal(t, "θ1=30도", *input.Flux.Theta1)
		require.NotNil(t, input.Flux.Theta2)
		assert.Equal(t, "θ2=60도", *input.Flux.Theta2)
		require.NotNil(t, input.Flux.Time)
		assert.Equal(t, "시간 t=0.02s", *input.Flux.Time)
		assert.Equal(t, []string{"거리 d=1m"}, input.Flux.Positions)
		assert.True(t, input.Flux.Complete())
	})

	t.Run("one token can populate several fields", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			GivenValues: []string{"theta1=30"},
		}
		input := s.BuildSolveInput(ctx, structure, models.ProblemClassFlux, "")
		// Contains "t", "a", and "theta1" so three fields pick it up
		require.NotNil(t, input.Flux.Theta1)
		require.NotNil(t, input.Flux.Time)
		require.NotNil(t, input.Flux.Radius)
		assert.Nil(t, input.Flux.Theta2)
		assert.False(t, input.Flux.Complete())
	})

	t.Run("raw tokens are always preserved", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			GivenValues: []string{"값1", "값2"},
		}
		input := s.BuildSolveInput(ctx, structure, models.ProblemClassFlux, "")
		assert.Equal(t, []string{"값1", "값2"}, input.RawTokens)
	})
}

func TestClassifierService_BuildSolveInput_GeometryAndUnknown(t *testing.T) {
	s := newTestClassifier()
	ctx := context.Background()

	t.Run("geometry carries only raw tokens", func(t *testing.T) {
		structure := &models.QuestionStructureAnalysis{
			GivenValues: []string{"한 변 10cm"},
		}
		input := s.BuildSolveInput(ctx, structure, models.ProblemClassGeometry, "")
		require.NotNil(t, input.Geometry)
		assert.Nil(t, input.Circuit)
		assert.Nil(t, input.Flux)
		assert.Equal(t, []string{"한 변 10cm"}, input.RawTokens)
	})

	t.Run("unknown class gets no variant", func(t *testing.T) {
		input := s.BuildSolveInput(ctx, nil, models.ProblemClassUnknown, "")
		assert.Nil(t, input.Circuit)
		assert.Nil(t, input.Flux)
		assert.Nil(t, input.Geometry)
		assert.True(t, input.Empty())
	})
}
