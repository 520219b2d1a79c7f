package models

import (
	"encoding/json"
	"testing"

	contextutils "examprep/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredSolveInput_UnmarshalJSON(t *testing.T) {
	t.Run("matching variant decodes", func(t *testing.T) {
		payload := []byte(`{
			"type": "CIRCUIT_SERIES_PARALLEL",
			"circuit": {"battery": {"voltage": 12, "capacity": 100}, "series_per_string": 5, "parallel_strings": 3},
			"raw_tokens": ["12V", "100Ah"]
		}`)
		var input StructuredSolveInput
		require.NoError(t, json.Unmarshal(payload, &input))
		assert.Equal(t, ProblemClassCircuit, input.Type)
		require.NotNil(t, input.Circuit)
		assert.True(t, input.Circuit.Complete())
		assert.Nil(t, input.Flux)
	})

	t.Run("foreign variant on circuit is rejected", func(t *testing.T) {
		payload := []byte(`{
			"type": "CIRCUIT_SERIES_PARALLEL",
			"flux": {"theta1": "30"},
			"raw_tokens": []
		}`)
		var input StructuredSolveInput
		err := json.Unmarshal(payload, &input)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrStructurePayloadInvalid))
	})

	t.Run("foreign variant on flux is rejected", func(t *testing.T) {
		payload := []byte(`{
			"type": "FLUX_SOLID_ANGLE",
			"circuit": {"battery": {}},
			"raw_tokens": []
		}`)
		var input StructuredSolveInput
		err := json.Unmarshal(payload, &input)
		require.Error(t, err)
	})

	t.Run("variant data on unknown type is rejected", func(t *testing.T) {
		payload := []byte(`{
			"type": "UNKNOWN",
			"geometry": {},
			"raw_tokens": []
		}`)
		var input StructuredSolveInput
		err := json.Unmarshal(payload, &input)
		require.Error(t, err)
	})

	t.Run("unrecognized type tag is rejected", func(t *testing.T) {
		payload := []byte(`{"type": "THERMODYNAMICS", "raw_tokens": []}`)
		var input StructuredSolveInput
		err := json.Unmarshal(payload, &input)
		require.Error(t, err)
	})

	t.Run("round trip preserves the variant", func(t *testing.T) {
		theta1, theta2, elapsed := "θ1=30", "θ2=60", "t=0.02"
		original := StructuredSolveInput{
			Type:      ProblemClassFlux,
			Flux:      &FluxSolveInput{Theta1: &theta1, Theta2: &theta2, Time: &elapsed, Positions: []string{"d=1m"}},
			RawTokens: []string{"θ1=30", "θ2=60"},
		}
		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded StructuredSolveInput
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, original, decoded)
	})
}

func TestStructuredSolveInput_Empty(t *testing.T) {
	var nilInput *StructuredSolveInput
	assert.True(t, nilInput.Empty())
	assert.True(t, (&StructuredSolveInput{Type: ProblemClassUnknown}).Empty())
	assert.False(t, (&StructuredSolveInput{RawTokens: []string{"x"}}).Empty())
	assert.False(t, (&StructuredSolveInput{Geometry: &GeometrySolveInput{}}).Empty())
}

func TestCircuitSolveInput_Complete(t *testing.T) {
	voltage, capacity := 12.0, 100.0
	series, parallel := 5, 3

	complete := CircuitSolveInput{
		Battery:         BatteryInput{Voltage: &voltage, Capacity: &capacity},
		SeriesPerString: &series,
		ParallelStrings: &parallel,
	}
	assert.True(t, complete.Complete())

	missing := complete
	missing.SeriesPerString = nil
	assert.False(t, missing.Complete())
}

func TestFluxSolveInput_Complete(t *testing.T) {
	theta1, theta2, elapsed := "30", "60", "0.02"

	assert.True(t, (&FluxSolveInput{Theta1: &theta1, Theta2: &theta2, Time: &elapsed}).Complete())
	// Monopole and radius are optional for completeness
	assert.False(t, (&FluxSolveInput{Theta1: &theta1, Theta2: &theta2}).Complete())
	assert.False(t, (&FluxSolveInput{}).Complete())
}
