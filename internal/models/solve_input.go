package models

import (
	"encoding/json"

	contextutils "examprep/internal/utils"
)

// ProblemClass is the derived classification of an extracted question.
// It is recomputed from keyword heuristics, never trusted verbatim from
// the AI's own diagram_type field.
type ProblemClass string

// Problem classes the classifier can assign
const (
	// ProblemClassCircuit covers series/parallel battery circuit problems
	ProblemClassCircuit ProblemClass = "CIRCUIT_SERIES_PARALLEL"
	// ProblemClassFlux covers magnetic flux / solid angle problems
	ProblemClassFlux ProblemClass = "FLUX_SOLID_ANGLE"
	// ProblemClassGeometry covers projection geometry problems
	ProblemClassGeometry ProblemClass = "GEOMETRY_PROJECTION"
	// ProblemClassUnknown is assigned when no heuristic matches
	ProblemClassUnknown ProblemClass = "UNKNOWN"
)

// DiagramType is the AI-supplied figure classification
type DiagramType string

// Diagram types reported by the extraction service
const (
	// DiagramCircuit marks a circuit diagram
	DiagramCircuit DiagramType = "CIRCUIT"
	// DiagramGeometry marks a geometric figure
	DiagramGeometry DiagramType = "GEOMETRY"
	// DiagramFlux marks a magnetic flux figure
	DiagramFlux DiagramType = "FLUX"
	// DiagramUnknown marks an unclassified figure
	DiagramUnknown DiagramType = "UNKNOWN"
)

// QuestionStructureAnalysis is the AI-supplied structural breakdown of a
// freshly extracted question.
type QuestionStructureAnalysis struct {
	QuestionTextRaw string      `json:"question_text_raw"`
	HasDiagram      bool        `json:"has_diagram"`
	DiagramType     DiagramType `json:"diagram_type"`
	DiagramElements []string    `json:"diagram_elements"`
	Unknowns        []string    `json:"unknowns"`
	GivenValues     []string    `json:"given_values"`
}

// BatteryInput holds the extracted battery parameters of a circuit problem.
// Pointers distinguish "not extracted" from zero.
type BatteryInput struct {
	Voltage  *float64 `json:"voltage,omitempty"`
	Capacity *float64 `json:"capacity,omitempty"`
}

// CircuitSolveInput is the typed payload for series/parallel circuit problems
type CircuitSolveInput struct {
	Battery         BatteryInput `json:"battery"`
	SeriesPerString *int         `json:"series_per_string,omitempty"`
	ParallelStrings *int         `json:"parallel_strings,omitempty"`
}

// Complete reports whether all four numeric fields were extracted
func (c *CircuitSolveInput) Complete() bool {
	return c.Battery.Voltage != nil && c.Battery.Capacity != nil &&
		c.SeriesPerString != nil && c.ParallelStrings != nil
}

// FluxSolveInput is the typed payload for flux / solid angle problems.
// Fields are best-effort lexical matches over the given-value tokens.
type FluxSolveInput struct {
	Monopole  *string  `json:"monopole,omitempty"`
	Radius    *string  `json:"radius,omitempty"`
	Positions []string `json:"positions,omitempty"`
	Theta1    *string  `json:"theta1,omitempty"`
	Theta2    *string  `json:"theta2,omitempty"`
	Time      *string  `json:"time,omitempty"`
}

// Complete reports whether both angles and the time token were extracted
func (f *FluxSolveInput) Complete() bool {
	return f.Theta1 != nil && f.Theta2 != nil && f.Time != nil
}

// GeometrySolveInput is the typed payload for projection geometry problems.
// Only the raw tokens are carried; no finer extraction is attempted.
type GeometrySolveInput struct{}

// StructuredSolveInput is a tagged union keyed by Type. Exactly one of the
// class-specific payloads is non-nil, matching Type, so impossible states
// such as flux fields on a circuit record cannot be represented.
type StructuredSolveInput struct {
	Type      ProblemClass        `json:"type"`
	Circuit   *CircuitSolveInput  `json:"circuit,omitempty"`
	Flux      *FluxSolveInput     `json:"flux,omitempty"`
	Geometry  *GeometrySolveInput `json:"geometry,omitempty"`
	RawTokens []string            `json:"raw_tokens"`
}

// Empty reports whether the solve input carries no extracted data at all
func (s *StructuredSolveInput) Empty() bool {
	if s == nil {
		return true
	}
	return s.Circuit == nil && s.Flux == nil && s.Geometry == nil && len(s.RawTokens) == 0
}

// solveInputWire mirrors StructuredSolveInput for decoding, so UnmarshalJSON
// can validate the variant against the tag after the fields are read.
type solveInputWire struct {
	Type      ProblemClass        `json:"type"`
	Circuit   *CircuitSolveInput  `json:"circuit,omitempty"`
	Flux      *FluxSolveInput     `json:"flux,omitempty"`
	Geometry  *GeometrySolveInput `json:"geometry,omitempty"`
	RawTokens []string            `json:"raw_tokens"`
}

// UnmarshalJSON decodes a solve input and rejects payloads whose variant
// does not match the type tag.
func (s *StructuredSolveInput) UnmarshalJSON(data []byte) error {
	var w solveInputWire
	if err := json.Unmarshal(data, &w); err != nil {
		return contextutils.WrapError(err, "failed to decode solve input")
	}

	switch w.Type {
	case ProblemClassCircuit:
		if w.Flux != nil || w.Geometry != nil {
			return contextutils.WrapErrorf(contextutils.ErrStructurePayloadInvalid,
				"circuit solve input carries foreign variant data")
		}
	case ProblemClassFlux:
		if w.Circuit != nil || w.Geometry != nil {
			return contextutils.WrapErrorf(contextutils.ErrStructurePayloadInvalid,
				"flux solve input carries foreign variant data")
		}
	case ProblemClassGeometry:
		if w.Circuit != nil || w.Flux != nil {
			return contextutils.WrapErrorf(contextutils.ErrStructurePayloadInvalid,
				"geometry solve input carries foreign variant data")
		}
	case ProblemClassUnknown:
		if w.Circuit != nil || w.Flux != nil || w.Geometry != nil {
			return contextutils.WrapErrorf(contextutils.ErrStructurePayloadInvalid,
				"unknown-class solve input carries variant data")
		}
	default:
		return contextutils.WrapErrorf(contextutils.ErrStructurePayloadInvalid,
			"unrecognized solve input type: %s", w.Type)
	}

	s.Type = w.Type
	s.Circuit = w.Circuit
	s.Flux = w.Flux
	s.Geometry = w.Geometry
	s.RawTokens = w.RawTokens
	return nil
}
