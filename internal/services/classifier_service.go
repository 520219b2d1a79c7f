package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"examprep/internal/models"
	"examprep/internal/observability"
)

// ClassifierServiceInterface defines the interface for problem classification
type ClassifierServiceInterface interface {
	ClassifyProblemClass(ctx context.Context, structure *models.QuestionStructureAnalysis) models.ProblemClass
	BuildSolveInput(ctx context.Context, structure *models.QuestionStructureAnalysis, class models.ProblemClass, questionText string) *models.StructuredSolveInput
}

// classificationRule pairs a keyword predicate with the class it assigns.
// Rules are evaluated in fixed order and the first match wins, which makes
// the tie-break explicit and testable.
type classificationRule struct {
	keywords []string
	diagram  models.DiagramType
}

// Rule order matters: flux is checked before circuit before geometry, so a
// question mentioning both flux and circuit terms classifies as flux.
var classificationRules = []classificationRule{
	{
		keywords: []string{"자속", "자극", "유기", "기전력", "입체각", "θ", "theta"},
		diagram:  models.DiagramFlux,
	},
	{
		keywords: []string{"회로", "직렬", "병렬", "저항", "전압", "전류"},
		diagram:  models.DiagramCircuit,
	},
	{
		keywords: []string{"투영", "면적", "도형", "기하", "평면"},
		diagram:  models.DiagramGeometry,
	},
}

// diagramToClass maps the figure classification onto a problem class
func diagramToClass(diagram models.DiagramType) models.ProblemClass {
	switch diagram {
	case models.DiagramCircuit:
		return models.ProblemClassCircuit
	case models.DiagramFlux:
		return models.ProblemClassFlux
	case models.DiagramGeometry:
		return models.ProblemClassGeometry
	default:
		return models.ProblemClassUnknown
	}
}

// ClassifierService turns a structural analysis of an extracted question
// into a typed, solvable representation. All methods are pure functions
// over their inputs.
type ClassifierService struct {
	logger *observability.Logger
}

// NewClassifierService creates a new ClassifierService instance
func NewClassifierService(logger *observability.Logger) *ClassifierService {
	return &ClassifierService{
		logger: logger,
	}
}

// ClassifyProblemClass assigns a problem class from keyword heuristics over
// the raw question text and diagram elements. The AI's own diagram_type is
// used only as a fallback when no keyword matches.
func (s *ClassifierService) ClassifyProblemClass(ctx context.Context, structure *models.QuestionStructureAnalysis) models.ProblemClass {
	_, span := observability.TraceFunction(ctx, "classifier", "ClassifyProblemClass")
	defer span.End()

	if structure == nil {
		return models.ProblemClassUnknown
	}

	haystack := strings.ToLower(structure.QuestionTextRaw + " " + strings.Join(structure.DiagramElements, " "))

	diagram := models.DiagramUnknown
	for _, rule := range classificationRules {
		if containsAny(haystack, rule.keywords) {
			diagram = rule.diagram
			break
		}
	}
	if diagram == models.DiagramUnknown && structure.DiagramType != "" {
		diagram = structure.DiagramType
	}

	class := diagramToClass(diagram)
	span.SetAttributes(observability.AttributeProblemClass(string(class)))
	return class
}

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// Circuit extraction patterns. Numbers accept an optional k prefix on the
// unit for kilovolts; capacity accepts Ah and mAh.
var (
	voltagePattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(k?)(?:V|볼트)`)
	capacityPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(m?)Ah`)
	seriesPattern   = regexp.MustCompile(`(?:직렬|series)\s*(\d+)|(\d+)\s*(?:직렬|series)`)
	parallelPattern = regexp.MustCompile(`(?:병렬|parallel)\s*(\d+)|(\d+)\s*(?:병렬|parallel)`)
)

// BuildSolveInput extracts class-specific fields from the given values and
// question text. Extraction misses are not errors: fields stay nil and the
// verification step flags incomplete inputs later. The raw tokens are
// always preserved for audit.
func (s *ClassifierService) BuildSolveInput(ctx context.Context, structure *models.QuestionStructureAnalysis, class models.ProblemClass, questionText string) *models.StructuredSolveInput {
	_, span := observability.TraceFunction(ctx, "classifier", "BuildSolveInput",
		observability.AttributeProblemClass(string(class)),
	)
	defer span.End()

	rawTokens := []string{}
	if structure != nil {
		rawTokens = append(rawTokens, structure.GivenValues...)
	}

	input := &models.StructuredSolveInput{
		Type:      class,
		RawTokens: rawTokens,
	}

	switch class {
	case models.ProblemClassCircuit:
		input.Circuit = buildCircuitInput(rawTokens, questionText)
	case models.ProblemClassFlux:
		input.Flux = buildFluxInput(rawTokens)
	case models.ProblemClassGeometry:
		input.Geometry = &models.GeometrySolveInput{}
	}

	return input
}

func buildCircuitInput(tokens []string, questionText string) *models.CircuitSolveInput {
	circuit := &models.CircuitSolveInput{}

	for _, token := range tokens {
		if circuit.Battery.Voltage == nil {
			if m := voltagePattern.FindStringSubmatch(token); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					if m[2] == "k" {
						v *= 1000
					}
					circuit.Battery.Voltage = &v
				}
			}
		}
		if circuit.Battery.Capacity == nil {
			if m := capacityPattern.FindStringSubmatch(token); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					if m[2] == "m" {
						v /= 1000
					}
					circuit.Battery.Capacity = &v
				}
			}
		}
	}

	circuit.SeriesPerString = matchCount(seriesPattern, questionText)
	circuit.ParallelStrings = matchCount(parallelPattern, questionText)
	return circuit
}

func matchCount(pattern *regexp.Regexp, text string) *int {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	for _, group := range m[1:] {
		if group == "" {
			continue
		}
		if n, err := strconv.Atoi(group); err == nil {
			return &n
		}
	}
	return nil
}

// buildFluxInput is a best-effort lexical match over the given-value
// tokens, not a parser. The position heuristic (any token containing the
// letter d) is deliberately loose and kept as-is pending a real
// distance-variable grammar.
// TODO: replace the d-token position heuristic with unit-aware matching.
func buildFluxInput(tokens []string) *models.FluxSolveInput {
	flux := &models.FluxSolveInput{
		Monopole: firstToken(tokens, "m", "자극"),
		Radius:   firstToken(tokens, "a", "반지름"),
		Theta1:   firstToken(tokens, "θ1", "theta1", "각1"),
		Theta2:   firstToken(tokens, "θ2", "theta2", "각2"),
		Time:     firstToken(tokens, "t", "시간"),
	}

	for _, token := range tokens {
		if strings.Contains(strings.ToLower(token), "d") {
			flux.Positions = append(flux.Positions, token)
		}
	}

	return flux
}

// firstToken returns the first token containing any of the markers. Fields
// are matched independently, so one token may populate several fields.
func firstToken(tokens []string, markers ...string) *string {
	for _, token := range tokens {
		if containsAny(strings.ToLower(token), markers) {
			t := token
			return &t
		}
	}
	return nil
}
