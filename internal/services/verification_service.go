package services

import (
	"context"

	"examprep/internal/models"
	"examprep/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// VerificationServiceInterface defines the interface for solve-input verification
type VerificationServiceInterface interface {
	VerifySolveInput(ctx context.Context, question *models.Question) models.VerificationResult
}

// VerificationService is the automated data-quality gate between AI
// extraction and the trusted question bank. NEEDS_REVIEW is a first-class
// outcome routed to the human-review queue, never an error.
type VerificationService struct {
	logger *observability.Logger
}

// NewVerificationService creates a new VerificationService instance
func NewVerificationService(logger *observability.Logger) *VerificationService {
	return &VerificationService{
		logger: logger,
	}
}

// VerifySolveInput checks whether a question's extracted solve input is
// complete enough to trust without human review.
func (s *VerificationService) VerifySolveInput(ctx context.Context, question *models.Question) models.VerificationResult {
	_, span := observability.TraceFunction(ctx, "verification", "VerifySolveInput",
		observability.AttributeQuestionID(question.ID),
		observability.AttributeProblemClass(string(question.ProblemClass)),
	)
	defer span.End()

	result := s.verify(question)

	span.SetAttributes(attribute.String("verification.status", string(result.Status)))
	if result.Reason != "" {
		span.SetAttributes(attribute.String("verification.reason", string(result.Reason)))
	}
	return result
}

func (s *VerificationService) verify(question *models.Question) models.VerificationResult {
	// A diagram-bearing question that the classifier could not place is
	// suspect; plain-text questions without a class pass through.
	if question.ProblemClass == "" {
		if question.ProblemType == models.ProblemTypeDiagram || question.ProblemType == models.ProblemTypeTableGraph {
			return needsReview(models.ReasonStructureMissing)
		}
		return verified()
	}

	if question.SolveInput == nil {
		return needsReview(models.ReasonSolveInputMissing)
	}

	switch question.ProblemClass {
	case models.ProblemClassCircuit:
		if question.SolveInput.Circuit == nil || !question.SolveInput.Circuit.Complete() {
			return needsReview(models.ReasonCircuitIncomplete)
		}
	case models.ProblemClassFlux:
		if question.SolveInput.Flux == nil || !question.SolveInput.Flux.Complete() {
			return needsReview(models.ReasonFluxIncomplete)
		}
	case models.ProblemClassGeometry:
		if len(question.SolveInput.RawTokens) == 0 {
			return needsReview(models.ReasonGeometryIncomplete)
		}
	case models.ProblemClassUnknown:
		if !question.SolveInput.Empty() {
			return needsReview(models.ReasonUnknownProblemClass)
		}
	default:
		return needsReview(models.ReasonUnknownProblemClass)
	}

	return verified()
}

func verified() models.VerificationResult {
	return models.VerificationResult{Status: models.VerificationVerified}
}

func needsReview(reason models.ReviewReason) models.VerificationResult {
	return models.VerificationResult{
		Status: models.VerificationNeedsReview,
		Reason: reason,
	}
}
