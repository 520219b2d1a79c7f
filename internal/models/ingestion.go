package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// IngestionStatus is the lifecycle state of an extraction job
type IngestionStatus string

// Ingestion job statuses
const (
	// IngestionStatusPending is a job awaiting classification
	IngestionStatusPending IngestionStatus = "PENDING"
	// IngestionStatusClassified is a job whose extraction was verified
	IngestionStatusClassified IngestionStatus = "CLASSIFIED"
	// IngestionStatusNeedsReview is a job flagged for human review
	IngestionStatusNeedsReview IngestionStatus = "NEEDS_REVIEW"
)

// VerificationStatus is the outcome of the solve-input completeness check
type VerificationStatus string

// Verification statuses
const (
	// VerificationVerified means the extracted data is complete enough to trust
	VerificationVerified VerificationStatus = "VERIFIED"
	// VerificationNeedsReview means the extraction must be reviewed by a human
	VerificationNeedsReview VerificationStatus = "NEEDS_REVIEW"
)

// ReviewReason is the machine-readable code explaining a NEEDS_REVIEW outcome
type ReviewReason string

// Review reason codes
const (
	// ReasonStructureMissing marks a diagram-bearing question with no classification
	ReasonStructureMissing ReviewReason = "STRUCTURE_MISSING"
	// ReasonSolveInputMissing marks a classified question with no solve input
	ReasonSolveInputMissing ReviewReason = "SOLVE_INPUT_MISSING"
	// ReasonCircuitIncomplete marks a circuit input missing a required numeric field
	ReasonCircuitIncomplete ReviewReason = "CIRCUIT_INPUT_INCOMPLETE"
	// ReasonFluxIncomplete marks a flux input missing an angle or the time token
	ReasonFluxIncomplete ReviewReason = "FLUX_INPUT_INCOMPLETE"
	// ReasonGeometryIncomplete marks a geometry input with no raw tokens
	ReasonGeometryIncomplete ReviewReason = "GEOMETRY_INPUT_INCOMPLETE"
	// ReasonUnknownProblemClass marks solve data attached to an unclassified question
	ReasonUnknownProblemClass ReviewReason = "UNKNOWN_PROBLEM_CLASS"
)

// VerificationResult is the outcome of verifying a question's solve input
type VerificationResult struct {
	Status VerificationStatus `json:"status"`
	Reason ReviewReason       `json:"reason,omitempty"`
}

// IngestionJob tracks one AI-driven question extraction through the
// classification and human-review pipeline.
type IngestionJob struct {
	ID            uuid.UUID       `json:"id" yaml:"id"`
	QuestionID    sql.NullInt32   `json:"question_id" yaml:"question_id"`
	Certification string          `json:"certification" yaml:"certification"`
	Subject       string          `json:"subject" yaml:"subject"`
	Status        IngestionStatus `json:"status" yaml:"status"`
	ReviewReason  sql.NullString  `json:"review_reason" yaml:"review_reason"`
	SourceFile    sql.NullString  `json:"source_file" yaml:"source_file"`
	CreatedAt     time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" yaml:"updated_at"`
}
