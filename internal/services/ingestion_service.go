package services

import (
	"context"
	"database/sql"
	"encoding/json"

	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// structureAnalysisSchema validates the AI extraction payload at the
// boundary before anything is decoded into typed structs. Malformed
// payloads are rejected instead of trusting field presence downstream.
const structureAnalysisSchema = `{
	"type": "object",
	"required": ["question_text_raw", "has_diagram", "diagram_type"],
	"properties": {
		"question_text_raw": {"type": "string"},
		"has_diagram": {"type": "boolean"},
		"diagram_type": {"type": "string", "enum": ["CIRCUIT", "GEOMETRY", "FLUX", "UNKNOWN"]},
		"diagram_elements": {"type": "array", "items": {"type": "string"}},
		"unknowns": {"type": "array", "items": {"type": "string"}},
		"given_values": {"type": "array", "items": {"type": "string"}}
	},
	"additionalProperties": true
}`

// IngestionServiceInterface defines the interface for the extraction pipeline
type IngestionServiceInterface interface {
	DecodeStructureAnalysis(ctx context.Context, payload []byte) (*models.QuestionStructureAnalysis, error)
	ProcessExtraction(ctx context.Context, jobID uuid.UUID, payload []byte) (*models.IngestionJob, error)
	CreateJob(ctx context.Context, certification, subject, sourceFile string) (*models.IngestionJob, error)
	AttachQuestion(ctx context.Context, jobID uuid.UUID, questionID int) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.IngestionJob, error)
	ListJobsByStatus(ctx context.Context, status models.IngestionStatus, limit int) ([]models.IngestionJob, error)
	ApproveJob(ctx context.Context, jobID uuid.UUID) error
}

// IngestionService runs freshly extracted questions through validation,
// classification, and verification, and tracks the outcome per job for the
// human-review queue.
type IngestionService struct {
	db           *sql.DB
	logger       *observability.Logger
	classifier   ClassifierServiceInterface
	verifier     VerificationServiceInterface
	questionSvc  QuestionServiceInterface
	schemaLoader gojsonschema.JSONLoader
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(db *sql.DB, logger *observability.Logger, classifier ClassifierServiceInterface, verifier VerificationServiceInterface, questionSvc QuestionServiceInterface) *IngestionService {
	return &IngestionService{
		db:           db,
		logger:       logger,
		classifier:   classifier,
		verifier:     verifier,
		questionSvc:  questionSvc,
		schemaLoader: gojsonschema.NewStringLoader(structureAnalysisSchema),
	}
}

const jobColumns = `id, question_id, certification, subject, status, review_reason, source_file, created_at, updated_at`

// DecodeStructureAnalysis validates the raw AI payload against the schema
// and decodes it into the typed analysis struct.
func (s *IngestionService) DecodeStructureAnalysis(ctx context.Context, payload []byte) (result0 *models.QuestionStructureAnalysis, err error) {
	_, span := observability.TraceIngestionFunction(ctx, "DecodeStructureAnalysis",
		attribute.Int("payload.size", len(payload)),
	)
	defer observability.FinishSpan(span, &err)

	validation, err := gojsonschema.Validate(s.schemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrStructurePayloadInvalid, "schema validation failed: %v", err)
	}
	if !validation.Valid() {
		details := ""
		for _, desc := range validation.Errors() {
			if details != "" {
				details += "; "
			}
			details += desc.String()
		}
		return nil, contextutils.WrapErrorf(contextutils.ErrStructurePayloadInvalid, "%s", details)
	}

	var structure models.QuestionStructureAnalysis
	if err := json.Unmarshal(payload, &structure); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrStructurePayloadInvalid, "decode failed: %v", err)
	}
	return &structure, nil
}

// CreateJob registers a new extraction job in PENDING state
func (s *IngestionService) CreateJob(ctx context.Context, certification, subject, sourceFile string) (result0 *models.IngestionJob, err error) {
	ctx, span := observability.TraceIngestionFunction(ctx, "CreateJob",
		observability.AttributeCertification(certification),
		observability.AttributeSubject(subject),
	)
	defer observability.FinishSpan(span, &err)

	job := &models.IngestionJob{
		ID:            uuid.New(),
		Certification: certification,
		Subject:       subject,
		Status:        models.IngestionStatusPending,
	}
	if sourceFile != "" {
		job.SourceFile = sql.NullString{String: sourceFile, Valid: true}
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO ingestion_jobs (id, certification, subject, status, source_file, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`,
		job.ID, job.Certification, job.Subject, job.Status, job.SourceFile,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert ingestion job")
	}

	span.SetAttributes(observability.AttributeJobID(job.ID.String()))
	return job, nil
}

// AttachQuestion links a stored question to its extraction job
func (s *IngestionService) AttachQuestion(ctx context.Context, jobID uuid.UUID, questionID int) (err error) {
	ctx, span := observability.TraceIngestionFunction(ctx, "AttachQuestion",
		observability.AttributeJobID(jobID.String()),
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_jobs SET question_id = $1, updated_at = NOW() WHERE id = $2`,
		questionID, jobID)
	if err != nil {
		return contextutils.WrapError(err, "failed to attach question to job")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read rows affected")
	}
	if affected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrIngestionJobNotFound, "job %s", jobID)
	}
	return nil
}

// GetJob returns a single ingestion job, or ErrIngestionJobNotFound
func (s *IngestionService) GetJob(ctx context.Context, jobID uuid.UUID) (result0 *models.IngestionJob, err error) {
	ctx, span := observability.TraceIngestionFunction(ctx, "GetJob",
		observability.AttributeJobID(jobID.String()),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM ingestion_jobs WHERE id = $1`, jobID)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrIngestionJobNotFound, "job %s", jobID)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get ingestion job")
	}
	return job, nil
}

// ListJobsByStatus returns jobs in the given state, oldest first, for the
// review queue and the worker sweep.
func (s *IngestionService) ListJobsByStatus(ctx context.Context, status models.IngestionStatus, limit int) (result0 []models.IngestionJob, err error) {
	ctx, span := observability.TraceIngestionFunction(ctx, "ListJobsByStatus",
		attribute.String("job.status", string(status)),
		observability.AttributeLimit(limit),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM ingestion_jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query ingestion jobs")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	jobs := []models.IngestionJob{}
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan ingestion job")
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating ingestion jobs")
	}

	span.SetAttributes(attribute.Int("jobs.count", len(jobs)))
	return jobs, nil
}

// ProcessExtraction runs the full pipeline for one job: validate the AI
// payload, classify, build the solve input, verify completeness, store the
// classification on the question, and move the job to CLASSIFIED or
// NEEDS_REVIEW.
func (s *IngestionService) ProcessExtraction(ctx context.Context, jobID uuid.UUID, payload []byte) (result0 *models.IngestionJob, err error) {
	ctx, span := observability.TraceIngestionFunction(ctx, "ProcessExtraction",
		observability.AttributeJobID(jobID.String()),
	)
	defer observability.FinishSpan(span, &err)

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.QuestionID.Valid {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "job %s has no question attached", jobID)
	}
	questionID := int(job.QuestionID.Int32)

	structure, err := s.DecodeStructureAnalysis(ctx, payload)
	if err != nil {
		// A malformed payload is routed to human review, not dropped
		if reviewErr := s.setJobStatus(ctx, jobID, models.IngestionStatusNeedsReview, models.ReasonStructureMissing); reviewErr != nil {
			return nil, reviewErr
		}
		s.logger.Warn(ctx, "Extraction payload rejected", map[string]interface{}{
			"job_id": jobID.String(),
			"error":  err.Error(),
		})
		return s.GetJob(ctx, jobID)
	}

	question, err := s.questionSvc.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	class := s.classifier.ClassifyProblemClass(ctx, structure)
	solveInput := s.classifier.BuildSolveInput(ctx, structure, class, question.QuestionText)

	if err := s.questionSvc.UpdateClassification(ctx, questionID, class, solveInput); err != nil {
		return nil, err
	}

	question.ProblemClass = class
	question.StructureAnalysis = structure
	question.SolveInput = solveInput
	verdict := s.verifier.VerifySolveInput(ctx, question)

	status := models.IngestionStatusClassified
	reason := models.ReviewReason("")
	if verdict.Status == models.VerificationNeedsReview {
		status = models.IngestionStatusNeedsReview
		reason = verdict.Reason
	}
	if err := s.setJobStatus(ctx, jobID, status, reason); err != nil {
		return nil, err
	}

	span.SetAttributes(
		observability.AttributeProblemClass(string(class)),
		attribute.String("job.status", string(status)),
	)
	return s.GetJob(ctx, jobID)
}

// ApproveJob is the human-review resolution: a reviewer confirms the
// extraction and the job moves to CLASSIFIED.
func (s *IngestionService) ApproveJob(ctx context.Context, jobID uuid.UUID) (err error) {
	ctx, span := observability.TraceIngestionFunction(ctx, "ApproveJob",
		observability.AttributeJobID(jobID.String()),
	)
	defer observability.FinishSpan(span, &err)

	return s.setJobStatus(ctx, jobID, models.IngestionStatusClassified, "")
}

func (s *IngestionService) setJobStatus(ctx context.Context, jobID uuid.UUID, status models.IngestionStatus, reason models.ReviewReason) error {
	var reviewReason sql.NullString
	if reason != "" {
		reviewReason = sql.NullString{String: string(reason), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE ingestion_jobs
		SET status = $1, review_reason = $2, updated_at = NOW()
		WHERE id = $3`,
		status, reviewReason, jobID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update job status")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read rows affected")
	}
	if affected == 0 {
		return contextutils.WrapErrorf(contextutils.ErrIngestionJobNotFound, "job %s", jobID)
	}
	return nil
}

func scanJob(row rowScanner) (*models.IngestionJob, error) {
	var job models.IngestionJob
	err := row.Scan(&job.ID, &job.QuestionID, &job.Certification, &job.Subject,
		&job.Status, &job.ReviewReason, &job.SourceFile, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
