package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"

	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// QuestionServiceInterface defines the interface for question bank operations
type QuestionServiceInterface interface {
	LoadQuestions(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error)
	GetByID(ctx context.Context, id int) (*models.Question, error)
	GetTotalCount(ctx context.Context, certification string) (int, error)
	GetRandomQuestions(ctx context.Context, subject, certification string, limit int, excludeIDs []int) ([]models.Question, error)
	CreateQuestion(ctx context.Context, q *models.Question) (*models.Question, error)
	UpdateQuestion(ctx context.Context, q *models.Question) error
	UpdateClassification(ctx context.Context, questionID int, class models.ProblemClass, input *models.StructuredSolveInput) error
	DeleteQuestion(ctx context.Context, id int) error
}

// QuestionService provides access to the exam question bank
type QuestionService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewQuestionService creates a new QuestionService instance
func NewQuestionService(db *sql.DB, logger *observability.Logger) *QuestionService {
	return &QuestionService{
		db:     db,
		logger: logger,
	}
}

const questionColumns = `id, subject, year, certification, question_text, options, answer_index,
	topic_category, difficulty_level, problem_type, problem_class,
	structure_analysis, solve_input, diagram_url, created_at, updated_at`

// LoadQuestions returns questions matching the filter
func (s *QuestionService) LoadQuestions(ctx context.Context, filter models.QuestionFilter) (result0 []models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "LoadQuestions",
		observability.AttributeCertification(filter.Certification),
		observability.AttributeSubject(filter.Subject),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT ` + questionColumns + ` FROM questions WHERE certification = $1`
	args := []interface{}{filter.Certification}

	if filter.Subject != "" {
		args = append(args, filter.Subject)
		query += ` AND subject = $2`
	}
	if filter.Year > 0 {
		args = append(args, filter.Year)
		query += ` AND year = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("questions.count", len(questions)))
	return questions, nil
}

// GetByID returns a single question, or ErrQuestionNotFound
func (s *QuestionService) GetByID(ctx context.Context, id int) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "GetByID",
		observability.AttributeQuestionID(id),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, contextutils.WrapErrorf(contextutils.ErrQuestionNotFound, "question %d", id)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get question")
	}
	return q, nil
}

// GetTotalCount returns the size of the question bank for a certification
func (s *QuestionService) GetTotalCount(ctx context.Context, certification string) (result0 int, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "GetTotalCount",
		observability.AttributeCertification(certification),
	)
	defer observability.FinishSpan(span, &err)

	var count int
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM questions WHERE certification = $1", certification).Scan(&count)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to count questions")
	}

	span.SetAttributes(attribute.Int("questions.total", count))
	return count, nil
}

// GetRandomQuestions returns up to limit random questions for a subject,
// excluding the given question IDs. The randomization happens in the
// database so large banks are not pulled into memory.
func (s *QuestionService) GetRandomQuestions(ctx context.Context, subject, certification string, limit int, excludeIDs []int) (result0 []models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "GetRandomQuestions",
		observability.AttributeSubject(subject),
		observability.AttributeCertification(certification),
		observability.AttributeLimit(limit),
		attribute.Int("exclude.count", len(excludeIDs)),
	)
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		return []models.Question{}, nil
	}

	exclude := make(pq.Int64Array, 0, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude = append(exclude, int64(id))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE subject = $1 AND certification = $2 AND id != ALL($3)
		ORDER BY RANDOM()
		LIMIT $4`,
		subject, certification, exclude, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query random questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("questions.count", len(questions)))
	return questions, nil
}

// CreateQuestion inserts a new question and returns it with its assigned ID
func (s *QuestionService) CreateQuestion(ctx context.Context, q *models.Question) (result0 *models.Question, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "CreateQuestion",
		observability.AttributeSubject(q.Subject),
		observability.AttributeCertification(q.Certification),
	)
	defer observability.FinishSpan(span, &err)

	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidAnswerIndex,
			"answer index %d outside 0..%d", q.AnswerIndex, len(q.Options)-1)
	}

	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to marshal options")
	}
	structureJSON, solveJSON, err := marshalExtraction(q.StructureAnalysis, q.SolveInput)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO questions (subject, year, certification, question_text, options, answer_index,
			topic_category, difficulty_level, problem_type, problem_class,
			structure_analysis, solve_input, diagram_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		q.Subject, q.Year, q.Certification, q.QuestionText, optionsJSON, q.AnswerIndex,
		q.TopicCategory, q.DifficultyLevel, q.ProblemType, nullableClass(q.ProblemClass),
		structureJSON, solveJSON, q.DiagramURL,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert question")
	}

	span.SetAttributes(observability.AttributeQuestionID(q.ID))
	return q, nil
}

// UpdateQuestion replaces the mutable fields of an existing question
func (s *QuestionService) UpdateQuestion(ctx context.Context, q *models.Question) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "UpdateQuestion",
		observability.AttributeQuestionID(q.ID),
	)
	defer observability.FinishSpan(span, &err)

	if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
		return contextutils.WrapErrorf(contextutils.ErrInvalidAnswerIndex,
			"answer index %d outside 0..%d", q.AnswerIndex, len(q.Options)-1)
	}

	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal options")
	}
	structureJSON, solveJSON, err := marshalExtraction(q.StructureAnalysis, q.SolveInput)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE questions
		SET subject = $1, year = $2, question_text = $3, options = $4, answer_index = $5,
			topic_category = $6, difficulty_level = $7, problem_type = $8, problem_class = $9,
			structure_analysis = $10, solve_input = $11, diagram_url = $12, updated_at = NOW()
		WHERE id = $13`,
		q.Subject, q.Year, q.QuestionText, optionsJSON, q.AnswerIndex,
		q.TopicCategory, q.DifficultyLevel, q.ProblemType, nullableClass(q.ProblemClass),
		structureJSON, solveJSON, q.DiagramURL, q.ID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update question")
	}
	return requireOneRow(result, contextutils.ErrQuestionNotFound, q.ID)
}

// UpdateClassification stores the classifier's output for a question
func (s *QuestionService) UpdateClassification(ctx context.Context, questionID int, class models.ProblemClass, input *models.StructuredSolveInput) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "UpdateClassification",
		observability.AttributeQuestionID(questionID),
		observability.AttributeProblemClass(string(class)),
	)
	defer observability.FinishSpan(span, &err)

	var solveJSON interface{}
	if input != nil {
		data, marshalErr := json.Marshal(input)
		if marshalErr != nil {
			return contextutils.WrapError(marshalErr, "failed to marshal solve input")
		}
		solveJSON = data
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE questions
		SET problem_class = $1, solve_input = $2, updated_at = NOW()
		WHERE id = $3`,
		nullableClass(class), solveJSON, questionID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update classification")
	}
	return requireOneRow(result, contextutils.ErrQuestionNotFound, questionID)
}

// DeleteQuestion removes a question from the bank
func (s *QuestionService) DeleteQuestion(ctx context.Context, id int) (err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "DeleteQuestion",
		observability.AttributeQuestionID(id),
	)
	defer observability.FinishSpan(span, &err)

	result, err := s.db.ExecContext(ctx, "DELETE FROM questions WHERE id = $1", id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete question")
	}
	return requireOneRow(result, contextutils.ErrQuestionNotFound, id)
}

// ShuffleQuestions returns a shuffled copy of the slice using the provided
// random source. Callers pass a seeded source in tests for determinism.
func ShuffleQuestions(questions []models.Question, rng *rand.Rand) []models.Question {
	shuffled := make([]models.Question, len(questions))
	copy(shuffled, questions)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var optionsJSON []byte
	var topicCategory sql.NullString
	var problemClass sql.NullString
	var structureJSON, solveJSON []byte

	err := row.Scan(&q.ID, &q.Subject, &q.Year, &q.Certification, &q.QuestionText,
		&optionsJSON, &q.AnswerIndex, &topicCategory, &q.DifficultyLevel,
		&q.ProblemType, &problemClass, &structureJSON, &solveJSON,
		&q.DiagramURL, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
		return nil, contextutils.WrapError(err, "failed to unmarshal options")
	}
	q.TopicCategory = topicCategory.String
	if problemClass.Valid {
		q.ProblemClass = models.ProblemClass(problemClass.String)
	}
	if len(structureJSON) > 0 {
		var sa models.QuestionStructureAnalysis
		if err := json.Unmarshal(structureJSON, &sa); err != nil {
			return nil, contextutils.WrapError(err, "failed to unmarshal structure analysis")
		}
		q.StructureAnalysis = &sa
	}
	if len(solveJSON) > 0 {
		var si models.StructuredSolveInput
		if err := json.Unmarshal(solveJSON, &si); err != nil {
			return nil, contextutils.WrapError(err, "failed to unmarshal solve input")
		}
		q.SolveInput = &si
	}
	return &q, nil
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	questions := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question")
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating questions")
	}
	return questions, nil
}

func marshalExtraction(sa *models.QuestionStructureAnalysis, si *models.StructuredSolveInput) (structureJSON, solveJSON interface{}, err error) {
	if sa != nil {
		data, marshalErr := json.Marshal(sa)
		if marshalErr != nil {
			return nil, nil, contextutils.WrapError(marshalErr, "failed to marshal structure analysis")
		}
		structureJSON = data
	}
	if si != nil {
		data, marshalErr := json.Marshal(si)
		if marshalErr != nil {
			return nil, nil, contextutils.WrapError(marshalErr, "failed to marshal solve input")
		}
		solveJSON = data
	}
	return structureJSON, solveJSON, nil
}

func nullableClass(class models.ProblemClass) interface{} {
	if class == "" {
		return nil
	}
	return string(class)
}

func requireOneRow(result sql.Result, sentinel error, id int) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to read rows affected")
	}
	if affected == 0 {
		return contextutils.WrapErrorf(sentinel, "id %d", id)
	}
	return nil
}
