package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"examprep/internal/config"
	"examprep/internal/models"
	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuestionService serves questions from in-memory maps so session
// assembly can be exercised without a database.
type fakeQuestionService struct {
	byID map[int]models.Question
	pool []models.Question
}

func (f *fakeQuestionService) LoadQuestions(_ context.Context, _ models.QuestionFilter) ([]models.Question, error) {
	return f.pool, nil
}

func (f *fakeQuestionService) GetByID(_ context.Context, id int) (*models.Question, error) {
	q, ok := f.byID[id]
	if !ok {
		return nil, contextutils.WrapErrorf(contextutils.ErrQuestionNotFound, "question %d", id)
	}
	return &q, nil
}

func (f *fakeQuestionService) GetTotalCount(_ context.Context, _ string) (int, error) {
	return len(f.byID) + len(f.pool), nil
}

func (f *fakeQuestionService) GetRandomQuestions(_ context.Context, _, _ string, limit int, excludeIDs []int) ([]models.Question, error) {
	excluded := make(map[int]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	out := []models.Question{}
	for _, q := range f.pool {
		if excluded[q.ID] || len(out) >= limit {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuestionService) CreateQuestion(_ context.Context, q *models.Question) (*models.Question, error) {
	return q, nil
}

func (f *fakeQuestionService) UpdateQuestion(_ context.Context, _ *models.Question) error {
	return nil
}

func (f *fakeQuestionService) UpdateClassification(_ context.Context, _ int, _ models.ProblemClass, _ *models.StructuredSolveInput) error {
	return nil
}

func (f *fakeQuestionService) DeleteQuestion(_ context.Context, _ int) error {
	return nil
}

// fakeWrongAnswerService returns a fixed, already-ordered wrong-answer list.
type fakeWrongAnswerService struct {
	answers []models.WrongAnswer
}

func (f *fakeWrongAnswerService) Upsert(_ context.Context, _, _ int) (*models.WrongAnswer, error) {
	return nil, nil
}

func (f *fakeWrongAnswerService) List(_ context.Context, _ int) ([]models.WrongAnswer, error) {
	return f.answers, nil
}

func (f *fakeWrongAnswerService) ListDue(_ context.Context, _ int, _ time.Time) (map[models.ReviewDueBucket][]models.WrongAnswer, error) {
	return nil, nil
}

func (f *fakeWrongAnswerService) Remove(_ context.Context, _, _ int) error {
	return nil
}

func newTestScheduler() *SchedulerService {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewSchedulerService(nil, logger, config.SchedulerDefaults(), nil, nil, nil, nil)
}

func TestSchedulerService_ComputeDailyQuota(t *testing.T) {
	s := newTestScheduler()

	t.Run("learning phase splits capacity", func(t *testing.T) {
		// 600 questions over 60 days at coefficient 3.0 -> capacity 30
		stats := s.ComputeDailyQuota(600, 60, 10)
		assert.Equal(t, 18, stats.NewCount)    // ceil(30 * 0.6)
		assert.Equal(t, 12, stats.ReviewCount) // floor(30 * 0.4)
	})

	t.Run("final phase is all review", func(t *testing.T) {
		stats := s.ComputeDailyQuota(600, 60, 48) // progress 0.8
		assert.Equal(t, 0, stats.NewCount)
		assert.Equal(t, 30, stats.ReviewCount)
	})

	t.Run("day just before final phase still learns", func(t *testing.T) {
		stats := s.ComputeDailyQuota(600, 60, 47) // progress < 0.8
		assert.Positive(t, stats.NewCount)
	})

	t.Run("review floor holds for tiny banks", func(t *testing.T) {
		stats := s.ComputeDailyQuota(10, 90, 5)
		assert.GreaterOrEqual(t, stats.ReviewCount, 10)
		assert.GreaterOrEqual(t, stats.NewCount, 0)
	})

	t.Run("empty bank still yields review floor", func(t *testing.T) {
		stats := s.ComputeDailyQuota(0, 60, 1)
		assert.Equal(t, 0, stats.NewCount)
		assert.Equal(t, 10, stats.ReviewCount)
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		a := s.ComputeDailyQuota(547, 90, 33)
		b := s.ComputeDailyQuota(547, 90, 33)
		assert.Equal(t, a, b)
	})

	t.Run("quota is non-negative across a whole course", func(t *testing.T) {
		for day := 1; day <= 90; day++ {
			stats := s.ComputeDailyQuota(1200, 90, day)
			assert.GreaterOrEqual(t, stats.NewCount, 0, "day %d", day)
			assert.GreaterOrEqual(t, stats.ReviewCount, 10, "day %d", day)
		}
	})
}

func TestSchedulerService_ShuffleIsSeeded(t *testing.T) {
	questions := make([]models.Question, 20)
	for i := range questions {
		questions[i] = models.Question{ID: i + 1}
	}

	s1 := newTestScheduler()
	s1.SetRandomSource(rand.New(rand.NewSource(42)))
	s2 := newTestScheduler()
	s2.SetRandomSource(rand.New(rand.NewSource(42)))

	first := s1.shuffle(questions)
	second := s2.shuffle(questions)
	assert.Equal(t, first, second, "same seed must shuffle identically")

	// The input slice is never mutated
	for i, q := range questions {
		assert.Equal(t, i+1, q.ID)
	}

	ids := make(map[int]bool, len(first))
	for _, q := range first {
		ids[q.ID] = true
	}
	assert.Len(t, ids, len(questions), "shuffle must be a permutation")
}

func TestRotationSubject(t *testing.T) {
	subjects := []string{"회로이론", "전자기학", "전기기기"}

	t.Run("walks the list one subject per day", func(t *testing.T) {
		assert.Equal(t, "회로이론", rotationSubject(1, subjects))
		assert.Equal(t, "전자기학", rotationSubject(2, subjects))
		assert.Equal(t, "전기기기", rotationSubject(3, subjects))
	})

	t.Run("wraps around after the last subject", func(t *testing.T) {
		assert.Equal(t, "회로이론", rotationSubject(4, subjects))
		assert.Equal(t, "전자기학", rotationSubject(5, subjects))
		// A full course worth of days never leaves the list
		for day := 1; day <= 90; day++ {
			assert.Equal(t, subjects[(day-1)%3], rotationSubject(day, subjects))
		}
	})

	t.Run("single subject is picked every day", func(t *testing.T) {
		for day := 1; day <= 5; day++ {
			assert.Equal(t, "회로이론", rotationSubject(day, []string{"회로이론"}))
		}
	})
}

func newSessionScheduler(q QuestionServiceInterface, wa WrongAnswerServiceInterface) *SchedulerService {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	s := NewSchedulerService(nil, logger, config.SchedulerDefaults(), nil, q, wa, nil)
	s.SetRandomSource(rand.New(rand.NewSource(7)))
	return s
}

func poolQuestions(ids ...int) []models.Question {
	questions := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		questions = append(questions, models.Question{ID: id})
	}
	return questions
}

func TestSchedulerService_BuildReviewSession(t *testing.T) {
	ctx := context.Background()

	t.Run("gap-fills to the exact quota with unique questions", func(t *testing.T) {
		questionSvc := &fakeQuestionService{
			byID: map[int]models.Question{
				101: {ID: 101}, 102: {ID: 102}, 103: {ID: 103},
			},
			// 102 collides with an already-selected wrong answer
			pool: poolQuestions(1, 2, 3, 102, 4, 5, 6, 7),
		}
		wrongAnswers := &fakeWrongAnswerService{answers: []models.WrongAnswer{
			{QuestionID: 101, WrongCount: 5},
			{QuestionID: 102, WrongCount: 3},
			{QuestionID: 103, WrongCount: 1},
		}}
		s := newSessionScheduler(questionSvc, wrongAnswers)

		session, err := s.BuildReviewSession(ctx, 1, models.DailyStats{ReviewCount: 10}, "회로이론", "전기기사")
		require.NoError(t, err)

		assert.Len(t, session.Questions, 10)
		seen := map[int]bool{}
		for _, q := range session.Questions {
			assert.False(t, seen[q.ID], "question %d appears twice", q.ID)
			seen[q.ID] = true
		}
		assert.Equal(t, models.SessionKindReinforcement, session.Kind)
		assert.Contains(t, session.Title, "보충")
		assert.Contains(t, session.Title, "회로이론")
	})

	t.Run("enough wrong answers make a pure review session", func(t *testing.T) {
		questionSvc := &fakeQuestionService{
			byID: map[int]models.Question{
				101: {ID: 101}, 102: {ID: 102}, 103: {ID: 103}, 104: {ID: 104},
			},
			pool: poolQuestions(1, 2, 3),
		}
		// List returns hardest first; the session keeps that order
		wrongAnswers := &fakeWrongAnswerService{answers: []models.WrongAnswer{
			{QuestionID: 104, WrongCount: 9},
			{QuestionID: 101, WrongCount: 4},
			{QuestionID: 103, WrongCount: 2},
			{QuestionID: 102, WrongCount: 1},
		}}
		s := newSessionScheduler(questionSvc, wrongAnswers)

		session, err := s.BuildReviewSession(ctx, 1, models.DailyStats{ReviewCount: 3}, "회로이론", "전기기사")
		require.NoError(t, err)

		assert.Equal(t, models.SessionKindPureReview, session.Kind)
		assert.Equal(t, "오답 복습", session.Title)
		require.Len(t, session.Questions, 3)
		assert.Equal(t, 104, session.Questions[0].ID)
		assert.Equal(t, 101, session.Questions[1].ID)
		assert.Equal(t, 103, session.Questions[2].ID)
	})

	t.Run("skips wrong answers whose question left the bank", func(t *testing.T) {
		questionSvc := &fakeQuestionService{
			byID: map[int]models.Question{202: {ID: 202}},
			pool: poolQuestions(5),
		}
		wrongAnswers := &fakeWrongAnswerService{answers: []models.WrongAnswer{
			{QuestionID: 201, WrongCount: 6}, // deleted from the bank
			{QuestionID: 202, WrongCount: 2},
		}}
		s := newSessionScheduler(questionSvc, wrongAnswers)

		session, err := s.BuildReviewSession(ctx, 1, models.DailyStats{ReviewCount: 2}, "회로이론", "전기기사")
		require.NoError(t, err)

		require.Len(t, session.Questions, 2)
		for _, q := range session.Questions {
			assert.NotEqual(t, 201, q.ID)
		}
		assert.Equal(t, models.SessionKindReinforcement, session.Kind)
	})

	t.Run("no wrong answers and empty pool yields NoQuestionsAvailableError", func(t *testing.T) {
		questionSvc := &fakeQuestionService{byID: map[int]models.Question{}}
		wrongAnswers := &fakeWrongAnswerService{}
		s := newSessionScheduler(questionSvc, wrongAnswers)

		_, err := s.BuildReviewSession(ctx, 1, models.DailyStats{ReviewCount: 10}, "회로이론", "전기기사")
		require.Error(t, err)

		var noQuestions *NoQuestionsAvailableError
		require.ErrorAs(t, err, &noQuestions)
		assert.Equal(t, "회로이론", noQuestions.Subject)
		assert.Equal(t, 10, noQuestions.RequestedCount)
		assert.True(t, contextutils.IsError(err, contextutils.ErrNoQuestionsAvailable))
	})
}
