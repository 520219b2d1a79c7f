package models

import (
	"time"

	contextutils "examprep/internal/utils"

	"github.com/lib/pq"
)

// CourseType identifies the fixed length of a study program
type CourseType string

// Course types supported by the system
const (
	// Course60Day is the 60-day program
	Course60Day CourseType = "60_day"
	// Course90Day is the 90-day program
	Course90Day CourseType = "90_day"
)

// TotalDays returns the number of days in the course, or 0 for an unknown type
func (ct CourseType) TotalDays() int {
	switch ct {
	case Course60Day:
		return 60
	case Course90Day:
		return 90
	default:
		return 0
	}
}

// Valid reports whether the course type is one the system knows about
func (ct CourseType) Valid() bool {
	return ct.TotalDays() > 0
}

// PlanStatus represents the lifecycle state of a study plan
type PlanStatus string

// Study plan statuses
const (
	// PlanStatusActive is a plan the learner is currently working through
	PlanStatusActive PlanStatus = "active"
	// PlanStatusCompleted is a plan whose final day has been completed
	PlanStatusCompleted PlanStatus = "completed"
	// PlanStatusAbandoned is a plan the learner explicitly reset
	PlanStatusAbandoned PlanStatus = "abandoned"
)

// StudyPlan identifies a learner's enrollment in a fixed-length program
type StudyPlan struct {
	ID            int        `json:"id" yaml:"id"`
	UserID        int        `json:"user_id" yaml:"user_id"`
	Certification string     `json:"certification" yaml:"certification"`
	CourseType    CourseType `json:"course_type" yaml:"course_type"`
	StartDate     time.Time  `json:"start_date" yaml:"start_date"`
	CurrentDay    int        `json:"current_day" yaml:"current_day"`
	Status        PlanStatus `json:"status" yaml:"status"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
}

// Validate rejects malformed plans at the boundary so the scheduler can
// assume its input is sound.
func (sp *StudyPlan) Validate() error {
	if !sp.CourseType.Valid() {
		return contextutils.ErrorWithContextf("invalid course type: %s", sp.CourseType)
	}
	if sp.CurrentDay < 1 || sp.CurrentDay > sp.CourseType.TotalDays() {
		return contextutils.WrapErrorf(contextutils.ErrPlanDayOutOfRange,
			"current day %d outside 1..%d", sp.CurrentDay, sp.CourseType.TotalDays())
	}
	return nil
}

// IsActive reports whether the plan is still in progress
func (sp *StudyPlan) IsActive() bool {
	return sp.Status == PlanStatusActive
}

// DailyStudyLog is the per-day record of a study plan, one per (plan, day) pair
type DailyStudyLog struct {
	ID                 int           `json:"id" yaml:"id"`
	PlanID             int           `json:"plan_id" yaml:"plan_id"`
	DayNumber          int           `json:"day_number" yaml:"day_number"`
	TargetSubjects     []string      `json:"target_subjects" yaml:"target_subjects"`
	CompletedReading   bool          `json:"completed_reading" yaml:"completed_reading"`
	CompletedReview    bool          `json:"completed_review" yaml:"completed_review"`
	ReadingQuestionIDs pq.Int64Array `json:"reading_question_ids,omitempty" yaml:"reading_question_ids,omitempty"`
	ReviewQuestionIDs  pq.Int64Array `json:"review_question_ids,omitempty" yaml:"review_question_ids,omitempty"`
	TargetNewCount     int           `json:"target_new_count" yaml:"target_new_count"`
	TargetReviewCount  int           `json:"target_review_count" yaml:"target_review_count"`
	CreatedAt          time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" yaml:"updated_at"`
}

// DailyStats holds today's question quotas. Derived, never persisted;
// recomputed on every routine load.
type DailyStats struct {
	NewCount    int `json:"new_count"`
	ReviewCount int `json:"review_count"`
}

// SessionKind distinguishes how a review session was assembled
type SessionKind string

// Session kinds surfaced in session titles
const (
	// SessionKindReading is a new-concept reading session
	SessionKindReading SessionKind = "reading"
	// SessionKindPureReview is a review session built entirely from wrong answers
	SessionKindPureReview SessionKind = "pure_review"
	// SessionKindReinforcement is a review session padded with fallback questions
	SessionKindReinforcement SessionKind = "reinforcement"
)

// StudySession is an assembled batch of questions with a user-facing title
type StudySession struct {
	Kind      SessionKind `json:"kind"`
	Title     string      `json:"title"`
	Subject   string      `json:"subject"`
	Questions []Question  `json:"questions"`
}

// PhaseHistoryEntry is one recorded Phase 1 quiz result for a subject
type PhaseHistoryEntry struct {
	Accuracy       float64   `json:"accuracy" yaml:"accuracy"`
	TotalQuestions int       `json:"total_questions" yaml:"total_questions"`
	CorrectCount   int       `json:"correct_count" yaml:"correct_count"`
	RecordedAt     time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// PhaseStatus is the per-subject mock-exam gate state. History is bounded
// to the most recent entries, newest first, and Ready is always re-derived
// from History rather than stored independently.
type PhaseStatus struct {
	ID        int                 `json:"id" yaml:"id"`
	UserID    int                 `json:"user_id" yaml:"user_id"`
	Subject   string              `json:"subject" yaml:"subject"`
	History   []PhaseHistoryEntry `json:"history" yaml:"history"`
	Ready     bool                `json:"ready" yaml:"ready"`
	UpdatedAt time.Time           `json:"updated_at" yaml:"updated_at"`
}
