// Package models defines data structures used throughout the exam-prep application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User represents a user in the system
type User struct {
	ID           int            `json:"id" yaml:"id"`
	Username     string         `json:"username" yaml:"username"`
	Email        sql.NullString `json:"email" yaml:"email"`
	Timezone     sql.NullString `json:"timezone" yaml:"timezone"`
	PasswordHash sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	LastActive   sql.NullTime   `json:"last_active" yaml:"last_active"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" yaml:"updated_at"`
	Roles        []Role         `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Role represents a role in the system
type Role struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for User to handle sql.NullString and sql.NullTime properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID         int        `json:"id"`
		Username   string     `json:"username"`
		Email      *string    `json:"email"`
		Timezone   *string    `json:"timezone"`
		LastActive *time.Time `json:"last_active"`
		CreatedAt  time.Time  `json:"created_at"`
		UpdatedAt  time.Time  `json:"updated_at"`
		Roles      []Role     `json:"roles,omitempty"`
	}{
		ID:         u.ID,
		Username:   u.Username,
		Email:      nullStringToPointer(u.Email),
		Timezone:   nullStringToPointer(u.Timezone),
		LastActive: nullTimeToPointer(u.LastActive),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
		Roles:      u.Roles,
	})
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// ProblemType describes the surface form of an exam question
type ProblemType string

// Problem types supported by the system
const (
	// ProblemTypeText is a plain-text question without any figure
	ProblemTypeText ProblemType = "text"
	// ProblemTypeDiagram is a question that references a diagram or figure
	ProblemTypeDiagram ProblemType = "diagram"
	// ProblemTypeTableGraph is a question built around a table or graph
	ProblemTypeTableGraph ProblemType = "table_graph"
)

// Question represents a single exam question in the bank
type Question struct {
	ID              int          `json:"id" yaml:"id"`
	Subject         string       `json:"subject" yaml:"subject"`
	Year            int          `json:"year" yaml:"year"`
	Certification   string       `json:"certification" yaml:"certification"`
	QuestionText    string       `json:"question_text" yaml:"question_text"`
	Options         []string     `json:"options" yaml:"options"`
	AnswerIndex     int          `json:"answer_index" yaml:"answer_index"`
	TopicCategory   string       `json:"topic_category,omitempty" yaml:"topic_category"`
	DifficultyLevel int          `json:"difficulty_level" yaml:"difficulty_level"`
	ProblemType     ProblemType  `json:"problem_type" yaml:"problem_type"`
	ProblemClass    ProblemClass `json:"problem_class,omitempty" yaml:"problem_class"`
	// StructureAnalysis and SolveInput are populated by the ingestion
	// pipeline and stay nil for hand-entered questions.
	StructureAnalysis *QuestionStructureAnalysis `json:"structure_analysis,omitempty" yaml:"structure_analysis,omitempty"`
	SolveInput        *StructuredSolveInput      `json:"solve_input,omitempty" yaml:"solve_input,omitempty"`
	DiagramURL        sql.NullString             `json:"diagram_url" yaml:"diagram_url"`
	CreatedAt         time.Time                  `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at" yaml:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for Question to handle sql.NullString properly
func (q Question) MarshalJSON() (result0 []byte, err error) {
	type alias Question
	return json.Marshal(&struct {
		alias
		DiagramURL *string `json:"diagram_url"`
	}{
		alias:      alias(q),
		DiagramURL: nullStringToPointer(q.DiagramURL),
	})
}

// QuestionFilter narrows a question-bank query
type QuestionFilter struct {
	Certification string `json:"certification"`
	Subject       string `json:"subject,omitempty"`
	Year          int    `json:"year,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// WrongAnswer tracks a question a user has answered incorrectly
type WrongAnswer struct {
	ID         int       `json:"id" yaml:"id"`
	UserID     int       `json:"user_id" yaml:"user_id"`
	QuestionID int       `json:"question_id" yaml:"question_id"`
	AddedDate  time.Time `json:"added_date" yaml:"added_date"`
	WrongCount int       `json:"wrong_count" yaml:"wrong_count"`
}

// ReviewDueBucket classifies a wrong answer by how long ago it was first missed
type ReviewDueBucket string

// Review due buckets derived from a wrong answer's age
const (
	// ReviewDueNone means the record is too fresh for a reminder
	ReviewDueNone ReviewDueBucket = "none"
	// ReviewDueShortTerm means the record crossed the short-term threshold
	ReviewDueShortTerm ReviewDueBucket = "short_term"
	// ReviewDueLongTerm means the record crossed the long-term threshold
	ReviewDueLongTerm ReviewDueBucket = "long_term"
)

// AnswerRequest represents a user's answer submission
type AnswerRequest struct {
	QuestionID      int `json:"question_id" binding:"required"`
	UserAnswerIndex int `json:"user_answer_index"`
}

// AnswerResponse represents the response to an answer submission
type AnswerResponse struct {
	IsCorrect   bool `json:"is_correct"`
	AnswerIndex int  `json:"answer_index"`
	WrongCount  int  `json:"wrong_count,omitempty"`
}
