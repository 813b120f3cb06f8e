package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quiz struct {
	gorm.Model
	CourseID              uint           `json:"course_id" gorm:"index;not null"`
	Title                 string         `json:"title"`
	Description           string         `json:"description"`
	Status                Status         `json:"status" gorm:"index;default:draft"`
	CreatedBy             uint           `json:"created_by"`
	PassingScore          *float64       `json:"passing_score"`
	AllowMultipleAttempts bool           `json:"allow_multiple_attempts" gorm:"default:false"`
	MaxAttempts           *int           `json:"max_attempts"`
	TimeLimitMinutes      *int           `json:"time_limit_minutes"`
	AvailableFrom         *time.Time     `json:"available_from"`
	AvailableUntil        *time.Time     `json:"available_until"`
	Questions             []QuizQuestion `json:"questions,omitempty"`
}

type QuizQuestion struct {
	gorm.Model
	QuizID        uint           `json:"quiz_id" gorm:"index;not null"`
	Question      string         `json:"question"`
	Options       datatypes.JSON `json:"options"` // JSON array of option strings
	CorrectIndex  int            `json:"-"`
	Points        float64        `json:"points"`
	SequenceOrder int            `json:"sequence_order"`
}

// Answer is one learner choice inside an attempt.
type Answer struct {
	QuestionID    uint `json:"questionId"`
	SelectedIndex int  `json:"selectedIndex"`
}

type QuizAttempt struct {
	gorm.Model
	UserID           uint           `json:"user_id" gorm:"index;not null"`
	QuizID           uint           `json:"quiz_id" gorm:"index;not null"`
	CourseID         uint           `json:"course_id" gorm:"index"`
	AttemptNumber    int            `json:"attempt_number"`
	Answers          datatypes.JSON `json:"answers"`
	Score            float64        `json:"score"`
	MaxScore         float64        `json:"max_score"`
	Percentage       float64        `json:"percentage"`
	Passed           *bool          `json:"passed"`
	StartedAt        time.Time      `json:"started_at"`
	SubmittedAt      *time.Time     `json:"submitted_at"`
	TimeSpentSeconds int64          `json:"time_spent_seconds"`
}

func (a *QuizAttempt) IsSubmitted() bool {
	return a.SubmittedAt != nil
}
