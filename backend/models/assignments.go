package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmissionType string

const (
	SubmissionFile SubmissionType = "file"
	SubmissionURL  SubmissionType = "url"
	SubmissionText SubmissionType = "text"
)

func (t SubmissionType) Valid() bool {
	return t == SubmissionFile || t == SubmissionURL || t == SubmissionText
}

type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// DefaultMaxFileSize applies when neither the assignment nor the service sets
// a limit.
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

type Assignment struct {
	gorm.Model
	CourseID              uint           `json:"course_id" gorm:"index;not null"`
	Title                 string         `json:"title"`
	Description           string         `json:"description"`
	Status                Status         `json:"status" gorm:"index;default:draft"`
	CreatedBy             uint           `json:"created_by"`
	MaxPoints             float64        `json:"max_points"`
	DueDate               *time.Time     `json:"due_date"`
	AllowLateSubmissions  bool           `json:"allow_late_submissions" gorm:"default:false"`
	LateSubmissionPenalty float64        `json:"late_submission_penalty"` // percent of the grade
	SubmissionType        SubmissionType `json:"submission_type" gorm:"default:text"`
	AllowedFileTypes      datatypes.JSON `json:"allowed_file_types,omitempty"` // JSON array of content types
	MaxFileSize           int64          `json:"max_file_size"`
	AllowMultipleAttempts bool           `json:"allow_multiple_attempts" gorm:"default:false"`
	MaxAttempts           *int           `json:"max_attempts"`
	AvailableFrom         *time.Time     `json:"available_from"`
	AvailableUntil        *time.Time     `json:"available_until"`
}

// FileSizeLimit is the assignment's own limit, else fallback, else
// DefaultMaxFileSize.
func (a *Assignment) FileSizeLimit(fallback int64) int64 {
	if a.MaxFileSize > 0 {
		return a.MaxFileSize
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMaxFileSize
}

type AssignmentSubmission struct {
	gorm.Model
	UserID          uint             `json:"user_id" gorm:"index;not null"`
	AssignmentID    uint             `json:"assignment_id" gorm:"index;not null"`
	CourseID        uint             `json:"course_id" gorm:"index"`
	AttemptNumber   int              `json:"attempt_number"`
	Status          SubmissionStatus `json:"status" gorm:"index;default:draft"`
	SubmissionType  SubmissionType   `json:"submission_type"`
	FileID          string           `json:"file_id,omitempty"`
	URL             string           `json:"url,omitempty"`
	TextContent     string           `json:"text_content,omitempty" gorm:"type:text"`
	SubmittedAt     *time.Time       `json:"submitted_at"`
	IsLate          bool             `json:"is_late"`
	Grade           *float64         `json:"grade"`
	TeacherFeedback string           `json:"teacher_feedback,omitempty"`
	GradedAt        *time.Time       `json:"graded_at"`
	GradedBy        *uint            `json:"graded_by"`
}
