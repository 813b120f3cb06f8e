package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonProgress struct {
	gorm.Model
	UserID       uint       `json:"user_id" gorm:"uniqueIndex:idx_lesson_progress_user_lesson;not null"`
	LessonID     uint       `json:"lesson_id" gorm:"uniqueIndex:idx_lesson_progress_user_lesson;not null"`
	CourseID     uint       `json:"course_id" gorm:"index"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at"`
	LastViewedAt time.Time  `json:"last_viewed_at"`
}

type GuideProgress struct {
	gorm.Model
	UserID         uint           `json:"user_id" gorm:"uniqueIndex:idx_guide_progress_user_guide;not null"`
	GuideID        string         `json:"guide_id" gorm:"uniqueIndex:idx_guide_progress_user_guide;not null"`
	CompletedSteps datatypes.JSON `json:"completed_steps"` // JSON array of step indexes, no duplicates
	TotalSteps     int            `json:"total_steps"`
	Completed      bool           `json:"completed"`
}

type LessonStats struct {
	Total                int     `json:"total"`
	Completed            int     `json:"completed"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

type QuizStats struct {
	Total                int     `json:"total"`
	Completed            int     `json:"completed"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Attempts             int     `json:"attempts"`
	AverageScore         float64 `json:"average_score"`
}

type AssignmentStats struct {
	Total                int     `json:"total"`
	Completed            int     `json:"completed"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Graded               int     `json:"graded"`
	AverageGrade         float64 `json:"average_grade"`
}

// CoursePerformance is one learner's progress in one course, computed on read.
type CoursePerformance struct {
	UserID          uint            `json:"user_id"`
	CourseID        uint            `json:"course_id"`
	Lessons         LessonStats     `json:"lessons"`
	Quizzes         QuizStats       `json:"quizzes"`
	Assignments     AssignmentStats `json:"assignments"`
	OverallProgress float64         `json:"overall_progress"`
	IsComplete      bool            `json:"is_complete"`
}

type PlatformProgress struct {
	UserID           uint                `json:"user_id"`
	ActiveCourses    int                 `json:"active_courses"`
	CompletedCourses int                 `json:"completed_courses"`
	OverallProgress  float64             `json:"overall_progress"`
	Courses          []CoursePerformance `json:"courses"`
}
