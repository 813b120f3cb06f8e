package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	gorm.Model
	Title            string         `json:"title"`
	ShortDesc        string         `json:"short_desc"`
	Description      string         `json:"description"`
	Difficulty       string         `json:"difficulty"` // beginner, intermediate, advanced
	Topic            string         `json:"topic"`
	Status           Status         `json:"status" gorm:"index;default:draft"`
	CreatedBy        uint           `json:"created_by" gorm:"index"`
	IsEnrollmentOpen bool           `json:"is_enrollment_open" gorm:"default:false"`
	EnrollmentCode   string         `json:"enrollment_code,omitempty"`
	RequiresCode     bool           `json:"requires_code" gorm:"-"`
	GradingConfig    datatypes.JSON `json:"grading_config,omitempty"`
	Modules          []Module       `json:"modules,omitempty"`
}

type Module struct {
	gorm.Model
	CourseID      uint     `json:"course_id" gorm:"index;not null"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	SequenceOrder int      `json:"sequence_order"`
	Status        Status   `json:"status" gorm:"index;default:draft"`
	CreatedBy     uint     `json:"created_by"`
	Lessons       []Lesson `json:"lessons,omitempty"`
}

type Lesson struct {
	gorm.Model
	CourseID      uint   `json:"course_id" gorm:"index;not null"`
	ModuleID      uint   `json:"module_id" gorm:"index;not null"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Content       string `json:"content" gorm:"type:text"`
	SequenceOrder int    `json:"sequence_order"`
	Status        Status `json:"status" gorm:"index;default:draft"`
	CreatedBy     uint   `json:"created_by"`
}

// Announcement is managed elsewhere; the engine only counts them when
// guarding course deletion.
type Announcement struct {
	gorm.Model
	CourseID  uint   `json:"course_id" gorm:"index;not null"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedBy uint   `json:"created_by"`
}
