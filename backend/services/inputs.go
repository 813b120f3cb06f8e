package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"gorm.io/datatypes"
)

type CourseInput struct {
	Title            string         `json:"title" validate:"required,max=200"`
	ShortDesc        string         `json:"short_desc" validate:"max=500"`
	Description      string         `json:"description"`
	Difficulty       string         `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Topic            string         `json:"topic"`
	IsEnrollmentOpen bool           `json:"is_enrollment_open"`
	RequireCode      bool           `json:"require_code"`
	GradingConfig    datatypes.JSON `json:"grading_config"`
}

type CoursePatch struct {
	Title         *string         `json:"title" validate:"omitempty,min=1,max=200"`
	ShortDesc     *string         `json:"short_desc" validate:"omitempty,max=500"`
	Description   *string         `json:"description"`
	Difficulty    *string         `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Topic         *string         `json:"topic"`
	GradingConfig *datatypes.JSON `json:"grading_config"`
}

func (p CoursePatch) changes() map[string]interface{} {
	m := map[string]interface{}{}
	set(m, "title", p.Title)
	set(m, "short_desc", p.ShortDesc)
	set(m, "description", p.Description)
	set(m, "difficulty", p.Difficulty)
	set(m, "topic", p.Topic)
	set(m, "grading_config", p.GradingConfig)
	return m
}

type ModuleInput struct {
	CourseID      uint   `json:"course_id" validate:"required"`
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description"`
	SequenceOrder int    `json:"sequence_order" validate:"gte=0"`
}

type ModulePatch struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string `json:"description"`
	SequenceOrder *int    `json:"sequence_order" validate:"omitempty,gte=0"`
}

func (p ModulePatch) changes() map[string]interface{} {
	m := map[string]interface{}{}
	set(m, "title", p.Title)
	set(m, "description", p.Description)
	set(m, "sequence_order", p.SequenceOrder)
	return m
}

type LessonInput struct {
	ModuleID      uint   `json:"module_id" validate:"required"`
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description"`
	Content       string `json:"content"`
	SequenceOrder int    `json:"sequence_order" validate:"gte=0"`
}

type LessonPatch struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string `json:"description"`
	Content       *string `json:"content"`
	SequenceOrder *int    `json:"sequence_order" validate:"omitempty,gte=0"`
}

func (p LessonPatch) changes() map[string]interface{} {
	m := map[string]interface{}{}
	set(m, "title", p.Title)
	set(m, "description", p.Description)
	set(m, "content", p.Content)
	set(m, "sequence_order", p.SequenceOrder)
	return m
}

type QuizInput struct {
	CourseID              uint       `json:"course_id" validate:"required"`
	Title                 string     `json:"title" validate:"required,max=200"`
	Description           string     `json:"description"`
	PassingScore          *float64   `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	AllowMultipleAttempts bool       `json:"allow_multiple_attempts"`
	MaxAttempts           *int       `json:"max_attempts" validate:"omitempty,gte=1"`
	TimeLimitMinutes      *int       `json:"time_limit_minutes" validate:"omitempty,gte=1"`
	AvailableFrom         *time.Time `json:"available_from"`
	AvailableUntil        *time.Time `json:"available_until"`
}

type QuizPatch struct {
	Title                 *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description           *string    `json:"description"`
	PassingScore          *float64   `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	AllowMultipleAttempts *bool      `json:"allow_multiple_attempts"`
	MaxAttempts           *int       `json:"max_attempts" validate:"omitempty,gte=1"`
	TimeLimitMinutes      *int       `json:"time_limit_minutes" validate:"omitempty,gte=1"`
	AvailableFrom         *time.Time `json:"available_from"`
	AvailableUntil        *time.Time `json:"available_until"`
	// Clear names nullable columns to reset to NULL.
	Clear                 []string   `json:"clear" validate:"dive,oneof=passing_score max_attempts time_limit_minutes available_from available_until"`
}

func (p QuizPatch) changes() (map[string]interface{}, error) {
	m := map[string]interface{}{}
	set(m, "title", p.Title)
	set(m, "description", p.Description)
	set(m, "passing_score", p.PassingScore)
	set(m, "allow_multiple_attempts", p.AllowMultipleAttempts)
	set(m, "max_attempts", p.MaxAttempts)
	set(m, "time_limit_minutes", p.TimeLimitMinutes)
	set(m, "available_from", p.AvailableFrom)
	set(m, "available_until", p.AvailableUntil)
	return m, setNull(m, p.Clear)
}

type AssignmentInput struct {
	CourseID              uint                  `json:"course_id" validate:"required"`
	Title                 string                `json:"title" validate:"required,max=200"`
	Description           string                `json:"description"`
	MaxPoints             float64               `json:"max_points" validate:"gte=0"`
	DueDate               *time.Time            `json:"due_date"`
	AllowLateSubmissions  bool                  `json:"allow_late_submissions"`
	LateSubmissionPenalty float64               `json:"late_submission_penalty" validate:"gte=0,lte=100"`
	SubmissionType        models.SubmissionType `json:"submission_type" validate:"required,oneof=file url text"`
	AllowedFileTypes      []string              `json:"allowed_file_types"`
	MaxFileSize           int64                 `json:"max_file_size" validate:"gte=0"`
	AllowMultipleAttempts bool                  `json:"allow_multiple_attempts"`
	MaxAttempts           *int                  `json:"max_attempts" validate:"omitempty,gte=1"`
	AvailableFrom         *time.Time            `json:"available_from"`
	AvailableUntil        *time.Time            `json:"available_until"`
}

type AssignmentPatch struct {
	Title                 *string                `json:"title" validate:"omitempty,min=1,max=200"`
	Description           *string                `json:"description"`
	MaxPoints             *float64               `json:"max_points" validate:"omitempty,gt=0"`
	DueDate               *time.Time             `json:"due_date"`
	AllowLateSubmissions  *bool                  `json:"allow_late_submissions"`
	LateSubmissionPenalty *float64               `json:"late_submission_penalty" validate:"omitempty,gte=0,lte=100"`
	SubmissionType        *models.SubmissionType `json:"submission_type" validate:"omitempty,oneof=file url text"`
	AllowedFileTypes      *[]string              `json:"allowed_file_types"`
	MaxFileSize           *int64                 `json:"max_file_size" validate:"omitempty,gte=0"`
	AllowMultipleAttempts *bool                  `json:"allow_multiple_attempts"`
	MaxAttempts           *int                   `json:"max_attempts" validate:"omitempty,gte=1"`
	AvailableFrom         *time.Time             `json:"available_from"`
	AvailableUntil        *time.Time             `json:"available_until"`
	// Clear names nullable columns to reset to NULL.
	Clear                 []string               `json:"clear" validate:"dive,oneof=due_date max_attempts available_from available_until"`
}

func (p AssignmentPatch) changes() (map[string]interface{}, error) {
	m := map[string]interface{}{}
	set(m, "title", p.Title)
	set(m, "description", p.Description)
	set(m, "max_points", p.MaxPoints)
	set(m, "due_date", p.DueDate)
	set(m, "allow_late_submissions", p.AllowLateSubmissions)
	set(m, "late_submission_penalty", p.LateSubmissionPenalty)
	set(m, "submission_type", p.SubmissionType)
	if p.AllowedFileTypes != nil {
		m["allowed_file_types"] = jsonList(*p.AllowedFileTypes)
	}
	set(m, "max_file_size", p.MaxFileSize)
	set(m, "allow_multiple_attempts", p.AllowMultipleAttempts)
	set(m, "max_attempts", p.MaxAttempts)
	set(m, "available_from", p.AvailableFrom)
	set(m, "available_until", p.AvailableUntil)
	return m, setNull(m, p.Clear)
}

type QuestionInput struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options"`
	CorrectIndex  int      `json:"correct_index"`
	Points        *float64 `json:"points"`
	SequenceOrder int      `json:"sequence_order"`
}

// Draft is what a learner saves against an assignment.
type Draft struct {
	SubmissionType models.SubmissionType `json:"submission_type" validate:"required"`
	FileID         string                `json:"file_id"`
	URL            string                `json:"url" validate:"omitempty,url"`
	TextContent    string                `json:"text_content"`
}

func set[T any](m map[string]interface{}, column string, v *T) {
	if v != nil {
		m[column] = *v
	}
}

func setNull(m map[string]interface{}, columns []string) error {
	for _, column := range columns {
		if _, ok := m[column]; ok {
			return apperr.New(apperr.ValidationFailed, "%s cannot be set and cleared at once", column)
		}
		m[column] = nil
	}
	return nil
}

func jsonList(v []string) datatypes.JSON {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

// validateInput runs the struct's validate tags and folds the result into a
// single ValidationFailed error.
func validateInput(v interface{}) error {
	errs := utils.ValidateStruct(v)
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", f, errs[f]))
	}
	return apperr.New(apperr.ValidationFailed, "%s", strings.Join(parts, "; "))
}

func validateWindow(from, until *time.Time) error {
	if from != nil && until != nil && until.Before(*from) {
		return apperr.New(apperr.ValidationFailed, "available_until must not be before available_from")
	}
	return nil
}

func validateQuiz(q *models.Quiz) error {
	if strings.TrimSpace(q.Title) == "" {
		return apperr.New(apperr.ValidationFailed, "title is required")
	}
	if q.PassingScore != nil && (*q.PassingScore < 0 || *q.PassingScore > 100) {
		return apperr.New(apperr.ValidationFailed, "passing_score must be between 0 and 100")
	}
	if q.MaxAttempts != nil && *q.MaxAttempts < 1 {
		return apperr.New(apperr.ValidationFailed, "max_attempts must be at least 1")
	}
	if q.TimeLimitMinutes != nil && *q.TimeLimitMinutes < 1 {
		return apperr.New(apperr.ValidationFailed, "time_limit_minutes must be at least 1")
	}
	return validateWindow(q.AvailableFrom, q.AvailableUntil)
}

func validateAssignment(a *models.Assignment) error {
	if strings.TrimSpace(a.Title) == "" {
		return apperr.New(apperr.ValidationFailed, "title is required")
	}
	if a.MaxPoints <= 0 {
		return apperr.New(apperr.ValidationFailed, "max_points must be positive")
	}
	if a.LateSubmissionPenalty < 0 || a.LateSubmissionPenalty > 100 {
		return apperr.New(apperr.ValidationFailed, "late_submission_penalty must be between 0 and 100")
	}
	if !a.SubmissionType.Valid() {
		return apperr.New(apperr.ValidationFailed, "unknown submission type %q", a.SubmissionType)
	}
	if a.MaxFileSize < 0 {
		return apperr.New(apperr.ValidationFailed, "max_file_size must not be negative")
	}
	if a.MaxAttempts != nil && *a.MaxAttempts < 1 {
		return apperr.New(apperr.ValidationFailed, "max_attempts must be at least 1")
	}
	return validateWindow(a.AvailableFrom, a.AvailableUntil)
}

func validateQuestion(in QuestionInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if len(in.Options) < 2 {
		return apperr.New(apperr.ValidationFailed, "a question needs at least 2 options, got %d", len(in.Options))
	}
	if in.CorrectIndex < 0 || in.CorrectIndex >= len(in.Options) {
		return apperr.New(apperr.ValidationFailed, "correct_index %d is out of range for %d options", in.CorrectIndex, len(in.Options))
	}
	if in.Points != nil && *in.Points < 0 {
		return apperr.New(apperr.ValidationFailed, "points must not be negative")
	}
	return nil
}

func questionPoints(p *float64) float64 {
	if p == nil {
		return 1
	}
	return *p
}
