package services

import (
	"context"
	"fmt"
	"strings"

	"coursehub/backend/apperr"
	"coursehub/backend/lifecycle"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CodeGenerator produces course enrollment codes.
type CodeGenerator interface {
	NewCode() string
}

// UUIDCodes cuts codes out of random UUIDs.
type UUIDCodes struct {
	Length int
}

func (g UUIDCodes) NewCode() string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if g.Length > 0 && g.Length < len(code) {
		return code[:g.Length]
	}
	return code
}

type ContentService struct {
	base
	codes CodeGenerator
}

func NewContentService(db *gorm.DB, log *utils.Logger, codes CodeGenerator, opts ...Option) *ContentService {
	if codes == nil {
		codes = UUIDCodes{Length: 8}
	}
	return &ContentService{base: newBase(db, log, "ContentService", opts), codes: codes}
}

func (s *ContentService) CreateCourse(ctx context.Context, actor models.Actor, in CourseInput) (*models.Course, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	status, err := lifecycle.Initial(models.KindCourse, actor.Role)
	if err != nil {
		return nil, err
	}
	course := &models.Course{
		Title:            in.Title,
		ShortDesc:        in.ShortDesc,
		Description:      in.Description,
		Difficulty:       in.Difficulty,
		Topic:            in.Topic,
		Status:           status,
		CreatedBy:        actor.UserID,
		IsEnrollmentOpen: in.IsEnrollmentOpen,
		GradingConfig:    in.GradingConfig,
	}
	if in.RequireCode {
		course.EnrollmentCode = s.codes.NewCode()
	}
	if err := s.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, internal(err, "create course")
	}
	s.log.Info("Course created", "course_id", course.ID, "status", status, "user_id", actor.UserID)
	return course, nil
}

func (s *ContentService) CreateModule(ctx context.Context, actor models.Actor, in ModuleInput) (*models.Module, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	status, err := lifecycle.Initial(models.KindModule, actor.Role)
	if err != nil {
		return nil, err
	}
	mod := &models.Module{
		CourseID:      in.CourseID,
		Title:         in.Title,
		Description:   in.Description,
		SequenceOrder: in.SequenceOrder,
		Status:        status,
		CreatedBy:     actor.UserID,
	}
	err = s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := first[models.Course](tx, "course", in.CourseID); err != nil {
			return err
		}
		if err := tx.Create(mod).Error; err != nil {
			return internal(err, "create module")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Module created", "module_id", mod.ID, "course_id", mod.CourseID, "status", status)
	return mod, nil
}

func (s *ContentService) CreateLesson(ctx context.Context, actor models.Actor, in LessonInput) (*models.Lesson, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	status, err := lifecycle.Initial(models.KindLesson, actor.Role)
	if err != nil {
		return nil, err
	}
	lesson := &models.Lesson{
		ModuleID:      in.ModuleID,
		Title:         in.Title,
		Description:   in.Description,
		Content:       in.Content,
		SequenceOrder: in.SequenceOrder,
		Status:        status,
		CreatedBy:     actor.UserID,
	}
	err = s.tx(ctx, func(tx *gorm.DB) error {
		mod, err := first[models.Module](tx, "module", in.ModuleID)
		if err != nil {
			return err
		}
		lesson.CourseID = mod.CourseID
		if err := tx.Create(lesson).Error; err != nil {
			return internal(err, "create lesson")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Lesson created", "lesson_id", lesson.ID, "module_id", lesson.ModuleID, "status", status)
	return lesson, nil
}

func (s *ContentService) CreateQuiz(ctx context.Context, actor models.Actor, in QuizInput) (*models.Quiz, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	status, err := lifecycle.Initial(models.KindQuiz, actor.Role)
	if err != nil {
		return nil, err
	}
	quiz := &models.Quiz{
		CourseID:              in.CourseID,
		Title:                 in.Title,
		Description:           in.Description,
		Status:                status,
		CreatedBy:             actor.UserID,
		PassingScore:          in.PassingScore,
		AllowMultipleAttempts: in.AllowMultipleAttempts,
		MaxAttempts:           in.MaxAttempts,
		TimeLimitMinutes:      in.TimeLimitMinutes,
		AvailableFrom:         in.AvailableFrom,
		AvailableUntil:        in.AvailableUntil,
	}
	if err := validateQuiz(quiz); err != nil {
		return nil, err
	}
	err = s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := first[models.Course](tx, "course", in.CourseID); err != nil {
			return err
		}
		if err := tx.Create(quiz).Error; err != nil {
			return internal(err, "create quiz")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Quiz created", "quiz_id", quiz.ID, "course_id", quiz.CourseID, "status", status)
	return quiz, nil
}

func (s *ContentService) CreateAssignment(ctx context.Context, actor models.Actor, in AssignmentInput) (*models.Assignment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	status, err := lifecycle.Initial(models.KindAssignment, actor.Role)
	if err != nil {
		return nil, err
	}
	maxPoints := in.MaxPoints
	if maxPoints == 0 {
		maxPoints = 100
	}
	a := &models.Assignment{
		CourseID:              in.CourseID,
		Title:                 in.Title,
		Description:           in.Description,
		Status:                status,
		CreatedBy:             actor.UserID,
		MaxPoints:             maxPoints,
		DueDate:               in.DueDate,
		AllowLateSubmissions:  in.AllowLateSubmissions,
		LateSubmissionPenalty: in.LateSubmissionPenalty,
		SubmissionType:        in.SubmissionType,
		MaxFileSize:           in.MaxFileSize,
		AllowMultipleAttempts: in.AllowMultipleAttempts,
		MaxAttempts:           in.MaxAttempts,
		AvailableFrom:         in.AvailableFrom,
		AvailableUntil:        in.AvailableUntil,
	}
	if len(in.AllowedFileTypes) > 0 {
		a.AllowedFileTypes = jsonList(in.AllowedFileTypes)
	}
	if err := validateAssignment(a); err != nil {
		return nil, err
	}
	err = s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := first[models.Course](tx, "course", in.CourseID); err != nil {
			return err
		}
		if err := tx.Create(a).Error; err != nil {
			return internal(err, "create assignment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Assignment created", "assignment_id", a.ID, "course_id", a.CourseID, "status", status)
	return a, nil
}

func (s *ContentService) UpdateCourse(ctx context.Context, actor models.Actor, id uint, p CoursePatch) (*models.Course, error) {
	if err := validateInput(p); err != nil {
		return nil, err
	}
	var out *models.Course
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := s.patch(tx, actor, models.KindCourse, id, p.changes()); err != nil {
			return err
		}
		var err error
		out, err = first[models.Course](tx, "course", id)
		return err
	})
	return out, err
}

func (s *ContentService) UpdateModule(ctx context.Context, actor models.Actor, id uint, p ModulePatch) (*models.Module, error) {
	if err := validateInput(p); err != nil {
		return nil, err
	}
	var out *models.Module
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := s.patch(tx, actor, models.KindModule, id, p.changes()); err != nil {
			return err
		}
		var err error
		out, err = first[models.Module](tx, "module", id)
		return err
	})
	return out, err
}

func (s *ContentService) UpdateLesson(ctx context.Context, actor models.Actor, id uint, p LessonPatch) (*models.Lesson, error) {
	if err := validateInput(p); err != nil {
		return nil, err
	}
	var out *models.Lesson
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := s.patch(tx, actor, models.KindLesson, id, p.changes()); err != nil {
			return err
		}
		var err error
		out, err = first[models.Lesson](tx, "lesson", id)
		return err
	})
	return out, err
}

func (s *ContentService) UpdateQuiz(ctx context.Context, actor models.Actor, id uint, p QuizPatch) (*models.Quiz, error) {
	if err := validateInput(p); err != nil {
		return nil, err
	}
	changes, err := p.changes()
	if err != nil {
		return nil, err
	}
	var out *models.Quiz
	err = s.tx(ctx, func(tx *gorm.DB) error {
		if err := s.patch(tx, actor, models.KindQuiz, id, changes); err != nil {
			return err
		}
		var err error
		if out, err = first[models.Quiz](tx, "quiz", id); err != nil {
			return err
		}
		return validateQuiz(out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ContentService) UpdateAssignment(ctx context.Context, actor models.Actor, id uint, p AssignmentPatch) (*models.Assignment, error) {
	if err := validateInput(p); err != nil {
		return nil, err
	}
	changes, err := p.changes()
	if err != nil {
		return nil, err
	}
	var out *models.Assignment
	err = s.tx(ctx, func(tx *gorm.DB) error {
		if err := s.patch(tx, actor, models.KindAssignment, id, changes); err != nil {
			return err
		}
		if p.MaxPoints != nil {
			if err := checkGradesFit(tx, id, *p.MaxPoints); err != nil {
				return err
			}
		}
		var err error
		if out, err = first[models.Assignment](tx, "assignment", id); err != nil {
			return err
		}
		return validateAssignment(out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkGradesFit keeps stored grades within [0, maxPoints].
func checkGradesFit(tx *gorm.DB, assignmentID uint, maxPoints float64) error {
	var top struct{ MaxGrade float64 }
	err := tx.Model(&models.AssignmentSubmission{}).
		Select("COALESCE(MAX(grade), 0) AS max_grade").
		Where("assignment_id = ? AND status = ?", assignmentID, models.SubmissionGraded).
		Scan(&top).Error
	if err != nil {
		return internal(err, "load highest grade")
	}
	if top.MaxGrade > maxPoints {
		return apperr.New(apperr.ValidationFailed, "max_points %.2f is below an existing grade of %.2f", maxPoints, top.MaxGrade)
	}
	return nil
}

// patch applies the edit rule for the item and then writes the changed columns.
func (s *ContentService) patch(tx *gorm.DB, actor models.Actor, kind models.ContentKind, id uint, changes map[string]interface{}) error {
	if err := s.edit(tx, actor, kind, id); err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	if err := tx.Model(kind.Model()).Where("id = ?", id).Updates(changes).Error; err != nil {
		return internal(err, fmt.Sprintf("update %s", kind))
	}
	return nil
}

// edit locks the item and moves it along the edit transition. Faculty edits
// of approved content send it back to draft; published content rejects them.
func (s *ContentService) edit(tx *gorm.DB, actor models.Actor, kind models.ContentKind, id uint) error {
	if err := requireAuthor(actor); err != nil {
		return err
	}
	from, err := currentStatus(tx, kind, id)
	if err != nil {
		return err
	}
	to, err := lifecycle.Next(kind, from, actor.Role, lifecycle.ActionEdit)
	if err != nil {
		return err
	}
	if to == from {
		return nil
	}
	if err := setStatus(tx, kind, id, to); err != nil {
		return err
	}
	s.log.Info("Edit reverted content status", "kind", kind, "id", id, "from", from, "to", to)
	_, err = recordEvent(tx, kind, id, lifecycle.ActionEdit, from, to, actor, "")
	return err
}

// ChangeStatus performs a review action on a content item and logs it.
func (s *ContentService) ChangeStatus(ctx context.Context, actor models.Actor, kind models.ContentKind, id uint, action lifecycle.Action, reason string) (*models.ReviewEvent, error) {
	if kind.Model() == nil {
		return nil, apperr.New(apperr.ValidationFailed, "unknown content kind %q", kind)
	}
	if action == lifecycle.ActionEdit {
		return nil, apperr.New(apperr.ValidationFailed, "edit is applied through an update")
	}
	var event *models.ReviewEvent
	err := s.tx(ctx, func(tx *gorm.DB) error {
		from, err := currentStatus(tx, kind, id)
		if err != nil {
			return err
		}
		to, err := lifecycle.Next(kind, from, actor.Role, action)
		if err != nil {
			return err
		}
		if action == lifecycle.ActionArchive {
			active, err := countWhere(tx, &models.Enrollment{}, "course_id = ? AND status = ?", id, models.EnrollmentActive)
			if err != nil {
				return err
			}
			if active > 0 {
				return apperr.New(apperr.DependencyExists, "course %d has %d active enrollments", id, active)
			}
		}
		if err := setStatus(tx, kind, id, to); err != nil {
			return err
		}
		if action != lifecycle.ActionReject {
			reason = ""
		}
		event, err = recordEvent(tx, kind, id, action, from, to, actor, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Content status changed",
		"kind", kind, "id", id, "action", action,
		"from", event.FromStatus, "to", event.ToStatus, "user_id", actor.UserID)
	return event, nil
}

func (s *ContentService) ArchiveCourse(ctx context.Context, actor models.Actor, courseID uint) (*models.ReviewEvent, error) {
	return s.ChangeStatus(ctx, actor, models.KindCourse, courseID, lifecycle.ActionArchive, "")
}

// ReviewHistory lists every status change of an item, oldest first.
func (s *ContentService) ReviewHistory(ctx context.Context, kind models.ContentKind, id uint) ([]models.ReviewEvent, error) {
	var events []models.ReviewEvent
	err := s.db.WithContext(ctx).
		Where("content_kind = ? AND content_id = ?", kind, id).
		Order("id").
		Find(&events).Error
	if err != nil {
		return nil, internal(err, "list review events")
	}
	return events, nil
}

// Delete removes a content item once nothing depends on it.
func (s *ContentService) Delete(ctx context.Context, actor models.Actor, kind models.ContentKind, id uint) error {
	if err := requireAuthor(actor); err != nil {
		return err
	}
	if kind.Model() == nil {
		return apperr.New(apperr.ValidationFailed, "unknown content kind %q", kind)
	}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if _, err := currentStatus(tx, kind, id); err != nil {
			return err
		}
		for _, g := range deleteGuards[kind] {
			n, err := countWhere(tx, g.model, g.where, g.args(id)...)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.New(apperr.DependencyExists, "cannot delete %s %d: %d %s exist", kind, id, n, g.name)
			}
		}
		switch kind {
		case models.KindQuiz:
			if err := tx.Where("quiz_id = ?", id).Delete(&models.QuizQuestion{}).Error; err != nil {
				return internal(err, "delete quiz questions")
			}
		case models.KindLesson:
			if err := tx.Where("lesson_id = ?", id).Delete(&models.LessonProgress{}).Error; err != nil {
				return internal(err, "delete lesson progress")
			}
		}
		if err := tx.Delete(kind.Model(), id).Error; err != nil {
			return internal(err, fmt.Sprintf("delete %s", kind))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("Content deleted", "kind", kind, "id", id, "user_id", actor.UserID)
	return nil
}

type deleteGuard struct {
	name  string
	model interface{}
	where string
	extra []interface{}
}

func (g deleteGuard) args(id uint) []interface{} {
	return append([]interface{}{id}, g.extra...)
}

var deleteGuards = map[models.ContentKind][]deleteGuard{
	models.KindModule: {
		{name: "lessons", model: &models.Lesson{}, where: "module_id = ?"},
	},
	models.KindCourse: {
		{name: "modules", model: &models.Module{}, where: "course_id = ?"},
		{name: "quizzes", model: &models.Quiz{}, where: "course_id = ?"},
		{name: "assignments", model: &models.Assignment{}, where: "course_id = ?"},
		{name: "announcements", model: &models.Announcement{}, where: "course_id = ?"},
		{name: "active enrollments", model: &models.Enrollment{}, where: "course_id = ? AND status = ?", extra: []interface{}{models.EnrollmentActive}},
	},
	models.KindQuiz: {
		{name: "attempts", model: &models.QuizAttempt{}, where: "quiz_id = ?"},
	},
	models.KindAssignment: {
		{name: "submissions", model: &models.AssignmentSubmission{}, where: "assignment_id = ?"},
	},
}

func (s *ContentService) AddQuestion(ctx context.Context, actor models.Actor, quizID uint, in QuestionInput) (*models.QuizQuestion, error) {
	if err := validateQuestion(in); err != nil {
		return nil, err
	}
	q := &models.QuizQuestion{
		QuizID:        quizID,
		Question:      in.Question,
		Options:       jsonList(in.Options),
		CorrectIndex:  in.CorrectIndex,
		Points:        questionPoints(in.Points),
		SequenceOrder: in.SequenceOrder,
	}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := s.edit(tx, actor, models.KindQuiz, quizID); err != nil {
			return err
		}
		if err := tx.Create(q).Error; err != nil {
			return internal(err, "create question")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *ContentService) UpdateQuestion(ctx context.Context, actor models.Actor, questionID uint, in QuestionInput) (*models.QuizQuestion, error) {
	if err := validateQuestion(in); err != nil {
		return nil, err
	}
	var q *models.QuizQuestion
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if q, err = first[models.QuizQuestion](tx, "question", questionID); err != nil {
			return err
		}
		if err := s.edit(tx, actor, models.KindQuiz, q.QuizID); err != nil {
			return err
		}
		q.Question = in.Question
		q.Options = jsonList(in.Options)
		q.CorrectIndex = in.CorrectIndex
		q.Points = questionPoints(in.Points)
		q.SequenceOrder = in.SequenceOrder
		if err := tx.Save(q).Error; err != nil {
			return internal(err, "update question")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *ContentService) DeleteQuestion(ctx context.Context, actor models.Actor, questionID uint) error {
	return s.tx(ctx, func(tx *gorm.DB) error {
		q, err := first[models.QuizQuestion](tx, "question", questionID)
		if err != nil {
			return err
		}
		if err := s.edit(tx, actor, models.KindQuiz, q.QuizID); err != nil {
			return err
		}
		if err := tx.Delete(q).Error; err != nil {
			return internal(err, "delete question")
		}
		return nil
	})
}

func (s *ContentService) SetEnrollmentOpen(ctx context.Context, actor models.Actor, courseID uint, open bool) (*models.Course, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	var course *models.Course
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if course, err = first[models.Course](forUpdate(tx), "course", courseID); err != nil {
			return err
		}
		if course.Status == models.StatusArchived {
			return apperr.New(apperr.InvalidTransition, "course %d is archived", courseID)
		}
		if err := tx.Model(course).Update("is_enrollment_open", open).Error; err != nil {
			return internal(err, "update course enrollment")
		}
		course.IsEnrollmentOpen = open
		return nil
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// RegenerateEnrollmentCode replaces the course code. An empty code is never
// handed out since it would disable the check.
func (s *ContentService) RegenerateEnrollmentCode(ctx context.Context, actor models.Actor, courseID uint) (string, error) {
	if err := requireAuthor(actor); err != nil {
		return "", err
	}
	code := s.codes.NewCode()
	if code == "" {
		return "", apperr.New(apperr.Internal, "code generator returned an empty code")
	}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		course, err := first[models.Course](forUpdate(tx), "course", courseID)
		if err != nil {
			return err
		}
		if err := tx.Model(course).Update("enrollment_code", code).Error; err != nil {
			return internal(err, "update enrollment code")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.log.Info("Enrollment code regenerated", "course_id", courseID, "user_id", actor.UserID)
	return code, nil
}

// ClearEnrollmentCode lets anyone enroll without a code again.
func (s *ContentService) ClearEnrollmentCode(ctx context.Context, actor models.Actor, courseID uint) error {
	if err := requireAuthor(actor); err != nil {
		return err
	}
	return s.tx(ctx, func(tx *gorm.DB) error {
		course, err := first[models.Course](tx, "course", courseID)
		if err != nil {
			return err
		}
		if err := tx.Model(course).Update("enrollment_code", "").Error; err != nil {
			return internal(err, "clear enrollment code")
		}
		return nil
	})
}

// CourseFilter narrows ListCourses. Zero values match everything.
type CourseFilter struct {
	Search     string
	Topic      string
	Difficulty string
	Sort       string // "newest", "popular" or id order
}

// ListCourses shows learners published courses only. Authors see everything
// that is not archived.
func (s *ContentService) ListCourses(ctx context.Context, actor models.Actor, f CourseFilter) ([]models.Course, error) {
	q := s.db.WithContext(ctx)
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFaculty:
		q = q.Where("status <> ?", models.StatusArchived)
	default:
		q = q.Where("status = ?", models.StatusPublished)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(short_desc) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if f.Topic != "" {
		q = q.Where("topic = ?", f.Topic)
	}
	if f.Difficulty != "" {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	switch f.Sort {
	case "newest":
		q = q.Order("created_at DESC").Order("id DESC")
	case "popular":
		q = q.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id AND enrollments.status = ? AND enrollments.deleted_at IS NULL) DESC",
			Vars:               []interface{}{models.EnrollmentActive},
			WithoutParentheses: true,
		}}).Order("id")
	default:
		q = q.Order("id")
	}

	var courses []models.Course
	if err := q.Find(&courses).Error; err != nil {
		return nil, internal(err, "list courses")
	}
	for i := range courses {
		redactCourse(actor, &courses[i])
	}
	return courses, nil
}

// GetCourse loads a course with its modules and lessons. Learners only see
// published items.
func (s *ContentService) GetCourse(ctx context.Context, actor models.Actor, id uint) (*models.Course, error) {
	publishedOnly := actor.Role == models.RoleLearner
	scope := func(db *gorm.DB) *gorm.DB {
		if publishedOnly {
			db = db.Where("status = ?", models.StatusPublished)
		}
		return db.Order("sequence_order").Order("id")
	}
	q := s.db.WithContext(ctx).Preload("Modules", scope).Preload("Modules.Lessons", scope)
	if publishedOnly {
		q = q.Where("status = ?", models.StatusPublished)
	}
	course, err := first[models.Course](q, "course", id)
	if err != nil {
		return nil, err
	}
	redactCourse(actor, course)
	return course, nil
}

// redactCourse hides the enrollment code from learners.
func redactCourse(actor models.Actor, c *models.Course) {
	c.RequiresCode = c.EnrollmentCode != ""
	if actor.Role == models.RoleLearner {
		c.EnrollmentCode = ""
	}
}

func (s *ContentService) GetModule(ctx context.Context, id uint) (*models.Module, error) {
	return first[models.Module](s.db.WithContext(ctx), "module", id)
}

func (s *ContentService) GetLesson(ctx context.Context, id uint) (*models.Lesson, error) {
	return first[models.Lesson](s.db.WithContext(ctx), "lesson", id)
}

func (s *ContentService) GetQuiz(ctx context.Context, actor models.Actor, id uint) (*models.Quiz, error) {
	q := s.db.WithContext(ctx).Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order").Order("id")
	})
	if actor.Role == models.RoleLearner {
		q = q.Where("status = ?", models.StatusPublished)
	}
	return first[models.Quiz](q, "quiz", id)
}

func (s *ContentService) GetAssignment(ctx context.Context, actor models.Actor, id uint) (*models.Assignment, error) {
	q := s.db.WithContext(ctx)
	if actor.Role == models.RoleLearner {
		q = q.Where("status = ?", models.StatusPublished)
	}
	return first[models.Assignment](q, "assignment", id)
}

// currentStatus reads and locks the item's status row.
func currentStatus(tx *gorm.DB, kind models.ContentKind, id uint) (models.Status, error) {
	var row struct {
		Status models.Status
	}
	res := forUpdate(tx).Model(kind.Model()).Select("status").Where("id = ?", id).Limit(1).Find(&row)
	if res.Error != nil {
		return "", internal(res.Error, fmt.Sprintf("load %s", kind))
	}
	if res.RowsAffected == 0 {
		return "", apperr.New(apperr.NotFound, "%s %d not found", kind, id)
	}
	return row.Status, nil
}

func setStatus(tx *gorm.DB, kind models.ContentKind, id uint, to models.Status) error {
	if err := tx.Model(kind.Model()).Where("id = ?", id).Update("status", to).Error; err != nil {
		return internal(err, fmt.Sprintf("update %s status", kind))
	}
	return nil
}

func recordEvent(tx *gorm.DB, kind models.ContentKind, id uint, action lifecycle.Action, from, to models.Status, actor models.Actor, reason string) (*models.ReviewEvent, error) {
	event := &models.ReviewEvent{
		ContentKind: kind,
		ContentID:   id,
		Action:      string(action),
		FromStatus:  from,
		ToStatus:    to,
		ActorID:     actor.UserID,
		ActorRole:   actor.Role,
		Reason:      reason,
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, internal(err, "record review event")
	}
	return event, nil
}

func countWhere(tx *gorm.DB, model interface{}, where string, args ...interface{}) (int64, error) {
	var n int64
	if err := tx.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		return 0, internal(err, "count dependents")
	}
	return n, nil
}
