package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/storage"
	"coursehub/backend/utils"

	"gorm.io/gorm"
)

type AssignmentService struct {
	base
	store storage.ObjectStore
}

func NewAssignmentService(db *gorm.DB, store storage.ObjectStore, log *utils.Logger, opts ...Option) *AssignmentService {
	return &AssignmentService{base: newBase(db, log, "AssignmentService", opts), store: store}
}

// GradeOutcome is a graded submission plus the grade the late penalty would
// give. The penalty is never applied automatically.
type GradeOutcome struct {
	Submission     *models.AssignmentSubmission `json:"submission"`
	SuggestedGrade float64                      `json:"suggested_grade"`
}

func publishedAssignment(tx *gorm.DB, id uint) (*models.Assignment, error) {
	a, err := first[models.Assignment](tx, "assignment", id)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusPublished {
		return nil, apperr.New(apperr.NotFound, "assignment %d is not published", id)
	}
	return a, nil
}

// SaveDraft creates the learner's open draft or patches it in place.
func (s *AssignmentService) SaveDraft(ctx context.Context, userID, assignmentID uint, d Draft) (*models.AssignmentSubmission, error) {
	if err := validateInput(d); err != nil {
		return nil, err
	}
	var (
		draft   models.AssignmentSubmission
		oldFile string
	)
	file := s.lookupFile(ctx, d)
	err := s.tx(ctx, func(tx *gorm.DB) error {
		a, err := publishedAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		if _, err := requireActiveEnrollment(tx, userID, a.CourseID, true); err != nil {
			return err
		}
		if err := checkWindow(s.now(), a.AvailableFrom, a.AvailableUntil, "assignment"); err != nil {
			return err
		}
		if err := s.checkPayload(a, &d, file); err != nil {
			return err
		}

		err = forUpdate(tx).
			Where("user_id = ? AND assignment_id = ? AND status = ?", userID, assignmentID, models.SubmissionDraft).
			First(&draft).Error
		switch {
		case err == nil:
			oldFile = draft.FileID
			updates := map[string]interface{}{
				"submission_type": d.SubmissionType,
				"file_id":         d.FileID,
				"url":             d.URL,
				"text_content":    d.TextContent,
			}
			if err := tx.Model(&draft).Updates(updates).Error; err != nil {
				return internal(err, "update draft")
			}
			draft.SubmissionType = d.SubmissionType
			draft.FileID = d.FileID
			draft.URL = d.URL
			draft.TextContent = d.TextContent
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return internal(err, "load draft")
		}

		used, err := countCountedSubmissions(tx, userID, assignmentID)
		if err != nil {
			return err
		}
		draft = models.AssignmentSubmission{
			UserID:         userID,
			AssignmentID:   assignmentID,
			CourseID:       a.CourseID,
			AttemptNumber:  int(used) + 1,
			Status:         models.SubmissionDraft,
			SubmissionType: d.SubmissionType,
			FileID:         d.FileID,
			URL:            d.URL,
			TextContent:    d.TextContent,
		}
		if err := tx.Create(&draft).Error; err != nil {
			return internal(err, "create draft")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldFile != "" && oldFile != draft.FileID {
		if err := s.store.Delete(ctx, oldFile); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Warn("Failed to delete replaced draft file", "file_id", oldFile, "submission_id", draft.ID, "error", err)
		}
	}
	return &draft, nil
}

// fileLookup is the stored object a file draft points at. It is read before
// the transaction opens.
type fileLookup struct {
	md  storage.Metadata
	err error
}

func (s *AssignmentService) lookupFile(ctx context.Context, d Draft) fileLookup {
	if d.SubmissionType != models.SubmissionFile || d.FileID == "" {
		return fileLookup{}
	}
	md, err := s.store.GetMetadata(ctx, d.FileID)
	return fileLookup{md: md, err: err}
}

// checkPayload validates the draft against the assignment and drops the
// fields that do not belong to its submission type.
func (s *AssignmentService) checkPayload(a *models.Assignment, d *Draft, file fileLookup) error {
	if d.SubmissionType != a.SubmissionType {
		return apperr.New(apperr.ValidationFailed, "assignment %d expects a %s submission, got %s", a.ID, a.SubmissionType, d.SubmissionType)
	}
	switch d.SubmissionType {
	case models.SubmissionFile:
		d.URL, d.TextContent = "", ""
		if d.FileID == "" {
			return apperr.New(apperr.ValidationFailed, "file_id is required")
		}
		if errors.Is(file.err, storage.ErrObjectNotFound) {
			return apperr.New(apperr.NotFound, "file %s not found", d.FileID)
		}
		if file.err != nil {
			return apperr.Wrap(apperr.Internal, file.err, "could not read file %s", d.FileID)
		}
		md := file.md
		if limit := a.FileSizeLimit(s.maxFileSize); md.Size > limit {
			return apperr.New(apperr.ValidationFailed, "file is %d bytes, limit is %d", md.Size, limit)
		}
		allowed, err := allowedTypes(a)
		if err != nil {
			return err
		}
		if len(allowed) > 0 && !contains(allowed, md.ContentType) {
			return apperr.New(apperr.ValidationFailed, "file type %q is not allowed", md.ContentType)
		}
	case models.SubmissionURL:
		d.FileID, d.TextContent = "", ""
		if strings.TrimSpace(d.URL) == "" {
			return apperr.New(apperr.ValidationFailed, "url is required")
		}
	case models.SubmissionText:
		d.FileID, d.URL = "", ""
		if strings.TrimSpace(d.TextContent) == "" {
			return apperr.New(apperr.ValidationFailed, "text_content is required")
		}
	default:
		return apperr.New(apperr.ValidationFailed, "unknown submission type %q", d.SubmissionType)
	}
	return nil
}

func allowedTypes(a *models.Assignment) ([]string, error) {
	if len(a.AllowedFileTypes) == 0 {
		return nil, nil
	}
	var types []string
	if err := json.Unmarshal(a.AllowedFileTypes, &types); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "assignment %d has malformed allowed_file_types", a.ID)
	}
	return types, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func countCountedSubmissions(tx *gorm.DB, userID, assignmentID uint) (int64, error) {
	return countWhere(tx, &models.AssignmentSubmission{},
		"user_id = ? AND assignment_id = ? AND status IN ?",
		userID, assignmentID, []models.SubmissionStatus{models.SubmissionSubmitted, models.SubmissionGraded})
}

// Submit promotes the learner's draft. Late submissions are rejected unless
// the assignment allows them, and the row then stays a draft.
func (s *AssignmentService) Submit(ctx context.Context, userID, submissionID uint) (*models.AssignmentSubmission, error) {
	var sub *models.AssignmentSubmission
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if sub, err = first[models.AssignmentSubmission](forUpdate(tx), "submission", submissionID); err != nil {
			return err
		}
		if sub.UserID != userID {
			return apperr.New(apperr.Forbidden, "submission %d belongs to another user", submissionID)
		}
		if sub.Status != models.SubmissionDraft {
			return apperr.New(apperr.Conflict, "submission %d is already %s", submissionID, sub.Status)
		}
		a, err := publishedAssignment(tx, sub.AssignmentID)
		if err != nil {
			return err
		}
		if _, err := requireActiveEnrollment(tx, userID, a.CourseID, true); err != nil {
			return err
		}
		used, err := countCountedSubmissions(tx, userID, a.ID)
		if err != nil {
			return err
		}
		if err := checkAttemptLimit(a.AllowMultipleAttempts, a.MaxAttempts, used, "assignment"); err != nil {
			return err
		}

		now := s.now()
		late := a.DueDate != nil && now.After(*a.DueDate)
		if late && !a.AllowLateSubmissions {
			return apperr.New(apperr.ValidationFailed, "assignment %d was due %s; late submissions are not allowed", a.ID, a.DueDate.UTC().Format("2006-01-02 15:04:05"))
		}

		result := tx.Model(&models.AssignmentSubmission{}).
			Where("id = ? AND status = ?", submissionID, models.SubmissionDraft).
			Updates(map[string]interface{}{
				"status":         models.SubmissionSubmitted,
				"submitted_at":   now,
				"is_late":        late,
				"attempt_number": int(used) + 1,
			})
		if result.Error != nil {
			return internal(result.Error, "submit")
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.Conflict, "submission %d is already submitted", submissionID)
		}
		sub.Status = models.SubmissionSubmitted
		sub.SubmittedAt = &now
		sub.IsLate = late
		sub.AttemptNumber = int(used) + 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Assignment submitted", "submission_id", submissionID, "user_id", userID, "is_late", sub.IsLate)
	return sub, nil
}

// Grade records the first grade, or a regrade, of a submitted row.
func (s *AssignmentService) Grade(ctx context.Context, actor models.Actor, submissionID uint, grade float64, feedback string) (*GradeOutcome, error) {
	return s.grade(ctx, actor, submissionID, grade, feedback, false)
}

// UpdateGrade corrects an existing grade.
func (s *AssignmentService) UpdateGrade(ctx context.Context, actor models.Actor, submissionID uint, grade float64, feedback string) (*GradeOutcome, error) {
	return s.grade(ctx, actor, submissionID, grade, feedback, true)
}

func (s *AssignmentService) grade(ctx context.Context, actor models.Actor, submissionID uint, grade float64, feedback string, regrade bool) (*GradeOutcome, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	var (
		sub *models.AssignmentSubmission
		a   *models.Assignment
	)
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		if sub, err = first[models.AssignmentSubmission](forUpdate(tx), "submission", submissionID); err != nil {
			return err
		}
		if a, err = first[models.Assignment](tx, "assignment", sub.AssignmentID); err != nil {
			return err
		}
		if err := s.requireGrader(tx, actor, a); err != nil {
			return err
		}
		switch {
		case regrade && sub.Status != models.SubmissionGraded:
			return apperr.New(apperr.InvalidTransition, "submission %d has not been graded yet", submissionID)
		case sub.Status != models.SubmissionSubmitted && sub.Status != models.SubmissionGraded:
			return apperr.New(apperr.InvalidTransition, "submission %d is still a draft", submissionID)
		}
		if grade < 0 || grade > a.MaxPoints {
			return apperr.New(apperr.ValidationFailed, "grade must be between 0 and %g", a.MaxPoints)
		}

		now := s.now()
		graderID := actor.UserID
		if err := tx.Model(sub).Updates(map[string]interface{}{
			"status":           models.SubmissionGraded,
			"grade":            grade,
			"teacher_feedback": feedback,
			"graded_at":        now,
			"graded_by":        graderID,
		}).Error; err != nil {
			return internal(err, "grade submission")
		}
		sub.Status = models.SubmissionGraded
		sub.Grade = &grade
		sub.TeacherFeedback = feedback
		sub.GradedAt = &now
		sub.GradedBy = &graderID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Submission graded", "submission_id", submissionID, "grade", grade, "grader_id", actor.UserID, "regrade", regrade)
	return &GradeOutcome{Submission: sub, SuggestedGrade: SuggestedGrade(grade, sub.IsLate, a.LateSubmissionPenalty)}, nil
}

// SuggestedGrade applies a percentage late penalty to a grade.
func SuggestedGrade(grade float64, late bool, penaltyPercent float64) float64 {
	if !late || penaltyPercent <= 0 {
		return grade
	}
	if penaltyPercent >= 100 {
		return 0
	}
	return grade * (1 - penaltyPercent/100)
}

// requireGrader allows admins and the faculty who authored the assignment or
// its course.
func (s *AssignmentService) requireGrader(tx *gorm.DB, actor models.Actor, a *models.Assignment) error {
	if actor.IsAdmin() || a.CreatedBy == actor.UserID {
		return nil
	}
	course, err := first[models.Course](tx, "course", a.CourseID)
	if err != nil {
		return err
	}
	if course.CreatedBy == actor.UserID {
		return nil
	}
	return apperr.New(apperr.Forbidden, "user %d does not teach assignment %d", actor.UserID, a.ID)
}

// ListSubmissions returns every non-draft submission for an assignment.
func (s *AssignmentService) ListSubmissions(ctx context.Context, actor models.Actor, assignmentID uint) ([]models.AssignmentSubmission, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	a, err := first[models.Assignment](db, "assignment", assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireGrader(db, actor, a); err != nil {
		return nil, err
	}
	var subs []models.AssignmentSubmission
	err = db.Where("assignment_id = ? AND status <> ?", assignmentID, models.SubmissionDraft).
		Order("submitted_at").Order("id").
		Find(&subs).Error
	if err != nil {
		return nil, internal(err, "list submissions")
	}
	return subs, nil
}

func (s *AssignmentService) MySubmissions(ctx context.Context, userID, assignmentID uint) ([]models.AssignmentSubmission, error) {
	var subs []models.AssignmentSubmission
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND assignment_id = ?", userID, assignmentID).
		Order("id").
		Find(&subs).Error
	if err != nil {
		return nil, internal(err, "list submissions")
	}
	return subs, nil
}
