package services

import (
	"context"
	"errors"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"gorm.io/gorm"
)

type EnrollmentService struct {
	base
}

func NewEnrollmentService(db *gorm.DB, log *utils.Logger, opts ...Option) *EnrollmentService {
	return &EnrollmentService{base: newBase(db, log, "EnrollmentService", opts)}
}

// IsEnrolled is true iff an active enrollment exists.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.EnrollmentActive).
		Count(&count).Error
	if err != nil {
		return false, internal(err, "check enrollment")
	}
	return count > 0, nil
}

// RequireActive fails with Forbidden unless the learner is actively enrolled.
func (s *EnrollmentService) RequireActive(ctx context.Context, userID, courseID uint) error {
	_, err := requireActiveEnrollment(s.db.WithContext(ctx), userID, courseID, false)
	return err
}

// requireActiveEnrollment optionally locks the enrollment row so that
// per-learner check-then-write sequences on the course serialize.
func requireActiveEnrollment(tx *gorm.DB, userID, courseID uint, lock bool) (*models.Enrollment, error) {
	q := tx
	if lock {
		q = forUpdate(tx)
	}
	var e models.Enrollment
	err := q.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.Forbidden, "user %d is not enrolled in course %d", userID, courseID)
	}
	if err != nil {
		return nil, internal(err, "load enrollment")
	}
	if e.Status != models.EnrollmentActive {
		return nil, apperr.New(apperr.Forbidden, "enrollment of user %d in course %d is %s", userID, courseID, e.Status)
	}
	return &e, nil
}

// Enroll creates or reactivates the learner's enrollment. Enrolling while
// already active is a no-op.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID uint, code string) (*models.Enrollment, error) {
	var out models.Enrollment
	err := s.tx(ctx, func(tx *gorm.DB) error {
		course, err := first[models.Course](tx, "course", courseID)
		if err != nil {
			return err
		}
		if course.Status != models.StatusPublished {
			return apperr.New(apperr.NotFound, "course %d is not published", courseID)
		}

		var existing models.Enrollment
		err = forUpdate(tx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
		switch {
		case err == nil && existing.Status == models.EnrollmentActive:
			out = existing
			return nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return internal(err, "load enrollment")
		}

		if !course.IsEnrollmentOpen {
			return apperr.New(apperr.Forbidden, "enrollment for course %d is closed", courseID)
		}
		if course.EnrollmentCode != "" && code != course.EnrollmentCode {
			return apperr.New(apperr.ValidationFailed, "invalid enrollment code")
		}

		if existing.ID != 0 {
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"status":       models.EnrollmentActive,
				"completed_at": nil,
			}).Error; err != nil {
				return internal(err, "reactivate enrollment")
			}
			existing.Status = models.EnrollmentActive
			existing.CompletedAt = nil
			out = existing
			s.log.Info("Enrollment reactivated", "user_id", userID, "course_id", courseID)
			return nil
		}

		out = models.Enrollment{
			UserID:     userID,
			CourseID:   courseID,
			Status:     models.EnrollmentActive,
			EnrolledAt: s.now(),
		}
		if err := tx.Create(&out).Error; err != nil {
			return internal(err, "create enrollment")
		}
		s.log.Info("Enrollment created", "user_id", userID, "course_id", courseID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Unenroll soft-transitions the learner's own enrollment to dropped.
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, courseID uint) error {
	return s.setStatus(ctx, userID, courseID, models.EnrollmentDropped)
}

// Deactivate is the admin path to drop a learner.
func (s *EnrollmentService) Deactivate(ctx context.Context, actor models.Actor, userID, courseID uint) error {
	if !actor.IsAdmin() {
		return apperr.New(apperr.Forbidden, "only admins can deactivate enrollments")
	}
	return s.tx(ctx, func(tx *gorm.DB) error {
		var e models.Enrollment
		err := forUpdate(tx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "user %d has no enrollment in course %d", userID, courseID)
		}
		if err != nil {
			return internal(err, "load enrollment")
		}
		// Already dropped: nothing to do.
		if e.Status == models.EnrollmentDropped {
			return nil
		}
		if err := tx.Model(&e).Update("status", models.EnrollmentDropped).Error; err != nil {
			return internal(err, "update enrollment")
		}
		s.log.Info("Enrollment deactivated", "user_id", userID, "course_id", courseID, "by", actor.UserID)
		return nil
	})
}

func (s *EnrollmentService) MarkCompleted(ctx context.Context, userID, courseID uint) error {
	return s.setStatus(ctx, userID, courseID, models.EnrollmentCompleted)
}

func (s *EnrollmentService) setStatus(ctx context.Context, userID, courseID uint, status models.EnrollmentStatus) error {
	return s.tx(ctx, func(tx *gorm.DB) error {
		e, err := requireActiveEnrollment(tx, userID, courseID, true)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{"status": status}
		if status == models.EnrollmentCompleted {
			updates["completed_at"] = s.now()
		}
		if err := tx.Model(e).Updates(updates).Error; err != nil {
			return internal(err, "update enrollment")
		}
		s.log.Info("Enrollment status changed", "user_id", userID, "course_id", courseID, "status", status)
		return nil
	})
}

func (s *EnrollmentService) ListForUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var out []models.Enrollment
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("enrolled_at desc").Find(&out).Error; err != nil {
		return nil, internal(err, "list enrollments")
	}
	return out, nil
}

func (s *EnrollmentService) ListActiveForUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var out []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentActive).
		Order("course_id").
		Find(&out).Error
	if err != nil {
		return nil, internal(err, "list enrollments")
	}
	return out, nil
}
