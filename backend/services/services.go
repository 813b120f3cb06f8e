// Package services implements content approval, enrollment, quiz attempts,
// assignment submissions and progress aggregation on top of gorm.
//
// Every write runs as one transaction: re-read the rows involved, validate,
// apply a single patch or insert. Errors are always *apperr.Error.
package services

import (
	"context"
	"errors"
	"time"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Option func(*base)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithMaxFileSize sets the upload limit for assignments that have none.
func WithMaxFileSize(n int64) Option {
	return func(b *base) { b.maxFileSize = n }
}

type base struct {
	db          *gorm.DB
	log         *utils.Logger
	now         func() time.Time
	maxFileSize int64
}

func newBase(db *gorm.DB, log *utils.Logger, name string, opts []Option) base {
	b := base{db: db, log: log.With("service", name), now: time.Now}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b *base) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := b.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(apperr.Internal, err, "transaction failed")
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func first[T any](tx *gorm.DB, what string, id uint) (*T, error) {
	var v T
	err := tx.First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "%s %d not found", what, id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not load %s %d", what, id)
	}
	return &v, nil
}

func internal(err error, what string) error {
	return apperr.Wrap(apperr.Internal, err, "could not %s", what)
}

func checkWindow(now time.Time, from, until *time.Time, what string) error {
	if from != nil && now.Before(*from) {
		return apperr.New(apperr.WindowClosed, "%s opens at %s", what, from.UTC().Format(time.RFC3339))
	}
	if until != nil && now.After(*until) {
		return apperr.New(apperr.WindowClosed, "%s closed at %s", what, until.UTC().Format(time.RFC3339))
	}
	return nil
}

// checkAttemptLimit applies the shared quiz/assignment rule: a single counted
// attempt unless multiple are allowed, then at most max when max is set.
func checkAttemptLimit(allowMultiple bool, max *int, used int64, what string) error {
	if !allowMultiple {
		if used >= 1 {
			return apperr.New(apperr.QuotaExceeded, "%s allows a single attempt", what)
		}
		return nil
	}
	if max != nil && used >= int64(*max) {
		return apperr.New(apperr.QuotaExceeded, "%s attempt limit of %d reached", what, *max)
	}
	return nil
}

func requireAuthor(actor models.Actor) error {
	if actor.Role != models.RoleFaculty && actor.Role != models.RoleAdmin {
		return apperr.New(apperr.Forbidden, "role %s cannot manage content", actor.Role)
	}
	return nil
}

// ownedCourse loads a course the actor may inspect as its author: admins and
// the faculty who created it.
func ownedCourse(tx *gorm.DB, actor models.Actor, courseID uint) (*models.Course, error) {
	course, err := first[models.Course](tx, "course", courseID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && course.CreatedBy != actor.UserID {
		return nil, apperr.New(apperr.Forbidden, "user %d does not teach course %d", actor.UserID, courseID)
	}
	return course, nil
}
