package services

import (
	"context"
	"testing"

	"coursehub/backend/models"
	"coursehub/backend/storage"
	"coursehub/backend/testutil"
	"coursehub/backend/utils"

	"gorm.io/gorm"
)

type fixedCodes string

func (c fixedCodes) NewCode() string { return string(c) }

type env struct {
	ctx         context.Context
	db          *gorm.DB
	clock       *testutil.Clock
	store       *storage.MemoryStore
	content     *ContentService
	enrollments *EnrollmentService
	quizzes     *QuizService
	assignments *AssignmentService
	progress    *ProgressService

	admin   *models.User
	faculty *models.User
	learner *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.DB(t)
	clock := testutil.NewClock()
	log := utils.NopLogger()
	store := storage.NewMemoryStore()
	opt := WithClock(clock.Now)
	return &env{
		ctx:         context.Background(),
		db:          db,
		clock:       clock,
		store:       store,
		content:     NewContentService(db, log, fixedCodes("JOIN1234"), opt),
		enrollments: NewEnrollmentService(db, log, opt),
		quizzes:     NewQuizService(db, log, opt),
		assignments: NewAssignmentService(db, store, log, opt),
		progress:    NewProgressService(db, log, nil, opt),
		admin:       testutil.SeedUser(t, db, "admin", models.RoleAdmin),
		faculty:     testutil.SeedUser(t, db, "teacher", models.RoleFaculty),
		learner:     testutil.SeedUser(t, db, "student", models.RoleLearner),
	}
}

func actorOf(u *models.User) models.Actor {
	return models.Actor{UserID: u.ID, Role: u.Role}
}

// publishedCourse seeds a published course authored by faculty with the
// learner actively enrolled.
func (e *env) publishedCourse(t *testing.T) *models.Course {
	t.Helper()
	course := testutil.SeedCourse(t, e.db, e.faculty.ID, models.StatusPublished)
	testutil.SeedEnrollment(t, e.db, e.learner.ID, course.ID, models.EnrollmentActive)
	return course
}

func statusOf(t *testing.T, db *gorm.DB, kind models.ContentKind, id uint) models.Status {
	t.Helper()
	var row struct{ Status models.Status }
	if err := db.Model(kind.Model()).Select("status").Where("id = ?", id).Take(&row).Error; err != nil {
		t.Fatalf("load %s %d: %v", kind, id, err)
	}
	return row.Status
}
