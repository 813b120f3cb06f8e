// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"coursehub/backend/models"
	"coursehub/backend/utils"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB returns a freshly migrated in-memory database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get sqlite handle: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := utils.Migrate(db); err != nil {
		tb.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

func NewClock() *Clock {
	return &Clock{T: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

func SeedUser(tb testing.TB, db *gorm.DB, username string, role models.Role) *models.User {
	tb.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	mustCreate(tb, db, u)
	return u
}

func SeedCourse(tb testing.TB, db *gorm.DB, authorID uint, status models.Status) *models.Course {
	tb.Helper()
	c := &models.Course{
		Title:            "Course",
		Status:           status,
		CreatedBy:        authorID,
		IsEnrollmentOpen: true,
	}
	mustCreate(tb, db, c)
	return c
}

func SeedModule(tb testing.TB, db *gorm.DB, courseID uint, status models.Status) *models.Module {
	tb.Helper()
	m := &models.Module{CourseID: courseID, Title: "Module", Status: status}
	mustCreate(tb, db, m)
	return m
}

func SeedLesson(tb testing.TB, db *gorm.DB, mod *models.Module, status models.Status) *models.Lesson {
	tb.Helper()
	l := &models.Lesson{CourseID: mod.CourseID, ModuleID: mod.ID, Title: "Lesson", Status: status}
	mustCreate(tb, db, l)
	return l
}

func SeedQuiz(tb testing.TB, db *gorm.DB, courseID uint, status models.Status, opts ...func(*models.Quiz)) *models.Quiz {
	tb.Helper()
	q := &models.Quiz{CourseID: courseID, Title: "Quiz", Status: status}
	for _, o := range opts {
		o(q)
	}
	mustCreate(tb, db, q)
	return q
}

func SeedQuestion(tb testing.TB, db *gorm.DB, quizID uint, correct int, points float64) *models.QuizQuestion {
	tb.Helper()
	opts, _ := json.Marshal([]string{"a", "b", "c"})
	q := &models.QuizQuestion{
		QuizID:       quizID,
		Question:     "?",
		Options:      datatypes.JSON(opts),
		CorrectIndex: correct,
		Points:       points,
	}
	mustCreate(tb, db, q)
	return q
}

func SeedAssignment(tb testing.TB, db *gorm.DB, courseID uint, status models.Status, opts ...func(*models.Assignment)) *models.Assignment {
	tb.Helper()
	a := &models.Assignment{
		CourseID:       courseID,
		Title:          "Assignment",
		Status:         status,
		MaxPoints:      100,
		SubmissionType: models.SubmissionText,
	}
	for _, o := range opts {
		o(a)
	}
	mustCreate(tb, db, a)
	return a
}

func SeedEnrollment(tb testing.TB, db *gorm.DB, userID, courseID uint, status models.EnrollmentStatus) *models.Enrollment {
	tb.Helper()
	e := &models.Enrollment{UserID: userID, CourseID: courseID, Status: status, EnrolledAt: time.Now()}
	mustCreate(tb, db, e)
	return e
}

func mustCreate(tb testing.TB, db *gorm.DB, v interface{}) {
	tb.Helper()
	if err := db.Create(v).Error; err != nil {
		tb.Fatalf("seed %T: %v", v, err)
	}
}

func Ptr[T any](v T) *T { return &v }
