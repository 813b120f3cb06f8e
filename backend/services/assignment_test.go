package services

import (
	"context"
	"testing"
	"time"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/storage"
	"coursehub/backend/testutil"
	"coursehub/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func textDraft(body string) Draft {
	return Draft{SubmissionType: models.SubmissionText, TextContent: body}
}

func TestSaveDraftIsIdempotent(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished)

	d1, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, textDraft("essay"))
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	d2, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, textDraft("essay"))
	require.NoError(t, err)

	assert.Equal(t, d1.ID, d2.ID)
	assert.Equal(t, d1.AttemptNumber, d2.AttemptNumber)

	var rows []models.AssignmentSubmission
	require.NoError(t, e.db.Where("user_id = ? AND assignment_id = ?", e.learner.ID, a.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.SubmissionDraft, rows[0].Status)
	assert.Equal(t, 1, rows[0].AttemptNumber)
	assert.True(t, rows[0].CreatedAt.Equal(d1.CreatedAt))
}

func TestSaveDraftValidatesPayload(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	text := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished)
	link := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.SubmissionType = models.SubmissionURL
	})

	_, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, text.ID, Draft{SubmissionType: models.SubmissionURL, URL: "https://example.com"})
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	_, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, text.ID, textDraft("   "))
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	_, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, link.ID, Draft{SubmissionType: models.SubmissionURL})
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	_, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, link.ID, Draft{SubmissionType: models.SubmissionURL, URL: "not a url"})
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	d, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, link.ID, Draft{SubmissionType: models.SubmissionURL, URL: "https://example.com/work", TextContent: "stray"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/work", d.URL)
	assert.Empty(t, d.TextContent)
}

func TestSaveDraftPreconditions(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)

	hidden := testutil.SeedAssignment(t, e.db, course.ID, models.StatusApproved)
	_, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, hidden.ID, textDraft("x"))
	assert.True(t, apperr.Is(err, apperr.NotFound))

	closes := e.clock.Now().Add(-time.Second)
	closed := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.AvailableUntil = &closes
	})
	_, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, closed.ID, textDraft("x"))
	assert.True(t, apperr.Is(err, apperr.WindowClosed))

	outsider := testutil.SeedUser(t, e.db, "outsider", models.RoleLearner)
	open := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished)
	_, err = e.assignments.SaveDraft(e.ctx, outsider.ID, open.ID, textDraft("x"))
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestFileDrafts(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.SubmissionType = models.SubmissionFile
		a.MaxFileSize = 1024
		a.AllowedFileTypes = jsonList([]string{"application/pdf"})
	})
	fileDraft := func(id string) Draft { return Draft{SubmissionType: models.SubmissionFile, FileID: id} }

	_, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, fileDraft("missing.pdf"))
	assert.True(t, apperr.Is(err, apperr.NotFound))

	e.store.Put("big.pdf", storage.Metadata{ContentType: "application/pdf", Size: 4096})
	_, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, fileDraft("big.pdf"))
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	e.store.Put("notes.txt", storage.Metadata{ContentType: "text/plain", Size: 10})
	_, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, fileDraft("notes.txt"))
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	e.store.Put("v1.pdf", storage.Metadata{ContentType: "application/pdf", Size: 100})
	e.store.Put("v2.pdf", storage.Metadata{ContentType: "application/pdf", Size: 200})
	d1, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, fileDraft("v1.pdf"))
	require.NoError(t, err)
	d2, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, fileDraft("v2.pdf"))
	require.NoError(t, err)
	assert.Equal(t, d1.ID, d2.ID)
	assert.Equal(t, "v2.pdf", d2.FileID)
	assert.False(t, e.store.Has("v1.pdf"))
	assert.True(t, e.store.Has("v2.pdf"))
}

func TestFileDraftDefaultSizeLimit(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.SubmissionType = models.SubmissionFile
	})

	e.store.Put("huge.zip", storage.Metadata{ContentType: "application/zip", Size: models.DefaultMaxFileSize + 1})
	_, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, Draft{SubmissionType: models.SubmissionFile, FileID: "huge.zip"})
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	e.store.Put("ok.zip", storage.Metadata{ContentType: "application/zip", Size: models.DefaultMaxFileSize})
	_, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, Draft{SubmissionType: models.SubmissionFile, FileID: "ok.zip"})
	assert.NoError(t, err)
}

func TestFileDraftServiceSizeLimit(t *testing.T) {
	e := newEnv(t)
	e.assignments = NewAssignmentService(e.db, e.store, utils.NopLogger(), WithClock(e.clock.Now), WithMaxFileSize(1024))
	course := e.publishedCourse(t)
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.SubmissionType = models.SubmissionFile
	})

	e.store.Put("big.pdf", storage.Metadata{ContentType: "application/pdf", Size: 1025})
	_, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, Draft{SubmissionType: models.SubmissionFile, FileID: "big.pdf"})
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	// The assignment's own limit wins over the service default.
	own := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.SubmissionType = models.SubmissionFile
		a.MaxFileSize = 4096
	})
	_, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, own.ID, Draft{SubmissionType: models.SubmissionFile, FileID: "big.pdf"})
	assert.NoError(t, err)
}

// dbReadingStore reads the database from GetMetadata. With a single
// connection the read blocks if a transaction is open.
type dbReadingStore struct {
	*storage.MemoryStore
	db      *gorm.DB
	readErr error
}

func (s *dbReadingStore) GetMetadata(ctx context.Context, fileID string) (storage.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var n int64
	s.readErr = s.db.WithContext(ctx).Model(&models.Enrollment{}).Count(&n).Error
	return s.MemoryStore.GetMetadata(ctx, fileID)
}

func TestFileMetadataReadOutsideTransaction(t *testing.T) {
	e := newEnv(t)
	store := &dbReadingStore{MemoryStore: e.store, db: e.db}
	e.assignments = NewAssignmentService(e.db, store, utils.NopLogger(), WithClock(e.clock.Now))
	course := e.publishedCourse(t)
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.SubmissionType = models.SubmissionFile
	})

	e.store.Put("notes.pdf", storage.Metadata{ContentType: "application/pdf", Size: 10})
	_, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, Draft{SubmissionType: models.SubmissionFile, FileID: "notes.pdf"})
	require.NoError(t, err)
	assert.NoError(t, store.readErr)
}

func TestLateSubmitRejectedStaysDraft(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	due := e.clock.Now()
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.DueDate = &due
	})
	d, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, textDraft("late work"))
	require.NoError(t, err)

	e.clock.Advance(time.Millisecond)
	_, err = e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))
	assert.Contains(t, err.Error(), "late submissions are not allowed")

	mine, err := e.assignments.MySubmissions(e.ctx, e.learner.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.SubmissionDraft, mine[0].Status)
	assert.Nil(t, mine[0].SubmittedAt)
}

func TestLateSubmitAllowedIsFlagged(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	due := e.clock.Now()
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.DueDate = &due
		a.AllowLateSubmissions = true
		a.LateSubmissionPenalty = 10
	})
	d, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, textDraft("late work"))
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	sub, err := e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
	require.NoError(t, err)
	assert.True(t, sub.IsLate)
	assert.Equal(t, models.SubmissionSubmitted, sub.Status)

	out, err := e.assignments.Grade(e.ctx, actorOf(e.faculty), sub.ID, 80, "good")
	require.NoError(t, err)
	assert.Equal(t, 80.0, *out.Submission.Grade)
	assert.InDelta(t, 72.0, out.SuggestedGrade, 1e-9)
}

func TestSubmitOnTimeAndTwice(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	due := e.clock.Now().Add(time.Hour)
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.DueDate = &due
	})
	d, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, textDraft("work"))
	require.NoError(t, err)

	sub, err := e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
	require.NoError(t, err)
	assert.False(t, sub.IsLate)
	assert.Equal(t, d.ID, sub.ID)
	assert.Equal(t, 1, sub.AttemptNumber)

	_, err = e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	mine, err := e.assignments.MySubmissions(e.ctx, e.learner.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.SubmissionSubmitted, mine[0].Status)
	assert.True(t, mine[0].SubmittedAt.Equal(*sub.SubmittedAt))

	intruder := testutil.SeedUser(t, e.db, "intruder", models.RoleLearner)
	_, err = e.assignments.Submit(e.ctx, intruder.ID, d.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestAssignmentAttemptLimit(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	single := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished)

	d, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, single.ID, textDraft("one"))
	require.NoError(t, err)
	_, err = e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
	require.NoError(t, err)

	again, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, single.ID, textDraft("two"))
	require.NoError(t, err)
	assert.NotEqual(t, d.ID, again.ID)
	assert.Equal(t, 2, again.AttemptNumber)
	_, err = e.assignments.Submit(e.ctx, e.learner.ID, again.ID)
	assert.True(t, apperr.Is(err, apperr.QuotaExceeded))

	multi := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.AllowMultipleAttempts = true
		a.MaxAttempts = testutil.Ptr(2)
	})
	for i := 1; i <= 2; i++ {
		d, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, multi.ID, textDraft("try"))
		require.NoError(t, err)
		sub, err := e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
		require.NoError(t, err)
		assert.Equal(t, i, sub.AttemptNumber)
	}
	d, err = e.assignments.SaveDraft(e.ctx, e.learner.ID, multi.ID, textDraft("third"))
	require.NoError(t, err)
	_, err = e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
	assert.True(t, apperr.Is(err, apperr.QuotaExceeded))
}

func TestGrading(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished, func(a *models.Assignment) {
		a.MaxPoints = 50
	})
	d, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, textDraft("answer"))
	require.NoError(t, err)

	_, err = e.assignments.Grade(e.ctx, actorOf(e.faculty), d.ID, 10, "")
	assert.True(t, apperr.Is(err, apperr.InvalidTransition))

	_, err = e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
	require.NoError(t, err)

	_, err = e.assignments.UpdateGrade(e.ctx, actorOf(e.faculty), d.ID, 10, "")
	assert.True(t, apperr.Is(err, apperr.InvalidTransition))

	_, err = e.assignments.Grade(e.ctx, actorOf(e.faculty), d.ID, 51, "")
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))
	_, err = e.assignments.Grade(e.ctx, actorOf(e.faculty), d.ID, -1, "")
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	stranger := testutil.SeedUser(t, e.db, "stranger", models.RoleFaculty)
	_, err = e.assignments.Grade(e.ctx, actorOf(stranger), d.ID, 10, "")
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	_, err = e.assignments.Grade(e.ctx, actorOf(e.learner), d.ID, 10, "")
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	out, err := e.assignments.Grade(e.ctx, actorOf(e.faculty), d.ID, 50, "perfect")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionGraded, out.Submission.Status)
	assert.Equal(t, 50.0, out.SuggestedGrade)
	require.NotNil(t, out.Submission.GradedBy)
	assert.Equal(t, e.faculty.ID, *out.Submission.GradedBy)

	out, err = e.assignments.UpdateGrade(e.ctx, actorOf(e.admin), d.ID, 45, "revised")
	require.NoError(t, err)
	assert.Equal(t, 45.0, *out.Submission.Grade)
	assert.Equal(t, e.admin.ID, *out.Submission.GradedBy)

	subs, err := e.assignments.ListSubmissions(e.ctx, actorOf(e.faculty), a.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "revised", subs[0].TeacherFeedback)

	_, err = e.assignments.ListSubmissions(e.ctx, actorOf(stranger), a.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestMaxPointsCannotDropBelowGrades(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)
	a := testutil.SeedAssignment(t, e.db, course.ID, models.StatusPublished)
	d, err := e.assignments.SaveDraft(e.ctx, e.learner.ID, a.ID, textDraft("answer"))
	require.NoError(t, err)
	_, err = e.assignments.Submit(e.ctx, e.learner.ID, d.ID)
	require.NoError(t, err)
	_, err = e.assignments.Grade(e.ctx, actorOf(e.faculty), d.ID, 90, "")
	require.NoError(t, err)

	_, err = e.content.UpdateAssignment(e.ctx, actorOf(e.admin), a.ID, AssignmentPatch{MaxPoints: testutil.Ptr(50.0)})
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))

	var reloaded models.Assignment
	require.NoError(t, e.db.First(&reloaded, a.ID).Error)
	assert.Equal(t, 100.0, reloaded.MaxPoints)

	perf, err := e.progress.CoursePerformance(e.ctx, actorOf(e.learner), e.learner.ID, course.ID)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, perf.Assignments.AverageGrade, 0.001)

	updated, err := e.content.UpdateAssignment(e.ctx, actorOf(e.admin), a.ID, AssignmentPatch{MaxPoints: testutil.Ptr(90.0)})
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.MaxPoints)
}

func TestSuggestedGrade(t *testing.T) {
	assert.Equal(t, 80.0, SuggestedGrade(80, false, 25))
	assert.Equal(t, 60.0, SuggestedGrade(80, true, 25))
	assert.Equal(t, 80.0, SuggestedGrade(80, true, 0))
	assert.Equal(t, 0.0, SuggestedGrade(80, true, 150))
}
