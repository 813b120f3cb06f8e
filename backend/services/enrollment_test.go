package services

import (
	"testing"

	"coursehub/backend/apperr"
	"coursehub/backend/models"
	"coursehub/backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollCreatesOnceAndIsIdempotent(t *testing.T) {
	e := newEnv(t)
	course := testutil.SeedCourse(t, e.db, e.faculty.ID, models.StatusPublished)

	created, err := e.enrollments.Enroll(e.ctx, e.learner.ID, course.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, created.Status)

	again, err := e.enrollments.Enroll(e.ctx, e.learner.ID, course.ID, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	ok, err := e.enrollments.IsEnrolled(e.ctx, e.learner.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReenrollReactivatesSameRow(t *testing.T) {
	e := newEnv(t)
	course := testutil.SeedCourse(t, e.db, e.faculty.ID, models.StatusPublished)

	created, err := e.enrollments.Enroll(e.ctx, e.learner.ID, course.ID, "")
	require.NoError(t, err)
	require.NoError(t, e.enrollments.Unenroll(e.ctx, e.learner.ID, course.ID))

	ok, err := e.enrollments.IsEnrolled(e.ctx, e.learner.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, apperr.Is(e.enrollments.RequireActive(e.ctx, e.learner.ID, course.ID), apperr.Forbidden))

	back, err := e.enrollments.Enroll(e.ctx, e.learner.ID, course.ID, "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, back.ID)
	assert.Equal(t, models.EnrollmentActive, back.Status)

	all, err := e.enrollments.ListForUser(e.ctx, e.learner.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEnrollPreconditions(t *testing.T) {
	e := newEnv(t)

	draft := testutil.SeedCourse(t, e.db, e.faculty.ID, models.StatusDraft)
	_, err := e.enrollments.Enroll(e.ctx, e.learner.ID, draft.ID, "")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = e.enrollments.Enroll(e.ctx, e.learner.ID, 999, "")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	closed := testutil.SeedCourse(t, e.db, e.faculty.ID, models.StatusPublished)
	require.NoError(t, e.db.Model(closed).Update("is_enrollment_open", false).Error)
	_, err = e.enrollments.Enroll(e.ctx, e.learner.ID, closed.ID, "")
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	coded := testutil.SeedCourse(t, e.db, e.faculty.ID, models.StatusPublished)
	require.NoError(t, e.db.Model(coded).Update("enrollment_code", "SECRET").Error)
	_, err = e.enrollments.Enroll(e.ctx, e.learner.ID, coded.ID, "guess")
	assert.True(t, apperr.Is(err, apperr.ValidationFailed))
	_, err = e.enrollments.Enroll(e.ctx, e.learner.ID, coded.ID, "SECRET")
	assert.NoError(t, err)
}

func TestDeactivateIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)

	err := e.enrollments.Deactivate(e.ctx, actorOf(e.faculty), e.learner.ID, course.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	require.NoError(t, e.enrollments.Deactivate(e.ctx, actorOf(e.admin), e.learner.ID, course.ID))
	active, err := e.enrollments.ListActiveForUser(e.ctx, e.learner.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Already dropped.
	err = e.enrollments.Unenroll(e.ctx, e.learner.ID, course.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
	require.NoError(t, e.enrollments.Deactivate(e.ctx, actorOf(e.admin), e.learner.ID, course.ID))

	var rows []models.Enrollment
	require.NoError(t, e.db.Where("user_id = ? AND course_id = ?", e.learner.ID, course.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.EnrollmentDropped, rows[0].Status)

	err = e.enrollments.Deactivate(e.ctx, actorOf(e.admin), e.learner.ID, 999)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestMarkCompletedSetsTimestamp(t *testing.T) {
	e := newEnv(t)
	course := e.publishedCourse(t)

	require.NoError(t, e.enrollments.MarkCompleted(e.ctx, e.learner.ID, course.ID))
	all, err := e.enrollments.ListForUser(e.ctx, e.learner.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.EnrollmentCompleted, all[0].Status)
	require.NotNil(t, all[0].CompletedAt)
	assert.True(t, all[0].CompletedAt.Equal(e.clock.Now()))
}
