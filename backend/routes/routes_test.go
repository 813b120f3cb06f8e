package routes_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"coursehub/backend/config"
	"coursehub/backend/middleware"
	"coursehub/backend/models"
	"coursehub/backend/routes"
	"coursehub/backend/services"
	"coursehub/backend/storage"
	"coursehub/backend/testutil"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type harness struct {
	t     *testing.T
	app   *fiber.App
	db    *gorm.DB
	cfg   *config.Config
	store *storage.MemoryStore

	admin   *models.User
	faculty *models.User
	learner *models.User
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	cfg := &config.Config{JWTSecret: "testsecret"}
	log := utils.NopLogger()
	store := storage.NewMemoryStore()

	app := fiber.New()
	app.Use(middleware.LoggingMiddleware(log))
	routes.SetupRoutes(app, db, cfg, log, routes.Services{
		Content:     services.NewContentService(db, log, services.UUIDCodes{Length: 6}),
		Enrollments: services.NewEnrollmentService(db, log),
		Quizzes:     services.NewQuizService(db, log),
		Assignments: services.NewAssignmentService(db, store, log),
		Progress:    services.NewProgressService(db, log, nil),
	})

	return &harness{
		t:       t,
		app:     app,
		db:      db,
		cfg:     cfg,
		store:   store,
		admin:   testutil.SeedUser(t, db, "admin", models.RoleAdmin),
		faculty: testutil.SeedUser(t, db, "teacher", models.RoleFaculty),
		learner: testutil.SeedUser(t, db, "student", models.RoleLearner),
	}
}

func (h *harness) token(u *models.User) string {
	h.t.Helper()
	token, err := utils.GenerateJWTToken(u.ID, u.Role, h.cfg)
	require.NoError(h.t, err)
	return token
}

// do sends a JSON request as u (anonymous when nil) and decodes the envelope.
func (h *harness) do(method, path string, u *models.User, body interface{}) (int, envelope) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+h.token(u))
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	status, env := h.do("POST", "/api/auth/register", nil, map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, status)
	reg := decode[struct {
		Token string `json:"token"`
		User  struct {
			ID   uint        `json:"id"`
			Role models.Role `json:"role"`
		} `json:"user"`
	}](t, env)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, models.RoleLearner, reg.User.Role)

	status, _ = h.do("POST", "/api/auth/register", nil, map[string]string{
		"username": "newuser",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	status, env = h.do("POST", "/api/auth/register", nil, map[string]string{"username": "x"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_failed", env.Kind)

	status, _ = h.do("POST", "/api/auth/login", nil, map[string]string{"username": "newuser", "password": "wrong-password"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, env = h.do("POST", "/api/auth/login", nil, map[string]string{"username": "newuser", "password": "password123"})
	require.Equal(t, fiber.StatusOK, status)
	login := decode[struct {
		Token string `json:"token"`
	}](t, env)

	actor, err := utils.ParseToken(login.Token, h.cfg)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, actor.UserID)
	assert.Equal(t, models.RoleLearner, actor.Role)
}

func TestAuthIsRequired(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do("GET", "/api/courses", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req := httptest.NewRequest("GET", "/api/courses", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	status, _ = h.do("GET", "/api/courses", h.learner, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRoleGates(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do("POST", "/api/courses", h.learner, map[string]string{"title": "Mine"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = h.do("PUT", fmt.Sprintf("/api/admin/users/%d/role", h.learner.ID), h.faculty, map[string]string{"role": "ADMIN"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env := h.do("PUT", fmt.Sprintf("/api/admin/users/%d/role", h.learner.ID), h.admin, map[string]string{"role": "FACULTY"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(env.Data), `"FACULTY"`)

	var user models.User
	require.NoError(t, h.db.First(&user, h.learner.ID).Error)
	assert.Equal(t, models.RoleFaculty, user.Role)
}

func TestCourseReviewFlow(t *testing.T) {
	h := newHarness(t)

	status, env := h.do("POST", "/api/courses", h.faculty, map[string]interface{}{
		"title":              "Logic 101",
		"difficulty":         "beginner",
		"is_enrollment_open": true,
	})
	require.Equal(t, fiber.StatusCreated, status)
	course := decode[models.Course](t, env)
	assert.Equal(t, models.StatusDraft, course.Status)
	path := fmt.Sprintf("/api/courses/%d", course.ID)

	status, _ = h.do("GET", path, h.learner, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = h.do("POST", path+"/request-approval", h.faculty, nil)
	require.Equal(t, fiber.StatusOK, status)

	// Faculty cannot approve their own work.
	status, env = h.do("POST", path+"/approve", h.faculty, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "invalid_transition", env.Kind)

	status, env = h.do("POST", path+"/reject", h.admin, map[string]string{"reason": "needs a syllabus"})
	require.Equal(t, fiber.StatusOK, status)
	rejected := decode[models.ReviewEvent](t, env)
	assert.Equal(t, models.StatusDraft, rejected.ToStatus)
	assert.Equal(t, "needs a syllabus", rejected.Reason)

	status, _ = h.do("POST", path+"/publish", h.faculty, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = h.do("POST", path+"/publish", h.admin, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env = h.do("GET", path, h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.StatusPublished, decode[models.Course](t, env).Status)

	status, env = h.do("GET", path+"/history", h.faculty, nil)
	require.Equal(t, fiber.StatusOK, status)
	events := decode[[]models.ReviewEvent](t, env)
	require.Len(t, events, 4)
	assert.Equal(t, "request_approval", events[0].Action)
	assert.Equal(t, models.StatusPublished, events[3].ToStatus)

	// Published content is locked for faculty.
	status, _ = h.do("PUT", path, h.faculty, map[string]string{"title": "Logic 102"})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestCreateCourseValidation(t *testing.T) {
	h := newHarness(t)

	status, env := h.do("POST", "/api/courses", h.faculty, map[string]string{"difficulty": "impossible"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, string(env.Details), "title")
	assert.Contains(t, string(env.Details), "difficulty")

	status, _ = h.do("GET", "/api/courses/abc", h.faculty, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCreateCourseStatusByRole(t *testing.T) {
	h := newHarness(t)

	status, env := h.do("POST", "/api/courses", h.admin, map[string]string{"title": "Stoicism"})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, models.StatusApproved, decode[models.Course](t, env).Status)

	status, env = h.do("POST", "/api/courses", h.faculty, map[string]string{"title": "Logic"})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, models.StatusDraft, decode[models.Course](t, env).Status)
}

func TestEnrollmentWithCode(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedCourse(t, h.db, h.faculty.ID, models.StatusPublished)
	path := fmt.Sprintf("/api/courses/%d", course.ID)

	status, env := h.do("POST", path+"/enrollment-code", h.faculty, nil)
	require.Equal(t, fiber.StatusOK, status)
	code := decode[map[string]string](t, env)["enrollment_code"]
	assert.Len(t, code, 6)

	status, env = h.do("GET", path, h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	seen := decode[models.Course](t, env)
	assert.Empty(t, seen.EnrollmentCode)
	assert.True(t, seen.RequiresCode)

	status, _ = h.do("POST", path+"/enroll", h.learner, map[string]string{"code": "WRONG"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env = h.do("POST", path+"/enroll", h.learner, map[string]string{"code": code})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.EnrollmentActive, decode[models.Enrollment](t, env).Status)

	status, _ = h.do("DELETE", path+"/enroll", h.learner, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = h.do("PUT", path+"/settings", h.faculty, map[string]bool{"open": false})
	require.Equal(t, fiber.StatusOK, status)
	status, _ = h.do("POST", path+"/enroll", h.learner, map[string]string{"code": code})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestQuizAttemptOverHTTP(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedCourse(t, h.db, h.faculty.ID, models.StatusPublished)
	quiz := testutil.SeedQuiz(t, h.db, course.ID, models.StatusPublished, func(q *models.Quiz) {
		q.PassingScore = testutil.Ptr(60.0)
	})
	q1 := testutil.SeedQuestion(t, h.db, quiz.ID, 0, 1)
	q2 := testutil.SeedQuestion(t, h.db, quiz.ID, 1, 1)
	quizPath := fmt.Sprintf("/api/quizzes/%d", quiz.ID)

	status, env := h.do("POST", quizPath+"/attempts", h.learner, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", env.Kind)

	testutil.SeedEnrollment(t, h.db, h.learner.ID, course.ID, models.EnrollmentActive)

	status, env = h.do("GET", quizPath, h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, string(env.Data), "correct")

	status, env = h.do("POST", quizPath+"/attempts", h.learner, nil)
	require.Equal(t, fiber.StatusCreated, status)
	attempt := decode[models.QuizAttempt](t, env)
	submitPath := fmt.Sprintf("/api/quizzes/attempts/%d/submit", attempt.ID)

	answers := map[string]interface{}{
		"answers": []models.Answer{
			{QuestionID: q1.ID, SelectedIndex: 0},
			{QuestionID: q2.ID, SelectedIndex: 2},
		},
	}
	status, env = h.do("POST", submitPath, h.learner, answers)
	require.Equal(t, fiber.StatusOK, status)
	graded := decode[models.QuizAttempt](t, env)
	assert.Equal(t, 50.0, graded.Percentage)
	require.NotNil(t, graded.Passed)
	assert.False(t, *graded.Passed)

	status, env = h.do("POST", submitPath, h.learner, answers)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "conflict", env.Kind)

	status, _ = h.do("POST", quizPath+"/attempts", h.learner, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)

	status, env = h.do("GET", quizPath+"/attempts", h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]models.QuizAttempt](t, env), 1)

	status, env = h.do("GET", quizPath+"/analytics", h.faculty, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(1), decode[models.QuizAnalytics](t, env).Attempts)
}

func TestAssignmentSubmitAndGrade(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedCourse(t, h.db, h.faculty.ID, models.StatusPublished)
	testutil.SeedEnrollment(t, h.db, h.learner.ID, course.ID, models.EnrollmentActive)
	assignment := testutil.SeedAssignment(t, h.db, course.ID, models.StatusPublished)
	path := fmt.Sprintf("/api/assignments/%d", assignment.ID)

	status, _ := h.do("PUT", path+"/draft", h.learner, map[string]string{"submission_type": "url", "url": "https://example.com"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env := h.do("PUT", path+"/draft", h.learner, map[string]string{"submission_type": "text", "text_content": "my essay"})
	require.Equal(t, fiber.StatusOK, status)
	draft := decode[models.AssignmentSubmission](t, env)
	assert.Equal(t, models.SubmissionDraft, draft.Status)

	status, env = h.do("POST", fmt.Sprintf("/api/assignments/submissions/%d/submit", draft.ID), h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.SubmissionSubmitted, decode[models.AssignmentSubmission](t, env).Status)

	gradePath := fmt.Sprintf("/api/assignments/submissions/%d/grade", draft.ID)
	status, _ = h.do("POST", gradePath, h.learner, map[string]interface{}{"grade": 90})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = h.do("PUT", gradePath, h.faculty, map[string]interface{}{"grade": 90})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = h.do("POST", gradePath, h.faculty, map[string]interface{}{"grade": 150})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env = h.do("POST", gradePath, h.faculty, map[string]interface{}{"grade": 90, "feedback": "good"})
	require.Equal(t, fiber.StatusOK, status)
	outcome := decode[services.GradeOutcome](t, env)
	require.NotNil(t, outcome.Submission.Grade)
	assert.Equal(t, 90.0, *outcome.Submission.Grade)
	assert.Equal(t, 90.0, outcome.SuggestedGrade)

	status, env = h.do("GET", path+"/submissions", h.faculty, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]models.AssignmentSubmission](t, env), 1)

	status, env = h.do("GET", path+"/submissions/mine", h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]models.AssignmentSubmission](t, env), 1)
}

func TestLessonProgressAndPerformance(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedCourse(t, h.db, h.faculty.ID, models.StatusPublished)
	testutil.SeedEnrollment(t, h.db, h.learner.ID, course.ID, models.EnrollmentActive)
	mod := testutil.SeedModule(t, h.db, course.ID, models.StatusPublished)
	lesson := testutil.SeedLesson(t, h.db, mod, models.StatusPublished)
	testutil.SeedLesson(t, h.db, mod, models.StatusPublished)

	status, _ := h.do("POST", fmt.Sprintf("/api/lessons/%d/view", lesson.ID), h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = h.do("PUT", fmt.Sprintf("/api/lessons/%d/complete", lesson.ID), h.learner, map[string]bool{"completed": true})
	require.Equal(t, fiber.StatusOK, status)

	coursePath := fmt.Sprintf("/api/courses/%d", course.ID)
	status, env := h.do("GET", coursePath+"/performance", h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	perf := decode[models.CoursePerformance](t, env)
	assert.Equal(t, 1, perf.Lessons.Completed)
	assert.InDelta(t, 50.0/3, perf.OverallProgress, 0.001)

	other := testutil.SeedUser(t, h.db, "other", models.RoleLearner)
	status, _ = h.do("GET", fmt.Sprintf("%s/performance?user_id=%d", coursePath, other.ID), h.learner, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = h.do("GET", fmt.Sprintf("%s/performance?user_id=%d", coursePath, h.learner.ID), h.faculty, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, h.learner.ID, decode[models.CoursePerformance](t, env).UserID)

	status, _ = h.do("POST", coursePath+"/complete", h.learner, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, env = h.do("GET", "/api/progress/overview", h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, decode[models.PlatformProgress](t, env).ActiveCourses)

	status, env = h.do("GET", coursePath+"/analytics", h.faculty, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, decode[models.CourseAnalytics](t, env).Enrolled)
}

func TestGuideSteps(t *testing.T) {
	h := newHarness(t)

	status, env := h.do("PUT", "/api/progress/guides/onboarding", h.learner, map[string]interface{}{
		"step": 0, "total_steps": 1, "done": true,
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, decode[models.GuideProgress](t, env).Completed)

	status, env = h.do("GET", "/api/progress/guides/onboarding", h.learner, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, decode[models.GuideProgress](t, env).Completed)

	status, _ = h.do("PUT", "/api/progress/guides/onboarding", h.learner, map[string]interface{}{
		"step": 5, "total_steps": 1, "done": true,
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestDeleteGuardOverHTTP(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedCourse(t, h.db, h.faculty.ID, models.StatusDraft)
	mod := testutil.SeedModule(t, h.db, course.ID, models.StatusDraft)

	status, env := h.do("DELETE", fmt.Sprintf("/api/courses/%d", course.ID), h.faculty, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "dependency_exists", env.Kind)

	status, _ = h.do("DELETE", fmt.Sprintf("/api/modules/%d", mod.ID), h.faculty, nil)
	require.Equal(t, fiber.StatusNoContent, status)
	status, _ = h.do("DELETE", fmt.Sprintf("/api/courses/%d", course.ID), h.faculty, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}
