package routes

import (
	"coursehub/backend/config"
	"coursehub/backend/controllers"
	"coursehub/backend/middleware"
	"coursehub/backend/models"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Services bundles everything the handlers drive.
type Services struct {
	Content     *services.ContentService
	Enrollments *services.EnrollmentService
	Quizzes     *services.QuizService
	Assignments *services.AssignmentService
	Progress    *services.ProgressService
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, log *utils.Logger, svc Services) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg, log)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	authorOnly := middleware.RequireRole(models.RoleFaculty, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	api := app.Group("/api", authMiddleware)
	review := controllers.NewReviewController(svc.Content)

	// User routes
	userController := controllers.NewUserController(db, cfg, svc.Enrollments, svc.Progress)
	api.Get("/users/profile", userController.GetProfile)
	api.Put("/users/profile", userController.UpdateProfile)
	api.Get("/users/courses", userController.GetUserCourses)

	// Progress routes
	progressController := controllers.NewProgressController(svc.Progress, cfg)
	api.Get("/progress/overview", progressController.GetProgressOverview)
	api.Get("/progress/guides/:guideId", progressController.GetGuideProgress)
	api.Put("/progress/guides/:guideId", progressController.UpdateGuideStep)

	overviewController := controllers.NewOverviewController(svc.Enrollments, svc.Progress, cfg)
	api.Get("/overview", overviewController.GetUserOverview)

	analyticsController := controllers.NewAnalyticsController(svc.Progress, svc.Quizzes, cfg)

	// Courses routes
	coursesController := controllers.NewCoursesController(svc.Content, svc.Enrollments, svc.Progress, cfg)
	courses := api.Group("/courses")
	courses.Get("/", coursesController.GetCourses)
	courses.Post("/", authorOnly, coursesController.CreateCourse)
	courses.Get("/:id", coursesController.GetCourseDetails)
	courses.Put("/:id", authorOnly, coursesController.UpdateCourse)
	courses.Delete("/:id", authorOnly, review.Delete(models.KindCourse))
	courses.Post("/:id/enroll", coursesController.Enroll)
	courses.Delete("/:id/enroll", coursesController.Unenroll)
	courses.Put("/:id/settings", authorOnly, coursesController.UpdateCourseSettings)
	courses.Post("/:id/enrollment-code", authorOnly, coursesController.RegenerateEnrollmentCode)
	courses.Delete("/:id/enrollment-code", authorOnly, coursesController.ClearEnrollmentCode)
	courses.Get("/:id/performance", coursesController.GetCoursePerformance)
	courses.Get("/:id/lessons/progress", coursesController.GetLessonProgress)
	courses.Post("/:id/complete", coursesController.CompleteCourse)
	courses.Get("/:id/analytics", authorOnly, analyticsController.GetCourseAnalytics)
	statusRoutes(courses, review, models.KindCourse, authorOnly)

	// Modules and lessons
	modules := api.Group("/modules")
	modules.Post("/", authorOnly, coursesController.CreateModule)
	modules.Get("/:id", coursesController.GetModule)
	modules.Put("/:id", authorOnly, coursesController.UpdateModule)
	modules.Delete("/:id", authorOnly, review.Delete(models.KindModule))
	statusRoutes(modules, review, models.KindModule, authorOnly)

	lessons := api.Group("/lessons")
	lessons.Post("/", authorOnly, coursesController.AddLesson)
	lessons.Get("/:id", coursesController.GetLesson)
	lessons.Put("/:id", authorOnly, coursesController.UpdateLesson)
	lessons.Delete("/:id", authorOnly, review.Delete(models.KindLesson))
	lessons.Put("/:id/complete", coursesController.SetLessonCompletion)
	lessons.Post("/:id/view", coursesController.RecordLessonView)
	statusRoutes(lessons, review, models.KindLesson, authorOnly)

	// Quizzes routes; attempt routes first so "attempts" is not read as an id
	quizzesController := controllers.NewQuizzesController(svc.Content, svc.Quizzes, cfg)
	quizzes := api.Group("/quizzes")
	quizzes.Get("/attempts/:attemptId", quizzesController.GetAttemptResult)
	quizzes.Post("/attempts/:attemptId/submit", quizzesController.SubmitAttempt)
	quizzes.Post("/", authorOnly, quizzesController.CreateQuiz)
	quizzes.Get("/:id", quizzesController.GetQuizDetails)
	quizzes.Put("/:id", authorOnly, quizzesController.UpdateQuiz)
	quizzes.Delete("/:id", authorOnly, review.Delete(models.KindQuiz))
	quizzes.Post("/:id/questions", authorOnly, quizzesController.AddQuestion)
	quizzes.Put("/:id/questions/:questionId", authorOnly, quizzesController.UpdateQuestion)
	quizzes.Delete("/:id/questions/:questionId", authorOnly, quizzesController.DeleteQuestion)
	quizzes.Post("/:id/attempts", quizzesController.StartAttempt)
	quizzes.Get("/:id/attempts", quizzesController.GetUserAttempts)
	quizzes.Get("/:id/analytics", authorOnly, analyticsController.GetQuizAnalytics)
	statusRoutes(quizzes, review, models.KindQuiz, authorOnly)

	// Assignments routes
	assignmentsController := controllers.NewAssignmentsController(svc.Content, svc.Assignments, cfg)
	assignments := api.Group("/assignments")
	assignments.Post("/submissions/:submissionId/submit", assignmentsController.Submit)
	assignments.Post("/submissions/:submissionId/grade", authorOnly, assignmentsController.Grade)
	assignments.Put("/submissions/:submissionId/grade", authorOnly, assignmentsController.Regrade)
	assignments.Post("/", authorOnly, assignmentsController.CreateAssignment)
	assignments.Get("/:id", assignmentsController.GetAssignment)
	assignments.Put("/:id", authorOnly, assignmentsController.UpdateAssignment)
	assignments.Delete("/:id", authorOnly, review.Delete(models.KindAssignment))
	assignments.Put("/:id/draft", assignmentsController.SaveDraft)
	assignments.Get("/:id/submissions/mine", assignmentsController.GetMySubmissions)
	assignments.Get("/:id/submissions", authorOnly, assignmentsController.GetSubmissions)
	statusRoutes(assignments, review, models.KindAssignment, authorOnly)

	// Admin routes
	admin := api.Group("/admin", adminOnly)
	admin.Put("/users/:id/role", userController.SetRole)
	admin.Delete("/users/:id/enrollments/:courseId", userController.DeactivateEnrollment)
}

func statusRoutes(group fiber.Router, review *controllers.ReviewController, kind models.ContentKind, authorOnly fiber.Handler) {
	for segment, action := range controllers.StatusRoutes {
		group.Post("/:id/"+segment, authorOnly, review.ChangeStatus(kind, action))
	}
	group.Get("/:id/history", authorOnly, review.History(kind))
}
