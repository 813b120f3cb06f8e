package controllers

import (
	"coursehub/backend/config"
	"coursehub/backend/models"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type CoursesController struct {
	Content     *services.ContentService
	Enrollments *services.EnrollmentService
	Progress    *services.ProgressService
	Cfg         *config.Config
}

func NewCoursesController(content *services.ContentService, enrollments *services.EnrollmentService, progress *services.ProgressService, cfg *config.Config) *CoursesController {
	return &CoursesController{Content: content, Enrollments: enrollments, Progress: progress, Cfg: cfg}
}

type EnrollRequest struct {
	Code string `json:"code"`
}

type EnrollmentSettingsRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// GetCourses godoc
// @Summary List courses
// @Description Learners see published courses, authors everything not archived
// @Tags courses
// @Produce json
// @Param search query string false "Search in title and descriptions"
// @Param topic query string false "Topic"
// @Param difficulty query string false "beginner|intermediate|advanced"
// @Param sort query string false "newest|popular"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses [get]
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courses, err := cc.Content.ListCourses(c.UserContext(), actor, services.CourseFilter{
		Search:     c.Query("search"),
		Topic:      c.Query("topic"),
		Difficulty: c.Query("difficulty"),
		Sort:       c.Query("sort"),
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

// GetCourseDetails godoc
// @Summary Get course with modules and lessons
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id} [get]
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	course, err := cc.Content.GetCourse(c.UserContext(), actor, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, course)
}

// CreateCourse godoc
// @Summary Create course
// @Description Faculty courses start as drafts, admin courses start approved
// @Tags courses
// @Accept json
// @Produce json
// @Param input body services.CourseInput true "Course"
// @Success 201 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.CourseInput
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	course, err := cc.Content.CreateCourse(c.UserContext(), actor, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update course fields
// @Description Faculty edits send approved courses back to draft; published courses are admin-only
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param input body services.CoursePatch true "Changed fields"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/{id} [put]
func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.CoursePatch
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	course, err := cc.Content.UpdateCourse(c.UserContext(), actor, courseID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, course)
}

// Enroll godoc
// @Summary Enroll the caller in a course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param input body EnrollRequest false "Enrollment code"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enroll [post]
func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input EnrollRequest
	if len(c.Body()) > 0 {
		if handled, err := parseBody(c, &input); handled {
			return err
		}
	}
	enrollment, err := cc.Enrollments.Enroll(c.UserContext(), actor.UserID, courseID, input.Code)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, enrollment)
}

// Unenroll godoc
// @Summary Drop the caller's enrollment
// @Tags courses
// @Param id path int true "Course ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /courses/{id}/enroll [delete]
func (cc *CoursesController) Unenroll(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := cc.Enrollments.Unenroll(c.UserContext(), actor.UserID, courseID); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

// UpdateCourseSettings godoc
// @Summary Open or close enrollment
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param input body EnrollmentSettingsRequest true "Settings"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/settings [put]
func (cc *CoursesController) UpdateCourseSettings(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input EnrollmentSettingsRequest
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	course, err := cc.Content.SetEnrollmentOpen(c.UserContext(), actor, courseID, *input.Open)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, course)
}

// RegenerateEnrollmentCode godoc
// @Summary Issue a new enrollment code
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enrollment-code [post]
func (cc *CoursesController) RegenerateEnrollmentCode(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	code, err := cc.Content.RegenerateEnrollmentCode(c.UserContext(), actor, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"enrollment_code": code})
}

// ClearEnrollmentCode godoc
// @Summary Remove the enrollment code
// @Tags courses
// @Param id path int true "Course ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /courses/{id}/enrollment-code [delete]
func (cc *CoursesController) ClearEnrollmentCode(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := cc.Content.ClearEnrollmentCode(c.UserContext(), actor, courseID); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

// GetCoursePerformance godoc
// @Summary Learner performance in a course
// @Description Learners read their own numbers; authors pass user_id
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Param user_id query int false "Learner ID, defaults to the caller"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/performance [get]
func (cc *CoursesController) GetCoursePerformance(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	userID := actor.UserID
	if raw := c.QueryInt("user_id"); raw > 0 {
		userID = uint(raw)
	}
	perf, err := cc.Progress.CoursePerformance(c.UserContext(), actor, userID, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, perf)
}

// GetLessonProgress godoc
// @Summary The caller's lesson progress rows in a course
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/lessons/progress [get]
func (cc *CoursesController) GetLessonProgress(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	rows, err := cc.Progress.ListLessonProgress(c.UserContext(), actor.UserID, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, rows)
}

// CompleteCourse godoc
// @Summary Mark the caller's enrollment completed
// @Description Allowed once overall progress reaches 100
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/complete [post]
func (cc *CoursesController) CompleteCourse(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	perf, err := cc.Progress.CompleteCourse(c.UserContext(), actor.UserID, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.OK(c, "Course completed", perf)
}

// CreateModule godoc
// @Summary Add a module to a course
// @Tags modules
// @Accept json
// @Produce json
// @Param input body services.ModuleInput true "Module"
// @Success 201 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /modules [post]
func (cc *CoursesController) CreateModule(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.ModuleInput
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	module, err := cc.Content.CreateModule(c.UserContext(), actor, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, module)
}

// GetModule godoc
// @Summary Get module
// @Tags modules
// @Produce json
// @Param id path int true "Module ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /modules/{id} [get]
func (cc *CoursesController) GetModule(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	moduleID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	module, err := cc.Content.GetModule(c.UserContext(), moduleID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if actor.Role == models.RoleLearner && module.Status != models.StatusPublished {
		return utils.NotFound(c, "Module not found")
	}
	return utils.Success(c, fiber.StatusOK, module)
}

// UpdateModule godoc
// @Summary Update module fields
// @Tags modules
// @Accept json
// @Produce json
// @Param id path int true "Module ID"
// @Param input body services.ModulePatch true "Changed fields"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /modules/{id} [put]
func (cc *CoursesController) UpdateModule(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	moduleID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.ModulePatch
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	module, err := cc.Content.UpdateModule(c.UserContext(), actor, moduleID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, module)
}

// AddLesson godoc
// @Summary Add a lesson to a module
// @Tags lessons
// @Accept json
// @Produce json
// @Param input body services.LessonInput true "Lesson"
// @Success 201 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /lessons [post]
func (cc *CoursesController) AddLesson(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.LessonInput
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	lesson, err := cc.Content.CreateLesson(c.UserContext(), actor, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, lesson)
}

// GetLesson godoc
// @Summary Get lesson
// @Tags lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /lessons/{id} [get]
func (cc *CoursesController) GetLesson(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	lesson, err := cc.Content.GetLesson(c.UserContext(), lessonID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if actor.Role == models.RoleLearner {
		if lesson.Status != models.StatusPublished {
			return utils.NotFound(c, "Lesson not found")
		}
		if err := cc.Enrollments.RequireActive(c.UserContext(), actor.UserID, lesson.CourseID); err != nil {
			return utils.HandleError(c, err)
		}
	}
	return utils.Success(c, fiber.StatusOK, lesson)
}

// UpdateLesson godoc
// @Summary Update lesson fields
// @Tags lessons
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param input body services.LessonPatch true "Changed fields"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /lessons/{id} [put]
func (cc *CoursesController) UpdateLesson(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.LessonPatch
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	lesson, err := cc.Content.UpdateLesson(c.UserContext(), actor, lessonID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, lesson)
}

type LessonCompletionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// SetLessonCompletion godoc
// @Summary Mark a lesson done or not done for the caller
// @Tags lessons
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param input body LessonCompletionRequest true "Completion flag"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/complete [put]
func (cc *CoursesController) SetLessonCompletion(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input LessonCompletionRequest
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	row, err := cc.Progress.SetLessonCompletion(c.UserContext(), actor.UserID, lessonID, *input.Completed)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, row)
}

// RecordLessonView godoc
// @Summary Record that the caller opened a lesson
// @Tags lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/view [post]
func (cc *CoursesController) RecordLessonView(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	lessonID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	row, err := cc.Progress.RecordLessonView(c.UserContext(), actor.UserID, lessonID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, row)
}
