package controllers

import (
	"sort"

	"coursehub/backend/config"
	"coursehub/backend/models"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type OverviewController struct {
	Enrollments *services.EnrollmentService
	Progress    *services.ProgressService
	Cfg         *config.Config
}

func NewOverviewController(enrollments *services.EnrollmentService, progress *services.ProgressService, cfg *config.Config) *OverviewController {
	return &OverviewController{Enrollments: enrollments, Progress: progress, Cfg: cfg}
}

// GetUserOverview возвращает обзорную информацию для пользователя
func (oc *OverviewController) GetUserOverview(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	progress, err := oc.Progress.PlatformProgress(c.UserContext(), actor.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	enrollments, err := oc.Enrollments.ListForUser(c.UserContext(), actor.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	// Незавершённые курсы с наименьшим прогрессом идут первыми
	var inProgress []fiber.Map
	for _, perf := range progress.Courses {
		if perf.IsComplete {
			continue
		}
		inProgress = append(inProgress, fiber.Map{
			"course_id":        perf.CourseID,
			"overall_progress": perf.OverallProgress,
		})
	}
	sortByProgress(inProgress)

	var completed int
	for _, e := range enrollments {
		if e.Status == models.EnrollmentCompleted {
			completed++
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"active_courses":    progress.ActiveCourses,
		"courses_completed": completed,
		"overall_progress":  progress.OverallProgress,
		"in_progress":       inProgress,
	})
}

func sortByProgress(rows []fiber.Map) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i]["overall_progress"].(float64) < rows[j]["overall_progress"].(float64)
	})
}
