package controllers

import (
	"coursehub/backend/config"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AnalyticsController struct {
	Progress *services.ProgressService
	Quizzes  *services.QuizService
	Cfg      *config.Config
}

func NewAnalyticsController(progress *services.ProgressService, quizzes *services.QuizService, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{Progress: progress, Quizzes: quizzes, Cfg: cfg}
}

// GetCourseAnalytics возвращает аналитику по курсу
func (ac *AnalyticsController) GetCourseAnalytics(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	stats, err := ac.Progress.CourseAnalytics(c.UserContext(), actor, courseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}

// GetQuizAnalytics возвращает статистику попыток по тесту
func (ac *AnalyticsController) GetQuizAnalytics(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	quizID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	stats, err := ac.Quizzes.Analytics(c.UserContext(), actor, quizID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}
