package controllers

import (
	"coursehub/backend/config"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Progress *services.ProgressService
	Cfg      *config.Config
}

func NewProgressController(progress *services.ProgressService, cfg *config.Config) *ProgressController {
	return &ProgressController{Progress: progress, Cfg: cfg}
}

type GuideStepRequest struct {
	Step       *int  `json:"step" validate:"required,gte=0"`
	TotalSteps int   `json:"total_steps" validate:"gte=0"`
	Done       *bool `json:"done" validate:"required"`
}

// GetProgressOverview godoc
// @Summary Get progress overview
// @Description Overall progress across the caller's active enrollments
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress/overview [get]
func (pc *ProgressController) GetProgressOverview(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	overview, err := pc.Progress.PlatformProgress(c.UserContext(), actor.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, overview)
}

// GetGuideProgress godoc
// @Summary Get guide progress
// @Tags progress
// @Produce json
// @Param guideId path string true "Guide ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /progress/guides/{guideId} [get]
func (pc *ProgressController) GetGuideProgress(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	guide, err := pc.Progress.GetGuideProgress(c.UserContext(), actor.UserID, c.Params("guideId"))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, guide)
}

// UpdateGuideStep godoc
// @Summary Mark a guide step done or undone
// @Tags progress
// @Accept json
// @Produce json
// @Param guideId path string true "Guide ID"
// @Param input body GuideStepRequest true "Step"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /progress/guides/{guideId} [put]
func (pc *ProgressController) UpdateGuideStep(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input GuideStepRequest
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	guide, err := pc.Progress.UpdateGuideStep(c.UserContext(), actor.UserID, c.Params("guideId"), *input.Step, input.TotalSteps, *input.Done)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, guide)
}
