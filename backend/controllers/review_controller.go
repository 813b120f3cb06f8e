package controllers

import (
	"coursehub/backend/lifecycle"
	"coursehub/backend/models"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// ReviewController serves the status actions, history and deletion shared by
// every content kind.
type ReviewController struct {
	Content *services.ContentService
}

func NewReviewController(content *services.ContentService) *ReviewController {
	return &ReviewController{Content: content}
}

type StatusChangeRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// StatusRoutes maps URL segments to approval actions.
var StatusRoutes = map[string]lifecycle.Action{
	"request-approval": lifecycle.ActionRequestApproval,
	"publish":          lifecycle.ActionPublish,
	"approve":          lifecycle.ActionApprove,
	"reject":           lifecycle.ActionReject,
	"unpublish":        lifecycle.ActionUnpublish,
	"archive":          lifecycle.ActionArchive,
}

// ChangeStatus returns the handler for POST /{kind}/:id/{action}. The body may
// carry a rejection reason.
func (rc *ReviewController) ChangeStatus(kind models.ContentKind, action lifecycle.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := currentActor(c)
		if err != nil {
			return utils.HandleError(c, err)
		}
		id, err := paramID(c, "id")
		if err != nil {
			return utils.HandleError(c, err)
		}
		var input StatusChangeRequest
		if len(c.Body()) > 0 {
			if handled, err := parseBody(c, &input); handled {
				return err
			}
		}
		event, err := rc.Content.ChangeStatus(c.UserContext(), actor, kind, id, action, input.Reason)
		if err != nil {
			return utils.HandleError(c, err)
		}
		return utils.Success(c, fiber.StatusOK, event)
	}
}

// History returns the review events of one item, oldest first.
func (rc *ReviewController) History(kind models.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return utils.HandleError(c, err)
		}
		events, err := rc.Content.ReviewHistory(c.UserContext(), kind, id)
		if err != nil {
			return utils.HandleError(c, err)
		}
		return utils.Success(c, fiber.StatusOK, events)
	}
}

// Delete removes an item unless dependents block it.
func (rc *ReviewController) Delete(kind models.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := currentActor(c)
		if err != nil {
			return utils.HandleError(c, err)
		}
		id, err := paramID(c, "id")
		if err != nil {
			return utils.HandleError(c, err)
		}
		if err := rc.Content.Delete(c.UserContext(), actor, kind, id); err != nil {
			return utils.HandleError(c, err)
		}
		return utils.NoContent(c)
	}
}
