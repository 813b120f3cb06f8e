package controllers

import (
	"coursehub/backend/config"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AssignmentsController struct {
	Content     *services.ContentService
	Assignments *services.AssignmentService
	Cfg         *config.Config
}

func NewAssignmentsController(content *services.ContentService, assignments *services.AssignmentService, cfg *config.Config) *AssignmentsController {
	return &AssignmentsController{Content: content, Assignments: assignments, Cfg: cfg}
}

type GradeRequest struct {
	Grade    *float64 `json:"grade" validate:"required"`
	Feedback string   `json:"feedback"`
}

// CreateAssignment godoc
// @Summary Create assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param input body services.AssignmentInput true "Assignment"
// @Success 201 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /assignments [post]
func (ac *AssignmentsController) CreateAssignment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.AssignmentInput
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	assignment, err := ac.Content.CreateAssignment(c.UserContext(), actor, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, assignment)
}

// GetAssignment godoc
// @Summary Get assignment
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /assignments/{id} [get]
func (ac *AssignmentsController) GetAssignment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	assignmentID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	assignment, err := ac.Content.GetAssignment(c.UserContext(), actor, assignmentID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, assignment)
}

// UpdateAssignment godoc
// @Summary Update assignment settings
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param input body services.AssignmentPatch true "Changed fields"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /assignments/{id} [put]
func (ac *AssignmentsController) UpdateAssignment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	assignmentID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.AssignmentPatch
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	assignment, err := ac.Content.UpdateAssignment(c.UserContext(), actor, assignmentID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, assignment)
}

// SaveDraft godoc
// @Summary Create or replace the caller's draft
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param input body services.Draft true "Draft payload"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /assignments/{id}/draft [put]
func (ac *AssignmentsController) SaveDraft(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	assignmentID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.Draft
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	draft, err := ac.Assignments.SaveDraft(c.UserContext(), actor.UserID, assignmentID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, draft)
}

// Submit godoc
// @Summary Turn a draft into a submission
// @Tags assignments
// @Produce json
// @Param submissionId path int true "Submission ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /assignments/submissions/{submissionId}/submit [post]
func (ac *AssignmentsController) Submit(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	submissionID, err := paramID(c, "submissionId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	submission, err := ac.Assignments.Submit(c.UserContext(), actor.UserID, submissionID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, submission)
}

// Grade godoc
// @Summary Grade a submission
// @Tags assignments
// @Accept json
// @Produce json
// @Param submissionId path int true "Submission ID"
// @Param input body GradeRequest true "Grade and feedback"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /assignments/submissions/{submissionId}/grade [post]
func (ac *AssignmentsController) Grade(c *fiber.Ctx) error {
	return ac.grade(c, false)
}

// Regrade godoc
// @Summary Change an existing grade
// @Tags assignments
// @Accept json
// @Produce json
// @Param submissionId path int true "Submission ID"
// @Param input body GradeRequest true "Grade and feedback"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /assignments/submissions/{submissionId}/grade [put]
func (ac *AssignmentsController) Regrade(c *fiber.Ctx) error {
	return ac.grade(c, true)
}

func (ac *AssignmentsController) grade(c *fiber.Ctx, regrade bool) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	submissionID, err := paramID(c, "submissionId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input GradeRequest
	if handled, err := parseBody(c, &input); handled {
		return err
	}

	var outcome *services.GradeOutcome
	if regrade {
		outcome, err = ac.Assignments.UpdateGrade(c.UserContext(), actor, submissionID, *input.Grade, input.Feedback)
	} else {
		outcome, err = ac.Assignments.Grade(c.UserContext(), actor, submissionID, *input.Grade, input.Feedback)
	}
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, outcome)
}

// GetSubmissions godoc
// @Summary Every non-draft submission for an assignment
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /assignments/{id}/submissions [get]
func (ac *AssignmentsController) GetSubmissions(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	assignmentID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	submissions, err := ac.Assignments.ListSubmissions(c.UserContext(), actor, assignmentID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, submissions)
}

// GetMySubmissions godoc
// @Summary The caller's submissions for an assignment, including the draft
// @Tags assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /assignments/{id}/submissions/mine [get]
func (ac *AssignmentsController) GetMySubmissions(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	assignmentID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	submissions, err := ac.Assignments.MySubmissions(c.UserContext(), actor.UserID, assignmentID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, submissions)
}
