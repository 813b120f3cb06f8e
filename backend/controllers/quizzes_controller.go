package controllers

import (
	"coursehub/backend/config"
	"coursehub/backend/models"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type QuizzesController struct {
	Content *services.ContentService
	Quizzes *services.QuizService
	Cfg     *config.Config
}

func NewQuizzesController(content *services.ContentService, quizzes *services.QuizService, cfg *config.Config) *QuizzesController {
	return &QuizzesController{Content: content, Quizzes: quizzes, Cfg: cfg}
}

type SubmitAttemptRequest struct {
	Answers []models.Answer `json:"answers"`
}

// CreateQuiz godoc
// @Summary Create quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param input body services.QuizInput true "Quiz"
// @Success 201 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /quizzes [post]
func (qc *QuizzesController) CreateQuiz(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.QuizInput
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	quiz, err := qc.Content.CreateQuiz(c.UserContext(), actor, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, quiz)
}

// GetQuizDetails godoc
// @Summary Get quiz with its questions
// @Description Correct answers are never serialized
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id} [get]
func (qc *QuizzesController) GetQuizDetails(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	quizID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	quiz, err := qc.Content.GetQuiz(c.UserContext(), actor, quizID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, quiz)
}

// UpdateQuiz godoc
// @Summary Update quiz settings
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path int true "Quiz ID"
// @Param input body services.QuizPatch true "Changed fields"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id} [put]
func (qc *QuizzesController) UpdateQuiz(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	quizID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.QuizPatch
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	quiz, err := qc.Content.UpdateQuiz(c.UserContext(), actor, quizID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, quiz)
}

// AddQuestion godoc
// @Summary Add a question
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path int true "Quiz ID"
// @Param input body services.QuestionInput true "Question"
// @Success 201 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id}/questions [post]
func (qc *QuizzesController) AddQuestion(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	quizID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.QuestionInput
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	question, err := qc.Content.AddQuestion(c.UserContext(), actor, quizID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, question)
}

// UpdateQuestion godoc
// @Summary Replace a question
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path int true "Quiz ID"
// @Param questionId path int true "Question ID"
// @Param input body services.QuestionInput true "Question"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id}/questions/{questionId} [put]
func (qc *QuizzesController) UpdateQuestion(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	questionID, err := paramID(c, "questionId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input services.QuestionInput
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	question, err := qc.Content.UpdateQuestion(c.UserContext(), actor, questionID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, question)
}

// DeleteQuestion godoc
// @Summary Remove a question
// @Tags quizzes
// @Param id path int true "Quiz ID"
// @Param questionId path int true "Question ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /quizzes/{id}/questions/{questionId} [delete]
func (qc *QuizzesController) DeleteQuestion(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	questionID, err := paramID(c, "questionId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := qc.Content.DeleteQuestion(c.UserContext(), actor, questionID); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}

// StartAttempt godoc
// @Summary Open a new attempt
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz ID"
// @Success 201 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 429 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id}/attempts [post]
func (qc *QuizzesController) StartAttempt(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	quizID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	attempt, err := qc.Quizzes.StartAttempt(c.UserContext(), actor.UserID, quizID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Created(c, attempt)
}

// SubmitAttempt godoc
// @Summary Submit answers and grade the attempt
// @Tags quizzes
// @Accept json
// @Produce json
// @Param attemptId path int true "Attempt ID"
// @Param input body SubmitAttemptRequest true "Answers"
// @Success 200 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/attempts/{attemptId}/submit [post]
func (qc *QuizzesController) SubmitAttempt(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	attemptID, err := paramID(c, "attemptId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input SubmitAttemptRequest
	if handled, err := parseBody(c, &input); handled {
		return err
	}
	attempt, err := qc.Quizzes.SubmitAttempt(c.UserContext(), actor.UserID, attemptID, input.Answers)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, attempt)
}

// GetUserAttempts godoc
// @Summary The caller's attempts at a quiz
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id}/attempts [get]
func (qc *QuizzesController) GetUserAttempts(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	quizID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	attempts, err := qc.Quizzes.ListAttempts(c.UserContext(), actor.UserID, quizID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, attempts)
}

// GetAttemptResult godoc
// @Summary Get one attempt
// @Tags quizzes
// @Produce json
// @Param attemptId path int true "Attempt ID"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /quizzes/attempts/{attemptId} [get]
func (qc *QuizzesController) GetAttemptResult(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	attemptID, err := paramID(c, "attemptId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	attempt, err := qc.Quizzes.GetAttempt(c.UserContext(), actor, attemptID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, attempt)
}
