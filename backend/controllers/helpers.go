package controllers

import (
	"strconv"

	"coursehub/backend/middleware"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// paramID reads a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func currentActor(c *fiber.Ctx) (models.Actor, error) {
	actor, ok := middleware.Actor(c)
	if !ok {
		return models.Actor{}, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return actor, nil
}

// parseBody decodes the JSON body and runs struct validation on it. A nil
// error with handled=true means the response has already been written.
func parseBody(c *fiber.Ctx, out interface{}) (handled bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return true, utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(out); errs != nil {
		return true, utils.ValidationError(c, errs)
	}
	return false, nil
}
