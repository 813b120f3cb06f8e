package middleware

import (
	"time"

	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

func LoggingMiddleware(logger *utils.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Передаем управление следующему обработчику
		err := c.Next()

		fields := []interface{}{
			"ip", c.IP(),
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
		}
		if actor, ok := Actor(c); ok {
			fields = append(fields, "user_id", actor.UserID, "role", actor.Role)
		}
		if err != nil {
			logger.Error("Request failed", append(fields, "error", err)...)
			return err
		}
		logger.Info("Request handled", fields...)
		return nil
	}
}
