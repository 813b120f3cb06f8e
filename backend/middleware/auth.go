package middleware

import (
	"coursehub/backend/config"
	"coursehub/backend/models"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const actorKey = "actor"

// AuthMiddleware resolves the caller from the bearer token and stores it in
// the request locals.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := utils.ExtractActorFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Unauthorized")
		}
		c.Locals(actorKey, actor)
		return c.Next()
	}
}

// RequireRole rejects callers whose role is not listed. Must run after
// AuthMiddleware.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := Actor(c)
		if !ok {
			return utils.Unauthorized(c, "Unauthorized")
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return utils.Forbidden(c, "Forbidden - insufficient role")
	}
}

// Actor returns the caller stored by AuthMiddleware.
func Actor(c *fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals(actorKey).(models.Actor)
	return actor, ok
}
