package utils

import (
	"testing"

	"coursehub/backend/apperr"
	"coursehub/backend/config"
	"coursehub/backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret"}
	token, err := GenerateJWTToken(42, models.RoleFaculty, cfg)
	require.NoError(t, err)

	actor, err := ParseToken(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(42), actor.UserID)
	assert.Equal(t, models.RoleFaculty, actor.Role)

	_, err = ParseToken(token, &config.Config{JWTSecret: "other"})
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.NotFound:          fiber.StatusNotFound,
		apperr.Conflict:          fiber.StatusConflict,
		apperr.ValidationFailed:  fiber.StatusUnprocessableEntity,
		apperr.Forbidden:         fiber.StatusForbidden,
		apperr.QuotaExceeded:     fiber.StatusTooManyRequests,
		apperr.DependencyExists:  fiber.StatusConflict,
		apperr.InvalidTransition: fiber.StatusConflict,
	}
	for kind, status := range cases {
		assert.Equal(t, status, StatusFor(apperr.New(kind, "x")), kind)
	}
	assert.Equal(t, fiber.StatusUnauthorized, StatusFor(fiber.NewError(fiber.StatusUnauthorized, "no")))
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		Title string  `validate:"required"`
		Grade float64 `validate:"gte=0"`
	}
	errs := ValidateStruct(input{Grade: -1})
	assert.Equal(t, "is required", errs["title"])
	assert.Equal(t, "must be at least 0", errs["grade"])
	assert.Nil(t, ValidateStruct(input{Title: "ok"}))
}
