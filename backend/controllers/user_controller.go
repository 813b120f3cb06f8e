package controllers

import (
	"errors"

	"coursehub/backend/config"
	"coursehub/backend/models"
	"coursehub/backend/services"
	"coursehub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB          *gorm.DB
	Cfg         *config.Config
	Enrollments *services.EnrollmentService
	Progress    *services.ProgressService
}

func NewUserController(db *gorm.DB, cfg *config.Config, enrollments *services.EnrollmentService, progress *services.ProgressService) *UserController {
	return &UserController{DB: db, Cfg: cfg, Enrollments: enrollments, Progress: progress}
}

type UpdateUserRequest struct {
	Username    string `json:"username" validate:"omitempty,min=3,max=20"`
	Email       string `json:"email" validate:"omitempty,email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"omitempty,min=8"`
}

type SetRoleRequest struct {
	Role models.Role `json:"role" validate:"required,oneof=LEARNER FACULTY ADMIN"`
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile, enrollments and overall progress
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var user models.User
	if err := uc.DB.First(&user, actor.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	enrollments, err := uc.Enrollments.ListForUser(c.UserContext(), actor.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	progress, err := uc.Progress.PlatformProgress(c.UserContext(), actor.UserID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	// Формируем ответ без чувствительных данных
	profile := userView(&user)
	profile["created_at"] = user.CreatedAt
	profile["enrollments"] = enrollments
	profile["progress"] = progress
	return utils.Success(c, fiber.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Updates authenticated user's username, email or password
// @Tags users
// @Accept json
// @Produce json
// @Param input body UpdateUserRequest true "Profile update data"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var input UpdateUserRequest
	if handled, err := parseBody(c, &input); handled {
		return err
	}

	var user models.User
	if err := uc.DB.First(&user, actor.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	// Обновление имени пользователя
	if input.Username != "" && input.Username != user.Username {
		if uc.taken("username", input.Username, user.ID) {
			return utils.Conflict(c, "Username already taken")
		}
		user.Username = input.Username
	}

	// Обновление email
	if input.Email != "" && input.Email != user.Email {
		if uc.taken("email", input.Email, user.ID) {
			return utils.Conflict(c, "Email already taken")
		}
		user.Email = input.Email
	}

	// Обновление пароля
	if input.NewPassword != "" {
		if input.OldPassword == "" {
			return utils.BadRequest(c, "Old password is required to set new password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.Unauthorized(c, "Invalid old password")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}

	return utils.OK(c, "Profile updated successfully", userView(&user))
}

func (uc *UserController) taken(column, value string, self uint) bool {
	var existing models.User
	err := uc.DB.Where(column+" = ?", value).First(&existing).Error
	return err == nil && existing.ID != self
}

// GetUserCourses godoc
// @Summary Get user's courses
// @Description Returns the caller's enrollments; status=active limits to active ones
// @Tags users
// @Produce json
// @Param status query string false "Filter by status (all|active)" default(all)
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /users/courses [get]
func (uc *UserController) GetUserCourses(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var enrollments []models.Enrollment
	if c.Query("status") == "active" {
		enrollments, err = uc.Enrollments.ListActiveForUser(c.UserContext(), actor.UserID)
	} else {
		enrollments, err = uc.Enrollments.ListForUser(c.UserContext(), actor.UserID)
	}
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, enrollments)
}

// SetRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param input body SetRoleRequest true "New role"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/users/{id}/role [put]
func (uc *UserController) SetRole(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input SetRoleRequest
	if handled, err := parseBody(c, &input); handled {
		return err
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if err := uc.DB.Model(&user).Update("role", input.Role).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}
	user.Role = input.Role
	return utils.OK(c, "Role updated", userView(&user))
}

// DeactivateEnrollment godoc
// @Summary Drop a learner from a course
// @Tags admin
// @Param id path int true "User ID"
// @Param courseId path int true "Course ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /admin/users/{id}/enrollments/{courseId} [delete]
func (uc *UserController) DeactivateEnrollment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	userID, err := paramID(c, "id")
	if err != nil {
		return utils.HandleError(c, err)
	}
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := uc.Enrollments.Deactivate(c.UserContext(), actor, userID, courseID); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.NoContent(c)
}
