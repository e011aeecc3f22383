package auth

import (
	"strings"

	"sijuk-backend/internal/database"
	"sijuk-backend/internal/logger"
	"sijuk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		OnboardingCompleted: u.OnboardingCompleted,
	}
}

func userCount() (int64, error) {
	var count int64
	err := database.DB.Model(&models.User{}).Count(&count).Error
	return count, err
}

// GET /api/auth/can-register
// Pendaftaran hanya dibuka selama belum ada user sama sekali.
func CanRegisterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := userCount()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memeriksa user")
		}
		return c.JSON(fiber.Map{"can_register": count == 0})
	}
}

// POST /api/auth/register
func RegisterHandler(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Name = strings.TrimSpace(body.Name)

		if body.Email == "" || body.Password == "" || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nama, email dan password wajib diisi")
		}
		if len(body.Password) < 8 {
			return fiber.NewError(fiber.StatusBadRequest, "Password minimal 8 karakter")
		}

		count, err := userCount()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memeriksa user")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "Pendaftaran sudah ditutup")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memproses password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal membuat user")
		}

		token, err := GenerateToken(secret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal membuat token")
		}

		logger.FromCtx(c).Info("user terdaftar", zap.String("user_id", user.ID))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

// POST /api/auth/login
func LoginHandler(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email atau password salah")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email atau password salah")
		}

		token, err := GenerateToken(secret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal membuat token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}
		return c.JSON(toUserResponse(&user))
	}
}
