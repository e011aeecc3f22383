package auth

import (
	"time"

	"sijuk-backend/internal/database"
	"sijuk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type OnboardingStatusResponse struct {
	Completed    bool `json:"completed"`
	HasMaterials bool `json:"has_materials"`
	HasWarungs   bool `json:"has_warungs"`
}

// HasCompletedOnboarding: selesai jika user menandainya sendiri, atau sudah
// punya minimal satu bahan baku atau satu warung.
func HasCompletedOnboarding(userID string) (OnboardingStatusResponse, error) {
	var res OnboardingStatusResponse

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return res, err
	}

	var materials, warungs int64
	if err := database.DB.Model(&models.Material{}).Where("user_id = ?", userID).Count(&materials).Error; err != nil {
		return res, err
	}
	if err := database.DB.Model(&models.Warung{}).Where("user_id = ?", userID).Count(&warungs).Error; err != nil {
		return res, err
	}

	res.HasMaterials = materials > 0
	res.HasWarungs = warungs > 0
	res.Completed = user.OnboardingCompleted || res.HasMaterials || res.HasWarungs
	return res, nil
}

// GET /api/onboarding/status
func OnboardingStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return err
		}
		status, err := HasCompletedOnboarding(userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memeriksa onboarding")
		}
		return c.JSON(status)
	}
}

// POST /api/onboarding/complete
// Dipakai saat user melewati semua langkah onboarding.
func CompleteOnboardingHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := UserID(c)
		if err != nil {
			return err
		}

		now := time.Now()
		res := database.DB.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{"onboarding_completed": true, "onboarding_completed_at": now})
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan status onboarding")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "User tidak ditemukan")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
