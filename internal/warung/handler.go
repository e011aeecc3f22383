package warung

import (
	"errors"
	"fmt"
	"strings"

	"sijuk-backend/internal/audit"
	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/costing"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------------------------
// Request
// -------------------------

type CreateWarungRequest struct {
	Name              string             `json:"name"`
	Address           string             `json:"address"`
	Phone             string             `json:"phone"`
	PriceScheme       models.PriceScheme `json:"price_scheme"`
	NetPrice          *decimal.Decimal   `json:"net_price"`
	SellingPrice      *decimal.Decimal   `json:"selling_price"`
	CommissionPercent *decimal.Decimal   `json:"commission_percent"`
}

type UpdateWarungRequest struct {
	Name              *string             `json:"name"`
	Address           *string             `json:"address"`
	Phone             *string             `json:"phone"`
	PriceScheme       *models.PriceScheme `json:"price_scheme"`
	NetPrice          *decimal.Decimal    `json:"net_price"`
	SellingPrice      *decimal.Decimal    `json:"selling_price"`
	CommissionPercent *decimal.Decimal    `json:"commission_percent"`
}

type SetStockRequest struct {
	CurrentStock *int `json:"current_stock"`
}

// FindWarung loads one of the user's warungs (active or not) or returns 404.
func FindWarung(db *gorm.DB, userID, id string) (*models.Warung, error) {
	var w models.Warung
	if err := db.First(&w, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Warung tidak ditemukan")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat warung")
	}
	return &w, nil
}

func validate(w *models.Warung) error {
	if strings.TrimSpace(w.Name) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Nama warung wajib diisi")
	}
	if err := costing.ValidatePricing(costing.PricingOf(w)); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// POST /api/warungs
func CreateWarungHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateWarungRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}

		if body.PriceScheme == "" {
			body.PriceScheme = models.PriceSchemeNet
		}

		w := models.Warung{
			UserID:            userID,
			Name:              strings.TrimSpace(body.Name),
			Address:           strings.TrimSpace(body.Address),
			Phone:             strings.TrimSpace(body.Phone),
			PriceScheme:       body.PriceScheme,
			NetPrice:          body.NetPrice,
			SellingPrice:      body.SellingPrice,
			CommissionPercent: body.CommissionPercent,
			CurrentStock:      0,
			IsActive:          true,
		}
		if err := validate(&w); err != nil {
			return err
		}

		if err := database.DB.Create(&w).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan warung")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityWarung,
			EntityID:    w.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Warung ditambahkan: %s", w.Name),
			After:       w,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.Status(fiber.StatusCreated).JSON(w)
	}
}

// GET /api/warungs?search=
// Hanya warung aktif.
func ListWarungsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		q := database.DB.Where("user_id = ? AND is_active = ?", userID, true)
		if s := strings.TrimSpace(c.Query("search")); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			q = q.Where("(LOWER(name) LIKE ? OR LOWER(address) LIKE ?)", like, like)
		}

		var rows []models.Warung
		if err := q.Order("created_at desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat warung")
		}
		return c.JSON(rows)
	}
}

// GET /api/warungs/:id
func GetWarungHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		w, err := FindWarung(database.DB, userID, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(w)
	}
}

// PUT /api/warungs/:id
// Harga divalidasi ulang setelah digabung dengan data lama.
func UpdateWarungHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		w, err := FindWarung(database.DB, userID, c.Params("id"))
		if err != nil {
			return err
		}
		before := *w

		var body UpdateWarungRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}

		if body.Name != nil {
			w.Name = strings.TrimSpace(*body.Name)
		}
		if body.Address != nil {
			w.Address = strings.TrimSpace(*body.Address)
		}
		if body.Phone != nil {
			w.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.PriceScheme != nil {
			w.PriceScheme = *body.PriceScheme
		}
		if body.NetPrice != nil {
			w.NetPrice = body.NetPrice
		}
		if body.SellingPrice != nil {
			w.SellingPrice = body.SellingPrice
		}
		if body.CommissionPercent != nil {
			w.CommissionPercent = body.CommissionPercent
		}
		if err := validate(w); err != nil {
			return err
		}

		if err := database.DB.Save(w).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memperbarui warung")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityWarung,
			EntityID:    w.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Warung diperbarui: %s", w.Name),
			Before:      before,
			After:       w,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.JSON(w)
	}
}

// DELETE /api/warungs/:id
// Soft delete: riwayat transaksi tetap ada.
func DeleteWarungHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		w, err := FindWarung(database.DB, userID, c.Params("id"))
		if err != nil {
			return err
		}
		before := *w

		if err := database.DB.Model(w).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menghapus warung")
		}
		w.IsActive = false

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityWarung,
			EntityID:    w.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Warung dinonaktifkan: %s", w.Name),
			Before:      before,
			After:       w,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PUT /api/warungs/:id/stock
func SetStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		w, err := FindWarung(database.DB, userID, c.Params("id"))
		if err != nil {
			return err
		}
		before := *w

		var body SetStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}
		if body.CurrentStock == nil || *body.CurrentStock < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Stok harus diisi dan tidak boleh negatif")
		}

		if err := database.DB.Model(w).Update("current_stock", *body.CurrentStock).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memperbarui stok warung")
		}
		w.CurrentStock = *body.CurrentStock

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityWarung,
			EntityID:    w.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Stok warung %s diubah: %d -> %d", w.Name, before.CurrentStock, w.CurrentStock),
			Before:      before,
			After:       w,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.JSON(w)
	}
}
