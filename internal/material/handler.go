package material

import (
	"errors"
	"fmt"
	"strings"

	"sijuk-backend/internal/audit"
	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateMaterialRequest struct {
	Name     string           `json:"name"`
	Unit     models.Unit      `json:"unit"`
	BuyPrice decimal.Decimal  `json:"buy_price"`
	Stock    *decimal.Decimal `json:"stock"`
}

type UpdateMaterialRequest struct {
	Name     *string          `json:"name"`
	Unit     *models.Unit     `json:"unit"`
	BuyPrice *decimal.Decimal `json:"buy_price"`
	Stock    *decimal.Decimal `json:"stock"`
}

type AddStockRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// FindMaterial loads one of the user's materials or returns 404.
func FindMaterial(db *gorm.DB, userID, id string) (*models.Material, error) {
	var m models.Material
	if err := db.First(&m, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Bahan baku tidak ditemukan")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat bahan baku")
	}
	return &m, nil
}

// POST /api/materials
func CreateMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nama bahan wajib diisi")
		}
		if !body.Unit.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Satuan harus kg, liter, tabung, pack, bal atau lembar")
		}
		if body.BuyPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Harga beli tidak boleh negatif")
		}
		stock := decimal.Zero
		if body.Stock != nil {
			if body.Stock.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Stok tidak boleh negatif")
			}
			stock = *body.Stock
		}

		m := models.Material{
			UserID:   userID,
			Name:     body.Name,
			Unit:     body.Unit,
			BuyPrice: body.BuyPrice,
			Stock:    stock,
		}
		if err := database.DB.Create(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan bahan baku")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityMaterial,
			EntityID:    m.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Bahan baku ditambahkan: %s", m.Name),
			After:       m,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// GET /api/materials
func ListMaterialsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var rows []models.Material
		if err := database.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat bahan baku")
		}
		return c.JSON(rows)
	}
}

// GET /api/materials/:id
func GetMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}
		m, err := FindMaterial(database.DB, userID, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

// PUT /api/materials/:id
func UpdateMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		m, err := FindMaterial(database.DB, userID, c.Params("id"))
		if err != nil {
			return err
		}
		before := *m

		var body UpdateMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Nama bahan tidak boleh kosong")
			}
			m.Name = name
		}
		if body.Unit != nil {
			if !body.Unit.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Satuan tidak valid")
			}
			m.Unit = *body.Unit
		}
		if body.BuyPrice != nil {
			if body.BuyPrice.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Harga beli tidak boleh negatif")
			}
			m.BuyPrice = *body.BuyPrice
		}
		if body.Stock != nil {
			if body.Stock.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Stok tidak boleh negatif")
			}
			m.Stock = *body.Stock
		}

		if err := database.DB.Save(m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memperbarui bahan baku")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityMaterial,
			EntityID:    m.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Bahan baku diubah: %s", m.Name),
			Before:      before,
			After:       m,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.JSON(m)
	}
}

// DELETE /api/materials/:id
// Bahan yang sudah tercatat di batch produksi tidak bisa dihapus.
func DeleteMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		m, err := FindMaterial(database.DB, userID, c.Params("id"))
		if err != nil {
			return err
		}

		var used int64
		if err := database.DB.Model(&models.ProductionItem{}).Where("material_id = ?", m.ID).Count(&used).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memeriksa pemakaian bahan")
		}
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bahan baku sudah dipakai di batch produksi")
		}

		if err := database.DB.Delete(m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menghapus bahan baku")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityMaterial,
			EntityID:    m.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Bahan baku dihapus: %s", m.Name),
			Before:      m,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/materials/:id/stock
// Stok masuk: stock += amount
func AddStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body AddStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}
		if !body.Amount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Jumlah stok masuk harus lebih dari 0")
		}

		m, err := FindMaterial(database.DB, userID, c.Params("id"))
		if err != nil {
			return err
		}
		before := *m

		// increment di database, bukan read-modify-write
		res := database.DB.Model(&models.Material{}).
			Where("id = ? AND user_id = ?", m.ID, userID).
			Update("stock", gorm.Expr("stock + ?", body.Amount))
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menambah stok")
		}

		m, err = FindMaterial(database.DB, userID, m.ID)
		if err != nil {
			return err
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityMaterial,
			EntityID:    m.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Stok masuk %s: +%s %s", m.Name, body.Amount.String(), m.Unit),
			Before:      before,
			After:       m,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.JSON(m)
	}
}
