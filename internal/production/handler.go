package production

import (
	"errors"
	"fmt"
	"strings"

	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/costing"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/logger"
	"sijuk-backend/internal/metrics"
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductionItemInput struct {
	MaterialID   string          `json:"material_id"`
	QuantityUsed decimal.Decimal `json:"quantity_used"`
}

type CreateBatchRequest struct {
	Date             string                `json:"date"` // "2026-10-18", kosong = hari ini
	QuantityProduced int                   `json:"quantity_produced"`
	Items            []ProductionItemInput `json:"items"`
	Notes            string                `json:"notes"`
}

// StockShortage: bahan yang dipakai melebihi stok tercatat (stok dipotong ke 0).
type StockShortage struct {
	MaterialID   string          `json:"material_id"`
	Name         string          `json:"name"`
	StockBefore  decimal.Decimal `json:"stock_before"`
	QuantityUsed decimal.Decimal `json:"quantity_used"`
}

type CreateBatchResponse struct {
	Batch          models.ProductionBatch `json:"batch"`
	HPPPerUnit     decimal.Decimal        `json:"hpp_per_unit"`
	StockShortages []StockShortage        `json:"stock_shortages"`
}

// LatestHPP returns the HPP of the user's most recent batch; ok is false when
// nothing has been produced yet.
func LatestHPP(db *gorm.DB, userID string) (hpp decimal.Decimal, ok bool, err error) {
	var batch models.ProductionBatch
	err = db.Select("hpp_per_unit").
		Where("user_id = ?", userID).
		Order("date desc, created_at desc").
		First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return batch.HPPPerUnit, true, nil
}

// POST /api/production-batches
// Harga bahan diambil dari harga beli saat ini, stok bahan dikurangi.
func CreateBatchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}
		if body.QuantityProduced < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Jumlah produksi tidak boleh negatif")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Minimal satu bahan baku harus diisi")
		}
		date, err := period.ParseDate(body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Format tanggal harus 'YYYY-MM-DD'")
		}

		ids := make([]string, 0, len(body.Items))
		for _, it := range body.Items {
			if it.MaterialID == "" {
				return fiber.NewError(fiber.StatusBadRequest, "material_id wajib diisi")
			}
			ids = append(ids, it.MaterialID)
		}

		tx := database.DB.Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memulai transaksi")
		}

		// stok dibaca ulang dan dikunci sampai commit
		var mats []models.Material
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Order("id").
			Find(&mats).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat bahan baku")
		}
		byID := make(map[string]*models.Material, len(mats))
		for i := range mats {
			byID[mats[i].ID] = &mats[i]
		}

		usages := make([]costing.MaterialUsage, 0, len(body.Items))
		for _, it := range body.Items {
			m, ok := byID[it.MaterialID]
			if !ok {
				tx.Rollback()
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Bahan baku tidak ditemukan: %s", it.MaterialID))
			}
			usages = append(usages, costing.MaterialUsage{
				MaterialID: m.ID,
				Quantity:   it.QuantityUsed,
				UnitPrice:  m.BuyPrice,
			})
		}

		cost, err := costing.CalculateBatch(usages, body.QuantityProduced)
		if err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		batch := models.ProductionBatch{
			UserID:            userID,
			Date:              date,
			TotalMaterialCost: cost.TotalMaterialCost,
			QuantityProduced:  body.QuantityProduced,
			HPPPerUnit:        cost.HPPPerUnit,
			Notes:             strings.TrimSpace(body.Notes),
			Items:             make([]models.ProductionItem, 0, len(cost.Items)),
		}
		for _, ic := range cost.Items {
			batch.Items = append(batch.Items, models.ProductionItem{
				MaterialID:      ic.MaterialID,
				QuantityUsed:    ic.Quantity,
				UnitPriceAtTime: ic.UnitPrice,
				TotalCost:       ic.TotalCost,
			})
		}

		shortages := make([]StockShortage, 0)

		if err := tx.Create(&batch).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan batch produksi")
		}

		for _, ic := range cost.Items {
			m := byID[ic.MaterialID]
			left, short := costing.ConsumeStock(m.Stock, ic.Quantity)
			if short {
				shortages = append(shortages, StockShortage{
					MaterialID:   m.ID,
					Name:         m.Name,
					StockBefore:  m.Stock,
					QuantityUsed: ic.Quantity,
				})
			}
			if err := tx.Model(&models.Material{}).Where("id = ?", m.ID).Update("stock", left).Error; err != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "Gagal mengurangi stok bahan")
			}
			// bahan yang sama bisa muncul dua kali
			m.Stock = left
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan batch produksi")
		}

		metrics.BatchesProduced.Inc()
		metrics.UnitsProduced.Add(float64(batch.QuantityProduced))
		cache.InvalidateUser(c.UserContext(), userID)

		if len(shortages) > 0 {
			logger.FromCtx(c).Warn("stok bahan tidak cukup untuk batch",
				zap.String("batch_id", batch.ID), zap.Int("materials", len(shortages)))
		}

		return c.Status(fiber.StatusCreated).JSON(CreateBatchResponse{
			Batch:          batch,
			HPPPerUnit:     batch.HPPPerUnit,
			StockShortages: shortages,
		})
	}
}

// GET /api/production-batches
func ListBatchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var rows []models.ProductionBatch
		if err := database.DB.
			Preload("Items.Material").
			Where("user_id = ?", userID).
			Order("date desc, created_at desc").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat batch produksi")
		}
		return c.JSON(rows)
	}
}

// GET /api/production-batches/:id
func GetBatchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var batch models.ProductionBatch
		if err := database.DB.
			Preload("Items.Material").
			First(&batch, "id = ? AND user_id = ?", c.Params("id"), userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Batch produksi tidak ditemukan")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat batch produksi")
		}
		return c.JSON(batch)
	}
}

// GET /api/production-batches/latest-hpp
func LatestHPPHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		hpp, ok, err := LatestHPP(database.DB, userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat HPP terakhir")
		}
		if !ok {
			return c.JSON(fiber.Map{"hpp_per_unit": nil})
		}
		return c.JSON(fiber.Map{"hpp_per_unit": hpp})
	}
}

// DELETE /api/production-batches/:id
// Stok bahan tidak dikembalikan.
func DeleteBatchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var batch models.ProductionBatch
		if err := database.DB.First(&batch, "id = ? AND user_id = ?", c.Params("id"), userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Batch produksi tidak ditemukan")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat batch produksi")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("batch_id = ?", batch.ID).Delete(&models.ProductionItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&batch).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menghapus batch produksi")
		}

		cache.InvalidateUser(c.UserContext(), userID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
