package audit

import (
	"errors"
	"strconv"

	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/audit-logs?entity_type=expense&limit=50
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			return fiber.NewError(fiber.StatusBadRequest, "limit harus 1-500")
		}

		q := database.DB.Where("user_id = ?", userID)
		if et := c.Query("entity_type"); et != "" {
			if _, err := newEntity(et); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "entity_type tidak valid")
			}
			q = q.Where("entity_type = ?", et)
		}

		var logs []models.AuditLog
		if err := q.Order("created_at desc, id desc").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat audit log")
		}
		return c.JSON(logs)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id tidak valid")
		}

		if err := UndoLog(uint(id), userID); err != nil {
			switch {
			case errors.Is(err, ErrLogNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Log tidak ditemukan")
			case errors.Is(err, ErrAlreadyUndone):
				return fiber.NewError(fiber.StatusBadRequest, ErrAlreadyUndone.Error())
			case errors.Is(err, ErrNotUndoable):
				return fiber.NewError(fiber.StatusBadRequest, ErrNotUndoable.Error())
			case errors.Is(err, ErrInUse):
				return fiber.NewError(fiber.StatusBadRequest, ErrInUse.Error())
			case errors.Is(err, ErrEntityGone):
				return fiber.NewError(fiber.StatusBadRequest, ErrEntityGone.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal membatalkan perubahan")
		}

		cache.InvalidateUser(c.UserContext(), userID)
		return c.JSON(fiber.Map{"message": "Perubahan berhasil dibatalkan"})
	}
}
