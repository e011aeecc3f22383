package expense

import (
	"errors"
	"fmt"
	"strings"

	"sijuk-backend/internal/audit"
	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateExpenseRequest struct {
	Date        string                 `json:"date"` // "2026-10-09", kosong = hari ini
	Category    models.ExpenseCategory `json:"category"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description"`
}

type UpdateExpenseRequest struct {
	Date        *string                 `json:"date"`
	Category    *models.ExpenseCategory `json:"category"`
	Amount      *decimal.Decimal        `json:"amount"`
	Description *string                 `json:"description"`
}

type ExpenseResponse struct {
	ID          string                 `json:"id"`
	Category    models.ExpenseCategory `json:"category"`
	Label       string                 `json:"label"`
	Date        string                 `json:"date"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description"`
}

type CategoryTotal struct {
	Category models.ExpenseCategory `json:"category"`
	Label    string                 `json:"label"`
	Total    decimal.Decimal        `json:"total"`
	Count    int                    `json:"count"`
}

type CategorySummaryResponse struct {
	Items      []CategoryTotal `json:"items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

var labels = map[models.ExpenseCategory]string{
	models.ExpenseFuel:    "Bensin",
	models.ExpenseMeal:    "Makan",
	models.ExpenseParking: "Parkir",
	models.ExpenseOther:   "Lain-lain",
}

// Label is the display name of a category.
func Label(c models.ExpenseCategory) string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

func toResponse(e models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		Category:    e.Category,
		Label:       Label(e.Category),
		Date:        e.Date.Format(period.DateLayout),
		Amount:      e.Amount,
		Description: e.Description,
	}
}

// Total sums expenses in r.
func Total(db *gorm.DB, userID string, r period.Range) (decimal.Decimal, error) {
	rows, err := ListInRange(db, userID, r)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range rows {
		total = total.Add(e.Amount)
	}
	return total, nil
}

// ListInRange returns the user's expenses in r, oldest first.
func ListInRange(db *gorm.DB, userID string, r period.Range) ([]models.Expense, error) {
	var rows []models.Expense
	q := r.Apply(db.Where("user_id = ?", userID), "date")
	if err := q.Order("date asc, created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ByCategory totals every category, including empty ones, in a fixed order.
func ByCategory(rows []models.Expense) CategorySummaryResponse {
	totals := make(map[models.ExpenseCategory]*CategoryTotal, len(models.ExpenseCategories))
	resp := CategorySummaryResponse{
		Items:      make([]CategoryTotal, 0, len(models.ExpenseCategories)),
		GrandTotal: decimal.Zero,
	}
	for _, cat := range models.ExpenseCategories {
		totals[cat] = &CategoryTotal{Category: cat, Label: Label(cat), Total: decimal.Zero}
	}
	for _, e := range rows {
		t, ok := totals[e.Category]
		if !ok {
			continue
		}
		t.Total = t.Total.Add(e.Amount)
		t.Count++
		resp.GrandTotal = resp.GrandTotal.Add(e.Amount)
	}
	for _, cat := range models.ExpenseCategories {
		resp.Items = append(resp.Items, *totals[cat])
	}
	return resp
}

func findExpense(userID, id string) (*models.Expense, error) {
	var e models.Expense
	if err := database.DB.First(&e, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Pengeluaran tidak ditemukan")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat pengeluaran")
	}
	return &e, nil
}

// POST /api/expenses
func CreateExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}
		if !body.Category.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori harus bensin, makan, parkir atau lain_lain")
		}
		if !body.Amount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Jumlah harus lebih dari 0")
		}
		date, err := period.ParseDate(body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Format tanggal harus 'YYYY-MM-DD'")
		}

		e := models.Expense{
			UserID:      userID,
			Category:    body.Category,
			Amount:      body.Amount,
			Description: strings.TrimSpace(body.Description),
			Date:        date,
		}
		if err := database.DB.Create(&e).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan pengeluaran")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityExpense,
			EntityID:    e.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Pengeluaran %s: Rp %s", Label(e.Category), e.Amount.StringFixed(0)),
			After:       e,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.Status(fiber.StatusCreated).JSON(toResponse(e))
	}
}

// GET /api/expenses?from=&to=
func ListExpensesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		r, err := period.FromQuery(c)
		if err != nil {
			return err
		}

		var rows []models.Expense
		q := r.Apply(database.DB.Where("user_id = ?", userID), "date")
		if err := q.Order("date desc, created_at desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat pengeluaran")
		}

		resp := make([]ExpenseResponse, 0, len(rows))
		for _, e := range rows {
			resp = append(resp, toResponse(e))
		}
		return c.JSON(resp)
	}
}

// GET /api/expenses/:id
func GetExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		e, err := findExpense(userID, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(toResponse(*e))
	}
}

// PUT /api/expenses/:id
func UpdateExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		e, err := findExpense(userID, c.Params("id"))
		if err != nil {
			return err
		}
		before := *e

		var body UpdateExpenseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}

		if body.Category != nil {
			if !body.Category.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Kategori harus bensin, makan, parkir atau lain_lain")
			}
			e.Category = *body.Category
		}
		if body.Amount != nil {
			if !body.Amount.IsPositive() {
				return fiber.NewError(fiber.StatusBadRequest, "Jumlah harus lebih dari 0")
			}
			e.Amount = *body.Amount
		}
		if body.Date != nil {
			d, err := period.ParseDate(*body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Format tanggal harus 'YYYY-MM-DD'")
			}
			e.Date = d
		}
		if body.Description != nil {
			e.Description = strings.TrimSpace(*body.Description)
		}

		if err := database.DB.Save(e).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memperbarui pengeluaran")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityExpense,
			EntityID:    e.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Pengeluaran diperbarui: %s", Label(e.Category)),
			Before:      before,
			After:       e,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.JSON(toResponse(*e))
	}
}

// DELETE /api/expenses/:id
func DeleteExpenseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		e, err := findExpense(userID, c.Params("id"))
		if err != nil {
			return err
		}

		if err := database.DB.Delete(e).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menghapus pengeluaran")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			EntityType:  audit.EntityExpense,
			EntityID:    e.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Pengeluaran dihapus: %s Rp %s", Label(e.Category), e.Amount.StringFixed(0)),
			Before:      e,
		})
		cache.InvalidateUser(c.UserContext(), userID)

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/expenses/summary?from=&to=
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		r, err := period.FromQuery(c)
		if err != nil {
			return err
		}

		total, err := Total(database.DB, userID, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menghitung total pengeluaran")
		}
		return c.JSON(fiber.Map{"total": total})
	}
}

// GET /api/expenses/by-category?from=&to=
func ByCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		r, err := period.FromQuery(c)
		if err != nil {
			return err
		}

		rows, err := ListInRange(database.DB, userID, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menghitung pengeluaran")
		}
		return c.JSON(ByCategory(rows))
	}
}
