package dashboard

import (
	"fmt"
	"time"

	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/distribution"
	"sijuk-backend/internal/expense"
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/period"
	"sijuk-backend/internal/production"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Summary struct {
	Year          int              `json:"year"`
	Month         int              `json:"month"`
	PeriodStart   string           `json:"period_start"`
	PeriodEnd     string           `json:"period_end"`
	TotalSales    decimal.Decimal  `json:"total_sales"`
	TotalSold     int              `json:"total_sold"`
	GrossProfit   decimal.Decimal  `json:"gross_profit"`
	TotalExpenses decimal.Decimal  `json:"total_expenses"`
	NetProfit     decimal.Decimal  `json:"net_profit"`
	TotalHPP      decimal.Decimal  `json:"total_hpp"`
	TotalProduced int              `json:"total_produced"`
	ActiveWarungs int64            `json:"active_warungs"`
	LatestHPP     *decimal.Decimal `json:"latest_hpp"`
	UnpaidAmount  decimal.Decimal  `json:"unpaid_amount"`
}

// BuildSummary computes the rollup of one calendar month.
func BuildSummary(db *gorm.DB, userID string, year int, month time.Month) (Summary, error) {
	r := period.Month(year, month)
	s := Summary{
		Year:        year,
		Month:       int(month),
		PeriodStart: r.From.Format(period.DateLayout),
		PeriodEnd:   r.Last().Format(period.DateLayout),
		TotalHPP:    decimal.Zero,
	}

	trx, err := distribution.ListInRange(db, userID, r)
	if err != nil {
		return s, fmt.Errorf("transaksi: %w", err)
	}
	ts := distribution.Summarize(trx)
	s.TotalSales = ts.TotalBill
	s.TotalSold = ts.TotalSold
	s.GrossProfit = ts.TotalProfit
	s.UnpaidAmount = ts.Unpaid

	s.TotalExpenses, err = expense.Total(db, userID, r)
	if err != nil {
		return s, fmt.Errorf("pengeluaran: %w", err)
	}
	s.NetProfit = s.GrossProfit.Sub(s.TotalExpenses)

	var batches []models.ProductionBatch
	if err := r.Apply(db.Where("user_id = ?", userID), "date").Find(&batches).Error; err != nil {
		return s, fmt.Errorf("produksi: %w", err)
	}
	for _, b := range batches {
		s.TotalHPP = s.TotalHPP.Add(b.TotalMaterialCost)
		s.TotalProduced += b.QuantityProduced
	}

	if err := db.Model(&models.Warung{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&s.ActiveWarungs).Error; err != nil {
		return s, fmt.Errorf("warung: %w", err)
	}

	hpp, ok, err := production.LatestHPP(db, userID)
	if err != nil {
		return s, fmt.Errorf("hpp: %w", err)
	}
	if ok {
		s.LatestHPP = &hpp
	}
	return s, nil
}

// GET /api/dashboard/summary?year=2026&month=10
// Default bulan berjalan. Disimpan di cache sampai ada perubahan data.
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		year, month, err := period.MonthFromQuery(c)
		if err != nil {
			return err
		}

		ctx := c.UserContext()
		key := cache.Key(userID, fmt.Sprintf("summary:%04d-%02d", year, month))

		var s Summary
		if cache.Default.Get(ctx, key, &s) {
			c.Set("X-Cache", "HIT")
			return c.JSON(s)
		}

		s, err = BuildSummary(database.DB, userID, year, month)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menghitung ringkasan dashboard")
		}
		cache.Default.Set(ctx, key, s)

		c.Set("X-Cache", "MISS")
		return c.JSON(s)
	}
}

// GET /api/dashboard/recent?limit=5
func RecentTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		limit := c.QueryInt("limit", 5)
		if limit <= 0 || limit > 50 {
			return fiber.NewError(fiber.StatusBadRequest, "limit harus 1-50")
		}

		var rows []models.Transaction
		if err := database.DB.
			Preload("Warung").
			Where("user_id = ?", userID).
			Order("date desc, created_at desc").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat transaksi terbaru")
		}
		return c.JSON(rows)
	}
}
