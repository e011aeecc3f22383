package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/dashboard"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/expense"
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const timestampLayout = "2006-01-02 15:04:05"

type CreateMonthlyReportRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type MonthlyReportResponse struct {
	ID            string          `json:"id"`
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	ReportDate    string          `json:"report_date"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	TotalHPP      decimal.Decimal `json:"total_hpp"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	CreatedAt     string          `json:"created_at"`
}

// WarungTotal: rekap satu warung dalam sebulan.
type WarungTotal struct {
	WarungID string          `json:"warung_id"`
	Name     string          `json:"name"`
	Visits   int             `json:"visits"`
	Sold     int             `json:"sold"`
	Sales    decimal.Decimal `json:"sales"`
	Profit   decimal.Decimal `json:"profit"`
	Paid     decimal.Decimal `json:"paid"`
}

// Detail is stored as report_data.
type Detail struct {
	Summary    dashboard.Summary               `json:"summary"`
	Warungs    []WarungTotal                   `json:"warungs"`
	Expenses   expense.CategorySummaryResponse `json:"expenses_by_category"`
	BatchCount int                             `json:"batch_count"`
}

// MonthData is everything recorded in one month.
type MonthData struct {
	Year         int
	Month        time.Month
	Summary      dashboard.Summary
	Transactions []models.Transaction
	Expenses     []models.Expense
	Batches      []models.ProductionBatch
}

func toResponse(r models.MonthlyReport) MonthlyReportResponse {
	return MonthlyReportResponse{
		ID:            r.ID,
		Year:          r.Year,
		Month:         r.Month,
		ReportDate:    r.ReportDate.Format(timestampLayout),
		TotalSales:    r.TotalSales,
		TotalProfit:   r.TotalProfit,
		TotalExpenses: r.TotalExpenses,
		TotalHPP:      r.TotalHPP,
		NetProfit:     r.NetProfit,
		CreatedAt:     r.CreatedAt.Format(timestampLayout),
	}
}

// LoadMonth collects the month's records and its dashboard rollup.
func LoadMonth(db *gorm.DB, userID string, year int, month time.Month) (*MonthData, error) {
	r := period.Month(year, month)
	data := &MonthData{Year: year, Month: month}

	summary, err := dashboard.BuildSummary(db, userID, year, month)
	if err != nil {
		return nil, err
	}
	data.Summary = summary

	if err := r.Apply(db.Preload("Warung").Where("user_id = ?", userID), "date").
		Order("date asc, created_at asc").
		Find(&data.Transactions).Error; err != nil {
		return nil, fmt.Errorf("transaksi: %w", err)
	}
	if data.Expenses, err = expense.ListInRange(db, userID, r); err != nil {
		return nil, fmt.Errorf("pengeluaran: %w", err)
	}
	if err := r.Apply(db.Preload("Items.Material").Where("user_id = ?", userID), "date").
		Order("date asc, created_at asc").
		Find(&data.Batches).Error; err != nil {
		return nil, fmt.Errorf("produksi: %w", err)
	}
	return data, nil
}

// WarungTotals groups the month's transactions per warung, by sales descending.
func (m *MonthData) WarungTotals() []WarungTotal {
	byID := make(map[string]*WarungTotal)
	for _, t := range m.Transactions {
		w, ok := byID[t.WarungID]
		if !ok {
			w = &WarungTotal{WarungID: t.WarungID, Sales: decimal.Zero, Profit: decimal.Zero, Paid: decimal.Zero}
			if t.Warung != nil {
				w.Name = t.Warung.Name
			}
			byID[t.WarungID] = w
		}
		w.Visits++
		w.Sold += t.Sold
		w.Sales = w.Sales.Add(t.TotalBill)
		w.Profit = w.Profit.Add(t.Profit)
		w.Paid = w.Paid.Add(t.PaidAmount)
	}

	out := make([]WarungTotal, 0, len(byID))
	for _, w := range byID {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Sales.Equal(out[j].Sales) {
			return out[i].Sales.GreaterThan(out[j].Sales)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (m *MonthData) Detail() Detail {
	return Detail{
		Summary:    m.Summary,
		Warungs:    m.WarungTotals(),
		Expenses:   expense.ByCategory(m.Expenses),
		BatchCount: len(m.Batches),
	}
}

// POST /api/reports/monthly
// Tutup buku: simpan ringkasan bulan. Data transaksi tidak dihapus.
func CreateMonthlyReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateMonthlyReportRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Body request tidak valid")
		}
		if body.Year < 2000 || body.Month < 1 || body.Month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "Tahun atau bulan tidak valid")
		}

		var existing int64
		if err := database.DB.Model(&models.MonthlyReport{}).
			Where("user_id = ? AND year = ? AND month = ?", userID, body.Year, body.Month).
			Count(&existing).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memeriksa laporan")
		}
		if existing > 0 {
			return fiber.NewError(fiber.StatusConflict, "Laporan bulan ini sudah dibuat")
		}

		data, err := LoadMonth(database.DB, userID, body.Year, time.Month(body.Month))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal mengumpulkan data bulan ini")
		}

		detail, err := json.Marshal(data.Detail())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyusun laporan")
		}

		s := data.Summary
		report := models.MonthlyReport{
			UserID:        userID,
			Year:          body.Year,
			Month:         body.Month,
			ReportDate:    time.Now(),
			TotalSales:    s.TotalSales,
			TotalProfit:   s.GrossProfit,
			TotalExpenses: s.TotalExpenses,
			TotalHPP:      s.TotalHPP,
			NetProfit:     s.NetProfit,
			ReportData:    string(detail),
		}
		if err := database.DB.Create(&report).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal menyimpan laporan")
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(report))
	}
}

// GET /api/reports/monthly
func ListMonthlyReportsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var reports []models.MonthlyReport
		if err := database.DB.
			Where("user_id = ?", userID).
			Order("year desc, month desc").
			Find(&reports).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat laporan")
		}

		resp := make([]MonthlyReportResponse, 0, len(reports))
		for _, r := range reports {
			resp = append(resp, toResponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/reports/monthly/:id
func GetMonthlyReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var report models.MonthlyReport
		if err := database.DB.First(&report, "id = ? AND user_id = ?", c.Params("id"), userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Laporan tidak ditemukan")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat laporan")
		}

		detail := map[string]any{}
		if report.ReportData != "" {
			if err := json.Unmarshal([]byte(report.ReportData), &detail); err != nil {
				detail = map[string]any{}
			}
		}

		return c.JSON(fiber.Map{
			"report":      toResponse(report),
			"report_data": detail,
		})
	}
}
