package dashboard

import (
	"fmt"
	"time"

	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/distribution"
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Nama hari singkat, Minggu = 0.
var dayNames = [7]string{"Min", "Sen", "Sel", "Rab", "Kam", "Jum", "Sab"}

type ChartPoint struct {
	Label  string          `json:"label"` // tanggal / awal minggu / awal bulan
	Sales  decimal.Decimal `json:"sales"`
	Profit decimal.Decimal `json:"profit"`
	Sold   int             `json:"sold"`
}

type ChartTotals struct {
	Sales  decimal.Decimal `json:"sales"`
	Profit decimal.Decimal `json:"profit"`
	Sold   int             `json:"sold"`
}

type SalesChartResponse struct {
	Period      string       `json:"period"` // daily | weekly | monthly
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []ChartPoint `json:"points"`
	GrandTotals ChartTotals  `json:"grand_totals"`
}

type WeeklyDay struct {
	Date   string          `json:"date"`
	Day    string          `json:"day"`
	Sales  decimal.Decimal `json:"sales"`
	Profit decimal.Decimal `json:"profit"`
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// startOfWeek returns the Sunday that opens t's week.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local)
}

// chartBuckets returns count consecutive bucket starts ending with the one
// containing now, plus the end of the last bucket.
func chartBuckets(kind string, count int, now time.Time) ([]time.Time, time.Time) {
	starts := make([]time.Time, count)
	var end time.Time
	switch kind {
	case "weekly":
		first := startOfWeek(now).AddDate(0, 0, -7*(count-1))
		for i := range starts {
			starts[i] = first.AddDate(0, 0, 7*i)
		}
		end = starts[count-1].AddDate(0, 0, 7)
	case "monthly":
		first := startOfMonth(now).AddDate(0, -(count - 1), 0)
		for i := range starts {
			starts[i] = first.AddDate(0, i, 0)
		}
		end = starts[count-1].AddDate(0, 1, 0)
	default:
		first := startOfDay(now).AddDate(0, 0, -(count - 1))
		for i := range starts {
			starts[i] = first.AddDate(0, 0, i)
		}
		end = starts[count-1].AddDate(0, 0, 1)
	}
	return starts, end
}

// bucketOf finds the bucket index of t; starts must be ascending.
func bucketOf(starts []time.Time, t time.Time) int {
	idx := -1
	for i, s := range starts {
		if t.Before(s) {
			break
		}
		idx = i
	}
	return idx
}

// BuildSalesChart groups transactions into buckets. Buckets without sales are
// kept with zero values.
func BuildSalesChart(rows []models.Transaction, kind string, count int, now time.Time) SalesChartResponse {
	starts, end := chartBuckets(kind, count, now)

	points := make([]ChartPoint, len(starts))
	for i, s := range starts {
		points[i] = ChartPoint{Label: s.Format(period.DateLayout), Sales: decimal.Zero, Profit: decimal.Zero}
	}
	grand := ChartTotals{Sales: decimal.Zero, Profit: decimal.Zero}

	for _, t := range rows {
		if !t.Date.Before(end) {
			continue
		}
		i := bucketOf(starts, t.Date.In(time.Local))
		if i < 0 {
			continue
		}
		points[i].Sales = points[i].Sales.Add(t.TotalBill)
		points[i].Profit = points[i].Profit.Add(t.Profit)
		points[i].Sold += t.Sold

		grand.Sales = grand.Sales.Add(t.TotalBill)
		grand.Profit = grand.Profit.Add(t.Profit)
		grand.Sold += t.Sold
	}

	return SalesChartResponse{
		Period:      kind,
		From:        starts[0].Format(period.DateLayout),
		To:          end.AddDate(0, 0, -1).Format(period.DateLayout),
		Points:      points,
		GrandTotals: grand,
	}
}

// BuildWeekly returns Sunday..Saturday of the week containing now.
func BuildWeekly(rows []models.Transaction, now time.Time) []WeeklyDay {
	first := startOfWeek(now)
	days := make([]WeeklyDay, 7)
	for i := range days {
		d := first.AddDate(0, 0, i)
		days[i] = WeeklyDay{
			Date:   d.Format(period.DateLayout),
			Day:    dayNames[d.Weekday()],
			Sales:  decimal.Zero,
			Profit: decimal.Zero,
		}
	}
	index := make(map[string]int, 7)
	for i, d := range days {
		index[d.Date] = i
	}
	for _, t := range rows {
		i, ok := index[t.Date.In(time.Local).Format(period.DateLayout)]
		if !ok {
			continue
		}
		days[i].Sales = days[i].Sales.Add(t.TotalBill)
		days[i].Profit = days[i].Profit.Add(t.Profit)
	}
	return days
}

// GET /api/dashboard/weekly
func WeeklySummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		now := time.Now()
		first := startOfWeek(now)
		r := period.Range{From: first, To: first.AddDate(0, 0, 7)}

		rows, err := distribution.ListInRange(database.DB, userID, r)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal memuat ringkasan mingguan")
		}
		return c.JSON(BuildWeekly(rows, now))
	}
}

// GET /api/dashboard/sales-chart?period=daily&count=7
func SalesChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		kind := c.Query("period", "daily") // daily | weekly | monthly
		count := 0
		switch kind {
		case "weekly":
			count = 8
		case "monthly":
			count = 12
		case "daily":
			count = 7
		default:
			return fiber.NewError(fiber.StatusBadRequest, "period harus daily, weekly atau monthly")
		}
		if s := c.Query("count"); s != "" {
			if _, err := fmt.Sscan(s, &count); err != nil || count <= 0 || count > 366 {
				return fiber.NewError(fiber.StatusBadRequest, "count tidak valid")
			}
		}

		ctx := c.UserContext()
		key := cache.Key(userID, fmt.Sprintf("chart:%s:%d:%s", kind, count, time.Now().Format(period.DateLayout)))

		var resp SalesChartResponse
		if cache.Default.Get(ctx, key, &resp) {
			return c.JSON(resp)
		}

		now := time.Now()
		starts, end := chartBuckets(kind, count, now)
		rows, err := distribution.ListInRange(database.DB, userID, period.Range{From: starts[0], To: end})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal mengumpulkan data penjualan")
		}

		resp = BuildSalesChart(rows, kind, count, now)
		cache.Default.Set(ctx, key, resp)
		return c.JSON(resp)
	}
}
