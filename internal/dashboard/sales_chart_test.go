package dashboard

import (
	"testing"
	"time"

	"sijuk-backend/internal/models"

	"github.com/shopspring/decimal"
)

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func trx(date string, bill, profit int64, sold int) models.Transaction {
	return models.Transaction{
		Date:      at(date),
		TotalBill: decimal.NewFromInt(bill),
		Profit:    decimal.NewFromInt(profit),
		Sold:      sold,
	}
}

func TestBuildSalesChartDaily(t *testing.T) {
	now := at("2026-10-14 12:00")
	rows := []models.Transaction{
		trx("2026-10-07 09:00", 9000, 3000, 6), // di luar jendela 7 hari
		trx("2026-10-08 08:00", 1500, 500, 1),
		trx("2026-10-14 10:00", 3000, 1000, 2),
		trx("2026-10-14 16:00", 1500, 500, 1),
	}

	got := BuildSalesChart(rows, "daily", 7, now)
	if got.From != "2026-10-08" || got.To != "2026-10-14" {
		t.Fatalf("range %s..%s", got.From, got.To)
	}
	if len(got.Points) != 7 {
		t.Fatalf("points = %d, want 7", len(got.Points))
	}
	if !got.Points[0].Sales.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("first day sales = %s", got.Points[0].Sales)
	}
	last := got.Points[6]
	if last.Label != "2026-10-14" || !last.Sales.Equal(decimal.NewFromInt(4500)) || last.Sold != 3 {
		t.Errorf("last point %+v", last)
	}
	if !got.Points[3].Sales.IsZero() {
		t.Errorf("empty day has sales %s", got.Points[3].Sales)
	}
	if !got.GrandTotals.Sales.Equal(decimal.NewFromInt(6000)) || got.GrandTotals.Sold != 4 {
		t.Errorf("grand totals %+v", got.GrandTotals)
	}
}

func TestBuildSalesChartWeeklyAndMonthly(t *testing.T) {
	now := at("2026-10-14 12:00")
	rows := []models.Transaction{
		trx("2026-08-20 10:00", 1000, 100, 1),
		trx("2026-10-05 10:00", 2000, 200, 2),
		trx("2026-10-11 07:00", 4000, 400, 4),
	}

	weekly := BuildSalesChart(rows, "weekly", 2, now)
	if weekly.Points[0].Label != "2026-10-04" || weekly.Points[1].Label != "2026-10-11" {
		t.Fatalf("weekly labels %+v", weekly.Points)
	}
	if !weekly.Points[0].Sales.Equal(decimal.NewFromInt(2000)) || !weekly.Points[1].Sales.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("weekly sales %+v", weekly.Points)
	}

	monthly := BuildSalesChart(rows, "monthly", 3, now)
	if monthly.From != "2026-08-01" || monthly.To != "2026-10-31" {
		t.Fatalf("monthly range %s..%s", monthly.From, monthly.To)
	}
	want := []int64{1000, 0, 6000}
	for i, w := range want {
		if !monthly.Points[i].Sales.Equal(decimal.NewFromInt(w)) {
			t.Errorf("month %d sales = %s, want %d", i, monthly.Points[i].Sales, w)
		}
	}
}

func TestBuildWeeklyStartsOnSunday(t *testing.T) {
	now := at("2026-10-14 12:00") // Rabu
	rows := []models.Transaction{
		trx("2026-10-11 09:00", 1000, 300, 1),
		trx("2026-10-14 09:00", 2000, 600, 2),
		trx("2026-10-10 09:00", 5000, 900, 5), // Sabtu minggu lalu
	}

	days := BuildWeekly(rows, now)
	if len(days) != 7 {
		t.Fatalf("days = %d", len(days))
	}
	wantNames := []string{"Min", "Sen", "Sel", "Rab", "Kam", "Jum", "Sab"}
	for i, d := range days {
		if d.Day != wantNames[i] {
			t.Errorf("day %d = %s, want %s", i, d.Day, wantNames[i])
		}
	}
	if days[0].Date != "2026-10-11" || !days[0].Sales.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("sunday %+v", days[0])
	}
	if !days[3].Profit.Equal(decimal.NewFromInt(600)) {
		t.Errorf("wednesday %+v", days[3])
	}
	total := decimal.Zero
	for _, d := range days {
		total = total.Add(d.Sales)
	}
	if !total.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("week total = %s, previous week leaked in", total)
	}
}
