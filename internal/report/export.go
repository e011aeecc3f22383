package report

import (
	"bytes"
	"fmt"

	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/expense"
	"sijuk-backend/internal/logger"
	"sijuk-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	SheetSummary      = "Ringkasan"
	SheetTransactions = "Transaksi"
	SheetExpenses     = "Pengeluaran"
	SheetProduction   = "Produksi"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// writeRows writes header at A1 and rows below it.
func writeRows(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := r
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 16)
}

// BuildWorkbook lays out one month as a workbook.
func BuildWorkbook(m *MonthData) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetTransactions, SheetExpenses, SheetProduction} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	s := m.Summary
	latestHPP := 0.0
	if s.LatestHPP != nil {
		latestHPP = money(*s.LatestHPP)
	}
	summaryRows := [][]any{
		{"Periode", fmt.Sprintf("%s s/d %s", s.PeriodStart, s.PeriodEnd)},
		{"Total Penjualan", money(s.TotalSales)},
		{"Total Terjual (bungkus)", s.TotalSold},
		{"Laba Kotor", money(s.GrossProfit)},
		{"Total Pengeluaran", money(s.TotalExpenses)},
		{"Laba Bersih", money(s.NetProfit)},
		{"Total Biaya Bahan (HPP)", money(s.TotalHPP)},
		{"Total Produksi (bungkus)", s.TotalProduced},
		{"HPP Terakhir", latestHPP},
		{"Belum Dibayar", money(s.UnpaidAmount)},
		{"Warung Aktif", s.ActiveWarungs},
	}
	if err := writeRows(f, SheetSummary, []any{"Keterangan", "Nilai"}, summaryRows); err != nil {
		f.Close()
		return nil, err
	}

	trxRows := make([][]any, 0, len(m.Transactions))
	for _, t := range m.Transactions {
		name := ""
		if t.Warung != nil {
			name = t.Warung.Name
		}
		trxRows = append(trxRows, []any{
			t.Date.Format(period.DateLayout), name, string(t.PriceSchemeAtTime),
			t.InitialStock, t.RemainingStock, t.Sold, t.RestockAmount,
			money(t.UnitPriceAtTime), money(t.TotalBill), money(t.HPPAtTime), money(t.Profit),
			money(t.PaidAmount), string(t.PaymentStatus), t.Notes,
		})
	}
	trxHeader := []any{
		"Tanggal", "Warung", "Skema", "Stok Awal", "Sisa", "Terjual", "Restock",
		"Harga/Unit", "Tagihan", "HPP/Unit", "Profit", "Dibayar", "Status", "Catatan",
	}
	if err := writeRows(f, SheetTransactions, trxHeader, trxRows); err != nil {
		f.Close()
		return nil, err
	}

	expRows := make([][]any, 0, len(m.Expenses))
	for _, e := range m.Expenses {
		expRows = append(expRows, []any{
			e.Date.Format(period.DateLayout), expense.Label(e.Category), money(e.Amount), e.Description,
		})
	}
	if err := writeRows(f, SheetExpenses, []any{"Tanggal", "Kategori", "Jumlah", "Keterangan"}, expRows); err != nil {
		f.Close()
		return nil, err
	}

	prodRows := make([][]any, 0, len(m.Batches))
	for _, b := range m.Batches {
		for _, it := range b.Items {
			material := it.MaterialID
			unit := ""
			if it.Material != nil {
				material = it.Material.Name
				unit = string(it.Material.Unit)
			}
			prodRows = append(prodRows, []any{
				b.Date.Format(period.DateLayout), b.QuantityProduced, money(b.HPPPerUnit),
				material, it.QuantityUsed.InexactFloat64(), unit,
				money(it.UnitPriceAtTime), money(it.TotalCost),
			})
		}
	}
	prodHeader := []any{
		"Tanggal", "Jumlah Produksi", "HPP/Unit", "Bahan", "Dipakai", "Satuan", "Harga Beli", "Biaya",
	}
	if err := writeRows(f, SheetProduction, prodHeader, prodRows); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// GET /api/reports/monthly/export?year=2026&month=10
func ExportMonthlyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		year, month, err := period.MonthFromQuery(c)
		if err != nil {
			return err
		}

		data, err := LoadMonth(database.DB, userID, year, month)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal mengumpulkan data bulan ini")
		}

		f, err := BuildWorkbook(data)
		if err != nil {
			logger.FromCtx(c).Error("xlsx gagal dibuat", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal membuat file Excel")
		}
		defer f.Close()

		buf := new(bytes.Buffer)
		if err := f.Write(buf); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gagal membuat file Excel")
		}

		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="laporan-%04d-%02d.xlsx"`, year, int(month)))
		return c.Send(buf.Bytes())
	}
}
