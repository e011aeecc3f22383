package distribution

import (
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/period"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Summary struct {
	Count       int             `json:"count"`
	TotalSold   int             `json:"total_sold"`
	TotalBill   decimal.Decimal `json:"total_bill"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Unpaid      decimal.Decimal `json:"unpaid"`
}

// Summarize totals transactions in Go so decimal sums stay exact on every driver.
func Summarize(rows []models.Transaction) Summary {
	s := Summary{
		TotalBill:   decimal.Zero,
		TotalProfit: decimal.Zero,
		TotalPaid:   decimal.Zero,
	}
	for _, t := range rows {
		s.Count++
		s.TotalSold += t.Sold
		s.TotalBill = s.TotalBill.Add(t.TotalBill)
		s.TotalProfit = s.TotalProfit.Add(t.Profit)
		s.TotalPaid = s.TotalPaid.Add(t.PaidAmount)
	}
	s.Unpaid = s.TotalBill.Sub(s.TotalPaid)
	return s
}

// ListInRange returns the user's transactions in r, oldest first.
func ListInRange(db *gorm.DB, userID string, r period.Range) ([]models.Transaction, error) {
	var rows []models.Transaction
	q := r.Apply(db.Where("user_id = ?", userID), "date")
	if err := q.Order("date asc, created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
