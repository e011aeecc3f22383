package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyReport: tutup buku bulanan
type MonthlyReport struct {
	Base
	UserID     string    `gorm:"size:36;uniqueIndex:idx_monthly_reports_period;not null" json:"user_id"`
	Year       int       `gorm:"uniqueIndex:idx_monthly_reports_period;not null" json:"year"`
	Month      int       `gorm:"uniqueIndex:idx_monthly_reports_period;not null" json:"month"` // 1-12
	ReportDate time.Time `gorm:"not null" json:"report_date"`

	TotalSales    decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_sales"`
	TotalProfit   decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_profit"` // laba kotor
	TotalExpenses decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_expenses"`
	TotalHPP      decimal.Decimal `gorm:"column:total_hpp;type:numeric(14,2);default:0" json:"total_hpp"`
	NetProfit     decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"net_profit"`

	// rincian per warung dan per kategori (JSON)
	ReportData string `gorm:"type:jsonb" json:"report_data"`
}
