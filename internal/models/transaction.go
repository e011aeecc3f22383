package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "belum_bayar"
	PaymentPaid    PaymentStatus = "lunas"
	PaymentPartial PaymentStatus = "sebagian"
)

// Transaction: rekonsiliasi stok per kunjungan ke warung.
// Harga, komisi dan HPP disalin saat transaksi dibuat.
type Transaction struct {
	Base
	UserID                  string           `gorm:"size:36;index;not null" json:"user_id"`
	WarungID                string           `gorm:"size:36;index;not null" json:"warung_id"`
	Warung                  *Warung          `gorm:"foreignKey:WarungID;constraint:OnDelete:CASCADE" json:"warung,omitempty"`
	Date                    time.Time        `gorm:"index;not null" json:"date"`
	InitialStock            int              `gorm:"not null" json:"initial_stock"`
	RemainingStock          int              `gorm:"not null" json:"remaining_stock"`
	Sold                    int              `gorm:"not null" json:"sold"`
	RestockAmount           int              `gorm:"not null;default:0" json:"restock_amount"`
	PriceSchemeAtTime       PriceScheme      `gorm:"size:10;not null" json:"price_scheme_at_time"`
	UnitPriceAtTime         decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"unit_price_at_time"`
	CommissionPercentAtTime *decimal.Decimal `gorm:"type:numeric(5,2)" json:"commission_percent_at_time"`
	TotalBill               decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total_bill"`
	HPPAtTime               decimal.Decimal  `gorm:"column:hpp_at_time;type:numeric(12,2)" json:"hpp_at_time"`
	Profit                  decimal.Decimal  `gorm:"type:numeric(12,2)" json:"profit"`
	PaymentStatus           PaymentStatus    `gorm:"size:20;not null;default:'belum_bayar'" json:"payment_status"`
	PaidAmount              decimal.Decimal  `gorm:"type:numeric(12,2);default:0" json:"paid_amount"`
	Notes                   string           `gorm:"size:500" json:"notes"`
}
