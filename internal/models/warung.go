package models

import "github.com/shopspring/decimal"

type PriceScheme string

const (
	// Jual putus: warung membayar harga net per bungkus terjual.
	PriceSchemeNet PriceScheme = "net"
	// Komisi: harga jual konsumen ditentukan produsen, warung mengambil persentase.
	PriceSchemeCommission PriceScheme = "komisi"
)

func (s PriceScheme) Valid() bool {
	return s == PriceSchemeNet || s == PriceSchemeCommission
}

// Warung: mitra titip jual
type Warung struct {
	Base
	UserID            string           `gorm:"size:36;index;not null" json:"user_id"`
	Name              string           `gorm:"size:150;index;not null" json:"name"`
	Address           string           `gorm:"size:255" json:"address"`
	Phone             string           `gorm:"size:30" json:"phone"`
	PriceScheme       PriceScheme      `gorm:"size:10;not null;default:'net'" json:"price_scheme"`
	NetPrice          *decimal.Decimal `gorm:"type:numeric(12,2)" json:"net_price"`
	SellingPrice      *decimal.Decimal `gorm:"type:numeric(12,2)" json:"selling_price"`
	CommissionPercent *decimal.Decimal `gorm:"type:numeric(5,2)" json:"commission_percent"`
	CurrentStock      int              `gorm:"not null;default:0" json:"current_stock"` // stok saat ini di warung
	IsActive          bool             `gorm:"not null;default:true" json:"is_active"`
}
