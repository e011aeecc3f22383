package models

import "github.com/shopspring/decimal"

type Unit string

const (
	UnitKg     Unit = "kg"
	UnitLiter  Unit = "liter"
	UnitTabung Unit = "tabung"
	UnitPack   Unit = "pack"
	UnitBal    Unit = "bal"
	UnitLembar Unit = "lembar"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitKg, UnitLiter, UnitTabung, UnitPack, UnitBal, UnitLembar:
		return true
	}
	return false
}

// Material: bahan baku
type Material struct {
	Base
	UserID   string          `gorm:"size:36;index;not null" json:"user_id"`
	Name     string          `gorm:"size:150;not null" json:"name"`
	Unit     Unit            `gorm:"size:20;not null" json:"unit"`
	BuyPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"buy_price"`
	Stock    decimal.Decimal `gorm:"type:numeric(12,3);not null;default:0" json:"stock"`
}
