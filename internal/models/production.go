package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionBatch: satu kali produksi. HPPPerUnit = TotalMaterialCost / QuantityProduced.
type ProductionBatch struct {
	Base
	UserID            string           `gorm:"size:36;index;not null" json:"user_id"`
	Date              time.Time        `gorm:"index;not null" json:"date"`
	TotalMaterialCost decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"total_material_cost"`
	QuantityProduced  int              `gorm:"not null" json:"quantity_produced"` // jumlah bungkus jadi
	HPPPerUnit        decimal.Decimal  `gorm:"column:hpp_per_unit;type:numeric(12,2);not null" json:"hpp_per_unit"`
	Notes             string           `gorm:"size:500" json:"notes"`
	Items             []ProductionItem `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// ProductionItem: bahan yang dipakai pada satu batch, dengan harga saat itu.
type ProductionItem struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	BatchID         string          `gorm:"size:36;index;not null" json:"batch_id"`
	MaterialID      string          `gorm:"size:36;index;not null" json:"material_id"`
	Material        *Material       `gorm:"foreignKey:MaterialID;constraint:OnDelete:RESTRICT" json:"material,omitempty"`
	QuantityUsed    decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity_used"`
	UnitPriceAtTime decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price_at_time"`
	TotalCost       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_cost"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (i *ProductionItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
