package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExpenseCategory string

const (
	ExpenseFuel    ExpenseCategory = "bensin"
	ExpenseMeal    ExpenseCategory = "makan"
	ExpenseParking ExpenseCategory = "parkir"
	ExpenseOther   ExpenseCategory = "lain_lain"
)

var ExpenseCategories = []ExpenseCategory{ExpenseFuel, ExpenseMeal, ExpenseParking, ExpenseOther}

func (c ExpenseCategory) Valid() bool {
	for _, v := range ExpenseCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Expense: pengeluaran operasional
type Expense struct {
	Base
	UserID      string          `gorm:"size:36;index;not null" json:"user_id"`
	Category    ExpenseCategory `gorm:"size:20;index;not null" json:"category"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description string          `gorm:"size:255" json:"description"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
}
