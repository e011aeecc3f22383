package costing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the scale of every stored money column.
const MoneyPlaces = 2

var ErrNegativeQuantityProduced = errors.New("jumlah produksi tidak boleh negatif")
var ErrNonPositiveQuantityUsed = errors.New("jumlah bahan yang dipakai harus lebih dari 0")

// MaterialUsage is one line of a production batch: how much of a material was
// consumed and its buy price at the moment of production.
type MaterialUsage struct {
	MaterialID string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
}

type ItemCost struct {
	MaterialID string
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TotalCost  decimal.Decimal
}

type BatchCost struct {
	Items             []ItemCost
	TotalMaterialCost decimal.Decimal
	HPPPerUnit        decimal.Decimal
}

// CalculateBatch prices every usage and derives the cost per produced unit.
func CalculateBatch(usages []MaterialUsage, quantityProduced int) (BatchCost, error) {
	if quantityProduced < 0 {
		return BatchCost{}, ErrNegativeQuantityProduced
	}

	res := BatchCost{
		Items:             make([]ItemCost, 0, len(usages)),
		TotalMaterialCost: decimal.Zero,
	}
	for _, u := range usages {
		if !u.Quantity.IsPositive() {
			return BatchCost{}, ErrNonPositiveQuantityUsed
		}
		total := u.UnitPrice.Mul(u.Quantity).Round(MoneyPlaces)
		res.Items = append(res.Items, ItemCost{
			MaterialID: u.MaterialID,
			Quantity:   u.Quantity,
			UnitPrice:  u.UnitPrice,
			TotalCost:  total,
		})
		res.TotalMaterialCost = res.TotalMaterialCost.Add(total)
	}

	res.HPPPerUnit = HPPPerUnit(res.TotalMaterialCost, quantityProduced)
	return res, nil
}

// HPPPerUnit is total / quantity, or zero when nothing was produced.
func HPPPerUnit(totalMaterialCost decimal.Decimal, quantityProduced int) decimal.Decimal {
	if quantityProduced <= 0 {
		return decimal.Zero
	}
	return totalMaterialCost.Div(decimal.NewFromInt(int64(quantityProduced))).Round(MoneyPlaces)
}

// ConsumeStock returns the stock left after using qty, never below zero, and
// whether the stock was short.
func ConsumeStock(stock, qty decimal.Decimal) (decimal.Decimal, bool) {
	left := stock.Sub(qty)
	if left.IsNegative() {
		return decimal.Zero, true
	}
	return left, false
}
