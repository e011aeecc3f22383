package costing

import (
	"errors"

	"sijuk-backend/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultLowMarginPercent: margin di bawah ini memicu peringatan.
const DefaultLowMarginPercent = 10

var (
	ErrRemainingExceedsInitial = errors.New("sisa stok tidak boleh lebih dari stok awal")
	ErrNegativeStock           = errors.New("stok tidak boleh negatif")
	ErrNegativeRestock         = errors.New("jumlah restock tidak boleh negatif")
	ErrNegativePaidAmount      = errors.New("jumlah bayar tidak boleh negatif")

	ErrInvalidScheme      = errors.New("skema harga harus 'net' atau 'komisi'")
	ErrNetPriceRequired   = errors.New("harga net wajib diisi untuk skema net")
	ErrSellingPriceNeeded = errors.New("harga jual wajib diisi untuk skema komisi")
	ErrCommissionRange    = errors.New("persentase komisi harus antara 0 dan 100")
)

var hundred = decimal.NewFromInt(100)

// Pricing is the price agreement with one warung.
type Pricing struct {
	Scheme            models.PriceScheme
	NetPrice          decimal.Decimal
	SellingPrice      decimal.Decimal
	CommissionPercent decimal.Decimal
}

// PricingOf reads a warung's agreement, treating missing prices as zero.
func PricingOf(w *models.Warung) Pricing {
	p := Pricing{Scheme: w.PriceScheme}
	if w.NetPrice != nil {
		p.NetPrice = *w.NetPrice
	}
	if w.SellingPrice != nil {
		p.SellingPrice = *w.SellingPrice
	}
	if w.CommissionPercent != nil {
		p.CommissionPercent = *w.CommissionPercent
	}
	return p
}

func ValidatePricing(p Pricing) error {
	switch p.Scheme {
	case models.PriceSchemeNet:
		if !p.NetPrice.IsPositive() {
			return ErrNetPriceRequired
		}
	case models.PriceSchemeCommission:
		if !p.SellingPrice.IsPositive() {
			return ErrSellingPriceNeeded
		}
		if p.CommissionPercent.IsNegative() || p.CommissionPercent.GreaterThan(hundred) {
			return ErrCommissionRange
		}
	default:
		return ErrInvalidScheme
	}
	return nil
}

type Bill struct {
	UnitPrice decimal.Decimal
	// nil for the net scheme
	CommissionPercent *decimal.Decimal
	Gross             decimal.Decimal
	Commission        decimal.Decimal
	Total             decimal.Decimal
}

// BillFor prices sold units under the warung's scheme.
func BillFor(p Pricing, sold int) Bill {
	qty := decimal.NewFromInt(int64(sold))

	if p.Scheme == models.PriceSchemeNet {
		total := qty.Mul(p.NetPrice).Round(MoneyPlaces)
		return Bill{
			UnitPrice:  p.NetPrice,
			Gross:      total,
			Commission: decimal.Zero,
			Total:      total,
		}
	}

	pct := p.CommissionPercent
	gross := qty.Mul(p.SellingPrice)
	commission := gross.Mul(pct).Div(hundred)
	return Bill{
		UnitPrice:         p.SellingPrice,
		CommissionPercent: &pct,
		Gross:             gross.Round(MoneyPlaces),
		Commission:        commission.Round(MoneyPlaces),
		Total:             gross.Sub(commission).Round(MoneyPlaces),
	}
}

// ResolvePaymentStatus: lunas when paid covers a positive total, sebagian when
// 0 < paid < total, belum_bayar otherwise.
func ResolvePaymentStatus(paid, total decimal.Decimal) models.PaymentStatus {
	switch {
	case total.IsPositive() && paid.GreaterThanOrEqual(total):
		return models.PaymentPaid
	case paid.IsPositive() && paid.LessThan(total):
		return models.PaymentPartial
	default:
		return models.PaymentUnpaid
	}
}

// MarginPercent is (price - hpp) / price * 100, zero when the price is not positive.
func MarginPercent(unitPrice, hpp decimal.Decimal) decimal.Decimal {
	if !unitPrice.IsPositive() {
		return decimal.Zero
	}
	return unitPrice.Sub(hpp).Div(unitPrice).Mul(hundred).Round(MoneyPlaces)
}

// VisitInput is what the producer records when visiting a warung.
type VisitInput struct {
	InitialStock   int
	RemainingStock int
	RestockAmount  int
	Pricing        Pricing
	HPP            decimal.Decimal
	PaidAmount     decimal.Decimal
	// LowMarginPercent falls back to DefaultLowMarginPercent when nil.
	// Zero flags only visits sold at a loss.
	LowMarginPercent *decimal.Decimal
}

type Settlement struct {
	InitialStock   int
	RemainingStock int
	Sold           int
	RestockAmount  int
	NewStock       int

	Bill          Bill
	HPP           decimal.Decimal
	TotalHPP      decimal.Decimal
	Profit        decimal.Decimal
	PaidAmount    decimal.Decimal
	PaymentStatus models.PaymentStatus
	MarginPercent decimal.Decimal
	LowMargin     bool
}

// Settle reconciles one visit.
func Settle(in VisitInput) (Settlement, error) {
	if in.InitialStock < 0 || in.RemainingStock < 0 {
		return Settlement{}, ErrNegativeStock
	}
	if in.RestockAmount < 0 {
		return Settlement{}, ErrNegativeRestock
	}
	if in.PaidAmount.IsNegative() {
		return Settlement{}, ErrNegativePaidAmount
	}

	sold := in.InitialStock - in.RemainingStock
	if sold < 0 {
		return Settlement{}, ErrRemainingExceedsInitial
	}

	bill := BillFor(in.Pricing, sold)
	totalHPP := decimal.NewFromInt(int64(sold)).Mul(in.HPP).Round(MoneyPlaces)
	margin := MarginPercent(bill.UnitPrice, in.HPP)

	threshold := decimal.NewFromInt(DefaultLowMarginPercent)
	if in.LowMarginPercent != nil {
		threshold = *in.LowMarginPercent
	}

	return Settlement{
		InitialStock:   in.InitialStock,
		RemainingStock: in.RemainingStock,
		Sold:           sold,
		RestockAmount:  in.RestockAmount,
		NewStock:       in.RemainingStock + in.RestockAmount,
		Bill:           bill,
		HPP:            in.HPP,
		TotalHPP:       totalHPP,
		Profit:         bill.Total.Sub(totalHPP),
		PaidAmount:     in.PaidAmount,
		PaymentStatus:  ResolvePaymentStatus(in.PaidAmount, bill.Total),
		MarginPercent:  margin,
		LowMargin:      margin.LessThan(threshold),
	}, nil
}
