package costing

import (
	"errors"
	"testing"

	"sijuk-backend/internal/models"

	"github.com/shopspring/decimal"
)

func netPricing(price string) Pricing {
	return Pricing{Scheme: models.PriceSchemeNet, NetPrice: d(price)}
}

func commissionPricing(price, pct string) Pricing {
	return Pricing{Scheme: models.PriceSchemeCommission, SellingPrice: d(price), CommissionPercent: d(pct)}
}

func TestBillFor(t *testing.T) {
	tests := []struct {
		name       string
		pricing    Pricing
		sold       int
		wantUnit   string
		wantTotal  string
		wantCommPc *string
	}{
		{name: "net", pricing: netPricing("2000"), sold: 15, wantUnit: "2000", wantTotal: "30000"},
		{name: "net nothing sold", pricing: netPricing("2000"), sold: 0, wantUnit: "2000", wantTotal: "0"},
		{name: "komisi 20%", pricing: commissionPricing("3000", "20"), sold: 10, wantUnit: "3000", wantTotal: "24000"},
		{name: "komisi fractional", pricing: commissionPricing("2500", "12.5"), sold: 3, wantUnit: "2500", wantTotal: "6562.5"},
		{name: "komisi 0%", pricing: commissionPricing("3000", "0"), sold: 2, wantUnit: "3000", wantTotal: "6000"},
		{name: "net missing price", pricing: Pricing{Scheme: models.PriceSchemeNet}, sold: 4, wantUnit: "0", wantTotal: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BillFor(tt.pricing, tt.sold)
			if !b.UnitPrice.Equal(d(tt.wantUnit)) {
				t.Errorf("unit = %s, want %s", b.UnitPrice, tt.wantUnit)
			}
			if !b.Total.Equal(d(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", b.Total, tt.wantTotal)
			}
		})
	}
}

func TestBillForCommissionBreakdown(t *testing.T) {
	b := BillFor(commissionPricing("3000", "20"), 10)
	if !b.Gross.Equal(d("30000")) || !b.Commission.Equal(d("6000")) {
		t.Errorf("gross=%s commission=%s", b.Gross, b.Commission)
	}
	if b.CommissionPercent == nil || !b.CommissionPercent.Equal(d("20")) {
		t.Errorf("commission percent = %v", b.CommissionPercent)
	}

	if n := BillFor(netPricing("2000"), 1); n.CommissionPercent != nil {
		t.Errorf("net bill carries commission percent %v", n.CommissionPercent)
	}
}

func TestResolvePaymentStatus(t *testing.T) {
	tests := []struct {
		paid, total string
		want        models.PaymentStatus
	}{
		{"0", "10000", models.PaymentUnpaid},
		{"5000", "10000", models.PaymentPartial},
		{"10000", "10000", models.PaymentPaid},
		{"12000", "10000", models.PaymentPaid},
		{"0", "0", models.PaymentUnpaid},
		// nothing billed: money received does not make it lunas or sebagian
		{"5000", "0", models.PaymentUnpaid},
	}
	for _, tt := range tests {
		if got := ResolvePaymentStatus(d(tt.paid), d(tt.total)); got != tt.want {
			t.Errorf("ResolvePaymentStatus(%s, %s) = %s, want %s", tt.paid, tt.total, got, tt.want)
		}
	}
}

func TestMarginPercent(t *testing.T) {
	if got := MarginPercent(d("2000"), d("1500")); !got.Equal(d("25")) {
		t.Errorf("margin = %s, want 25", got)
	}
	if got := MarginPercent(d("0"), d("1500")); !got.IsZero() {
		t.Errorf("zero price margin = %s", got)
	}
	if got := MarginPercent(d("1000"), d("1200")); !got.Equal(d("-20")) {
		t.Errorf("loss margin = %s, want -20", got)
	}
}

func TestSettleNetScheme(t *testing.T) {
	s, err := Settle(VisitInput{
		InitialStock:   50,
		RemainingStock: 12,
		RestockAmount:  30,
		Pricing:        netPricing("2000"),
		HPP:            d("1200"),
		PaidAmount:     d("76000"),
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if s.Sold != 38 {
		t.Errorf("sold = %d, want 38", s.Sold)
	}
	if s.NewStock != 42 {
		t.Errorf("new stock = %d, want 42", s.NewStock)
	}
	if !s.Bill.Total.Equal(d("76000")) {
		t.Errorf("bill = %s", s.Bill.Total)
	}
	if !s.TotalHPP.Equal(d("45600")) {
		t.Errorf("total hpp = %s", s.TotalHPP)
	}
	if !s.Profit.Equal(d("30400")) {
		t.Errorf("profit = %s", s.Profit)
	}
	if s.PaymentStatus != models.PaymentPaid {
		t.Errorf("status = %s", s.PaymentStatus)
	}
	if !s.MarginPercent.Equal(d("40")) || s.LowMargin {
		t.Errorf("margin = %s low=%v", s.MarginPercent, s.LowMargin)
	}
}

func TestSettleCommissionScheme(t *testing.T) {
	s, err := Settle(VisitInput{
		InitialStock:   20,
		RemainingStock: 10,
		Pricing:        commissionPricing("3000", "20"),
		HPP:            d("2800"),
		PaidAmount:     d("10000"),
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if !s.Bill.Total.Equal(d("24000")) {
		t.Errorf("bill = %s", s.Bill.Total)
	}
	if !s.Profit.Equal(d("-4000")) {
		t.Errorf("profit = %s, want -4000", s.Profit)
	}
	if s.PaymentStatus != models.PaymentPartial {
		t.Errorf("status = %s", s.PaymentStatus)
	}
	// (3000-2800)/3000 = 6.67% < 10%
	if !s.LowMargin {
		t.Errorf("expected low margin, got %s", s.MarginPercent)
	}
	if s.NewStock != 10 {
		t.Errorf("new stock = %d", s.NewStock)
	}
}

func TestSettleCustomThreshold(t *testing.T) {
	s, err := Settle(VisitInput{
		InitialStock:     5,
		RemainingStock:   0,
		Pricing:          netPricing("2000"),
		HPP:              d("1500"),
		LowMarginPercent: dp("30"),
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !s.LowMargin {
		t.Errorf("25%% margin should be low against 30%% threshold")
	}
	if s.PaymentStatus != models.PaymentUnpaid {
		t.Errorf("status = %s", s.PaymentStatus)
	}
}

func TestSettleZeroThresholdFlagsOnlyLosses(t *testing.T) {
	zero := dp("0")
	tests := []struct {
		name string
		hpp  string
		want bool
	}{
		{"thin margin", "1950", false},
		{"break even", "2000", false},
		{"loss", "2100", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Settle(VisitInput{
				InitialStock:     5,
				Pricing:          netPricing("2000"),
				HPP:              d(tt.hpp),
				LowMarginPercent: zero,
			})
			if err != nil {
				t.Fatalf("Settle: %v", err)
			}
			if s.LowMargin != tt.want {
				t.Errorf("LowMargin = %v at margin %s, want %v", s.LowMargin, s.MarginPercent, tt.want)
			}
		})
	}

	// tanpa threshold: default 10%
	s, err := Settle(VisitInput{InitialStock: 5, Pricing: netPricing("2000"), HPP: d("1950")})
	if err != nil {
		t.Fatal(err)
	}
	if !s.LowMargin {
		t.Errorf("2.5%% margin should be low against the default threshold")
	}
}

func TestSettleRejects(t *testing.T) {
	tests := []struct {
		name string
		in   VisitInput
		want error
	}{
		{"remaining above initial", VisitInput{InitialStock: 5, RemainingStock: 6}, ErrRemainingExceedsInitial},
		{"negative remaining", VisitInput{InitialStock: 5, RemainingStock: -1}, ErrNegativeStock},
		{"negative restock", VisitInput{InitialStock: 5, RemainingStock: 1, RestockAmount: -2}, ErrNegativeRestock},
		{"negative paid", VisitInput{InitialStock: 5, RemainingStock: 1, PaidAmount: d("-1")}, ErrNegativePaidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Pricing = netPricing("1000")
			if _, err := Settle(tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidatePricing(t *testing.T) {
	tests := []struct {
		name string
		p    Pricing
		want error
	}{
		{"net ok", netPricing("2000"), nil},
		{"net missing", Pricing{Scheme: models.PriceSchemeNet}, ErrNetPriceRequired},
		{"komisi ok", commissionPricing("3000", "15"), nil},
		{"komisi no price", Pricing{Scheme: models.PriceSchemeCommission, CommissionPercent: d("10")}, ErrSellingPriceNeeded},
		{"komisi over 100", commissionPricing("3000", "101"), ErrCommissionRange},
		{"komisi negative", commissionPricing("3000", "-1"), ErrCommissionRange},
		{"unknown", Pricing{Scheme: "barter"}, ErrInvalidScheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePricing(tt.p); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPricingOf(t *testing.T) {
	price := decimal.NewFromInt(2500)
	pct := decimal.NewFromInt(10)
	w := &models.Warung{PriceScheme: models.PriceSchemeCommission, SellingPrice: &price, CommissionPercent: &pct}

	p := PricingOf(w)
	if !p.SellingPrice.Equal(price) || !p.CommissionPercent.Equal(pct) || !p.NetPrice.IsZero() {
		t.Errorf("PricingOf = %+v", p)
	}
}
