package distribution_test

import (
	"net/http"
	"testing"
	"time"

	"sijuk-backend/internal/distribution"
	"sijuk-backend/internal/models"
	"sijuk-backend/internal/notify"
	"sijuk-backend/internal/period"
	"sijuk-backend/internal/testutil"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

type fakeSender struct{ sent []string }

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbotapi.Message{}, nil
}

// seedHPP records a batch whose HPP per unit is hpp.
func seedHPP(t *testing.T, env *testutil.Env, hpp string) {
	t.Helper()
	b := models.ProductionBatch{
		UserID:            env.User.ID,
		Date:              mustDate(t, "2026-09-30"),
		TotalMaterialCost: testutil.D(hpp).Mul(decimal.NewFromInt(100)),
		QuantityProduced:  100,
		HPPPerUnit:        testutil.D(hpp),
	}
	if err := env.DB.Create(&b).Error; err != nil {
		t.Fatal(err)
	}
}

func seedWarung(t *testing.T, env *testutil.Env, w models.Warung) models.Warung {
	t.Helper()
	w.UserID = env.User.ID
	w.IsActive = true
	if err := env.DB.Create(&w).Error; err != nil {
		t.Fatal(err)
	}
	return w
}

func TestCreateTransactionNetScheme(t *testing.T) {
	env := testutil.New(t)
	seedHPP(t, env, "1000")
	w := seedWarung(t, env, models.Warung{
		Name:         "Warung Bu Tini",
		PriceScheme:  models.PriceSchemeNet,
		NetPrice:     testutil.Dp("1500"),
		CurrentStock: 50,
	})

	var resp distribution.CreateTransactionResponse
	env.MustDo(http.StatusCreated, http.MethodPost, "/api/transactions", map[string]any{
		"warung_id":       w.ID,
		"date":            "2026-10-02",
		"remaining_stock": 20,
		"restock_amount":  30,
		"paid_amount":     testutil.D("45000"),
	}, &resp)

	calc := resp.Calculations
	if calc.InitialStock != 50 || calc.Sold != 30 || calc.NewStock != 50 {
		t.Fatalf("stock figures %+v", calc)
	}
	testutil.AssertDecimal(t, "total_bill", calc.TotalBill, "45000")
	testutil.AssertDecimal(t, "hpp_at_time", calc.HPPAtTime, "1000")
	testutil.AssertDecimal(t, "profit", calc.Profit, "15000")
	testutil.AssertDecimal(t, "margin", calc.MarginPercent, "33.33")
	if calc.IsLowMargin {
		t.Error("33% margin flagged as low")
	}

	trx := resp.Transaction
	if trx.PaymentStatus != models.PaymentPaid || trx.PriceSchemeAtTime != models.PriceSchemeNet {
		t.Errorf("transaction snapshot %+v", trx)
	}
	if trx.CommissionPercentAtTime != nil {
		t.Errorf("net scheme stored commission %s", trx.CommissionPercentAtTime)
	}

	var got models.Warung
	env.DB.First(&got, "id = ?", w.ID)
	if got.CurrentStock != 50 {
		t.Errorf("warung stock = %d, want 50", got.CurrentStock)
	}
}

func TestCreateTransactionCommissionScheme(t *testing.T) {
	env := testutil.New(t)
	seedHPP(t, env, "1000")
	w := seedWarung(t, env, models.Warung{
		Name:              "Toko Makmur",
		PriceScheme:       models.PriceSchemeCommission,
		SellingPrice:      testutil.Dp("2000"),
		CommissionPercent: testutil.Dp("20"),
		CurrentStock:      15,
	})

	var resp distribution.CreateTransactionResponse
	env.MustDo(http.StatusCreated, http.MethodPost, "/api/transactions", map[string]any{
		"warung_id":       w.ID,
		"remaining_stock": 5,
		"paid_amount":     testutil.D("10000"),
	}, &resp)

	calc := resp.Calculations
	testutil.AssertDecimal(t, "gross", calc.GrossAmount, "20000")
	testutil.AssertDecimal(t, "commission", calc.Commission, "4000")
	testutil.AssertDecimal(t, "total_bill", calc.TotalBill, "16000")
	testutil.AssertDecimal(t, "profit", calc.Profit, "6000")
	if calc.NewStock != 5 {
		t.Errorf("new stock = %d, want 5", calc.NewStock)
	}
	if resp.Transaction.PaymentStatus != models.PaymentPartial {
		t.Errorf("status = %s, want sebagian", resp.Transaction.PaymentStatus)
	}
	if resp.Transaction.CommissionPercentAtTime == nil {
		t.Fatal("commission snapshot missing")
	}
	testutil.AssertDecimal(t, "commission snapshot", *resp.Transaction.CommissionPercentAtTime, "20")
}

func TestCreateTransactionWithoutBatchUsesZeroHPP(t *testing.T) {
	env := testutil.New(t)
	w := seedWarung(t, env, models.Warung{Name: "A", PriceScheme: models.PriceSchemeNet, NetPrice: testutil.Dp("1500"), CurrentStock: 10})

	var resp distribution.CreateTransactionResponse
	env.MustDo(http.StatusCreated, http.MethodPost, "/api/transactions", map[string]any{
		"warung_id":       w.ID,
		"remaining_stock": 10,
	}, &resp)
	testutil.AssertDecimal(t, "hpp", resp.Calculations.HPPAtTime, "0")
	if resp.Calculations.Sold != 0 || resp.Transaction.PaymentStatus != models.PaymentUnpaid {
		t.Errorf("unexpected result %+v", resp.Calculations)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	env := testutil.New(t)
	w := seedWarung(t, env, models.Warung{Name: "A", PriceScheme: models.PriceSchemeNet, NetPrice: testutil.Dp("1500"), CurrentStock: 10})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"remaining above initial", map[string]any{"warung_id": w.ID, "remaining_stock": 11}, http.StatusBadRequest},
		{"negative remaining", map[string]any{"warung_id": w.ID, "remaining_stock": -1}, http.StatusBadRequest},
		{"negative restock", map[string]any{"warung_id": w.ID, "remaining_stock": 5, "restock_amount": -3}, http.StatusBadRequest},
		{"negative paid", map[string]any{"warung_id": w.ID, "remaining_stock": 5, "paid_amount": -1}, http.StatusBadRequest},
		{"missing remaining", map[string]any{"warung_id": w.ID}, http.StatusBadRequest},
		{"unknown warung", map[string]any{"warung_id": "tidak-ada", "remaining_stock": 0}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, raw := env.Do(http.MethodPost, "/api/transactions", tt.body); status != tt.want {
				t.Errorf("status %d, want %d (%s)", status, tt.want, raw)
			}
		})
	}

	var got models.Warung
	env.DB.First(&got, "id = ?", w.ID)
	if got.CurrentStock != 10 {
		t.Errorf("failed requests changed warung stock to %d", got.CurrentStock)
	}
}

func TestLowMarginNotifiesOwner(t *testing.T) {
	env := testutil.New(t)
	fs := &fakeSender{}
	notify.Default = notify.New(fs, 99, false)

	seedHPP(t, env, "1000")
	w := seedWarung(t, env, models.Warung{Name: "Warung Tipis", PriceScheme: models.PriceSchemeNet, NetPrice: testutil.Dp("1050"), CurrentStock: 10})

	var resp distribution.CreateTransactionResponse
	env.MustDo(http.StatusCreated, http.MethodPost, "/api/transactions", map[string]any{
		"warung_id":       w.ID,
		"remaining_stock": 0,
	}, &resp)

	if !resp.Calculations.IsLowMargin {
		t.Fatalf("margin %s not flagged", resp.Calculations.MarginPercent)
	}
	if len(fs.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(fs.sent))
	}
}

func TestUpdatePaymentDerivesStatus(t *testing.T) {
	env := testutil.New(t)
	w := seedWarung(t, env, models.Warung{Name: "A", PriceScheme: models.PriceSchemeNet, NetPrice: testutil.Dp("1000"), CurrentStock: 10})

	var resp distribution.CreateTransactionResponse
	env.MustDo(http.StatusCreated, http.MethodPost, "/api/transactions", map[string]any{
		"warung_id":       w.ID,
		"remaining_stock": 0,
	}, &resp)
	path := "/api/transactions/" + resp.Transaction.ID + "/payment"

	tests := []struct {
		paid string
		want models.PaymentStatus
	}{
		{"4000", models.PaymentPartial},
		{"10000", models.PaymentPaid},
		{"12000", models.PaymentPaid},
		{"0", models.PaymentUnpaid},
	}
	for _, tt := range tests {
		var got models.Transaction
		// status dari client diabaikan
		env.MustDo(http.StatusOK, http.MethodPut, path, map[string]any{
			"paid_amount":    testutil.D(tt.paid),
			"payment_status": "lunas",
		}, &got)
		if got.PaymentStatus != tt.want {
			t.Errorf("paid %s: status %s, want %s", tt.paid, got.PaymentStatus, tt.want)
		}
	}

	if status, _ := env.Do(http.MethodPut, path, map[string]any{"paid_amount": -5}); status != http.StatusBadRequest {
		t.Errorf("negative paid: status %d, want 400", status)
	}
}

func TestListLastAndSummary(t *testing.T) {
	env := testutil.New(t)
	seedHPP(t, env, "1000")
	a := seedWarung(t, env, models.Warung{Name: "A", PriceScheme: models.PriceSchemeNet, NetPrice: testutil.Dp("1500"), CurrentStock: 20})
	b := seedWarung(t, env, models.Warung{Name: "B", PriceScheme: models.PriceSchemeNet, NetPrice: testutil.Dp("1500"), CurrentStock: 20})

	visits := []struct {
		warung    string
		date      string
		remaining int
		restock   int
		paid      string
	}{
		{a.ID, "2026-10-01", 10, 10, "15000"}, // sold 10
		{a.ID, "2026-10-08", 15, 0, "0"},      // sold 5
		{b.ID, "2026-10-03", 18, 0, "3000"},   // sold 2
	}
	for _, v := range visits {
		env.MustDo(http.StatusCreated, http.MethodPost, "/api/transactions", map[string]any{
			"warung_id":       v.warung,
			"date":            v.date,
			"remaining_stock": v.remaining,
			"restock_amount":  v.restock,
			"paid_amount":     testutil.D(v.paid),
		}, nil)
	}

	var list []models.Transaction
	env.MustDo(http.StatusOK, http.MethodGet, "/api/transactions?warung_id="+a.ID, nil, &list)
	if len(list) != 2 || list[0].Sold != 5 {
		t.Fatalf("list by warung: %+v", list)
	}
	if list[0].Warung == nil || list[0].Warung.Name != "A" {
		t.Error("warung not preloaded")
	}

	var last models.Transaction
	env.MustDo(http.StatusOK, http.MethodGet, "/api/transactions/warung/"+a.ID+"/last", nil, &last)
	if last.Sold != 5 || last.InitialStock != 20 {
		t.Errorf("last transaction %+v", last)
	}

	status, raw := env.Do(http.MethodGet, "/api/transactions/warung/tidak-ada/last", nil)
	if status != http.StatusOK || string(raw) != "null" {
		t.Errorf("last for unknown warung: %d %s", status, raw)
	}

	var sum distribution.Summary
	env.MustDo(http.StatusOK, http.MethodGet, "/api/transactions/summary?from=2026-10-01&to=2026-10-03", nil, &sum)
	if sum.Count != 2 || sum.TotalSold != 12 {
		t.Fatalf("summary %+v", sum)
	}
	testutil.AssertDecimal(t, "total_bill", sum.TotalBill, "18000")
	testutil.AssertDecimal(t, "total_profit", sum.TotalProfit, "6000")
	testutil.AssertDecimal(t, "total_paid", sum.TotalPaid, "18000")
	testutil.AssertDecimal(t, "unpaid", sum.Unpaid, "0")
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := period.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreateTransactionLocksWarungRow(t *testing.T) {
	env := testutil.New(t)
	w := seedWarung(t, env, models.Warung{
		Name:         "Warung Pak Joko",
		PriceScheme:  models.PriceSchemeNet,
		NetPrice:     testutil.Dp("1500"),
		CurrentStock: 50,
	})
	locks := env.TrackRowLocks()

	var first, second distribution.CreateTransactionResponse
	env.MustDo(http.StatusCreated, http.MethodPost, "/api/transactions", map[string]any{
		"warung_id": w.ID, "date": "2026-10-02", "remaining_stock": 30, "restock_amount": 10,
	}, &first)
	env.MustDo(http.StatusCreated, http.MethodPost, "/api/transactions", map[string]any{
		"warung_id": w.ID, "date": "2026-10-03", "remaining_stock": 25,
	}, &second)

	if second.Calculations.InitialStock != 40 || second.Calculations.Sold != 15 {
		t.Errorf("second visit %+v, want initial 40 sold 15", second.Calculations)
	}

	locked := 0
	for _, table := range locks() {
		if table == "warungs" {
			locked++
		}
	}
	if locked != 2 {
		t.Errorf("warung row locked %d times, want 2 (got %v)", locked, locks())
	}
}
