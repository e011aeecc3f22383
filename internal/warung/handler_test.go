package warung_test

import (
	"net/http"
	"testing"

	"sijuk-backend/internal/models"
	"sijuk-backend/internal/testutil"
)

func createNet(env *testutil.Env, name, address, price string) models.Warung {
	env.T.Helper()
	var w models.Warung
	env.MustDo(http.StatusCreated, http.MethodPost, "/api/warungs", map[string]any{
		"name":      name,
		"address":   address,
		"net_price": testutil.D(price),
	}, &w)
	return w
}

func TestCreateWarungDefaults(t *testing.T) {
	env := testutil.New(t)

	w := createNet(env, "Warung Bu Tini", "Jl. Melati 3", "1500")
	if w.PriceScheme != models.PriceSchemeNet || !w.IsActive || w.CurrentStock != 0 {
		t.Fatalf("unexpected defaults %+v", w)
	}
	testutil.AssertDecimal(t, "net_price", *w.NetPrice, "1500")
}

func TestCreateWarungPricingValidation(t *testing.T) {
	env := testutil.New(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"net without price", map[string]any{"name": "A", "price_scheme": "net"}, http.StatusBadRequest},
		{"komisi without selling price", map[string]any{"name": "A", "price_scheme": "komisi", "commission_percent": 10}, http.StatusBadRequest},
		{"komisi over 100", map[string]any{"name": "A", "price_scheme": "komisi", "selling_price": 2000, "commission_percent": 120}, http.StatusBadRequest},
		{"unknown scheme", map[string]any{"name": "A", "price_scheme": "grosir", "net_price": 1000}, http.StatusBadRequest},
		{"missing name", map[string]any{"net_price": 1000}, http.StatusBadRequest},
		{"valid komisi", map[string]any{"name": "A", "price_scheme": "komisi", "selling_price": 2000, "commission_percent": 20}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, raw := env.Do(http.MethodPost, "/api/warungs", tt.body); status != tt.want {
				t.Errorf("status %d, want %d (%s)", status, tt.want, raw)
			}
		})
	}
}

func TestUpdateWarungRevalidatesMergedPricing(t *testing.T) {
	env := testutil.New(t)
	w := createNet(env, "Warung Pojok", "", "1500")

	// pindah ke komisi tanpa harga jual: tidak valid setelah digabung
	if status, _ := env.Do(http.MethodPut, "/api/warungs/"+w.ID, map[string]any{"price_scheme": "komisi"}); status != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", status)
	}

	var got models.Warung
	env.MustDo(http.StatusOK, http.MethodPut, "/api/warungs/"+w.ID, map[string]any{
		"price_scheme":       "komisi",
		"selling_price":      testutil.D("2000"),
		"commission_percent": testutil.D("15"),
	}, &got)
	if got.PriceScheme != models.PriceSchemeCommission || got.Name != "Warung Pojok" {
		t.Fatalf("unexpected update result %+v", got)
	}
}

func TestListSearchAndSoftDelete(t *testing.T) {
	env := testutil.New(t)
	a := createNet(env, "Warung Bu Tini", "Jl. Melati", "1500")
	createNet(env, "Toko Makmur", "Pasar BARU", "1500")
	createNet(env, "Kios Sentosa", "Jl. Kenanga", "1500")

	var list []models.Warung
	env.MustDo(http.StatusOK, http.MethodGet, "/api/warungs", nil, &list)
	if len(list) != 3 {
		t.Fatalf("list = %d, want 3", len(list))
	}

	env.MustDo(http.StatusOK, http.MethodGet, "/api/warungs?search=tini", nil, &list)
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("search by name: %+v", list)
	}
	env.MustDo(http.StatusOK, http.MethodGet, "/api/warungs?search=baru", nil, &list)
	if len(list) != 1 || list[0].Name != "Toko Makmur" {
		t.Fatalf("search by address: %+v", list)
	}

	env.MustDo(http.StatusNoContent, http.MethodDelete, "/api/warungs/"+a.ID, nil, nil)
	env.MustDo(http.StatusOK, http.MethodGet, "/api/warungs", nil, &list)
	if len(list) != 2 {
		t.Fatalf("list after soft delete = %d, want 2", len(list))
	}

	// data tetap ada, hanya nonaktif
	var got models.Warung
	env.MustDo(http.StatusOK, http.MethodGet, "/api/warungs/"+a.ID, nil, &got)
	if got.IsActive {
		t.Error("deleted warung is still active")
	}
}

func TestSetStock(t *testing.T) {
	env := testutil.New(t)
	w := createNet(env, "Warung Bu Tini", "", "1500")

	var got models.Warung
	env.MustDo(http.StatusOK, http.MethodPut, "/api/warungs/"+w.ID+"/stock", map[string]any{"current_stock": 25}, &got)
	if got.CurrentStock != 25 {
		t.Fatalf("current_stock = %d, want 25", got.CurrentStock)
	}

	for _, body := range []map[string]any{{"current_stock": -1}, {}} {
		if status, _ := env.Do(http.MethodPut, "/api/warungs/"+w.ID+"/stock", body); status != http.StatusBadRequest {
			t.Errorf("body %v: status %d, want 400", body, status)
		}
	}
}
