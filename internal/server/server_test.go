package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sijuk-backend/internal/server"
	"sijuk-backend/internal/testutil"
)

func TestMetricsNotOnPublicApp(t *testing.T) {
	cfg := testutil.Config()
	cfg.MetricsEnabled = true
	env := testutil.NewWithConfig(t, cfg)

	if status, _ := env.DoAs("", http.MethodGet, "/metrics", nil); status != http.StatusNotFound {
		t.Errorf("public /metrics: status %d, want 404", status)
	}
	if status, _ := env.DoAs("", http.MethodGet, "/health", nil); status != http.StatusOK {
		t.Errorf("/health: status %d", status)
	}
}

func TestMetricsApp(t *testing.T) {
	app := server.NewMetrics()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sijuk_billed_amount_total") {
		t.Error("metrics output missing sijuk_billed_amount_total")
	}
}
