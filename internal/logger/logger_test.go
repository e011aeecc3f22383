package logger

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddlewareLogsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	app := fiber.New()
	app.Use(Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		if FromCtx(c) == zap.L() {
			t.Error("expected request scoped logger")
		}
		return c.SendString("pong")
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "tidak ada")
	})

	for _, path := range []string{"/ping", "/missing"} {
		if _, err := app.Test(httptest.NewRequest("GET", path, nil)); err != nil {
			t.Fatalf("app.Test(%s): %v", path, err)
		}
	}

	entries := logs.FilterMessage("HTTP request").All()
	if len(entries) != 2 {
		t.Fatalf("logged %d requests, want 2", len(entries))
	}
	if got := entries[1].ContextMap()["status"]; got != int64(404) {
		t.Errorf("status field = %v, want 404", got)
	}
}

func TestInitLevels(t *testing.T) {
	restore := zap.ReplaceGlobals(zap.NewNop())
	defer restore()

	log, err := Init("production", "warn")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !log.Core().Enabled(zap.ErrorLevel) {
		t.Error("error should be enabled")
	}
}
