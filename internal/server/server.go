// Package server builds the Fiber application and its routes.
package server

import (
	"sijuk-backend/internal/audit"
	"sijuk-backend/internal/auth"
	"sijuk-backend/internal/config"
	"sijuk-backend/internal/dashboard"
	"sijuk-backend/internal/distribution"
	"sijuk-backend/internal/expense"
	"sijuk-backend/internal/logger"
	"sijuk-backend/internal/material"
	"sijuk-backend/internal/metrics"
	"sijuk-backend/internal/production"
	"sijuk-backend/internal/report"
	"sijuk-backend/internal/warung"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func errorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	logger.FromCtx(c).Error("unexpected error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Terjadi kesalahan pada server",
	})
}

// NewMetrics is the internal listener for Prometheus, kept off the public port.
func NewMetrics() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "sijuk-backend-metrics",
		DisableStartupMessage: true,
	})
	app.Get("/metrics", metrics.Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	return app
}

// New wires middleware and every route. database.DB must be initialised.
func New(cfg *config.Config) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:      "sijuk-backend",
		ErrorHandler: errorHandler,
		BodyLimit:    10 * 1024 * 1024, // import Excel
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.Middleware())
	if cfg.MetricsEnabled {
		app.Use(metrics.Middleware())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins(),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: "Content-Disposition, X-RateLimit-Remaining",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	loginLimit, err := auth.RateLimit(cfg.LoginRateLimit)
	if err != nil {
		return nil, err
	}

	api := app.Group("/api")

	// Public auth
	api.Get("/auth/can-register", auth.CanRegisterHandler())
	api.Post("/auth/register", auth.RegisterHandler(cfg.JWTSecret))
	api.Post("/auth/login", loginLimit, auth.LoginHandler(cfg.JWTSecret))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler())
	protected.Get("/onboarding/status", auth.OnboardingStatusHandler())
	protected.Post("/onboarding/complete", auth.CompleteOnboardingHandler())

	// Bahan baku
	protected.Post("/materials", material.CreateMaterialHandler())
	protected.Get("/materials", material.ListMaterialsHandler())
	protected.Post("/materials/import", material.ImportMaterialsHandler())
	protected.Get("/materials/:id", material.GetMaterialHandler())
	protected.Put("/materials/:id", material.UpdateMaterialHandler())
	protected.Delete("/materials/:id", material.DeleteMaterialHandler())
	protected.Post("/materials/:id/stock", material.AddStockHandler())

	// Produksi
	protected.Post("/production-batches", production.CreateBatchHandler())
	protected.Get("/production-batches", production.ListBatchesHandler())
	protected.Get("/production-batches/latest-hpp", production.LatestHPPHandler())
	protected.Get("/production-batches/:id", production.GetBatchHandler())
	protected.Delete("/production-batches/:id", production.DeleteBatchHandler())

	// Warung
	protected.Post("/warungs", warung.CreateWarungHandler())
	protected.Get("/warungs", warung.ListWarungsHandler())
	protected.Get("/warungs/:id", warung.GetWarungHandler())
	protected.Put("/warungs/:id", warung.UpdateWarungHandler())
	protected.Delete("/warungs/:id", warung.DeleteWarungHandler())
	protected.Put("/warungs/:id/stock", warung.SetStockHandler())

	// Transaksi distribusi
	protected.Post("/transactions", distribution.CreateTransactionHandler(cfg.LowMarginPercent))
	protected.Get("/transactions", distribution.ListTransactionsHandler())
	protected.Get("/transactions/summary", distribution.SummaryHandler())
	protected.Get("/transactions/warung/:warungId/last", distribution.LastTransactionHandler())
	protected.Get("/transactions/:id", distribution.GetTransactionHandler())
	protected.Put("/transactions/:id/payment", distribution.UpdatePaymentHandler())

	// Pengeluaran
	protected.Post("/expenses", expense.CreateExpenseHandler())
	protected.Get("/expenses", expense.ListExpensesHandler())
	protected.Get("/expenses/summary", expense.SummaryHandler())
	protected.Get("/expenses/by-category", expense.ByCategoryHandler())
	protected.Get("/expenses/:id", expense.GetExpenseHandler())
	protected.Put("/expenses/:id", expense.UpdateExpenseHandler())
	protected.Delete("/expenses/:id", expense.DeleteExpenseHandler())

	// Dashboard
	protected.Get("/dashboard/summary", dashboard.SummaryHandler())
	protected.Get("/dashboard/recent", dashboard.RecentTransactionsHandler())
	protected.Get("/dashboard/weekly", dashboard.WeeklySummaryHandler())
	protected.Get("/dashboard/sales-chart", dashboard.SalesChartHandler())

	// Laporan bulanan
	protected.Post("/reports/monthly", report.CreateMonthlyReportHandler())
	protected.Get("/reports/monthly", report.ListMonthlyReportsHandler())
	protected.Get("/reports/monthly/export", report.ExportMonthlyHandler())
	protected.Get("/reports/monthly/:id", report.GetMonthlyReportHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())
	protected.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler())

	return app, nil
}
