package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sijuk-backend/internal/cache"
	"sijuk-backend/internal/config"
	"sijuk-backend/internal/database"
	"sijuk-backend/internal/logger"
	"sijuk-backend/internal/notify"
	"sijuk-backend/internal/server"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.Init(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	for _, w := range cfg.Warnings {
		zlog.Warn(w)
	}

	if err := database.Init(cfg); err != nil {
		zlog.Fatal("database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	dash, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.DashboardCacheTTL)
	cancel()
	if err != nil {
		// tanpa cache dashboard tetap jalan, hanya lebih lambat
		zlog.Warn("redis tidak tersedia, cache dashboard nonaktif", zap.Error(err))
	}
	cache.Default = dash

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		n, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			zlog.Warn("telegram tidak tersedia, notifikasi nonaktif", zap.Error(err))
		} else {
			notify.Default = n
		}
	}

	app, err := server.New(cfg)
	if err != nil {
		zlog.Fatal("server", zap.Error(err))
	}

	var metricsApp *fiber.App
	if cfg.MetricsEnabled {
		metricsApp = server.NewMetrics()
		go func() {
			zlog.Info("Metrics berjalan", zap.String("addr", cfg.MetricsAddr))
			if err := metricsApp.Listen(cfg.MetricsAddr); err != nil {
				zlog.Error("metrics listen", zap.Error(err))
			}
		}()
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		zlog.Info("Server berhenti")
		if metricsApp != nil {
			_ = metricsApp.ShutdownWithTimeout(5 * time.Second)
		}
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	zlog.Info("Server berjalan", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		zlog.Fatal("listen", zap.Error(err))
	}
}
