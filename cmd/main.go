package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/rating-engine/config"
	"github.com/Dosada05/rating-engine/db"
	"github.com/Dosada05/rating-engine/handlers"
	"github.com/Dosada05/rating-engine/live"
	"github.com/Dosada05/rating-engine/repositories"
	api "github.com/Dosada05/rating-engine/routes"
	"github.com/Dosada05/rating-engine/services"
	"github.com/Dosada05/rating-engine/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("season", cfg.CurrentSeason),
	)

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Инициализация загрузчика снапшотов (Cloudflare R2), если настроен
	var uploader storage.FileUploader
	if cfg.SnapshotsEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("R2 credentials not set, leaderboard snapshots disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	ledgerRepo := repositories.NewPostgresMatchLedgerRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	matchProcessor := services.NewMatchProcessor(ratingRepo, ledgerRepo, wsHub, cfg.CurrentSeason, logger)
	leaderboardService := services.NewLeaderboardService(ratingRepo, ledgerRepo, cfg.CurrentSeason, cfg.LeaderboardCacheTTL)

	decayCfg := services.DefaultDecayConfig()
	decayCfg.InactivityThreshold = time.Duration(cfg.DecayThresholdDays) * 24 * time.Hour
	decayCfg.Amount = cfg.DecayAmount
	decayCfg.FloorRating = cfg.DecayFloor
	decayService := services.NewDecayService(ratingRepo, decayCfg, cfg.CurrentSeason, logger)

	snapshotService := services.NewSnapshotService(leaderboardService, uploader, cfg.CurrentSeason, logger)
	logger.Info("Services initialized")

	// Запуск планировщика decay неактивных игроков
	go func() {
		ticker := time.NewTicker(cfg.DecayInterval)
		defer ticker.Stop()
		logger.Info("Inactivity decay scheduler started", slog.Duration("interval", cfg.DecayInterval))

		for range ticker.C {
			decayed, err := decayService.ApplyInactivityDecay(context.Background())
			if err != nil {
				logger.Error("Scheduler: decay run failed", slog.Any("error", err))
				continue
			}
			logger.Info("Scheduler: decay run complete", slog.Int("decayed", decayed))
		}
	}()

	// Инициализация обработчиков HTTP
	matchHandler := handlers.NewMatchHandler(matchProcessor)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	adminHandler := handlers.NewAdminHandler(decayService, snapshotService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		dbConn,
		[]byte(cfg.JWTSecretKey),
		matchHandler,
		leaderboardHandler,
		adminHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
