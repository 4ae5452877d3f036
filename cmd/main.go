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

	"github.com/flightmode/competition-system/cache"
	"github.com/flightmode/competition-system/config"
	"github.com/flightmode/competition-system/db"
	"github.com/flightmode/competition-system/handlers"
	"github.com/flightmode/competition-system/live"
	"github.com/flightmode/competition-system/payments"
	"github.com/flightmode/competition-system/repositories"
	api "github.com/flightmode/competition-system/routes"
	"github.com/flightmode/competition-system/services"
	"github.com/flightmode/competition-system/storage"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const schedulerInterval = 30 * time.Second // How often expired competitions are swept

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

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

	// Кэш конкурсов опционален: без REDIS_ADDR работаем напрямую с базой.
	var competitionCache *cache.CompetitionCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		cancel()
		defer redisClient.Close()
		competitionCache = cache.NewCompetitionCache(redisClient, "competition-system", 30*time.Second)
		logger.Info("redis competition cache enabled", slog.String("addr", cfg.RedisAddr))
	}

	// Загрузчик изображений тоже опционален.
	var uploader storage.FileUploader
	if cfg.R2Configured() {
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
	}

	stripeProvider, err := payments.NewStripeProvider(cfg.StripeSecretKey)
	if err != nil {
		logger.Error("failed to initialize payment provider", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("payment provider initialized", slog.String("currency", cfg.StripeCurrency))

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	competitionRepo := repositories.NewPostgresCompetitionRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	txRunner := repositories.NewSQLTxRunner(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	competitionService := services.NewCompetitionService(
		competitionRepo,
		entryRepo,
		uploader,
		wsHub,
		competitionCache,
		logger,
	)
	entryService := services.NewEntryService(
		txRunner,
		entryRepo,
		competitionRepo,
		userRepo,
		wsHub,
		competitionCache,
		logger,
	)
	paymentService := services.NewPaymentService(competitionRepo, userRepo, stripeProvider, cfg.StripeCurrency, logger)
	dashboardService := services.NewDashboardService(entryRepo)
	logger.Info("Services initialized")

	// Планировщик автоматического закрытия конкурсов по end_date
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("competition close scheduler started", slog.Duration("interval", schedulerInterval))

		// Run once immediately at startup, then on ticker
		if err := competitionService.CloseExpired(context.Background()); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := competitionService.CloseExpired(context.Background()); err != nil {
				logger.Error("scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	competitionHandler := handlers.NewCompetitionHandler(competitionService)
	entryHandler := handlers.NewEntryHandler(entryService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	adminHandler := handlers.NewAdminHandler(competitionService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		competitionHandler,
		entryHandler,
		paymentHandler,
		dashboardHandler,
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
