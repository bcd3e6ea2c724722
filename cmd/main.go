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

	"github.com/Pandnak/dancers-matcher/cache"
	"github.com/Pandnak/dancers-matcher/config"
	"github.com/Pandnak/dancers-matcher/db"
	"github.com/Pandnak/dancers-matcher/handlers"
	"github.com/Pandnak/dancers-matcher/live"
	"github.com/Pandnak/dancers-matcher/middleware"
	"github.com/Pandnak/dancers-matcher/repositories"
	api "github.com/Pandnak/dancers-matcher/routes"
	"github.com/Pandnak/dancers-matcher/services"
	"github.com/Pandnak/dancers-matcher/storage"
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

	// Redis опционален: без него KNN-рекомендации считаются на каждый запрос.
	var recommendationCache services.RecommendationCache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRecommendationCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			cancelPing()
			logger.Warn("redis unavailable, running without recommendation cache", slog.Any("error", err))
		} else {
			cancelPing()
			defer func() {
				if err := redisCache.Close(); err != nil {
					logger.Error("failed to close redis connection", slog.Any("error", err))
				}
			}()
			recommendationCache = redisCache
			logger.Info("recommendation cache connected", slog.String("addr", cfg.RedisAddr))
		}
	} else {
		logger.Info("REDIS_ADDR not set, recommendation cache disabled")
	}

	// Хранилище фотографий (Cloudflare R2) тоже опционально.
	var uploader storage.FileUploader
	if cfg.PhotoStorageConfigured() {
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
		logger.Info("photo storage not configured, photo upload disabled")
	}

	// Инициализация WebSocket Hub (лента событий пар)
	pairHub := live.NewHub()
	go pairHub.Run()
	logger.Info("pair feed hub started")

	// Инициализация репозиториев
	dancerRepo := repositories.NewPostgresDancerRepository(dbConn)
	requestRepo := repositories.NewPostgresRequestRepository(dbConn)
	pairRepo := repositories.NewPostgresPairRepository(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	txRunner := repositories.NewTxRunner(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	dancerService := services.NewDancerService(dancerRepo, requestRepo, pairRepo, txRunner, uploader, logger)
	requestService := services.NewRequestService(requestRepo, dancerRepo, pairRepo, txRunner, pairHub, recommendationCache, logger)
	pairService := services.NewPairService(pairRepo, dancerRepo, txRunner, pairHub, recommendationCache, logger)
	recommendationService := services.NewRecommendationService(dancerRepo, recommendationCache, logger)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	dancerHandler := handlers.NewDancerHandler(dancerService)
	requestHandler := handlers.NewRequestHandler(requestService)
	pairHandler := handlers.NewPairHandler(pairService)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)
	webSocketHandler := handlers.NewWebSocketHandler(pairHub, cfg.WSAllowedOrigins)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	authenticator := middleware.NewAuthenticator([]byte(cfg.JWTSecretKey))
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authenticator,
		authHandler,
		dancerHandler,
		requestHandler,
		pairHandler,
		recommendationHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

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
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
