package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"compass-llm/internal/config"
	"compass-llm/internal/db"
	apihttp "compass-llm/internal/http"
	"compass-llm/internal/llm"
	"compass-llm/internal/repository"
	"compass-llm/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	provider := llm.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if cfg.GeminiAPIKey == "" {
		// Fallo lazy: la credencial recien se exige al crear la primera sesion.
		logger.Warn("gemini api key not configured")
	}

	var (
		tokenStore  service.RefreshTokenStore
		rateLimiter service.TurnRateLimiter
	)
	rateWindow := time.Duration(cfg.ChatRateWindowSeconds) * time.Second
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			rateLimiter = service.NewRedisTurnRateLimiter(redisClient, rateWindow, cfg.ChatRateMax)
		}
		cancel()
	}
	if rateLimiter == nil {
		rateLimiter = service.NewMemoryTurnRateLimiter(rateWindow, cfg.ChatRateMax)
	}

	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	userSvc := service.NewUserService(logger, userRepo)
	sessionSvc := service.NewSessionService(provider, cfg.Temperature, logger)
	exchangeSvc := service.NewExchangeService(provider, logger)
	guidanceSvc := service.NewGuidanceService(sessionSvc, exchangeSvc, conversationRepo, messageRepo, logger)

	authHandler := apihttp.NewAuthHandler(logger, userSvc, jwtSvc)
	chatHandler := apihttp.NewChatHandler(logger, guidanceSvc, rateLimiter)
	router := apihttp.NewRouter(logger, jwtSvc, authHandler, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
