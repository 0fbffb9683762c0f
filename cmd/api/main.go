package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-inventory-pos/internal/auth"
	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/metrics"
	"go-inventory-pos/internal/ratelimit"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/server"
	"go-inventory-pos/internal/ws"
	"go-inventory-pos/pkg/database"
	"go-inventory-pos/pkg/jwt"
	"go-inventory-pos/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg := config.Load()

	// 2. Logger
	zapLog, err := logger.NewZapLogger(&logger.Config{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	// 3. Database
	db, err := database.Connect(cfg.Database, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLog.Fatal("Failed to migrate database", zap.Error(err))
	}
	if cfg.Inventory.SeedCategories {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := repository.NewCategoryRepo(db).SeedDefaults(seedCtx)
		cancel()
		if err != nil {
			zapLog.Warn("Failed to seed categories", zap.Error(err))
		} else if n > 0 {
			zapLog.Info("Default categories seeded", zap.Int("created", n))
		}
	}

	// 4. Rate limiter backend
	var limiter ratelimit.Limiter
	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// The limiter fails open, so the server still starts.
			zapLog.Warn("Redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		limiter = ratelimit.NewRedisLimiter(redisClient, ratelimit.Options{
			Limit:   cfg.RateLimit.Requests,
			Window:  cfg.RateLimit.Window,
			Timeout: cfg.RateLimit.Timeout,
			Prefix:  cfg.RateLimit.Prefix,
		})
	} else {
		zapLog.Warn("Rate limiting disabled")
	}

	// 5. WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := ws.NewHub(zapLog)
	go wsHub.Run(hubCtx)

	// 6. HTTP server
	app := server.New(server.Deps{
		Config:   cfg,
		Log:      zapLog,
		DB:       db,
		Resolver: auth.NewResolver(jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)),
		Limiter:  limiter,
		Metrics:  metrics.New(),
		Hub:      wsHub,
	})

	// 7. Graceful Shutdown
	go func() {
		zapLog.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.AppEnv))
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zapLog.Panic("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zapLog.Error("Server forced to shutdown", zap.Error(err))
	}
	stopHub()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	zapLog.Info("Server exited")
}
