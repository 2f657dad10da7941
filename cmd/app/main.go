package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BuzzLyutic/personal-tasks/internal/config"
	"github.com/BuzzLyutic/personal-tasks/internal/database"
	"github.com/BuzzLyutic/personal-tasks/internal/handler"
	"github.com/BuzzLyutic/personal-tasks/internal/service"
	"github.com/BuzzLyutic/personal-tasks/internal/worker"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// Подключаем логгер
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Подключаем БД
	connectCtx, cancelConnect := context.WithTimeout(ctx, 15*time.Second)
	stores, err := database.Open(connectCtx, cfg.DatabaseURL, cfg.MongoDatabase, logger)
	cancelConnect()
	if err != nil {
		logger.Fatal("Failed to connect to Database", zap.Error(err)) // Fatal потому что дальнейшая работа теряет смысл
	}
	defer stores.Close(context.Background()) // Запланированное закрытие соединения

	hasher := worker.NewHasher(logger, cfg.HashWorkers, cfg.BcryptCost)
	hasher.Start(ctx)
	defer hasher.Stop()

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(stores.Users, hasher, tokens, logger)
	taskService := service.NewTaskService(stores.Tasks)

	r := handler.NewRouter(handler.RouterConfig{
		Auth:           handler.NewAuthHandler(authService, logger),
		Tasks:          handler.NewTaskHandler(taskService, logger),
		Tokens:         tokens,
		Logger:         logger,
		AllowedOrigins: cfg.CORSOrigins,
	})

	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
