package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/repository"
	"github.com/noah-isme/guardguys-scheduler/internal/service"
	"github.com/noah-isme/guardguys-scheduler/internal/stubapi"
	"github.com/noah-isme/guardguys-scheduler/pkg/config"
	"github.com/noah-isme/guardguys-scheduler/pkg/database"
	"github.com/noah-isme/guardguys-scheduler/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	var (
		users  stubapi.UserStore
		events stubapi.EventStore
	)
	switch cfg.Stub.Store {
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database, logr)
		if err != nil {
			logr.Fatal("failed to connect database", zap.Error(err))
		}
		defer db.Close()
		if err := repository.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
		users = repository.NewUserRepository(db, metrics)
		events = repository.NewEventRepository(db, metrics)
	default:
		store := stubapi.NewMemoryStore()
		users = store.Users()
		events = store.Events()
	}

	srv := stubapi.NewServer(users, events, validator.New(), logr, metrics)
	if err := srv.SeedAdmin(ctx, cfg.Stub.AdminEmail, cfg.Stub.AdminPassword); err != nil {
		logr.Fatal("failed to seed admin", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", cfg.Stub.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(cfg.CORS.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logr.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	logr.Sugar().Infow("stub server starting", "addr", addr, "env", cfg.Env, "store", cfg.Stub.Store)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
