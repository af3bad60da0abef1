package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/client"
	"github.com/noah-isme/guardguys-scheduler/internal/repository"
	"github.com/noah-isme/guardguys-scheduler/internal/service"
	"github.com/noah-isme/guardguys-scheduler/pkg/cache"
	"github.com/noah-isme/guardguys-scheduler/pkg/config"
	"github.com/noah-isme/guardguys-scheduler/pkg/logger"
	"github.com/noah-isme/guardguys-scheduler/pkg/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logr, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	api := client.New(cfg.API, nil, logr, metrics)

	var weekCache *service.CacheService
	if cfg.WeekCache.Enabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("week cache unavailable, fetching directly", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(rdb, logr)
			defer repo.Close()
			weekCache = service.NewCacheService(repo, metrics, cfg.WeekCache.StaleAfter, logr, true)
		}
	}

	files, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Error("export directory unavailable", zap.Error(err))
		return 1
	}

	return newApp(cfg, api, weekCache, metrics, files, logr, os.Stdout).run(ctx, os.Args[1:])
}
