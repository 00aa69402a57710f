package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rowfence/internal/config"
	"rowfence/internal/core/expiry"
	httpx "rowfence/internal/http"
	middlewarex "rowfence/internal/http/middleware"
	"rowfence/internal/services/directory"
	"rowfence/internal/services/inventory"
	"rowfence/internal/store/postgres"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init DB
	pool := postgres.MustOpen(ctx, cfg.DB.DSN)
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	repo := postgres.NewRepo(pool)

	// Redis is optional; without it key caching and rate limiting are off
	var rdb *redis.Client
	var keyCache *middlewarex.KeyCache
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, continuing without it")
			rdb = nil
		} else {
			keyCache = middlewarex.NewKeyCache(rdb, cfg.Sec.KeyCacheTTL)
		}
	}

	// Services
	directoryService := directory.NewService(repo.Tenants())
	inventoryService := inventory.NewService(repo.Widgets(), repo.Orders(), cfg.Tenancy.Column)

	// Start expiry worker
	worker := expiry.NewWorker(inventoryService, cfg.Worker.ExpiryInterval, cfg.Worker.ExpiryBatch)
	go worker.Run(ctx)

	// Router
	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:           cfg,
		DirectoryService: directoryService,
		InventoryService: inventoryService,
		WidgetRepo:       repo.Widgets(),
		OrderRepo:        repo.Orders(),
		Redis:            rdb,
		KeyCache:         keyCache,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("rowfence API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server stopped")
}
