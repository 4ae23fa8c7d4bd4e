package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mhmdrezaafshar11/public-site/internal/api"
	"github.com/mhmdrezaafshar11/public-site/internal/cart"
	"github.com/mhmdrezaafshar11/public-site/internal/config"
	"github.com/mhmdrezaafshar11/public-site/internal/gateway"
	"github.com/mhmdrezaafshar11/public-site/internal/session"
	"github.com/mhmdrezaafshar11/public-site/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	store, cleanup, err := buildStorage(ctx, cfg)
	if err != nil {
		logger.Error("failed to set up storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer cleanup()
	logger.Info("storage ready", "driver", cfg.StorageDriver)

	apiClient := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	sessions := session.NewStore(apiClient, store, nil, logger)
	ledger := cart.NewLedger(store, logger)

	// Bootstrap: restore both stores exactly once before serving.
	restoreCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := sessions.Restore(restoreCtx); err != nil {
		logger.Warn("session restore failed, starting anonymous", "error", err)
	}
	sessions.CheckAuth(restoreCtx)
	if err := ledger.Restore(restoreCtx); err != nil {
		logger.Warn("cart restore failed, starting empty", "error", err)
	}
	ledger.LoadCart()
	cancel()

	router := gateway.NewRouter(sessions, ledger, cfg)
	srv := gateway.NewServer(router, cfg.HTTPPort)

	go func() {
		logger.Info("storefront gateway starting", "port", cfg.HTTPPort, "api_url", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down storefront gateway")
	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("storefront gateway stopped")
}

func buildStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	nop := func() {}

	switch cfg.StorageDriver {
	case config.DriverMemory:
		return storage.NewMemoryStorage(), nop, nil

	case config.DriverFile:
		fs, err := storage.NewFileStorage(cfg.DataDir)
		if err != nil {
			return nil, nop, err
		}
		return fs, nop, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nop, err
		}
		return storage.NewRedisStorage(client), func() { client.Close() }, nil

	case config.DriverMongo:
		db, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nop, err
		}
		cleanup := func() { db.Client().Disconnect(context.Background()) }
		return storage.NewMongoStorage(db), cleanup, nil

	default:
		return storage.NewMemoryStorage(), nop, nil
	}
}
