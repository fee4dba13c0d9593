package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"lab-tracker-backend/config"
	"lab-tracker-backend/internal/api"
	"lab-tracker-backend/internal/db"
	"lab-tracker-backend/internal/events"
	"lab-tracker-backend/internal/logging"
	"lab-tracker-backend/internal/notification"
	"lab-tracker-backend/internal/occupancy"
	"lab-tracker-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "labtrackd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	if err := appStore.EnsureLabs(ctx, cfg.Labs); err != nil {
		logger.Fatal("failed to seed labs", zap.Error(err))
	}
	logger.Info("data store initialized", zap.Strings("labs", cfg.Labs))

	var engineOpts []occupancy.Option

	publishers := buildPublishers(ctx, cfg, logger)
	if len(publishers) > 0 {
		defer publishers.Close()
		engineOpts = append(engineOpts, occupancy.WithPublisher(publishers))
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger)
		pool.Start(ctx)
		engineOpts = append(engineOpts, occupancy.WithDispatcher(pool))
	} else {
		logger.Warn("VAPID keys not configured, push notifications disabled")
	}

	engine := occupancy.NewEngine(appStore, logger, engineOpts...)

	router := api.NewRouter(appStore, engine, webpushOptions, cfg.Server, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}

// buildPublishers connects the enabled event sinks. A sink that cannot be
// reached is logged and skipped so scans keep working.
func buildPublishers(ctx context.Context, cfg *config.Config, logger *zap.Logger) events.Multi {
	var publishers events.Multi

	if cfg.Events.Redis.Enabled {
		p, err := events.NewRedisPublisher(ctx, cfg.Events.Redis)
		if err != nil {
			logger.Error("redis publisher disabled", zap.String("addr", cfg.Events.Redis.Addr), zap.Error(err))
		} else {
			publishers = append(publishers, p)
			logger.Info("publishing transitions to redis", zap.String("stream", cfg.Events.Redis.Stream))
		}
	}

	if cfg.Events.MQTT.Enabled {
		p, err := events.NewMQTTPublisher(cfg.Events.MQTT)
		if err != nil {
			logger.Error("mqtt publisher disabled", zap.String("broker", cfg.Events.MQTT.Broker), zap.Error(err))
		} else {
			publishers = append(publishers, p)
			logger.Info("publishing transitions to mqtt", zap.String("prefix", cfg.Events.MQTT.TopicPrefix))
		}
	}

	return publishers
}
