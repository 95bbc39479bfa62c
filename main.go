package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"bluegreen-api/api"
	"bluegreen-api/config"
	"bluegreen-api/domain"
	"bluegreen-api/events"
	"bluegreen-api/storage"
)

const shutdownTimeout = 10 * time.Second

// taskStore is the file store, optionally behind the redis cache.
type taskStore interface {
	domain.TaskStorage
	Initialize(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileStore := storage.NewFileStore(cfg.TasksPath(), logger)
	var st taskStore = fileStore

	var rc *redis.Client
	var routeOpts []api.Option
	if cfg.RedisConn != "" {
		rc = redis.NewClient(storage.ParseRedisOptions(cfg.RedisConn))
		st = storage.NewCache(fileStore, rc, cfg.CacheNamespace(), cfg.CacheTTL, logger)
		routeOpts = append(routeOpts, api.WithDeduper(api.NewRedisDeduper(rc, cfg.CacheNamespace(), cfg.DeduperTTL)))
		logger.WithField("ttl", cfg.CacheTTL).Info("redis read cache enabled")
	}
	if err := st.Initialize(ctx); err != nil {
		logger.Fatalf("storage: %v", err)
	}

	var opts []domain.Option
	var dispatcher *events.Dispatcher
	if cfg.EventsEnabled() {
		pub, err := events.NewQueuePublisher(cfg.StorageConn, cfg.EventsQueue)
		if err != nil {
			logger.Fatalf("events: %v", err)
		}
		dispatcher = events.NewDispatcher(pub, events.DispatcherConfig{
			Workers:        cfg.EventWorkers,
			Buffer:         cfg.EventBuffer,
			PublishTimeout: cfg.EventTimeout,
			HandoffTimeout: cfg.EventHandoff,
		}, logger)
		opts = append(opts, domain.WithEvents(dispatcher))
		logger.WithField("queue", cfg.EventsQueue).Info("task events enabled")
	}

	svc := domain.NewTaskService(cfg.Mode, st, logger, opts...)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding, "Idempotency-Key"},
	}))
	if cfg.Pprof {
		pprof.Register(e)
	}
	api.Register(e, svc, cfg.TasksFile, logger, routeOpts...)

	logger.WithFields(log.Fields{
		"version": cfg.Mode,
		"data":    cfg.TasksPath(),
		"addr":    cfg.ListenAddr(),
	}).Info("server starting")

	go func() {
		if err := e.Start(cfg.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	if dispatcher != nil {
		dispatcher.Close()
		stats := dispatcher.Stats()
		logger.WithFields(log.Fields{
			"delivered": stats.Delivered,
			"failed":    stats.Failed,
			"dropped":   stats.Dropped,
		}).Info("task events drained")
	}
	if rc != nil {
		if err := rc.Close(); err != nil {
			logger.WithError(err).Warn("redis close")
		}
	}
}
