package main

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"bluegreen-api/config"
	"bluegreen-api/events"
	"bluegreen-api/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	log.Info("storage init starting")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := storage.NewFileStore(cfg.TasksPath(), log.StandardLogger())
	if err := store.Initialize(ctx); err != nil {
		log.Fatalf("initialize tasks file: %v", err)
	}

	if seedPath := os.Getenv("SEED_FILE"); seedPath != "" {
		tasks, err := storage.ReadSeedFile(seedPath)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		wrote, err := store.Seed(ctx, tasks)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if !wrote {
			log.WithField("path", store.Path()).Info("tasks file not empty, seed skipped")
		} else if cfg.RedisConn != "" {
			rc := redis.NewClient(storage.ParseRedisOptions(cfg.RedisConn))
			defer rc.Close()
			cache := storage.NewCache(store, rc, cfg.CacheNamespace(), cfg.CacheTTL, log.StandardLogger())
			if err := cache.Invalidate(ctx); err != nil {
				log.WithError(err).Warn("clear tasks cache; readers may see the old list until CACHE_TTL")
			}
		}
	}

	if cfg.EventsEnabled() {
		if err := events.CreateQueue(ctx, cfg.StorageConn, cfg.EventsQueue); err != nil {
			log.Fatalf("create queue: %v", err)
		}
		log.WithField("queue", cfg.EventsQueue).Info("task events queue ready")
	}

	log.Info("storage init complete")
}
