// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bluegreen-api/domain"
)

// Config holds everything main needs to wire the service.
type Config struct {
	Mode      domain.Mode
	Port      string
	DataDir   string
	TasksFile string

	Debug     bool
	LogFormat string
	Pprof     bool

	RedisConn  string
	CacheTTL   time.Duration
	DeduperTTL time.Duration

	StorageConn  string
	EventsQueue  string
	EventWorkers int
	EventBuffer  int
	EventTimeout time.Duration
	EventHandoff time.Duration
}

// TasksPath returns the full path of the tasks file.
func (c Config) TasksPath() string {
	return filepath.Join(c.DataDir, c.TasksFile)
}

// CacheNamespace scopes redis keys to one tasks file, so deployments with
// different data directories can share a redis.
func (c Config) CacheNamespace() string {
	return c.TasksPath()
}

// ListenAddr returns the address echo listens on.
func (c Config) ListenAddr() string {
	return ":" + c.Port
}

// EventsEnabled reports whether task events should be published.
func (c Config) EventsEnabled() bool {
	return c.StorageConn != "" && c.EventsQueue != ""
}

// Load reads the environment, applying defaults for unset values.
func Load() (Config, error) {
	cfg := Config{
		Mode:      domain.ParseMode(os.Getenv("APP_VERSION")),
		Port:      envString("PORT", "3000"),
		DataDir:   envString("DATA_DIR", "data"),
		TasksFile: envString("TASKS_FILE", "tasks.json"),
		LogFormat: strings.ToLower(envString("LOG_FORMAT", "text")),
		RedisConn: os.Getenv("REDIS_CONNECTION_STRING"),

		StorageConn: os.Getenv("STORAGE_CONNECTION_STRING"),
		EventsQueue: os.Getenv("TASK_EVENTS_QUEUE"),
	}

	var err error
	if cfg.Debug, err = envBool("DEBUG", false); err != nil {
		return Config{}, err
	}
	if cfg.Pprof, err = envBool("PPROF", false); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = envDur("CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DeduperTTL, err = envDur("DEDUPER_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.EventWorkers, err = envInt("EVENT_WORKERS", 2); err != nil {
		return Config{}, err
	}
	if cfg.EventBuffer, err = envInt("EVENT_BUFFER", 64); err != nil {
		return Config{}, err
	}
	if cfg.EventTimeout, err = envDur("EVENT_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.EventHandoff, err = envDur("EVENT_HANDOFF_TIMEOUT", 15*time.Millisecond); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if c.TasksFile == "" || strings.ContainsRune(c.TasksFile, os.PathSeparator) {
		return fmt.Errorf("invalid TASKS_FILE %q: must be a plain file name", c.TasksFile)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	if c.DeduperTTL <= 0 {
		return fmt.Errorf("invalid DEDUPER_TTL: must be greater than zero")
	}
	if c.EventWorkers <= 0 {
		return fmt.Errorf("invalid EVENT_WORKERS: must be greater than zero")
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("invalid EVENT_BUFFER: must not be negative")
	}
	if c.EventsQueue != "" && c.StorageConn == "" {
		return fmt.Errorf("TASK_EVENTS_QUEUE requires STORAGE_CONNECTION_STRING")
	}
	return nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDur(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
