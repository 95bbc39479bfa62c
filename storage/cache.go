package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"bluegreen-api/domain"
)

type backend interface {
	Initialize(ctx context.Context) error
	ReadAll(ctx context.Context) ([]domain.Task, error)
	Append(ctx context.Context, task domain.Task) error
}

// Cache wraps a task store with a Redis-backed copy of the collection for the
// read path. Appends always go to the backing store and evict the copy.
type Cache struct {
	base      backend
	redis     *redis.Client
	ttl       time.Duration
	namespace string
	log       *log.Logger
}

// NewCache creates a caching wrapper. Entries live for ttl; a zero ttl keeps
// lookups but never stores.
func NewCache(base backend, client *redis.Client, namespace string, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{
		base:      base,
		redis:     client,
		ttl:       ttl,
		namespace: namespace,
		log:       logger,
	}
}

func (c *Cache) Initialize(ctx context.Context) error {
	if err := c.base.Initialize(ctx); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) ReadAll(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.load(ctx); ok {
		return tasks, nil
	}

	tasks, err := c.base.ReadAll(ctx)
	if err != nil {
		return tasks, err
	}

	c.store(ctx, tasks)
	return tasks, nil
}

func (c *Cache) Append(ctx context.Context, task domain.Task) error {
	if err := c.base.Append(ctx, task); err != nil {
		return err
	}

	c.evict(ctx)
	return nil
}

func (c *Cache) load(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	key := c.key()
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			c.log.WithError(err).Debug("tasks cache lookup failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	tasks := []domain.Task{}
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, c.key(), data, c.ttl).Err()
}

// Invalidate drops the cached collection. Callers that write the backing file
// outside this Cache use it so readers do not wait for the TTL.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, c.key()).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, c.key()).Err(); err != nil {
		c.log.WithError(err).Warn("tasks cache eviction failed")
	}
}

func (c *Cache) key() string {
	return tasksCacheKey(c.namespace)
}

func tasksCacheKey(namespace string) string {
	return "tasks:" + namespace
}
