package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"bluegreen-api/domain"
)

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers        int
	Buffer         int
	PublishTimeout time.Duration
	HandoffTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Buffer < 0 {
		c.Buffer = 0
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 10 * time.Second
	}
	if c.HandoffTimeout < 0 {
		c.HandoffTimeout = 0
	}
	return c
}

// Stats counts what happened to handed-off events.
type Stats struct {
	Delivered int64
	Failed    int64
	Dropped   int64
}

// Dispatcher publishes task events on a bounded pool of workers. Handing an
// event over never blocks longer than the handoff timeout; events that do not
// fit are dropped and logged.
type Dispatcher struct {
	pub Publisher
	cfg DispatcherConfig
	log *log.Logger
	now func() time.Time

	mu     sync.RWMutex
	closed bool
	jobs   chan TaskEvent
	wg     sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewDispatcher starts the workers.
func NewDispatcher(pub Publisher, cfg DispatcherConfig, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		pub:  pub,
		cfg:  cfg,
		log:  logger,
		now:  time.Now,
		jobs: make(chan TaskEvent, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Infof("task event dispatcher started, workers: %d, buffer: %d, timeout: %v, handoff: %v",
		cfg.Workers, cfg.Buffer, cfg.PublishTimeout, cfg.HandoffTimeout)
	return d
}

// TaskCreated queues a task-created event.
func (d *Dispatcher) TaskCreated(ctx context.Context, mode domain.Mode, task domain.Task) {
	ev := newTaskCreated(mode, task, d.now())
	if !d.tryEnqueue(ev) {
		d.dropped.Add(1)
		d.log.WithField("task", task.ID).Warn("task event buffer saturated; event dropped")
	}
}

func (d *Dispatcher) tryEnqueue(ev TaskEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.jobs <- ev:
		return true
	default:
	}

	if d.cfg.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(d.cfg.HandoffTimeout)
	defer timer.Stop()

	select {
	case d.jobs <- ev:
		return true
	case <-timer.C:
		return false
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
		err := d.pub.Publish(ctx, ev)
		cancel()

		if err != nil {
			d.failed.Add(1)
			d.log.Errorf("publish task event failed, err: %v, task: %d, worker: %d", err, ev.Task.ID, id)
			continue
		}
		d.delivered.Add(1)
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}
