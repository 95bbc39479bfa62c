package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"bluegreen-api/domain"
)

type recordingPublisher struct {
	mu      sync.Mutex
	events  []TaskEvent
	started chan TaskEvent
	block   chan struct{}
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev TaskEvent) error {
	if p.started != nil {
		p.started <- ev
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) published() []TaskEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TaskEvent, len(p.events))
	copy(out, p.events)
	return out
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDispatcherDeliversEvents(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, DispatcherConfig{Workers: 2, Buffer: 8, HandoffTimeout: 50 * time.Millisecond}, quietLogger())

	for i := 1; i <= 5; i++ {
		d.TaskCreated(context.Background(), "Blue", domain.Task{ID: int64(i), Title: "t"})
	}
	d.Close()

	got := pub.published()
	if len(got) != 5 {
		t.Fatalf("expected 5 events, got %d", len(got))
	}
	for _, ev := range got {
		if ev.Type != TypeTaskCreated || ev.Mode != "Blue" || ev.Time == 0 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
	if s := d.Stats(); s.Delivered != 5 || s.Dropped != 0 || s.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestDispatcherDropsWhenSaturated(t *testing.T) {
	pub := &recordingPublisher{started: make(chan TaskEvent, 4), block: make(chan struct{})}
	d := NewDispatcher(pub, DispatcherConfig{Workers: 1, Buffer: 1}, quietLogger())

	d.TaskCreated(context.Background(), "Blue", domain.Task{ID: 1, Title: "a"})
	select {
	case <-pub.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up first event")
	}
	d.TaskCreated(context.Background(), "Blue", domain.Task{ID: 2, Title: "b"})
	d.TaskCreated(context.Background(), "Blue", domain.Task{ID: 3, Title: "c"})

	close(pub.block)
	d.Close()

	if s := d.Stats(); s.Delivered != 2 || s.Dropped != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	got := pub.published()
	if len(got) != 2 || got[0].Task.ID != 1 || got[1].Task.ID != 2 {
		t.Fatalf("unexpected published events: %+v", got)
	}
}

func TestDispatcherCountsFailures(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("queue down")}
	d := NewDispatcher(pub, DispatcherConfig{Workers: 1, Buffer: 4}, quietLogger())

	d.TaskCreated(context.Background(), "Blue", domain.Task{ID: 1, Title: "a"})
	d.TaskCreated(context.Background(), "Blue", domain.Task{ID: 2, Title: "b"})
	d.Close()

	if s := d.Stats(); s.Failed != 2 || s.Delivered != 0 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestDispatcherAfterCloseDrops(t *testing.T) {
	d := NewDispatcher(&recordingPublisher{}, DispatcherConfig{}, quietLogger())
	d.Close()
	d.Close()

	d.TaskCreated(context.Background(), "Blue", domain.Task{ID: 1, Title: "late"})
	if s := d.Stats(); s.Dropped != 1 {
		t.Fatalf("expected dropped event after close, got %+v", s)
	}
}

func TestDispatcherConfigDefaults(t *testing.T) {
	cfg := DispatcherConfig{Workers: -1, Buffer: -3, HandoffTimeout: -time.Second}.withDefaults()
	if cfg.Workers != 2 || cfg.Buffer != 0 || cfg.PublishTimeout != 10*time.Second || cfg.HandoffTimeout != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestQueuePublisherEncodesEvent(t *testing.T) {
	var sent string
	p := &QueuePublisher{send: func(ctx context.Context, content string) error {
		sent = content
		return nil
	}}
	created := time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC)
	ev := newTaskCreated("Blue v3", domain.Task{ID: 42, Title: "queue me", CreatedAt: created}, created)

	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var decoded TaskEvent
	if err := sonic.UnmarshalString(sent, &decoded); err != nil {
		t.Fatalf("invalid json %q: %v", sent, err)
	}
	if decoded.Type != TypeTaskCreated || decoded.Mode != "Blue v3" || decoded.Task.ID != 42 || decoded.Task.Title != "queue me" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
	if decoded.Time != created.UnixMilli() {
		t.Fatalf("unexpected time: %d", decoded.Time)
	}
}

func TestQueuePublisherReturnsSendError(t *testing.T) {
	boom := errors.New("throttled")
	p := &QueuePublisher{send: func(context.Context, string) error { return boom }}
	if err := p.Publish(context.Background(), TaskEvent{Type: TypeTaskCreated}); !errors.Is(err, boom) {
		t.Fatalf("expected send error, got %v", err)
	}
}
