package domain

import (
	"strings"
	"sync/atomic"
	"time"
)

// Task represents a single registered task in the shared tasks file.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TaskList is the result of listing the collection.
type TaskList struct {
	Tasks []Task
	Total int
}

// idClock hands out millisecond timestamps that never repeat within the process.
type idClock struct {
	last int64
}

func (c *idClock) next(now time.Time) int64 {
	for {
		ms := now.UnixMilli()
		last := atomic.LoadInt64(&c.last)
		if ms <= last {
			ms = last + 1
		}
		if atomic.CompareAndSwapInt64(&c.last, last, ms) {
			return ms
		}
	}
}

// newTask builds a task stamped at now. The id and createdAt share the same
// millisecond unless the clock had to move forward to keep ids unique.
func (c *idClock) newTask(now time.Time, title, description string) Task {
	id := c.next(now)
	return Task{
		ID:          id,
		Title:       title,
		Description: description,
		CreatedAt:   time.UnixMilli(id).UTC(),
	}
}

func validTitle(title string) bool {
	return strings.TrimSpace(title) != ""
}
