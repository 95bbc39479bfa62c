// Package events publishes notifications about registered tasks so that other
// deployments (or anything else listening on the queue) can react to them.
package events

import (
	"context"
	"time"

	"bluegreen-api/domain"
)

const TypeTaskCreated = "task-created"

// TaskEvent is the message body published for each registered task.
type TaskEvent struct {
	Type string      `json:"type"`
	Mode string      `json:"mode"`
	Task domain.Task `json:"task"`
	Time int64       `json:"time"`
}

// Publisher delivers a single event.
type Publisher interface {
	Publish(ctx context.Context, ev TaskEvent) error
}

func newTaskCreated(mode domain.Mode, task domain.Task, now time.Time) TaskEvent {
	return TaskEvent{
		Type: TypeTaskCreated,
		Mode: mode.String(),
		Task: task,
		Time: now.UnixMilli(),
	}
}
