package api

import (
	"context"

	"bluegreen-api/domain"
)

// TaskService is the mode-gated task API the handlers call into.
type TaskService interface {
	Mode() domain.Mode
	Create(ctx context.Context, title, description string) (domain.Task, error)
	List(ctx context.Context) (domain.TaskList, error)
}
