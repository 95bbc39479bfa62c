package domain

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// TaskStorage defines the persistence the service needs.
type TaskStorage interface {
	ReadAll(ctx context.Context) ([]Task, error)
	Append(ctx context.Context, task Task) error
}

// TaskEvents receives a notification after a task has been stored.
type TaskEvents interface {
	TaskCreated(ctx context.Context, mode Mode, task Task)
}

// TaskService gates task operations behind the deployment mode.
type TaskService struct {
	mode   Mode
	st     TaskStorage
	events TaskEvents
	log    *log.Logger
	now    func() time.Time
	ids    *idClock
}

// Option customizes a TaskService.
type Option func(*TaskService)

// WithEvents registers a sink notified after each successful create.
func WithEvents(ev TaskEvents) Option {
	return func(s *TaskService) { s.events = ev }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

func NewTaskService(mode Mode, st TaskStorage, logger *log.Logger, opts ...Option) *TaskService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &TaskService{
		mode: mode,
		st:   st,
		log:  logger,
		now:  time.Now,
		ids:  &idClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the deployment mode the service was built with.
func (s *TaskService) Mode() Mode { return s.mode }

// Create registers a new task. Permission and validation are checked before
// the store is touched.
func (s *TaskService) Create(ctx context.Context, title, description string) (Task, error) {
	if !s.mode.CanCreate() {
		return Task{}, &PermissionError{Op: OpCreate, Mode: s.mode}
	}
	if !validTitle(title) {
		return Task{}, &ValidationError{Field: "title", Message: "Title is required."}
	}

	task := s.ids.newTask(s.now(), title, description)
	if err := s.st.Append(ctx, task); err != nil {
		s.log.WithError(err).WithField("task", task.ID).Error("append task")
		return Task{}, err
	}
	s.log.WithFields(log.Fields{"task": task.ID, "mode": s.mode}).Debug("task registered")

	if s.events != nil {
		s.events.TaskCreated(ctx, s.mode, task)
	}
	return task, nil
}

// List returns the full collection. Read failures are logged and reported as
// an empty collection.
func (s *TaskService) List(ctx context.Context) (TaskList, error) {
	if !s.mode.CanList() {
		return TaskList{}, &PermissionError{Op: OpList, Mode: s.mode}
	}
	tasks, err := s.st.ReadAll(ctx)
	if err != nil {
		s.log.WithError(err).Warn("read tasks failed; serving empty collection")
		tasks = []Task{}
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return TaskList{Tasks: tasks, Total: len(tasks)}, nil
}
