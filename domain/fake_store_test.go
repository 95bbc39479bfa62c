package domain

import (
	"context"
	"sync"
)

type fakeStore struct {
	mu        sync.Mutex
	tasks     []Task
	readErr   error
	appendErr error
	reads     int
	appends   int
}

func (f *fakeStore) ReadAll(ctx context.Context) ([]Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return []Task{}, f.readErr
	}
	out := make([]Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

func (f *fakeStore) Append(ctx context.Context, task Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.appendErr != nil {
		return f.appendErr
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeStore) calls() (reads, appends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.appends
}

type recordedEvent struct {
	mode Mode
	task Task
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) TaskCreated(ctx context.Context, mode Mode, task Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{mode: mode, task: task})
}
