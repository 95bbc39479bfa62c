package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"bluegreen-api/domain"
)

// ReadSeedFile loads a collection in the tasks file format and checks every
// entry has an id and a title. Ids must be unique.
func ReadSeedFile(path string) ([]domain.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	tasks, err := decodeTasks(data)
	if err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	seen := make(map[int64]struct{}, len(tasks))
	for i, t := range tasks {
		if t.ID == 0 {
			return nil, fmt.Errorf("seed task %d: missing id", i)
		}
		if strings.TrimSpace(t.Title) == "" {
			return nil, fmt.Errorf("seed task %d: missing title", i)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("seed task %d: duplicate id %d", i, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return tasks, nil
}

// Seed writes tasks when the stored collection is missing or empty. It
// reports whether anything was written; existing data is never replaced, and
// a file that does not decode is reported instead of being overwritten.
func (s *FileStore) Seed(ctx context.Context, tasks []domain.Task) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(tasks) == 0 {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if len(current) > 0 {
		return false, nil
	}
	if err := s.writeLocked(tasks); err != nil {
		return false, err
	}
	s.log.WithField("path", s.path).WithField("tasks", len(tasks)).Info("seeded tasks file")
	return true, nil
}
