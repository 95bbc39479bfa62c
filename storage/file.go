package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"bluegreen-api/domain"
)

// FileStore keeps the task collection as a single JSON array on disk. Every
// call re-reads the file; nothing is held in memory between requests.
type FileStore struct {
	path string
	log  *log.Logger

	// serializes read-modify-write cycles within this process
	mu sync.Mutex
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &FileStore{path: path, log: logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Initialize creates the backing file holding an empty collection when it
// does not exist yet. An existing file is left untouched.
func (s *FileStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return &domain.StorageError{Op: "init", Path: s.path, Err: err}
	}
	if err := s.writeLocked([]domain.Task{}); err != nil {
		return err
	}
	s.log.WithField("path", s.path).Info("initialized empty tasks file")
	return nil
}

// ReadAll decodes the whole collection. The returned slice is never nil; on
// failure it is empty and err is a *domain.StorageError.
func (s *FileStore) ReadAll(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.read()
	if err != nil {
		return []domain.Task{}, err
	}
	return tasks, nil
}

// Append adds task at the end of the collection and rewrites the file.
// A missing file counts as an empty collection. A file that does not decode
// is never replaced: Append returns a *domain.StorageError (HTTP 500 on
// create) and the file keeps its content until someone repairs it.
func (s *FileStore) Append(ctx context.Context, task domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.read()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		tasks = []domain.Task{}
	}
	tasks = append(tasks, task)
	return s.writeLocked(tasks)
}

// Write replaces the whole collection.
func (s *FileStore) Write(ctx context.Context, tasks []domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return s.writeLocked(tasks)
}

func (s *FileStore) read() ([]domain.Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &domain.StorageError{Op: "read", Path: s.path, Err: err}
	}
	tasks, err := decodeTasks(data)
	if err != nil {
		return nil, &domain.StorageError{Op: "decode", Path: s.path, Err: err}
	}
	return tasks, nil
}

func (s *FileStore) writeLocked(tasks []domain.Task) error {
	data, err := encodeTasks(tasks)
	if err != nil {
		return &domain.StorageError{Op: "encode", Path: s.path, Err: err}
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		s.log.WithError(err).WithField("path", s.path).Error("write tasks file")
		return &domain.StorageError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func decodeTasks(data []byte) ([]domain.Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty file")
	}
	if trimmed[0] != '[' {
		return nil, errors.New("not a JSON array")
	}
	tasks := []domain.Task{}
	if err := sonic.ConfigStd.Unmarshal(trimmed, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func encodeTasks(tasks []domain.Task) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(tasks, "", "  ")
}

// writeFileAtomic writes data next to path, syncs it and renames it into
// place so concurrent readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("rename: %w", err)
	}
	return syncDir(dir)
}

func syncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}
