package main

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"bluegreen-api/api"
	"bluegreen-api/client"
	"bluegreen-api/domain"
	"bluegreen-api/storage"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func newStore(t *testing.T) *storage.FileStore {
	t.Helper()
	st := storage.NewFileStore(filepath.Join(t.TempDir(), "tasks.json"), quietLogger())
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return st
}

func startDeployment(t *testing.T, mode domain.Mode, st domain.TaskStorage) *client.Client {
	t.Helper()
	e := echo.New()
	e.Logger.SetOutput(io.Discard)
	api.Register(e, domain.NewTaskService(mode, st, quietLogger()), "tasks.json", quietLogger())
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return client.New(srv.URL)
}

func TestRunPassesWhenGreenSeesBlueTask(t *testing.T) {
	st := newStore(t)
	blue := startDeployment(t, "Blue v1", st)
	green := startDeployment(t, "Green v2", st)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, blue, green, 10*time.Millisecond); err != nil {
		t.Fatalf("run: %v", err)
	}
	tasks, err := st.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(tasks) != 1 || !strings.HasPrefix(tasks[0].Title, "smoke check ") {
		t.Fatalf("unexpected stored tasks: %#v", tasks)
	}
}

func TestRunFailsWhenBlueCannotCreate(t *testing.T) {
	st := newStore(t)
	notBlue := startDeployment(t, "Green v1", st)
	green := startDeployment(t, "Green v2", st)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, notBlue, green, 10*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "cannot register tasks") {
		t.Fatalf("expected create permission error, got %v", err)
	}
	tasks, _ := st.ReadAll(ctx)
	if len(tasks) != 0 {
		t.Fatalf("expected no task written, got %#v", tasks)
	}
}

func TestRunFailsWhenGreenCannotList(t *testing.T) {
	st := newStore(t)
	blue := startDeployment(t, "Blue v1", st)
	notGreen := startDeployment(t, "Blue v2", st)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, blue, notGreen, 10*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "cannot list tasks") {
		t.Fatalf("expected list permission error, got %v", err)
	}
}

func TestRunTimesOutWhenGreenNeverListsTask(t *testing.T) {
	blue := startDeployment(t, "Blue v1", newStore(t))
	green := startDeployment(t, "Green v2", newStore(t))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := run(ctx, blue, green, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
