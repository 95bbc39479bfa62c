package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"bluegreen-api/domain"
)

// Option customizes the registered routes.
type Option func(*routeOptions)

type routeOptions struct {
	deduper Deduper
}

// WithDeduper makes POST /tasks honor the Idempotency-Key header.
func WithDeduper(d Deduper) Option {
	return func(o *routeOptions) { o.deduper = d }
}

// Register wires up all routes on the provided Echo instance. source is the
// name of the tasks file reported back to clients.
func Register(e *echo.Echo, svc TaskService, source string, logger *log.Logger, opts ...Option) {
	var ro routeOptions
	for _, opt := range opts {
		opt(&ro)
	}
	Configure(e)
	e.Use(VersionHeaderMiddleware(svc.Mode()))
	e.GET("/", index(svc))
	e.POST(routeTasks, createTask(svc, ro.deduper, source, logger), GzipRequestMiddleware())
	e.GET(routeTasks, listTasks(svc, source, logger))
	e.GET("/healthz", healthz(svc))
}

// Configure installs the JSON serializer and page renderer.
func Configure(e *echo.Echo) {
	e.JSONSerializer = SonicSerializer{}
	e.Renderer = newPageRenderer()
}

func healthz(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		mode := svc.Mode()
		return c.JSON(http.StatusOK, healthResponse{
			Status:    "ok",
			Version:   mode.String(),
			CanCreate: mode.CanCreate(),
			CanList:   mode.CanList(),
		})
	}
}

func createTask(svc TaskService, dedupe Deduper, source string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newTaskRequestMetrics(c.Request().Context(), logger, routeTasks, domain.OpCreate, svc.Mode())
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		// Refuse before reading the body so Green always answers 403.
		if mode := svc.Mode(); !mode.CanCreate() {
			return writeError(c, metrics, &domain.PermissionError{Op: domain.OpCreate, Mode: mode})
		}

		decodeStart := time.Now()
		req, decodeErr := decodeCreateTask(c.Request().Body)
		metrics.ObserveDecode(time.Since(decodeStart))
		if decodeErr != nil {
			if errors.Is(decodeErr, errBodyTooLarge) {
				metrics.SetErrorStage("body_too_large")
				return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: errInvalidBody, Message: decodeErr.Error()})
			}
			metrics.SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: errInvalidBody})
		}

		var idemKey string
		if dedupe != nil {
			idemKey = c.Request().Header.Get(headerIdempotencyKey)
		}
		if idemKey != "" {
			fresh, claimErr := dedupe.Claim(ctx, idemKey)
			switch {
			case claimErr != nil:
				logger.WithError(claimErr).Warn("idempotency check unavailable")
				idemKey = ""
			case !fresh:
				metrics.SetErrorStage("duplicate")
				return c.JSON(http.StatusConflict, errorResponse{Error: errDuplicateRequest, Message: "A request with this Idempotency-Key was already processed."})
			}
		}

		storeStart := time.Now()
		task, createErr := svc.Create(ctx, req.Title, req.Description)
		metrics.ObserveStore(time.Since(storeStart))
		if createErr != nil {
			if idemKey != "" {
				if relErr := dedupe.Release(ctx, idemKey); relErr != nil {
					logger.WithError(relErr).Warn("release idempotency key")
				}
			}
			return writeError(c, metrics, createErr)
		}

		metrics.SetTasksReturned(1)
		encodeStart := time.Now()
		err = c.JSON(http.StatusCreated, createTaskResponse{
			Message: fmt.Sprintf("Task registered in %s", source),
			Task:    task,
		})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func listTasks(svc TaskService, source string, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newTaskRequestMetrics(c.Request().Context(), logger, routeTasks, domain.OpList, svc.Mode())
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		storeStart := time.Now()
		list, listErr := svc.List(ctx)
		metrics.ObserveStore(time.Since(storeStart))
		if listErr != nil {
			return writeError(c, metrics, listErr)
		}

		metrics.SetTasksReturned(list.Total)
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, listTasksResponse{
			Source: fmt.Sprintf("Data from %s (shared volume)", source),
			Total:  list.Total,
			Tasks:  list.Tasks,
		})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

// writeError maps service errors onto HTTP responses.
func writeError(c echo.Context, metrics *taskRequestMetrics, err error) error {
	var (
		permErr *domain.PermissionError
		valErr  *domain.ValidationError
		stErr   *domain.StorageError
	)
	switch {
	case errors.As(err, &permErr):
		metrics.SetErrorStage("permission")
		return c.JSON(http.StatusForbidden, errorResponse{Error: errActionNotPermitted, Message: permErr.Error()})
	case errors.As(err, &valErr):
		metrics.SetErrorStage("validation")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: valErr.Message})
	case errors.As(err, &stErr):
		metrics.SetErrorStage("storage")
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: errStorageFailure, Message: "The task could not be saved."})
	default:
		metrics.SetErrorStage("internal")
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: errInternal, Message: err.Error()})
	}
}

var errBodyTooLarge = fmt.Errorf("request body exceeds %d bytes", postTaskMaxSize)

// decodeCreateTask reads a create request. An empty body decodes to an empty
// request so that the title check reports it.
func decodeCreateTask(body io.Reader) (createTaskRequest, error) {
	var req createTaskRequest
	if body == nil {
		return req, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, postTaskMaxSize+1))
	if err != nil {
		return req, err
	}
	if len(data) > postTaskMaxSize {
		return req, errBodyTooLarge
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return req, nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, &req); err != nil {
		return createTaskRequest{}, err
	}
	return req, nil
}
