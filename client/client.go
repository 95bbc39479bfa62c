// Package client talks to a running task service over HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"bluegreen-api/domain"
)

// Client wraps http.Client with helpers for the task endpoints.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a Client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Code)
}

// Health is the /healthz body.
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	CanCreate bool   `json:"canCreate"`
	CanList   bool   `json:"canList"`
}

// TaskList is the GET /tasks body.
type TaskList struct {
	Source string        `json:"source"`
	Total  int           `json:"total"`
	Tasks  []domain.Task `json:"tasks"`
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type createResponse struct {
	Message string      `json:"message"`
	Task    domain.Task `json:"task"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Health fetches the service's mode and permissions.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &h)
	return h, err
}

// CreateTask registers a task. Only a Blue deployment accepts it.
func (c *Client) CreateTask(ctx context.Context, title, description string) (domain.Task, error) {
	var resp createResponse
	if err := c.do(ctx, http.MethodPost, "/tasks", createRequest{Title: title, Description: description}, &resp); err != nil {
		return domain.Task{}, err
	}
	return resp.Task, nil
}

// ListTasks returns the whole collection. Only a Green deployment serves it.
func (c *Client) ListTasks(ctx context.Context) (TaskList, error) {
	var list TaskList
	err := c.do(ctx, http.MethodGet, "/tasks", nil, &list)
	return list, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		var eb errorBody
		if sonic.ConfigStd.Unmarshal(data, &eb) == nil && eb.Error != "" {
			apiErr.Code = eb.Error
			apiErr.Message = eb.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
