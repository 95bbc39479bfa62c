package api

import "bluegreen-api/domain"

const postTaskMaxSize = 64 * 1024 // 64 KiB

const (
	routeTasks = "/tasks"

	errActionNotPermitted = "Action not permitted."
	errInvalidBody        = "Invalid request body."
	errStorageFailure     = "Storage failure."
	errInternal           = "Internal error."
	errDuplicateRequest   = "Duplicate request."
)

// POST /tasks request body
type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// POST /tasks 201 response body
type createTaskResponse struct {
	Message string      `json:"message"`
	Task    domain.Task `json:"task"`
}

// GET /tasks 200 response body
type listTasksResponse struct {
	Source string        `json:"source"`
	Total  int           `json:"total"`
	Tasks  []domain.Task `json:"tasks"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	CanCreate bool   `json:"canCreate"`
	CanList   bool   `json:"canList"`
}
