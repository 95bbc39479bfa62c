package domain

import "fmt"

// PermissionError is returned when the deployment mode does not allow the
// requested operation.
type PermissionError struct {
	Op   Operation
	Mode Mode
}

func (e *PermissionError) Error() string {
	switch e.Op {
	case OpCreate:
		return "Only the BLUE environment can register tasks."
	case OpList:
		return "Only the GREEN environment can list tasks."
	}
	return fmt.Sprintf("operation %q not permitted in %q", e.Op, e.Mode)
}

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StorageError wraps any failure reading or writing the tasks file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
