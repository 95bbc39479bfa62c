package domain

import "strings"

// UnknownMode is used when no deployment version is configured. It permits
// neither operation.
const UnknownMode Mode = "Unknown"

// Mode is the deployment version string the process was started with, for
// example "Blue v1" or "Green v2". It is fixed for the lifetime of the process.
type Mode string

// ParseMode normalizes the configured version, falling back to UnknownMode.
func ParseMode(v string) Mode {
	v = strings.TrimSpace(v)
	if v == "" {
		return UnknownMode
	}
	return Mode(v)
}

// CanCreate reports whether this deployment may register tasks.
func (m Mode) CanCreate() bool { return strings.Contains(string(m), "Blue") }

// CanList reports whether this deployment may list tasks.
func (m Mode) CanList() bool { return strings.Contains(string(m), "Green") }

// Allows reports whether op is enabled in this mode.
func (m Mode) Allows(op Operation) bool {
	switch op {
	case OpCreate:
		return m.CanCreate()
	case OpList:
		return m.CanList()
	}
	return false
}

func (m Mode) String() string { return string(m) }

// Operation names a gated task operation.
type Operation string

const (
	OpCreate Operation = "create"
	OpList   Operation = "list"
)
