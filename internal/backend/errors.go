package backend

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a select by id matches no row.
var ErrNotFound = errors.New("backend: not found")

// Error describes a failed backend call. Op names the capability
// ("create_booking", "list_services"), StatusCode is the HTTP status when
// one was received, zero for transport failures.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("backend %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}
