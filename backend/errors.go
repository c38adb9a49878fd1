package backend

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
)

// Error is a backend-originated failure carrying enough detail to answer
// an ErrorResponse, per spec.md §7: SQLSTATE, message, and optionally
// detail/hint/position for syntax errors.
type Error struct {
	SQLState string
	Message  string
	Detail   string
	Hint     string
	Position int32
	Line     int32
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.SQLState, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.SQLState, e.Message)
}

// NewError builds an Error with pgerrcode.X classification.
func NewError(sqlState, message string) *Error {
	return &Error{SQLState: sqlState, Message: message}
}

// ErrConnectionLost marks a backend.Conn that has died and must be
// discarded rather than reused or rolled back, per spec.md §4.3's pooled
// variant reconnect logic.
var ErrConnectionLost = errors.New("backend: connection lost")

// ErrStatementTimeout marks an Execute/ExecuteMany cancelled by the
// configured per-statement timeout.
var ErrStatementTimeout = &Error{
	SQLState: pgerrcode.QueryCanceled,
	Message:  "canceling statement due to statement timeout",
}

// ErrQueryCanceled marks an Execute/ExecuteMany interrupted by Cancel().
var ErrQueryCanceled = &Error{
	SQLState: pgerrcode.QueryCanceled,
	Message:  "canceling statement due to user request",
}

// AsBackendError unwraps err to a *Error if one is anywhere in its chain.
func AsBackendError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
