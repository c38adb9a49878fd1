package copyproto

import (
	"github.com/jackc/pgerrcode"
	"github.com/mevdschee/pgwire-iris/backend"
)

// rowError builds a backend.Error carrying the 1-based source line of the
// offending CSV row, per spec.md §4.6.
func rowError(line int, sqlState, message string) *backend.Error {
	return &backend.Error{SQLState: sqlState, Message: message, Line: int32(line)}
}

func malformedRowError(line int, err error) *backend.Error {
	return rowError(line, pgerrcode.BadCopyFileFormat, err.Error())
}

func decodeError(line int, err error) *backend.Error {
	return rowError(line, pgerrcode.InvalidTextRepresentation, err.Error())
}

// copyFailError wraps the message a client sends in CopyFail, aborting an
// in-progress COPY FROM STDIN at the client's own request.
type copyFailError struct {
	message string
}

func (e *copyFailError) Error() string { return "copy failed: " + e.message }

func (e *copyFailError) asBackendError() *backend.Error {
	return &backend.Error{SQLState: pgerrcode.BadCopyFileFormat, Message: e.Error()}
}
