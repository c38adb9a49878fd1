// Package backend defines the executor interface that a session drives
// queries through, and the two concrete variants described in spec.md
// §4.3: an in-process embedded-IRIS executor and a pooled out-of-process
// executor reached over database/sql.
package backend

import (
	"context"
)

// ColumnMeta describes one result column, independent of wire format.
type ColumnMeta struct {
	Name   string
	OID    uint32
	Width  int16
	Mod    int32
	Source string // originating table/view, when known; empty otherwise
}

// Result is the outcome of a single Execute call: either a row-returning
// result (Columns non-nil) or a command tag (Tag set, e.g. "INSERT 0 1").
type Result struct {
	Columns      []ColumnMeta
	Rows         [][]any
	RowsAffected int64
	Tag          string
	LastInsertID int64
	HasInsertID  bool
}

// Conn is one backend connection, bound to exactly one client session at a
// time. Every method that can block on network or database I/O accepts a
// context so the session can enforce the statement timeout from spec.md §6.
type Conn interface {
	// Execute runs sql with the given already-decoded parameters and
	// returns either row data or a command tag. resultFormats carries the
	// client's requested format code per result column (text or binary),
	// needed up front because some paths (e.g. the embedded API) must know
	// the target representation before materializing rows.
	Execute(ctx context.Context, sql string, params []any, resultFormats []int16) (*Result, error)

	// ExecuteMany runs sql once per entry in paramSets, as a single
	// protocol-level operation when the backend supports it and via the
	// degradation cascade documented in backend/execmany.go otherwise.
	ExecuteMany(ctx context.Context, sql string, paramSets [][]any) (rowsAffected int64, err error)

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error

	// Cancel interrupts any Execute/ExecuteMany currently running on this
	// connection from another goroutine, per spec.md §4.9.
	Cancel()

	// TxStatus reports the connection's current transaction state for
	// ReadyForQuery; it is always read from the connection's own
	// bookkeeping, never inferred from SQL text.
	TxStatus() TxStatus

	// Release returns the connection to its pool (pooled variant). The
	// in-process variant's Release does nothing, since that variant takes
	// and drops its shared embedded-API lock inside each call.
	Release()
}

// Dialer produces a new backend.Conn bound to one session. Both the
// in-process and pooled packages provide one.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
