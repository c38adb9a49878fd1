// Package inproc implements the in-process backend.Conn variant: a single
// embedded IRIS engine shared by every session in this process, serialized
// behind one mutex because the embedded API is not safe for concurrent use
// from multiple goroutines, per spec.md §4.3.
package inproc

import "context"

// Embedded is the subset of InterSystems IRIS's embedded Go API this
// gateway depends on. The concrete implementation is provided by the IRIS
// installation this process is embedded in (outside this module's scope,
// per spec.md §1); this interface exists so backend/inproc can be built
// and tested without it.
type Embedded interface {
	// Execute runs sql with positional parameters already substituted
	// using "?" placeholders, and returns column names, OIDs as IRIS
	// understands them, and row data as native Go values.
	Execute(ctx context.Context, sql string, params []any) (*EmbeddedResult, error)

	// ExecuteMany is the embedded API's native batch form, valid only
	// when every parameter across every row is a scalar the embedded
	// bind layer accepts (no DATE/TIMESTAMP/vector columns); the caller
	// is responsible for falling back when this returns ErrUnsupportedBatch.
	ExecuteMany(ctx context.Context, sql string, paramSets [][]any) (rowsAffected int64, err error)

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	InTransaction() bool
	InFailedTransaction() bool
}

// EmbeddedResult is the raw shape Embedded.Execute returns, before
// translation into backend.Result's OID-tagged columns.
type EmbeddedResult struct {
	ColumnNames  []string
	IRISTypes    []string // e.g. "VARCHAR", "INTEGER", "DATE", "VECTOR"
	Rows         [][]any
	RowsAffected int64
	Tag          string
	LastInsertID int64
	HasInsertID  bool
}

// ErrUnsupportedBatch is returned by Embedded.ExecuteMany when a parameter
// set contains a type the embedded bind layer cannot batch (DATE,
// TIMESTAMP, or VECTOR columns), signaling the literal-substitution
// fallback in backend.RunExecuteMany.
var ErrUnsupportedBatch = unsupportedBatchError{}

type unsupportedBatchError struct{}

func (unsupportedBatchError) Error() string {
	return "inproc: embedded API cannot bind this parameter set as a batch"
}
