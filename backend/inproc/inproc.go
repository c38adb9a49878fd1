package inproc

import (
	"context"
	"log"
	"sync"

	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/typecodec"
)

// irisTypeOID maps the handful of IRIS type names this gateway advertises
// back to their PostgreSQL OID, used when the embedded API doesn't already
// hand back a CAST-derived OID from the translator's parameter table.
var irisTypeOID = map[string]uint32{
	"BIT":         typecodec.OIDBool,
	"SMALLINT":    typecodec.OIDInt2,
	"INTEGER":     typecodec.OIDInt4,
	"BIGINT":      typecodec.OIDInt8,
	"VARCHAR":     typecodec.OIDVarchar,
	"CHAR":        typecodec.OIDText,
	"LONGVARCHAR": typecodec.OIDText,
	"DOUBLE":      typecodec.OIDFloat8,
	"REAL":        typecodec.OIDFloat4,
	"NUMERIC":     typecodec.OIDNumeric,
	"DATE":        typecodec.OIDDate,
	"TIMESTAMP":   typecodec.OIDTimestamp,
	"VECTOR":      typecodec.OIDVector,
}

// sharedLock serializes every embedded-API call across every session in
// this process, since the embedded API is not reentrant, per spec.md §4.3
// and §5 ("single mutex serializing the in-process/embedded IRIS
// variant").
var sharedLock sync.Mutex

// Dialer hands out InprocConn values, all sharing one Embedded handle and
// its mutex.
type Dialer struct {
	Engine  Embedded
	Metrics backend.MetricsSink
}

func (d *Dialer) Dial(ctx context.Context) (backend.Conn, error) {
	return &InprocConn{engine: d.Engine, metrics: d.Metrics}, nil
}

// InprocConn is the in-process backend.Conn variant.
type InprocConn struct {
	engine  Embedded
	metrics backend.MetricsSink
}

func (c *InprocConn) Execute(ctx context.Context, sql string, params []any, resultFormats []int16) (*backend.Result, error) {
	sharedLock.Lock()
	defer sharedLock.Unlock()

	res, err := c.engine.Execute(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	return toBackendResult(res), nil
}

func (c *InprocConn) ExecuteMany(ctx context.Context, sql string, paramSets [][]any) (int64, error) {
	return backend.RunExecuteMany(ctx, (*execManyAdapter)(c), c.metrics, sql, paramSets)
}

func (c *InprocConn) Begin(ctx context.Context) error {
	sharedLock.Lock()
	defer sharedLock.Unlock()
	return c.engine.Begin(ctx)
}

func (c *InprocConn) Commit(ctx context.Context) error {
	sharedLock.Lock()
	defer sharedLock.Unlock()
	return c.engine.Commit(ctx)
}

func (c *InprocConn) Rollback(ctx context.Context) error {
	sharedLock.Lock()
	defer sharedLock.Unlock()
	return c.engine.Rollback(ctx)
}

func (c *InprocConn) Savepoint(ctx context.Context, name string) error {
	sharedLock.Lock()
	defer sharedLock.Unlock()
	return c.engine.Savepoint(ctx, name)
}

func (c *InprocConn) RollbackTo(ctx context.Context, name string) error {
	sharedLock.Lock()
	defer sharedLock.Unlock()
	return c.engine.RollbackTo(ctx, name)
}

// Cancel is a no-op for the in-process variant: there is no separate
// network round trip to interrupt, and the embedded API offers no
// cross-goroutine cancellation hook. The caller's context deadline is the
// only cancellation mechanism available here.
func (c *InprocConn) Cancel() {
	log.Printf("[inproc] cancel requested but embedded API has no interrupt hook")
}

func (c *InprocConn) TxStatus() backend.TxStatus {
	sharedLock.Lock()
	defer sharedLock.Unlock()
	if c.engine.InFailedTransaction() {
		return backend.TxFailed
	}
	if c.engine.InTransaction() {
		return backend.TxInTx
	}
	return backend.TxIdle
}

func (c *InprocConn) Release() {}

func toBackendResult(r *EmbeddedResult) *backend.Result {
	cols := make([]backend.ColumnMeta, len(r.ColumnNames))
	for i, name := range r.ColumnNames {
		oid := typecodec.OIDText
		if i < len(r.IRISTypes) {
			if o, ok := irisTypeOID[r.IRISTypes[i]]; ok {
				oid = o
			}
		}
		cols[i] = backend.ColumnMeta{Name: name, OID: oid}
	}
	return &backend.Result{
		Columns:      cols,
		Rows:         r.Rows,
		RowsAffected: r.RowsAffected,
		Tag:          r.Tag,
		LastInsertID: r.LastInsertID,
		HasInsertID:  r.HasInsertID,
	}
}

// execManyAdapter satisfies backend.manyExecutor against InprocConn's
// embedded engine.
type execManyAdapter InprocConn

func (a *execManyAdapter) tryBatch(ctx context.Context, sql string, paramSets [][]any) (int64, error, bool) {
	sharedLock.Lock()
	defer sharedLock.Unlock()
	n, err := a.engine.ExecuteMany(ctx, sql, paramSets)
	if err == ErrUnsupportedBatch {
		return 0, err, true
	}
	return n, err, false
}

func (a *execManyAdapter) execOne(ctx context.Context, sql string) (int64, error) {
	sharedLock.Lock()
	defer sharedLock.Unlock()
	res, err := a.engine.Execute(ctx, sql, nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}
