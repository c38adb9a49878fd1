package backend

import "context"

// manyExecutor is implemented by a Conn variant that can attempt a true
// protocol-level batch (execute_many on the embedded API, or a single
// prepared-statement exec loop on the pooled database/sql path) before
// falling back to literal substitution. Both backend/inproc and
// backend/pooled implement it and feed it to RunExecuteMany.
type manyExecutor interface {
	tryBatch(ctx context.Context, sql string, paramSets [][]any) (rowsAffected int64, err error, retryable bool)
	execOne(ctx context.Context, sql string) (rowsAffected int64, err error)
}

// RunExecuteMany implements the degradation cascade from spec.md §4.3:
// first attempt a true batch; if the backend reports the batch itself is
// unsupported for this statement shape (retryable == true), fall back to
// one literal-substituted statement per row, executed in the connection's
// current transaction so a mid-batch failure can still be rolled back by
// the caller. This mirrors the teacher's writebatch executor's
// all-same-query-vs-mixed-query split, adapted from batching concurrent
// clients' writes to batching one client's multi-row Bind.
func RunExecuteMany(ctx context.Context, m manyExecutor, degradations MetricsSink, sql string, paramSets [][]any) (int64, error) {
	rows, err, retryable := m.tryBatch(ctx, sql, paramSets)
	if err == nil {
		return rows, nil
	}
	if !retryable {
		return 0, err
	}
	if degradations != nil {
		degradations.IncBatchDegradation()
	}
	var total int64
	for _, params := range paramSets {
		stmt, serr := substituteParams(sql, params)
		if serr != nil {
			return total, serr
		}
		n, eerr := m.execOne(ctx, stmt)
		if eerr != nil {
			return total, eerr
		}
		total += n
	}
	return total, nil
}

// MetricsSink is the narrow metrics surface the backend package needs,
// kept separate from the metrics package itself to avoid backend
// importing metrics' Prometheus registration machinery.
type MetricsSink interface {
	IncBatchDegradation()
}
