package pooled

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/typecodec"
)

// looksLikeQuery is a conservative check for whether sql text returns rows
// versus a command tag; it only needs to be right for IRIS SQL's own
// keyword set, since it runs on text that has already passed through the
// translation pipeline.
func looksLikeQuery(sqlText string) bool {
	trimmed := strings.TrimSpace(sqlText)
	for _, kw := range []string{"SELECT", "WITH", "SHOW", "CALL"} {
		if len(trimmed) >= len(kw) && strings.EqualFold(trimmed[:len(kw)], kw) {
			return true
		}
	}
	return false
}

func commandTag(sqlText string, affected int64) string {
	trimmed := strings.TrimSpace(sqlText)
	var verb string
	if sp := strings.IndexAny(trimmed, " \t\n"); sp > 0 {
		verb = strings.ToUpper(trimmed[:sp])
	} else {
		verb = strings.ToUpper(trimmed)
	}
	switch verb {
	case "INSERT":
		return "INSERT 0 " + strconv.FormatInt(affected, 10)
	case "UPDATE", "DELETE":
		return verb + " " + strconv.FormatInt(affected, 10)
	default:
		return verb
	}
}

func scanRows(rows *sql.Rows) (*backend.Result, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]backend.ColumnMeta, len(colTypes))
	for i, ct := range colTypes {
		cols[i] = backend.ColumnMeta{Name: ct.Name(), OID: oidForDatabaseType(ct.DatabaseTypeName())}
	}

	var out [][]any
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &backend.Result{Columns: cols, Rows: out, Tag: "SELECT"}, nil
}

func oidForDatabaseType(name string) uint32 {
	switch strings.ToUpper(name) {
	case "BIT", "BOOLEAN":
		return typecodec.OIDBool
	case "SMALLINT":
		return typecodec.OIDInt2
	case "INTEGER", "INT":
		return typecodec.OIDInt4
	case "BIGINT":
		return typecodec.OIDInt8
	case "DOUBLE", "FLOAT":
		return typecodec.OIDFloat8
	case "REAL":
		return typecodec.OIDFloat4
	case "NUMERIC", "DECIMAL":
		return typecodec.OIDNumeric
	case "DATE":
		return typecodec.OIDDate
	case "TIMESTAMP":
		return typecodec.OIDTimestamp
	case "VECTOR":
		return typecodec.OIDVector
	default:
		return typecodec.OIDText
	}
}

// pooledManyAdapter satisfies backend.manyExecutor for the pooled variant:
// its "true batch" attempt is one prepared statement executed once per
// row, which database/sql itself caches and re-plans on the server side,
// corresponding to the teacher's executePreparedBatch fast path.
type pooledManyAdapter struct{ c *PooledConn }

func (a *pooledManyAdapter) tryBatch(ctx context.Context, sqlText string, paramSets [][]any) (int64, error, bool) {
	stmt, err := a.prepare(ctx, sqlText)
	if err != nil {
		return 0, err, false
	}
	defer stmt.Close()

	var total int64
	for _, params := range paramSets {
		res, err := stmt.ExecContext(ctx, params...)
		if err != nil {
			// A bind failure partway through a batch isn't retryable at
			// the row level; surface it to the literal-substitution path
			// which restarts cleanly from row zero.
			return 0, err, true
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil, false
}

func (a *pooledManyAdapter) prepare(ctx context.Context, sqlText string) (*sql.Stmt, error) {
	if a.c.tx != nil {
		return a.c.tx.PrepareContext(ctx, sqlText)
	}
	return a.c.sqlConn().PrepareContext(ctx, sqlText)
}

func (a *pooledManyAdapter) execOne(ctx context.Context, sqlText string) (int64, error) {
	res, err := a.c.execer().ExecContext(ctx, sqlText)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
