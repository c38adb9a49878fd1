package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/copyproto"
)

// handleCopy recognizes a COPY statement within the simple-query
// statement loop and drives it to completion. handled reports whether
// stmt was a COPY statement at all; when it wasn't, the caller falls
// through to the normal translate-and-execute path. ok reports whether
// the statement loop should continue to the next statement (true) or
// stop, mirroring how an ordinary statement error aborts the rest of the
// batch.
func (s *Session) handleCopy(ctx context.Context, stmt string) (handled, ok bool) {
	cp, err := copyproto.Parse(stmt, s.opts.Copy)
	if err != nil {
		if err == copyproto.ErrNotCopy {
			return false, true
		}
		s.sendError(backend.NewError(pgerrcode.SyntaxError, err.Error()))
		return true, false
	}

	if cp.Direction == copyproto.DirectionOut {
		return true, s.runCopyOut(ctx, cp)
	}
	return true, s.runCopyIn(ctx, cp)
}

func (s *Session) runCopyIn(ctx context.Context, cp *copyproto.Statement) bool {
	cols, err := s.copyColumns(ctx, cp.Table, cp.Columns)
	if err != nil {
		s.sendError(errorFromErr(err))
		return false
	}

	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", cp.Table, strings.Join(names, ","), strings.Join(placeholders, ","))

	n, err := copyproto.Ingest(ctx, s.conn, s.be, insertSQL, cols, s.types, cp.Options)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncCopyFailure("in")
		}
		s.sendError(errorFromErr(err))
		return false
	}
	if s.metrics != nil {
		s.metrics.IncCopyRows("in", n)
	}
	s.conn.Send(&pgproto3.CommandComplete{CommandTag: []byte(fmt.Sprintf("COPY %d", n))})
	return true
}

func (s *Session) runCopyOut(ctx context.Context, cp *copyproto.Statement) bool {
	sql := cp.Query
	if sql == "" {
		sql = fmt.Sprintf("SELECT %s FROM %s", columnListOrStar(cp.Columns), cp.Table)
	}
	translated := s.translate(sql, 0)
	execCtx, cancel := s.withStatementTimeout(ctx)
	res, err := s.be.Execute(execCtx, translated.SQL, nil, nil)
	cancel()
	if err != nil {
		s.sendError(errorFromErr(err))
		return false
	}

	n, err := copyproto.Egest(s.conn, res.Columns, res.Rows, s.types, cp.Options)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncCopyFailure("out")
		}
		// the connection itself is broken at this point; nothing further
		// can be sent, so the session loop's next Receive will report it.
		return false
	}
	if s.metrics != nil {
		s.metrics.IncCopyRows("out", n)
	}
	s.conn.Send(&pgproto3.CommandComplete{CommandTag: []byte(fmt.Sprintf("COPY %d", n))})
	return true
}

// copyColumns discovers the target table's column names and OIDs with a
// zero-row dry run, the same convention used for Describe in extended.go.
func (s *Session) copyColumns(ctx context.Context, table string, explicit []string) ([]backend.ColumnMeta, error) {
	discover := fmt.Sprintf("SELECT %s FROM %s WHERE 1=0", columnListOrStar(explicit), table)
	translated := s.translate(discover, 0)
	execCtx, cancel := s.withStatementTimeout(ctx)
	defer cancel()
	res, err := s.be.Execute(execCtx, translated.SQL, nil, nil)
	if err != nil {
		return nil, err
	}
	return res.Columns, nil
}

func columnListOrStar(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	return strings.Join(cols, ",")
}
