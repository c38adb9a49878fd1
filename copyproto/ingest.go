package copyproto

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/typecodec"
	"github.com/mevdschee/pgwire-iris/wire"
)

// frameSource adapts the CopyData/CopyDone/CopyFail sub-protocol to an
// io.Reader, so encoding/csv can parse the ingest stream row by row
// without ever buffering the whole payload.
type frameSource struct {
	conn *wire.Conn
	buf  []byte
	done bool
}

func (f *frameSource) Read(p []byte) (int, error) {
	for len(f.buf) == 0 {
		if f.done {
			return 0, io.EOF
		}
		msg, err := f.conn.Receive()
		if err != nil {
			return 0, err
		}
		switch m := msg.(type) {
		case *pgproto3.CopyData:
			f.buf = m.Data
		case *pgproto3.CopyDone:
			f.done = true
			return 0, io.EOF
		case *pgproto3.CopyFail:
			return 0, &copyFailError{message: m.Message}
		default:
			return 0, wire.ErrProtocolViolation
		}
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

// Ingest drives one COPY ... FROM STDIN operation to completion: it sends
// CopyInResponse, streams CSV rows through the Type Codec in text mode,
// batches them, and hands each batch to be.ExecuteMany, per spec.md §4.6.
//
// When the connection is idle on entry, Ingest opens an implicit
// transaction around the whole COPY and commits it on success or rolls it
// back on any failure (including a client CopyFail), so a malformed row
// anywhere in the stream leaves zero new rows, per the scenario in
// spec.md §9. When the connection is already inside an explicit
// transaction, Ingest neither begins nor ends one: the client owns that
// boundary and sees the backend's own failed-transaction state reflected
// in the next ReadyForQuery.
func Ingest(ctx context.Context, conn *wire.Conn, be backend.Conn, insertSQL string, columns []backend.ColumnMeta, types *typecodec.Registry, opts Options) (int64, error) {
	formats := make([]int16, len(columns))
	conn.Send(&pgproto3.CopyInResponse{OverallFormat: 0, ColumnFormats: formats})
	if err := conn.Flush(); err != nil {
		return 0, err
	}

	ownTx := be.TxStatus() == backend.TxIdle
	if ownTx {
		if err := be.Begin(ctx); err != nil {
			return 0, err
		}
	}

	total, err := ingestRows(ctx, conn, be, insertSQL, columns, types, opts)
	if err != nil {
		if ownTx {
			_ = be.Rollback(ctx)
		}
		return 0, err
	}
	if ownTx {
		if cerr := be.Commit(ctx); cerr != nil {
			return 0, cerr
		}
	}
	return total, nil
}

func ingestRows(ctx context.Context, conn *wire.Conn, be backend.Conn, insertSQL string, columns []backend.ColumnMeta, types *typecodec.Registry, opts Options) (int64, error) {
	r := csv.NewReader(&frameSource{conn: conn})
	r.Comma = opts.Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = false

	var total int64
	var batch [][]any
	var batchLines []int
	first := true

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := be.ExecuteMany(ctx, insertSQL, batch); err != nil {
			return findFailingRow(ctx, be, insertSQL, batch, batchLines, err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		batchLines = batchLines[:0]
		return nil
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if cf, ok := err.(*copyFailError); ok {
				return total, cf.asBackendError()
			}
			return total, err
		}
		line, _ := r.FieldPos(0)

		if first && opts.HasHeader {
			first = false
			continue
		}
		first = false

		if len(record) != len(columns) {
			return total, malformedRowError(line, fmt.Errorf("expected %d columns, got %d", len(columns), len(record)))
		}

		params := make([]any, len(columns))
		for i, field := range record {
			if field == opts.NullString {
				params[i] = nil
				continue
			}
			v, derr := types.Decode(columns[i].OID, typecodec.FormatText, []byte(field))
			if derr != nil {
				return total, decodeError(line, derr)
			}
			params[i] = v
		}
		batch = append(batch, params)
		batchLines = append(batchLines, line)

		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// findFailingRow re-executes a failed batch one row at a time to recover
// the row that actually caused batchErr, since ExecuteMany only reports a
// batch-wide failure. The whole implicit transaction is rolled back by
// the caller regardless of what this leaves committed, so re-running
// earlier rows here has no visible effect.
func findFailingRow(ctx context.Context, be backend.Conn, insertSQL string, batch [][]any, lines []int, batchErr error) error {
	for i, params := range batch {
		if _, err := be.Execute(ctx, insertSQL, params, nil); err != nil {
			return rowError(lines[i], errSQLState(err), err.Error())
		}
	}
	return batchErr
}

func errSQLState(err error) string {
	if be, ok := backend.AsBackendError(err); ok {
		return be.SQLState
	}
	return "XX000"
}
