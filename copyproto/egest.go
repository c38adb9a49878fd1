package copyproto

import (
	"bytes"
	"encoding/csv"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/typecodec"
	"github.com/mevdschee/pgwire-iris/wire"
)

// Egest drives one COPY ... TO STDOUT operation: it sends CopyOutResponse,
// then one CopyData frame per row, awaiting each Flush before marshaling
// the next row so a slow client's TCP send buffer naturally paces
// production, per spec.md §4.6's backpressure rule.
func Egest(conn *wire.Conn, columns []backend.ColumnMeta, rows [][]any, types *typecodec.Registry, opts Options) (int64, error) {
	colFormats := make([]int16, len(columns))
	conn.Send(&pgproto3.CopyOutResponse{OverallFormat: 0, ColumnFormats: colFormats})
	if err := conn.Flush(); err != nil {
		return 0, err
	}

	var n int64
	for _, row := range rows {
		line, err := formatCSVRow(types, columns, row, opts)
		if err != nil {
			return n, err
		}
		conn.Send(&pgproto3.CopyData{Data: line})
		if err := conn.Flush(); err != nil {
			return n, err
		}
		n++
	}
	conn.Send(&pgproto3.CopyDone{})
	if err := conn.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

func formatCSVRow(types *typecodec.Registry, columns []backend.ColumnMeta, row []any, opts Options) ([]byte, error) {
	fields := make([]string, len(columns))
	for i, col := range columns {
		v := row[i]
		if v == nil {
			fields[i] = opts.NullString
			continue
		}
		b, err := types.Encode(col.OID, typecodec.FormatText, v)
		if err != nil {
			return nil, err
		}
		fields[i] = string(b)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = opts.Delimiter
	if err := w.Write(fields); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
