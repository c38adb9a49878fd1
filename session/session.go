// Package session implements the per-connection PostgreSQL wire protocol
// state machine: simple query, extended query (Parse/Bind/Describe/
// Execute/Close/Sync), and the bookkeeping (prepared statements, portals,
// transaction status) those messages share.
package session

import (
	"context"
	"log"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/catalog"
	"github.com/mevdschee/pgwire-iris/copyproto"
	"github.com/mevdschee/pgwire-iris/translate"
	"github.com/mevdschee/pgwire-iris/typecodec"
	"github.com/mevdschee/pgwire-iris/wire"
)

// Metrics is the narrow metrics surface this package needs.
type Metrics interface {
	IncQueryTotal(kind string)
	ObserveQueryLatencySeconds(kind string, seconds float64)
	IncSessionsActive(delta int)
	IncCopyRows(direction string, n int64)
	IncCopyFailure(direction string)
}

// Options carries the per-session configuration spec.md §6 names.
type Options struct {
	CasePolicy       translate.IdentifierCasePolicy
	StatementTimeout int64 // milliseconds; 0 means no timeout
	MaxExecuteRows   int32
	Copy             copyproto.Options
}

// Session is one client connection's state machine, run entirely on its
// own goroutine per spec.md §5.
type Session struct {
	conn    *wire.Conn
	be      backend.Conn
	types   *typecodec.Registry
	tcache  *translate.Cache
	catalog *catalog.Catalog
	metrics Metrics
	opts    Options

	pid      int32
	secret   uint32
	username string

	prepared map[string]*PreparedStatement
	portals  map[string]*Portal

	// lastResult caches the most recent Execute's backend.Result across
	// repeated Execute calls against a suspended portal, so resuming a
	// partially-drained portal doesn't need to re-run the statement.
	lastResult *backend.Result

	// skipUntilSync is set once an error occurs mid-extended-query-batch;
	// every subsequent extended-protocol message is discarded without
	// effect until the next Sync, per spec.md §4.5.
	skipUntilSync bool
}

// New builds a Session ready to run, after authentication and the startup
// parameter exchange have already completed on conn.
func New(conn *wire.Conn, be backend.Conn, types *typecodec.Registry, tcache *translate.Cache, cat *catalog.Catalog, metrics Metrics, opts Options, pid int32, secret uint32, username string) *Session {
	return &Session{
		conn:     conn,
		be:       be,
		types:    types,
		tcache:   tcache,
		catalog:  cat,
		metrics:  metrics,
		opts:     opts,
		pid:      pid,
		secret:   secret,
		username: username,
		prepared: make(map[string]*PreparedStatement),
		portals:  make(map[string]*Portal),
	}
}

// PID and Secret identify this session in the cancel registry.
func (s *Session) PID() int32        { return s.pid }
func (s *Session) Secret() uint32    { return s.secret }
func (s *Session) Username() string  { return s.username }

// Cancel forwards a cancel request to this session's backend connection
// (backend.Conn.Cancel), per spec.md §4.9; whether a running query is
// interrupted is up to that variant's Cancel. It is safe to call from any
// goroutine, including one handling an unrelated client's CancelRequest.
func (s *Session) Cancel() { s.be.Cancel() }

// Run drives the session until the client disconnects or sends
// Terminate. It always releases the backend connection on return.
func (s *Session) Run(ctx context.Context) error {
	defer s.be.Release()
	if s.metrics != nil {
		s.metrics.IncSessionsActive(1)
		defer s.metrics.IncSessionsActive(-1)
	}

	if err := s.sendReadyForQuery(); err != nil {
		return err
	}

	for {
		msg, err := s.conn.Receive()
		if err != nil {
			return err
		}
		if terminate(ctx, s, msg) {
			return nil
		}
	}
}

// terminate dispatches one frontend message and reports whether the
// session should end.
func terminate(ctx context.Context, s *Session, msg pgproto3.FrontendMessage) bool {
	switch m := msg.(type) {
	case *pgproto3.Terminate:
		return true
	case *pgproto3.Query:
		s.handleSimpleQuery(ctx, m.String)
	case *pgproto3.Parse:
		s.handleParse(m)
	case *pgproto3.Bind:
		s.handleBind(m)
	case *pgproto3.Describe:
		s.handleDescribe(ctx, m)
	case *pgproto3.Execute:
		s.handleExecute(ctx, m)
	case *pgproto3.Close:
		s.handleClose(m)
	case *pgproto3.Sync:
		s.handleSync()
	case *pgproto3.Flush:
		_ = s.conn.Flush()
	case *pgproto3.CopyData, *pgproto3.CopyDone, *pgproto3.CopyFail:
		// COPY sub-protocol messages arriving outside an active COPY are
		// a protocol violation; copyproto owns the in-COPY path directly
		// via the wire.Conn once a COPY has been initiated.
		s.sendError(backend.NewError(pgerrcode.ProtocolViolation, "unexpected COPY message outside COPY"))
	default:
		log.Printf("[session %d] unhandled frontend message %T", s.pid, msg)
	}
	return false
}

func (s *Session) sendReadyForQuery() error {
	return s.conn.SendFlush(&pgproto3.ReadyForQuery{TxStatus: s.be.TxStatus().Byte()})
}

func (s *Session) sendError(err *backend.Error) {
	s.conn.Send(&pgproto3.ErrorResponse{
		Severity: "ERROR",
		Code:     err.SQLState,
		Message:  err.Message,
		Detail:   err.Detail,
		Hint:     err.Hint,
		Position: uint32(err.Position),
		Line:     err.Line,
	})
}

// errorFromErr normalizes an arbitrary error returned by the backend
// package into a wire-ready *backend.Error, defaulting to SQLSTATE
// 58000 (system_error) when the backend didn't classify it.
func errorFromErr(err error) *backend.Error {
	if be, ok := backend.AsBackendError(err); ok {
		return be
	}
	return backend.NewError(pgerrcode.SystemError, err.Error())
}

func rowDescription(types *typecodec.Registry, cols []backend.ColumnMeta, aliases []string, formats []int16) *pgproto3.RowDescription {
	fields := make([]pgproto3.FieldDescription, len(cols))
	for i, col := range cols {
		name := col.Name
		if i < len(aliases) && aliases[i] != "" {
			name = aliases[i]
		}
		format := int16(typecodec.FormatText)
		if i < len(formats) {
			format = formats[i]
		} else if len(formats) == 1 {
			format = formats[0]
		}
		fields[i] = pgproto3.FieldDescription{
			Name:                 []byte(name),
			TableOID:             0,
			TableAttributeNumber: 0,
			DataTypeOID:          col.OID,
			DataTypeSize:         -1,
			TypeModifier:         -1,
			Format:               format,
		}
	}
	return &pgproto3.RowDescription{Fields: fields}
}

func dataRow(types *typecodec.Registry, cols []backend.ColumnMeta, row []any, formats []int16) (*pgproto3.DataRow, error) {
	values := make([][]byte, len(row))
	for i, v := range row {
		if v == nil {
			values[i] = nil
			continue
		}
		format := int16(typecodec.FormatText)
		if i < len(formats) {
			format = formats[i]
		} else if len(formats) == 1 {
			format = formats[0]
		}
		enc, err := types.Encode(cols[i].OID, format, v)
		if err != nil {
			return nil, err
		}
		values[i] = enc
	}
	return &pgproto3.DataRow{Values: values}, nil
}
