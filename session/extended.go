package session

import (
	"context"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/typecodec"
)

// handleParse implements the Parse step of the extended query protocol,
// per spec.md §4.5: an empty statement name replaces the unnamed
// statement unconditionally; a named statement that already exists is a
// protocol error (the client must Close it first).
func (s *Session) handleParse(m *pgproto3.Parse) {
	if s.skipUntilSync {
		return
	}
	if m.Name != unnamedStatement {
		if _, exists := s.prepared[m.Name]; exists {
			s.fail(backend.NewError(pgerrcode.DuplicatePreparedStatement, "prepared statement \""+m.Name+"\" already exists"))
			return
		}
	}

	translated := s.translate(m.Query, len(m.ParameterOIDs))
	paramCount := translated.ParamCount
	for n := range translated.ParamOIDs {
		if n > paramCount {
			paramCount = n
		}
	}
	paramOIDs := make([]uint32, paramCount)
	for i := 1; i <= paramCount; i++ {
		if i-1 < len(m.ParameterOIDs) && m.ParameterOIDs[i-1] != 0 {
			paramOIDs[i-1] = m.ParameterOIDs[i-1]
		} else {
			paramOIDs[i-1] = translated.ParamOIDs[i]
		}
	}

	s.prepared[m.Name] = &PreparedStatement{
		Name:       m.Name,
		RawSQL:     m.Query,
		Translated: translated,
		ParamOIDs:  paramOIDs,
	}
	s.conn.Send(&pgproto3.ParseComplete{})
}

// handleBind implements Bind: it materializes parameter values from the
// wire format the client sent and binds them to a new portal. Per
// spec.md §4.5, no mutation of the underlying prepared statement happens
// between Bind and Execute - the portal is a frozen snapshot.
func (s *Session) handleBind(m *pgproto3.Bind) {
	if s.skipUntilSync {
		return
	}
	stmt, ok := s.prepared[m.PreparedStatement]
	if !ok {
		s.fail(backend.NewError(pgerrcode.InvalidSQLStatementName, "prepared statement \""+m.PreparedStatement+"\" does not exist"))
		return
	}

	params := make([]any, len(m.Parameters))
	for i, raw := range m.Parameters {
		if raw == nil {
			params[i] = nil
			continue
		}
		format := formatCodeFor(m.ParameterFormatCodes, i)
		oid := typecodec.OIDText
		if i < len(stmt.ParamOIDs) && stmt.ParamOIDs[i] != 0 {
			oid = stmt.ParamOIDs[i]
		}
		v, err := s.types.Decode(oid, format, raw)
		if err != nil {
			s.fail(backend.NewError(pgerrcode.InvalidParameterValue, err.Error()))
			return
		}
		params[i] = v
	}

	if m.DestinationPortal != unnamedPortal {
		if _, exists := s.portals[m.DestinationPortal]; exists {
			s.fail(backend.NewError(pgerrcode.DuplicateCursor, "portal \""+m.DestinationPortal+"\" already exists"))
			return
		}
	}

	s.portals[m.DestinationPortal] = &Portal{
		Name:          m.DestinationPortal,
		Stmt:          stmt,
		Params:        params,
		ResultFormats: append([]int16(nil), m.ResultFormatCodes...),
	}
	s.conn.Send(&pgproto3.BindComplete{})
}

func formatCodeFor(codes []int16, i int) int16 {
	if len(codes) == 0 {
		return typecodec.FormatText
	}
	if len(codes) == 1 {
		return codes[0]
	}
	if i < len(codes) {
		return codes[i]
	}
	return typecodec.FormatText
}

// handleDescribe answers Describe for either a prepared statement ('S')
// or a portal ('P'). Per the open-question decision recorded in
// SPEC_FULL.md §9, statement metadata is always obtained via a
// NULL-parameter dry run through the backend rather than the
// translator's alias table, so Describe's answer reflects exactly what
// Execute will later produce.
func (s *Session) handleDescribe(ctx context.Context, m *pgproto3.Describe) {
	if s.skipUntilSync {
		return
	}
	switch m.ObjectType {
	case 'S':
		stmt, ok := s.prepared[m.Name]
		if !ok {
			s.fail(backend.NewError(pgerrcode.InvalidSQLStatementName, "prepared statement \""+m.Name+"\" does not exist"))
			return
		}
		s.conn.Send(&pgproto3.ParameterDescription{ParameterOIDs: stmt.ParamOIDs})
		cols, err := s.describeColumns(ctx, stmt, nil)
		if err != nil {
			s.fail(errorFromErr(err))
			return
		}
		s.sendDescribeColumns(cols, stmt.Translated.Aliases, nil)
	case 'P':
		portal, ok := s.portals[m.Name]
		if !ok {
			s.fail(backend.NewError(pgerrcode.InvalidCursorName, "portal \""+m.Name+"\" does not exist"))
			return
		}
		cols, err := s.describeColumns(ctx, portal.Stmt, portal.Params)
		if err != nil {
			s.fail(errorFromErr(err))
			return
		}
		s.sendDescribeColumns(cols, portal.Stmt.Translated.Aliases, portal.ResultFormats)
	default:
		s.fail(backend.NewError(pgerrcode.ProtocolViolation, "unknown Describe object type"))
	}
}

func (s *Session) sendDescribeColumns(cols []backend.ColumnMeta, aliases []string, formats []int16) {
	if len(cols) == 0 {
		s.conn.Send(&pgproto3.NoData{})
		return
	}
	s.conn.Send(rowDescription(s.types, cols, aliases, formats))
}

// describeColumns determines the result-column shape of a statement
// without materializing real rows, by executing it with every parameter
// bound to NULL - the dry-run convention this gateway standardizes on
// (see the package doc comment on handleDescribe).
func (s *Session) describeColumns(ctx context.Context, stmt *PreparedStatement, liveParams []any) ([]backend.ColumnMeta, error) {
	params := liveParams
	if params == nil {
		params = make([]any, len(stmt.ParamOIDs))
	}
	execCtx, cancel := s.withStatementTimeout(ctx)
	defer cancel()
	res, err := s.be.Execute(execCtx, stmt.Translated.SQL, params, nil)
	if err != nil {
		return nil, err
	}
	return res.Columns, nil
}

// handleExecute implements Execute against a bound portal, honoring
// MaxRows by suspending the portal (PortalSuspended) rather than sending
// CommandComplete when more rows remain, and auto-destroying the unnamed
// portal once it's exhausted, per spec.md §4.5.
func (s *Session) handleExecute(ctx context.Context, m *pgproto3.Execute) {
	if s.skipUntilSync {
		return
	}
	portal, ok := s.portals[m.Portal]
	if !ok {
		s.fail(backend.NewError(pgerrcode.InvalidCursorName, "portal \""+m.Portal+"\" does not exist"))
		return
	}

	start := time.Now()
	if !portal.Suspended {
		execCtx, cancel := s.withStatementTimeout(ctx)
		res, err := s.be.Execute(execCtx, portal.Stmt.Translated.SQL, portal.Params, portal.ResultFormats)
		cancel()
		if err != nil {
			s.fail(errorFromErr(err))
			return
		}
		portal.Rows = res.Rows
		portal.RowCursor = 0
		s.lastResult = res
	}
	if s.metrics != nil {
		s.metrics.ObserveQueryLatencySeconds("extended", time.Since(start).Seconds())
		s.metrics.IncQueryTotal("extended")
	}

	res := s.lastResult
	if len(res.Columns) == 0 {
		s.conn.Send(&pgproto3.CommandComplete{CommandTag: []byte(tagOrDefault(res.Tag))})
		if m.Portal == unnamedPortal {
			delete(s.portals, m.Portal)
		}
		return
	}

	limit := int(m.MaxRows)
	remaining := len(portal.Rows) - portal.RowCursor
	n := remaining
	if limit > 0 && limit < remaining {
		n = limit
	}
	for i := 0; i < n; i++ {
		row := portal.Rows[portal.RowCursor+i]
		dr, err := dataRow(s.types, res.Columns, row, portal.ResultFormats)
		if err != nil {
			s.fail(errorFromErr(err))
			return
		}
		s.conn.Send(dr)
	}
	portal.RowCursor += n

	if portal.RowCursor < len(portal.Rows) {
		portal.Suspended = true
		s.conn.Send(&pgproto3.PortalSuspended{})
		return
	}

	portal.Suspended = false
	s.conn.Send(&pgproto3.CommandComplete{CommandTag: []byte(tagOrDefault(res.Tag))})
	if m.Portal == unnamedPortal {
		delete(s.portals, m.Portal)
	}
}

func tagOrDefault(tag string) string {
	if tag == "" {
		return "SELECT"
	}
	return tag
}

// handleClose closes a named or unnamed statement/portal. Closing
// something that doesn't exist is not an error, per the protocol doc.
func (s *Session) handleClose(m *pgproto3.Close) {
	if s.skipUntilSync {
		return
	}
	switch m.ObjectType {
	case 'S':
		delete(s.prepared, m.Name)
	case 'P':
		delete(s.portals, m.Name)
	}
	s.conn.Send(&pgproto3.CloseComplete{})
}

// handleSync ends an extended-query batch: it clears any skip-until-sync
// state and returns the session to Idle with a fresh ReadyForQuery.
func (s *Session) handleSync() {
	s.skipUntilSync = false
	_ = s.sendReadyForQuery()
}

// fail sends an ErrorResponse and puts the session into skip-until-sync
// mode, per spec.md §4.5: every extended-protocol message until the next
// Sync is discarded without effect.
func (s *Session) fail(err *backend.Error) {
	s.sendError(err)
	s.skipUntilSync = true
}
