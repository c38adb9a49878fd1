package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/translate"
)

// handleSimpleQuery answers one Query message, which may contain several
// semicolon-separated statements; each runs to completion in order, and
// an error in any one aborts the rest (but does not end the connection),
// per the protocol's simple-query semantics.
func (s *Session) handleSimpleQuery(ctx context.Context, sql string) {
	stmts := translate.SplitStatements(sql)
	if len(stmts) == 0 {
		s.conn.Send(&pgproto3.EmptyQueryResponse{})
		_ = s.sendReadyForQuery()
		return
	}

	for _, stmt := range stmts {
		if handled, ok := s.handleCopy(ctx, stmt); handled {
			if !ok {
				break
			}
			continue
		}
		if hit, handled := s.catalog.TryAnswer(stmt); handled {
			s.sendResult(hit, nil, nil)
			continue
		}

		start := time.Now()
		translated := s.translate(stmt, 0)
		execCtx, cancel := s.withStatementTimeout(ctx)
		res, err := s.be.Execute(execCtx, translated.SQL, nil, nil)
		cancel()
		if s.metrics != nil {
			s.metrics.ObserveQueryLatencySeconds("simple", time.Since(start).Seconds())
			s.metrics.IncQueryTotal("simple")
		}
		if err != nil {
			s.sendError(errorFromErr(err))
			break
		}
		s.sendResult(res, translated.Aliases, nil)
	}
	if err := s.sendReadyForQuery(); err != nil {
		return
	}
}

// sendResult writes a RowDescription+DataRow* / CommandComplete pair for a
// completed Execute result in text format (the simple-query protocol is
// always text), or just CommandComplete for a non-row-returning statement.
func (s *Session) sendResult(res *backend.Result, aliases []string, formats []int16) {
	if len(res.Columns) > 0 {
		s.conn.Send(rowDescription(s.types, res.Columns, aliases, formats))
		for _, row := range res.Rows {
			dr, err := dataRow(s.types, res.Columns, row, formats)
			if err != nil {
				s.sendError(errorFromErr(err))
				return
			}
			s.conn.Send(dr)
		}
	}
	tag := res.Tag
	if tag == "" {
		tag = "OK"
	}
	s.conn.Send(&pgproto3.CommandComplete{CommandTag: []byte(tag)})
}

func (s *Session) withStatementTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StatementTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(s.opts.StatementTimeout)*time.Millisecond)
}

func (s *Session) translate(sql string, paramCount int) *translate.Result {
	if s.tcache == nil {
		return translate.Translate(sql, paramCount, translate.Options{CasePolicy: s.opts.CasePolicy})
	}
	key := translate.Key(sql, paramCount, s.opts.CasePolicy)
	return s.tcache.GetOrTranslate(key, func() *translate.Result {
		return translate.Translate(sql, paramCount, translate.Options{CasePolicy: s.opts.CasePolicy})
	})
}
