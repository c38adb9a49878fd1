package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/catalog"
	"github.com/mevdschee/pgwire-iris/typecodec"
	"github.com/mevdschee/pgwire-iris/wire"
)

// fakeConn is a minimal backend.Conn for driving the session state
// machine without a real IRIS connection.
type fakeConn struct {
	result *backend.Result
	err    error
	status backend.TxStatus
}

func (f *fakeConn) Execute(ctx context.Context, sqlText string, params []any, resultFormats []int16) (*backend.Result, error) {
	return f.result, f.err
}
func (f *fakeConn) ExecuteMany(ctx context.Context, sqlText string, paramSets [][]any) (int64, error) {
	return 0, nil
}
func (f *fakeConn) Begin(ctx context.Context) error               { return nil }
func (f *fakeConn) Commit(ctx context.Context) error              { return nil }
func (f *fakeConn) Rollback(ctx context.Context) error            { return nil }
func (f *fakeConn) Savepoint(ctx context.Context, name string) error    { return nil }
func (f *fakeConn) RollbackTo(ctx context.Context, name string) error   { return nil }
func (f *fakeConn) Cancel()                                       {}
func (f *fakeConn) TxStatus() backend.TxStatus                            { return f.status }
func (f *fakeConn) Release()                                      {}

func newTestSession(t *testing.T, be backend.Conn) (*Session, net.Conn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	wc := wire.NewConn(serverSide, 0)
	s := New(wc, be, typecodec.NewRegistry(), nil, catalog.New("16.0"), nil, Options{}, 1234, 5678, "test")
	return s, clientSide
}

func TestExtendedQueryRowFlow(t *testing.T) {
	be := &fakeConn{
		result: &backend.Result{
			Columns: []backend.ColumnMeta{{Name: "id", OID: typecodec.OIDInt4}},
			Rows:    [][]any{{int64(1)}, {int64(2)}},
			Tag:     "SELECT 2",
		},
		status: backend.TxIdle,
	}
	s, client := newTestSession(t, be)
	defer client.Close()

	done := make(chan struct{})
	go func() {
		s.handleParse(&pgproto3.Parse{Name: "", Query: "SELECT id FROM t"})
		s.handleBind(&pgproto3.Bind{DestinationPortal: "", PreparedStatement: ""})
		s.handleDescribe(context.Background(), &pgproto3.Describe{ObjectType: 'P', Name: ""})
		s.handleExecute(context.Background(), &pgproto3.Execute{Portal: "", MaxRows: 0})
		_ = s.conn.Flush()
		close(done)
	}()

	frontend := pgproto3.NewFrontend(pgproto3.NewChunkReader(client), client)
	var msgs []pgproto3.BackendMessage
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 5; i++ {
		msg, err := frontend.Receive()
		if err != nil {
			t.Fatalf("receive %d: %v", i, err)
		}
		msgs = append(msgs, cloneMessage(msg))
	}
	<-done

	wantTypes := []string{"*pgproto3.ParseComplete", "*pgproto3.BindComplete", "*pgproto3.RowDescription", "*pgproto3.DataRow", "*pgproto3.DataRow"}
	if len(msgs) < len(wantTypes) {
		t.Fatalf("got %d messages, want at least %d", len(msgs), len(wantTypes))
	}
	for i, want := range wantTypes {
		got := typeName(msgs[i])
		if got != want {
			t.Errorf("message %d: got %s, want %s", i, got, want)
		}
	}
}

func typeName(m pgproto3.BackendMessage) string {
	switch m.(type) {
	case *pgproto3.ParseComplete:
		return "*pgproto3.ParseComplete"
	case *pgproto3.BindComplete:
		return "*pgproto3.BindComplete"
	case *pgproto3.RowDescription:
		return "*pgproto3.RowDescription"
	case *pgproto3.DataRow:
		return "*pgproto3.DataRow"
	case *pgproto3.CommandComplete:
		return "*pgproto3.CommandComplete"
	default:
		return "unknown"
	}
}

// cloneMessage returns m as is, without copying. frontend.Receive may
// reuse a message value on a later call, but the test only compares
// message types, which that reuse does not change.
func cloneMessage(m pgproto3.BackendMessage) pgproto3.BackendMessage {
	return m
}
