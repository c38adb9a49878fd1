package accept

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/auth"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/cancel"
	"github.com/mevdschee/pgwire-iris/catalog"
	"github.com/mevdschee/pgwire-iris/session"
	"github.com/mevdschee/pgwire-iris/typecodec"
)

type fakeConn struct{ status backend.TxStatus }

func (f *fakeConn) Execute(ctx context.Context, sqlText string, params []any, resultFormats []int16) (*backend.Result, error) {
	return &backend.Result{Tag: "OK"}, nil
}
func (f *fakeConn) ExecuteMany(ctx context.Context, sqlText string, paramSets [][]any) (int64, error) {
	return 0, nil
}
func (f *fakeConn) Begin(ctx context.Context) error                  { return nil }
func (f *fakeConn) Commit(ctx context.Context) error                 { return nil }
func (f *fakeConn) Rollback(ctx context.Context) error                { return nil }
func (f *fakeConn) Savepoint(ctx context.Context, name string) error    { return nil }
func (f *fakeConn) RollbackTo(ctx context.Context, name string) error   { return nil }
func (f *fakeConn) Cancel()                                          {}
func (f *fakeConn) TxStatus() backend.TxStatus                       { return f.status }
func (f *fakeConn) Release()                                         {}

type fakeDialer struct{}

func (fakeDialer) Dial(ctx context.Context) (backend.Conn, error) { return &fakeConn{}, nil }

func newTestListener(t *testing.T) *Listener {
	t.Helper()
	return &Listener{
		Name:    "test",
		Addr:    "127.0.0.1:0",
		Dialer:  fakeDialer{},
		Chain:   &auth.Chain{Providers: []auth.Provider{auth.TrustProvider{}}},
		Types:   typecodec.NewRegistry(),
		Catalog: catalog.New("16.0"),
		Options: session.Options{},
		Cancel:  cancel.NewRegistry(),
	}
}

// TestTrustAuthReachesReadyForQuery drives a real TCP connection through
// the StartupMessage, trust authentication, and confirms the client
// receives AuthenticationOk, BackendKeyData and ReadyForQuery, exactly
// the handshake spec.md §9's trivial-query scenario starts from.
func TestTrustAuthReachesReadyForQuery(t *testing.T) {
	l := newTestListener(t)
	addr, err := l.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	fe := pgproto3.NewFrontend(pgproto3.NewChunkReader(conn), conn)
	fe.Send(&pgproto3.StartupMessage{
		ProtocolVersion: pgproto3.ProtocolVersionNumber,
		Parameters:      map[string]string{"user": "alice", "database": "USER"},
	})
	if err := fe.Flush(); err != nil {
		t.Fatalf("flush startup: %v", err)
	}

	sawAuthOk, sawBackendKeyData, sawReady := false, false, false
	for i := 0; i < 3; i++ {
		msg, err := fe.Receive()
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		switch msg.(type) {
		case *pgproto3.AuthenticationOk:
			sawAuthOk = true
		case *pgproto3.BackendKeyData:
			sawBackendKeyData = true
		case *pgproto3.ReadyForQuery:
			sawReady = true
		}
	}
	if !sawAuthOk || !sawBackendKeyData || !sawReady {
		t.Fatalf("got authOk=%v backendKeyData=%v ready=%v, want all true", sawAuthOk, sawBackendKeyData, sawReady)
	}
}

// TestCancelRequestDispatchesToRegistry drives a real CancelRequest
// connection and confirms the registry's matching entry is invoked, with
// the server never replying on that connection, per spec.md §4.9.
func TestCancelRequestDispatchesToRegistry(t *testing.T) {
	l := newTestListener(t)
	addr, err := l.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	canceled := make(chan struct{}, 1)
	l.Cancel.Register(99, 12345, cancelFunc(func() { canceled <- struct{}{} }))

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	fe := pgproto3.NewFrontend(pgproto3.NewChunkReader(conn), conn)
	fe.Send(&pgproto3.CancelRequest{ProcessID: 99, SecretKey: 12345})
	if err := fe.Flush(); err != nil {
		t.Fatalf("flush cancel request: %v", err)
	}

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("registered session was never canceled")
	}
}

type cancelFunc func()

func (f cancelFunc) Cancel() { f() }
