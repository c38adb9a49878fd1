package copyproto

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/typecodec"
	"github.com/mevdschee/pgwire-iris/wire"
)

// fakeBackend is a minimal backend.Conn that records transaction
// bookkeeping calls without touching any real executor.
type fakeBackend struct {
	began     bool
	committed bool
	rolledBack bool
	txStatus  backend.TxStatus
	execMany  func(sql string, paramSets [][]any) (int64, error)
}

func (f *fakeBackend) Execute(ctx context.Context, sql string, params []any, formats []int16) (*backend.Result, error) {
	return &backend.Result{RowsAffected: 1, Tag: "INSERT 0 1"}, nil
}
func (f *fakeBackend) ExecuteMany(ctx context.Context, sql string, paramSets [][]any) (int64, error) {
	if f.execMany != nil {
		return f.execMany(sql, paramSets)
	}
	return int64(len(paramSets)), nil
}
func (f *fakeBackend) Begin(ctx context.Context) error    { f.began = true; f.txStatus = backend.TxInTx; return nil }
func (f *fakeBackend) Commit(ctx context.Context) error   { f.committed = true; f.txStatus = backend.TxIdle; return nil }
func (f *fakeBackend) Rollback(ctx context.Context) error { f.rolledBack = true; f.txStatus = backend.TxIdle; return nil }
func (f *fakeBackend) Savepoint(ctx context.Context, name string) error  { return nil }
func (f *fakeBackend) RollbackTo(ctx context.Context, name string) error { return nil }
func (f *fakeBackend) Cancel()                                          {}
func (f *fakeBackend) TxStatus() backend.TxStatus                       { return f.txStatus }
func (f *fakeBackend) Release()                                         {}

func newPipeConn(t *testing.T) (*wire.Conn, net.Conn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	return wire.NewConn(serverSide, 0), clientSide
}

func TestIngestMalformedDateRollsBack(t *testing.T) {
	conn, client := newPipeConn(t)
	defer client.Close()

	be := &fakeBackend{txStatus: backend.TxIdle}
	columns := []backend.ColumnMeta{
		{Name: "id", OID: typecodec.OIDInt4},
		{Name: "dob", OID: typecodec.OIDDate},
	}
	types := typecodec.NewRegistry()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	done := make(chan struct{})
	go func() {
		fe := pgproto3.NewFrontend(pgproto3.NewChunkReader(client), client)
		fe.Receive() // CopyInResponse
		for _, row := range []string{"1,2001-01-01\n", "2,1962-02-29\n", "3,2003-03-03\n"} {
			fe.Send(&pgproto3.CopyData{Data: []byte(row)})
		}
		fe.Send(&pgproto3.CopyDone{})
		_ = fe.Flush()
		close(done)
	}()

	_, err := Ingest(context.Background(), conn, be, "INSERT INTO patients (id,dob) VALUES (?,?)", columns, types, DefaultOptions())
	<-done

	if err == nil {
		t.Fatal("expected an error for the malformed date on line 2")
	}
	berr, ok := backend.AsBackendError(err)
	if !ok {
		t.Fatalf("expected a *backend.Error, got %T: %v", err, err)
	}
	if berr.Line != 2 {
		t.Errorf("got Line=%d, want 2", berr.Line)
	}
	if !be.began || !be.rolledBack || be.committed {
		t.Errorf("expected Begin+Rollback and no Commit, got began=%v rolledBack=%v committed=%v", be.began, be.rolledBack, be.committed)
	}
}

func TestParseCopyFromStdin(t *testing.T) {
	stmt, err := Parse(`COPY patients (id, dob) FROM STDIN WITH (FORMAT CSV, HEADER true)`, DefaultOptions())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stmt.Direction != DirectionIn {
		t.Errorf("got Direction %v, want DirectionIn", stmt.Direction)
	}
	if stmt.Table != "patients" {
		t.Errorf("got Table %q, want patients", stmt.Table)
	}
	if len(stmt.Columns) != 2 || stmt.Columns[0] != "id" || stmt.Columns[1] != "dob" {
		t.Errorf("got Columns %v, want [id dob]", stmt.Columns)
	}
	if !stmt.Options.HasHeader {
		t.Error("expected HasHeader true")
	}
}

func TestParseNotCopy(t *testing.T) {
	if _, err := Parse("SELECT 1", DefaultOptions()); err != ErrNotCopy {
		t.Errorf("got %v, want ErrNotCopy", err)
	}
}

func TestEgestWritesCSVRows(t *testing.T) {
	conn, client := newPipeConn(t)
	defer client.Close()

	columns := []backend.ColumnMeta{{Name: "id", OID: typecodec.OIDInt4}, {Name: "name", OID: typecodec.OIDText}}
	rows := [][]any{{int64(1), "alice"}, {int64(2), nil}}
	types := typecodec.NewRegistry()

	client.SetDeadline(time.Now().Add(2 * time.Second))
	var frames []string
	recvDone := make(chan struct{})
	go func() {
		fe := pgproto3.NewFrontend(pgproto3.NewChunkReader(client), client)
		fe.Receive() // CopyOutResponse
		for i := 0; i < len(rows); i++ {
			msg, err := fe.Receive()
			if err != nil {
				break
			}
			if cd, ok := msg.(*pgproto3.CopyData); ok {
				frames = append(frames, string(cd.Data))
			}
		}
		fe.Receive() // CopyDone
		close(recvDone)
	}()

	n, err := Egest(conn, columns, rows, types, DefaultOptions())
	<-recvDone
	if err != nil {
		t.Fatalf("Egest: %v", err)
	}
	if n != 2 {
		t.Errorf("got n=%d, want 2", n)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[1] != `2,\N
` {
		t.Errorf("got frame %q, want NULL sentinel for second row", frames[1])
	}
}
