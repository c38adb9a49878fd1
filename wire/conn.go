// Package wire frames and codes PostgreSQL wire protocol v3.0 messages on
// top of a raw byte stream, and handles the SSL-negotiation preamble that
// precedes the startup message.
package wire

import (
	"bufio"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgproto3"
)

// Conn wraps a net.Conn with a pgproto3 backend codec and a size cap on
// any single incoming message, so a malformed or hostile client cannot
// force an unbounded read-ahead allocation.
type Conn struct {
	net.Conn
	backend  *pgproto3.Backend
	maxBytes int
}

// NewConn builds a wire.Conn ready to negotiate SSL and read the startup
// message. maxMessageBytes caps any single frontend message; zero means
// the pgproto3 default.
func NewConn(c net.Conn, maxMessageBytes int) *Conn {
	wc := &Conn{Conn: c, maxBytes: maxMessageBytes}
	wc.backend = pgproto3.NewBackend(bufio.NewReader(c), c)
	if maxMessageBytes > 0 {
		wc.backend.SetMessageSizeLimit(maxMessageBytes)
	}
	return wc
}

// PeekStartup reads the first message on the connection: either the
// SSLRequest/GSSEncRequest probe, a CancelRequest, or a real StartupMessage.
// The caller inspects the result with IsSSLRequest/IsGSSEncRequest/
// IsCancelRequest to decide what to do next; a TLS upgrade (if any) is the
// caller's responsibility, via Rebind once the handshake completes.
func (c *Conn) PeekStartup() (pgproto3.FrontendMessage, error) {
	return c.backend.ReceiveStartupMessage()
}

// Rebind replaces the underlying stream, used after a TLS handshake
// upgrades a plaintext net.Conn to a *tls.Conn mid-negotiation.
func (c *Conn) Rebind(nc net.Conn) {
	c.Conn = nc
	c.backend = pgproto3.NewBackend(bufio.NewReader(nc), nc)
	if c.maxBytes > 0 {
		c.backend.SetMessageSizeLimit(c.maxBytes)
	}
}

// Receive reads and decodes the next frontend message.
func (c *Conn) Receive() (pgproto3.FrontendMessage, error) {
	return c.backend.Receive()
}

// Send queues a backend message for the next Flush.
func (c *Conn) Send(msg pgproto3.BackendMessage) {
	c.backend.Send(msg)
}

// Flush writes all queued messages to the underlying stream.
func (c *Conn) Flush() error {
	return c.backend.Flush()
}

// SendFlush is a convenience for the common single-message-then-flush case.
func (c *Conn) SendFlush(msg pgproto3.BackendMessage) error {
	c.Send(msg)
	return c.Flush()
}

// IsSSLRequest reports whether a startup message returned by PeekStartup
// is actually the SSL-negotiation probe rather than a real StartupMessage.
func IsSSLRequest(msg pgproto3.FrontendMessage) bool {
	_, ok := msg.(*pgproto3.SSLRequest)
	return ok
}

// IsGSSEncRequest reports the GSSAPI-encryption equivalent of
// IsSSLRequest.
func IsGSSEncRequest(msg pgproto3.FrontendMessage) bool {
	_, ok := msg.(*pgproto3.GSSEncRequest)
	return ok
}

// IsCancelRequest reports whether a startup message is a CancelRequest
// rather than a real session startup, per spec.md §4.9.
func IsCancelRequest(msg pgproto3.FrontendMessage) (*pgproto3.CancelRequest, bool) {
	cr, ok := msg.(*pgproto3.CancelRequest)
	return cr, ok
}

// WriteRaw writes a single unframed byte directly to the stream, used only
// for the one-byte 'S'/'N' SSL-negotiation reply that precedes any
// pgproto3 framing.
func WriteRaw(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}
