// Package accept runs the TCP accept loop clients first reach, adapting
// the teacher's proxy.Proxy (a generic net.Listen plus per-connection
// goroutine forwarder) from blind byte forwarding into the PostgreSQL
// startup dance of spec.md §4.8: the SSL-negotiation probe, an optional
// TLS upgrade, authentication, and finally handing the connection off to
// a session.Session.
package accept

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/binary"
	"log"
	"net"
	"sync/atomic"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/mevdschee/pgwire-iris/auth"
	"github.com/mevdschee/pgwire-iris/backend"
	"github.com/mevdschee/pgwire-iris/cancel"
	"github.com/mevdschee/pgwire-iris/catalog"
	"github.com/mevdschee/pgwire-iris/session"
	"github.com/mevdschee/pgwire-iris/translate"
	"github.com/mevdschee/pgwire-iris/typecodec"
	"github.com/mevdschee/pgwire-iris/wire"
)

// ServerParams are the ParameterStatus values sent to every client right
// after AuthenticationOk, the same way a real PostgreSQL server announces
// server_version, client_encoding and the like.
type ServerParams map[string]string

// ConnMetrics is the narrow metrics surface this package needs for
// accept-time events; nil is fine.
type ConnMetrics interface {
	IncAuthAttempt(outcome string)
	IncCancelRequest(outcome string)
}

// Listener accepts client connections on one TCP address and drives each
// one through SSL negotiation, authentication, and a session.Session.
type Listener struct {
	Name            string
	Addr            string
	TLSConfig       *tls.Config // nil means SSL is never offered
	MaxMessageBytes int
	Dialer          backend.Dialer
	Chain           *auth.Chain
	Types           *typecodec.Registry
	TCache          *translate.Cache
	Catalog         *catalog.Catalog
	Metrics         session.Metrics
	Options         session.Options
	Cancel          *cancel.Registry
	ServerParams    ServerParams
	ConnMetrics     ConnMetrics

	pidSeq atomic.Int32
}

// Start begins listening and returns once the socket is bound; connections
// are accepted on a background goroutine exactly as proxy.Proxy.Start does.
// It returns the resolved listen address, useful when Addr was given as
// "host:0" and the kernel chose the port.
func (l *Listener) Start() (string, error) {
	ln, err := net.Listen("tcp", l.Addr)
	if err != nil {
		return "", err
	}
	log.Printf("[%s] listening on %s", l.Name, ln.Addr())
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				log.Printf("[%s] accept error: %v", l.Name, err)
				continue
			}
			go l.handleConnection(c)
		}
	}()
	return ln.Addr().String(), nil
}

func (l *Listener) handleConnection(c net.Conn) {
	defer c.Close()

	wc := wire.NewConn(c, l.MaxMessageBytes)
	msg, err := wc.PeekStartup()
	if err != nil {
		return
	}

	if wire.IsSSLRequest(msg) {
		msg, err = l.negotiateTLS(wc, &c)
		if err != nil {
			return
		}
	} else if wire.IsGSSEncRequest(msg) {
		if err := wire.WriteRaw(c, 'N'); err != nil {
			return
		}
		msg, err = wc.PeekStartup()
		if err != nil {
			return
		}
	}

	if cr, ok := wire.IsCancelRequest(msg); ok {
		outcome := "unmatched"
		if l.Cancel.Cancel(int32(cr.ProcessID), cr.SecretKey) {
			outcome = "matched"
		}
		if l.ConnMetrics != nil {
			l.ConnMetrics.IncCancelRequest(outcome)
		}
		return
	}

	startup, ok := msg.(*pgproto3.StartupMessage)
	if !ok {
		log.Printf("[%s] expected StartupMessage, got %T", l.Name, msg)
		return
	}

	l.runSession(wc, startup)
}

// negotiateTLS answers an SSLRequest with 'S' or 'N' and, when TLS is
// offered and the client accepts, performs the handshake and rebinds wc
// onto the upgraded net.Conn before reading the real StartupMessage.
func (l *Listener) negotiateTLS(wc *wire.Conn, c *net.Conn) (pgproto3.FrontendMessage, error) {
	if l.TLSConfig == nil {
		if err := wire.WriteRaw(*c, 'N'); err != nil {
			return nil, err
		}
		return wc.PeekStartup()
	}

	if err := wire.WriteRaw(*c, 'S'); err != nil {
		return nil, err
	}
	tlsConn := tls.Server(*c, l.TLSConfig)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return nil, err
	}
	*c = tlsConn
	wc.Rebind(tlsConn)
	return wc.PeekStartup()
}

func (l *Listener) runSession(wc *wire.Conn, startup *pgproto3.StartupMessage) {
	ctx := context.Background()
	username := startup.Parameters["user"]

	result, err := l.Chain.Authenticate(ctx, &auth.Request{
		Conn:          wc,
		Username:      username,
		StartupParams: startup.Parameters,
	})
	if err != nil {
		if l.ConnMetrics != nil {
			l.ConnMetrics.IncAuthAttempt("failure")
		}
		_ = wc.SendFlush(&pgproto3.ErrorResponse{
			Severity: "FATAL",
			Code:     auth.SQLStateFor(err),
			Message:  err.Error(),
		})
		return
	}
	if l.ConnMetrics != nil {
		l.ConnMetrics.IncAuthAttempt("success")
	}

	conn, err := l.Dialer.Dial(ctx)
	if err != nil {
		_ = wc.SendFlush(&pgproto3.ErrorResponse{
			Severity: "FATAL",
			Code:     pgerrcode.ConnectionException,
			Message:  "could not connect to backend: " + err.Error(),
		})
		return
	}

	pid := l.pidSeq.Add(1)
	secret := randomSecret()

	wc.Send(&pgproto3.AuthenticationOk{})
	for name, value := range l.ServerParams {
		wc.Send(&pgproto3.ParameterStatus{Name: name, Value: value})
	}
	wc.Send(&pgproto3.BackendKeyData{ProcessID: uint32(pid), SecretKey: secret})
	if err := wc.Flush(); err != nil {
		conn.Release()
		return
	}

	sess := session.New(wc, conn, l.Types, l.TCache, l.Catalog, l.Metrics, l.Options, pid, secret, result.Username)
	unregister := l.Cancel.Register(pid, secret, sess)
	defer unregister()

	if err := sess.Run(ctx); err != nil {
		log.Printf("[%s] session %d: %v", l.Name, pid, err)
	}
}

func randomSecret() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint32(len(b)) // exceedingly unlikely; any nonzero value still works as a secret
	}
	return binary.BigEndian.Uint32(b[:])
}
