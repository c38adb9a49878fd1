// Package auth implements the pluggable authentication chain described in
// spec.md §4.7: trust, SCRAM-SHA-256, OAuth token exchange, a credential
// vault, and Kerberos/GSSAPI, tried in a configurable order until one
// succeeds.
package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/mevdschee/pgwire-iris/wire"
)

// Request carries everything a Provider needs to complete its own part of
// the wire exchange: the connection to read/write authentication messages
// on, the username the client offered in its StartupMessage, and the rest
// of the startup parameters.
type Request struct {
	Conn          *wire.Conn
	Username      string
	StartupParams map[string]string
}

// Result is a successful authentication outcome. Username may differ from
// Request.Username when a provider maps an external identity onto a local
// one (OAuth introspection, Kerberos realm stripping).
type Result struct {
	Username string
}

// Provider authenticates one session. Authenticate owns whatever
// provider-specific messages it needs to send and receive on req.Conn
// (AuthenticationCleartextPassword, AuthenticationSASL, ...); it must not
// send AuthenticationOk itself. The Chain does not send it either: the
// accept loop sends AuthenticationOk once the Chain has returned success.
type Provider interface {
	Name() string
	Authenticate(ctx context.Context, req *Request) (*Result, error)
}

// ErrAuthenticationFailed is returned once every provider in a Chain has
// been tried and none succeeded.
var ErrAuthenticationFailed = errors.New("auth: authentication failed")

// ErrTimeout marks the 5s p95 ceiling from spec.md §4.7 being exceeded.
var ErrTimeout = errors.New("auth: authentication exceeded the time budget")

// Chain tries its Providers in order, per spec.md §4.7: "A provider
// failure is logged and the next provider is tried; only after all have
// failed is an auth error sent."
type Chain struct {
	Providers []Provider
	Timeout   time.Duration
}

// DefaultTimeout is the p95 ceiling spec.md §4.7 names for the whole
// authentication exchange, including any provider round trips.
const DefaultTimeout = 5 * time.Second

// Authenticate runs the chain under a deadline and returns the first
// provider's success, or ErrAuthenticationFailed/ErrTimeout.
func (c *Chain) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, p := range c.Providers {
		res, err := p.Authenticate(ctx, req)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ErrTimeout
		}
		log.Printf("[auth] provider %s failed for user %q: %v", p.Name(), req.Username, err)
	}
	return nil, ErrAuthenticationFailed
}

// SQLStateFor classifies an auth error for ErrorResponse, per spec.md §7's
// SQLSTATE table.
func SQLStateFor(err error) string {
	if errors.Is(err, ErrTimeout) {
		return pgerrcode.ConnectionFailure
	}
	return pgerrcode.InvalidPassword
}
