package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/xdg-go/scram"
)

// VerifierStore resolves a username to its stored SCRAM verifier,
// produced ahead of time by GenerateVerifier. Implementations back this
// with whatever credential source the deployment uses; the vault
// provider in this package is one option but VerifierStore is deliberately
// narrower than the full auth.Provider surface.
type VerifierStore interface {
	Lookup(ctx context.Context, username string) (scram.StoredCredentials, error)
}

// SCRAMProvider drives the server side of RFC 5802 SCRAM-SHA-256 over the
// wire's AuthenticationSASL* messages.
type SCRAMProvider struct {
	Store VerifierStore
}

func (*SCRAMProvider) Name() string { return "scram" }

func (p *SCRAMProvider) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	req.Conn.Send(&pgproto3.AuthenticationSASL{AuthMechanisms: []string{"SCRAM-SHA-256"}})
	if err := req.Conn.Flush(); err != nil {
		return nil, err
	}

	initial, err := receiveSASL(req.Conn, true)
	if err != nil {
		return nil, err
	}

	lookupCtx := ctx
	server, err := scram.SHA256.NewServer(func(username string) (scram.StoredCredentials, error) {
		return p.Store.Lookup(lookupCtx, username)
	})
	if err != nil {
		return nil, fmt.Errorf("auth: scram server: %w", err)
	}
	conv := server.NewConversation()

	challenge, err := conv.Step(string(initial))
	if err != nil {
		return nil, fmt.Errorf("auth: scram step 1: %w", err)
	}
	req.Conn.Send(&pgproto3.AuthenticationSASLContinue{Data: []byte(challenge)})
	if err := req.Conn.Flush(); err != nil {
		return nil, err
	}

	response, err := receiveSASL(req.Conn, false)
	if err != nil {
		return nil, err
	}
	final, err := conv.Step(string(response))
	if err != nil {
		return nil, fmt.Errorf("auth: scram step 2: %w", err)
	}
	req.Conn.Send(&pgproto3.AuthenticationSASLFinal{Data: []byte(final)})
	if err := req.Conn.Flush(); err != nil {
		return nil, err
	}

	if !conv.Valid() {
		return nil, fmt.Errorf("auth: scram conversation did not validate")
	}
	return &Result{Username: req.Username}, nil
}

// receiveSASL reads the client's next SASL message, either the initial
// response (which also carries the mechanism name) or a continuation.
func receiveSASL(conn interface {
	Receive() (pgproto3.FrontendMessage, error)
}, initial bool) ([]byte, error) {
	msg, err := conn.Receive()
	if err != nil {
		return nil, err
	}
	if initial {
		m, ok := msg.(*pgproto3.SASLInitialResponse)
		if !ok {
			return nil, fmt.Errorf("auth: expected SASLInitialResponse, got %T", msg)
		}
		return m.Data, nil
	}
	m, ok := msg.(*pgproto3.SASLResponse)
	if !ok {
		return nil, fmt.Errorf("auth: expected SASLResponse, got %T", msg)
	}
	return m.Data, nil
}
