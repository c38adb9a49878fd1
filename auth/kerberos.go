package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

// KerberosProvider performs the GSSAPI handshake against a keytab loaded
// for ServicePrincipal, per spec.md §4.7. A realm-qualified principal
// (user@REALM or user/instance@REALM) maps to an IRIS username by
// stripping the realm and any instance component and uppercasing what
// remains, matching IRIS's own convention for externally authenticated
// accounts.
type KerberosProvider struct {
	Keytab           *keytab.Keytab
	ServicePrincipal string
}

func (*KerberosProvider) Name() string { return "kerberos" }

func (p *KerberosProvider) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	req.Conn.Send(&pgproto3.AuthenticationGSS{})
	if err := req.Conn.Flush(); err != nil {
		return nil, err
	}
	msg, err := req.Conn.Receive()
	if err != nil {
		return nil, err
	}
	gr, ok := msg.(*pgproto3.GSSResponse)
	if !ok {
		return nil, fmt.Errorf("auth: expected GSSResponse, got %T", msg)
	}

	svc := spnego.SPNEGOService(p.Keytab)
	ok2, _, _, creds, err := svc.AcceptSecContext(gr.Data)
	if err != nil {
		return nil, fmt.Errorf("auth: kerberos handshake: %w", err)
	}
	if !ok2 || creds == nil {
		return nil, fmt.Errorf("auth: kerberos handshake did not complete")
	}

	return &Result{Username: mapPrincipalToUsername(creds.UserName())}, nil
}

// mapPrincipalToUsername strips any "/instance" component and uppercases
// the remaining primary name, e.g. "alice/admin" -> "ALICE". The realm is
// already separated out by gokrb5's credentials.UserName().
func mapPrincipalToUsername(principal string) string {
	if i := strings.IndexByte(principal, '/'); i >= 0 {
		principal = principal[:i]
	}
	return strings.ToUpper(principal)
}
