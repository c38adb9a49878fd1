package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/jackc/pgx/v5/pgproto3"
)

// VaultProvider retrieves a password verifier from HashiCorp Vault by the
// stable key `pgwire-user-{username}`, per spec.md §4.7. A not-found
// lookup is cached negatively for a short TTL so a client hammering with a
// wrong username doesn't hammer the store in turn.
type VaultProvider struct {
	Client     *vaultapi.Client
	MountPath  string // e.g. "secret/data"
	NegativeTTL time.Duration

	negCache sync.Map // username -> time.Time (expiry)
}

func (*VaultProvider) Name() string { return "vault" }

func (p *VaultProvider) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	if exp, ok := p.negCache.Load(req.Username); ok {
		if time.Now().Before(exp.(time.Time)) {
			return nil, fmt.Errorf("auth: %s has no vault entry (cached)", req.Username)
		}
		p.negCache.Delete(req.Username)
	}

	req.Conn.Send(&pgproto3.AuthenticationCleartextPassword{})
	if err := req.Conn.Flush(); err != nil {
		return nil, err
	}
	msg, err := req.Conn.Receive()
	if err != nil {
		return nil, err
	}
	pm, ok := msg.(*pgproto3.PasswordMessage)
	if !ok {
		return nil, fmt.Errorf("auth: expected PasswordMessage, got %T", msg)
	}

	// the retrieved verifier is a Credential so it never prints in a log
	// statement built from this function's return values.
	verifier, err := p.lookupVerifier(ctx, req.Username)
	if err != nil {
		p.negCache.Store(req.Username, time.Now().Add(p.ttl()))
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(verifier), []byte(pm.Password)) != 1 {
		return nil, fmt.Errorf("auth: password mismatch for %s", req.Username)
	}
	return &Result{Username: req.Username}, nil
}

func (p *VaultProvider) lookupVerifier(ctx context.Context, username string) (Credential, error) {
	path := p.MountPath + "/pgwire-user-" + username
	secret, err := p.Client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("auth: vault read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("auth: no vault entry for %s", username)
	}
	data := secret.Data
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}
	pw, ok := data["password"].(string)
	if !ok {
		return "", fmt.Errorf("auth: vault entry for %s has no password field", username)
	}
	return Credential(pw), nil
}

func (p *VaultProvider) ttl() time.Duration {
	if p.NegativeTTL <= 0 {
		return 30 * time.Second
	}
	return p.NegativeTTL
}
