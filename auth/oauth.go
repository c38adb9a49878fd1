package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"
	"golang.org/x/oauth2/clientcredentials"
)

type oauthCacheEntry struct {
	username string
	expires  time.Time
}

// OAuthProvider treats the client-presented password as a bearer token
// and validates it against an IdP's RFC 7662 token introspection endpoint,
// authenticating the introspection call itself with Config's own client
// credentials, per spec.md §4.7. Validated tokens are cached for a short
// TTL so a busy client isn't round-tripping to the IdP on every query.
type OAuthProvider struct {
	Config           clientcredentials.Config
	IntrospectionURL string
	CacheTTL         time.Duration

	cache sync.Map // token -> oauthCacheEntry
}

func (*OAuthProvider) Name() string { return "oauth" }

func (p *OAuthProvider) Authenticate(ctx context.Context, req *Request) (*Result, error) {
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
	token := pm.Password

	if v, ok := p.cache.Load(token); ok {
		entry := v.(oauthCacheEntry)
		if time.Now().Before(entry.expires) {
			return &Result{Username: entry.username}, nil
		}
		p.cache.Delete(token)
	}

	username, err := p.introspect(ctx, token)
	if err != nil {
		return nil, err
	}
	ttl := p.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	p.cache.Store(token, oauthCacheEntry{username: username, expires: time.Now().Add(ttl)})
	return &Result{Username: username}, nil
}

// introspect calls the IdP's token introspection endpoint, authenticating
// the call with the gateway's own client-credentials grant rather than the
// token under test.
func (p *OAuthProvider) introspect(ctx context.Context, token string) (string, error) {
	client := p.Config.Client(ctx)

	form := url.Values{"token": {token}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.IntrospectionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: introspection returned %s", resp.Status)
	}

	var body struct {
		Active   bool   `json:"active"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if !body.Active {
		return "", fmt.Errorf("auth: token is not active")
	}
	return body.Username, nil
}
