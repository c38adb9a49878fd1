package auth

import "context"

// TrustProvider accepts any username unconditionally, matching the
// teacher's current local-development flow. It never touches the wire: no
// credential round trip is needed when trust succeeds outright.
type TrustProvider struct{}

func (TrustProvider) Name() string { return "trust" }

func (TrustProvider) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	return &Result{Username: req.Username}, nil
}
