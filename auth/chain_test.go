package auth

import (
	"context"
	"errors"
	"testing"
)

type failingProvider struct{ name string }

func (f *failingProvider) Name() string { return f.name }
func (f *failingProvider) Authenticate(ctx context.Context, req *Request) (*Result, error) {
	return nil, errors.New("nope")
}

func TestChainFallsThroughToNextProvider(t *testing.T) {
	c := &Chain{Providers: []Provider{&failingProvider{name: "first"}, TrustProvider{}}}
	res, err := c.Authenticate(context.Background(), &Request{Username: "alice"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if res.Username != "alice" {
		t.Errorf("got Username %q, want alice", res.Username)
	}
}

func TestChainExhaustedReturnsErrAuthenticationFailed(t *testing.T) {
	c := &Chain{Providers: []Provider{&failingProvider{name: "only"}}}
	_, err := c.Authenticate(context.Background(), &Request{Username: "bob"})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("got %v, want ErrAuthenticationFailed", err)
	}
}

func TestGenerateVerifierMeetsMinIterations(t *testing.T) {
	cred, err := GenerateVerifier("hunter2", 100)
	if err != nil {
		t.Fatalf("GenerateVerifier: %v", err)
	}
	if cred.KeyFactors.Iters < MinIterations {
		t.Errorf("got Iters=%d, want >= %d", cred.KeyFactors.Iters, MinIterations)
	}
	if len(cred.StoredKey) == 0 || len(cred.ServerKey) == 0 {
		t.Error("expected non-empty StoredKey/ServerKey")
	}
}
