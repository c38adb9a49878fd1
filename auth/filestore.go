package auth

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xdg-go/scram"
	"gopkg.in/ini.v1"
)

// FileVerifierStore resolves usernames against an INI file of
// pre-generated SCRAM verifiers, one `[user]` section per username with
// salt/iters/stored_key/server_key keys (each byte slice hex-encoded). It
// is the simplest concrete VerifierStore: a deployment that already has a
// real identity store plugs in its own implementation instead.
type FileVerifierStore struct {
	users map[string]scram.StoredCredentials
}

// LoadFileVerifierStore reads path in the shape GenerateVerifier's output
// is meant to be persisted in.
func LoadFileVerifierStore(path string) (*FileVerifierStore, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("auth: load verifier file: %w", err)
	}
	store := &FileVerifierStore{users: make(map[string]scram.StoredCredentials)}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		iters, err := strconv.Atoi(sec.Key("iters").MustString("0"))
		if err != nil {
			return nil, fmt.Errorf("auth: user %s: invalid iters: %w", sec.Name(), err)
		}
		cred := scram.StoredCredentials{
			KeyFactors: scram.KeyFactors{Salt: sec.Key("salt").String(), Iters: iters},
			StoredKey:  decodeHex(sec.Key("stored_key").String()),
			ServerKey:  decodeHex(sec.Key("server_key").String()),
		}
		store.users[sec.Name()] = cred
	}
	return store, nil
}

// Lookup implements VerifierStore.
func (s *FileVerifierStore) Lookup(ctx context.Context, username string) (scram.StoredCredentials, error) {
	cred, ok := s.users[username]
	if !ok {
		return scram.StoredCredentials{}, fmt.Errorf("auth: no verifier for user %q", username)
	}
	return cred, nil
}

func decodeHex(s string) []byte {
	b := make([]byte, len(s)/2)
	for i := range b {
		var v int
		fmt.Sscanf(s[i*2:i*2+2], "%02x", &v)
		b[i] = byte(v)
	}
	return b
}
