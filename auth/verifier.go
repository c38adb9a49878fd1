package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/xdg-go/pbkdf2"
	"github.com/xdg-go/scram"
	"github.com/xdg-go/stringprep"
)

// MinIterations is the floor spec.md §4.7 sets for SCRAM-SHA-256:
// "iteration_count ≥ 4096".
const MinIterations = 4096

// GenerateVerifier derives the SaltedPassword/ClientKey/StoredKey/ServerKey
// values RFC 5802 §3 describes, for storing alongside a username so a
// later SCRAM conversation can authenticate against it without ever
// persisting the plaintext password. iters below MinIterations is raised
// to it.
func GenerateVerifier(password string, iters int) (scram.StoredCredentials, error) {
	if iters < MinIterations {
		iters = MinIterations
	}
	normalized, err := stringprep.SASLprep.Prepare(password)
	if err != nil {
		return scram.StoredCredentials{}, fmt.Errorf("auth: SASLprep password: %w", err)
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return scram.StoredCredentials{}, err
	}

	saltedPassword := pbkdf2.Key([]byte(normalized), salt, iters, sha256.Size, sha256.New)
	clientKey := hmacSum(saltedPassword, "Client Key")
	storedKey := sha256.Sum256(clientKey)
	serverKey := hmacSum(saltedPassword, "Server Key")

	return scram.StoredCredentials{
		KeyFactors: scram.KeyFactors{
			Salt:  string(salt),
			Iters: iters,
		},
		StoredKey: storedKey[:],
		ServerKey: serverKey,
	}, nil
}

func hmacSum(key []byte, message string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}
