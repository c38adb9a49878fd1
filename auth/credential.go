package auth

// Credential wraps a secret value so it can be carried through a log
// statement's argument list without ever rendering the value itself.
type Credential string

func (Credential) String() string { return "[redacted]" }
