package secure

import "fmt"

// ConfigurationError indicates an algorithm, mode, padding or digest token
// that cannot be resolved to a concrete primitive. It is fatal at setup time:
// a codec must not be constructed from a configuration that produced one.
type ConfigurationError struct {
	Token  string
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("unresolvable configuration token %q: %s", e.Token, e.Reason)
}

// CipherError wraps a failure of a cryptographic primitive during a single
// operation, such as an invalid key size or malformed padding after
// decryption. It is fatal for that operation only.
type CipherError struct {
	Op  string
	Err error
}

func (e CipherError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cipher failure during %s", e.Op)
	}
	return fmt.Sprintf("cipher failure during %s: %v", e.Op, e.Err)
}

func (e CipherError) Unwrap() error { return e.Err }
