package completion

import "fmt"

// AuthError means the credential was refused. Recovery is re-login, never a
// plain retry; raising it always clears the cached credential first.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "authentication rejected"
	}
	return fmt.Sprintf("authentication rejected: %s", e.Reason)
}

// TransportError is any network or backend failure with no credential
// implication. Recoverable by retrying the same request.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport failure: %v", e.Err)
	}
	return fmt.Sprintf("transport failure: backend returned %d", e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }
