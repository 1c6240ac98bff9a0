package bmotd

import "fmt"

// ResolveError is returned when the host name cannot be resolved to any
// address. It wraps the resolver diagnostic.
type ResolveError struct {
	Err  error
	Host string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Host, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// AttemptsError is returned when every resolved candidate address was tried
// and none produced a valid reply within its timeout. Per-candidate socket
// and receive failures are never surfaced individually, they all fold into
// this one terminal error.
type AttemptsError struct {
	Host string
	Port uint16
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("all connection attempts failed for %s:%d", e.Host, e.Port)
}
