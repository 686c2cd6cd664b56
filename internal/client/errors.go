package client

import "fmt"

// ErrTransport wraps a network-level failure: the request may or may not have
// reached the server. Callers decide what to do; the client never retries.
type ErrTransport struct {
	error
}

func NewErrTransport(err error) *ErrTransport {
	return &ErrTransport{fmt.Errorf("transport: %w", err)}
}

// ErrAPI is a non-2xx reply from the server.
type ErrAPI struct {
	StatusCode int
	Message    string
}

func (e *ErrAPI) Error() string {
	return fmt.Sprintf("server replied %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 API reply.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*ErrAPI)
	return ok && apiErr.StatusCode == 404
}
