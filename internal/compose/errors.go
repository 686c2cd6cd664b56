package compose

import "fmt"

// ErrValidation marks parameters that are malformed or incomplete. It is
// raised before submission; a request carrying such parameters is never sent.
type ErrValidation struct {
	error
}

func NewErrValidation(format string, args ...any) *ErrValidation {
	return &ErrValidation{fmt.Errorf(format, args...)}
}

// ErrCapability marks a (type, product, algo, mode) combination the composer
// does not support. It is raised synchronously, with zero network calls.
type ErrCapability struct {
	error
}

func NewErrCapability(format string, args ...any) *ErrCapability {
	return &ErrCapability{fmt.Errorf(format, args...)}
}
