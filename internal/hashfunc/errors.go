package hashfunc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAlgorithm is returned when a name is not registered.
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
	// ErrDuplicateAlgorithm is returned when a name is registered twice.
	ErrDuplicateAlgorithm = errors.New("hash algorithm already registered")
	// ErrInvalidParams is returned for parameters an algorithm does not accept.
	ErrInvalidParams = errors.New("invalid hash function parameters")
	// ErrIdentityMismatch is returned when a stored record's id does not match
	// the id recomputed from its name and parameters.
	ErrIdentityMismatch = errors.New("hash function id mismatch")
	// ErrHashComputation marks failures raised while hashing an image.
	ErrHashComputation = errors.New("hash computation failed")
)

// ComputeError reports a failed hash computation for one image.
type ComputeError struct {
	IdentityID string
	Name       string
	Image      string
	Err        error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("%s (%s) on %s: %v", e.Name, shortID(e.IdentityID), e.Image, e.Err)
}

func (e *ComputeError) Unwrap() []error {
	return []error{ErrHashComputation, e.Err}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
