package similarity

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityMismatch is returned when results of different hash
	// function identities are differenced.
	ErrIdentityMismatch = errors.New("hash function identity mismatch")
	// ErrSameIdentity is returned when a delta would be folded into a sum
	// that already holds a delta of the same identity.
	ErrSameIdentity = errors.New("identity already folded")
	// ErrNotNormalized is returned when combining a delta before it was
	// normalized.
	ErrNotNormalized = errors.New("delta not normalized")
	// ErrAlreadyNormalized is returned when normalizing a delta twice.
	ErrAlreadyNormalized = errors.New("delta already normalized")
	// ErrBoundTooSmall is returned when the normalization bound is below the
	// raw distance.
	ErrBoundTooSmall = errors.New("normalization bound below raw distance")
	// ErrPairMismatch is returned when combining deltas of different
	// subject pairs.
	ErrPairMismatch = errors.New("subject pair mismatch")
)

// SubjectError attaches the failing candidate to an error.
type SubjectError struct {
	Subject Subject
	Err     error
}

func (e *SubjectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Subject, e.Err)
}

func (e *SubjectError) Unwrap() error { return e.Err }
