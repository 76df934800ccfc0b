package similarity

import (
	"fmt"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/imagehash"
)

// Side labels.
const (
	SideFront     = "front"
	SideBack      = "back"
	SideReference = "reference"
)

// Subject identifies one side of one card.
type Subject struct {
	CardID string `json:"card_id"`
	Side   string `json:"side"`
}

func (s Subject) String() string {
	return s.CardID + "/" + s.Side
}

// Compare orders subjects by card id, then side.
func (s Subject) Compare(other Subject) int {
	switch {
	case s.CardID < other.CardID:
		return -1
	case s.CardID > other.CardID:
		return 1
	case s.Side < other.Side:
		return -1
	case s.Side > other.Side:
		return 1
	}
	return 0
}

// Result is one hash value computed by Identity for Subject.
type Result struct {
	Identity *hashfunc.Identity
	Value    imagehash.Value
	Subject  Subject
}

// NewResult tags value with the identity that produced it and its subject.
func NewResult(identity *hashfunc.Identity, value imagehash.Value, subject Subject) Result {
	return Result{Identity: identity, Value: value, Subject: subject}
}

// ResultFromText parses stored hash text into identity's value shape.
func ResultFromText(identity *hashfunc.Identity, text string, subject Subject) (Result, error) {
	value, err := identity.Parse(text)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s hash for %s: %w", identity, subject, err)
	}
	return NewResult(identity, value, subject), nil
}

// Difference returns the raw distance between r and other. Both results
// must share an identity; values of different shape fail with
// imagehash.ErrShapeMismatch.
func (r Result) Difference(other Result) (*Delta, error) {
	if !r.Identity.Equal(other.Identity) {
		return nil, fmt.Errorf("%w: %s vs %s", ErrIdentityMismatch, r.Identity, other.Identity)
	}
	if r.Value == nil || other.Value == nil {
		return nil, fmt.Errorf("difference %s vs %s: %w: missing value", r.Subject, other.Subject, imagehash.ErrShapeMismatch)
	}
	raw, err := r.Value.Distance(other.Value)
	if err != nil {
		return nil, fmt.Errorf("difference %s vs %s under %s: %w", r.Subject, other.Subject, r.Identity, err)
	}
	return &Delta{Identity: r.Identity, Raw: raw, A: r.Subject, B: other.Subject}, nil
}
