package similarity

import (
	"fmt"
	"maps"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
)

// Delta is the raw distance between two results of one identity. The
// normalized value is set once by NormalizeTo.
type Delta struct {
	Identity   *hashfunc.Identity
	Raw        float64
	A, B       Subject
	normalized *float64
}

// Normalized returns the normalized distance and whether it has been set.
func (d *Delta) Normalized() (float64, bool) {
	if d.normalized == nil {
		return 0, false
	}
	return *d.normalized, true
}

// NormalizeTo scales Raw into [0, 1] by bound. A zero bound with a zero raw
// distance normalizes to zero.
func (d *Delta) NormalizeTo(bound float64) error {
	if d.normalized != nil {
		return fmt.Errorf("%w: %s %s", ErrAlreadyNormalized, d.Identity, d.A)
	}
	if d.Raw > bound {
		return fmt.Errorf("%w: raw %g > bound %g", ErrBoundTooSmall, d.Raw, bound)
	}
	value := 0.0
	if bound > 0 {
		value = d.Raw / bound
	}
	d.normalized = &value
	return nil
}

// Combine folds d and other into a new MultiDelta. Both must be normalized,
// refer to the same pair and come from distinct identities.
func (d *Delta) Combine(other *Delta) (*MultiDelta, error) {
	if d.Identity.Equal(other.Identity) {
		return nil, fmt.Errorf("%w: %s", ErrSameIdentity, d.Identity)
	}
	m, err := NewMultiDelta(d)
	if err != nil {
		return nil, err
	}
	if err := m.Add(other); err != nil {
		return nil, err
	}
	return m, nil
}

// MultiDelta is the sum of normalized deltas of distinct identities for one
// subject pair.
type MultiDelta struct {
	A, B       Subject
	sum        float64
	components map[string]float64
}

// NewMultiDelta seeds a sum from one normalized delta.
func NewMultiDelta(d *Delta) (*MultiDelta, error) {
	value, ok := d.Normalized()
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotNormalized, d.Identity, d.A)
	}
	return &MultiDelta{
		A:          d.A,
		B:          d.B,
		sum:        value,
		components: map[string]float64{d.Identity.ID(): value},
	}, nil
}

// Add folds d into m.
func (m *MultiDelta) Add(d *Delta) error {
	if _, dup := m.components[d.Identity.ID()]; dup {
		return fmt.Errorf("%w: %s", ErrSameIdentity, d.Identity)
	}
	value, ok := d.Normalized()
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNotNormalized, d.Identity, d.A)
	}
	if d.A != m.A || d.B != m.B {
		return fmt.Errorf("%w: (%s, %s) vs (%s, %s)", ErrPairMismatch, m.A, m.B, d.A, d.B)
	}
	m.components[d.Identity.ID()] = value
	m.sum += value
	return nil
}

// Merge returns the sum of m and other. Their identity sets must be
// disjoint.
func (m *MultiDelta) Merge(other *MultiDelta) (*MultiDelta, error) {
	if m.A != other.A || m.B != other.B {
		return nil, fmt.Errorf("%w: (%s, %s) vs (%s, %s)", ErrPairMismatch, m.A, m.B, other.A, other.B)
	}
	for id := range other.components {
		if _, dup := m.components[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrSameIdentity, id)
		}
	}
	merged := &MultiDelta{
		A:          m.A,
		B:          m.B,
		sum:        m.sum + other.sum,
		components: maps.Clone(m.components),
	}
	maps.Copy(merged.components, other.components)
	return merged, nil
}

// Sum returns the accumulated normalized distance.
func (m *MultiDelta) Sum() float64 { return m.sum }

// Len returns the number of folded identities.
func (m *MultiDelta) Len() int { return len(m.components) }

// Contains reports whether identityID has been folded into m.
func (m *MultiDelta) Contains(identityID string) bool {
	_, ok := m.components[identityID]
	return ok
}

// Components returns the normalized distance per identity id.
func (m *MultiDelta) Components() map[string]float64 {
	return maps.Clone(m.components)
}
