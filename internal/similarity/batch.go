package similarity

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// NormalizeBatch normalizes every delta against the largest raw distance in
// deltas. The maximum is fixed before any delta is touched; when it is zero
// every delta normalizes to zero.
func NormalizeBatch(deltas []*Delta) error {
	bound := 0.0
	for _, d := range deltas {
		if _, ok := d.Normalized(); ok {
			return fmt.Errorf("%w: %s %s", ErrAlreadyNormalized, d.Identity, d.A)
		}
		bound = max(bound, d.Raw)
	}
	for _, d := range deltas {
		if err := d.NormalizeTo(bound); err != nil {
			return err
		}
	}
	return nil
}

// DifferenceBatch differences every candidate against reference. Deltas are
// returned for the candidates that succeeded; the others are reported as
// *SubjectError values in a multierror.
func DifferenceBatch(reference Result, candidates []Result) ([]*Delta, error) {
	deltas := make([]*Delta, 0, len(candidates))
	var mErr *multierror.Error
	for _, candidate := range candidates {
		d, err := candidate.Difference(reference)
		if err != nil {
			mErr = multierror.Append(mErr, &SubjectError{Subject: candidate.Subject, Err: err})
			continue
		}
		deltas = append(deltas, d)
	}
	return deltas, mErr.ErrorOrNil()
}
