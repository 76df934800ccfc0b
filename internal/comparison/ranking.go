package comparison

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/similarity"
)

// Match is one ranked candidate.
type Match struct {
	Subject  similarity.Subject
	CardName string
	SetName  string
	SideName string
	// Score is the sum of normalized distances; 0 means identical under
	// every hash function.
	Score float64
	// Components holds the normalized distance per identity id.
	Components map[string]float64
}

// CandidateError explains why a candidate was left out of the ranking.
type CandidateError struct {
	Subject similarity.Subject
	Err     error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("candidate %s: %v", e.Subject, e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

// Ranking is the result of one comparison.
type Ranking struct {
	Reference   string
	FunctionIDs []string
	Candidates  int
	Matches     []Match
	Incomplete  []CandidateError
}

// Err aggregates the incomplete candidates, or returns nil.
func (r *Ranking) Err() error {
	var mErr *multierror.Error
	for i := range r.Incomplete {
		mErr = multierror.Append(mErr, &r.Incomplete[i])
	}
	return mErr.ErrorOrNil()
}

// Top returns at most n best matches. n <= 0 returns all of them.
func (r *Ranking) Top(n int) []Match {
	if n <= 0 || n >= len(r.Matches) {
		return r.Matches
	}
	return r.Matches[:n]
}

// Best returns the closest match.
func (r *Ranking) Best() (Match, bool) {
	if len(r.Matches) == 0 {
		return Match{}, false
	}
	return r.Matches[0], true
}
