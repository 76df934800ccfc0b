// Package similarity differences hash results and folds the normalized
// distances of several hash functions into one score per candidate.
//
// A Result is one hash value for one card side. Two results of the same
// hash function identity difference into a Delta carrying the raw distance.
// Deltas of one identity are normalized against the largest raw distance in
// their batch, then deltas of distinct identities for the same pair are
// summed into a MultiDelta. Lower sums are better matches.
package similarity
