// Package comparison ranks every card side in the database against a
// reference image.
//
// For each hash function identity the reference hash is differenced against
// every stored hash of that identity on a worker pool. Once the whole batch
// is differenced, the raw distances are normalized by the batch maximum and
// the per-identity values are summed per card side. A candidate that lacks a
// stored hash for any identity, or whose hash cannot be compared, is
// reported in Ranking.Incomplete and never ranked. Matches are ordered by
// ascending score, so the first match is the closest.
package comparison
