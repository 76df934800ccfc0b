// Package generation builds the card hash database from a reference image
// library.
//
// Pipeline.Run registers every configured hash function identity, walks the
// library, resolves each image to its catalog card, and computes only the
// hashes the database does not already hold. Images are decoded and hashed
// on a bounded worker pool; a single writer goroutine stores results, so the
// database has one mutator. Per-image failures are logged and collected in
// the run Summary without stopping the run, which makes a second run over an
// unchanged library a no-op.
package generation
