// Package history records comparison runs in a SQLite database so earlier
// identifications can be listed and inspected.
//
// Each run stores the reference name, the hash function ids it used and its
// best matches. Runs are keyed by a random UUID and may be looked up by any
// unique prefix of it. The schema is embedded and versioned; a database
// written by a different schema version is rejected with ErrSchemaMismatch.
package history
