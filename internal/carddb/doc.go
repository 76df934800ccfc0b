// Package carddb persists per-card, per-side hash results and the registry
// of hash function identities that produced them.
//
// # Storage
//
// The database is a single JSON document:
//
//	{
//	  "cards": {
//	    "<card id>": {
//	      "name": "...", "set_name": "...",
//	      "sides": {"front": {"name": "...", "hashes": [{"id": "...", "hash": "..."}]}}
//	    }
//	  },
//	  "hash_functions": [{"name": "...", "hash_size": 8, "args": [], "kwargs": {}, "id": "..."}]
//	}
//
// A path ending in .zst is read and written zstd-compressed. Saves are
// atomic and byte-for-byte deterministic for the same contents.
//
// # Writers
//
// At most one stored hash exists per (card id, side, identity id), and
// StoreResult never overwrites one, so generation is incremental. Writers
// take Lock, which holds an exclusive file lock next to the database, before
// mutating and saving.
package carddb
