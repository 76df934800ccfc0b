package carddb

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
)

// RegisterFunction adds identity to the registry unless its id is already
// present. It reports whether the registry changed.
func (db *Database) RegisterFunction(identity *hashfunc.Identity) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, rec := range db.functions {
		if rec.ID == identity.ID() {
			if _, ok := db.identities[rec.ID]; !ok {
				db.identities[rec.ID] = identity
			}
			return false
		}
	}
	db.functions = append(db.functions, identity.Serialize())
	db.identities[identity.ID()] = identity
	return true
}

// Records returns the registry in stored order.
func (db *Database) Records() []hashfunc.Record {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]hashfunc.Record, len(db.functions))
	copy(out, db.functions)
	return out
}

// Functions reconstructs the registry. Identities that resolve are returned
// in stored order; the rest are reported together in the error.
func (db *Database) Functions() ([]*hashfunc.Identity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	identities := make([]*hashfunc.Identity, 0, len(db.functions))
	var mErr *multierror.Error
	for i, rec := range db.functions {
		if identity, ok := db.identities[rec.ID]; ok {
			identities = append(identities, identity)
			continue
		}
		identity, err := hashfunc.Deserialize(rec, db.registry)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("hash_functions[%d] %s: %w", i, rec.Name, err))
			continue
		}
		db.identities[identity.ID()] = identity
		identities = append(identities, identity)
	}
	return identities, mErr.ErrorOrNil()
}

// identity resolves a registered identity id. The caller holds mu.
func (db *Database) identity(id string) (*hashfunc.Identity, error) {
	if identity, ok := db.identities[id]; ok {
		return identity, nil
	}
	for _, rec := range db.functions {
		if rec.ID != id {
			continue
		}
		return hashfunc.Deserialize(rec, db.registry)
	}
	return nil, fmt.Errorf("%w: hash function %s", ErrNotFound, id)
}

// PruneReport counts what Prune removed.
type PruneReport struct {
	Functions int
	Hashes    int
}

// Prune removes registry records and stored hashes whose identity id is not
// in keep.
func (db *Database) Prune(keep []string) PruneReport {
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	var report PruneReport
	kept := db.functions[:0]
	for _, rec := range db.functions {
		if _, ok := keepSet[rec.ID]; ok {
			kept = append(kept, rec)
			continue
		}
		delete(db.identities, rec.ID)
		report.Functions++
	}
	db.functions = kept

	for _, card := range db.cards {
		for _, side := range card.Sides {
			hashes := side.Hashes[:0]
			for _, h := range side.Hashes {
				if _, ok := keepSet[h.ID]; ok {
					hashes = append(hashes, h)
					continue
				}
				report.Hashes++
			}
			side.Hashes = hashes
		}
	}
	return report
}
