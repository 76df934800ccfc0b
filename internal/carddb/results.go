package carddb

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/similarity"
)

// HasResult reports whether a hash for identity is stored for the card side.
func (db *Database) HasResult(cardID, side string, identity *hashfunc.Identity) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	card, ok := db.cards[cardID]
	if !ok {
		return false
	}
	s, ok := card.Sides[side]
	if !ok {
		return false
	}
	_, ok = s.hash(identity.ID())
	return ok
}

// StoreResult records result under the card side, creating the card and
// side from cc on first use. An existing hash for the same identity is never
// overwritten; the return value reports whether result was stored.
func (db *Database) StoreResult(cardID, side string, cc CardContext, result similarity.Result) (bool, error) {
	if result.Identity == nil || result.Value == nil {
		return false, errors.New("store result: identity and value are required")
	}
	if result.Subject.CardID != cardID || result.Subject.Side != side {
		return false, fmt.Errorf("%w: result for %s stored as %s/%s", ErrSubjectMismatch, result.Subject, cardID, side)
	}
	id := result.Identity.ID()

	db.mu.Lock()
	defer db.mu.Unlock()
	if !slices.ContainsFunc(db.functions, func(rec hashfunc.Record) bool { return rec.ID == id }) {
		return false, fmt.Errorf("%w: %s", ErrUnregistered, result.Identity)
	}

	card, ok := db.cards[cardID]
	if !ok {
		card = &Card{Name: cc.Name, SetName: cc.SetName, Sides: make(map[string]*Side)}
		db.cards[cardID] = card
	}
	s, ok := card.Sides[side]
	if !ok {
		s = &Side{Name: cc.SideName, Hashes: []StoredHash{}}
		card.Sides[side] = s
	}
	if _, exists := s.hash(id); exists {
		return false, nil
	}
	s.Hashes = append(s.Hashes, StoredHash{ID: id, Hash: result.Value.String()})
	return true, nil
}

// ResultsFor returns every stored result of identity ordered by card id,
// then side. Stored hashes that fail to parse are skipped and reported as
// *EntryError values in the returned error.
func (db *Database) ResultsFor(identity *hashfunc.Identity) ([]similarity.Result, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	id := identity.ID()
	var (
		results []similarity.Result
		mErr    *multierror.Error
	)
	for _, cardID := range sortedKeys(db.cards) {
		card := db.cards[cardID]
		for _, label := range sortedKeys(card.Sides) {
			stored, ok := card.Sides[label].hash(id)
			if !ok {
				continue
			}
			subject := similarity.Subject{CardID: cardID, Side: label}
			result, err := similarity.ResultFromText(identity, stored.Hash, subject)
			if err != nil {
				mErr = multierror.Append(mErr, &EntryError{CardID: cardID, Side: label, IdentityID: id, Err: err})
				continue
			}
			results = append(results, result)
		}
	}
	return results, mErr.ErrorOrNil()
}

// ResultFor returns the stored result for one card side and identity id.
func (db *Database) ResultFor(cardID, side, identityID string) (similarity.Result, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	card, ok := db.cards[cardID]
	if !ok {
		return similarity.Result{}, fmt.Errorf("%w: card %s", ErrNotFound, cardID)
	}
	s, ok := card.Sides[side]
	if !ok {
		return similarity.Result{}, fmt.Errorf("%w: card %s side %s", ErrNotFound, cardID, side)
	}
	stored, ok := s.hash(identityID)
	if !ok {
		return similarity.Result{}, fmt.Errorf("%w: card %s side %s hash %s", ErrNotFound, cardID, side, identityID)
	}
	identity, err := db.identity(identityID)
	if err != nil {
		return similarity.Result{}, &EntryError{CardID: cardID, Side: side, IdentityID: identityID, Err: err}
	}
	result, err := similarity.ResultFromText(identity, stored.Hash, similarity.Subject{CardID: cardID, Side: side})
	if err != nil {
		return similarity.Result{}, &EntryError{CardID: cardID, Side: side, IdentityID: identityID, Err: err}
	}
	return result, nil
}

// Subjects lists every stored card side ordered by card id, then side.
func (db *Database) Subjects() []similarity.Subject {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var subjects []similarity.Subject
	for _, cardID := range sortedKeys(db.cards) {
		for _, label := range sortedKeys(db.cards[cardID].Sides) {
			subjects = append(subjects, similarity.Subject{CardID: cardID, Side: label})
		}
	}
	return subjects
}

// Card returns a copy of the card record.
func (db *Database) Card(cardID string) (Card, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	card, ok := db.cards[cardID]
	if !ok {
		return Card{}, false
	}
	return card.clone(), true
}

// Stats summarizes the database contents.
type Stats struct {
	Cards     int
	Sides     int
	Hashes    int
	Functions int
	// PerFunction counts stored hashes by identity id.
	PerFunction map[string]int
}

// Stats counts cards, sides and hashes.
func (db *Database) Stats() Stats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	stats := Stats{Cards: len(db.cards), Functions: len(db.functions), PerFunction: make(map[string]int)}
	for _, card := range db.cards {
		stats.Sides += len(card.Sides)
		for _, side := range card.Sides {
			stats.Hashes += len(side.Hashes)
			for _, h := range side.Hashes {
				stats.PerFunction[h.ID]++
			}
		}
	}
	return stats
}
