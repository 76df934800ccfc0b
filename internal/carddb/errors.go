package carddb

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by point lookups for a missing card, side or
	// stored hash.
	ErrNotFound = errors.New("not found in card database")
	// ErrLocked is returned when another writer holds the database lock.
	ErrLocked = errors.New("card database is locked by another writer")
	// ErrCorrupt is returned when the database file cannot be decoded.
	ErrCorrupt = errors.New("card database is corrupt")
	// ErrUnregistered is returned when storing a result whose identity is
	// not in the registry.
	ErrUnregistered = errors.New("hash function not registered")
	// ErrSubjectMismatch is returned when a result's subject does not match
	// the card and side it is stored under.
	ErrSubjectMismatch = errors.New("result subject mismatch")
)

// EntryError reports a stored hash that could not be loaded.
type EntryError struct {
	CardID     string
	Side       string
	IdentityID string
	Err        error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("card %s side %s hash %s: %v", e.CardID, e.Side, e.IdentityID, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }
