package carddb

import (
	"maps"
	"slices"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
)

// StoredHash is one hash text tagged with the producing identity id.
type StoredHash struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

// Side holds the stored hashes of one card face.
type Side struct {
	Name   string       `json:"name"`
	Hashes []StoredHash `json:"hashes"`
}

// Card is a card record keyed by catalog id.
type Card struct {
	Name    string           `json:"name"`
	SetName string           `json:"set_name"`
	Sides   map[string]*Side `json:"sides"`
}

// CardContext carries the display names recorded when a card or side is
// first stored.
type CardContext struct {
	Name     string
	SetName  string
	SideName string
}

type document struct {
	Cards         map[string]*Card  `json:"cards"`
	HashFunctions []hashfunc.Record `json:"hash_functions"`
}

func (s *Side) hash(identityID string) (StoredHash, bool) {
	for _, h := range s.Hashes {
		if h.ID == identityID {
			return h, true
		}
	}
	return StoredHash{}, false
}

func (c *Card) clone() Card {
	out := Card{Name: c.Name, SetName: c.SetName, Sides: make(map[string]*Side, len(c.Sides))}
	for label, side := range c.Sides {
		out.Sides[label] = &Side{Name: side.Name, Hashes: slices.Clone(side.Hashes)}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
