package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when no catalog card matches.
var ErrNotFound = errors.New("card not found in catalog")

// Resolver maps (name, set name) to a card id.
type Resolver interface {
	Resolve(name, setName string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(name, setName string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(name, setName string) (string, error) {
	return f(name, setName)
}

// Card is the subset of a catalog entry used for lookups.
type Card struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	SetName string `json:"set_name"`
}

type lookupKey struct {
	name    string
	setName string
}

// Catalog is an in-memory index of catalog cards. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	index map[lookupKey]string
	cards int
}

// New indexes cards. When several cards share a name and set, the first
// wins.
func New(cards []Card) *Catalog {
	c := &Catalog{index: make(map[lookupKey]string, len(cards))}
	for _, card := range cards {
		if strings.TrimSpace(card.ID) == "" {
			continue
		}
		key := makeKey(card.Name, card.SetName)
		if _, exists := c.index[key]; exists {
			continue
		}
		c.index[key] = card.ID
		c.cards++
	}
	return c
}

// Load reads a JSON catalog file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Decode reads a JSON array of catalog cards from r.
func Decode(r io.Reader) (*Catalog, error) {
	var cards []Card
	if err := json.NewDecoder(r).Decode(&cards); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(cards), nil
}

// Len returns the number of indexed cards.
func (c *Catalog) Len() int { return c.cards }

// Resolve returns the id of the card named name in set setName.
func (c *Catalog) Resolve(name, setName string) (string, error) {
	if id, ok := c.index[makeKey(name, setName)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q (%s)", ErrNotFound, name, setName)
}

func makeKey(name, setName string) lookupKey {
	return lookupKey{name: fold(name), setName: fold(setName)}
}

// fold strips accents and case so equivalent spellings compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		stripped = strings.TrimSpace(s)
	}
	return cases.Fold().String(stripped)
}
