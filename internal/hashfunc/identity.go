package hashfunc

import (
	"fmt"
	"image"
	"maps"
	"slices"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/imagehash"
)

// Identity is an algorithm bound to its parameters. It is immutable; two
// identities are equal when their IDs are equal.
type Identity struct {
	name      string
	hashSize  int
	args      []any
	kwargs    map[string]any
	id        string
	algorithm Algorithm
}

// Record is the serialized form stored in the database registry.
type Record struct {
	Name     string         `json:"name"`
	HashSize int            `json:"hash_size"`
	Args     []any          `json:"args"`
	Kwargs   map[string]any `json:"kwargs"`
	ID       string         `json:"id"`
}

// New resolves name in reg and binds the parameters. hashSize is
// descriptive only and does not contribute to the ID; zero records the
// algorithm's default.
func New(reg *Registry, name string, hashSize int, args []any, kwargs map[string]any) (*Identity, error) {
	registration, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}

	normArgs := make([]any, 0, len(args))
	for _, a := range args {
		n, err := normalizeValue(a)
		if err != nil {
			return nil, fmt.Errorf("%s args: %w", name, err)
		}
		normArgs = append(normArgs, n)
	}
	normKwargs := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		n, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s kwargs[%s]: %w", name, k, err)
		}
		normKwargs[k] = n
	}

	params, err := newParams(registration.Params, normArgs, normKwargs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	algorithm, err := registration.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	id, err := fingerprint(name, normArgs, normKwargs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if hashSize <= 0 {
		hashSize = registration.DefaultHashSize
	}
	return &Identity{
		name:      name,
		hashSize:  hashSize,
		args:      normArgs,
		kwargs:    normKwargs,
		id:        id,
		algorithm: algorithm,
	}, nil
}

// ID returns the stable fingerprint.
func (i *Identity) ID() string { return i.id }

// Name returns the qualified algorithm name.
func (i *Identity) Name() string { return i.name }

// HashSize returns the descriptive hash size.
func (i *Identity) HashSize() int { return i.hashSize }

// Args returns a copy of the positional parameters.
func (i *Identity) Args() []any { return slices.Clone(i.args) }

// Kwargs returns a copy of the keyword parameters.
func (i *Identity) Kwargs() map[string]any { return maps.Clone(i.kwargs) }

// Equal reports whether both identities have the same ID.
func (i *Identity) Equal(other *Identity) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.id == other.id
}

func (i *Identity) String() string {
	return fmt.Sprintf("%s[%s]", i.name, shortID(i.id))
}

// Apply hashes img. ref names the image in errors. Failures, including
// panics inside the algorithm, are returned as *ComputeError.
func (i *Identity) Apply(ref string, img image.Image) (value imagehash.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &ComputeError{IdentityID: i.id, Name: i.name, Image: ref, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	value, err = i.algorithm.Hash(img)
	if err != nil {
		return nil, &ComputeError{IdentityID: i.id, Name: i.name, Image: ref, Err: err}
	}
	return value, nil
}

// Parse decodes stored hash text into this identity's value shape.
func (i *Identity) Parse(text string) (imagehash.Value, error) {
	return i.algorithm.Parse(text)
}

// Serialize returns the registry record for i.
func (i *Identity) Serialize() Record {
	return Record{
		Name:     i.name,
		HashSize: i.hashSize,
		Args:     slices.Clone(i.args),
		Kwargs:   maps.Clone(i.kwargs),
		ID:       i.id,
	}
}

// Deserialize reconstructs an identity from rec, resolving the algorithm
// through reg. A stored ID that differs from the recomputed one fails with
// ErrIdentityMismatch.
func Deserialize(rec Record, reg *Registry) (*Identity, error) {
	identity, err := New(reg, rec.Name, rec.HashSize, rec.Args, rec.Kwargs)
	if err != nil {
		return nil, err
	}
	if rec.ID != "" && rec.ID != identity.id {
		return nil, fmt.Errorf("%w: %s stored %s, computed %s", ErrIdentityMismatch, rec.Name, rec.ID, identity.id)
	}
	return identity, nil
}
