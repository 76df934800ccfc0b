package hashfunc

import (
	"fmt"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/config"
)

// Defaults returns the built-in identity set: phash, average_hash, whash,
// dhash and dhash_vertical with hash size 8, colorhash, and phash with
// hash_size=10.
func Defaults(reg *Registry) ([]*Identity, error) {
	specs := []config.HashFunction{
		{Name: PerceptualHash, HashSize: 8},
		{Name: AverageHash, HashSize: 8},
		{Name: WaveletHash, HashSize: 8},
		{Name: DifferenceHash, HashSize: 8},
		{Name: DifferenceHashVertical, HashSize: 8},
		{Name: ColorHash, HashSize: 3},
		{Name: PerceptualHash, HashSize: 10, Kwargs: map[string]any{"hash_size": 10}},
	}
	return build(reg, specs)
}

// FromSpecs builds identities from configuration entries. An empty list
// yields Defaults. Duplicate parameterizations are collapsed.
func FromSpecs(reg *Registry, specs []config.HashFunction) ([]*Identity, error) {
	if len(specs) == 0 {
		return Defaults(reg)
	}
	return build(reg, specs)
}

func build(reg *Registry, specs []config.HashFunction) ([]*Identity, error) {
	identities := make([]*Identity, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		identity, err := New(reg, spec.Name, spec.HashSize, spec.Args, spec.Kwargs)
		if err != nil {
			return nil, fmt.Errorf("hash_functions[%d]: %w", i, err)
		}
		if _, dup := seen[identity.ID()]; dup {
			continue
		}
		seen[identity.ID()] = struct{}{}
		identities = append(identities, identity)
	}
	return identities, nil
}
