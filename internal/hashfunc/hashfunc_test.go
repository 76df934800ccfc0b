package hashfunc_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/goccy/go-json"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/config"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/imagehash"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/testsupport"
)

func mustNew(t *testing.T, name string, hashSize int, args []any, kwargs map[string]any) *hashfunc.Identity {
	t.Helper()
	identity, err := hashfunc.New(hashfunc.DefaultRegistry(), name, hashSize, args, kwargs)
	if err != nil {
		t.Fatalf("New(%s): %v", name, err)
	}
	return identity
}

func TestIdentityIsDeterministic(t *testing.T) {
	a := mustNew(t, hashfunc.PerceptualHash, 10, nil, map[string]any{"hash_size": 10, "highfreq_factor": 4})
	b := mustNew(t, hashfunc.PerceptualHash, 10, []any{}, map[string]any{"highfreq_factor": int64(4), "hash_size": 10.0})
	if a.ID() != b.ID() {
		t.Fatalf("ids differ: %s vs %s", a.ID(), b.ID())
	}
	if !a.Equal(b) {
		t.Fatal("expected identities to be equal")
	}
	if len(a.ID()) != 32 {
		t.Fatalf("expected 32 hex characters, got %q", a.ID())
	}

	described := mustNew(t, hashfunc.PerceptualHash, 99, nil, map[string]any{"hash_size": 10, "highfreq_factor": 4})
	if described.ID() != a.ID() {
		t.Fatal("hash size must not contribute to the id")
	}
}

// Stored databases key every hash by these ids, so they must never change.
func TestIdentityIDsAreStable(t *testing.T) {
	tests := []struct {
		name   string
		algo   string
		args   []any
		kwargs map[string]any
		want   string
	}{
		{"phash hash_size 10", hashfunc.PerceptualHash, nil, map[string]any{"hash_size": 10}, "1a1584ac94a3e48fbb07e1109e3b4498"},
		{"phash float kwarg", hashfunc.PerceptualHash, nil, map[string]any{"hash_size": 10.0}, "1a1584ac94a3e48fbb07e1109e3b4498"},
		{"colorhash defaults", hashfunc.ColorHash, nil, nil, "dafdf6a83aba6978061e769dc20f76f2"},
		{"average_hash positional", hashfunc.AverageHash, []any{16}, nil, "e066518edbe51ca1d08834d9939b182a"},
		{"whash kwargs order", hashfunc.WaveletHash, nil, map[string]any{"remove_max_haar_ll": true, "mode": "haar"}, "179c291198d9565d6d1c5aa716bedb39"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := mustNew(t, tt.algo, 0, tt.args, tt.kwargs)
			if identity.ID() != tt.want {
				t.Fatalf("id = %s, want %s", identity.ID(), tt.want)
			}
		})
	}
}

func TestIdentityCollisionTable(t *testing.T) {
	combos := []struct {
		name   string
		args   []any
		kwargs map[string]any
	}{
		{hashfunc.PerceptualHash, nil, nil},
		{hashfunc.PerceptualHash, []any{10}, nil},
		{hashfunc.PerceptualHash, nil, map[string]any{"hash_size": 10}},
		{hashfunc.PerceptualHash, []any{8, 8}, nil},
		{hashfunc.AverageHash, nil, nil},
		{hashfunc.AverageHash, []any{16}, nil},
		{hashfunc.DifferenceHash, nil, nil},
		{hashfunc.DifferenceHashVertical, nil, nil},
		{hashfunc.WaveletHash, nil, nil},
		{hashfunc.WaveletHash, nil, map[string]any{"remove_max_haar_ll": false}},
		{hashfunc.WaveletHash, []any{8, 64}, nil},
		{hashfunc.ColorHash, nil, nil},
		{hashfunc.ColorHash, []any{4}, nil},
	}
	seen := make(map[string]int)
	for i, combo := range combos {
		identity := mustNew(t, combo.name, 0, combo.args, combo.kwargs)
		if prev, ok := seen[identity.ID()]; ok {
			t.Fatalf("combo %d collides with combo %d (%s)", i, prev, identity.ID())
		}
		seen[identity.ID()] = i
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	original := mustNew(t, hashfunc.WaveletHash, 8, []any{8}, map[string]any{"mode": "haar", "remove_max_haar_ll": true})

	data, err := json.Marshal(original.Serialize())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rec hashfunc.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored, err := hashfunc.Deserialize(rec, hashfunc.DefaultRegistry())
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !restored.Equal(original) {
		t.Fatalf("restored id %s, want %s", restored.ID(), original.ID())
	}
	if restored.HashSize() != 8 || restored.Name() != hashfunc.WaveletHash {
		t.Fatalf("unexpected restored identity %s size %d", restored, restored.HashSize())
	}

	rec.ID = "0123456789abcdef0123456789abcdef"
	if _, err := hashfunc.Deserialize(rec, hashfunc.DefaultRegistry()); !errors.Is(err, hashfunc.ErrIdentityMismatch) {
		t.Fatalf("expected ErrIdentityMismatch, got %v", err)
	}

	rec.Name = "imagehash.crop_resistant_hash"
	if _, err := hashfunc.Deserialize(rec, hashfunc.DefaultRegistry()); !errors.Is(err, hashfunc.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestSerializedRecordLayout(t *testing.T) {
	identity := mustNew(t, hashfunc.DifferenceHash, 8, nil, nil)
	data, err := json.Marshal(identity.Serialize())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"name", "hash_size", "args", "kwargs", "id"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing key %q in %s", key, data)
		}
	}
	if args, ok := payload["args"].([]any); !ok || len(args) != 0 {
		t.Fatalf("expected empty args array, got %v", payload["args"])
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		algo   string
		args   []any
		kwargs map[string]any
	}{
		{"too many positionals", hashfunc.AverageHash, []any{8, 9}, nil},
		{"unknown keyword", hashfunc.AverageHash, nil, map[string]any{"size": 8}},
		{"positional and keyword", hashfunc.AverageHash, []any{8}, map[string]any{"hash_size": 8}},
		{"wrong type", hashfunc.AverageHash, []any{"eight"}, nil},
		{"fractional size", hashfunc.AverageHash, []any{8.5}, nil},
		{"hash size too small", hashfunc.DifferenceHash, []any{1}, nil},
		{"wavelet mode", hashfunc.WaveletHash, nil, map[string]any{"mode": "db4"}},
		{"wavelet size", hashfunc.WaveletHash, []any{6}, nil},
		{"wavelet scale", hashfunc.WaveletHash, []any{8, 4}, nil},
		{"binbits", hashfunc.ColorHash, []any{0}, nil},
		{"unsupported value", hashfunc.AverageHash, []any{struct{}{}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hashfunc.New(hashfunc.DefaultRegistry(), tt.algo, 0, tt.args, tt.kwargs)
			if !errors.Is(err, hashfunc.ErrInvalidParams) {
				t.Fatalf("expected ErrInvalidParams, got %v", err)
			}
		})
	}

	if _, err := hashfunc.New(hashfunc.DefaultRegistry(), "imagehash.nope", 8, nil, nil); !errors.Is(err, hashfunc.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestApplyProducesParsableValues(t *testing.T) {
	img := testsupport.PatternImage(96, 128, 3)
	identities, err := hashfunc.Defaults(hashfunc.DefaultRegistry())
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	if len(identities) != 7 {
		t.Fatalf("expected 7 default identities, got %d", len(identities))
	}
	for _, identity := range identities {
		value, err := identity.Apply("pattern.png", img)
		if err != nil {
			t.Fatalf("%s Apply: %v", identity, err)
		}
		parsed, err := identity.Parse(value.String())
		if err != nil {
			t.Fatalf("%s Parse(%q): %v", identity, value.String(), err)
		}
		if d, err := value.Distance(parsed); err != nil || d != 0 {
			t.Fatalf("%s round trip distance %v, %v", identity, d, err)
		}
	}
}

func TestApplyWrapsFailures(t *testing.T) {
	identity := mustNew(t, hashfunc.AverageHash, 8, nil, nil)
	_, err := identity.Apply("empty.png", image.NewGray(image.Rect(0, 0, 0, 0)))
	if !errors.Is(err, hashfunc.ErrHashComputation) || !errors.Is(err, imagehash.ErrEmptyImage) {
		t.Fatalf("expected computation error wrapping ErrEmptyImage, got %v", err)
	}
	var computeErr *hashfunc.ComputeError
	if !errors.As(err, &computeErr) || computeErr.Image != "empty.png" || computeErr.IdentityID != identity.ID() {
		t.Fatalf("expected ComputeError with context, got %#v", err)
	}

	reg := hashfunc.NewRegistry()
	if err := reg.Register(hashfunc.Registration{
		Name:   "test.panics",
		Params: nil,
		New: func(hashfunc.Params) (hashfunc.Algorithm, error) {
			return panicAlgorithm{}, nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	panicky, err := hashfunc.New(reg, "test.panics", 1, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := panicky.Apply("card.png", testsupport.SolidImage(4, 4, color.White)); !errors.Is(err, hashfunc.ErrHashComputation) {
		t.Fatalf("expected recovered panic as computation error, got %v", err)
	}
}

type panicAlgorithm struct{}

func (panicAlgorithm) Hash(image.Image) (imagehash.Value, error) { panic("boom") }

func (panicAlgorithm) Parse(string) (imagehash.Value, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	reg := hashfunc.DefaultRegistry()
	names := reg.Names()
	if len(names) != 6 {
		t.Fatalf("expected 6 built-in algorithms, got %v", names)
	}
	if err := reg.Register(hashfunc.Registration{
		Name: hashfunc.PerceptualHash,
		New:  func(hashfunc.Params) (hashfunc.Algorithm, error) { return nil, nil },
	}); !errors.Is(err, hashfunc.ErrDuplicateAlgorithm) {
		t.Fatalf("expected ErrDuplicateAlgorithm, got %v", err)
	}
	registration, err := reg.Lookup(hashfunc.WaveletHash)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(registration.Params) != 4 || registration.Params[0] != "hash_size" {
		t.Fatalf("unexpected whash params %v", registration.Params)
	}
}

func TestFromSpecs(t *testing.T) {
	reg := hashfunc.DefaultRegistry()
	identities, err := hashfunc.FromSpecs(reg, []config.HashFunction{
		{Name: hashfunc.PerceptualHash, HashSize: 10, Kwargs: map[string]any{"hash_size": int64(10)}},
		{Name: hashfunc.PerceptualHash, HashSize: 10, Kwargs: map[string]any{"hash_size": 10.0}},
		{Name: hashfunc.ColorHash, Args: []any{int64(3)}},
	})
	if err != nil {
		t.Fatalf("FromSpecs: %v", err)
	}
	if len(identities) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 identities, got %d", len(identities))
	}
	if identities[1].HashSize() != 3 {
		t.Fatalf("expected default hash size for colorhash, got %d", identities[1].HashSize())
	}

	defaults, err := hashfunc.FromSpecs(reg, nil)
	if err != nil {
		t.Fatalf("FromSpecs(nil): %v", err)
	}
	if len(defaults) != 7 {
		t.Fatalf("expected defaults, got %d", len(defaults))
	}

	if _, err := hashfunc.FromSpecs(reg, []config.HashFunction{{Name: "imagehash.nope"}}); !errors.Is(err, hashfunc.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}
