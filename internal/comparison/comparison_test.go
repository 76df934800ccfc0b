package comparison_test

import (
	"context"
	"errors"
	"image"
	"math"
	"path/filepath"
	"testing"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/carddb"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/catalog"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/comparison"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/generation"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/imagehash"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/library"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/similarity"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/testsupport"
)

func mustIdentity(t *testing.T, name string) *hashfunc.Identity {
	t.Helper()
	identity, err := hashfunc.New(hashfunc.DefaultRegistry(), name, 8, nil, nil)
	if err != nil {
		t.Fatalf("hashfunc.New: %v", err)
	}
	return identity
}

// firstBits returns a 64-bit hash with the first n bits set.
func firstBits(n int) imagehash.BitHash {
	bits := make([]bool, 64)
	for i := range n {
		bits[i] = true
	}
	return imagehash.NewBitHash(bits)
}

func storeBits(t *testing.T, db *carddb.Database, cardID string, identity *hashfunc.Identity, n int) {
	t.Helper()
	subject := similarity.Subject{CardID: cardID, Side: similarity.SideFront}
	if _, err := db.StoreResult(cardID, similarity.SideFront, carddb.CardContext{Name: "Card " + cardID, SetName: "Test"},
		similarity.NewResult(identity, firstBits(n), subject)); err != nil {
		t.Fatalf("StoreResult: %v", err)
	}
}

func openDB(t *testing.T) *carddb.Database {
	t.Helper()
	db, err := carddb.Open(filepath.Join(t.TempDir(), "db.json"), hashfunc.DefaultRegistry())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return db
}

func references(subject string, identities ...*hashfunc.Identity) []similarity.Result {
	var out []similarity.Result
	for _, identity := range identities {
		out = append(out, similarity.NewResult(identity, firstBits(0), similarity.Subject{CardID: subject, Side: similarity.SideReference}))
	}
	return out
}

func TestRankResultsOrdersByNormalizedSum(t *testing.T) {
	ahash := mustIdentity(t, hashfunc.AverageHash)
	dhash := mustIdentity(t, hashfunc.DifferenceHash)
	db := openDB(t)
	db.RegisterFunction(ahash)
	db.RegisterFunction(dhash)
	for _, c := range []struct {
		id     string
		ah, dh int
	}{
		{"c", 4, 3},
		{"a", 0, 0},
		{"b", 2, 1},
	} {
		storeBits(t, db, c.id, ahash, c.ah)
		storeBits(t, db, c.id, dhash, c.dh)
	}

	p := &comparison.Pipeline{DB: db, Workers: 2}
	ranking, err := p.RankResults(context.Background(), references("ref.png", ahash, dhash))
	if err != nil {
		t.Fatalf("RankResults: %v", err)
	}
	if ranking.Err() != nil {
		t.Fatalf("unexpected incomplete candidates: %v", ranking.Err())
	}
	want := []struct {
		id    string
		score float64
	}{
		{"a", 0},
		{"b", 2.0/4 + 1.0/3},
		{"c", 2},
	}
	if len(ranking.Matches) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(ranking.Matches))
	}
	for i, w := range want {
		m := ranking.Matches[i]
		if m.Subject.CardID != w.id || math.Abs(m.Score-w.score) > 1e-9 {
			t.Fatalf("match %d = %s %.4f, want %s %.4f", i, m.Subject.CardID, m.Score, w.id, w.score)
		}
	}
	if got := ranking.Matches[1].Components[ahash.ID()]; got != 0.5 {
		t.Fatalf("ahash component = %v, want 0.5", got)
	}
	if ranking.Matches[0].CardName != "Card a" || ranking.Matches[0].SetName != "Test" {
		t.Fatalf("match lacks card context: %+v", ranking.Matches[0])
	}
	if top := ranking.Top(2); len(top) != 2 || top[1].Subject.CardID != "b" {
		t.Fatalf("Top(2) = %+v", top)
	}
	if len(ranking.FunctionIDs) != 2 || ranking.Candidates != 3 {
		t.Fatalf("unexpected ranking metadata %+v", ranking)
	}
}

func TestRankResultsReportsIncompleteCandidates(t *testing.T) {
	ahash := mustIdentity(t, hashfunc.AverageHash)
	dhash := mustIdentity(t, hashfunc.DifferenceHash)
	db := openDB(t)
	db.RegisterFunction(ahash)
	db.RegisterFunction(dhash)
	storeBits(t, db, "full", ahash, 1)
	storeBits(t, db, "full", dhash, 1)
	storeBits(t, db, "partial", ahash, 0)

	ranking, err := (&comparison.Pipeline{DB: db}).RankResults(context.Background(), references("ref.png", ahash, dhash))
	if err != nil {
		t.Fatalf("RankResults: %v", err)
	}
	if len(ranking.Matches) != 1 || ranking.Matches[0].Subject.CardID != "full" {
		t.Fatalf("expected only the complete candidate ranked, got %+v", ranking.Matches)
	}
	if len(ranking.Incomplete) != 1 || ranking.Incomplete[0].Subject.CardID != "partial" {
		t.Fatalf("expected partial candidate reported, got %+v", ranking.Incomplete)
	}
	if !errors.Is(ranking.Err(), carddb.ErrNotFound) {
		t.Fatalf("expected ErrNotFound in ranking error, got %v", ranking.Err())
	}
}

func TestRankResultsReportsShapeMismatch(t *testing.T) {
	ahash := mustIdentity(t, hashfunc.AverageHash)
	db := openDB(t)
	db.RegisterFunction(ahash)
	storeBits(t, db, "ok", ahash, 2)

	short := []similarity.Result{similarity.NewResult(ahash, imagehash.NewBitHash(make([]bool, 16)),
		similarity.Subject{CardID: "ref.png", Side: similarity.SideReference})}
	ranking, err := (&comparison.Pipeline{DB: db}).RankResults(context.Background(), short)
	if err != nil {
		t.Fatalf("RankResults: %v", err)
	}
	if len(ranking.Matches) != 0 || !errors.Is(ranking.Err(), imagehash.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch to exclude the candidate, got %+v / %v", ranking.Matches, ranking.Err())
	}
}

func TestRankResultsRejectsDuplicateIdentity(t *testing.T) {
	ahash := mustIdentity(t, hashfunc.AverageHash)
	db := openDB(t)
	db.RegisterFunction(ahash)
	_, err := (&comparison.Pipeline{DB: db}).RankResults(context.Background(), references("ref.png", ahash, ahash))
	if !errors.Is(err, similarity.ErrSameIdentity) {
		t.Fatalf("expected ErrSameIdentity, got %v", err)
	}
}

func TestRankAllZeroDistances(t *testing.T) {
	ahash := mustIdentity(t, hashfunc.AverageHash)
	db := openDB(t)
	db.RegisterFunction(ahash)
	storeBits(t, db, "x", ahash, 0)
	storeBits(t, db, "y", ahash, 0)
	ranking, err := (&comparison.Pipeline{DB: db}).RankResults(context.Background(), references("ref.png", ahash))
	if err != nil {
		t.Fatalf("RankResults: %v", err)
	}
	if len(ranking.Matches) != 2 || ranking.Matches[0].Score != 0 || ranking.Matches[1].Score != 0 {
		t.Fatalf("expected two zero scores, got %+v", ranking.Matches)
	}
	if ranking.Matches[0].Subject.CardID != "x" {
		t.Fatal("ties must be broken by card id")
	}
}

func TestRankFindsGeneratedCard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	images := map[string]image.Image{
		"Set/Alpha.png":   testsupport.PatternImage(96, 128, 11),
		"Set/Bravo.png":   testsupport.PatternImage(96, 128, 12),
		"Set/Charlie.png": testsupport.GradientImage(96, 128, false),
	}
	testsupport.WriteLibrary(t, cfg.Paths.LibraryDir, images)

	identities, err := hashfunc.Defaults(hashfunc.DefaultRegistry())
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	db, err := carddb.Open(cfg.Paths.DatabasePath, hashfunc.DefaultRegistry())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	gen := &generation.Pipeline{
		DB:        db,
		Functions: identities,
		Resolver: catalog.New([]catalog.Card{
			{ID: "alpha", Name: "Alpha", SetName: "Set"},
			{ID: "bravo", Name: "Bravo", SetName: "Set"},
			{ID: "charlie", Name: "Charlie", SetName: "Set"},
		}),
		Library: library.Walker{Root: cfg.Paths.LibraryDir},
		Workers: 2,
	}
	if _, err := gen.Run(context.Background()); err != nil {
		t.Fatalf("generation: %v", err)
	}

	p := &comparison.Pipeline{DB: db, Workers: 2}
	ranking, err := p.Rank(context.Background(), "bravo-photo.png", images["Set/Bravo.png"])
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	best, ok := ranking.Best()
	if !ok || best.Subject.CardID != "bravo" || best.Score != 0 {
		t.Fatalf("expected bravo with score 0 first, got %+v", ranking.Matches)
	}
	if len(ranking.FunctionIDs) != len(identities) {
		t.Fatalf("expected every registered identity used, got %d", len(ranking.FunctionIDs))
	}
}

func TestRankCancelled(t *testing.T) {
	ahash := mustIdentity(t, hashfunc.AverageHash)
	db := openDB(t)
	db.RegisterFunction(ahash)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&comparison.Pipeline{DB: db}).Rank(ctx, "ref.png", testsupport.PatternImage(8, 8, 1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
