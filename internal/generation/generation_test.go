package generation_test

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/carddb"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/catalog"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/generation"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/hashfunc"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/imageio"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/library"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/similarity"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/testsupport"
)

type fixture struct {
	root      string
	dbPath    string
	resolver  catalog.Resolver
	functions []*hashfunc.Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	root := cfg.Paths.LibraryDir
	testsupport.WriteLibrary(t, root, map[string]image.Image{
		"Alpha/Card+One.png":                 testsupport.PatternImage(64, 88, 1),
		"Alpha/Card+Two/Day+Side.png":        testsupport.PatternImage(64, 88, 2),
		"Alpha/Card+Two/Night+Side.back.png": testsupport.PatternImage(64, 88, 3),
		"Alpha/Unknown.png":                  testsupport.PatternImage(64, 88, 4),
	})
	testsupport.WriteFile(t, filepath.Join(root, "Alpha", "Broken.png"), "not a png")

	resolver := catalog.New([]catalog.Card{
		{ID: "id-one", Name: "Card One", SetName: "Alpha"},
		{ID: "id-two", Name: "Card Two", SetName: "Alpha"},
		{ID: "id-broken", Name: "Broken", SetName: "Alpha"},
	})

	var functions []*hashfunc.Identity
	for _, name := range []string{hashfunc.AverageHash, hashfunc.DifferenceHash} {
		identity, err := hashfunc.New(hashfunc.DefaultRegistry(), name, 8, nil, nil)
		if err != nil {
			t.Fatalf("hashfunc.New: %v", err)
		}
		functions = append(functions, identity)
	}
	return fixture{root: root, dbPath: cfg.Paths.DatabasePath, resolver: resolver, functions: functions}
}

func (f fixture) pipeline(t *testing.T) (*generation.Pipeline, *carddb.Database) {
	t.Helper()
	db, err := carddb.Open(f.dbPath, hashfunc.DefaultRegistry())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return &generation.Pipeline{
		DB:        db,
		Functions: f.functions,
		Resolver:  f.resolver,
		Library:   library.Walker{Root: f.root},
		Workers:   3,
	}, db
}

func TestRunComputesMissingHashes(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pipeline(t)

	var (
		mu        sync.Mutex
		snapshots []generation.Progress
	)
	p.Progress = func(pr generation.Progress) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, pr)
	}

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Images != 5 || summary.Computed != 6 || summary.Unresolved != 1 || summary.Failed != 1 || summary.Skipped != 0 || summary.Registered != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !errors.Is(summary.Errors, imageio.ErrDecode) {
		t.Fatalf("expected decode failure in summary, got %v", summary.Errors)
	}

	if len(snapshots) != 5 {
		t.Fatalf("expected 5 progress updates, got %d", len(snapshots))
	}
	for i, s := range snapshots {
		if s.Processed != i+1 || s.Total != 5 {
			t.Fatalf("progress %d = %+v", i, s)
		}
	}
	if last := snapshots[len(snapshots)-1]; last.Fraction() != 1 || last.Remaining != 0 {
		t.Fatalf("final progress %+v", last)
	}

	reopened, err := carddb.Open(f.dbPath, hashfunc.DefaultRegistry())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	for _, subject := range []similarity.Subject{
		{CardID: "id-one", Side: similarity.SideFront},
		{CardID: "id-two", Side: similarity.SideFront},
		{CardID: "id-two", Side: similarity.SideBack},
	} {
		for _, identity := range f.functions {
			if !reopened.HasResult(subject.CardID, subject.Side, identity) {
				t.Fatalf("missing %s for %s", identity, subject)
			}
		}
	}
	card, ok := reopened.Card("id-two")
	if !ok || card.Name != "Card Two" || card.SetName != "Alpha" || card.Sides[similarity.SideBack].Name != "Night Side" {
		t.Fatalf("unexpected card record %+v", card)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	first, _ := f.pipeline(t)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, db := f.pipeline(t)
	before := db.Stats()
	summary, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Computed != 0 || summary.Skipped != 3 || summary.Registered != 0 {
		t.Fatalf("second run should compute nothing, got %+v", summary)
	}
	if after := db.Stats(); after.Hashes != before.Hashes {
		t.Fatalf("hash count changed from %d to %d", before.Hashes, after.Hashes)
	}
}

func TestRunAddsNewFunctionsIncrementally(t *testing.T) {
	f := newFixture(t)
	first, _ := f.pipeline(t)
	first.Functions = f.functions[:1]
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second, _ := f.pipeline(t)
	summary, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Computed != 3 || summary.Registered != 1 {
		t.Fatalf("expected only the new function to run, got %+v", summary)
	}
}

func TestRunRespectsWriterLock(t *testing.T) {
	f := newFixture(t)
	_, db := f.pipeline(t)
	unlock, err := db.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	other, _ := f.pipeline(t)
	if _, err := other.Run(context.Background()); !errors.Is(err, carddb.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	f := newFixture(t)
	p, _ := f.pipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunRequiresCollaborators(t *testing.T) {
	if _, err := (&generation.Pipeline{}).Run(context.Background()); err == nil {
		t.Fatal("expected error without database")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m0s"},
		{time.Hour + 2*time.Second, "1h0m2s"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1d2h3m4s"},
		{-time.Second, "0s"},
	}
	for _, tt := range tests {
		if got := generation.FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
