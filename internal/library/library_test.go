package library_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/library"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/similarity"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/testsupport"
)

func TestWalkParsesLayout(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"Theros+Beyond+Death/Heliod%27s+Pilgrim.jpg",
		"Kaldheim/Valki%2C+God+of+Lies/Valki%2C+God+of+Lies.png",
		"Kaldheim/Valki%2C+God+of+Lies/Tibalt%2C+Cosmic+Impostor.back.png",
		"Kaldheim/notes.txt",
		"Kaldheim/.hidden.png",
		"stray.png",
	} {
		testsupport.WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), "x")
	}

	entries, err := library.Walker{Root: root}.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	want := []library.Entry{
		{
			RelPath:  "Kaldheim/Valki%2C+God+of+Lies/Tibalt%2C+Cosmic+Impostor.back.png",
			SetName:  "Kaldheim",
			CardName: "Valki, God of Lies",
			SideName: "Tibalt, Cosmic Impostor",
			Side:     similarity.SideBack,
		},
		{
			RelPath:  "Kaldheim/Valki%2C+God+of+Lies/Valki%2C+God+of+Lies.png",
			SetName:  "Kaldheim",
			CardName: "Valki, God of Lies",
			SideName: "Valki, God of Lies",
			Side:     similarity.SideFront,
		},
		{
			RelPath:  "Theros+Beyond+Death/Heliod%27s+Pilgrim.jpg",
			SetName:  "Theros Beyond Death",
			CardName: "Heliod's Pilgrim",
			SideName: "Heliod's Pilgrim",
			Side:     similarity.SideFront,
		},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), entries)
	}
	for i, got := range entries {
		w := want[i]
		w.Path = filepath.Join(root, filepath.FromSlash(w.RelPath))
		if got != w {
			t.Errorf("entry %d:\n got %+v\nwant %+v", i, got, w)
		}
	}

	n, err := library.Walker{Root: root}.Count()
	if err != nil || n != 3 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestWalkKeepsInvalidEscapes(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "Set", "100%+Pure.PNG"), "x")
	entries, err := library.Walker{Root: root}.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].CardName != "100%+Pure" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "Set", "a.png"), "x")
	testsupport.WriteFile(t, filepath.Join(root, "Set", "b.png"), "x")
	stop := errors.New("stop")
	calls := 0
	err := library.Walker{Root: root}.Walk(func(library.Entry) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected stop after first entry, got %v after %d calls", err, calls)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	if _, err := (library.Walker{Root: filepath.Join(t.TempDir(), "missing")}).Count(); err == nil {
		t.Fatal("expected error for missing library")
	}
}

func TestDigestAndFingerprint(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "Set", "a.png")
	b := filepath.Join(root, "Set", "b.png")
	testsupport.WriteFile(t, a, "same")
	testsupport.WriteFile(t, b, "same")

	da, err := library.Digest(a)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	db, _ := library.Digest(b)
	if da != db || len(da) != 16 {
		t.Fatalf("expected equal 16-digit digests, got %q and %q", da, db)
	}
	if _, err := library.Digest(filepath.Join(root, "missing.png")); err == nil {
		t.Fatal("expected error for missing file")
	}

	walker := library.Walker{Root: root}
	entries, _ := walker.Entries()
	before := library.Fingerprint(entries)
	if again := library.Fingerprint(entries); again != before {
		t.Fatal("fingerprint must be stable")
	}
	testsupport.WriteFile(t, filepath.Join(root, "Set", "c.png"), "new")
	entries, _ = walker.Entries()
	if library.Fingerprint(entries) == before {
		t.Fatal("fingerprint must change when an image is added")
	}
}
