package library

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/similarity"
)

// backMarker tags the back face of a multi-faced card.
const backMarker = ".back"

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".webp"}

// Entry is one library image.
type Entry struct {
	Path     string
	RelPath  string
	SetName  string
	CardName string
	SideName string
	Side     string
}

// Walker traverses the library rooted at Root.
type Walker struct {
	Root string
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(name)))
}

// Walk calls fn for every image in set, card, face order. Traversal stops at
// the first error returned by fn.
func (w Walker) Walk(fn func(Entry) error) error {
	sets, err := readDir(w.Root)
	if err != nil {
		return fmt.Errorf("read library: %w", err)
	}
	for _, set := range sets {
		if !set.IsDir() {
			continue
		}
		setPath := filepath.Join(w.Root, set.Name())
		cards, err := readDir(setPath)
		if err != nil {
			return fmt.Errorf("read set %s: %w", set.Name(), err)
		}
		for _, card := range cards {
			cardPath := filepath.Join(setPath, card.Name())
			if !card.IsDir() {
				if !IsImage(card.Name()) {
					continue
				}
				if err := fn(w.entry(cardPath, set.Name(), card.Name(), card.Name(), false)); err != nil {
					return err
				}
				continue
			}
			faces, err := readDir(cardPath)
			if err != nil {
				return fmt.Errorf("read card %s: %w", card.Name(), err)
			}
			for _, face := range faces {
				if face.IsDir() || !IsImage(face.Name()) {
					continue
				}
				if err := fn(w.entry(filepath.Join(cardPath, face.Name()), set.Name(), card.Name(), face.Name(), true)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Entries collects every image.
func (w Walker) Entries() ([]Entry, error) {
	var entries []Entry
	err := w.Walk(func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// Count returns the number of images.
func (w Walker) Count() (int, error) {
	n := 0
	err := w.Walk(func(Entry) error {
		n++
		return nil
	})
	return n, err
}

func (w Walker) entry(path, set, card, face string, multiFaced bool) Entry {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		rel = path
	}
	e := Entry{
		Path:     path,
		RelPath:  filepath.ToSlash(rel),
		SetName:  unescape(set),
		CardName: stripExtensions(unescape(card)),
		SideName: stripExtensions(unescape(face)),
		Side:     similarity.SideFront,
	}
	if multiFaced {
		e.CardName = unescape(card)
		if strings.Contains(face, backMarker) {
			e.Side = similarity.SideBack
		}
	}
	return e
}

// readDir lists a directory sorted by name, without hidden entries.
func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(entries, func(e os.DirEntry) bool {
		return strings.HasPrefix(e.Name(), ".")
	}), nil
}

// unescape decodes a URL-encoded path segment, keeping the raw text when it
// is not valid encoding.
func unescape(segment string) string {
	decoded, err := url.QueryUnescape(segment)
	if err != nil {
		return segment
	}
	return decoded
}

// stripExtensions removes the image extension and a trailing back marker.
func stripExtensions(name string) string {
	if IsImage(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.TrimSuffix(name, backMarker)
}
