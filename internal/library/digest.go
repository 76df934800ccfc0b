package library

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"
)

// Digest returns the xxh3 digest of the file contents as 16 hex digits.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Fingerprint digests the relative paths and sizes of entries.
func Fingerprint(entries []Entry) string {
	h := xxh3.New()
	for _, e := range entries {
		size := int64(-1)
		if info, err := os.Stat(e.Path); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(h, "%s\x00%d\n", e.RelPath, size)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
