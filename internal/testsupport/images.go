package testsupport

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// SolidImage returns a w×h image filled with c.
func SolidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// GradientImage returns a w×h grey ramp that brightens from left to right,
// or from right to left when mirrored is true.
func GradientImage(w, h int, mirrored bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pos := x
			if mirrored {
				pos = w - 1 - x
			}
			v := uint8(pos * 255 / max(1, w-1))
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 0xff})
		}
	}
	return img
}

// PatternImage returns a deterministic pseudo-random colour image; distinct
// seeds produce visibly different images.
func PatternImage(w, h int, seed uint32) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	state := seed*2654435761 + 1
	next := func() uint8 {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		return uint8(state)
	}
	const block = 8
	for by := 0; by < h; by += block {
		for bx := 0; bx < w; bx += block {
			c := color.NRGBA{R: next(), G: next(), B: next(), A: 0xff}
			for y := by; y < min(by+block, h); y++ {
				for x := bx; x < min(bx+block, w); x++ {
					img.Set(x, y, c)
				}
			}
		}
	}
	return img
}

// WriteImage encodes img as PNG at path, creating parent directories.
func WriteImage(t testing.TB, path string, img image.Image) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// WriteLibrary writes each image under root at its slash-separated
// relative path.
func WriteLibrary(t testing.TB, root string, images map[string]image.Image) {
	t.Helper()

	for rel, img := range images {
		WriteImage(t, filepath.Join(root, filepath.FromSlash(rel)), img)
	}
}
