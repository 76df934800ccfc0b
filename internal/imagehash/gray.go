package imagehash

import (
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/draw"
)

// grayscale converts img to 8-bit luminance and resamples it to width×height.
func grayscale(img image.Image, width, height int) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: target size %dx%d", ErrInvalidParameter, width, height)
	}
	bounds := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(bounds)
		draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), gray, bounds, draw.Src, nil)
	return dst, nil
}

// pixelValues returns the luminance values row by row.
func pixelValues(g *image.Gray) []float64 {
	b := g.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y):g.PixOffset(b.Max.X, y)]
		for _, p := range row {
			out = append(out, float64(p))
		}
	}
	return out
}

// median averages the two middle values for even lengths.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func thresholdBits(values []float64, threshold float64) BitHash {
	bits := make([]bool, len(values))
	for i, v := range values {
		bits[i] = v > threshold
	}
	return NewBitHash(bits)
}

func checkHashSize(size int) error {
	if size < 2 {
		return fmt.Errorf("%w: hash size %d must be at least 2", ErrInvalidParameter, size)
	}
	return nil
}
