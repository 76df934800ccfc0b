package imageio

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate turns img counter-clockwise by degrees, which must be a multiple
// of 90. Negative values rotate clockwise.
func Rotate(img image.Image, degrees int) (image.Image, error) {
	if degrees%90 != 0 {
		return nil, fmt.Errorf("rotate: %d is not a multiple of 90", degrees)
	}
	turns := ((degrees/90)%4 + 4) % 4
	if turns == 0 {
		return img, nil
	}
	src := img.Bounds()
	w, h := float64(src.Dx()), float64(src.Dy())
	minX, minY := float64(src.Min.X), float64(src.Min.Y)
	dstW, dstH := src.Dx(), src.Dy()
	if turns%2 == 1 {
		dstW, dstH = dstH, dstW
	}
	// Source to destination maps; the destination origin is (0, 0).
	var s2d f64.Aff3
	switch turns {
	case 1: // 90° counter-clockwise
		s2d = f64.Aff3{0, 1, -minY, -1, 0, w + minX}
	case 2:
		s2d = f64.Aff3{-1, 0, w + minX, 0, -1, h + minY}
	case 3: // 90° clockwise
		s2d = f64.Aff3{0, -1, h + minY, 1, 0, -minX}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	draw.NearestNeighbor.Transform(dst, s2d, img, src, draw.Src, nil)
	return dst, nil
}

// Resize scales img to exactly width×height with a Catmull-Rom filter.
func Resize(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resize: invalid size %dx%d", width, height)
	}
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return img, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst, nil
}

// PrepareOptions controls reference preparation. Zero Width and Height keep
// the original size.
type PrepareOptions struct {
	RotateDegrees int
	Width         int
	Height        int
}

// Prepare rotates and then resizes a reference image so it matches the
// orientation and size of the library scans.
func Prepare(img image.Image, opts PrepareOptions) (image.Image, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("prepare: empty image")
	}
	out, err := Rotate(img, opts.RotateDegrees)
	if err != nil {
		return nil, err
	}
	if opts.Width == 0 && opts.Height == 0 {
		return out, nil
	}
	return Resize(out, opts.Width, opts.Height)
}
