package imagehash

import (
	"fmt"
	"image"
	"math"
	"math/bits"
)

// WaveletHash computes a Haar wavelet hash. The image is resampled to
// scale×scale (scale 0 picks the largest power of two that fits the image,
// but never less than size), optionally stripped of its coarsest
// approximation band, and decomposed until the approximation band is
// size×size. A bit is set for every approximation coefficient above the
// band median. Both size and scale must be powers of two.
func WaveletHash(img image.Image, size, scale int, removeMaxLL bool) (BitHash, error) {
	if err := checkHashSize(size); err != nil {
		return BitHash{}, err
	}
	if !isPowerOfTwo(size) {
		return BitHash{}, fmt.Errorf("%w: hash size %d is not a power of two", ErrInvalidParameter, size)
	}
	if img == nil || img.Bounds().Empty() {
		return BitHash{}, ErrEmptyImage
	}
	if scale == 0 {
		b := img.Bounds()
		natural := 1 << (bits.Len(uint(min(b.Dx(), b.Dy()))) - 1)
		scale = max(natural, size)
	}
	if !isPowerOfTwo(scale) {
		return BitHash{}, fmt.Errorf("%w: image scale %d is not a power of two", ErrInvalidParameter, scale)
	}
	if size > scale {
		return BitHash{}, fmt.Errorf("%w: hash size %d exceeds image scale %d", ErrInvalidParameter, size, scale)
	}

	g, err := grayscale(img, scale, scale)
	if err != nil {
		return BitHash{}, err
	}
	data := pixelValues(g)
	for i := range data {
		data[i] /= 255
	}

	maxLevel := bits.TrailingZeros(uint(scale))
	if removeMaxLL {
		data = removeApproximation(data, scale, maxLevel)
	}

	ll, width := data, scale
	for level := maxLevel - bits.TrailingZeros(uint(size)); level > 0; level-- {
		ll = haarDWT(ll, width).ll
		width /= 2
	}
	return thresholdBits(ll, median(ll)), nil
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

type haarBands struct {
	ll, lh, hl, hh []float64
}

// haarDWT performs one level of the orthonormal 2-D Haar transform on a
// square w×w block with even w.
func haarDWT(data []float64, w int) haarBands {
	hw := w / 2
	out := haarBands{
		ll: make([]float64, hw*hw),
		lh: make([]float64, hw*hw),
		hl: make([]float64, hw*hw),
		hh: make([]float64, hw*hw),
	}
	for y := 0; y < w; y += 2 {
		for x := 0; x < w; x += 2 {
			a1, d1 := cacd(data[y*w+x], data[(y+1)*w+x])
			a2, d2 := cacd(data[y*w+x+1], data[(y+1)*w+x+1])
			idx := (y/2)*hw + x/2
			out.ll[idx], out.hl[idx] = cacd(a1, a2)
			out.lh[idx], out.hh[idx] = cacd(d1, d2)
		}
	}
	return out
}

// haarIDWT inverts haarDWT; hw is the band width.
func haarIDWT(b haarBands, hw int) []float64 {
	w := hw * 2
	data := make([]float64, w*w)
	for y := 0; y < hw; y++ {
		for x := 0; x < hw; x++ {
			idx := y*hw + x
			a1, a2 := icacd(b.ll[idx], b.hl[idx])
			d1, d2 := icacd(b.lh[idx], b.hh[idx])
			v1, v2 := icacd(a1, d1)
			v3, v4 := icacd(a2, d2)
			data[(2*y)*w+2*x] = v1
			data[(2*y+1)*w+2*x] = v2
			data[(2*y)*w+2*x+1] = v3
			data[(2*y+1)*w+2*x+1] = v4
		}
	}
	return data
}

// removeApproximation decomposes levels times, zeroes the final
// approximation band, and reconstructs.
func removeApproximation(data []float64, w, levels int) []float64 {
	details := make([]haarBands, 0, levels)
	ll, width := data, w
	for range levels {
		bands := haarDWT(ll, width)
		details = append(details, bands)
		ll = bands.ll
		width /= 2
	}
	for i := range ll {
		ll[i] = 0
	}
	for i := len(details) - 1; i >= 0; i-- {
		bands := details[i]
		bands.ll = ll
		ll = haarIDWT(bands, width)
		width *= 2
	}
	return ll
}

func cacd(v1, v2 float64) (float64, float64) {
	avr := (v1 + v2) / 2
	return avr * math.Sqrt2, (v1 - avr) * math.Sqrt2
}

func icacd(a, d float64) (float64, float64) {
	avr := a / math.Sqrt2
	return avr + d/math.Sqrt2, avr - d/math.Sqrt2
}
