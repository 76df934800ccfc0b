package imagehash

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultBinBits is the bucket resolution of ColorHashOf when none is configured.
	DefaultBinBits = 3
	// ColorHashBuckets is the number of values in a ColorHash.
	ColorHashBuckets = 14
	hueBins          = 6
)

// ColorHash holds the colour-distribution buckets of an image. Each value is
// below 2^BinBits.
type ColorHash struct {
	values  []uint8
	binBits int
}

// NewColorHash validates and wraps bucket values.
func NewColorHash(values []uint8, binBits int) (ColorHash, error) {
	if binBits < 1 || binBits > 8 {
		return ColorHash{}, fmt.Errorf("%w: binbits %d outside 1..8", ErrInvalidParameter, binBits)
	}
	limit := 1 << binBits
	for i, v := range values {
		if int(v) >= limit {
			return ColorHash{}, fmt.Errorf("%w: bucket %d value %d exceeds %d bits", ErrInvalidHash, i, v, binBits)
		}
	}
	return ColorHash{values: slices.Clone(values), binBits: binBits}, nil
}

// ParseColorHash decodes n bucket values of binBits bits each.
func ParseColorHash(text string, binBits, n int) (ColorHash, error) {
	if binBits < 1 || binBits > 8 {
		return ColorHash{}, fmt.Errorf("%w: binbits %d outside 1..8", ErrInvalidParameter, binBits)
	}
	bits, err := decodeBits(text, binBits*n)
	if err != nil {
		return ColorHash{}, err
	}
	values := make([]uint8, n)
	for i := range values {
		var v uint8
		for j := 0; j < binBits; j++ {
			v <<= 1
			if bits[i*binBits+j] {
				v |= 1
			}
		}
		values[i] = v
	}
	return ColorHash{values: values, binBits: binBits}, nil
}

func (h ColorHash) Kind() Kind { return KindColor }

func (h ColorHash) Len() int { return len(h.values) }

// BinBits is the bit width of every bucket.
func (h ColorHash) BinBits() int { return h.binBits }

// Values returns a copy of the bucket values.
func (h ColorHash) Values() []uint8 { return slices.Clone(h.values) }

func (h ColorHash) String() string {
	return encodeBits(len(h.values)*h.binBits, func(i int) bool {
		v := h.values[i/h.binBits]
		shift := h.binBits - 1 - i%h.binBits
		return v&(1<<shift) != 0
	})
}

// Distance returns the summed absolute difference of the buckets.
func (h ColorHash) Distance(other Value) (float64, error) {
	o, ok := other.(ColorHash)
	if !ok || len(o.values) != len(h.values) || o.binBits != h.binBits {
		return 0, shapeError(h, other)
	}
	total := 0
	for i, v := range h.values {
		d := int(v) - int(o.values[i])
		if d < 0 {
			d = -d
		}
		total += d
	}
	return float64(total), nil
}

// ColorHashOf buckets the image's colour distribution: the fraction of black
// pixels, the fraction of grey pixels, and six hue bins each for faint and
// bright colours.
func ColorHashOf(img image.Image, binBits int) (ColorHash, error) {
	if binBits < 1 || binBits > 8 {
		return ColorHash{}, fmt.Errorf("%w: binbits %d outside 1..8", ErrInvalidParameter, binBits)
	}
	if img == nil || img.Bounds().Empty() {
		return ColorHash{}, ErrEmptyImage
	}

	b := img.Bounds()
	total := float64(b.Dx() * b.Dy())
	var black, gray, colored float64
	var faint, bright []float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			intensity := color.GrayModel.Convert(c).(color.Gray).Y
			rgba := color.NRGBAModel.Convert(c).(color.NRGBA)
			hue, sat := hueSaturation(rgba.R, rgba.G, rgba.B)
			switch {
			case intensity < 256/8:
				black++
			case sat < 256/3:
				gray++
			default:
				// A saturation of exactly 170 is coloured but in neither
				// hue histogram.
				colored++
				switch {
				case sat < 256*2/3:
					faint = append(faint, hue)
				case sat > 256*2/3:
					bright = append(bright, hue)
				}
			}
		}
	}

	colored = max(colored, 1)
	maxValue := float64(int(1) << binBits)
	bucket := func(fraction float64) uint8 {
		return uint8(min(maxValue-1, math.Floor(fraction*maxValue)))
	}

	values := make([]uint8, 0, ColorHashBuckets)
	values = append(values, bucket(black/total), bucket(gray/total))
	for _, hues := range [][]float64{faint, bright} {
		for _, count := range hueHistogram(hues) {
			values = append(values, bucket(count/colored))
		}
	}
	return ColorHash{values: values, binBits: binBits}, nil
}

// hueHistogram counts hues (0..255) into six equal bins; the last bin
// includes 255.
func hueHistogram(hues []float64) []float64 {
	dividers := make([]float64, hueBins+1)
	floats.Span(dividers, 0, 255)
	dividers[hueBins] = math.Nextafter(255, math.Inf(1))
	counts := make([]float64, hueBins)
	if len(hues) == 0 {
		return counts
	}
	sorted := slices.Clone(hues)
	slices.Sort(sorted)
	return stat.Histogram(counts, dividers, sorted, nil)
}

// hueSaturation converts RGB to hue and saturation on a 0..255 scale.
func hueSaturation(r, g, b uint8) (float64, float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxc := max(rf, gf, bf)
	minc := min(rf, gf, bf)
	if maxc == minc {
		return 0, 0
	}
	span := maxc - minc
	sat := math.Floor(span * 255 / maxc)
	rc := (maxc - rf) / span
	gc := (maxc - gf) / span
	bc := (maxc - bf) / span
	var h float64
	switch maxc {
	case rf:
		h = bc - gc
	case gf:
		h = 2 + rc - bc
	default:
		h = 4 + gc - rc
	}
	h = math.Mod(h/6, 1)
	if h < 0 {
		h++
	}
	return math.Floor(h * 255), sat
}
