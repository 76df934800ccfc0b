package hashfunc

import (
	"fmt"
	"image"
	"strings"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/imagehash"
)

// Qualified names of the built-in algorithms.
const (
	AverageHash            = "imagehash.average_hash"
	DifferenceHash         = "imagehash.dhash"
	DifferenceHashVertical = "imagehash.dhash_vertical"
	PerceptualHash         = "imagehash.phash"
	WaveletHash            = "imagehash.whash"
	ColorHash              = "imagehash.colorhash"
)

const defaultHashSize = 8

// bitAlgorithm wraps a primitive that yields bits² bits.
type bitAlgorithm struct {
	bits int
	hash func(image.Image) (imagehash.BitHash, error)
}

func (a bitAlgorithm) Hash(img image.Image) (imagehash.Value, error) {
	h, err := a.hash(img)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (a bitAlgorithm) Parse(text string) (imagehash.Value, error) {
	h, err := imagehash.ParseBitHash(text, a.bits)
	if err != nil {
		return nil, err
	}
	return h, nil
}

type colorAlgorithm struct {
	binBits int
}

func (a colorAlgorithm) Hash(img image.Image) (imagehash.Value, error) {
	h, err := imagehash.ColorHashOf(img, a.binBits)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (a colorAlgorithm) Parse(text string) (imagehash.Value, error) {
	h, err := imagehash.ParseColorHash(text, a.binBits, imagehash.ColorHashBuckets)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func hashSizeParam(p Params) (int, error) {
	size, err := p.Int("hash_size", defaultHashSize)
	if err != nil {
		return 0, err
	}
	if size < 2 {
		return 0, fmt.Errorf("%w: hash_size %d must be at least 2", ErrInvalidParams, size)
	}
	return size, nil
}

func simpleBitRegistration(name string, primitive func(image.Image, int) (imagehash.BitHash, error)) Registration {
	return Registration{
		Name:            name,
		DefaultHashSize: defaultHashSize,
		Params:          []string{"hash_size"},
		New: func(p Params) (Algorithm, error) {
			size, err := hashSizeParam(p)
			if err != nil {
				return nil, err
			}
			return bitAlgorithm{
				bits: size * size,
				hash: func(img image.Image) (imagehash.BitHash, error) { return primitive(img, size) },
			}, nil
		},
	}
}

func builtinRegistrations() []Registration {
	return []Registration{
		simpleBitRegistration(AverageHash, imagehash.AverageHash),
		simpleBitRegistration(DifferenceHash, imagehash.DifferenceHash),
		simpleBitRegistration(DifferenceHashVertical, imagehash.DifferenceHashVertical),
		{
			Name:            PerceptualHash,
			DefaultHashSize: defaultHashSize,
			Params:          []string{"hash_size", "highfreq_factor"},
			New: func(p Params) (Algorithm, error) {
				size, err := hashSizeParam(p)
				if err != nil {
					return nil, err
				}
				factor, err := p.Int("highfreq_factor", imagehash.DefaultHighFreqFactor)
				if err != nil {
					return nil, err
				}
				if factor < 1 {
					return nil, fmt.Errorf("%w: highfreq_factor %d must be positive", ErrInvalidParams, factor)
				}
				return bitAlgorithm{
					bits: size * size,
					hash: func(img image.Image) (imagehash.BitHash, error) {
						return imagehash.PerceptualHash(img, size, factor)
					},
				}, nil
			},
		},
		{
			Name:            WaveletHash,
			DefaultHashSize: defaultHashSize,
			Params:          []string{"hash_size", "image_scale", "mode", "remove_max_haar_ll"},
			New: func(p Params) (Algorithm, error) {
				size, err := hashSizeParam(p)
				if err != nil {
					return nil, err
				}
				if size&(size-1) != 0 {
					return nil, fmt.Errorf("%w: hash_size %d is not a power of two", ErrInvalidParams, size)
				}
				scale, err := p.Int("image_scale", 0)
				if err != nil {
					return nil, err
				}
				if scale != 0 && (scale < size || scale&(scale-1) != 0) {
					return nil, fmt.Errorf("%w: image_scale %d must be a power of two no smaller than hash_size", ErrInvalidParams, scale)
				}
				mode, err := p.String("mode", "haar")
				if err != nil {
					return nil, err
				}
				if !strings.EqualFold(mode, "haar") {
					return nil, fmt.Errorf("%w: wavelet mode %q is not supported", ErrInvalidParams, mode)
				}
				removeLL, err := p.Bool("remove_max_haar_ll", true)
				if err != nil {
					return nil, err
				}
				return bitAlgorithm{
					bits: size * size,
					hash: func(img image.Image) (imagehash.BitHash, error) {
						return imagehash.WaveletHash(img, size, scale, removeLL)
					},
				}, nil
			},
		},
		{
			Name:            ColorHash,
			DefaultHashSize: imagehash.DefaultBinBits,
			Params:          []string{"binbits"},
			New: func(p Params) (Algorithm, error) {
				binBits, err := p.Int("binbits", imagehash.DefaultBinBits)
				if err != nil {
					return nil, err
				}
				if binBits < 1 || binBits > 8 {
					return nil, fmt.Errorf("%w: binbits %d outside 1..8", ErrInvalidParams, binBits)
				}
				return colorAlgorithm{binBits: binBits}, nil
			},
		},
	}
}
