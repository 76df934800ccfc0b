package imagehash

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// AverageHash sets a bit for every pixel of the size×size thumbnail that is
// brighter than the thumbnail mean. The result has size² bits.
func AverageHash(img image.Image, size int) (BitHash, error) {
	if err := checkHashSize(size); err != nil {
		return BitHash{}, err
	}
	g, err := grayscale(img, size, size)
	if err != nil {
		return BitHash{}, err
	}
	values := pixelValues(g)
	return thresholdBits(values, stat.Mean(values, nil)), nil
}

// DifferenceHash compares horizontally adjacent pixels of a (size+1)×size
// thumbnail; a bit is set when the right pixel is brighter.
func DifferenceHash(img image.Image, size int) (BitHash, error) {
	if err := checkHashSize(size); err != nil {
		return BitHash{}, err
	}
	g, err := grayscale(img, size+1, size)
	if err != nil {
		return BitHash{}, err
	}
	bits := make([]bool, 0, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			bits = append(bits, g.GrayAt(x+1, y).Y > g.GrayAt(x, y).Y)
		}
	}
	return NewBitHash(bits), nil
}

// DifferenceHashVertical compares vertically adjacent pixels of a
// size×(size+1) thumbnail; a bit is set when the lower pixel is brighter.
func DifferenceHashVertical(img image.Image, size int) (BitHash, error) {
	if err := checkHashSize(size); err != nil {
		return BitHash{}, err
	}
	g, err := grayscale(img, size, size+1)
	if err != nil {
		return BitHash{}, err
	}
	bits := make([]bool, 0, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			bits = append(bits, g.GrayAt(x, y+1).Y > g.GrayAt(x, y).Y)
		}
	}
	return NewBitHash(bits), nil
}
