package imagehash

import (
	"fmt"
	"image"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// DefaultHighFreqFactor is the oversampling factor used by PerceptualHash
// when none is configured.
const DefaultHighFreqFactor = 4

// dctBasisCache holds the truncated DCT-II bases keyed by "size-n".
var dctBasisCache sync.Map

// dctBasis returns the size×n matrix whose rows are the first size DCT-II
// basis vectors of length n, unnormalized: 2·cos(πk(2j+1)/2n).
func dctBasis(size, n int) *mat.Dense {
	key := fmt.Sprintf("%d-%d", size, n)
	if v, ok := dctBasisCache.Load(key); ok {
		return v.(*mat.Dense)
	}
	basis := mat.NewDense(size, n, nil)
	nf := float64(n)
	for k := 0; k < size; k++ {
		for j := 0; j < n; j++ {
			basis.Set(k, j, 2*math.Cos(float64(k)*math.Pi*float64(2*j+1)/(2*nf)))
		}
	}
	actual, _ := dctBasisCache.LoadOrStore(key, basis)
	return actual.(*mat.Dense)
}

// PerceptualHash computes the 2-D DCT of an (size·highFreq)² thumbnail and
// sets a bit for every low-frequency coefficient in the top-left size×size
// block that exceeds the block median.
func PerceptualHash(img image.Image, size, highFreq int) (BitHash, error) {
	if err := checkHashSize(size); err != nil {
		return BitHash{}, err
	}
	if highFreq < 1 {
		return BitHash{}, fmt.Errorf("%w: highfreq factor %d must be positive", ErrInvalidParameter, highFreq)
	}
	n := size * highFreq
	g, err := grayscale(img, n, n)
	if err != nil {
		return BitHash{}, err
	}
	pixels := mat.NewDense(n, n, pixelValues(g))
	basis := dctBasis(size, n)

	// low = B · P · Bᵀ keeps only the first size frequencies on both axes.
	var cols, low mat.Dense
	cols.Mul(basis, pixels)
	low.Mul(&cols, basis.T())

	coeffs := make([]float64, 0, size*size)
	for r := 0; r < size; r++ {
		coeffs = append(coeffs, low.RawRowView(r)...)
	}
	return thresholdBits(coeffs, median(coeffs)), nil
}
