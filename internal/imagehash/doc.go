// Package imagehash computes perceptual image hashes and compares them.
//
// Two value shapes exist: BitHash, a fixed-length bit vector compared by
// Hamming distance, and ColorHash, a short tuple of colour-distribution
// buckets compared by summed absolute difference. Both encode to the same
// hexadecimal text used by the hash database.
//
// Every primitive converts its input to 8-bit luminance with the ITU-R 601
// weights and resamples with a Catmull-Rom filter before hashing, so the same
// image always yields the same hash.
package imagehash
