package imagehash

import "errors"

var (
	// ErrShapeMismatch is returned when two hash values of different kind or
	// length are compared.
	ErrShapeMismatch = errors.New("imagehash: hash shape mismatch")

	// ErrInvalidHash is returned when hash text cannot be decoded into the
	// requested shape.
	ErrInvalidHash = errors.New("imagehash: invalid hash text")

	// ErrInvalidParameter is returned for hash sizes or options an algorithm
	// cannot honour.
	ErrInvalidParameter = errors.New("imagehash: invalid parameter")

	// ErrEmptyImage is returned when the input image has no pixels.
	ErrEmptyImage = errors.New("imagehash: empty image")
)
