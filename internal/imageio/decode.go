package imageio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode marks failures to read or decode an image file.
var ErrDecode = errors.New("image decode failed")

// Decoder loads images by path.
type Decoder interface {
	Decode(ctx context.Context, path string) (image.Image, error)
}

// FileDecoder decodes PNG, JPEG, GIF, BMP and WebP files from the local
// filesystem.
type FileDecoder struct{}

// Decode opens and decodes the image at path.
func (FileDecoder) Decode(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDecode, path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return img, nil
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, path string) (image.Image, error)

func (f DecoderFunc) Decode(ctx context.Context, path string) (image.Image, error) {
	return f(ctx, path)
}
