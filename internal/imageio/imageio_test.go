package imageio_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/ToxicGLaDOS/magic-image-detection/internal/imageio"
	"github.com/ToxicGLaDOS/magic-image-detection/internal/testsupport"
)

func TestFileDecoderReadsPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.png")
	testsupport.WriteImage(t, path, testsupport.SolidImage(10, 14, color.White))

	img, err := imageio.FileDecoder{}.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 14 {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func TestFileDecoderErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := (imageio.FileDecoder{}).Decode(context.Background(), filepath.Join(dir, "missing.png")); !errors.Is(err, imageio.ErrDecode) {
		t.Fatalf("expected ErrDecode for missing file, got %v", err)
	}

	junk := filepath.Join(dir, "junk.png")
	testsupport.WriteFile(t, junk, "not an image")
	if _, err := (imageio.FileDecoder{}).Decode(context.Background(), junk); !errors.Is(err, imageio.ErrDecode) {
		t.Fatalf("expected ErrDecode for junk file, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (imageio.FileDecoder{}).Decode(ctx, junk); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func markedImage() *image.NRGBA {
	img := testsupport.SolidImage(4, 2, color.Black)
	img.Set(3, 0, color.White) // top-right corner
	return img
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name    string
		degrees int
		w, h    int
		x, y    int
	}{
		{"none", 0, 4, 2, 3, 0},
		{"counter-clockwise", 90, 2, 4, 0, 0},
		{"half turn", 180, 4, 2, 0, 1},
		{"clockwise", -90, 2, 4, 1, 3},
		{"full turn", 360, 4, 2, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := imageio.Rotate(markedImage(), tt.degrees)
			if err != nil {
				t.Fatalf("Rotate: %v", err)
			}
			b := out.Bounds()
			if b.Dx() != tt.w || b.Dy() != tt.h {
				t.Fatalf("bounds %v, want %dx%d", b, tt.w, tt.h)
			}
			r, _, _, _ := out.At(b.Min.X+tt.x, b.Min.Y+tt.y).RGBA()
			if r != 0xffff {
				t.Fatalf("expected marker at (%d,%d)", tt.x, tt.y)
			}
		})
	}

	if _, err := imageio.Rotate(markedImage(), 45); err == nil {
		t.Fatal("expected error for 45 degrees")
	}
}

func TestRotateKeepsEveryPixel(t *testing.T) {
	// A sub-image with a non-zero origin exercises the offset handling.
	full := testsupport.PatternImage(40, 30, 7)
	src := full.SubImage(image.Rect(5, 3, 21, 13)).(*image.NRGBA)
	w, h := 16, 10

	for _, degrees := range []int{90, 180, 270, -90} {
		out, err := imageio.Rotate(src, degrees)
		if err != nil {
			t.Fatalf("Rotate(%d): %v", degrees, err)
		}
		for y := range h {
			for x := range w {
				var dx, dy int
				switch ((degrees/90)%4 + 4) % 4 {
				case 1:
					dx, dy = y, w-1-x
				case 2:
					dx, dy = w-1-x, h-1-y
				case 3:
					dx, dy = h-1-y, x
				}
				want := src.NRGBAAt(5+x, 3+y)
				got := color.NRGBAModel.Convert(out.At(dx, dy)).(color.NRGBA)
				if got != want {
					t.Fatalf("Rotate(%d): pixel (%d,%d) moved to (%d,%d) = %v, want %v", degrees, x, y, dx, dy, got, want)
				}
			}
		}
	}
}

func TestPrepare(t *testing.T) {
	img := testsupport.GradientImage(680, 488, false)
	out, err := imageio.Prepare(img, imageio.PrepareOptions{RotateDegrees: -90, Width: 488, Height: 680})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 488 || b.Dy() != 680 {
		t.Fatalf("unexpected bounds %v", b)
	}

	same, err := imageio.Prepare(img, imageio.PrepareOptions{})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if same.Bounds() != img.Bounds() {
		t.Fatalf("expected untouched bounds, got %v", same.Bounds())
	}

	if _, err := imageio.Resize(img, 0, 10); err == nil {
		t.Fatal("expected error for zero width")
	}
}
