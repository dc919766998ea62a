package loader

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func checkerImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	return img
}

func writeImages(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	img := checkerImage(3, 2)

	f, err := os.Create(filepath.Join(dir, "albedo.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	f, err = os.Create(filepath.Join(dir, "specular.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return dir
}

func TestFileImageSource_DecodesInRequestOrder(t *testing.T) {
	src := NewFileImageSource(writeImages(t), WithDecodeWorkers(2))
	bitmaps, err := src.Load(context.Background(), "specular.bmp", "albedo.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(bitmaps) != 2 {
		t.Fatalf("len(bitmaps) = %d, want 2", len(bitmaps))
	}
	for i, b := range bitmaps {
		if err := b.Validate(); err != nil {
			t.Errorf("bitmap %d: %v", i, err)
		}
		if b.Width != 3 || b.Height != 2 {
			t.Errorf("bitmap %d is %dx%d, want 3x2", i, b.Width, b.Height)
		}
		// Pixel (2, 1) sits at byte offset (1*3+2)*4.
		px := b.Pixels[20:24]
		if px[0] != 80 || px[1] != 40 || px[2] != 200 || px[3] != 255 {
			t.Errorf("bitmap %d pixel (2,1) = %v, want [80 40 200 255]", i, px)
		}
	}
}

func TestFileImageSource_Errors(t *testing.T) {
	dir := writeImages(t)
	if err := os.WriteFile(filepath.Join(dir, "garbage.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		names   []string
		wantErr error
	}{
		{"no names", context.Background(), nil, ErrNoImages},
		{"missing file", context.Background(), []string{"albedo.png", "missing.png"}, os.ErrNotExist},
		{"undecodable", context.Background(), []string{"garbage.png"}, image.ErrFormat},
		{"cancelled", cancelled, []string{"albedo.png"}, context.Canceled},
	}

	src := NewFileImageSource(dir)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bitmaps, err := src.Load(tt.ctx, tt.names...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if bitmaps != nil {
				t.Error("partial result returned alongside an error")
			}
		})
	}
}

func TestToBitmap_Downsamples(t *testing.T) {
	tests := []struct {
		name         string
		w, h, limit  int
		wantW, wantH uint32
	}{
		{"no limit", 8, 4, 0, 8, 4},
		{"within limit", 8, 4, 8, 8, 4},
		{"wide", 8, 4, 4, 4, 2},
		{"tall", 4, 8, 2, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ToBitmap(checkerImage(tt.w, tt.h), tt.limit)
			if b.Width != tt.wantW || b.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Width, b.Height, tt.wantW, tt.wantH)
			}
			if err := b.Validate(); err != nil {
				t.Error(err)
			}
		})
	}
}
