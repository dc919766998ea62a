package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-sss/common"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoImages is returned when Load is called without names.
var ErrNoImages = errors.New("loader: no images requested")

// ImageSource supplies decoded RGBA bitmaps by name.
type ImageSource interface {
	// Load decodes the named images. The result is in request order; any failure fails the whole call.
	//
	// Parameters:
	//   - ctx: cancels the load between and during decodes
	//   - names: the images to load
	//
	// Returns:
	//   - []common.Bitmap: one bitmap per name
	//   - error: the first decode error, or the context error
	Load(ctx context.Context, names ...string) ([]common.Bitmap, error)
}

// fileImageSource decodes image files from a directory on a worker pool.
type fileImageSource struct {
	dir          string
	workers      int
	maxDimension int
	pool         worker.DynamicWorkerPool
	logger       *log.Entry
}

var _ ImageSource = &fileImageSource{}

// FileImageSourceOption is a functional option for configuring a file-backed ImageSource.
type FileImageSourceOption func(*fileImageSource)

// WithDecodeWorkers sets the number of images decoded concurrently. Defaults to NumCPU-1, at least 1.
func WithDecodeWorkers(n int) FileImageSourceOption {
	return func(s *fileImageSource) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMaxDimension downsamples images whose width or height exceeds n, preserving aspect ratio. Zero disables.
func WithMaxDimension(n int) FileImageSourceOption {
	return func(s *fileImageSource) {
		s.maxDimension = n
	}
}

// WithImageLogger sets the log entry the source reports to.
func WithImageLogger(entry *log.Entry) FileImageSourceOption {
	return func(s *fileImageSource) {
		if entry != nil {
			s.logger = entry
		}
	}
}

// NewFileImageSource creates an ImageSource that resolves names relative to dir. PNG, JPEG, BMP, TIFF and WebP
// are recognised by content.
//
// Parameters:
//   - dir: the directory names are relative to
//   - options: functional options
//
// Returns:
//   - ImageSource: the file-backed source
func NewFileImageSource(dir string, options ...FileImageSourceOption) ImageSource {
	s := &fileImageSource{
		dir:     dir,
		workers: max(runtime.NumCPU()-1, 1),
		logger:  log.WithField("component", "image-source"),
	}
	for _, opt := range options {
		opt(s)
	}
	s.pool = worker.NewDynamicWorkerPool(s.workers, 64, time.Second)
	return s
}

func (s *fileImageSource) Load(ctx context.Context, names ...string) ([]common.Bitmap, error) {
	if len(names) == 0 {
		return nil, ErrNoImages
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	bitmaps := make([]common.Bitmap, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				if err := ctx.Err(); err != nil {
					errs[i] = err
					return nil, err
				}
				bitmaps[i], errs[i] = s.decodeFile(filepath.Join(s.dir, name))
				return nil, errs[i]
			},
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", names[i], err)
		}
	}
	s.logger.WithFields(log.Fields{"images": len(names), "elapsed": time.Since(start)}).Info("images decoded")
	return bitmaps, nil
}

func (s *fileImageSource) decodeFile(path string) (common.Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return common.Bitmap{}, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return common.Bitmap{}, err
	}
	s.logger.WithFields(log.Fields{"path": path, "format": format}).Debug("decoded")
	return ToBitmap(img, s.maxDimension), nil
}

// ToBitmap converts any image to a tightly packed RGBA bitmap with rows top to bottom. When maxDimension is
// positive and the image is larger on either axis, it is resampled with Catmull-Rom to fit.
//
// Parameters:
//   - img: the source image
//   - maxDimension: the largest allowed width or height, zero for no limit
//
// Returns:
//   - common.Bitmap: the converted pixels
func ToBitmap(img image.Image, maxDimension int) common.Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxDimension > 0 && (w > maxDimension || h > maxDimension) {
		if w >= h {
			h = max(h*maxDimension/w, 1)
			w = maxDimension
		} else {
			w = max(w*maxDimension/h, 1)
			h = maxDimension
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	}
	return common.Bitmap{Pixels: dst.Pix, Width: uint32(w), Height: uint32(h)}
}
