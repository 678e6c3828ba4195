package motion

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrSourceUnavailable is terminal: permission denied or device missing.
	ErrSourceUnavailable = errors.New("video source unavailable")
	// ErrNoFrame means the source is alive but has nothing to hand out yet.
	ErrNoFrame = errors.New("no frame available")
)

// Frame is one sample of the video source. Width and Height are the displayed size;
// the image is scaled into a raster of that size before comparison.
type Frame struct {
	Image  image.Image
	Width  int
	Height int
}

func (f Frame) Empty() bool {
	return f.Image == nil || f.Width <= 0 || f.Height <= 0
}

// Source yields the current video frame on demand.
type Source interface {
	Frame(ctx context.Context) (Frame, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Frame, error)

func (f SourceFunc) Frame(ctx context.Context) (Frame, error) { return f(ctx) }
