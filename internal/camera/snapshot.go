package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/clone"
	"github.com/valyala/fasthttp"

	"github.com/park285/gammon-vision/internal/motion"
)

type Option func(*SnapshotSource)

func WithTimeout(d time.Duration) Option {
	return func(s *SnapshotSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDisplaySize scales frames to w x h before motion comparison. Zero keeps the native size.
func WithDisplaySize(w, h int) Option {
	return func(s *SnapshotSource) { s.width, s.height = w, h }
}

// SnapshotSource polls a camera that serves its current picture over HTTP (MJPEG snapshot
// endpoints, IP cameras). Each Frame call is one GET.
type SnapshotSource struct {
	url     string
	http    *fasthttp.Client
	timeout time.Duration
	width   int
	height  int
}

func NewSnapshotSource(url string, opts ...Option) *SnapshotSource {
	s := &SnapshotSource{
		url:     strings.TrimSpace(url),
		http:    &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 4},
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Frame fetches and decodes the current picture. Auth failures and a missing endpoint
// are reported as motion.ErrSourceUnavailable; other failures are transient.
func (s *SnapshotSource) Frame(ctx context.Context) (motion.Frame, error) {
	if err := ctx.Err(); err != nil {
		return motion.Frame{}, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(s.url)

	if err := s.http.DoDeadline(req, resp, s.deadline(ctx)); err != nil {
		return motion.Frame{}, fmt.Errorf("camera request: %w", err)
	}
	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusUnauthorized, status == fasthttp.StatusForbidden, status == fasthttp.StatusNotFound:
		return motion.Frame{}, fmt.Errorf("camera status %d: %w", status, motion.ErrSourceUnavailable)
	case status == fasthttp.StatusNoContent, status == fasthttp.StatusServiceUnavailable:
		return motion.Frame{}, motion.ErrNoFrame
	case status < 200 || status >= 300:
		return motion.Frame{}, fmt.Errorf("camera status %d", status)
	}

	img, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return motion.Frame{}, fmt.Errorf("decode camera frame: %w", err)
	}
	return s.frame(img), nil
}

func (s *SnapshotSource) frame(img image.Image) motion.Frame {
	return toFrame(img, s.width, s.height)
}

func (s *SnapshotSource) deadline(ctx context.Context) time.Time {
	own := time.Now().Add(s.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(own) {
		return dl
	}
	return own
}

func toFrame(img image.Image, w, h int) motion.Frame {
	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	if w <= 0 || h <= 0 {
		w, h = b.Dx(), b.Dy()
	}
	return motion.Frame{Image: rgba, Width: w, Height: h}
}
