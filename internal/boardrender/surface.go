package boardrender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"
	"sync"

	"github.com/park285/gammon-vision/internal/board"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var ErrClosed = errors.New("render surface closed")

type Options struct {
	// HUD lines are drawn centered on the bar, around the midline.
	HUD []string
}

// Surface is the rendering target of one visible board. It keeps a single RGBA buffer,
// reallocated only when the pixel size changes, and must be closed when the board goes away.
type Surface struct {
	mu      sync.Mutex
	palette board.Palette
	img     *image.RGBA
	closed  bool
}

func NewSurface(pal board.Palette) *Surface {
	return &Surface{palette: pal}
}

var (
	hudTextColor = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
)

// Render draws the board into the surface and returns the backing image.
// The returned image is owned by the surface and is only valid until the next call.
func (s *Surface) Render(ctx context.Context, cp board.CheckerPositions, size board.Size, opts Options) (*image.RGBA, error) {
	if s == nil {
		return nil, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render(ctx, cp, size, opts)
}

// RenderPNG renders and encodes in one step. The bytes are independent of the surface.
func (s *Surface) RenderPNG(ctx context.Context, cp board.CheckerPositions, size board.Size, opts Options) ([]byte, error) {
	if s == nil {
		return nil, ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	img, err := s.render(ctx, cp, size, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// render validates and lays out the scene before any pixel is touched,
// so a malformed model leaves the previous frame intact.
func (s *Surface) render(ctx context.Context, cp board.CheckerPositions, size board.Size, opts Options) (*image.RGBA, error) {
	if s.closed {
		return nil, ErrClosed
	}
	scene, err := board.Layout(cp, size, s.palette)
	if err != nil {
		return nil, err
	}
	w := int(math.Round(size.Width))
	h := int(math.Round(size.Height))
	if w <= 0 || h <= 0 {
		return nil, board.ErrDegenerateSize
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(sceneSVG(scene)))
	if err != nil {
		return nil, fmt.Errorf("parse scene svg: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := s.acquire(w, h)
	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)

	drawHUD(img, scene.Bar, opts.HUD)
	return img, nil
}

// Close releases the pixel buffer. Further renders fail with ErrClosed.
func (s *Surface) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	s.img = nil
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Surface) acquire(w, h int) *image.RGBA {
	if s.img == nil || s.img.Bounds().Dx() != w || s.img.Bounds().Dy() != h {
		s.img = image.NewRGBA(image.Rect(0, 0, w, h))
		return s.img
	}
	imagedraw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, imagedraw.Src)
	return s.img
}

func sceneSVG(scene board.Scene) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(scene.Size.Width), num(scene.Size.Height), num(scene.Size.Width), num(scene.Size.Height))
	bar := scene.Bar
	fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`,
		num(bar.X), num(bar.Y), num(bar.W), num(bar.H), bar.Fill)
	for _, w := range scene.Wedges {
		v := w.Vertices
		fmt.Fprintf(&b, `<polygon points="%s,%s %s,%s %s,%s" fill="%s"/>`,
			num(v[0].X), num(v[0].Y), num(v[1].X), num(v[1].Y), num(v[2].X), num(v[2].Y), w.Fill)
	}
	for _, c := range scene.Checkers {
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s" stroke="%s" stroke-width="%s"/>`,
			num(c.Center.X), num(c.Center.Y), num(c.DrawRadius), c.Fill, c.Stroke, num(c.StrokeWidth))
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func num(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func drawHUD(img *image.RGBA, bar board.Rect, lines []string) {
	if img == nil || len(lines) == 0 {
		return
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(hudTextColor),
		Face: face,
	}
	lineHeight := face.Metrics().Height.Ceil()
	centerX := int(math.Round(bar.X + bar.W/2))
	first := int(math.Round(bar.H/2)) - lineHeight*len(lines)/2 + face.Metrics().Ascent.Ceil()
	for i, line := range lines {
		drawCenteredText(drawer, strings.TrimSpace(line), centerX, first+i*lineHeight)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
