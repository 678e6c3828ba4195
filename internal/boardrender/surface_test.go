package boardrender

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"testing"

	"github.com/park285/gammon-vision/internal/board"
)

func rgbAt(t *testing.T, s *Surface, cp board.CheckerPositions, size board.Size, v board.Vec) (uint8, uint8, uint8) {
	t.Helper()
	img, err := s.Render(context.Background(), cp, size, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	c := img.RGBAAt(int(math.Round(v.X)), int(math.Round(v.Y)))
	return c.R, c.G, c.B
}

func TestRenderPlacesBarAndCheckers(t *testing.T) {
	s := NewSurface(board.DefaultPalette())
	defer s.Close()
	size := board.NewSize(board.DefaultWidth)
	bw := size.BarWidth()
	r := size.CheckerRadius()
	cp := board.StartPosition()

	if rr, g, b := rgbAt(t, s, cp, size, board.Vec{X: 6.5 * bw, Y: size.Height / 2}); rr != 0x33 || g != 0x33 || b != 0x33 {
		t.Fatalf("bar pixel = %d,%d,%d", rr, g, b)
	}
	// point 1 holds player_1 (white)
	p1 := board.Vec{X: board.PointIndexToX(1, size.Width, bw) + bw/2, Y: size.Height - r}
	if rr, g, b := rgbAt(t, s, cp, size, p1); rr != 0xff || g != 0xff || b != 0xff {
		t.Fatalf("point 1 checker pixel = %d,%d,%d", rr, g, b)
	}
	// point 6 holds player_2 (red)
	p6 := board.Vec{X: board.PointIndexToX(6, size.Width, bw) + bw/2, Y: size.Height - r}
	if rr, g, b := rgbAt(t, s, cp, size, p6); rr != 0xff || g != 0 || b != 0 {
		t.Fatalf("point 6 checker pixel = %d,%d,%d", rr, g, b)
	}
}

func TestRenderPNGDimensions(t *testing.T) {
	s := NewSurface(board.DefaultPalette())
	defer s.Close()
	size := board.NewSize(650)
	raw, err := s.RenderPNG(context.Background(), board.StartPosition(), size, Options{HUD: []string{"Dice: 3 5"}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 650 || img.Bounds().Dy() != 500 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestRenderReusesBufferUntilResize(t *testing.T) {
	s := NewSurface(board.DefaultPalette())
	defer s.Close()
	ctx := context.Background()
	size := board.NewSize(900)
	a, err := s.Render(ctx, board.StartPosition(), size, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, err := s.Render(ctx, board.EmptyPositions(), size, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if a != b {
		t.Fatalf("expected buffer reuse for identical size")
	}
	c, err := s.Render(ctx, board.EmptyPositions(), board.NewSize(600), Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if c == b {
		t.Fatalf("expected reallocation after resize")
	}
}

func TestRenderMalformedKeepsPreviousFrame(t *testing.T) {
	s := NewSurface(board.DefaultPalette())
	defer s.Close()
	ctx := context.Background()
	size := board.NewSize(board.DefaultWidth)
	img, err := s.Render(ctx, board.StartPosition(), size, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	before := append([]uint8(nil), img.Pix...)

	bad := board.StartPosition()
	delete(bad, 12)
	if _, err := s.Render(ctx, bad, size, Options{}); !errors.Is(err, board.ErrMissingPoint) {
		t.Fatalf("expected ErrMissingPoint, got %v", err)
	}
	if _, err := s.Render(ctx, board.StartPosition(), board.Size{}, Options{}); !errors.Is(err, board.ErrDegenerateSize) {
		t.Fatalf("expected ErrDegenerateSize, got %v", err)
	}
	if !bytes.Equal(before, img.Pix) {
		t.Fatalf("failed render modified the surface")
	}
}

func TestRenderAfterClose(t *testing.T) {
	s := NewSurface(board.DefaultPalette())
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.RenderPNG(context.Background(), board.StartPosition(), board.NewSize(900), Options{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	s := NewSurface(board.DefaultPalette())
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Render(ctx, board.StartPosition(), board.NewSize(900), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
