package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/park285/gammon-vision/internal/motion"
)

func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestSnapshotSourceFrame(t *testing.T) {
	body := pngBytes(t, 40, 30, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f, err := NewSnapshotSource(srv.URL).Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if f.Width != 40 || f.Height != 30 {
		t.Fatalf("size = %dx%d", f.Width, f.Height)
	}
	rgba, ok := f.Image.(*image.RGBA)
	if !ok {
		t.Fatalf("frame not normalised to RGBA: %T", f.Image)
	}
	if c := rgba.RGBAAt(5, 5); c.R != 10 || c.G != 20 || c.B != 30 {
		t.Fatalf("pixel = %+v", c)
	}

	f, err = NewSnapshotSource(srv.URL, WithDisplaySize(20, 15)).Frame(context.Background())
	if err != nil || f.Width != 20 || f.Height != 15 {
		t.Fatalf("display size not applied: %+v %v", f, err)
	}
}

func TestSnapshotSourceStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, motion.ErrSourceUnavailable},
		{http.StatusUnauthorized, motion.ErrSourceUnavailable},
		{http.StatusNotFound, motion.ErrSourceUnavailable},
		{http.StatusServiceUnavailable, motion.ErrNoFrame},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := NewSnapshotSource(srv.URL).Frame(context.Background())
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: got %v want %v", tc.status, err, tc.want)
		}
	}
}

func TestSnapshotSourceTransientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := NewSnapshotSource(srv.URL).Frame(context.Background())
	if err == nil || errors.Is(err, motion.ErrSourceUnavailable) {
		t.Fatalf("5xx must be transient, got %v", err)
	}
}

func TestReplaySourceCycles(t *testing.T) {
	dir := t.TempDir()
	colors := []color.RGBA{{R: 255, A: 255}, {G: 255, A: 255}}
	for i, c := range colors {
		name := filepath.Join(dir, []string{"a.png", "b.png"}[i])
		if err := os.WriteFile(name, pngBytes(t, 8, 8, c), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewReplaySource(dir, 0, 0)
	if err != nil {
		t.Fatalf("NewReplaySource: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("Len = %d", src.Len())
	}
	want := []uint8{255, 0, 255}
	for i, r := range want {
		f, err := src.Frame(context.Background())
		if err != nil {
			t.Fatalf("Frame %d: %v", i, err)
		}
		if got := f.Image.(*image.RGBA).RGBAAt(1, 1).R; got != r {
			t.Fatalf("frame %d red = %d want %d", i, got, r)
		}
	}
}

func TestReplaySourceEmptyDir(t *testing.T) {
	_, err := NewReplaySource(t.TempDir(), 0, 0)
	if !errors.Is(err, motion.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
