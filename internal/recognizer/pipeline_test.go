package recognizer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/park285/gammon-vision/internal/board"
)

type fakePublisher struct {
	mu   sync.Mutex
	got  []board.GameData
	err  error
	hook func()
}

func (f *fakePublisher) Publish(_ context.Context, gd board.GameData) error {
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, gd)
	return nil
}

func recognizerServer(t *testing.T, calls *[]string, mu *sync.Mutex) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*calls = append(*calls, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/api/backgammon/detect":
			_, _ = w.Write([]byte("annotated"))
		case "/api/backgammon/parse":
			_, _ = io.WriteString(w, parseBody())
		case "/api/backgammon/hint":
			_, _ = io.WriteString(w, `[{"move_number":1,"moves":"24/18 13/11","equity":0.01}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPipelineRunsInOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := recognizerServer(t, &calls, &mu)
	pub := &fakePublisher{}
	var hinted []Hint
	dir := t.TempDir()

	p := NewPipeline(NewClient(srv.URL), pub, func(_ board.GameData, h []Hint) { hinted = h }, dir, nil)
	if err := p.Run(context.Background(), []byte("jpeg"), "capture-1.jpg"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"/api/backgammon/detect", "/api/backgammon/parse", "/api/backgammon/hint"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v", calls)
		}
	}
	if len(pub.got) != 1 || pub.got[0].CheckerPositions.Total() != 3 {
		t.Fatalf("published = %+v", pub.got)
	}
	if len(hinted) != 1 || hinted[0].Moves != "24/18 13/11" {
		t.Fatalf("hints = %+v", hinted)
	}
	if raw, err := os.ReadFile(filepath.Join(dir, "capture-1.jpg")); err != nil || string(raw) != "jpeg" {
		t.Fatalf("saved capture: %q %v", raw, err)
	}
	if raw, err := os.ReadFile(filepath.Join(dir, "detected-capture-1.jpg")); err != nil || string(raw) != "annotated" {
		t.Fatalf("saved detection: %q %v", raw, err)
	}
}

func TestPipelinePublishFailureSkipsHints(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := recognizerServer(t, &calls, &mu)
	boom := errors.New("redis down")
	hinted := false

	p := NewPipeline(NewClient(srv.URL), &fakePublisher{err: boom}, func(board.GameData, []Hint) { hinted = true }, "", nil)
	err := p.Run(context.Background(), []byte("jpeg"), "capture-2.jpg")
	if !errors.Is(err, boom) {
		t.Fatalf("expected publish error, got %v", err)
	}
	if hinted || len(calls) != 2 {
		t.Fatalf("hints ran after failed publish: calls=%v", calls)
	}
}

func TestPipelineCancelledAfterPublish(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := recognizerServer(t, &calls, &mu)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := &fakePublisher{hook: cancel}

	p := NewPipeline(NewClient(srv.URL), pub, nil, "", nil)
	if err := p.Run(ctx, []byte("jpeg"), "capture-3.jpg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for _, c := range calls {
		if c == "/api/backgammon/hint" {
			t.Fatalf("hint requested after cancellation")
		}
	}
}
