package motion

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"testing"
)

func TestDebouncerNeedsTwoStillTicks(t *testing.T) {
	var d Debouncer
	if d.Observe(true) {
		t.Fatalf("motion tick fired")
	}
	if d.Observe(false) {
		t.Fatalf("single still tick after motion must not fire")
	}
	if !d.Observe(false) {
		t.Fatalf("second still tick must fire")
	}
	if d.Phase() != Settled {
		t.Fatalf("phase = %s", d.Phase())
	}
	for i := 0; i < 5; i++ {
		if d.Observe(false) {
			t.Fatalf("fired again without motion on tick %d", i)
		}
	}
}

func TestDebouncerMotionResetsPending(t *testing.T) {
	var d Debouncer
	seq := []bool{true, false, true, false, true, false, false}
	fired := 0
	for _, m := range seq {
		if d.Observe(m) {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}
}

func TestDebouncerIdleStartNeverFires(t *testing.T) {
	var d Debouncer
	for i := 0; i < 10; i++ {
		if d.Observe(false) {
			t.Fatalf("fired without any motion")
		}
	}
}

type scripted struct {
	frames []Frame
	errs   []error
	i      int
}

func (s *scripted) Frame(ctx context.Context) (Frame, error) {
	if s.i >= len(s.frames) {
		return Frame{}, ErrNoFrame
	}
	f, err := s.frames[s.i], s.errs[s.i]
	s.i++
	return f, err
}

func (s *scripted) add(f Frame, err error) *scripted {
	s.frames = append(s.frames, f)
	s.errs = append(s.errs, err)
	return s
}

func TestGateSettleFlow(t *testing.T) {
	still := frameOf(withChanged(20, 10, 0))
	moved := frameOf(withChanged(20, 10, 200))
	src := (&scripted{}).
		add(still, nil). // first frame, nothing to compare
		add(moved, nil). // motion
		add(moved, nil). // still (same as previous)
		add(moved, nil)  // still again -> settle

	g := NewGate(src, testConfig(1, 100), nil)
	defer g.Close()
	ctx := context.Background()

	var settled []int
	for i := 0; i < 4; i++ {
		res, err := g.Tick(ctx)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if res.Settled {
			settled = append(settled, i)
		}
	}
	if len(settled) != 1 || settled[0] != 3 {
		t.Fatalf("settled on ticks %v, want [3]", settled)
	}
	if !g.Ready() {
		t.Fatalf("gate should be ready")
	}
}

func TestGateSkipsZeroSizeAndMissingFrames(t *testing.T) {
	src := (&scripted{}).
		add(Frame{Image: solid(4, 4, color.RGBA{}), Width: 0, Height: 0}, nil).
		add(Frame{}, ErrNoFrame)
	g := NewGate(src, DefaultConfig(), nil)
	defer g.Close()
	for i := 0; i < 2; i++ {
		res, err := g.Tick(context.Background())
		if err != nil || !res.Skipped {
			t.Fatalf("tick %d: res=%+v err=%v", i, res, err)
		}
	}
	if g.Ready() {
		t.Fatalf("gate must not be ready without a usable frame")
	}
}

func TestGateSourceUnavailableIsTerminal(t *testing.T) {
	denied := fmt.Errorf("camera: %w", ErrSourceUnavailable)
	src := (&scripted{}).
		add(Frame{}, denied).
		add(frameOf(solid(4, 4, color.RGBA{A: 255})), nil)
	g := NewGate(src, DefaultConfig(), nil)
	defer g.Close()
	for i := 0; i < 2; i++ {
		_, err := g.Tick(context.Background())
		if !errors.Is(err, ErrSourceUnavailable) {
			t.Fatalf("tick %d: expected ErrSourceUnavailable, got %v", i, err)
		}
	}
	if src.i != 1 {
		t.Fatalf("source polled after terminal error")
	}
}

func TestGateTransientErrorContinues(t *testing.T) {
	src := (&scripted{}).
		add(Frame{}, errors.New("timeout")).
		add(frameOf(solid(4, 4, color.RGBA{A: 255})), nil)
	g := NewGate(src, DefaultConfig(), nil)
	defer g.Close()
	if _, err := g.Tick(context.Background()); err == nil {
		t.Fatalf("expected transient error")
	}
	res, err := g.Tick(context.Background())
	if err != nil || res.Skipped {
		t.Fatalf("gate did not recover: res=%+v err=%v", res, err)
	}
}

func TestGateSnapshotDoesNotPollSource(t *testing.T) {
	still := frameOf(withChanged(20, 10, 0))
	moved := frameOf(withChanged(20, 10, 200))
	src := (&scripted{}).
		add(still, nil).
		add(moved, nil)
	g := NewGate(src, testConfig(1, 100), nil)
	defer g.Close()
	ctx := context.Background()

	if _, err := g.Snapshot(ctx); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("Snapshot before first tick = %v", err)
	}
	if _, err := g.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	for i := 0; i < 3; i++ {
		img, err := g.Snapshot(ctx)
		if err != nil || img != still.Image {
			t.Fatalf("Snapshot %d: %v", i, err)
		}
	}
	if src.i != 1 {
		t.Fatalf("source polled %d times, want 1", src.i)
	}

	// the next tick compares consecutive source frames
	res, err := g.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !res.Compared || !res.Moving || res.ChangedPixels != 200 {
		t.Fatalf("tick after snapshots: %+v", res.Result)
	}
	if img, _ := g.Snapshot(ctx); img != moved.Image {
		t.Fatalf("Snapshot did not follow the latest tick")
	}
}

func TestGateHighlightAndClose(t *testing.T) {
	src := (&scripted{}).
		add(frameOf(withChanged(8, 8, 0)), nil).
		add(frameOf(withChanged(8, 8, 10)), nil)
	g := NewGate(src, testConfig(1, 0), nil)
	if _, err := g.Highlight(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame before first frame, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := g.Tick(context.Background()); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	png, err := g.Highlight()
	if err != nil || len(png) == 0 {
		t.Fatalf("Highlight: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := g.Tick(context.Background()); !errors.Is(err, ErrGateClosed) {
		t.Fatalf("expected ErrGateClosed, got %v", err)
	}
}
