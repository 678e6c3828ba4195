package motion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"go.uber.org/zap"
)

var ErrGateClosed = errors.New("motion gate closed")

// TickResult describes one sampling tick.
type TickResult struct {
	Result
	// Skipped is set when the source had no usable frame (zero size or not ready yet).
	Skipped bool
	// Settled is set exactly once per MOVING → SETTLED transition.
	Settled bool
	Phase   Phase
	// Frame is the sampled image, kept so a settle capture uses the frame that settled.
	Frame image.Image
}

// Gate samples a Source, classifies motion and debounces settle events.
// It exclusively owns its detector rasters; Close releases them.
type Gate struct {
	mu       sync.Mutex
	src      Source
	detector *Detector
	debounce Debouncer
	last     image.Image
	ready    bool
	err      error
	closed   bool
	logger   *zap.Logger
}

func NewGate(src Source, cfg Config, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		src:      src,
		detector: NewDetector(cfg),
		logger:   logger,
	}
}

// Tick runs one sampling cycle. ErrSourceUnavailable is terminal and sticky;
// other source errors skip the tick and are returned for logging.
func (g *Gate) Tick(ctx context.Context) (TickResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return TickResult{Skipped: true}, ErrGateClosed
	}
	if g.err != nil {
		return TickResult{Skipped: true, Phase: g.debounce.Phase()}, g.err
	}

	frame, err := g.src.Frame(ctx)
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			g.err = err
			g.logger.Error("motion_source_unavailable", zap.Error(err))
			return TickResult{Skipped: true, Phase: g.debounce.Phase()}, err
		}
		if errors.Is(err, ErrNoFrame) {
			return TickResult{Skipped: true, Phase: g.debounce.Phase()}, nil
		}
		return TickResult{Skipped: true, Phase: g.debounce.Phase()}, fmt.Errorf("read frame: %w", err)
	}
	if frame.Empty() {
		return TickResult{Skipped: true, Phase: g.debounce.Phase()}, nil
	}
	g.ready = true
	g.last = frame.Image

	res := g.detector.Compare(frame)
	out := TickResult{Result: res, Frame: frame.Image}
	if res.Compared {
		out.Settled = g.debounce.Observe(res.Moving)
		g.logger.Debug("motion_tick",
			zap.Int("changed", res.ChangedPixels),
			zap.Bool("moving", res.Moving),
			zap.Stringer("phase", g.debounce.Phase()),
		)
	}
	out.Phase = g.debounce.Phase()
	return out, nil
}

// Snapshot returns the most recently ticked frame for forced and manual captures.
// The source is not polled, so the tick sequence seen by the detector is unchanged.
func (g *Gate) Snapshot(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrGateClosed
	}
	if g.err != nil {
		return nil, g.err
	}
	if g.last == nil {
		return nil, ErrNoFrame
	}
	return g.last, nil
}

// Ready reports whether the source has produced at least one usable frame.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Err returns the terminal source error, if any.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Highlight encodes the latest motion overlay as PNG.
func (g *Gate) Highlight() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	hl := g.detector.Highlight()
	if hl == nil {
		return nil, ErrNoFrame
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, hl); err != nil {
		return nil, fmt.Errorf("encode highlight: %w", err)
	}
	return buf.Bytes(), nil
}

// Close releases the rasters. It is safe to call more than once.
func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	g.last = nil
	g.detector.Close()
	return nil
}
