package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/gammon-vision/internal/motion"
	"github.com/park285/gammon-vision/internal/msgcat"
)

var ErrClosed = errors.New("capture orchestrator closed")

type Trigger string

const (
	TriggerInitial Trigger = "initial"
	TriggerSettle  Trigger = "settle"
	TriggerManual  Trigger = "manual"
)

// Capture is one captured still, ready to hand to the recognizer.
type Capture struct {
	Image       []byte
	Filename    string
	ContentType string
	Trigger     Trigger
	At          time.Time
}

// Handler receives captures. ctx is cancelled when a newer capture supersedes this one
// or the orchestrator shuts down.
type Handler func(ctx context.Context, c Capture) error

type Options struct {
	Width   int
	Height  int
	Quality int
	Logger  *zap.Logger
	Catalog *msgcat.Catalog
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	Ready       bool
	Moving      bool
	Captures    int
	LastCapture string
	Err         error
}

type manualRequest struct {
	ctx   context.Context
	reply chan error
}

// Orchestrator waits for the source, forces one capture after the initial delay, then
// captures on every settle until Run returns. All capture decisions happen on the Run
// goroutine; only delivery to the Handler runs on its own goroutine.
type Orchestrator struct {
	gate    *motion.Gate
	cfg     motion.Config
	handler Handler
	opts    Options
	logger  *zap.Logger
	catalog *msgcat.Catalog

	manual  chan manualRequest
	done    chan struct{}
	running atomic.Bool

	mu     sync.Mutex
	status Status

	inflight context.CancelFunc
	wg       sync.WaitGroup
}

func New(src motion.Source, cfg motion.Config, handler Handler, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = msgcat.MustDefault()
	}
	def := motion.DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.InitialCaptureDelay <= 0 {
		cfg.InitialCaptureDelay = def.InitialCaptureDelay
	}
	return &Orchestrator{
		gate:    motion.NewGate(src, cfg, logger),
		cfg:     cfg,
		handler: handler,
		opts:    opts,
		logger:  logger,
		catalog: catalog,
		manual:  make(chan manualRequest),
		done:    make(chan struct{}),
	}
}

// Run drives the sampling loop until ctx is cancelled or the source becomes unavailable.
// A terminal source error is returned and kept in Status. Run may only be called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrClosed
	}
	gate := o.gate
	ticker := time.NewTicker(o.cfg.Interval)
	var initial *time.Timer
	var initialC <-chan time.Time

	defer func() {
		ticker.Stop()
		if initial != nil {
			initial.Stop()
		}
		o.mu.Lock()
		if o.inflight != nil {
			o.inflight()
			o.inflight = nil
		}
		o.mu.Unlock()
		o.wg.Wait()
		_ = gate.Close()
		close(o.done)
	}()

	o.logger.Info("capture_started",
		zap.Duration("interval", o.cfg.Interval),
		zap.Duration("initial_delay", o.cfg.InitialCaptureDelay),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			res, err := gate.Tick(ctx)
			if err != nil {
				if errors.Is(err, motion.ErrSourceUnavailable) {
					o.setErr(err)
					return err
				}
				o.logger.Warn("capture_tick_failed", zap.Error(err))
				continue
			}
			if res.Skipped {
				continue
			}
			o.mu.Lock()
			firstReady := !o.status.Ready
			o.status.Ready = true
			if res.Compared {
				o.status.Moving = res.Moving
			}
			o.mu.Unlock()

			if firstReady {
				initial = time.NewTimer(o.cfg.InitialCaptureDelay)
				initialC = initial.C
			}
			if res.Settled {
				o.deliver(ctx, res.Frame, TriggerSettle)
			}

		case <-initialC:
			initialC = nil
			img, err := gate.Snapshot(ctx)
			if err != nil {
				if errors.Is(err, motion.ErrSourceUnavailable) {
					o.setErr(err)
					return err
				}
				o.logger.Warn("capture_initial_failed", zap.Error(err))
				continue
			}
			o.deliver(ctx, img, TriggerInitial)

		case req := <-o.manual:
			img, err := gate.Snapshot(req.ctx)
			if err != nil {
				req.reply <- err
				if errors.Is(err, motion.ErrSourceUnavailable) {
					o.setErr(err)
					return err
				}
				continue
			}
			req.reply <- o.deliver(ctx, img, TriggerManual)
		}
	}
}

// CaptureNow asks the running loop for an immediate capture.
func (o *Orchestrator) CaptureNow(ctx context.Context) error {
	req := manualRequest{ctx: ctx, reply: make(chan error, 1)}
	select {
	case o.manual <- req:
	case <-o.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Highlight returns the latest motion overlay as PNG.
func (o *Orchestrator) Highlight() ([]byte, error) {
	return o.gate.Highlight()
}

// StatusLine renders the status for display.
func (o *Orchestrator) StatusLine() string {
	st := o.Status()
	switch {
	case st.Err != nil:
		return o.catalog.Text("status.source_error", map[string]any{"Error": st.Err.Error()})
	case !st.Ready:
		return o.catalog.Text("status.waiting", nil)
	case st.Moving:
		return o.catalog.Text("status.motion", nil)
	default:
		return o.catalog.Text("status.still", nil)
	}
}

// deliver encodes img and hands it to the handler, cancelling any capture still in flight.
func (o *Orchestrator) deliver(ctx context.Context, img image.Image, trigger Trigger) error {
	if img == nil {
		return motion.ErrNoFrame
	}
	data, err := EncodeJPEG(img, o.opts.Width, o.opts.Height, o.opts.Quality)
	if err != nil {
		o.logger.Error("capture_encode_failed", zap.Error(err))
		return err
	}
	c := Capture{
		Image:       data,
		Filename:    fmt.Sprintf("capture-%s.jpg", uuid.NewString()),
		ContentType: ContentType,
		Trigger:     trigger,
		At:          time.Now(),
	}

	dctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	if o.inflight != nil {
		o.inflight()
	}
	o.inflight = cancel
	o.status.Captures++
	o.status.LastCapture = c.Filename
	o.mu.Unlock()

	o.logger.Info("capture_taken",
		zap.String("file", c.Filename),
		zap.String("trigger", string(trigger)),
		zap.Int("bytes", len(data)),
	)
	if o.handler == nil {
		cancel()
		return nil
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		if err := o.handler(dctx, c); err != nil {
			if errors.Is(err, context.Canceled) {
				o.logger.Debug("capture_superseded", zap.String("file", c.Filename))
				return
			}
			o.logger.Warn("capture_delivery_failed", zap.String("file", c.Filename), zap.Error(err))
			return
		}
		o.logger.Info("capture_delivered", zap.String("file", c.Filename))
	}()
	return nil
}

func (o *Orchestrator) setErr(err error) {
	o.mu.Lock()
	o.status.Err = err
	o.status.Moving = false
	o.mu.Unlock()
	o.logger.Error("capture_source_unavailable", zap.Error(err))
}
