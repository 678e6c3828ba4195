package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/gammon-vision/internal/board"
	"github.com/park285/gammon-vision/internal/camera"
	"github.com/park285/gammon-vision/internal/capture"
	appcfg "github.com/park285/gammon-vision/internal/config"
	"github.com/park285/gammon-vision/internal/livesession"
	"github.com/park285/gammon-vision/internal/motion"
	"github.com/park285/gammon-vision/internal/msgcat"
	"github.com/park285/gammon-vision/internal/obslog"
	"github.com/park285/gammon-vision/internal/recognizer"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.ValidateCapture(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	src, err := buildSource(cfg)
	if err != nil {
		log.Fatalf("camera init error: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pctx).Err(); err != nil {
		cancel()
		log.Fatalf("redis ping error: %v", err)
	}
	cancel()
	hub := livesession.NewHub(rdb, cfg.SessionChannel, obslog.Named("session"))

	rec := recognizer.NewClient(cfg.RecognizerBaseURL, recognizer.WithTimeout(cfg.RecognizerTimeout))
	pipeline := recognizer.NewPipeline(rec, hub, logHints(obslog.Named("hints")), cfg.CaptureDir, obslog.Named("pipeline"))

	orch := capture.New(src, cfg.Motion(), func(ctx context.Context, c capture.Capture) error {
		return pipeline.Run(ctx, c.Image, c.Filename)
	}, capture.Options{
		Width:   cfg.CaptureWidth,
		Height:  cfg.CaptureHeight,
		Quality: cfg.CaptureJPEGQuality,
		Logger:  obslog.Named("capture"),
		Catalog: catalog,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.SessionWSAddr != "" {
		srv = &http.Server{
			Addr:              cfg.SessionWSAddr,
			Handler:           routes(orch, livesession.NewHandler(hub, obslog.Named("ws"))),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http_listen", zap.String("addr", cfg.SessionWSAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http_serve_failed", zap.Error(err))
				stop()
			}
		}()
	}

	go reportStatus(ctx, orch, logger)

	runErr := orch.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("capture_stopped", zap.String("status", orch.StatusLine()), zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	_ = hub.Close()
	_ = rdb.Close()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		obslog.Sync()
		os.Exit(1)
	}
}

func buildSource(cfg *appcfg.AppConfig) (motion.Source, error) {
	if cfg.CameraReplayDir != "" {
		return camera.NewReplaySource(cfg.CameraReplayDir, cfg.CaptureWidth, cfg.CaptureHeight)
	}
	return camera.NewSnapshotSource(cfg.CameraSnapshotURL,
		camera.WithTimeout(cfg.CameraTimeout),
		camera.WithDisplaySize(cfg.CaptureWidth, cfg.CaptureHeight),
	), nil
}

func routes(orch *capture.Orchestrator, ws http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.HandleFunc("POST /capture", func(w http.ResponseWriter, r *http.Request) {
		if err := orch.CaptureNow(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(orch.StatusLine() + "\n"))
	})
	mux.HandleFunc("GET /highlight", func(w http.ResponseWriter, r *http.Request) {
		png, err := orch.Highlight()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})
	return mux
}

// reportStatus logs the status line whenever it changes.
func reportStatus(ctx context.Context, orch *capture.Orchestrator, logger *zap.Logger) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			line := orch.StatusLine()
			if line != last {
				logger.Info("capture_status", zap.String("status", line), zap.Int("captures", orch.Status().Captures))
				last = line
			}
		}
	}
}

func logHints(logger *zap.Logger) recognizer.HintsFunc {
	return func(gd board.GameData, hints []recognizer.Hint) {
		dice := make([]int, 0, len(gd.Dice))
		for _, d := range gd.Dice {
			dice = append(dice, d.Value)
		}
		if len(hints) == 0 {
			logger.Info("hints_empty", zap.Ints("dice", dice))
			return
		}
		for _, h := range hints {
			logger.Info("hint",
				zap.Ints("dice", dice),
				zap.Int("move_number", h.MoveNumber),
				zap.String("moves", h.Moves),
				zap.Float64("equity", h.Equity),
			)
		}
	}
}
