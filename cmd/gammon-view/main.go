package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/gammon-vision/internal/board"
	appcfg "github.com/park285/gammon-vision/internal/config"
	"github.com/park285/gammon-vision/internal/interaction"
	"github.com/park285/gammon-vision/internal/livesession"
	"github.com/park285/gammon-vision/internal/msgcat"
	"github.com/park285/gammon-vision/internal/obslog"
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
	if err := cfg.ValidateViewer(); err != nil {
		log.Fatalf("config error: %v", err)
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	viewer := interaction.NewViewer(float64(cfg.BoardWidth), cfg.Palette, catalog, obslog.Named("viewer"))
	defer viewer.Close()

	// nothing to draw until the first snapshot; this logs the no-session line
	if _, err := viewer.Render(context.Background()); !errors.Is(err, interaction.ErrNoSession) {
		logger.Warn("viewer_initial_render", zap.Error(err))
	}

	client := livesession.NewClient(cfg.SessionWSURL, 5, time.Second, obslog.Named("session"))
	client.OnStateChange(func(s livesession.State) {
		logger.Info("session_state", zap.String("state", string(s)))
		if s == livesession.StateConnected {
			if _, ok := viewer.Latest(); !ok {
				logger.Info(catalog.Text("session.waiting", nil))
			}
		}
	})
	client.OnSnapshot(func(gd board.GameData) {
		if err := viewer.Apply(gd); err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		png, err := viewer.Render(ctx)
		if err != nil {
			logger.Warn("viewer_render_failed", zap.Error(err))
			return
		}
		if err := writeFileAtomic(cfg.ViewOutput, png); err != nil {
			logger.Error("viewer_write_failed", zap.String("path", cfg.ViewOutput), zap.Error(err))
			return
		}
		logger.Info("viewer_rendered",
			zap.String("path", cfg.ViewOutput),
			zap.Int("checkers", gd.CheckerPositions.Total()),
			zap.Strings("hud", interaction.HUDLines(catalog, gd)),
		)
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := client.Connect(cctx); err != nil {
		// the client keeps retrying in the background
		logger.Warn("session_connect_failed", zap.String("url", cfg.SessionWSURL), zap.Error(err))
	}
	cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Close(closeCtx)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".board-*.png")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
