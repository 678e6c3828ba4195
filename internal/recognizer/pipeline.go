package recognizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/park285/gammon-vision/internal/board"
)

// Publisher receives every recognised board.
type Publisher interface {
	Publish(ctx context.Context, gd board.GameData) error
}

// HintsFunc receives the ranked hints for a published board.
type HintsFunc func(gd board.GameData, hints []Hint)

// Pipeline runs one capture through detect, parse, publish and hints.
// Cancelling ctx between steps abandons the rest of the run.
type Pipeline struct {
	client    *Client
	publisher Publisher
	onHints   HintsFunc
	outDir    string
	logger    *zap.Logger
}

// NewPipeline builds the pipeline. outDir may be empty, in which case nothing is written to disk.
func NewPipeline(client *Client, publisher Publisher, onHints HintsFunc, outDir string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		client:    client,
		publisher: publisher,
		onHints:   onHints,
		outDir:    outDir,
		logger:    logger,
	}
}

// Run processes a single capture.
func (p *Pipeline) Run(ctx context.Context, image []byte, filename string) error {
	if err := p.save(filename, image); err != nil {
		p.logger.Warn("pipeline_save_failed", zap.String("file", filename), zap.Error(err))
	}

	detected, err := p.client.Detect(ctx, image, filename)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	if err := p.save("detected-"+filename, detected); err != nil {
		p.logger.Warn("pipeline_save_failed", zap.String("file", filename), zap.Error(err))
	}

	gd, err := p.client.Parse(ctx, image, filename)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, gd); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}
	p.logger.Info("pipeline_board_published",
		zap.String("file", filename),
		zap.Int("checkers", gd.CheckerPositions.Total()),
		zap.Int("dice", len(gd.Dice)),
	)

	hints, err := p.client.Hints(ctx, gd)
	if err != nil {
		return fmt.Errorf("hints: %w", err)
	}
	if p.onHints != nil {
		p.onHints(gd, hints)
	}
	return nil
}

func (p *Pipeline) save(name string, data []byte) error {
	if p.outDir == "" || len(data) == 0 {
		return nil
	}
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.outDir, filepath.Base(name)), data, 0o644)
}
