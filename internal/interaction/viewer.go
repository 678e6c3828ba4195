package interaction

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/gammon-vision/internal/board"
	"github.com/park285/gammon-vision/internal/boardrender"
	"github.com/park285/gammon-vision/internal/msgcat"
)

var ErrNoSession = errors.New("no game session")

// Viewer renders the latest live snapshot read-only. Every Apply replaces the previous
// snapshot outright; nothing is diffed.
type Viewer struct {
	mu      sync.Mutex
	latest  *board.GameData
	size    board.Size
	surface *boardrender.Surface
	catalog *msgcat.Catalog
	logger  *zap.Logger
}

func NewViewer(width float64, pal board.Palette, catalog *msgcat.Catalog, logger *zap.Logger) *Viewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = msgcat.MustDefault()
	}
	return &Viewer{
		size:    board.NewSize(width),
		surface: boardrender.NewSurface(pal),
		catalog: catalog,
		logger:  logger,
	}
}

// Apply stores gd as the latest snapshot. A malformed snapshot is dropped and the
// previous one kept.
func (v *Viewer) Apply(gd board.GameData) error {
	if err := gd.Validate(); err != nil {
		v.logger.Warn("viewer_snapshot_rejected", zap.Error(err))
		return err
	}
	cp := gd.Clone()
	v.mu.Lock()
	v.latest = &cp
	v.mu.Unlock()
	return nil
}

func (v *Viewer) Latest() (board.GameData, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.latest == nil {
		return board.GameData{}, false
	}
	return v.latest.Clone(), true
}

func (v *Viewer) Resize(width float64) {
	v.mu.Lock()
	v.size = board.NewSize(width)
	v.mu.Unlock()
}

// Render draws the latest snapshot with a dice/turn HUD and returns PNG bytes.
func (v *Viewer) Render(ctx context.Context) ([]byte, error) {
	v.mu.Lock()
	latest := v.latest
	size := v.size
	v.mu.Unlock()

	if latest == nil {
		v.logger.Info(v.catalog.Text("session.none", nil))
		return nil, ErrNoSession
	}
	return v.surface.RenderPNG(ctx, latest.CheckerPositions, size, boardrender.Options{
		HUD: HUDLines(v.catalog, *latest),
	})
}

// Close releases the rendering surface.
func (v *Viewer) Close() error {
	return v.surface.Close()
}

// HUDLines renders the dice and turn lines shown on the bar.
func HUDLines(cat *msgcat.Catalog, gd board.GameData) []string {
	var lines []string
	if len(gd.Dice) > 0 {
		if s, err := cat.Render("hud.dice", map[string]any{"Dice": gd.Dice}); err == nil {
			lines = append(lines, s)
		}
	}
	if gd.CurrentPlayer != "" {
		if s, err := cat.Render("hud.turn", map[string]any{"Player": gd.CurrentPlayer}); err == nil {
			lines = append(lines, s)
		}
	}
	return lines
}
