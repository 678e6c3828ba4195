package interaction

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/gammon-vision/internal/board"
)

var (
	ErrReadOnly = errors.New("board is read-only")
	ErrNoDrag   = errors.New("no checker is being dragged")
)

// MoveFunc receives the full updated mapping after a drag commit.
type MoveFunc func(cp board.CheckerPositions)

// Drag is the checker currently held by the pointer.
type Drag struct {
	Checker board.Checker
	// Grab is the pointer offset from the checker center at pointer-down.
	Grab board.Vec
	// Position is the snapped checker center.
	Position board.Vec
}

type Options struct {
	Palette  board.Palette
	ReadOnly bool
	OnMove   MoveFunc
	Logger   *zap.Logger
}

// Controller turns pointer events on a rendered board into checker moves.
// It keeps a private copy of the game data; the canonical snapshot stays with the caller,
// which is expected to feed the result of OnMove back through SetGameData.
type Controller struct {
	mu       sync.Mutex
	data     board.GameData
	size     board.Size
	palette  board.Palette
	readOnly bool
	scene    board.Scene
	sceneErr error
	drag     *Drag
	onMove   MoveFunc
	logger   *zap.Logger
}

func NewController(width float64, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pal, err := board.ParsePalette(opts.Palette)
	if err != nil {
		logger.Warn("interaction_palette_invalid", zap.Error(err))
		pal = board.DefaultPalette()
	}
	c := &Controller{
		data:     board.GameData{CheckerPositions: board.EmptyPositions()},
		size:     board.NewSize(width),
		palette:  pal,
		readOnly: opts.ReadOnly,
		onMove:   opts.OnMove,
		logger:   logger,
	}
	c.relayout()
	return c
}

// SetGameData replaces the board model. Invalid models are rejected and the previous
// model stays in place.
func (c *Controller) SetGameData(gd board.GameData) error {
	if err := gd.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = gd.Clone()
	c.drag = nil
	c.relayout()
	return nil
}

func (c *Controller) GameData() board.GameData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.Clone()
}

// Resize recomputes the board size from width and re-lays out the whole board.
// A zero width leaves an empty scene until the next non-zero resize.
func (c *Controller) Resize(width float64) board.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = board.NewSize(width)
	c.drag = nil
	c.relayout()
	return c.size
}

// Scene returns the current primitives. While a drag is active the held checker is
// reported at its snapped position.
func (c *Controller) Scene() (board.Scene, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sceneErr != nil {
		return board.Scene{}, c.sceneErr
	}
	scene := c.scene
	if c.drag != nil {
		scene.Checkers = append([]board.Checker(nil), c.scene.Checkers...)
		for i := range scene.Checkers {
			ch := scene.Checkers[i]
			if ch.Point == c.drag.Checker.Point && ch.Index == c.drag.Checker.Index {
				scene.Checkers[i].Center = c.drag.Position
			}
		}
	}
	return scene, nil
}

// PointerDown starts dragging the topmost checker under p.
func (c *Controller) PointerDown(p board.Vec) (board.Checker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readOnly {
		return board.Checker{}, ErrReadOnly
	}
	if c.sceneErr != nil {
		return board.Checker{}, c.sceneErr
	}
	ch, ok := c.scene.CheckerAt(p)
	if !ok {
		return board.Checker{}, board.ErrNoChecker
	}
	c.drag = &Drag{
		Checker:  ch,
		Grab:     board.Vec{X: p.X - ch.Center.X, Y: p.Y - ch.Center.Y},
		Position: ch.Center,
	}
	return ch, nil
}

// PointerMove moves the held checker and returns its snapped center.
func (c *Controller) PointerMove(p board.Vec) (board.Vec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return board.Vec{}, ErrNoDrag
	}
	c.drag.Position = board.Snap(c.centerFor(p), c.size)
	return c.drag.Position, nil
}

// PointerUp commits the drag. It returns the new mapping and the destination point,
// which is board.Removed when the checker was dropped on the bar or off the board.
func (c *Controller) PointerUp(p board.Vec) (board.CheckerPositions, int, error) {
	c.mu.Lock()
	if c.drag == nil {
		c.mu.Unlock()
		return nil, 0, ErrNoDrag
	}
	final := board.Snap(c.centerFor(p), c.size)
	drag := *c.drag
	c.drag = nil
	dest := board.ResolveDrop(final, c.size)
	out, err := board.Commit(c.data.CheckerPositions, drag.Checker.Point, drag.Checker.Index, dest)
	onMove := c.onMove
	c.mu.Unlock()

	if err != nil {
		return nil, 0, err
	}
	c.logger.Debug("checker_moved",
		zap.Int("from", drag.Checker.Point),
		zap.Int("index", drag.Checker.Index),
		zap.Int("to", dest),
	)
	if onMove != nil {
		onMove(out.Clone())
	}
	return out, dest, nil
}

// Cancel drops the current drag without committing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.drag = nil
	c.mu.Unlock()
}

// Dragging returns the active drag, if any.
func (c *Controller) Dragging() (Drag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drag == nil {
		return Drag{}, false
	}
	return *c.drag, true
}

func (c *Controller) centerFor(p board.Vec) board.Vec {
	return board.Vec{X: p.X - c.drag.Grab.X, Y: p.Y - c.drag.Grab.Y}
}

func (c *Controller) relayout() {
	c.scene, c.sceneErr = board.Layout(c.data.CheckerPositions, c.size, c.palette)
}
