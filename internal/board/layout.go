package board

import "fmt"

// Rect is an axis-aligned filled rectangle.
type Rect struct {
	X, Y, W, H float64
	Fill       string
}

// Wedge is the triangle of one point. Vertices[2] is the apex, pointing at the horizontal midline.
type Wedge struct {
	Point    int
	Vertices [3]Vec
	Fill     string
}

// Checker is one rendered token. Radius is the logical radius used for snapping and hit tests;
// DrawRadius leaves room for the stroke.
type Checker struct {
	Point       int
	Index       int
	Player      Player
	Center      Vec
	Radius      float64
	DrawRadius  float64
	StrokeWidth float64
	Fill        string
	Stroke      string
}

// Contains reports whether v falls inside the checker's logical circle.
func (c Checker) Contains(v Vec) bool {
	dx := v.X - c.Center.X
	dy := v.Y - c.Center.Y
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// Scene is the full list of draw primitives for one board at one size.
type Scene struct {
	Size     Size
	Bar      Rect
	Wedges   []Wedge
	Checkers []Checker
}

// Layout converts a board model into draw primitives. The model is read, never retained.
func Layout(cp CheckerPositions, size Size, pal Palette) (Scene, error) {
	if size.Empty() {
		return Scene{}, ErrDegenerateSize
	}
	if err := cp.Validate(); err != nil {
		return Scene{}, err
	}

	width, height := size.Width, size.Height
	barWidth := size.BarWidth()
	wedgeHeight := size.WedgeHeight()
	radius := size.CheckerRadius()
	aspect := AspectRatio(width)

	scene := Scene{
		Size: size,
		Bar: Rect{
			X:    width/2 - barWidth/2,
			Y:    0,
			W:    barWidth,
			H:    height,
			Fill: pal.Bar,
		},
		Wedges: make([]Wedge, 0, Points),
	}

	for i := 1; i <= Points; i++ {
		x := PointIndexToX(i, width, barWidth)
		fill := pal.DarkPoint
		if i%2 == 0 {
			fill = pal.LightPoint
		}
		w := Wedge{Point: i, Fill: fill}
		if IsTopHalf(i) {
			w.Vertices = [3]Vec{{x, 0}, {x + barWidth, 0}, {x + barWidth/2, wedgeHeight}}
		} else {
			w.Vertices = [3]Vec{{x, height}, {x + barWidth, height}, {x + barWidth/2, height - wedgeHeight}}
		}
		scene.Wedges = append(scene.Wedges, w)
	}

	for i := 1; i <= Points; i++ {
		x := PointIndexToX(i, width, barWidth) + barWidth/2
		top := IsTopHalf(i)
		for idx, pl := range cp[i] {
			fill, ok := pal.PlayerColor(pl)
			if !ok {
				return Scene{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, pl)
			}
			offset := radius + float64(idx)*2*radius
			y := height - offset
			if top {
				y = offset
			}
			scene.Checkers = append(scene.Checkers, Checker{
				Point:       i,
				Index:       idx,
				Player:      pl,
				Center:      Vec{X: x, Y: y},
				Radius:      radius,
				DrawRadius:  radius - 1/aspect,
				StrokeWidth: 1 / aspect,
				Fill:        fill,
				Stroke:      pal.Stroke,
			})
		}
	}
	return scene, nil
}

// CheckerAt returns the topmost checker under v. Later checkers are drawn above earlier ones.
func (s Scene) CheckerAt(v Vec) (Checker, bool) {
	for i := len(s.Checkers) - 1; i >= 0; i-- {
		if s.Checkers[i].Contains(v) {
			return s.Checkers[i], true
		}
	}
	return Checker{}, false
}

// CountByPoint tallies rendered checkers per point and per player.
func (s Scene) CountByPoint() (map[int]int, map[Player]int) {
	perPoint := make(map[int]int)
	perPlayer := make(map[Player]int)
	for _, c := range s.Checkers {
		perPoint[c.Point]++
		perPlayer[c.Player]++
	}
	return perPoint, perPlayer
}
