package board

import (
	"fmt"
	"math"
)

// Snap locks a dragged checker center to the column and stacking grid.
// Both axes snap the checker's bounding box, so a resting checker snaps onto itself.
func Snap(center Vec, size Size) Vec {
	if size.Empty() {
		return center
	}
	barWidth := size.BarWidth()
	radius := size.CheckerRadius()

	left := center.X - radius
	x := math.Round(left/barWidth)*barWidth + radius
	if x > size.Width {
		x = size.Width - barWidth + radius
	} else if x < 0 {
		x = radius
	}

	// the row grid is anchored on the checker's top edge
	top := center.Y - radius
	top = math.Round(top/(2*radius)) * (2 * radius)

	return Vec{X: x, Y: top + radius}
}

// ResolveDrop maps a committed checker center to a point index, or Removed when it lands
// on the bar column or outside the point columns.
func ResolveDrop(center Vec, size Size) int {
	if size.Empty() {
		return Removed
	}
	column := int(math.Floor(center.X / size.BarWidth()))
	if column == BarColumn || column < 0 || column >= Columns {
		return Removed
	}
	bottom := center.Y > size.Height/2
	return pointForColumn(column, bottom)
}

// Commit moves the checker at (from, index) to dest and returns a new mapping.
// dest == Removed drops the checker. The input mapping is left untouched.
func Commit(cp CheckerPositions, from, index, dest int) (CheckerPositions, error) {
	if from < 1 || from > Points {
		return nil, fmt.Errorf("%w: point %d", ErrNoChecker, from)
	}
	if dest != Removed && (dest < 1 || dest > Points) {
		return nil, fmt.Errorf("invalid destination point %d", dest)
	}
	origin := cp[from]
	if index < 0 || index >= len(origin) {
		return nil, fmt.Errorf("%w: point %d index %d", ErrNoChecker, from, index)
	}

	out := cp.Clone()
	moved := out[from][index]
	out[from] = append(out[from][:index], out[from][index+1:]...)
	if dest != Removed {
		out[dest] = append(out[dest], moved)
	}
	return out, nil
}
