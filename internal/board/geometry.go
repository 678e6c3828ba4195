package board

import "math"

const (
	// Columns is the number of equal-width columns across the board: 12 point columns and the bar.
	Columns = 13
	// BarColumn is the zero-based column occupied by the center bar.
	BarColumn = 6

	DefaultWidth = 900
)

// Vec is a screen-space coordinate in device-independent pixels.
type Vec struct {
	X float64
	Y float64
}

// AspectRatio is width/height for a board of the given width.
func AspectRatio(width float64) float64 {
	return width / (width - (width/Columns)*3)
}

// Size is the board viewport. Height is always derived from Width.
type Size struct {
	Width  float64
	Height float64
}

// NewSize derives the height for width. Non-positive widths give the zero Size.
func NewSize(width float64) Size {
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return Size{}
	}
	return Size{Width: width, Height: width / AspectRatio(width)}
}

func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

func (s Size) BarWidth() float64 {
	return s.Width / Columns
}

func (s Size) CheckerRadius() float64 {
	return s.BarWidth() / 2
}

// WedgeHeight is the length of a point triangle from the board edge to its apex.
func (s Size) WedgeHeight() float64 {
	return s.Height/2 - s.Height/25/AspectRatio(s.Width)
}

// IsTopHalf reports whether a point index sits on the top row.
func IsTopHalf(index int) bool {
	return index > 12
}

// PointIndexToX returns the left edge of the column holding point index.
// Points 1-12 run right to left along the bottom, 13-24 left to right along the top.
func PointIndexToX(index int, width, barWidth float64) float64 {
	switch {
	case index <= 6:
		return width - float64(index)*barWidth
	case index <= 12:
		return width - float64(index+1)*barWidth
	case index <= 18:
		return float64(index-13) * barWidth
	default:
		return float64(index-12) * barWidth
	}
}

// pointForColumn inverts PointIndexToX for a column on the given half.
func pointForColumn(column int, bottom bool) int {
	if bottom {
		if column < BarColumn {
			return 12 - column
		}
		return 13 - column
	}
	if column < BarColumn {
		return column + 13
	}
	return column + 12
}
