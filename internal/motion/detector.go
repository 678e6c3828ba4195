package motion

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Result is the outcome of comparing one frame against the previous one.
type Result struct {
	// Compared is false when there was no comparable previous frame.
	Compared      bool
	ChangedPixels int
	Moving        bool
}

// Detector diffs consecutive frames. It owns two rasters (the scaled frame and the highlight
// overlay) plus a copy of the previous frame's pixels; all three are sized lazily and
// dropped by Close.
type Detector struct {
	cfg       Config
	raster    *image.RGBA
	highlight *image.RGBA
	prev      []uint8
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Compare draws f into the working raster and diffs it against the previous frame.
// Zero-size frames are ignored and leave all state untouched.
func (d *Detector) Compare(f Frame) Result {
	if f.Empty() {
		return Result{}
	}
	d.ensure(f.Width, f.Height)

	src := f.Image
	sb := src.Bounds()
	if sb.Dx() == f.Width && sb.Dy() == f.Height {
		xdraw.Draw(d.raster, d.raster.Bounds(), src, sb.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(d.raster, d.raster.Bounds(), src, sb, xdraw.Src, nil)
	}

	cur := d.raster.Pix
	if len(d.prev) != len(cur) {
		d.prev = append(d.prev[:0], cur...)
		return Result{}
	}

	changed := diffPixels(cur, d.prev, d.highlight.Pix, d.cfg)
	copy(d.prev, cur)
	return Result{
		Compared:      true,
		ChangedPixels: changed,
		Moving:        changed > d.cfg.MotionThreshold,
	}
}

// Highlight returns the overlay of the last comparison. Owned by the detector.
func (d *Detector) Highlight() *image.RGBA {
	return d.highlight
}

// Close releases the rasters. The next Compare starts over without a previous frame.
func (d *Detector) Close() {
	d.raster = nil
	d.highlight = nil
	d.prev = nil
}

func (d *Detector) ensure(w, h int) {
	if d.raster != nil && d.raster.Bounds().Dx() == w && d.raster.Bounds().Dy() == h {
		return
	}
	d.raster = image.NewRGBA(image.Rect(0, 0, w, h))
	d.highlight = image.NewRGBA(image.Rect(0, 0, w, h))
	d.prev = nil
}

// diffPixels walks the RGBA buffers one pixel in cfg.PixelSkip and counts pixels whose
// red, green or blue channel moved by more than cfg.PixelThreshold. Changed pixels are
// painted with the marker in mark, everything else is left transparent.
func diffPixels(cur, prev, mark []uint8, cfg Config) int {
	clear(mark)
	step := 4 * cfg.PixelSkip
	limit := cfg.PixelThreshold
	changed := 0
	for i := 0; i+3 < len(cur); i += step {
		if absDiff(cur[i], prev[i]) > limit ||
			absDiff(cur[i+1], prev[i+1]) > limit ||
			absDiff(cur[i+2], prev[i+2]) > limit {
			mark[i] = cfg.Marker.R
			mark[i+1] = cfg.Marker.G
			mark[i+2] = cfg.Marker.B
			mark[i+3] = cfg.Marker.A
			changed++
		}
	}
	return changed
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
