package motion

import (
	"image/color"
	"time"
)

const (
	DefaultInterval            = 200 * time.Millisecond
	DefaultInitialCaptureDelay = 200 * time.Millisecond
	DefaultPixelThreshold      = 20
	DefaultMotionThreshold     = 5000
	DefaultPixelSkip           = 10
)

// Config holds the sampling cadence and the empirically chosen diff thresholds.
type Config struct {
	Interval            time.Duration
	InitialCaptureDelay time.Duration
	// PixelThreshold is the per-channel absolute difference (0-255) above which a pixel counts as changed.
	PixelThreshold int
	// MotionThreshold is the changed-pixel count above which a frame is in motion.
	MotionThreshold int
	// PixelSkip compares one pixel in every PixelSkip along the buffer.
	PixelSkip int
	// Marker colors changed pixels in the highlight raster.
	Marker color.RGBA
}

func DefaultConfig() Config {
	return Config{
		Interval:            DefaultInterval,
		InitialCaptureDelay: DefaultInitialCaptureDelay,
		PixelThreshold:      DefaultPixelThreshold,
		MotionThreshold:     DefaultMotionThreshold,
		PixelSkip:           DefaultPixelSkip,
		Marker:              color.RGBA{R: 255, A: 255},
	}
}

// withDefaults replaces every unset field with its default: non-positive durations,
// PixelThreshold and PixelSkip, a negative MotionThreshold and a transparent Marker.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.InitialCaptureDelay <= 0 {
		c.InitialCaptureDelay = def.InitialCaptureDelay
	}
	if c.PixelThreshold <= 0 {
		c.PixelThreshold = def.PixelThreshold
	}
	if c.MotionThreshold < 0 {
		c.MotionThreshold = def.MotionThreshold
	}
	if c.PixelSkip <= 0 {
		c.PixelSkip = def.PixelSkip
	}
	if c.Marker.A == 0 {
		c.Marker = def.Marker
	}
	return c
}
