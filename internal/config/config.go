package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	yaml "gopkg.in/yaml.v3"

	"github.com/park285/gammon-vision/internal/board"
	"github.com/park285/gammon-vision/internal/motion"
)

type AppConfig struct {
	CameraSnapshotURL string        `env:"CAMERA_SNAPSHOT_URL"`
	CameraReplayDir   string        `env:"CAMERA_REPLAY_DIR"`
	CameraTimeout     time.Duration `env:"CAMERA_TIMEOUT" envDefault:"2s"`

	RecognizerBaseURL string        `env:"RECOGNIZER_BASE_URL"`
	RecognizerTimeout time.Duration `env:"RECOGNIZER_TIMEOUT" envDefault:"10s"`

	RedisURL       string `env:"REDIS_URL"`
	SessionChannel string `env:"SESSION_CHANNEL" envDefault:"gammon:game_data"`
	SessionWSAddr  string `env:"SESSION_WS_ADDR"`
	SessionWSURL   string `env:"SESSION_WS_URL"`

	MotionInterval       time.Duration `env:"MOTION_INTERVAL" envDefault:"200ms"`
	MotionInitialDelay   time.Duration `env:"MOTION_INITIAL_DELAY" envDefault:"200ms"`
	MotionPixelThreshold int           `env:"MOTION_PIXEL_THRESHOLD" envDefault:"20"`
	MotionThreshold      int           `env:"MOTION_THRESHOLD" envDefault:"5000"`
	MotionPixelSkip      int           `env:"MOTION_PIXEL_SKIP" envDefault:"10"`
	MotionMarker         string        `env:"MOTION_MARKER" envDefault:"#ff0000"`

	CaptureWidth       int    `env:"CAPTURE_WIDTH" envDefault:"640"`
	CaptureHeight      int    `env:"CAPTURE_HEIGHT" envDefault:"480"`
	CaptureJPEGQuality int    `env:"CAPTURE_JPEG_QUALITY" envDefault:"90"`
	CaptureDir         string `env:"CAPTURE_DIR"`

	BoardWidth int    `env:"BOARD_WIDTH" envDefault:"900"`
	ViewOutput string `env:"VIEW_OUTPUT" envDefault:"board.png"`

	MessagesDir string `env:"MESSAGES_DIR"`
	TuningFile  string `env:"TUNING_FILE"`

	Palette board.Palette
}

// Tuning is the optional YAML file that overrides empirically chosen values.
// Absent fields keep the environment value.
type Tuning struct {
	Motion struct {
		PixelThreshold  *int    `yaml:"pixel_threshold"`
		MotionThreshold *int    `yaml:"motion_threshold"`
		PixelSkip       *int    `yaml:"pixel_skip"`
		Marker          *string `yaml:"marker"`
	} `yaml:"motion"`
	Palette board.Palette `yaml:"palette"`
}

// Load parses the environment, then applies TUNING_FILE if set.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	trimAll(cfg)

	var tuning Tuning
	if cfg.TuningFile != "" {
		raw, err := os.ReadFile(cfg.TuningFile)
		if err != nil {
			return nil, fmt.Errorf("read tuning file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &tuning); err != nil {
			return nil, fmt.Errorf("parse tuning file: %w", err)
		}
	}
	if err := cfg.apply(tuning); err != nil {
		return nil, err
	}

	if cfg.BoardWidth <= 0 {
		return nil, errors.New("BOARD_WIDTH must be positive")
	}
	if cfg.MotionPixelSkip <= 0 {
		return nil, errors.New("MOTION_PIXEL_SKIP must be positive")
	}
	if cfg.MotionPixelThreshold < 1 || cfg.MotionPixelThreshold > 254 {
		return nil, errors.New("MOTION_PIXEL_THRESHOLD must be within 1..254")
	}
	if cfg.MotionThreshold < 0 {
		return nil, errors.New("MOTION_THRESHOLD must not be negative")
	}
	if cfg.MotionInterval <= 0 || cfg.MotionInitialDelay <= 0 {
		return nil, errors.New("MOTION_INTERVAL and MOTION_INITIAL_DELAY must be positive")
	}
	if cfg.CaptureJPEGQuality < 1 || cfg.CaptureJPEGQuality > 100 {
		return nil, errors.New("CAPTURE_JPEG_QUALITY must be within 1..100")
	}
	return cfg, nil
}

func (c *AppConfig) apply(t Tuning) error {
	if v := t.Motion.PixelThreshold; v != nil {
		c.MotionPixelThreshold = *v
	}
	if v := t.Motion.MotionThreshold; v != nil {
		c.MotionThreshold = *v
	}
	if v := t.Motion.PixelSkip; v != nil {
		c.MotionPixelSkip = *v
	}
	if v := t.Motion.Marker; v != nil {
		c.MotionMarker = strings.TrimSpace(*v)
	}
	if _, err := board.HexToRGBA(c.MotionMarker); err != nil {
		return fmt.Errorf("motion marker: %w", err)
	}
	pal, err := board.ParsePalette(t.Palette)
	if err != nil {
		return err
	}
	c.Palette = pal
	return nil
}

// ValidateCapture checks what the capture pipeline needs.
func (c *AppConfig) ValidateCapture() error {
	if c.CameraSnapshotURL == "" && c.CameraReplayDir == "" {
		return errors.New("CAMERA_SNAPSHOT_URL or CAMERA_REPLAY_DIR is required")
	}
	if c.RecognizerBaseURL == "" {
		return errors.New("RECOGNIZER_BASE_URL is required")
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	return nil
}

// ValidateViewer checks what the passive viewer needs.
func (c *AppConfig) ValidateViewer() error {
	if c.SessionWSURL == "" {
		return errors.New("SESSION_WS_URL is required")
	}
	return nil
}

// Motion converts the thresholds into a motion.Config.
func (c *AppConfig) Motion() motion.Config {
	cfg := motion.DefaultConfig()
	cfg.Interval = c.MotionInterval
	cfg.InitialCaptureDelay = c.MotionInitialDelay
	cfg.PixelThreshold = c.MotionPixelThreshold
	cfg.MotionThreshold = c.MotionThreshold
	cfg.PixelSkip = c.MotionPixelSkip
	if marker, err := board.HexToRGBA(c.MotionMarker); err == nil {
		cfg.Marker = marker
	}
	return cfg
}

func trimAll(c *AppConfig) {
	for _, p := range []*string{
		&c.CameraSnapshotURL, &c.CameraReplayDir, &c.RecognizerBaseURL,
		&c.RedisURL, &c.SessionChannel, &c.SessionWSAddr, &c.SessionWSURL,
		&c.MotionMarker, &c.CaptureDir, &c.ViewOutput, &c.MessagesDir, &c.TuningFile,
	} {
		*p = strings.TrimSpace(*p)
	}
}
