package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/park285/gammon-vision/internal/motion"
)

// ReplaySource plays back a directory of still images in name order, one per Frame call,
// and wraps around at the end. Useful for tuning thresholds against recorded sessions.
type ReplaySource struct {
	mu     sync.Mutex
	files  []string
	next   int
	width  int
	height int
}

// NewReplaySource lists dir once. An empty or unreadable directory is reported as
// motion.ErrSourceUnavailable.
func NewReplaySource(dir string, width, height int) (*ReplaySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %v: %w", err, motion.ErrSourceUnavailable)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("replay dir %s has no images: %w", dir, motion.ErrSourceUnavailable)
	}
	sort.Strings(files)
	return &ReplaySource{files: files, width: width, height: height}, nil
}

func (r *ReplaySource) Frame(ctx context.Context) (motion.Frame, error) {
	if err := ctx.Err(); err != nil {
		return motion.Frame{}, err
	}
	r.mu.Lock()
	path := r.files[r.next]
	r.next = (r.next + 1) % len(r.files)
	r.mu.Unlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return motion.Frame{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return toFrame(img, r.width, r.height), nil
}

// Len reports how many frames are in the loop.
func (r *ReplaySource) Len() int { return len(r.files) }
