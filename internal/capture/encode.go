package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	DefaultWidth   = 640
	DefaultHeight  = 480
	DefaultQuality = 90
	ContentType    = "image/jpeg"
)

// EncodeJPEG scales img to exactly width x height and encodes it as JPEG.
func EncodeJPEG(img image.Image, width, height, quality int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("encode capture: nil image")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	scaled := imaging.Resize(img, width, height, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, scaled, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	return buf.Bytes(), nil
}
