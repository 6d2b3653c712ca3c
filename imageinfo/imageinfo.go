// Package imageinfo reads format, dimensions, and EXIF hints from image bytes
// without decoding the full image.
package imageinfo

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lookanalyst/lookanalyst/models"
)

// Probe returns the format and dimensions of data. EXIF orientation and
// capture time are filled in when present; missing EXIF is not an error.
func Probe(data []byte) (*models.ImageDetails, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	details := &models.ImageDetails{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}

	if format == "jpeg" || format == "tiff" {
		readEXIF(data, details)
	}

	return details, nil
}

func readEXIF(data []byte, details *models.ImageDetails) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			details.Orientation = v
		}
	}

	if taken, err := x.DateTime(); err == nil {
		details.TakenAt = &taken
	}
}
