// Package imagefile writes captured bitmaps to disk.
package imagefile

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// FormatFromPath picks a format from the file extension. Unknown extensions map to PNG.
func FormatFromPath(path string) Format {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "jpg", "jpeg":
		return JPEG
	case "bmp":
		return BMP
	case "tif", "tiff":
		return TIFF
	default:
		return PNG
	}
}

// Save encodes img to path. An empty format is derived from the extension.
func Save(img image.Image, path string, format Format) error {
	if img == nil || img.Bounds().Empty() {
		return errors.New("empty image")
	}
	if format == "" {
		format = FormatFromPath(path)
	}

	var encode func(f *os.File) error
	switch format {
	case PNG:
		encode = func(f *os.File) error { return png.Encode(f, img) }
	case JPEG:
		encode = func(f *os.File) error { return jpeg.Encode(f, img, &jpeg.Options{Quality: 95}) }
	case BMP:
		encode = func(f *os.File) error { return bmp.Encode(f, img) }
	case TIFF:
		encode = func(f *os.File) error { return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}) }
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// NextPath returns dir/snip_YYYYMMDD_HHMMSS.png, adding _1, _2, ... while the name is taken.
func NextPath(dir string, now time.Time) string {
	base := "snip_" + now.Format("20060102_150405")
	path := filepath.Join(dir, base+".png")
	for n := 1; exists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.png", base, n))
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
