package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	// Register WEBP decoding; imaging covers JPEG/PNG/GIF/BMP/TIFF itself.
	_ "golang.org/x/image/webp"
)

// Format is one of the supported encode targets.
type Format string

const (
	JPEG Format = "JPEG"
	PNG  Format = "PNG"
	WEBP Format = "WEBP"
	BMP  Format = "BMP"
	TIFF Format = "TIFF"
)

// Formats lists the supported convert targets in schema-enum form.
var Formats = []string{"JPEG", "PNG", "WEBP", "BMP", "TIFF"}

var formatExt = map[Format]string{
	JPEG: ".jpg",
	PNG:  ".png",
	WEBP: ".webp",
	BMP:  ".bmp",
	TIFF: ".tiff",
}

// Ext returns the canonical file extension for a format.
func (f Format) Ext() string {
	return formatExt[f]
}

// Lossy reports whether the quality parameter applies to this format.
func (f Format) Lossy() bool {
	return f == JPEG || f == WEBP
}

// formatForPath picks the encode format matching a file's extension so that
// transforms preserve the input format.
func formatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return JPEG
	case ".webp":
		return WEBP
	case ".bmp":
		return BMP
	case ".tif", ".tiff":
		return TIFF
	default:
		return PNG
	}
}

func decode(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// encode serializes img into the requested format. JPEG cannot carry an alpha
// channel, so transparency is flattened onto white first, matching what the
// converter advertises.
func encode(img image.Image, format Format, quality int) ([]byte, error) {
	buf := &bytes.Buffer{}
	switch format {
	case JPEG:
		flattened := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
		flattened = imaging.Overlay(flattened, img, image.Pt(0, 0), 1.0)
		if err := imaging.Encode(buf, flattened, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case PNG:
		if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case BMP:
		if err := imaging.Encode(buf, img, imaging.BMP); err != nil {
			return nil, fmt.Errorf("encode bmp: %w", err)
		}
	case TIFF:
		if err := imaging.Encode(buf, img, imaging.TIFF); err != nil {
			return nil, fmt.Errorf("encode tiff: %w", err)
		}
	case WEBP:
		if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return buf.Bytes(), nil
}
