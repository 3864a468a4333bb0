// Package image implements the image operations: resize, crop, rotate,
// enhance, convert-format and remove-background. Each operation decodes the
// validated scratch input, delegates the transform to the imaging library and
// writes exactly one artifact to the output store.
package image

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"multitool/internal/registry"
	"multitool/internal/storage"
	"multitool/internal/tools"
)

// Ops bundles the output store dependency shared by all image operations.
type Ops struct {
	Out *storage.OutputStore
}

// Resize scales an image to the requested dimensions. With maintain_aspect
// the height is derived from the width and the source ratio; the submitted
// height is ignored and echoed back in metadata.
func (o *Ops) Resize(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	src, err := decode(inputs[0])
	if err != nil {
		return nil, tools.Failf(err, "could not read image")
	}

	width := p.Int("width")
	height := p.Int("height")
	origW := src.Bounds().Dx()
	origH := src.Bounds().Dy()
	if p.Bool("maintain_aspect") {
		height = int(math.Round(float64(width) * float64(origH) / float64(origW)))
		if height < 1 {
			height = 1
		}
	}

	resized := imaging.Resize(src, width, height, imaging.Lanczos)
	art, err := o.save(resized, formatForPath(inputs[0]))
	if err != nil {
		return nil, err
	}
	return &tools.Result{
		Message:   "image resized",
		Artifacts: []storage.Artifact{art},
		Metadata: map[string]any{
			"original_size": dims(origW, origH),
			"new_size":      dims(width, height),
		},
	}, nil
}

// Crop cuts the rectangle (x, y, w, h) out of the source. The rectangle must
// lie fully within the source bounds.
func (o *Ops) Crop(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	src, err := decode(inputs[0])
	if err != nil {
		return nil, tools.Failf(err, "could not read image")
	}

	x, y := p.Int("x"), p.Int("y")
	w, h := p.Int("width"), p.Int("height")
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	if x+w > srcW || y+h > srcH {
		return nil, tools.Invalidf("crop rectangle %dx%d at (%d,%d) exceeds image bounds %dx%d", w, h, x, y, srcW, srcH)
	}

	cropped := imaging.Crop(src, image.Rect(x, y, x+w, y+h))
	art, err := o.save(cropped, formatForPath(inputs[0]))
	if err != nil {
		return nil, err
	}
	return &tools.Result{
		Message:   "image cropped",
		Artifacts: []storage.Artifact{art},
		Metadata: map[string]any{
			"crop_area":     map[string]int{"x": x, "y": y, "width": w, "height": h},
			"original_size": dims(srcW, srcH),
		},
	}, nil
}

// Rotate turns an image clockwise by the given angle, filling exposed corners
// with white. With expand=false the canvas keeps the source dimensions and
// the rotated content is center-cropped to fit.
func (o *Ops) Rotate(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	src, err := decode(inputs[0])
	if err != nil {
		return nil, tools.Failf(err, "could not read image")
	}

	angle := p.Float("angle")
	expand := p.Bool("expand")
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()

	// imaging rotates counter-clockwise; the API treats positive as clockwise.
	rotated := imaging.Rotate(src, -angle, color.White)
	if !expand {
		rotated = imaging.CropCenter(rotated, srcW, srcH)
	}

	art, err := o.save(rotated, formatForPath(inputs[0]))
	if err != nil {
		return nil, err
	}
	return &tools.Result{
		Message:   "image rotated",
		Artifacts: []storage.Artifact{art},
		Metadata: map[string]any{
			"rotation_angle": wrapAngle(angle),
			"expanded":       expand,
			"original_size":  dims(srcW, srcH),
			"new_size":       dims(rotated.Bounds().Dx(), rotated.Bounds().Dy()),
		},
	}, nil
}

// Enhance applies brightness, contrast, saturation and sharpness factors.
// Factors follow the multiplicative convention (1.0 = unchanged) and are
// translated to the imaging library's percentage-based adjusters.
func (o *Ops) Enhance(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	src, err := decode(inputs[0])
	if err != nil {
		return nil, tools.Failf(err, "could not read image")
	}

	brightness := p.Float("brightness")
	contrast := p.Float("contrast")
	saturation := p.Float("saturation")
	sharpness := p.Float("sharpness")

	img := imaging.Clone(src)
	if brightness != 1.0 {
		img = imaging.AdjustBrightness(img, factorToPercent(brightness))
	}
	if contrast != 1.0 {
		img = imaging.AdjustContrast(img, factorToPercent(contrast))
	}
	if saturation != 1.0 {
		img = imaging.AdjustSaturation(img, factorToPercent(saturation))
	}
	switch {
	case sharpness > 1.0:
		img = imaging.Sharpen(img, sharpness-1.0)
	case sharpness < 1.0:
		img = imaging.Blur(img, 1.0-sharpness)
	}

	art, err := o.save(img, formatForPath(inputs[0]))
	if err != nil {
		return nil, err
	}
	return &tools.Result{
		Message:   "image enhanced",
		Artifacts: []storage.Artifact{art},
		Metadata: map[string]any{
			"adjustments": map[string]float64{
				"brightness": brightness,
				"contrast":   contrast,
				"saturation": saturation,
				"sharpness":  sharpness,
			},
		},
	}, nil
}

// Convert re-encodes an image in the target format. The quality parameter
// only applies to lossy targets.
func (o *Ops) Convert(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
	src, err := decode(inputs[0])
	if err != nil {
		return nil, tools.Failf(err, "could not read image")
	}

	format := Format(p.String("target_format"))
	quality := p.Int("quality")

	data, err := encode(src, format, quality)
	if err != nil {
		return nil, tools.Failf(err, "could not convert image to %s", format)
	}
	art, err := o.Out.Put(data, format.Ext())
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"target_format": string(format)}
	if format.Lossy() {
		meta["quality"] = quality
	}
	return &tools.Result{
		Message:   "image converted to " + string(format),
		Artifacts: []storage.Artifact{art},
		Metadata:  meta,
	}, nil
}

func (o *Ops) save(img image.Image, format Format) (storage.Artifact, error) {
	// Transforms re-encode lossy sources at high quality to limit generation loss.
	data, err := encode(img, format, 95)
	if err != nil {
		return storage.Artifact{}, tools.Failf(err, "could not save image")
	}
	return o.Out.Put(data, format.Ext())
}

// factorToPercent maps a multiplicative factor in [0.1, 3.0] onto the
// percentage scale imaging uses, clamped to its [-100, 100] range.
func factorToPercent(factor float64) float64 {
	pct := (factor - 1.0) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < -100 {
		pct = -100
	}
	return pct
}

// wrapAngle folds an unbounded angle into (-180, 180] for display.
func wrapAngle(angle float64) float64 {
	wrapped := math.Mod(angle, 360)
	if wrapped > 180 {
		wrapped -= 360
	}
	if wrapped <= -180 {
		wrapped += 360
	}
	return wrapped
}

func dims(w, h int) map[string]int {
	return map[string]int{"width": w, "height": h}
}
