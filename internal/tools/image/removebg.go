package image

import (
	"context"
	"encoding/json"
	"errors"
	stdimage "image"
	"image/color"

	"multitool/internal/registry"
	"multitool/internal/storage"
	"multitool/internal/tools"
)

// RemoveBackground segments the image and makes everything outside the
// detected foreground transparent. Optional point hints restrict the
// foreground to the detected objects containing at least one point. Output is
// always PNG so the alpha channel survives.
func (o *Ops) RemoveBackground(seg *Segmenter) registry.ExecFunc {
	return func(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
		src, err := decode(inputs[0])
		if err != nil {
			return nil, tools.Failf(err, "could not read image")
		}

		points, err := parsePoints(p.String("points"))
		if err != nil {
			return nil, err
		}

		segmentation, err := seg.Segment(src)
		if err != nil {
			if errors.Is(err, ErrNotConfigured) {
				return nil, &tools.ProcessingError{Message: "background removal is not configured on this server", Err: err}
			}
			return nil, tools.Failf(err, "segmentation failed")
		}
		if len(segmentation.Masks) == 0 {
			return nil, &tools.ProcessingError{Message: "no objects detected for segmentation"}
		}

		selected := selectMasks(segmentation, points)

		bounds := src.Bounds()
		out := stdimage.NewNRGBA(stdimage.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		for y := 0; y < bounds.Dy(); y++ {
			for x := 0; x < bounds.Dx(); x++ {
				c := color.NRGBAModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				if !coveredByAny(segmentation, selected, x, y) {
					c.A = 0
				}
				out.SetNRGBA(x, y, c)
			}
		}

		data, err := encode(out, PNG, 0)
		if err != nil {
			return nil, tools.Failf(err, "could not save image")
		}
		art, err := o.Out.Put(data, ".png")
		if err != nil {
			return nil, err
		}
		return &tools.Result{
			Message:   "background removed",
			Artifacts: []storage.Artifact{art},
			Metadata: map[string]any{
				"segments_detected": len(segmentation.Masks),
				"points_used":       len(points) > 0,
			},
		}, nil
	}
}

// selectMasks returns the masks to keep as foreground: with point hints, the
// masks containing at least one hint; without, every detected mask.
func selectMasks(seg *Segmentation, points []stdimage.Point) []Mask {
	if len(points) == 0 {
		return seg.Masks
	}
	var selected []Mask
	for _, m := range seg.Masks {
		for _, pt := range points {
			if seg.Covers(m, pt.X, pt.Y) {
				selected = append(selected, m)
				break
			}
		}
	}
	return selected
}

func coveredByAny(seg *Segmentation, masks []Mask, x, y int) bool {
	for _, m := range masks {
		if seg.Covers(m, x, y) {
			return true
		}
	}
	return false
}

// parsePoints reads foreground hints from a JSON array of [x, y] pairs.
func parsePoints(raw string) ([]stdimage.Point, error) {
	if raw == "" {
		return nil, nil
	}
	var pairs [][]int
	if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
		return nil, tools.Invalidf("points must be a JSON array of [x, y] pairs")
	}
	points := make([]stdimage.Point, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) != 2 || pair[0] < 0 || pair[1] < 0 {
			return nil, tools.Invalidf("points must be non-negative [x, y] pairs")
		}
		points = append(points, stdimage.Pt(pair[0], pair[1]))
	}
	return points, nil
}
