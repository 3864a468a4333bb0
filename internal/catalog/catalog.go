// Package catalog wires every tool implementation into the registry. This is
// the single place a new operation gets registered.
package catalog

import (
	"multitool/internal/registry"
	"multitool/internal/storage"
	imagetools "multitool/internal/tools/image"
	pdftools "multitool/internal/tools/pdf"
	"multitool/internal/upload"
)

const maxPixels = 20000

// Build constructs the immutable operation registry.
func Build(out *storage.OutputStore, seg *imagetools.Segmenter) *registry.Registry {
	img := &imagetools.Ops{Out: out}
	pdf := &pdftools.Ops{Out: out}

	return registry.New(
		&registry.Descriptor{
			Category:  upload.CategoryImage,
			Operation: "resize",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "width", Type: registry.Int, Required: true, Min: 1, Max: maxPixels, Bounded: true},
				{Name: "height", Type: registry.Int, Required: true, Min: 1, Max: maxPixels, Bounded: true},
				{Name: "maintain_aspect", Type: registry.Bool, Default: true},
			},
			Execute: img.Resize,
		},
		&registry.Descriptor{
			Category:  upload.CategoryImage,
			Operation: "crop",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "x", Type: registry.Int, Required: true, Min: 0, Max: maxPixels, Bounded: true},
				{Name: "y", Type: registry.Int, Required: true, Min: 0, Max: maxPixels, Bounded: true},
				{Name: "width", Type: registry.Int, Required: true, Min: 1, Max: maxPixels, Bounded: true},
				{Name: "height", Type: registry.Int, Required: true, Min: 1, Max: maxPixels, Bounded: true},
			},
			Execute: img.Crop,
		},
		&registry.Descriptor{
			Category:  upload.CategoryImage,
			Operation: "rotate",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "angle", Type: registry.Float, Required: true},
				{Name: "expand", Type: registry.Bool, Default: true},
			},
			Execute: img.Rotate,
		},
		&registry.Descriptor{
			Category:  upload.CategoryImage,
			Operation: "enhance",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "brightness", Type: registry.Float, Default: 1.0, Min: 0.1, Max: 3.0, Bounded: true},
				{Name: "contrast", Type: registry.Float, Default: 1.0, Min: 0.1, Max: 3.0, Bounded: true},
				{Name: "saturation", Type: registry.Float, Default: 1.0, Min: 0.1, Max: 3.0, Bounded: true},
				{Name: "sharpness", Type: registry.Float, Default: 1.0, Min: 0.1, Max: 3.0, Bounded: true},
			},
			Execute: img.Enhance,
		},
		&registry.Descriptor{
			Category:  upload.CategoryImage,
			Operation: "remove-background",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "points", Type: registry.String},
			},
			Execute: img.RemoveBackground(seg),
		},
		&registry.Descriptor{
			Category:  upload.CategoryImage,
			Operation: "convert-format",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "target_format", Type: registry.String, Required: true, Enum: imagetools.Formats},
				{Name: "quality", Type: registry.Int, Default: 95, Min: 1, Max: 100, Bounded: true},
			},
			Execute: img.Convert,
		},
		&registry.Descriptor{
			Category:  upload.CategoryPDF,
			Operation: "split",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "pages", Type: registry.String},
			},
			Execute: pdf.Split,
		},
		&registry.Descriptor{
			Category:  upload.CategoryPDF,
			Operation: "merge",
			MinFiles:  2,
			MaxFiles:  16,
			Params: []registry.Param{
				{Name: "order", Type: registry.IntList},
			},
			Execute: pdf.Merge,
		},
		&registry.Descriptor{
			Category:  upload.CategoryPDF,
			Operation: "rearrange",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "page_order", Type: registry.IntList, Required: true},
			},
			Execute: pdf.Rearrange,
		},
		&registry.Descriptor{
			Category:  upload.CategoryPDF,
			Operation: "extract-text",
			MinFiles:  1,
			Params: []registry.Param{
				{Name: "pages", Type: registry.String},
			},
			Execute: pdf.ExtractText,
		},
		&registry.Descriptor{
			Category:  upload.CategoryPDF,
			Operation: "convert-to-pdf",
			MinFiles:  1,
			Accepts:   []upload.Category{upload.CategoryPDF, upload.CategoryImage},
			Execute:   pdf.ConvertToPDF,
		},
	)
}
