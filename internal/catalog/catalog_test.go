package catalog

import (
	"testing"

	"multitool/internal/storage"
	imagetools "multitool/internal/tools/image"
	"multitool/internal/upload"
)

func TestBuildRegistersEveryOperation(t *testing.T) {
	out, err := storage.NewOutputStore(t.TempDir(), "http://localhost:8080/output")
	if err != nil {
		t.Fatalf("NewOutputStore: %v", err)
	}
	reg := Build(out, imagetools.NewSegmenter("", ""))

	operations := []struct {
		category  string
		operation string
	}{
		{"image", "resize"},
		{"image", "crop"},
		{"image", "rotate"},
		{"image", "enhance"},
		{"image", "remove-background"},
		{"image", "convert-format"},
		{"pdf", "split"},
		{"pdf", "merge"},
		{"pdf", "rearrange"},
		{"pdf", "extract-text"},
		{"pdf", "convert-to-pdf"},
	}
	for _, op := range operations {
		d, err := reg.Lookup(op.category, op.operation)
		if err != nil {
			t.Fatalf("Lookup(%s/%s): %v", op.category, op.operation, err)
		}
		if d.Execute == nil {
			t.Fatalf("%s/%s has no executor", op.category, op.operation)
		}
	}
}

func TestMergeRequiresMultipleFiles(t *testing.T) {
	out, err := storage.NewOutputStore(t.TempDir(), "http://localhost:8080/output")
	if err != nil {
		t.Fatalf("NewOutputStore: %v", err)
	}
	reg := Build(out, imagetools.NewSegmenter("", ""))

	d, err := reg.Lookup("pdf", "merge")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if min, max := d.FileBounds(); min != 2 || max <= min {
		t.Fatalf("bounds = %d..%d, want min 2 and a larger max", min, max)
	}
}

func TestConvertToPDFAcceptsImages(t *testing.T) {
	out, err := storage.NewOutputStore(t.TempDir(), "http://localhost:8080/output")
	if err != nil {
		t.Fatalf("NewOutputStore: %v", err)
	}
	reg := Build(out, imagetools.NewSegmenter("", ""))

	d, err := reg.Lookup("pdf", "convert-to-pdf")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	cats := d.AcceptedCategories()
	hasImage := false
	for _, c := range cats {
		if c == upload.CategoryImage {
			hasImage = true
		}
	}
	if !hasImage {
		t.Fatalf("convert-to-pdf categories = %v, want image included", cats)
	}
}
