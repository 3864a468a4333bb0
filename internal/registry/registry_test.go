package registry

import (
	"errors"
	"net/url"
	"testing"

	"multitool/internal/upload"
)

func resizeDescriptor() *Descriptor {
	return &Descriptor{
		Category:  upload.CategoryImage,
		Operation: "resize",
		MinFiles:  1,
		Params: []Param{
			{Name: "width", Type: Int, Required: true, Min: 1, Max: 20000, Bounded: true},
			{Name: "height", Type: Int, Required: true, Min: 1, Max: 20000, Bounded: true},
			{Name: "maintain_aspect", Type: Bool, Default: true},
		},
	}
}

func TestCoerceAppliesDefaults(t *testing.T) {
	form := url.Values{"width": {"800"}, "height": {"600"}}
	params, err := resizeDescriptor().Coerce(form)
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if params.Int("width") != 800 || params.Int("height") != 600 {
		t.Fatalf("dims = %dx%d, want 800x600", params.Int("width"), params.Int("height"))
	}
	if !params.Bool("maintain_aspect") {
		t.Fatalf("maintain_aspect should default to true")
	}
}

func TestCoerceRejectionTable(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing required", url.Values{"height": {"600"}}},
		{"not an integer", url.Values{"width": {"eight"}, "height": {"600"}}},
		{"below minimum", url.Values{"width": {"0"}, "height": {"600"}}},
		{"above maximum", url.Values{"width": {"999999"}, "height": {"600"}}},
		{"bad bool", url.Values{"width": {"800"}, "height": {"600"}, "maintain_aspect": {"maybe"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resizeDescriptor().Coerce(tt.form)
			var paramErr *ParamError
			if !errors.As(err, &paramErr) {
				t.Fatalf("err = %v, want *ParamError", err)
			}
		})
	}
}

func TestCoerceEnumIsCaseInsensitive(t *testing.T) {
	d := &Descriptor{
		Category:  upload.CategoryImage,
		Operation: "convert-format",
		Params: []Param{
			{Name: "target_format", Type: String, Required: true, Enum: []string{"JPEG", "PNG"}},
		},
	}
	params, err := d.Coerce(url.Values{"target_format": {"png"}})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	if params.String("target_format") != "PNG" {
		t.Fatalf("target_format = %q, want PNG", params.String("target_format"))
	}
	if _, err := d.Coerce(url.Values{"target_format": {"svg"}}); err == nil {
		t.Fatalf("expected error for value outside enum")
	}
}

func TestCoerceIntList(t *testing.T) {
	d := &Descriptor{
		Category:  upload.CategoryPDF,
		Operation: "rearrange",
		Params: []Param{
			{Name: "page_order", Type: IntList, Required: true},
		},
	}
	params, err := d.Coerce(url.Values{"page_order": {"[3,1,2]"}})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	got := params.Ints("page_order")
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("page_order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("page_order = %v, want %v", got, want)
		}
	}
	if _, err := d.Coerce(url.Values{"page_order": {"3,1,2"}}); err == nil {
		t.Fatalf("expected error for non-JSON list")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := New(resizeDescriptor())

	if _, err := r.Lookup("Image", "Resize"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	_, err := r.Lookup("image", "explode")
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("err = %v, want ErrUnknownOperation", err)
	}
}

func TestFileBounds(t *testing.T) {
	single := resizeDescriptor()
	if min, max := single.FileBounds(); min != 1 || max != 1 {
		t.Fatalf("bounds = %d..%d, want 1..1", min, max)
	}
	merge := &Descriptor{Category: upload.CategoryPDF, Operation: "merge", MinFiles: 2, MaxFiles: 16}
	if min, max := merge.FileBounds(); min != 2 || max != 16 {
		t.Fatalf("bounds = %d..%d, want 2..16", min, max)
	}
}

func TestAcceptedCategoriesFallsBackToOwn(t *testing.T) {
	d := resizeDescriptor()
	cats := d.AcceptedCategories()
	if len(cats) != 1 || cats[0] != upload.CategoryImage {
		t.Fatalf("categories = %v, want [image]", cats)
	}
	d.Accepts = []upload.Category{upload.CategoryPDF, upload.CategoryImage}
	if cats := d.AcceptedCategories(); len(cats) != 2 {
		t.Fatalf("categories = %v, want both", cats)
	}
}
