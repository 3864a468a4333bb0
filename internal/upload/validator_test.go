package upload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"multitool/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse multipart form: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func newValidator(t *testing.T, maxBytes int64) *Validator {
	t.Helper()
	scratch, err := storage.NewScratchStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewScratchStore: %v", err)
	}
	return NewValidator(scratch, maxBytes)
}

func TestSaveAcceptsValidImage(t *testing.T) {
	v := newValidator(t, 1<<20)
	fh := fileHeader(t, "Héllo photo.png", pngHeader)

	path, err := v.Save(fh, CategoryImage)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	defer v.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read scratch file: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Fatalf("scratch content mismatch")
	}
	base := filepath.Base(path)
	if !strings.HasSuffix(base, "_Hello_photo.png") {
		t.Fatalf("scratch name = %q, want sanitized stem suffix", base)
	}
}

func TestSaveAcceptsTIFF(t *testing.T) {
	v := newValidator(t, 1<<20)
	// Little- and big-endian TIFF headers; the stdlib sniffer knows neither.
	tiffLE := []byte{'I', 'I', 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00}
	tiffBE := []byte{'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08}

	for name, content := range map[string][]byte{
		"scan.tiff": tiffLE,
		"scan.tif":  tiffBE,
	} {
		fh := fileHeader(t, name, content)
		path, err := v.Save(fh, CategoryImage)
		if err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		v.Remove(path)
	}
}

func TestSaveRejectsWrongExtension(t *testing.T) {
	v := newValidator(t, 1<<20)
	fh := fileHeader(t, "doc.txt", []byte("plain text"))

	if _, err := v.Save(fh, CategoryImage); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestSaveRejectsMismatchedContent(t *testing.T) {
	v := newValidator(t, 1<<20)
	fh := fileHeader(t, "fake.png", []byte("definitely not an image"))

	if _, err := v.Save(fh, CategoryImage); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestSaveRejectsOversizedUpload(t *testing.T) {
	v := newValidator(t, 4)
	fh := fileHeader(t, "big.png", pngHeader)

	if _, err := v.Save(fh, CategoryImage); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestSaveRejectsEmptyUpload(t *testing.T) {
	v := newValidator(t, 1<<20)
	fh := fileHeader(t, "empty.png", nil)

	if _, err := v.Save(fh, CategoryImage); !errors.Is(err, ErrEmptyUpload) {
		t.Fatalf("err = %v, want ErrEmptyUpload", err)
	}
}

func TestSaveAnyTriesEachCategory(t *testing.T) {
	v := newValidator(t, 1<<20)
	fh := fileHeader(t, "photo.png", pngHeader)

	path, err := v.SaveAny(fh, []Category{CategoryPDF, CategoryImage})
	if err != nil {
		t.Fatalf("SaveAny: %v", err)
	}
	v.Remove(path)

	fh = fileHeader(t, "doc.txt", []byte("text"))
	if _, err := v.SaveAny(fh, []Category{CategoryPDF, CategoryImage}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestSafeStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo"},
		{"Héllo Wörld.jpg", "Hello_World"},
		{"../../etc/passwd", "passwd"},
		{"???.pdf", "upload"},
		{"  spaced  name .pdf", "spaced_name"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SafeStem(tt.in); got != tt.want {
				t.Fatalf("SafeStem(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
