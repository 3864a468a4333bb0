package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"multitool/internal/storage"
)

// Category selects the allow-list an upload is validated against.
type Category string

const (
	CategoryImage Category = "image"
	CategoryPDF   Category = "pdf"
	CategoryVideo Category = "video"
)

var (
	ErrUnsupportedType = errors.New("upload: unsupported file type")
	ErrTooLarge        = errors.New("upload: file too large")
	ErrEmptyUpload     = errors.New("upload: empty upload")
)

var allowedExtensions = map[Category]map[string]struct{}{
	CategoryImage: set("png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp"),
	CategoryPDF:   set("pdf"),
	CategoryVideo: set("mp4", "avi", "mov", "wmv", "flv", "webm", "mkv"),
}

// sniffPrefixes lists acceptable content-sniffed MIME prefixes per category.
// Video containers commonly sniff as application/octet-stream, so that is
// tolerated for video only.
var sniffPrefixes = map[Category][]string{
	CategoryImage: {"image/"},
	CategoryPDF:   {"application/pdf"},
	CategoryVideo: {"video/", "application/octet-stream"},
}

// Validator checks uploads against a category allow-list and a size ceiling,
// and persists accepted files into scratch storage under a safe,
// collision-resistant name. Nothing is written for rejected uploads.
type Validator struct {
	scratch  *storage.ScratchStore
	maxBytes int64
}

func NewValidator(scratch *storage.ScratchStore, maxBytes int64) *Validator {
	return &Validator{scratch: scratch, maxBytes: maxBytes}
}

// Save validates fh for the given category and writes it to scratch storage.
// It returns the scratch path of the persisted file.
func (v *Validator) Save(fh *multipart.FileHeader, cat Category) (string, error) {
	if fh == nil || strings.TrimSpace(fh.Filename) == "" || fh.Size == 0 {
		return "", ErrEmptyUpload
	}
	if v.maxBytes > 0 && fh.Size > v.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, fh.Size, v.maxBytes)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
	allowed, ok := allowedExtensions[cat]
	if !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrUnsupportedType, cat)
	}
	if _, ok := allowed[ext]; !ok {
		return "", fmt.Errorf("%w: .%s is not allowed for %s uploads", ErrUnsupportedType, ext, cat)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("upload: open: %w", err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("upload: read: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", ErrEmptyUpload
	}
	if !sniffMatches(cat, sniffContentType(head)) {
		return "", fmt.Errorf("%w: content does not look like a %s file", ErrUnsupportedType, cat)
	}

	name := fmt.Sprintf("%s_%s.%s", uuid.NewString(), SafeStem(fh.Filename), ext)
	return v.scratch.Save(name, io.MultiReader(bytes.NewReader(head), src))
}

// SaveAny validates fh against each category in turn and persists it under
// the first one that accepts it. Non-type errors abort immediately.
func (v *Validator) SaveAny(fh *multipart.FileHeader, cats []Category) (string, error) {
	var lastErr error = ErrUnsupportedType
	for _, cat := range cats {
		path, err := v.Save(fh, cat)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, ErrUnsupportedType) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// Remove deletes a scratch file created by Save.
func (v *Validator) Remove(path string) {
	_ = v.scratch.Remove(path)
}

// tiffMagics are the little- and big-endian TIFF signatures, which
// http.DetectContentType does not know about.
var tiffMagics = [][]byte{
	{'I', 'I', 0x2a, 0x00},
	{'M', 'M', 0x00, 0x2a},
}

// sniffContentType extends the stdlib sniffer with the TIFF signatures so
// .tif/.tiff uploads are not misread as application/octet-stream.
func sniffContentType(head []byte) string {
	for _, magic := range tiffMagics {
		if bytes.HasPrefix(head, magic) {
			return "image/tiff"
		}
	}
	return http.DetectContentType(head)
}

func sniffMatches(cat Category, contentType string) bool {
	for _, prefix := range sniffPrefixes[cat] {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeStem reduces the base name of an uploaded file to a filesystem-safe
// ASCII stem: accents are decomposed and stripped, anything else unsafe
// collapses to underscores.
func SafeStem(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, stem); err == nil {
		stem = folded
	}
	stem = unsafeChars.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "._-")
	if len(stem) > 64 {
		stem = stem[:64]
	}
	if stem == "" {
		stem = "upload"
	}
	return stem
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return m
}
