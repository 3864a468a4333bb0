package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Artifact is a processed output file. Artifacts are immutable once written
// and addressable by their generated name.
type Artifact struct {
	ID   string `json:"id"`
	Path string `json:"-"`
	URL  string `json:"url"`
}

// OutputStore persists processed artifacts onto the local filesystem and
// builds public URLs for them. Names are generated, so concurrent requests
// never contend on a file.
type OutputStore struct {
	dir     string
	baseURL string
}

// NewOutputStore initializes an OutputStore rooted at dir. Artifact URLs are
// formed by joining baseURL with the generated name.
func NewOutputStore(dir, baseURL string) (*OutputStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: output dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure output dir: %w", err)
	}
	return &OutputStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the configured root directory.
func (s *OutputStore) Dir() string {
	return s.dir
}

// Put writes data under a fresh generated name with the given extension and
// returns the resulting artifact.
func (s *OutputStore) Put(data []byte, ext string) (Artifact, error) {
	art := s.allocate(ext)
	if err := os.WriteFile(art.Path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("storage: write artifact: %w", err)
	}
	return art, nil
}

// Create reserves a generated name without writing anything. It exists for
// libraries that only write to a named file; the caller owns the write.
func (s *OutputStore) Create(ext string) Artifact {
	return s.allocate(ext)
}

func (s *OutputStore) allocate(ext string) Artifact {
	ext = normalizeExt(ext)
	id := uuid.NewString() + ext
	return Artifact{
		ID:   id,
		Path: filepath.Join(s.dir, id),
		URL:  s.URLFor(id),
	}
}

// URLFor returns the public URL for an artifact id.
func (s *OutputStore) URLFor(id string) string {
	return s.baseURL + "/" + id
}

// Resolve maps an artifact id back to a filesystem path, rejecting names that
// would escape the store root.
func (s *OutputStore) Resolve(id string) (string, error) {
	name, err := sanitizeName(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// ScratchStore holds uploads for the duration of a single request.
type ScratchStore struct {
	dir string
}

// NewScratchStore initializes a ScratchStore rooted at dir.
func NewScratchStore(dir string) (*ScratchStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: scratch dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure scratch dir: %w", err)
	}
	return &ScratchStore{dir: dir}, nil
}

// Dir returns the configured root directory.
func (s *ScratchStore) Dir() string {
	return s.dir
}

// Save streams r into a scratch file under name and returns its path.
func (s *ScratchStore) Save(name string, r io.Reader) (string, error) {
	name, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create scratch file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("storage: write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("storage: close scratch file: %w", err)
	}
	return path, nil
}

// Remove deletes a scratch file, ignoring files that are already gone.
func (s *ScratchStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Sweep deletes regular files in dir whose modification time is older than
// maxAge and reports how many were removed. Retention is an out-of-band
// concern; nothing on the request path calls this.
func Sweep(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("storage: read dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// sanitizeName rejects names containing path separators or traversal.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("storage: name is required")
	}
	if strings.ContainsAny(name, "/\\") || name != filepath.Base(name) || strings.HasPrefix(name, "..") {
		return "", errors.New("storage: invalid name")
	}
	return name, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
