package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ServeOutput serves a stored artifact by filename. The store resolves the
// name, so traversal attempts never reach the filesystem.
func (a *App) ServeOutput(w http.ResponseWriter, r *http.Request) {
	path, err := a.Outputs.Resolve(chi.URLParam(r, "filename"))
	if err != nil {
		a.fail(w, http.StatusNotFound, "output file not found")
		return
	}
	if _, err := os.Stat(path); err != nil {
		a.fail(w, http.StatusNotFound, "output file not found")
		return
	}
	http.ServeFile(w, r, path)
}

// OutputInfo reports metadata about a stored artifact without serving it.
func (a *App) OutputInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := a.Outputs.Resolve(name)
	if err != nil {
		a.fail(w, http.StatusNotFound, "output file not found")
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		a.fail(w, http.StatusNotFound, "output file not found")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"filename":  name,
		"size":      info.Size(),
		"extension": strings.TrimPrefix(filepath.Ext(name), "."),
		"modified":  info.ModTime().UTC(),
	})
}
