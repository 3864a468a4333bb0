// Package handlers contains the HTTP handlers. App is the dependency
// container every handler hangs off.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"multitool/internal/ledger"
	"multitool/internal/registry"
	"multitool/internal/storage"
	"multitool/internal/upload"
)

type App struct {
	Log            zerolog.Logger
	Registry       *registry.Registry
	Uploads        *upload.Validator
	Outputs        *storage.OutputStore
	Ledger         *ledger.Recorder
	MaxUploadBytes int64
}

// envelope is the response body shape shared by every tool endpoint.
type envelope struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	OutputURL string         `json:"output_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (a *App) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Log.Error().Err(err).Msg("write response")
	}
}

func (a *App) ok(w http.ResponseWriter, message string, outputURL string, metadata map[string]any) {
	a.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Message:   message,
		OutputURL: outputURL,
		Metadata:  metadata,
	})
}

func (a *App) fail(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, envelope{Success: false, Message: message})
}
