package handlers

import (
	"net/http"
	"strconv"

	"multitool/internal/ledger"
)

// History returns the most recent recorded operations. With no database
// configured the endpoint reports the ledger as disabled.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	if a.Ledger == nil {
		a.writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "entries": []ledger.Entry{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.Ledger.Recent(r.Context(), limit)
	if err != nil {
		a.Log.Error().Err(err).Msg("load history")
		a.fail(w, http.StatusInternalServerError, "internal error loading history")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "entries": entries})
}

// Stats returns per-operation aggregates from the ledger.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	if a.Ledger == nil {
		a.writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "operations": []ledger.Summary{}})
		return
	}
	summaries, err := a.Ledger.Summarize(r.Context())
	if err != nil {
		a.Log.Error().Err(err).Msg("load stats")
		a.fail(w, http.StatusInternalServerError, "internal error loading stats")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "operations": summaries})
}
