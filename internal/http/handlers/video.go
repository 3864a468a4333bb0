package handlers

import "net/http"

// VideoStub answers the video routes until transcoding support lands.
func (a *App) VideoStub(w http.ResponseWriter, r *http.Request) {
	a.fail(w, http.StatusNotImplemented, "video tools are not available yet")
}
