package handler

import (
	"net/http"
)

type HealthHandler struct {
	hostID  string
	version string
}

func NewHealthHandler(hostID, version string) *HealthHandler {
	return &HealthHandler{hostID: hostID, version: version}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"host":    h.hostID,
		"version": h.version,
	})
}
