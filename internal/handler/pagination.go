package handler

import (
	"net/http"
	"strconv"

	"github.com/openclaw/fleet-worker-go/internal/config"
)

// ParseLimit reads ?limit= and falls back to the default when it is missing
// or out of range.
func ParseLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > config.MaxDispatchLimit {
		return config.DefaultDispatchLimit
	}
	return limit
}
