package middleware

import (
	"net/http"

	"github.com/openclaw/fleet-worker-go/internal/httputil"
)

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}
