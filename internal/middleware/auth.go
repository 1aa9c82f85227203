package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/fleet-worker-go/internal/errors"
	"github.com/openclaw/fleet-worker-go/internal/util"
)

// OpsAuthMiddleware guards the operator API with a single bearer token whose
// bcrypt hash comes from configuration.
type OpsAuthMiddleware struct {
	tokenHash string
}

func NewOpsAuthMiddleware(tokenHash string) *OpsAuthMiddleware {
	return &OpsAuthMiddleware{tokenHash: tokenHash}
}

func (m *OpsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("missing operator token"))
			return
		}

		if m.tokenHash == "" || !util.CheckTokenHash(token, m.tokenHash) {
			log.Warn().Str("path", r.URL.Path).Msg("ops auth: invalid token attempt")
			writeError(w, apperrors.Unauthorized("invalid operator token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
