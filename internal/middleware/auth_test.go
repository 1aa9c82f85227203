package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/openclaw/fleet-worker-go/internal/util"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestOpsAuthMiddleware(t *testing.T) {
	hash, err := util.HashToken("secret-token", bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name       string
		tokenHash  string
		header     string
		wantStatus int
	}{
		{name: "valid token", tokenHash: hash, header: "Bearer secret-token", wantStatus: http.StatusOK},
		{name: "missing token", tokenHash: hash, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", tokenHash: hash, header: "Basic secret-token", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", tokenHash: hash, header: "Bearer other", wantStatus: http.StatusUnauthorized},
		{name: "no hash configured", header: "Bearer secret-token", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewOpsAuthMiddleware(tt.tokenHash)
			req := httptest.NewRequest(http.MethodGet, "/v1/hosts/h1/heartbeat", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			mw.Handler(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
