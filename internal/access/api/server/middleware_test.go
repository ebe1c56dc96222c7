package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggingMiddlewarePropagatesResponse(t *testing.T) {
	h := loggingMiddleware(zap.NewNop().Sugar())(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("WWW-Authenticate", `Bearer scope="admin:read"`)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write(Error{Err: "not enough permissions"}.ToJSON()) //nolint:errcheck
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, `Bearer scope="admin:read"`, rec.Header().Get("WWW-Authenticate"))
	require.Contains(t, rec.Body.String(), "not enough permissions")
}
