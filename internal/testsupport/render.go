package testsupport

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// RenderHealthStub starts an HTTP server that answers the render service
// health endpoint so daemon preflight passes in tests. It returns the base URL
// and registers cleanup.
func RenderHealthStub(t testing.TB) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server.URL
}
