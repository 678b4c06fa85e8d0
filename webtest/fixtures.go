package webtest

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// FixtureHandler serves fixture pages from dir for UI tests. A request may
// carry a ?delay= query parameter (seconds, fractional allowed) that is
// slept before serving, for exercising slow-page synchronization.
func FixtureHandler(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(delayMiddleware)
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// delayMiddleware sleeps for the duration requested via ?delay= before
// passing the request on.
func delayMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if raw := req.URL.Query().Get("delay"); raw != "" {
			if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
				time.Sleep(time.Duration(secs * float64(time.Second)))
			}
		}
		next.ServeHTTP(w, req)
	})
}

// NewFixtureServer builds an HTTP server for the fixture pages under dir,
// listening on the port named by the SERVER_PORT environment variable
// (default 8005).
func NewFixtureServer(dir string) *http.Server {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8005"
	}
	return &http.Server{
		Addr:    ":" + port,
		Handler: FixtureHandler(dir),
	}
}
