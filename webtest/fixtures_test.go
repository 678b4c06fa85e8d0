package webtest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	page := `<html><head><title>Fixture</title></head><body><div id="main">ready</div></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o644))
	return dir
}

func TestFixtureHandler(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(FixtureHandler(newFixtureDir(t)))
	defer srv.Close()

	t.Run("serves pages", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/index.html")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `<div id="main">ready</div>`)
	})

	t.Run("missing page", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/absent.html")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delay parameter", func(t *testing.T) {
		start := time.Now()
		resp, err := http.Get(srv.URL + "/index.html?delay=0.2")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	})

	t.Run("bad delay ignored", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/index.html?delay=soon")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestNewFixtureServer(t *testing.T) {
	t.Run("port from environment", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "9123")
		srv := NewFixtureServer(t.TempDir())
		assert.Equal(t, ":9123", srv.Addr)
	})

	t.Run("default port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "")
		srv := NewFixtureServer(t.TempDir())
		assert.Equal(t, ":8005", srv.Addr)
	})
}
