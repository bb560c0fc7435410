package installer_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/boiler/installer"
)

const repoURL = "https://github.com/rishiyaduwanshi/boiler"

func TestDetectOS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ua   string
		want installer.OS
	}{
		{
			name: "powershell",
			ua:   "Mozilla/5.0 (Windows NT; Windows NT 10.0; en-US) WindowsPowerShell/5.1.19041.3803",
			want: installer.Windows,
		},
		{
			name: "pwsh core",
			ua:   "Mozilla/5.0 PowerShell/7.4.0",
			want: installer.Windows,
		},
		{
			name: "win64 token",
			ua:   "agent (Win64; x64)",
			want: installer.Windows,
		},
		{
			name: "curl",
			ua:   "curl/8.5.0",
			want: installer.Unix,
		},
		{
			name: "empty",
			ua:   "",
			want: installer.Unix,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, installer.DetectOS(tt.ua))
		})
	}
}

func TestOS_Script(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "install.ps1", installer.Windows.Script())
	assert.Equal(t, "install.sh", installer.Unix.Script())
}

func TestNew_validation(t *testing.T) {
	t.Parallel()

	h, err := installer.New(installer.Config{RepoURL: repoURL})
	assert.Nil(t, h)
	assert.ErrorContains(t, err, "script base url")

	h, err = installer.New(installer.Config{ScriptBaseURL: "https://x"})
	assert.Nil(t, h)
	assert.ErrorContains(t, err, "repo url")
}

// newHandler points a Handler at a fake script host serving
// install.sh and install.ps1.
func newHandler(t *testing.T, upstream http.HandlerFunc) *installer.Handler {
	t.Helper()

	if upstream == nil {
		upstream = func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/scripts/install.sh":
				io.WriteString(w, "#!/bin/sh\necho unix\n") //nolint:errcheck
			case "/scripts/install.ps1":
				io.WriteString(w, "Write-Host windows\n") //nolint:errcheck
			default:
				http.NotFound(w, r)
			}
		}
	}

	ts := httptest.NewServer(upstream)
	t.Cleanup(ts.Close)

	h, err := installer.New(installer.Config{
		ScriptBaseURL: ts.URL + "/scripts/",
		RepoURL:       repoURL,
	})
	require.NoError(t, err)

	return h
}

func get(h http.Handler, path string, ua string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("User-Agent", ua)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHandler_install_unix(t *testing.T) {
	t.Parallel()

	rec := get(newHandler(t, nil), "/install", "curl/8.5.0")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#!/bin/sh\necho unix\n", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "Unix", rec.Header().Get("X-Detected-OS"))
}

func TestHandler_install_windows(t *testing.T) {
	t.Parallel()

	rec := get(newHandler(t, nil), "/install", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Write-Host windows\n", rec.Body.String())
	assert.Equal(t, "Windows", rec.Header().Get("X-Detected-OS"))
}

func TestHandler_install_upstream_missing(t *testing.T) {
	t.Parallel()

	h := newHandler(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	rec := get(h, "/install", "curl/8.5.0")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Installation script not found", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Detected-OS"))
}

func TestHandler_install_upstream_unreachable(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	h, err := installer.New(installer.Config{
		ScriptBaseURL: "http://" + addr,
		RepoURL:       repoURL,
		Timeout:       time.Second,
	})
	require.NoError(t, err)

	rec := get(h, "/install", "curl/8.5.0")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error fetching installation script", rec.Body.String())
}

func TestHandler_root_redirects(t *testing.T) {
	t.Parallel()

	rec := get(newHandler(t, nil), "/", "curl/8.5.0")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, repoURL, rec.Header().Get("Location"))
}

func TestHandler_other_paths_not_found(t *testing.T) {
	t.Parallel()

	rec := get(newHandler(t, nil), "/docs/whatever", "curl/8.5.0")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found. Visit "+repoURL, rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestServe_stops_on_cancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- installer.Serve(ctx, "127.0.0.1:0", http.NotFoundHandler())
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
