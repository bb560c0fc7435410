package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// OS is the platform family detected from a User-Agent.
type OS string

// Detected platforms.
const (
	Windows OS = "Windows"
	Unix    OS = "Unix"
)

const (
	// InstallPath serves the install script.
	InstallPath = "/install"

	cacheControl = "public, max-age=300"
	textPlain    = "text/plain; charset=utf-8"
)

var windowsMarkers = []string{
	"Windows",
	"PowerShell",
	"WindowsPowerShell",
	"Win64",
	"Win32",
}

// DetectOS reports Windows when the user agent carries any
// Windows or PowerShell marker, Unix otherwise.
func DetectOS(userAgent string) OS {
	for _, m := range windowsMarkers {
		if strings.Contains(userAgent, m) {
			return Windows
		}
	}

	return Unix
}

// Script returns the install script name for o.
func (o OS) Script() string {
	if o == Windows {
		return "install.ps1"
	}

	return "install.sh"
}

// Config configures the install endpoints.
type Config struct {
	// ScriptBaseURL is where install.sh and install.ps1
	// are fetched from.
	ScriptBaseURL string
	// RepoURL is the public repository visitors are sent
	// to.
	RepoURL string
	// RetryMax caps upstream fetch retries.
	RetryMax int
	// Timeout bounds a single upstream fetch.
	Timeout time.Duration
}

// Handler serves the install script and the catch-all
// routes.
type Handler struct {
	client  *retryablehttp.Client
	baseURL string
	repoURL string
}

// New validates cfg and returns a Handler.
func New(cfg Config) (*Handler, error) {
	const errCtx = "creating install handler"

	if cfg.ScriptBaseURL == "" {
		return nil, fmt.Errorf(
			"%s: script base url must be set", errCtx,
		)
	}

	if cfg.RepoURL == "" {
		return nil, fmt.Errorf(
			"%s: repo url must be set", errCtx,
		)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = cfg.RetryMax
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	return &Handler{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.ScriptBaseURL, "/"),
		repoURL: cfg.RepoURL,
	}, nil
}

// ServeHTTP routes /install to the script handler and
// everything else to the fallback.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == InstallPath {
		h.serveScript(w, r)

		return
	}

	h.serveFallback(w, r)
}

func (h *Handler) serveScript(w http.ResponseWriter, r *http.Request) {
	detected := DetectOS(r.UserAgent())
	script := detected.Script()

	content, status, err := h.fetch(r.Context(), script)

	switch {
	case err != nil:
		slog.Error(
			"fetching install script",
			"script", script,
			"error", err,
		)
		writeText(w, http.StatusInternalServerError, "Error fetching installation script")

		return
	case status < 200 || status > 299:
		slog.Warn(
			"install script unavailable",
			"script", script,
			"status", status,
		)
		writeText(w, http.StatusNotFound, "Installation script not found")

		return
	}

	slog.Info(
		"serving install script",
		"script", script,
		"os", string(detected),
	)

	w.Header().Set("Content-Type", textPlain)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("X-Detected-OS", string(detected))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(content); err != nil {
		slog.Warn("writing install script", "error", err)
	}
}

func (h *Handler) serveFallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" || r.URL.Path == "" {
		http.Redirect(w, r, h.repoURL, http.StatusFound)

		return
	}

	writeText(w, http.StatusNotFound, "Not Found. Visit "+h.repoURL)
}

func (h *Handler) fetch(
	ctx context.Context,
	script string,
) ([]byte, int, error) {
	req, err := retryablehttp.NewRequestWithContext(
		ctx, http.MethodGet, h.baseURL+"/"+script, nil,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", textPlain)
	w.WriteHeader(status)

	if _, err := io.WriteString(w, msg); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

// Serve listens on addr until ctx is cancelled, then shuts
// the server down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	const errCtx = "serving install endpoints"

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("%s: %w", errCtx, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), 30*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", errCtx, err)
	}

	return nil
}
