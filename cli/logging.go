package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LogFile is the log written under the logs directory.
const LogFile = "boiler.log"

// setupLogging installs a text handler on the default
// logger. Output goes to the log file when it can be opened,
// to stderr otherwise, and to both with --verbose.
func (a *App) setupLogging() error {
	var level slog.Level

	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("parsing log level %q: %w", a.logLevel, err)
	}

	if a.verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = a.Err

	//nolint:gosec // path comes from configuration
	f, err := os.OpenFile(
		filepath.Join(a.cfg.Paths.Logs, LogFile),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o600,
	)

	switch {
	case err != nil:
	case a.verbose:
		a.logFile = f
		w = io.MultiWriter(a.Err, f)
	default:
		a.logFile = f
		w = f
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		w, &slog.HandlerOptions{Level: level},
	)))

	return nil
}

func (a *App) closeLog() {
	if a.logFile == nil {
		return
	}

	_ = a.logFile.Close()
	a.logFile = nil
}
