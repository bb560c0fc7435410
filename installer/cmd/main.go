// Command bl-install serves the Boiler install endpoints:
// GET /install returns the platform's install script and
// every other path points visitors at the repository.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/byte4ever/boiler/config"
	"github.com/byte4ever/boiler/installer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	const errCtx = "running bl-install"

	defaults := config.Default().Install

	addr := flag.String(
		"addr", defaults.Addr,
		"Listen address",
	)
	scriptBaseURL := flag.String(
		"script_base_url", defaults.ScriptBaseURL,
		"Location of install.sh and install.ps1",
	)
	repoURL := flag.String(
		"repo_url", defaults.RepoURL,
		"Public repository URL",
	)
	retries := flag.Int(
		"retries", 2,
		"Upstream fetch retries",
	)
	timeout := flag.Duration(
		"timeout", 10*time.Second,
		"Upstream fetch timeout",
	)

	flag.Parse()

	h, err := installer.New(installer.Config{
		ScriptBaseURL: *scriptBaseURL,
		RepoURL:       *repoURL,
		RetryMax:      *retries,
		Timeout:       *timeout,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	if err := installer.Serve(ctx, *addr, h); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
