// Command bl stores code snippets and stacks and renders them
// into projects.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/byte4ever/boiler/cli"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	return cli.New(os.Stdout, os.Stderr).Execute(ctx, os.Args[1:])
}
