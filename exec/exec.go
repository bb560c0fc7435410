// Package exec runs external commands such as git and the
// user's editor on behalf of the bl CLI.
package exec

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Ex executes the named command in dir and returns the
// combined stdout+stderr output. An empty dir uses the
// current working directory.
func Ex(
	ctx context.Context,
	dir string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	slog.Debug(
		"executing",
		"cmd", name,
		"args", strings.Join(arg, " "),
	)

	cmd := exec.CommandContext(ctx, name, arg...)
	if dir != "" {
		cmd.Dir = dir
	}

	by, err := cmd.CombinedOutput()

	slog.Debug("output", "result", string(by))

	if err != nil {
		return string(by), fmt.Errorf(
			"%s: %s %s: %w",
			errCtx, name, strings.Join(arg, " "), err,
		)
	}

	return string(by), nil
}

// Output runs the command and returns its trimmed output.
func Output(
	ctx context.Context,
	name string,
	arg ...string,
) (string, error) {
	out, err := Ex(ctx, "", name, arg...)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}

// Interactive runs the command attached to the current
// terminal, e.g. an editor.
func Interactive(
	ctx context.Context,
	name string,
	arg ...string,
) error {
	const errCtx = "running interactive command"

	slog.Debug("running", "cmd", name, "args", strings.Join(arg, " "))

	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s: %w", errCtx, name, err)
	}

	return nil
}

// LookPath reports whether name is an executable found in
// PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)

	return err == nil
}
