package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/byte4ever/boiler/digester"
)

// Outcome describes what happened to one destination.
type Outcome string

// Outcomes of a write.
const (
	Created     Outcome = "created"
	Overwritten Outcome = "overwritten"
	Unchanged   Outcome = "unchanged"
	Planned     Outcome = "planned"
	Failed      Outcome = "failed"
)

// ErrExists is returned, wrapped in a DestinationWriteError,
// when a destination exists and Force is not set.
var ErrExists = errors.New("destination already exists (use --force to overwrite)")

// DestinationWriteError reports a failed write to Path.
type DestinationWriteError struct {
	Path string
	Err  error
}

func (e *DestinationWriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *DestinationWriteError) Unwrap() error {
	return e.Err
}

// Options controls a write.
type Options struct {
	// Force replaces existing destinations.
	Force bool
	// DryRun reports the planned outcome without writing.
	DryRun bool
	// Mode of newly written files. Zero means 0644.
	Mode fs.FileMode
}

func (o Options) mode() fs.FileMode {
	if o.Mode == 0 {
		return 0o644
	}

	return o.Mode
}

// Write stores content at path according to opts and returns
// the outcome. Errors are always *DestinationWriteError.
func Write(path string, content []byte, opts Options) (Outcome, error) {
	same, err := digester.Matches(path, content)
	if err != nil {
		return Failed, &DestinationWriteError{Path: path, Err: err}
	}

	if same {
		return Unchanged, nil
	}

	_, statErr := os.Lstat(path)
	exists := statErr == nil

	switch {
	case exists && !opts.Force:
		return Failed, &DestinationWriteError{Path: path, Err: ErrExists}
	case opts.DryRun:
		return Planned, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return Failed, &DestinationWriteError{Path: path, Err: err}
	}

	if !exists {
		if err := createExclusive(path, content, opts.mode()); err != nil {
			return Failed, &DestinationWriteError{Path: path, Err: err}
		}

		slog.Debug("created", "path", path)

		return Created, nil
	}

	if err := replaceAtomic(path, content, opts.mode()); err != nil {
		return Failed, &DestinationWriteError{Path: path, Err: err}
	}

	slog.Debug("overwritten", "path", path)

	return Overwritten, nil
}

// createExclusive fails if path already exists.
func createExclusive(path string, content []byte, mode fs.FileMode) (retErr error) {
	fi, err := os.OpenFile( //nolint:gosec // destination chosen by the user
		path,
		os.O_WRONLY|os.O_CREATE|os.O_EXCL,
		mode,
	)
	if errors.Is(err, fs.ErrExist) {
		return ErrExists
	}

	if err != nil {
		return err
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()

	_, err = fi.Write(content)

	return err
}

// replaceAtomic writes a sibling temp file and renames it
// over path.
func replaceAtomic(path string, content []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup

		return err
	}

	if _, err := tmp.Write(content); err != nil {
		return cleanup(err)
	}

	if err := tmp.Chmod(mode); err != nil {
		return cleanup(err)
	}

	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup

		return err
	}

	return nil
}

// Within joins rel onto root and fails if the result escapes
// root.
func Within(root string, rel string) (string, error) {
	const errCtx = "resolving destination"

	if rel == "" {
		return "", fmt.Errorf("%s: empty path", errCtx)
	}

	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: %s: must be relative", errCtx, rel)
	}

	joined := filepath.Join(root, rel)

	back, err := filepath.Rel(root, joined)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if back == "." || back == ".." ||
		strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf(
			"%s: %s escapes %s", errCtx, rel, root,
		)
	}

	return joined, nil
}
