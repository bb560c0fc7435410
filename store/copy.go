package store

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/byte4ever/boiler/stack"
)

// copyFile copies src to dst, creating parents and keeping
// the source permissions.
func copyFile(src string, dst string) (retErr error) {
	const errCtx = "copying file"

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	in, err := os.Open(src) //nolint:gosec // source chosen by the user
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		_ = in.Close() //nolint:errcheck // read-only
	}()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	out, err := os.OpenFile( //nolint:gosec // store path
		dst,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		info.Mode().Perm(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// copyDir copies the tree at src to dst, skipping entries
// that match ignore.
func copyDir(src string, dst string, ignore []string) error {
	const errCtx = "copying directory"

	err := filepath.WalkDir(src, func(pa string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, pa)
		if err != nil {
			return err
		}

		if rel == "." {
			return os.MkdirAll(dst, 0o750)
		}

		if stack.Ignored(ignore, rel) {
			if de.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		target := filepath.Join(dst, rel)

		switch {
		case de.IsDir():
			return os.MkdirAll(target, 0o750)
		case de.Type().IsRegular():
			return copyFile(pa, target)
		default:
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
