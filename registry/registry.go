package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/byte4ever/boiler/scaffold"
)

// Pattern: Strategy -- swap the hosting platform without
// changing how snippets and stacks are pulled.

// ErrNotFound is returned by sources for missing paths.
var ErrNotFound = errors.New("not found in registry")

// Source reads files from a hosted repository. Paths are
// slash-separated and relative to the repository root.
type Source interface {
	// ReadFile returns the content of the file at p.
	ReadFile(ctx context.Context, p string) ([]byte, error)
	// ListFiles returns every file below dir, relative to
	// dir, sorted.
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// Funcs adapts plain functions to the Source interface.
// A nil List makes every path a single file.
type Funcs struct {
	Read func(ctx context.Context, p string) ([]byte, error)
	List func(ctx context.Context, dir string) ([]string, error)
}

// ReadFile delegates to Read.
func (f Funcs) ReadFile(ctx context.Context, p string) ([]byte, error) {
	return f.Read(ctx, p)
}

// ListFiles delegates to List.
func (f Funcs) ListFiles(ctx context.Context, dir string) ([]string, error) {
	if f.List == nil {
		return nil, nil
	}

	return f.List(ctx, dir)
}

// Join builds a repository path from slash-separated parts,
// dropping empty ones.
func Join(parts ...string) string {
	return strings.TrimPrefix(path.Join(parts...), "/")
}

// Pull downloads remotePath into localDir and returns the
// local path of the result. A remotePath with a file
// extension is a single snippet written to
// localDir/<base>; any other path is a stack tree written
// to localDir/<base>/...
func Pull(
	ctx context.Context,
	src Source,
	remotePath string,
	localDir string,
) (string, error) {
	const errCtx = "pulling from registry"

	remotePath = strings.Trim(remotePath, "/")
	base := path.Base(remotePath)

	if path.Ext(base) != "" {
		dest := filepath.Join(localDir, base)

		if err := fetch(ctx, src, remotePath, dest); err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		return dest, nil
	}

	files, err := src.ListFiles(ctx, remotePath)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", errCtx, remotePath, err)
	}

	if len(files) == 0 {
		return "", fmt.Errorf("%s: %s: %w", errCtx, remotePath, ErrNotFound)
	}

	root := filepath.Join(localDir, base)

	for _, rel := range files {
		dest, err := scaffold.Within(root, filepath.FromSlash(rel))
		if err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		if err := fetch(ctx, src, remotePath+"/"+rel, dest); err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	slog.Info(
		"pulled stack",
		"remote", remotePath,
		"files", len(files),
		"local", root,
	)

	return root, nil
}

func fetch(ctx context.Context, src Source, remote string, dest string) error {
	data, err := src.ReadFile(ctx, remote)
	if err != nil {
		return fmt.Errorf("%s: %w", remote, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}

	//nolint:gosec // pulled templates are not secret
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}

	slog.Debug("fetched", "remote", remote, "local", dest)

	return nil
}
