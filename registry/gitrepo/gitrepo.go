package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/byte4ever/boiler/exec"
	"github.com/byte4ever/boiler/registry"
	"github.com/byte4ever/boiler/scaffold"
)

// Config describes the remote to clone.
type Config struct {
	// URL is any location git understands
	// (e.g. "https://github.com/org/repo.git" or a
	// local path).
	URL string
	// Ref is the branch to check out.
	Ref string
	// Dir receives the clone. It is wiped first.
	Dir string
	// Path restricts the checkout to a subtree via
	// sparse-checkout. Empty or "." checks out
	// everything.
	Path string
}

// Repo is a local clone of a registry repository. Create
// with Clone, and call Clean when done.
//
// Pattern: Strategy -- implements registry.Source.
type Repo struct {
	// Dir is the filesystem location of the clone.
	Dir string
	// RemoteName is the name of the upstream remote.
	RemoteName string

	ref string
}

// Clone clones cfg.URL into cfg.Dir. Blobs are fetched
// lazily and only cfg.Path is checked out when set.
//
//nolint:gosec // file paths originate from configuration
func Clone(ctx context.Context, cfg Config) (*Repo, error) {
	const errCtx = "cloning registry"

	if cfg.URL == "" {
		return nil, fmt.Errorf("%s: url must be set", errCtx)
	}

	if cfg.Dir == "" {
		return nil, fmt.Errorf("%s: dir must be set", errCtx)
	}

	ref := cfg.Ref
	if ref == "" {
		ref = "main"
	}

	if err := os.RemoveAll(cfg.Dir); err != nil {
		return nil, fmt.Errorf(
			"%s: remove dir: %w", errCtx, err,
		)
	}

	remoteName := "origin"

	args := []string{
		"clone",
		"--no-checkout",
		"--single-branch",
		"--branch", ref,
		"--filter=blob:none",
		"--no-tags",
		"--origin", remoteName,
		cfg.URL, cfg.Dir,
	}

	if _, err := exec.Ex(ctx, "", "git", args...); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !isRootPath(cfg.Path) {
		if _, err := exec.Ex(
			ctx, cfg.Dir, "git",
			"config", "--local",
			"core.sparsecheckout", "true",
		); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		genPath := strings.Trim(cfg.Path, "/") + "/\n"
		sparsePath := filepath.Join(
			cfg.Dir, ".git", "info", "sparse-checkout",
		)

		if err := os.MkdirAll(filepath.Dir(sparsePath), 0o750); err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		//nolint:gosec // mode 0644 is intentional
		err := os.WriteFile(
			sparsePath,
			[]byte(genPath),
			0o644,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: write sparse-checkout: %w",
				errCtx, err,
			)
		}
	}

	if _, err := exec.Ex(ctx, cfg.Dir, "git", "checkout", ref); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Repo{
		Dir:        cfg.Dir,
		RemoteName: remoteName,
		ref:        ref,
	}, nil
}

// Update fetches the tracked branch and resets the clone to
// it.
func (r *Repo) Update(ctx context.Context) error {
	const errCtx = "updating registry"

	if _, err := exec.Ex(
		ctx, r.Dir, "git",
		"fetch", "--force",
		"--filter=blob:none", "--no-tags",
		r.RemoteName, r.ref,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "reset", "--hard", "FETCH_HEAD",
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Head returns the checked out commit.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := exec.Ex(ctx, r.Dir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("reading head: %w", err)
	}

	return strings.TrimSpace(out), nil
}

// Clean removes the local clone directory.
func (r *Repo) Clean() error {
	const errCtx = "cleaning registry clone"

	if err := os.RemoveAll(r.Dir); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// ReadFile reads p from the working tree.
func (r *Repo) ReadFile(_ context.Context, p string) ([]byte, error) {
	const errCtx = "reading registry file"

	full, err := scaffold.Within(r.Dir, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	data, err := os.ReadFile(full) //nolint:gosec // confined to the clone
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, p, registry.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return data, nil
}

// ListFiles returns the regular files below dir, skipping
// git metadata.
func (r *Repo) ListFiles(_ context.Context, dir string) ([]string, error) {
	const errCtx = "listing registry files"

	root, err := scaffold.Within(r.Dir, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var files []string

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}

			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		files = append(files, filepath.ToSlash(rel))

		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, dir, registry.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	sort.Strings(files)

	return files, nil
}

// isRootPath reports whether p refers to the repository
// root.
func isRootPath(p string) bool {
	return p == "" || p == "." || p == "/"
}
