package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byte4ever/boiler/config"
	"github.com/byte4ever/boiler/registry"
	"github.com/byte4ever/boiler/registry/bitbucket"
	ghsrc "github.com/byte4ever/boiler/registry/github"
	glsrc "github.com/byte4ever/boiler/registry/gitlab"
	"github.com/byte4ever/boiler/registry/gitrepo"
	"github.com/byte4ever/boiler/store"
)

// Registry providers.
const (
	ProviderGitHub    = "github"
	ProviderGitLab    = "gitlab"
	ProviderBitbucket = "bitbucket"
	ProviderGit       = "git"
)

// OpenSource opens the registry described by reg. The git
// provider clones into a temporary directory removed by the
// returned cleanup.
func OpenSource(
	ctx context.Context,
	reg config.Registry,
) (registry.Source, func(), error) {
	const errCtx = "opening registry"

	noop := func() {}

	var (
		src registry.Source
		err error
	)

	switch reg.Provider {
	case ProviderGitHub, "":
		src, err = ghsrc.NewSource(ghsrc.Config{
			RepoOwner:      reg.Owner,
			Repo:           reg.Repo,
			Ref:            reg.Ref,
			AccessToken:    reg.Token,
			EnterpriseHost: reg.Host,
		})
	case ProviderGitLab:
		host := reg.Host
		if host != "" && !strings.Contains(host, "://") {
			host = "https://" + host
		}

		src, err = glsrc.NewSource(glsrc.Config{
			Host:        host,
			Repo:        registry.Join(reg.Owner, reg.Repo),
			Ref:         reg.Ref,
			AccessToken: reg.Token,
		})
	case ProviderBitbucket:
		src, err = bitbucket.NewSource(bitbucket.Config{
			BaseURL:  reg.Host,
			Project:  reg.Owner,
			Repo:     reg.Repo,
			Ref:      reg.Ref,
			User:     reg.User,
			Password: reg.Token,
			RetryMax: 3,
		})
	case ProviderGit:
		return openClone(ctx, reg)
	default:
		return nil, noop, fmt.Errorf(
			"%s: unknown provider %q", errCtx, reg.Provider,
		)
	}

	if err != nil {
		return nil, noop, fmt.Errorf("%s: %w", errCtx, err)
	}

	return src, noop, nil
}

func openClone(
	ctx context.Context,
	reg config.Registry,
) (registry.Source, func(), error) {
	const errCtx = "opening registry"

	noop := func() {}

	dir, err := os.MkdirTemp("", "boiler-registry-*")
	if err != nil {
		return nil, noop, fmt.Errorf("%s: %w", errCtx, err)
	}

	repo, err := gitrepo.Clone(ctx, gitrepo.Config{
		URL:  reg.URL,
		Ref:  reg.Ref,
		Dir:  dir,
		Path: reg.Path,
	})
	if err != nil {
		_ = os.RemoveAll(dir)

		return nil, noop, fmt.Errorf("%s: %w", errCtx, err)
	}

	return repo, func() {
		if err := repo.Clean(); err != nil {
			slog.Warn("removing registry clone", "dir", dir, "error", err)
		}
	}, nil
}

func (a *App) openSource(
	ctx context.Context,
) (registry.Source, func(), error) {
	open := a.OpenSource
	if open == nil {
		open = OpenSource
	}

	return open(ctx, a.cfg.Registry)
}

// remoteLocation maps a resource name to its path in the
// registry. Snippets live in <path>/snippets/<ext>/ and
// stacks in <path>/stacks/. A name without a version
// resolves to the highest version listed.
func remoteLocation(
	ctx context.Context,
	src registry.Source,
	root string,
	rn store.ResourceName,
) (string, error) {
	parent := registry.Join(root, "stacks")
	if rn.Kind() == store.KindSnippet {
		parent = registry.Join(root, "snippets", strings.TrimPrefix(rn.Ext, "."))
	}

	if rn.Version != 0 {
		return registry.Join(parent, rn.String()), nil
	}

	files, err := src.ListFiles(ctx, parent)
	if err != nil {
		return "", fmt.Errorf("finding latest %s: %w", rn, err)
	}

	latest := 0

	for _, f := range files {
		first, _, _ := strings.Cut(f, "/")

		cand, err := store.ParseResourceName(first)
		if err != nil || cand.Name != rn.Name || cand.Ext != rn.Ext {
			continue
		}

		latest = max(latest, cand.Version)
	}

	if latest == 0 {
		return "", fmt.Errorf(
			"finding latest %s: %w", rn, registry.ErrNotFound,
		)
	}

	return registry.Join(parent, rn.WithVersion(latest).String()), nil
}

// remoteTarget accepts either a resource name or a
// repository path containing a slash.
func (a *App) remoteTarget(
	ctx context.Context,
	src registry.Source,
	target string,
) (string, store.Kind, error) {
	if strings.Contains(target, "/") {
		kind := store.KindStack
		if path.Ext(target) != "" {
			kind = store.KindSnippet
		}

		return strings.Trim(target, "/"), kind, nil
	}

	rn, err := store.ParseResourceName(target)
	if err != nil {
		return "", "", err
	}

	loc, err := remoteLocation(ctx, src, a.cfg.Registry.Path, rn)
	if err != nil {
		return "", "", err
	}

	return loc, rn.Kind(), nil
}

// fetchRemote pulls target from the registry into the
// store.
func (a *App) fetchRemote(
	ctx context.Context,
	st *store.Store,
	target string,
	overwrite bool,
) (store.Entry, error) {
	const errCtx = "fetching remote"

	src, cleanup, err := a.openSource(ctx)
	defer cleanup()

	if err != nil {
		return store.Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	loc, kind, err := a.remoteTarget(ctx, src, target)
	if err != nil {
		return store.Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	tmp, err := os.MkdirTemp("", "boiler-pull-*")
	if err != nil {
		return store.Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() { _ = os.RemoveAll(tmp) }()

	local, err := registry.Pull(ctx, src, loc, tmp)
	if err != nil {
		return store.Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	var en store.Entry

	if kind == store.KindSnippet {
		en, err = st.ImportSnippet(local, "", overwrite)
	} else {
		en, err = st.ImportStack(local, overwrite)
	}

	if err != nil {
		return store.Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("remote resource stored", "remote", loc, "name", en.FullName())

	return en, nil
}

type pullOptions struct {
	to    string
	force bool
}

func (a *App) pullCommand() *cobra.Command {
	var opts pullOptions

	cmd := &cobra.Command{
		Use:   "pull <resource|path>",
		Short: "Fetch a snippet or stack from the remote registry",
		Long: `Fetch a snippet or stack from the configured registry (GitHub, GitLab,
Bitbucket Server or any git remote) and store it. A name without a version
fetches the highest version in the registry. An argument containing a slash
is a path inside the registry repository.

With --to the resource is only downloaded into that directory.`,
		Example: `  bl pull errorHandler.js
  bl pull express-auth@2
  bl pull store/snippets/js/logger@1.js --to ./vendor`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPull(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.to, "to", "t", "", "download into this directory instead of storing")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite a stored version")

	return cmd
}

func (a *App) runPull(ctx context.Context, target string, opts pullOptions) error {
	const errCtx = "pulling"

	target = a.cfg.ResolveAlias(target)

	if opts.to == "" {
		st, err := a.openStore()
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		en, err := a.fetchRemote(ctx, st, target, opts.force)
		if errors.Is(err, store.ErrAlreadyStored) {
			a.printer.Warn("%s is already stored (use --force to replace it)", target)

			return nil
		}

		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		a.printer.Success("Pulled %s '%s' into the store", en.Kind, en.FullName())

		return nil
	}

	src, cleanup, err := a.openSource(ctx)
	defer cleanup()

	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	loc, _, err := a.remoteTarget(ctx, src, target)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	local, err := registry.Pull(ctx, src, loc, opts.to)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	a.printer.Success("Pulled %s to %s", loc, local)

	return nil
}
