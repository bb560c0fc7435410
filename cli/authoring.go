package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/byte4ever/boiler/scaffold"
	"github.com/byte4ever/boiler/snippet"
	"github.com/byte4ever/boiler/stack"
	"github.com/byte4ever/boiler/store"
	"github.com/byte4ever/boiler/templating"
)

// previewDebounce groups the burst of events editors emit
// on save.
const previewDebounce = 100 * time.Millisecond

func (a *App) lintCommand() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "lint <file>",
		Short: "Check a snippet for token mistakes",
		Long: `Check a snippet for tokens that look like variables but are not declared,
declarations that are never used and unprefixed declarations. Warnings never
fail the command; a header that cannot be parsed does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if prefix == "" {
				prefix = a.cfg.Prefix
			}

			sn, err := snippet.ParseFile(args[0])
			if err != nil {
				return fmt.Errorf("linting: %w", err)
			}

			warnings := snippet.Lint(sn, prefix)
			for _, w := range warnings {
				a.printer.Warn("%s: %s", args[0], w)
			}

			if len(warnings) == 0 {
				a.printer.Success("%s: no problems found", args[0])

				return nil
			}

			a.printer.Info("%d warning(s)", len(warnings))

			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "token prefix (default from configuration)")

	return cmd
}

type previewOptions struct {
	set   []string
	watch bool
}

func (a *App) previewCommand() *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview <file|snippet>",
		Short: "Render a snippet to stdout without writing anything",
		Example: `  bl preview ./logger.js --set bl__LEVEL=debug
  bl preview logger@2.js
  bl preview ./logger.js --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPreview(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.set, "set", "s", nil, "variable override NAME=value (repeatable)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "render again whenever the file changes")

	return cmd
}

func (a *App) runPreview(ctx context.Context, target string, opts previewOptions) error {
	const errCtx = "previewing"

	overrides, err := templating.ParseOverrides(opts.set)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	pa, err := a.previewPath(target)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	en, err := a.engine(ctx, ".")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !opts.watch {
		if err := a.renderPreview(en, pa, overrides); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil
	}

	return a.watchPreview(ctx, en, pa, overrides)
}

// previewPath accepts a file on disk or a stored snippet.
func (a *App) previewPath(target string) (string, error) {
	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", target)
		}

		return filepath.Abs(target)
	}

	st, err := a.openStore()
	if err != nil {
		return "", err
	}

	en, err := st.Resolve(a.cfg.ResolveAlias(target))
	if err != nil {
		return "", err
	}

	if en.Kind != store.KindSnippet {
		return "", fmt.Errorf("%s is a stack, preview renders snippets", en.FullName())
	}

	return en.Path, nil
}

func (a *App) renderPreview(
	en *templating.Engine,
	pa string,
	overrides map[string]string,
) error {
	sn, err := snippet.ParseFile(pa)
	if err != nil {
		return err
	}

	out, err := en.RenderSnippet(sn, overrides)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(a.Out, out)

	return err
}

// watchPreview renders pa, then renders it again after
// every change until ctx is done. Render errors are printed
// and watching continues.
func (a *App) watchPreview(
	ctx context.Context,
	en *templating.Engine,
	pa string,
	overrides map[string]string,
) error {
	const errCtx = "watching"

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() { _ = w.Close() }()

	// Editors often replace the file, so watch its directory.
	if err := w.Add(filepath.Dir(pa)); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	render := func() {
		if err := a.renderPreview(en, pa, overrides); err != nil {
			a.printer.Error("%v", err)
		}

		a.printer.Faint("--- watching %s (ctrl-c to stop)", filepath.Base(pa))
	}

	render()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != pa ||
				!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			slog.Debug("preview source changed", "path", ev.Name, "op", ev.Op.String())

			if timer == nil {
				timer = time.NewTimer(previewDebounce)
			} else {
				timer.Reset(previewDebounce)
			}

			fire = timer.C
		case <-fire:
			fire = nil

			render()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			slog.Warn("watch error", "path", pa, "error", err)
		}
	}
}

type initOptions struct {
	snippet     bool
	frontMatter bool
	yes         bool
	force       bool
}

func (a *App) initCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a stack manifest or a snippet skeleton",
		Long: `Without --snippet, write a boiler.stack.json into the directory at path
(default the current directory). With --snippet, create the snippet file at
path with a header declaring an example variable.`,
		Example: `  bl init
  bl init ./templates/api --yes
  bl init --snippet ./utils/logger.js`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pa := ""
			if len(args) > 0 {
				pa = args[0]
			}

			if opts.snippet {
				return a.initSnippet(cmd.Context(), pa, opts)
			}

			if pa == "" {
				pa = "."
			}

			return a.initStack(cmd.Context(), pa, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.snippet, "snippet", "n", false, "create a snippet instead of a stack manifest")
	f.BoolVar(&opts.frontMatter, "front-matter", false, "use a YAML front matter header for the snippet")
	f.BoolVarP(&opts.yes, "yes", "y", false, "accept defaults without asking")
	f.BoolVarP(&opts.force, "force", "f", false, "overwrite an existing snippet file")

	return cmd
}

func (a *App) initStack(ctx context.Context, dir string, opts initOptions) error {
	const errCtx = "initializing stack"

	if pa, err := stack.FindManifest(dir); err == nil {
		return fmt.Errorf("%s: %s already exists", errCtx, pa)
	} else if !errors.Is(err, stack.ErrNoManifest) {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.MkdirAll(abs, 0o750); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	pr := a.prompter(opts.yes)

	id, err := pr.Input("Stack id", filepath.Base(abs))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	author, err := a.author(ctx)
	if err != nil {
		slog.Debug("no default author", "error", err)
	}

	author, err = pr.Input("Author", author)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	desc, err := pr.Input("Description", "")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	now := a.now()

	ma := &stack.Manifest{
		ID:          strings.TrimSpace(id),
		Version:     "1",
		Author:      author,
		Description: desc,
		CreatedAt:   &now,
	}

	if err := stack.WriteManifest(abs, ma); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	a.printer.Success("Created %s in %s", stack.ManifestJSON, abs)
	a.printer.Info("")
	a.printer.Info("Next steps:")
	a.printer.Info("  1. Add your template files to %s", abs)
	a.printer.Info("  2. Declare variables in each file header")
	a.printer.Info("  3. Run: bl store %s", dir)

	return nil
}

func (a *App) initSnippet(ctx context.Context, pa string, opts initOptions) error {
	const errCtx = "initializing snippet"

	pr := a.prompter(opts.yes)

	if pa == "" {
		in, err := pr.Input("Snippet file", "snippet.js")
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		pa = in
	}

	ext := filepath.Ext(pa)
	if ext == "" {
		return fmt.Errorf("%s: %s: snippet file needs an extension", errCtx, pa)
	}

	author, err := a.author(ctx)
	if err != nil {
		slog.Debug("no default author", "error", err)
	}

	author, err = pr.Input("Author", author)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if strings.TrimSpace(author) == "" {
		return fmt.Errorf("%s: %w", errCtx, store.ErrMissingAuthor)
	}

	desc, err := pr.Input("Description", "")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	meta := snippet.Metadata{Author: author, Description: desc, Version: 1}
	example := snippet.Variable{
		Name:       a.cfg.Prefix + "EXAMPLE_VAR",
		Default:    "DefaultValue",
		HasDefault: true,
	}

	content, err := a.snippetSkeleton(meta, example, ext, opts.frontMatter)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.MkdirAll(filepath.Dir(pa), 0o750); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	outcome, err := scaffold.Write(pa, []byte(content), scaffold.Options{Force: opts.force})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	a.printer.Success("%s %s", outcome, pa)
	a.printer.Info("")
	a.printer.Info("Next steps:")
	a.printer.Info("  1. Replace the example body and variable")
	a.printer.Info("  2. Check it: bl lint %s", pa)
	a.printer.Info("  3. Store it: bl store %s", pa)

	return nil
}

func (a *App) snippetSkeleton(
	meta snippet.Metadata,
	example snippet.Variable,
	ext string,
	frontMatter bool,
) (string, error) {
	if frontMatter {
		header, err := snippet.Generate(meta, []snippet.Variable{example})
		if err != nil {
			return "", err
		}

		return header + example.Name + "\n", nil
	}

	cp := a.cfg.CommentPrefix(ext)
	header := snippet.GenerateMarkers(meta, []snippet.Variable{example}, cp)

	closer := ""

	switch trimmed := strings.TrimSpace(cp); {
	case strings.HasPrefix(trimmed, "/*"):
		closer = " */"
	case strings.HasPrefix(trimmed, "<!--"):
		closer = " -->"
	}

	return header + "\n" + cp + "value: " + example.Name + closer + "\n", nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}

	return time.Now()
}
