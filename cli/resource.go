package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/byte4ever/boiler/snippet"
	"github.com/byte4ever/boiler/stack"
	"github.com/byte4ever/boiler/store"
	"github.com/byte4ever/boiler/templating"
	"github.com/byte4ever/boiler/ui"
)

type addOptions struct {
	to     string
	as     string
	set    []string
	force  bool
	dryRun bool
	remote bool
}

func (a *App) addCommand() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add <resource>",
		Short: "Add a snippet or stack to a project",
		Long: `Render a stored snippet (name with extension, e.g. logger.js) or a
stored stack (name without extension, e.g. express-auth) into the target
directory. Without a version the latest stored version is used.

Each file either succeeds or is reported failed on its own; files written
before a failure are kept.`,
		Example: `  bl add logger.js
  bl add logger@2.js --to src/utils --set bl__LEVEL=debug
  bl add express-auth --set bl__JWT_SECRET=change-me --dry-run
  bl add errorHandler.js --remote`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAdd(cmd.Context(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.to, "to", "t", ".", "target directory")
	f.StringVar(&opts.as, "as", "", "destination file name for a snippet")
	f.StringArrayVarP(&opts.set, "set", "s", nil, "variable override NAME=value (repeatable)")
	f.BoolVarP(&opts.force, "force", "f", false, "overwrite existing files")
	f.BoolVar(&opts.dryRun, "dry-run", false, "render without writing")
	f.BoolVarP(&opts.remote, "remote", "r", false, "fetch from the remote registry first")

	return cmd
}

func (a *App) runAdd(
	ctx context.Context,
	resource string,
	opts addOptions,
) error {
	const errCtx = "adding"

	resource = a.cfg.ResolveAlias(resource)

	overrides, err := templating.ParseOverrides(opts.set)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	st, err := a.openStore()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if opts.remote {
		if _, err := a.fetchRemote(ctx, st, resource, true); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	en, err := st.Resolve(resource)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	asm, err := a.assembler(ctx, st, opts.to, opts.force, opts.dryRun)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var rep *stack.Report

	switch en.Kind {
	case store.KindSnippet:
		if ok, err := st.Verify(en.FullName()); err == nil && !ok {
			a.printer.Warn("%s does not match its stored digest", en.FullName())
		}

		dest := opts.as
		if dest == "" {
			dest = en.Name + en.Ext
		}

		rep = asm.ApplySnippet(ctx, en.Path, dest, opts.to, overrides)
	default:
		stk, err := stack.Load(en.Path)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		rep, err = asm.Apply(ctx, stk, opts.to, overrides)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	slog.Info(
		"resource added",
		"resource", en.FullName(),
		"target", opts.to,
		"succeeded", rep.Succeeded(),
		"failed", rep.Failed(),
	)

	if err := a.printReport(rep); err != nil {
		return fmt.Errorf("%s %s: %w", errCtx, en.FullName(), err)
	}

	return nil
}

type storeOptions struct {
	name      string
	asSnippet bool
	asStack   bool
	force     bool
}

func (a *App) storeCommand() *cobra.Command {
	var opts storeOptions

	cmd := &cobra.Command{
		Use:   "store [path]",
		Short: "Store a file as a snippet or a directory as a stack",
		Long: `Store a file as a snippet or a directory as a stack.

Snippets need an extension and an __author declaration; a snippet without
__version gets the next free version. Stacks need a boiler.stack.json
(run 'bl init' first) with an id and a version.`,
		Example: `  bl store ./utils/logger.js
  bl store ./config.js --name dbConfig
  bl store ./my-template`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			pa := "."
			if len(args) > 0 {
				pa = args[0]
			}

			return a.runStore(pa, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "name for the resource (default from the path)")
	f.BoolVarP(&opts.asSnippet, "snippet", "n", false, "store as snippet")
	f.BoolVarP(&opts.asStack, "stack", "k", false, "store as stack")
	f.BoolVarP(&opts.force, "force", "f", false, "overwrite a stored version without asking")

	return cmd
}

func (a *App) runStore(pa string, opts storeOptions) error {
	const errCtx = "storing"

	info, err := os.Stat(pa)
	if err != nil {
		return fmt.Errorf("%s: path %s does not exist: %w", errCtx, pa, err)
	}

	asStack := info.IsDir()

	switch {
	case opts.asSnippet:
		asStack = false
	case opts.asStack:
		asStack = true
	}

	switch {
	case asStack && !info.IsDir():
		return fmt.Errorf("%s: stack must be a directory, not a file", errCtx)
	case !asStack && info.IsDir():
		return fmt.Errorf("%s: snippet must be a file, not a directory", errCtx)
	}

	st, err := a.openStore()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	importFn := func(overwrite bool) (store.Entry, error) {
		if asStack {
			return st.ImportStack(pa, overwrite)
		}

		return st.ImportSnippet(pa, opts.name, overwrite)
	}

	en, err := importFn(opts.force)
	if errors.Is(err, store.ErrAlreadyStored) {
		ok, perr := a.prompter(false).Confirm(
			fmt.Sprintf("%v. Overwrite?", err),
		)
		if perr != nil {
			return fmt.Errorf("%s: %w", errCtx, perr)
		}

		if !ok {
			a.printer.Info("Cancelled")

			return nil
		}

		en, err = importFn(true)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	a.printer.Success("Stored %s '%s' at %s", en.Kind, en.FullName(), en.Path)

	return nil
}

type kindOptions struct {
	snippets bool
	stacks   bool
}

func (o kindOptions) kind() store.Kind {
	switch {
	case o.snippets && !o.stacks:
		return store.KindSnippet
	case o.stacks && !o.snippets:
		return store.KindStack
	default:
		return ""
	}
}

func (o *kindOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&o.snippets, "snippets", "n", false, "snippets only")
	cmd.Flags().BoolVarP(&o.stacks, "stacks", "k", false, "stacks only")
}

func (a *App) listCommand() *cobra.Command {
	var opts kindOptions

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored snippets and stacks",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return fmt.Errorf("listing: %w", err)
			}

			entries := st.List(opts.kind())
			if len(entries) == 0 {
				a.printer.Info("No resources found in store")

				return nil
			}

			a.printEntries(entries)

			return nil
		},
	}

	opts.register(cmd)

	return cmd
}

func (a *App) searchCommand() *cobra.Command {
	var opts kindOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored resources by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return fmt.Errorf("searching: %w", err)
			}

			entries := st.Search(args[0], opts.kind())
			if len(entries) == 0 {
				a.printer.Info("No matches for %q", args[0])

				return nil
			}

			a.printEntries(entries)

			return nil
		},
	}

	opts.register(cmd)

	return cmd
}

// printEntries groups entries by kind. List and Search
// return snippets first.
func (a *App) printEntries(entries []store.Entry) {
	var current store.Kind

	for _, en := range entries {
		if en.Kind != current {
			current = en.Kind
			a.printer.Title("%ss", en.Kind)
		}

		a.printer.Info("  %s", en.FullName())
	}
}

func (a *App) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <resource>",
		Short: "Show a stored resource's metadata, variables and digest status",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runInfo(args[0])
		},
	}
}

func (a *App) runInfo(resource string) error {
	const errCtx = "showing info"

	st, err := a.openStore()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	en, err := st.Resolve(a.cfg.ResolveAlias(resource))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if en.Kind == store.KindStack {
		return a.stackInfo(en)
	}

	sn, err := snippet.ParseFile(en.Path)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	verified, err := st.Verify(en.FullName())
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	digest := "ok"
	if !verified {
		digest = "modified since stored"
	}

	a.printer.Title("Snippet %s", en.FullName())
	a.printer.Field("Path", en.Path)
	a.printer.Field("Author", sn.Author)
	a.printer.Field("Description", sn.Description)
	a.printer.Field("Version", en.Version)
	a.printer.Field("Digest", digest)
	a.printer.Field("Lint", fmt.Sprintf("%d warning(s)", len(snippet.Lint(sn, a.cfg.Prefix))))
	a.printer.Field("Variables", len(sn.Variables))

	for _, v := range sn.Variables {
		if v.HasDefault {
			a.printer.Info("    %s = %s", v.Name, v.Default)

			continue
		}

		a.printer.Info("    %s (required)", v.Name)
	}

	return nil
}

func (a *App) stackInfo(en store.Entry) error {
	stk, err := stack.Load(en.Path)
	if err != nil {
		return fmt.Errorf("showing info: %w", err)
	}

	ma := stk.Manifest

	a.printer.Title("Stack %s", en.FullName())
	a.printer.Field("Path", en.Path)
	a.printer.Field("Author", ma.Author)
	a.printer.Field("Description", ma.Description)
	a.printer.Field("Version", ma.Version)

	if ma.CreatedAt != nil {
		a.printer.Field("Created", ma.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if len(ma.Set) > 0 {
		names := make([]string, 0, len(ma.Set))
		for name := range ma.Set {
			names = append(names, name)
		}

		sort.Strings(names)

		a.printer.Field("Set", len(names))

		for _, name := range names {
			a.printer.Info("    %s = %s", name, ma.Set[name])
		}
	}

	if len(ma.Files) == 0 {
		files, err := stack.Walk(en.Path, ma.Ignore)
		if err != nil {
			return fmt.Errorf("showing info: %w", err)
		}

		a.printer.Field("Files", len(files))

		for _, f := range files {
			a.printer.Info("    %s", f)
		}

		return nil
	}

	a.printer.Field("Files", len(ma.Files))

	for _, fe := range ma.Files {
		source := fe.Snippet
		if fe.Ref != "" {
			source = "ref " + fe.Ref
		}

		a.printer.Info("    %s <- %s", fe.Dest, source)
	}

	return nil
}

type cleanOptions struct {
	kindOptions

	all bool
	yes bool
}

func (a *App) cleanCommand() *cobra.Command {
	var opts cleanOptions

	cmd := &cobra.Command{
		Use:   "clean [resource]",
		Short: "Remove stored snippets or stacks",
		Example: `  bl clean logger@1.js
  bl clean --stacks
  bl clean --all --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.runClean(args, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "remove every resource")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func (a *App) runClean(args []string, opts cleanOptions) error {
	const errCtx = "cleaning"

	st, err := a.openStore()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	pr := a.prompter(opts.yes)

	if len(args) == 1 {
		en, err := st.Resolve(a.cfg.ResolveAlias(args[0]))
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		ok, err := pr.Confirm(fmt.Sprintf("Remove %s %s?", en.Kind, en.FullName()))
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if !ok {
			a.printer.Info("Cancelled")

			return nil
		}

		if err := st.Remove(en.FullName()); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		a.printer.Success("Removed %s '%s'", en.Kind, en.FullName())

		return nil
	}

	kind, label, err := a.cleanScope(opts, pr)
	if err != nil || label == "" {
		return err
	}

	n := len(st.List(kind))
	if n == 0 {
		a.printer.Info("No %s to clean", label)

		return nil
	}

	ok, err := pr.Confirm(fmt.Sprintf("Remove %d %s?", n, label))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if !ok {
		a.printer.Info("Cancelled")

		return nil
	}

	removed, err := st.Clear(kind)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	a.printer.Success("Removed %d %s", removed, label)

	return nil
}

// cleanScope maps flags, or an interactive choice, to the
// kind to clear. An empty label means the user quit.
func (a *App) cleanScope(
	opts cleanOptions,
	pr ui.Prompter,
) (store.Kind, string, error) {
	switch {
	case opts.all:
		return "", "resources", nil
	case opts.snippets || opts.stacks:
		kind := opts.kind()
		if kind == "" {
			return "", "resources", nil
		}

		return kind, string(kind) + "s", nil
	case opts.yes:
		return "", "", errors.New(
			"cleaning: pass a resource, --all, --snippets or --stacks",
		)
	}

	choice, err := pr.Select(
		"What do you want to clean?",
		[]string{"quit", "stacks", "snippets", "all"},
	)
	if err != nil {
		return "", "", fmt.Errorf("cleaning: %w", err)
	}

	switch choice {
	case "stacks":
		return store.KindStack, "stacks", nil
	case "snippets":
		return store.KindSnippet, "snippets", nil
	case "all":
		return "", "resources", nil
	default:
		a.printer.Info("Cancelled")

		return "", "", nil
	}
}
