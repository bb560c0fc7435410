package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/byte4ever/boiler/config"
	"github.com/byte4ever/boiler/exec"
	"github.com/byte4ever/boiler/registry"
	"github.com/byte4ever/boiler/stack"
	"github.com/byte4ever/boiler/stamper"
	"github.com/byte4ever/boiler/store"
	"github.com/byte4ever/boiler/templating"
	"github.com/byte4ever/boiler/ui"
	"github.com/byte4ever/boiler/version"
)

// SourceFunc opens the configured remote registry. The
// returned cleanup is never nil.
type SourceFunc func(
	ctx context.Context,
	reg config.Registry,
) (registry.Source, func(), error)

// ScriptRunner runs an external command attached to the
// terminal.
type ScriptRunner func(
	ctx context.Context,
	name string,
	args ...string,
) error

// App carries the state shared by bl's commands. Build one
// with New; each Execute call loads the configuration again.
type App struct {
	Out io.Writer
	Err io.Writer

	// Prompter asks questions. Nil uses terminal forms;
	// commands run with --yes always use ui.Assume.
	Prompter ui.Prompter
	// Now feeds the date stamps. Nil uses time.Now.
	Now func() time.Time
	// OpenSource opens the remote registry. Nil uses
	// OpenSource.
	OpenSource SourceFunc
	// RunScript runs install scripts and editors. Nil uses
	// exec.Interactive.
	RunScript ScriptRunner

	configPath string
	logLevel   string
	verbose    bool

	cfg     *config.Config
	printer *ui.Printer
	logFile io.Closer
}

// New returns an App writing to out and errOut.
func New(out io.Writer, errOut io.Writer) *App {
	return &App{
		Out:     out,
		Err:     errOut,
		printer: ui.NewPrinter(out, errOut),
	}
}

// Execute runs bl with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.Command()
	root.SetArgs(args)
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	defer a.closeLog()

	if err := root.ExecuteContext(ctx); err != nil {
		a.printer.Error("%v", err)
		slog.Error("command failed", "error", err)

		return err
	}

	return nil
}

// Command builds the bl command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "bl",
		Short: "Boiler - code snippet and stack manager",
		Long: `Boiler stores reusable code snippets and project stacks, versions
them, and renders them into your projects with their template variables
filled in.`,
		Example: `  # Store a snippet and add it to a project
  bl store ./utils/logger.js
  bl add logger.js --set bl__LEVEL=debug

  # Apply a stack
  bl add express-auth --to ./api --set bl__JWT_SECRET=change-me`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.printer.Banner(version.Current())
			a.printer.Info("")
			a.printer.Info("Quick commands:")
			a.printer.Info("  bl add <resource>    Add a snippet or stack")
			a.printer.Info("  bl store <path>      Store a file or directory")
			a.printer.Info("  bl ls                List stored resources")
			a.printer.Info("  bl --help            Show full help")

			return nil
		},
	}

	envLevel := os.Getenv(config.EnvPrefix + "_LOG_LEVEL")
	if envLevel == "" {
		envLevel = "warn"
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "configuration file (default ~/.boiler/boiler.conf.json)")
	pf.StringVar(&a.logLevel, "log-level", envLevel, "log level (debug, info, warn, error)")
	pf.BoolVarP(&a.verbose, "verbose", "V", false, "log debug output to stderr")

	root.AddCommand(
		a.addCommand(),
		a.storeCommand(),
		a.listCommand(),
		a.searchCommand(),
		a.infoCommand(),
		a.lintCommand(),
		a.previewCommand(),
		a.initCommand(),
		a.cleanCommand(),
		a.confCommand(),
		a.pathCommand(),
		a.versionCommand(),
		a.pullCommand(),
		a.serveCommand(),
		a.selfCommand(),
	)

	return root
}

// setup loads the configuration and installs the logger.
func (a *App) setup(_ *cobra.Command, _ []string) error {
	const errCtx = "initializing"

	if a.printer == nil {
		a.printer = ui.NewPrinter(a.Out, a.Err)
	}

	if a.configPath == "" {
		pa, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		a.configPath = pa
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := cfg.InitDirs(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	a.cfg = cfg

	return a.setupLogging()
}

func (a *App) openStore() (*store.Store, error) {
	return store.Open(store.Paths{
		Root:     a.cfg.Paths.Store,
		Snippets: a.cfg.Paths.Snippets,
		Stacks:   a.cfg.Paths.Stacks,
	})
}

func (a *App) prompter(yes bool) ui.Prompter {
	switch {
	case yes:
		return ui.Assume{}
	case a.Prompter != nil:
		return a.Prompter
	default:
		return ui.HuhPrompter{}
	}
}

func (a *App) runScript(ctx context.Context, name string, args ...string) error {
	if a.RunScript != nil {
		return a.RunScript(ctx, name, args...)
	}

	return exec.Interactive(ctx, name, args...)
}

// author prefers the configured author over git's.
func (a *App) author(ctx context.Context) (string, error) {
	if a.cfg.Author != "" {
		return a.cfg.Author, nil
	}

	return stamper.GitAuthor(ctx)
}

// engine builds a render engine whose stamps describe a
// render into targetDir. Stamp files override builtins.
func (a *App) engine(
	ctx context.Context,
	targetDir string,
) (*templating.Engine, error) {
	files, err := stamper.LoadStamps(a.cfg.Stamps)
	if err != nil {
		return nil, err
	}

	builtins := stamper.Builtins{
		Now:    a.Now,
		Author: a.author,
	}.Collect(ctx, targetDir)

	return &templating.Engine{
		Stamps: stamper.Merge(builtins, files),
	}, nil
}

func (a *App) assembler(
	ctx context.Context,
	st *store.Store,
	targetDir string,
	force bool,
	dryRun bool,
) (*stack.Assembler, error) {
	en, err := a.engine(ctx, targetDir)
	if err != nil {
		return nil, err
	}

	return &stack.Assembler{
		Engine:      en,
		Resolver:    st,
		Prefix:      a.cfg.Prefix,
		Force:       force,
		DryRun:      dryRun,
		Parallelism: a.cfg.Parallelism,
	}, nil
}

// printReport lists per-file outcomes and returns an error
// when any file failed.
func (a *App) printReport(rep *stack.Report) error {
	for _, re := range rep.Results {
		for _, w := range re.Warnings {
			a.printer.Warn("%s: %s", re.Dest, w)
		}

		if re.Err != nil {
			a.printer.Error("%s: %v", re.Dest, re.Err)

			continue
		}

		a.printer.Success("%-11s %s", re.Outcome, re.Dest)
	}

	for _, name := range rep.Unused {
		a.printer.Warn("override %s is not declared by any file", name)
	}

	a.printer.Info(
		"%s: %d succeeded, %d failed",
		rep.Name, rep.Succeeded(), rep.Failed(),
	)

	if rep.Failed() > 0 {
		return fmt.Errorf(
			"%d of %d files failed: %w",
			rep.Failed(), len(rep.Results), rep.Err(),
		)
	}

	return nil
}
