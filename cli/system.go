package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/byte4ever/boiler/config"
	"github.com/byte4ever/boiler/installer"
	"github.com/byte4ever/boiler/version"
)

type confOptions struct {
	edit    bool
	reset   bool
	restore bool
	yes     bool
}

func (a *App) confCommand() *cobra.Command {
	var opts confOptions

	cmd := &cobra.Command{
		Use:     "conf",
		Aliases: []string{"config"},
		Short:   "Show, edit, reset or restore the configuration",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case opts.edit:
				return a.editConfig(cmd)
			case opts.reset:
				return a.resetConfig(opts.yes)
			case opts.restore:
				if err := config.Restore(a.configPath); err != nil {
					return err
				}

				a.printer.Success("Restored configuration from %s", a.configPath+config.BackupSuffix)

				return nil
			}

			data, err := os.ReadFile(a.configPath)
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}

			a.printer.Title("Configuration: %s", a.configPath)
			a.printer.Info("%s", strings.TrimRight(string(data), "\n"))

			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.edit, "edit", "e", false, "open the configuration in $EDITOR")
	f.BoolVarP(&opts.reset, "reset", "r", false, "reset to defaults, keeping a backup")
	f.BoolVar(&opts.restore, "restore", false, "restore the backup written by --reset")
	f.BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")
	cmd.MarkFlagsMutuallyExclusive("edit", "reset", "restore")

	return cmd
}

func (a *App) editConfig(cmd *cobra.Command) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = a.cfg.DefaultEditor
	}

	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return errors.New("editing config: no editor configured (set $EDITOR)")
	}

	args := append(fields[1:], a.configPath)

	if err := a.runScript(cmd.Context(), fields[0], args...); err != nil {
		return fmt.Errorf("editing config: %w", err)
	}

	return nil
}

func (a *App) resetConfig(yes bool) error {
	ok, err := a.prompter(yes).Confirm("Reset the configuration to defaults?")
	if err != nil {
		return fmt.Errorf("resetting config: %w", err)
	}

	if !ok {
		a.printer.Info("Cancelled")

		return nil
	}

	if err := config.Reset(a.configPath); err != nil {
		return err
	}

	a.printer.Success("Configuration reset")
	a.printer.Info("Backup: %s", a.configPath+config.BackupSuffix)

	return nil
}

func (a *App) pathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show Boiler's directories",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			p := a.cfg.Paths

			a.printer.Title("Boiler paths")
			a.printer.Field("Config", a.configPath)
			a.printer.Field("Root", p.Root)
			a.printer.Field("Store", p.Store)
			a.printer.Field("Snippets", p.Snippets)
			a.printer.Field("Stacks", p.Stacks)
			a.printer.Field("Logs", p.Logs)
			a.printer.Field("Bin", p.Bin)

			return nil
		},
	}
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a.printer.Info("%s", version.Info())

			return nil
		},
	}
}

func (a *App) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the install endpoints",
		Long: `Serve GET /install, which returns install.ps1 to Windows clients and
install.sh to everyone else, fetched from the configured script location.
GET / redirects to the repository.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst := a.cfg.Install
			if addr == "" {
				addr = inst.Addr
			}

			h, err := installer.New(installer.Config{
				ScriptBaseURL: inst.ScriptBaseURL,
				RepoURL:       inst.RepoURL,
				RetryMax:      2,
				Timeout:       10 * time.Second,
			})
			if err != nil {
				return err
			}

			a.printer.Info("Serving install endpoints on %s", addr)

			return installer.Serve(cmd.Context(), addr, h)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from configuration)")

	return cmd
}

func (a *App) selfCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self",
		Short: "Update or uninstall bl",
	}

	var yes bool

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove bl from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := a.prompter(yes).Confirm("Uninstall bl?")
			if err != nil {
				return fmt.Errorf("uninstalling: %w", err)
			}

			if !ok {
				a.printer.Info("Cancelled")

				return nil
			}

			return a.runInstallScript(cmd, "uninstall")
		},
	}

	uninstall.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "update",
			Short: "Install the latest release of bl",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runInstallScript(cmd, "install")
			},
		},
		uninstall,
	)

	return cmd
}

// runInstallScript downloads and runs name.sh, or name.ps1
// on Windows, from the configured script location.
func (a *App) runInstallScript(cmd *cobra.Command, name string) error {
	base := strings.TrimRight(a.cfg.Install.ScriptBaseURL, "/")

	var err error

	if runtime.GOOS == "windows" {
		url := base + "/" + name + ".ps1"
		err = a.runScript(
			cmd.Context(),
			"powershell", "-NoProfile", "-ExecutionPolicy", "Bypass",
			"-Command", "iwr -useb "+url+" | iex",
		)
	} else {
		url := base + "/" + name + ".sh"
		err = a.runScript(
			cmd.Context(),
			"bash", "-c", "curl -fsSL "+url+" | bash",
		)
	}

	if err != nil {
		return fmt.Errorf("running %s script: %w", name, err)
	}

	a.printer.Success("%s finished", name)

	return nil
}
