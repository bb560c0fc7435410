// Binary bl-render renders a single snippet file using
// stamp info files and explicit variable overrides,
// without going through the Boiler store.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/byte4ever/boiler/stamper"
	"github.com/byte4ever/boiler/templating"
)

type renderOptions struct {
	stampFiles []string
	set        []string
	output     string
	template   string
	executable bool
	startTag   string
	endTag     string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)

	return cmd.Execute()
}

func newRootCommand() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:           "bl-render",
		Short:         "Render one snippet file outside the store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return render(opts)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.stampFiles, "stamp-info-file", nil, "stamp info file path (repeatable)")
	f.StringArrayVarP(&opts.set, "set", "s", nil, "override NAME=value (repeatable)")
	f.StringVarP(&opts.output, "output", "o", "", "output file path (stdout if empty)")
	f.StringVarP(&opts.template, "template", "t", "", "input snippet file path (stdin if empty)")
	f.BoolVar(&opts.executable, "executable", false, "set the executable bit on the output file")
	f.StringVar(&opts.startTag, "start-tag", "{", "start tag for stamp placeholders in values")
	f.StringVar(&opts.endTag, "end-tag", "}", "end tag for stamp placeholders in values")

	return cmd
}

func render(opts renderOptions) error {
	const errCtx = "running bl-render"

	stamps, err := stamper.LoadStamps(opts.stampFiles)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	en := templating.Engine{
		StartTag: opts.startTag,
		EndTag:   opts.endTag,
		Stamps:   stamps,
	}

	if err := en.Expand(
		opts.template, opts.output, opts.set, opts.executable,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
