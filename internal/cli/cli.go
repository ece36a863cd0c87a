// Package cli wires the rhdlc resolution engine to a cobra command line,
// grounded on the teacher's cmd/cue/cmd root command: one positional
// argument, a handful of flags, and a locale-aware summary line printed
// through golang.org/x/text/message.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rhdl/rhdlc/internal/debugdump"
	"github.com/rhdl/rhdlc/internal/diagnostic"
	"github.com/rhdl/rhdlc/internal/pipeline"
	"github.com/rhdl/rhdlc/internal/source"
)

// flags holds the parsed command-line options for one invocation.
type flags struct {
	ext       string
	dumpGraph string
	color     string
}

// New builds the rhdlc root command.
func New() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "rhdlc <path|->",
		Short: "resolve module structure and names for an rhdl source tree",
		Long: `rhdlc loads one root rhdl source file, follows its mod declarations
across sibling files and folders, and resolves every name use against
the tree's visibility rules, reporting rustc-style diagnostics for
anything that does not resolve.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.ext, "ext", "", "override the inferred source file extension")
	cmd.Flags().StringVar(&f.dumpGraph, "dump-graph", "", "dump the resolution graph for inspection (pretty, json, or yaml); no value means pretty")
	cmd.Flags().Lookup("dump-graph").NoOptDefVal = "pretty"
	cmd.Flags().StringVar(&f.color, "color", "auto", "when to colorize diagnostics: auto, always, never")
	return cmd
}

func run(cmd *cobra.Command, arg string, f *flags) error {
	switch f.color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("--color: unknown value %q (want auto, always, or never)", f.color)
	}

	var root source.Resolution
	if arg == "-" {
		root = source.Stdin
	} else {
		info, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if info.IsDir() {
			diags := &diagnostic.List{}
			diags.Add(&diagnostic.Diagnostic{
				Severity: diagnostic.Error,
				Code:     diagnostic.CodeDirectoryArgument,
				Message:  fmt.Sprintf("%s is a directory, not an rhdl source file", arg),
			})
			printDiagnostics(cmd.ErrOrStderr(), diags, f.color)
			return errSilent{}
		}
		root = source.NewFile(arg)
	}
	if f.ext != "" {
		root.Path = strings.TrimSuffix(root.Path, "."+root.Extension()) + "." + f.ext
	}

	ctx := pipeline.New()
	if err := ctx.Run(root); err != nil {
		return err
	}

	if f.dumpGraph != "" && ctx.Graph != nil {
		format, err := debugdump.ParseFormat(f.dumpGraph)
		if err != nil {
			return err
		}
		if err := debugdump.Write(cmd.OutOrStdout(), ctx.RunID, ctx.Graph, format); err != nil {
			return err
		}
	}

	printDiagnostics(cmd.ErrOrStderr(), ctx.Diags, f.color)

	if ctx.Diags.HasErrors() {
		return errSilent{}
	}
	return nil
}

// errSilent signals a non-zero exit without cobra re-printing a message
// already rendered by printDiagnostics.
type errSilent struct{}

func (errSilent) Error() string { return "" }

func printDiagnostics(w io.Writer, diags *diagnostic.List, color string) {
	for _, d := range diags.Diagnostics() {
		fmt.Fprintln(w, diagnostic.Render(d))
		if d.Code != "" {
			fmt.Fprintf(w, "   = code: %s\n", d.Code)
		}
		fmt.Fprintln(w)
	}

	p := message.NewPrinter(getLang())
	errs, warns := countBySeverity(diags)
	if errs > 0 {
		p.Fprintf(w, "%d error(s)\n", errs)
	}
	if warns > 0 {
		p.Fprintf(w, "%d warning(s)\n", warns)
	}
	_ = color // reserved: the renderer does not emit ANSI codes yet, but
	// the flag is parsed and validated so scripts can pass it consistently
	// once it does.
}

func countBySeverity(diags *diagnostic.List) (errs, warns int) {
	for _, d := range diags.Diagnostics() {
		switch d.Severity {
		case diagnostic.Error:
			errs++
		case diagnostic.Warning:
			warns++
		}
	}
	return errs, warns
}

// getLang mirrors the teacher's LC_ALL/LANG sniffing so the diagnostic
// count summary is rendered in the user's locale without a config flag.
func getLang() language.Tag {
	loc := os.Getenv("LC_ALL")
	if loc == "" {
		loc = os.Getenv("LANG")
	}
	loc = strings.Split(loc, ".")[0]
	return language.Make(loc)
}
