// Command lawgest converts law documents in batch and manages published laws.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgallion1/lawgest/internal/config"
	"github.com/dgallion1/lawgest/internal/rules"
)

var version = "0.1.0"

// errFailed makes the process exit with status 1 after the command already
// reported what went wrong.
var errFailed = errors.New("one or more documents failed")

// app holds what every command needs.
type app struct {
	cfg config.Config
	log *slog.Logger

	rulesFile string
	verbose   bool
	noColor   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "lawgest",
		Short: "Legal document segmentation and normalization",
		Long: `lawgest turns law texts (PDF, DOCX, HTML, Markdown, plain text) into
structured documents of articles and headers, checks their numbering, and
publishes them to pathstore.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setup(cmd.ErrOrStderr(), cmd.OutOrStdout())
		},
	}
	root.PersistentFlags().StringVar(&a.rulesFile, "rules", "", "YAML rules file (default: $RULES_FILE or built-in rules)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		convertCmd(a),
		reformatCmd(a),
		checkCmd(a),
		publishCmd(a),
		deleteCmd(a),
		rulesCmd(a),
	)
	return root
}

func (a *app) setup(stderr, stdout io.Writer) {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	a.cfg = config.Load()
	if a.rulesFile == "" {
		a.rulesFile = a.cfg.RulesFile
	}

	color.NoColor = a.noColor || !isTerminal(stdout)
}

// loadRules loads the rule set for this run. A bad rules file aborts the run.
func (a *app) loadRules() (*rules.Set, error) {
	if a.rulesFile == "" {
		return rules.Default(), nil
	}
	set, err := rules.LoadFile(a.rulesFile)
	if err != nil {
		return nil, err
	}
	a.log.Debug("rules loaded", "path", a.rulesFile, "markers", len(set.Rules()))
	return set, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
