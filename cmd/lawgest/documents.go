package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/lawgest/internal/convert"
	"github.com/dgallion1/lawgest/internal/validate"
)

func reformatCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reformat <json>...",
		Short: "Re-run text normalization on converted JSON files",
		Long: `Re-run the text normalizer over every article of existing JSON files.
A file is rewritten only when at least one article changed. Headers are left
as they are.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.loadRules()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			total := 0
			for _, path := range args {
				docs, err := readDocuments(path)
				if err != nil {
					return err
				}
				changed := 0
				for _, doc := range docs {
					changed += convert.Reformat(doc, set.Normalize())
				}
				total += changed
				if changed == 0 {
					fmt.Fprintf(out, "%s: unchanged\n", path)
					continue
				}
				if !dryRun {
					if err := writeDocuments(path, docs...); err != nil {
						return err
					}
				}
				warnColor.Fprintf(out, "%s: %d articles reformatted\n", path, changed)
			}
			headColor.Fprintf(out, "%d articles changed in %d files\n", total, len(args))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without writing")
	return cmd
}

func checkCmd(a *app) *cobra.Command {
	var (
		expected int
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "check <json>...",
		Short: "Validate article numbering of converted JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.ValidateConfig()
			cfg.ExpectedTotal = expected
			out := cmd.OutOrStdout()
			warned := false
			for _, path := range args {
				docs, err := readDocuments(path)
				if err != nil {
					return err
				}
				for _, doc := range docs {
					rep := validate.Articles(doc.Content, cfg)
					fmt.Fprintf(out, "%s (%s): %d articles", doc.Title, doc.Category, rep.ArticleCount)
					if rep.MinBase >= 0 {
						fmt.Fprintf(out, ", numbered %d-%d", rep.MinBase, rep.MaxBase)
					}
					fmt.Fprintln(out)
					if !rep.HasWarnings() {
						okColor.Fprintln(out, "  ✓ no findings")
						continue
					}
					warned = true
					for _, msg := range rep.Messages() {
						warnColor.Fprintf(out, "  ! %s\n", msg)
					}
				}
			}
			if strict && warned {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&expected, "expected", 0, "expected article count, reports missing numbers")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with status 1 when any finding is reported")
	return cmd
}
