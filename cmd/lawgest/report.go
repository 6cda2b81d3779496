package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/dgallion1/lawgest/internal/convert"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	headColor = color.New(color.FgWhite, color.Bold)
)

// printSummary writes the end-of-run report: every converted document with
// its warnings, then every failure with its kind.
func printSummary(w io.Writer, sum convert.Summary) {
	headColor.Fprintf(w, "\nConverted %d, failed %d, warnings %d\n",
		len(sum.Succeeded), len(sum.Failed), sum.Warnings())

	for _, s := range sum.Succeeded {
		okColor.Fprint(w, "  ✓ ")
		fmt.Fprintf(w, "%s → %s (%d nodes, %d articles", s.Source, s.Category, s.Nodes, s.Report.ArticleCount)
		if s.Report.MinBase >= 0 {
			fmt.Fprintf(w, ", %d-%d", s.Report.MinBase, s.Report.MaxBase)
		}
		fmt.Fprintln(w, ")")
		for _, msg := range s.Warnings {
			warnColor.Fprintf(w, "      ! %s\n", msg)
		}
	}
	for _, f := range sum.Failed {
		failColor.Fprint(w, "  ✗ ")
		fmt.Fprintf(w, "%s [%s] %s\n", f.Source, f.Kind, f.Error)
		if f.Kind == convert.KindNoMarkers {
			fmt.Fprintln(w, "      the text may use a numbering style the rules do not cover")
		}
	}
}
