package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/lawgest/internal/convert"
	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/pipeline"
	"github.com/dgallion1/lawgest/internal/segment"
	"github.com/dgallion1/lawgest/internal/source"
)

type convertFlags struct {
	outDir      string
	report      string
	title       string
	category    string
	docType     string
	date        string
	description string
	start, end  int
	expected    int
	concurrency int
	pdftotext   bool
}

func convertCmd(a *app) *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert law documents to structured JSON",
		Long: `Convert one or more law documents into <category>_full.json files.

Metadata missing from the flags is derived from each file name: the category
is the sanitized stem, the title the title-cased stem, the date today.
Title, category and description flags apply only when a single file is given.

Example:
  lawgest convert --out-dir data leyes/*.pdf
  lawgest convert --title "Código Civil" --type ley_base --date 1982-07-26 cc.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.outDir, "out-dir", "o", ".", "directory for the JSON output")
	fl.StringVar(&f.report, "report", "", "also write the run summary as JSON to this file")
	fl.StringVar(&f.title, "title", "", "law title")
	fl.StringVar(&f.category, "category", "", "category identifier")
	fl.StringVar(&f.docType, "type", "", "document type (default: $DEFAULT_LAW_TYPE)")
	fl.StringVar(&f.date, "date", "", "publication date, YYYY-MM-DD (default: today)")
	fl.StringVar(&f.description, "description", "", "law description")
	fl.IntVar(&f.start, "start", 0, "first article number to keep")
	fl.IntVar(&f.end, "end", 0, "last article number to keep")
	fl.IntVar(&f.expected, "expected", 0, "expected article count, reports missing numbers")
	fl.IntVar(&f.concurrency, "concurrency", 4, "documents converted in parallel")
	fl.BoolVar(&f.pdftotext, "pdftotext", false, "fall back to the pdftotext binary for PDFs")
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, args []string, f convertFlags) error {
	if len(args) > 1 && (f.title != "" || f.category != "" || f.description != "") {
		return fmt.Errorf("--title, --category and --description need a single file")
	}
	set, err := a.loadRules()
	if err != nil {
		return err
	}
	typ := a.cfg.DefaultLawType
	if f.docType != "" {
		if typ, err = law.ParseDocType(f.docType); err != nil {
			return err
		}
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if f.date != "" {
		if date, err = time.Parse(law.DateLayout, f.date); err != nil {
			return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", f.date)
		}
	}
	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return err
	}

	opts := convert.Options{
		Rules:    set,
		Validate: a.cfg.ValidateConfig(),
		Range:    segment.Range{Start: f.start, End: f.end},
	}
	opts.Validate.ExpectedTotal = f.expected
	srcOpts := source.Options{FallbackPdftotext: f.pdftotext}

	items := make([]pipeline.BatchItem, len(args))
	for i, path := range args {
		meta := law.MetadataFromName(path, typ, date)
		if f.title != "" {
			meta.Title = f.title
		}
		if f.category != "" {
			meta.Category = f.category
		}
		if f.description != "" {
			meta.Description = f.description
		}
		items[i] = pipeline.BatchItem{
			Name: path,
			Extract: func() (string, error) {
				a.log.Debug("extracting", "source", path)
				return extractFile(path, srcOpts)
			},
			Meta: meta,
		}
	}

	results, err := pipeline.RunBatch(cmd.Context(), items, opts, f.concurrency)
	if err != nil {
		return err
	}

	for _, res := range results {
		if !res.OK() {
			a.log.Warn("conversion failed", "source", res.Source, "kind", res.Err.Kind, "error", res.Err.Err)
			continue
		}
		out := filepath.Join(f.outDir, res.Document.Category+"_full.json")
		if err := writeDocuments(out, res.Document); err != nil {
			return err
		}
		a.log.Info("converted", "source", res.Source, "output", out, "nodes", len(res.Document.Content))
	}

	sum := pipeline.Summarize(results)
	printSummary(cmd.OutOrStdout(), sum)
	if f.report != "" {
		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(f.report, data, 0o644); err != nil {
			return err
		}
	}
	if len(sum.Failed) > 0 {
		return errFailed
	}
	return nil
}

func extractFile(path string, opts source.Options) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	return source.Extract(fh, path, opts)
}

// writeDocuments writes docs to path through a temp file so a failed write
// never leaves a truncated file behind.
func writeDocuments(path string, docs ...*law.Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lawgest-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := law.Encode(tmp, docs...); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readDocuments(path string) ([]*law.Document, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	docs, err := law.Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}
