package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/dgallion1/lawgest/internal/convert"
)

// ErrImageOnly marks a PDF whose pages are scanned images without a text
// layer. It is always wrapped together with convert.ErrNoText.
var ErrImageOnly = errors.New("pdf contains images but no text layer")

// PDFExtractor handles PDF files. It tries the Go library first,
// then falls back to pdftotext if enabled.
type PDFExtractor struct {
	FallbackPdftotext bool
}

func (e *PDFExtractor) Extract(r io.Reader, filename string) (string, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "lawgest-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if (err != nil || strings.TrimSpace(text) == "") && e.FallbackPdftotext {
		if alt, ferr := extractPdftotext(tmpPath); ferr == nil {
			text, err = alt, nil
		}
	}
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	if strings.TrimSpace(text) == "" && hasImageStreams(tmpPath) {
		return "", fmt.Errorf("%w: %w", convert.ErrNoText, ErrImageOnly)
	}
	return text, nil
}

// extractPDFText returns the plain text of every page, joined with newlines.
// The reader panics on some malformed files; that is reported as an error.
func extractPDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, t)
	}
	return strings.Join(pages, "\n"), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	// Pages are separated by form feeds.
	return strings.ReplaceAll(string(out), "\f", "\n"), nil
}

// hasImageStreams reports whether the PDF at path contains image XObjects.
func hasImageStreams(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return false
	}
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	// Fallback: scan the xref table for image subtype objects.
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}
