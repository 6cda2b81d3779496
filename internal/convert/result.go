package convert

import (
	"errors"
	"fmt"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/rules"
	"github.com/dgallion1/lawgest/internal/validate"
)

var (
	// ErrNoText means the source produced no usable text.
	ErrNoText = errors.New("no extractable text")
	// ErrNoMarkers means text was found but no article or header marker
	// matched it. Usually a numbering style the rules do not cover.
	ErrNoMarkers = errors.New("no article or header markers found")
)

// Kind classifies a per-document failure.
type Kind string

const (
	KindExtractionFailure Kind = "extraction_failure"
	KindNoMarkers         Kind = "no_markers_found"
	KindInvalidMetadata   Kind = "invalid_metadata"
)

// DocumentError is a failure confined to one source document.
type DocumentError struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// Classify wraps err as a DocumentError for source. Rule compilation errors
// are returned unchanged: they are configuration defects that must abort the
// run rather than fail one document.
func Classify(source string, err error) error {
	if err == nil {
		return nil
	}
	var de *DocumentError
	if errors.As(err, &de) {
		return err
	}
	var ce *rules.CompileError
	if errors.As(err, &ce) {
		return err
	}
	kind := KindExtractionFailure
	switch {
	case errors.Is(err, ErrNoMarkers):
		kind = KindNoMarkers
	case errors.Is(err, law.ErrInvalidMetadata):
		kind = KindInvalidMetadata
	}
	return &DocumentError{Source: source, Kind: kind, Err: err}
}

// Result is the outcome of converting one source: a document with its
// report, or a failure.
type Result struct {
	Source   string
	Document *law.Document
	Report   validate.Report
	Err      *DocumentError
}

// OK reports whether the conversion succeeded.
func (r Result) OK() bool { return r.Err == nil && r.Document != nil }

// Failure is a failed document in a Summary.
type Failure struct {
	Source string `json:"source"`
	Kind   Kind   `json:"kind"`
	Error  string `json:"error"`
}

// Success is a converted document in a Summary.
type Success struct {
	Source   string          `json:"source"`
	Category string          `json:"category"`
	Nodes    int             `json:"nodes"`
	Report   validate.Report `json:"report"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Summary is the single report produced at the end of a batch.
type Summary struct {
	Succeeded []Success `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// Add folds r into s.
func (s *Summary) Add(r Result) {
	if !r.OK() {
		f := Failure{Source: r.Source, Kind: KindExtractionFailure, Error: "no document produced"}
		if r.Err != nil {
			f.Kind = r.Err.Kind
			f.Error = r.Err.Err.Error()
		}
		s.Failed = append(s.Failed, f)
		return
	}
	s.Succeeded = append(s.Succeeded, Success{
		Source:   r.Source,
		Category: r.Document.Category,
		Nodes:    len(r.Document.Content),
		Report:   r.Report,
		Warnings: r.Report.Messages(),
	})
}

// Warnings returns the number of advisory findings across all successes.
func (s *Summary) Warnings() int {
	n := 0
	for _, ok := range s.Succeeded {
		n += len(ok.Warnings)
	}
	return n
}

// Source converts the text returned by extract. Any extraction or
// conversion failure is confined to the returned Result; only a
// *rules.CompileError is returned as an error.
func Source(name string, extract func() (string, error), meta law.Metadata, opts Options) (Result, error) {
	res := Result{Source: name}
	text, err := extract()
	if err == nil {
		res.Document, res.Report, err = Text(text, meta, opts)
	}
	if err != nil {
		err = Classify(name, err)
		var de *DocumentError
		if !errors.As(err, &de) {
			return res, err
		}
		res.Document = nil
		res.Err = de
	}
	return res, nil
}
