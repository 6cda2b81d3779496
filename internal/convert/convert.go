// Package convert turns the extracted text of one law into a structured
// document and a validation report.
package convert

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/normalize"
	"github.com/dgallion1/lawgest/internal/rules"
	"github.com/dgallion1/lawgest/internal/scanner"
	"github.com/dgallion1/lawgest/internal/segment"
	"github.com/dgallion1/lawgest/internal/validate"
)

// Options is the immutable engine configuration for a run. The zero value
// is not usable; start from DefaultOptions.
type Options struct {
	Rules    *rules.Set
	Validate validate.Config
	Range    segment.Range
}

// DefaultOptions uses the built-in rules and default thresholds.
func DefaultOptions() Options {
	return Options{Rules: rules.Default(), Validate: validate.DefaultConfig()}
}

// WithRules returns a copy of o using s.
func (o Options) WithRules(s *rules.Set) Options {
	o.Rules = s
	return o
}

// Text converts extracted text. Whitespace-only text fails with ErrNoText
// and text without any marker with ErrNoMarkers.
func Text(text string, meta law.Metadata, opts Options) (*law.Document, validate.Report, error) {
	nodes, err := Nodes(text, opts)
	if err != nil {
		return nil, validate.Report{}, err
	}
	rep := validate.Articles(nodes, opts.Validate)
	doc, err := law.Build(meta, nodes)
	if err != nil {
		return nil, validate.Report{}, err
	}
	return doc, rep, nil
}

// Nodes scans, segments and normalizes text into content nodes. A range that
// leaves no node behind fails with ErrNoMarkers.
func Nodes(text string, opts Options) ([]law.Node, error) {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	set := opts.Rules
	if set == nil {
		set = rules.Default()
	}

	markers := scanner.Scan(text, set)
	if len(markers) == 0 {
		return nil, ErrNoMarkers
	}

	cfg := set.Normalize()
	segs := segment.Split(text, markers, opts.Range)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no article in range %d-%d", ErrNoMarkers, opts.Range.Start, opts.Range.End)
	}
	nodes := make([]law.Node, 0, len(segs))
	for _, s := range segs {
		s.Body = normalize.Text(s.Body, cfg)
		if s.Marker.Kind == law.KindHeader {
			s.Marker.Text = normalize.CollapseWhitespace(s.Marker.Text)
		}
		nodes = append(nodes, s.Node())
	}
	return nodes, nil
}

// Reformat re-normalizes the text of every article in doc and returns how
// many articles changed. Headers are left alone.
func Reformat(doc *law.Document, cfg normalize.Config) int {
	changed := 0
	for i, n := range doc.Content {
		if !n.IsArticle() {
			continue
		}
		text := normalize.Text(n.Text, cfg)
		if text != n.Text {
			doc.Content[i].Text = text
			changed++
		}
	}
	return changed
}
