// Package segment slices extracted text into provisional content nodes at
// marker boundaries.
package segment

import (
	"strings"

	"github.com/dgallion1/lawgest/internal/law"
)

// Range limits which articles are kept by numeric base. A zero bound is
// open. Headers are never filtered.
type Range struct {
	Start int
	End   int
}

// IsZero reports whether r keeps every article.
func (r Range) IsZero() bool { return r.Start <= 0 && r.End <= 0 }

// Segment is a provisional node with its raw body.
type Segment struct {
	Marker law.RawMarker
	// SpanStart and SpanEnd delimit the raw body in the source text: from
	// the end of this marker's token to the start of the next marker.
	SpanStart int
	SpanEnd   int
	Body      string // span content with surrounding whitespace trimmed
}

// Node returns the unformatted content node for s. A header's body is its
// heading line, followed by any text between it and the next marker.
func (s Segment) Node() law.Node {
	if s.Marker.Kind == law.KindHeader {
		text := s.Marker.Text
		if s.Body != "" {
			text += "\n" + s.Body
		}
		return law.Node{Kind: law.KindHeader, Text: text}
	}
	return law.Node{
		Kind:   law.KindArticle,
		Number: s.Marker.Label,
		Title:  law.ArticleTitle(s.Marker.Label),
		Text:   s.Body,
	}
}

// Split turns sorted, non-overlapping markers into segments. Articles
// outside r are dropped: an article whose numeric base is below r.Start is
// skipped, and the first article whose base exceeds r.End ends the scan.
// Articles without digits in their label are kept.
func Split(text string, markers []law.RawMarker, r Range) []Segment {
	out := make([]Segment, 0, len(markers))
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].Start
		}

		if m.Kind == law.KindArticle && !r.IsZero() {
			if base := NumericBase(m.Label); base >= 0 {
				if r.End > 0 && base > r.End {
					break
				}
				if base < r.Start {
					continue
				}
			}
		}

		out = append(out, Segment{
			Marker:    m,
			SpanStart: m.End,
			SpanEnd:   end,
			Body:      strings.TrimSpace(text[m.End:end]),
		})
	}
	return out
}

// NumericBase returns the integer formed by the digits of label, or -1 when
// label has none. "185-A" and "185 bis" both have base 185.
func NumericBase(label string) int {
	n, digits := 0, 0
	for _, r := range label {
		if r < '0' || r > '9' {
			continue
		}
		if n > (1<<31)/10 {
			return -1
		}
		n = n*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return -1
	}
	return n
}
