// Package validate checks the numbering and length of converted articles.
// Findings are advisory; nothing here fails a conversion.
package validate

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/segment"
)

// Defaults.
const (
	DefaultGapTolerance = 5
	DefaultMinChars     = 10
)

// Config controls the checks. ExpectedTotal enables the missing-number
// check when positive.
type Config struct {
	GapTolerance  int
	MinChars      int
	ExpectedTotal int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{GapTolerance: DefaultGapTolerance, MinChars: DefaultMinChars}
}

// Gap is a jump between consecutive numbered articles.
type Gap struct {
	Prev string `json:"prev"`
	Next string `json:"next"`
}

// Report is the result of validating one document.
type Report struct {
	Gaps          []Gap    `json:"gaps,omitempty"`
	Duplicates    []int    `json:"duplicates,omitempty"`
	ShortArticles []string `json:"short_articles,omitempty"`
	Missing       []int    `json:"missing,omitempty"`

	ArticleCount int `json:"article_count"`
	MinBase      int `json:"min_base"` // -1 when no article has a numeric base
	MaxBase      int `json:"max_base"`
}

// Articles validates articles in document order. Non-article nodes are
// ignored.
func Articles(nodes []law.Node, cfg Config) Report {
	rep := Report{MinBase: -1, MaxBase: -1}

	seen := make(map[int]int)
	prevBase, prevLabel := -1, ""
	for _, n := range nodes {
		if !n.IsArticle() {
			continue
		}
		rep.ArticleCount++

		if utf8.RuneCountInString(n.Text) < cfg.MinChars {
			rep.ShortArticles = append(rep.ShortArticles, n.Number)
		}

		base := segment.NumericBase(n.Number)
		if base < 0 {
			continue
		}
		if prevBase >= 0 && base > prevBase+cfg.GapTolerance {
			rep.Gaps = append(rep.Gaps, Gap{Prev: prevLabel, Next: n.Number})
		}
		prevBase, prevLabel = base, n.Number

		seen[base]++
		if seen[base] == 2 {
			rep.Duplicates = append(rep.Duplicates, base)
		}
		if rep.MinBase < 0 || base < rep.MinBase {
			rep.MinBase = base
		}
		if base > rep.MaxBase {
			rep.MaxBase = base
		}
	}
	sort.Ints(rep.Duplicates)

	for i := 1; i <= cfg.ExpectedTotal; i++ {
		if seen[i] == 0 {
			rep.Missing = append(rep.Missing, i)
		}
	}
	return rep
}

// HasWarnings reports whether any check produced a finding.
func (r Report) HasWarnings() bool {
	return len(r.Gaps) > 0 || len(r.Duplicates) > 0 || len(r.ShortArticles) > 0 || len(r.Missing) > 0
}

// Messages renders the findings as one line each.
func (r Report) Messages() []string {
	var out []string
	for _, g := range r.Gaps {
		out = append(out, fmt.Sprintf("numbering gap: article %s followed by %s", g.Prev, g.Next))
	}
	for _, d := range r.Duplicates {
		out = append(out, fmt.Sprintf("duplicate article number %d", d))
	}
	for _, s := range r.ShortArticles {
		out = append(out, fmt.Sprintf("article %s has little or no text", s))
	}
	if len(r.Missing) > 0 {
		out = append(out, fmt.Sprintf("%d missing articles: %s", len(r.Missing), compactRanges(r.Missing)))
	}
	return out
}

// compactRanges renders sorted integers as "1-3, 7, 9-10".
func compactRanges(nums []int) string {
	var out []byte
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		if len(out) > 0 {
			out = append(out, ", "...)
		}
		if i == j {
			out = fmt.Appendf(out, "%d", nums[i])
		} else {
			out = fmt.Appendf(out, "%d-%d", nums[i], nums[j])
		}
		i = j + 1
	}
	return string(out)
}
