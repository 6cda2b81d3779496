// Package normalize reflows text extracted from law PDFs into paragraphs.
//
// Text runs through five ordered passes: artifact removal, de-hyphenation,
// whitespace collapse, structural re-breaking before enumerated sub-clauses,
// and a final cleanup. The pipeline is total and idempotent.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultArtifactPhrases are generator boilerplate and page furniture seen in
// the published law PDFs.
var DefaultArtifactPhrases = []string{
	`Documento sin título`,
	`Page \d+ of \d+`,
	`Página \d+ de \d+`,
	`\d+ Normas de Orden Público`,
}

// ws matches a whitespace run, including the no-break and other Unicode
// spaces that PDF extraction leaves behind.
const ws = `[\s\v\p{Z}]+`

var (
	urlRe       = regexp.MustCompile(`https?://[^\s\v\p{Z}]+`)
	timestampRe = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}` + ws + `\d{1,2}:\d{2}` + ws + `(?i:am|pm)\b`)

	// A word broken by a hyphen at a single line end, continued in lowercase.
	hyphenBreakRe = regexp.MustCompile(`([\p{L}\p{N}]+)-[ \t]*\r?\n[ \t]*(\p{Ll})`)

	whitespaceRe = regexp.MustCompile(ws)
	spacesRe     = regexp.MustCompile(` {2,}`)
	newlinesRe   = regexp.MustCompile(`\n{3,}`)

	// Candidate sub-clause starts. Bare numerals are confirmed by
	// followsCapital before a break is inserted.
	clauseRe = regexp.MustCompile(`\s+(` +
		`(?P<ordinal>\d+[°º]\.?)` +
		`|(?P<numeral>\d+\.)` +
		`|(?P<word>(?i:primero|segundo|tercero|cuarto|quinto|sexto|s[eé]ptimo|octavo|noveno|d[eé]cimo)[:.]` +
		`|(?i:par[aá]grafo[ \t]+(?:primero|segundo|tercero|[uú]nico)|par[aá]grafo:))` +
		`)`)
)

// Config holds the artifact patterns removed in the first pass.
type Config struct {
	Artifacts []*regexp.Regexp
}

// CompilePhrase compiles an artifact phrase. Phrases match case-insensitively
// and a literal space matches any whitespace run, so a phrase still matches
// after line breaks in the source are reflowed.
func CompilePhrase(phrase string) (*regexp.Regexp, error) {
	p := strings.TrimSpace(phrase)
	if p == "" {
		return nil, fmt.Errorf("empty artifact phrase")
	}
	p = strings.Join(strings.Fields(p), ws)
	re, err := regexp.Compile(`(?i)` + p)
	if err != nil {
		return nil, fmt.Errorf("compile artifact phrase %q: %w", phrase, err)
	}
	if re.MatchString("") {
		return nil, fmt.Errorf("artifact phrase %q matches the empty string", phrase)
	}
	return re, nil
}

// CompilePhrases compiles a phrase list, failing on the first bad entry.
func CompilePhrases(phrases []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		re, err := CompilePhrase(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// DefaultConfig returns a Config with DefaultArtifactPhrases.
func DefaultConfig() Config {
	res, err := CompilePhrases(DefaultArtifactPhrases)
	if err != nil {
		panic(err)
	}
	return Config{Artifacts: res}
}

// Text runs the full pipeline over s.
func Text(s string, cfg Config) string {
	for {
		next := Dehyphenate(StripArtifacts(s, cfg))
		if next == s {
			break
		}
		s = next
	}
	s = CollapseWhitespace(s)
	s = Rebreak(s)
	return Cleanup(s)
}

// StripArtifacts removes URLs, print timestamps and configured phrases.
func StripArtifacts(s string, cfg Config) string {
	s = urlRe.ReplaceAllString(s, " ")
	s = timestampRe.ReplaceAllString(s, " ")
	for _, re := range cfg.Artifacts {
		s = re.ReplaceAllString(s, " ")
	}
	return s
}

// Dehyphenate joins "pro-\nfesionales" into "profesionales".
func Dehyphenate(s string) string {
	return hyphenBreakRe.ReplaceAllString(s, "$1$2")
}

// CollapseWhitespace turns every whitespace run into one space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Rebreak inserts a blank line before each enumerated sub-clause. A clause
// token is only recognised after whitespace, so the first paragraph never
// starts with a blank line. Bare numerals ("2.") need a capitalised word
// after them, which keeps decimals, dates and citations intact.
func Rebreak(s string) string {
	matches := clauseRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	numeral := clauseRe.SubexpIndex("numeral")

	var b strings.Builder
	b.Grow(len(s) + 2*len(matches))
	last := 0
	for _, m := range matches {
		if m[2*numeral] >= 0 && !followsCapital(s[m[1]:]) {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString("\n\n")
		b.WriteString(s[m[2]:m[3]])
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// followsCapital reports whether rest starts with one whitespace character
// and an uppercase letter.
func followsCapital(rest string) bool {
	r, size := utf8.DecodeRuneInString(rest)
	if size == 0 || !unicode.IsSpace(r) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(rest[size:])
	return unicode.IsUpper(next)
}

// Cleanup collapses repeated spaces and limits paragraph gaps to one blank line.
func Cleanup(s string) string {
	s = spacesRe.ReplaceAllString(s, " ")
	s = newlinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
