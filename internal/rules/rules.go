// Package rules holds the ordered table of named marker patterns and the
// artifact phrases used by the conversion engine.
//
// A marker pattern is an RE2 expression with a named group "marker" covering
// the boundary token and, for articles, a named group "label" covering the
// number. RE2 has no look-around, so a rule may carry an AcceptBefore
// pattern that must match the text just before the marker, and a RejectAfter
// pattern matched against the text following the label; a hit discards the
// candidate. Neither is consumed by the match, so adjacent markers on one
// line are all found.
package rules

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/normalize"
)

// Group names every marker pattern uses.
const (
	GroupMarker = "marker"
	GroupLabel  = "label"
)

// Rule is the declarative form of a marker pattern.
type Rule struct {
	Name         string         `yaml:"name" json:"name"`
	Kind         law.MarkerKind `yaml:"kind" json:"kind"`
	Pattern      string         `yaml:"pattern" json:"pattern"`
	AcceptBefore string         `yaml:"accept_before,omitempty" json:"accept_before,omitempty"`
	RejectAfter  string         `yaml:"reject_after,omitempty" json:"reject_after,omitempty"`
}

// citation matches the preposition that turns a heading keyword into an
// internal cross-reference, as in "Capítulo II de este Título".
const citation = `^[ \t]+(?:de|del)[ \t]`

// sentenceStart accepts a marker at the start of the text or a line, or after
// a sentence terminator and whitespace.
const sentenceStart = `(?:^|\n|[.;:][ \t])[ \t]*$`

// DefaultRules returns the built-in marker table. Order matters: when two
// rules produce a marker at the same position the earlier rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "article",
			Kind: law.KindArticle,
			Pattern: `(?P<marker>(?i:art[ií]culo|art\.)[ \t]+` +
				`(?P<label>\d+(?:-[A-Z]|[ \t]+(?i:bis|ter))?)\b[°º]?[ \t]*[.:\-–]?[ \t]*)`,
			AcceptBefore: sentenceStart,
			RejectAfter:  citation,
		},
		{
			Name: "header",
			Kind: law.KindHeader,
			Pattern: `(?m)^[ \t]*(?P<marker>(?i:libro|t[ií]tulo|cap[ií]tulo|secci[oó]n)[ \t]+` +
				`(?P<label>[IVXLCDM]+|\d+)\b[^\n]*)`,
			RejectAfter: citation,
		},
	}
}

// Compiled is a Rule ready for scanning.
type Compiled struct {
	Rule
	Re     *regexp.Regexp
	Before *regexp.Regexp // nil when the rule has no AcceptBefore
	Reject *regexp.Regexp // nil when the rule has no RejectAfter

	MarkerGroup int
	LabelGroup  int // -1 when the pattern has no label group
}

// CompileError reports a rule or phrase that does not compile. It is a
// configuration defect and aborts the run.
type CompileError struct {
	Rule  string // rule name, or "artifacts" for phrase errors
	Field string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("rule %q: %s: %v", e.Rule, e.Field, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile validates and compiles a single rule.
func Compile(r Rule) (Compiled, error) {
	fail := func(field string, err error) (Compiled, error) {
		return Compiled{}, &CompileError{Rule: r.Name, Field: field, Err: err}
	}
	if r.Name == "" {
		return fail("name", fmt.Errorf("name is required"))
	}
	if !r.Kind.Valid() {
		return fail("kind", fmt.Errorf("unknown kind %q", r.Kind))
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fail("pattern", err)
	}
	c := Compiled{
		Rule:        r,
		Re:          re,
		MarkerGroup: re.SubexpIndex(GroupMarker),
		LabelGroup:  re.SubexpIndex(GroupLabel),
	}
	if c.MarkerGroup < 0 {
		return fail("pattern", fmt.Errorf("missing named group %q", GroupMarker))
	}
	if r.Kind == law.KindArticle && c.LabelGroup < 0 {
		return fail("pattern", fmt.Errorf("article rules need a named group %q", GroupLabel))
	}
	if re.MatchString("") {
		return fail("pattern", fmt.Errorf("pattern matches the empty string"))
	}
	if r.AcceptBefore != "" {
		c.Before, err = regexp.Compile(r.AcceptBefore)
		if err != nil {
			return fail("accept_before", err)
		}
	}
	if r.RejectAfter != "" {
		c.Reject, err = regexp.Compile(r.RejectAfter)
		if err != nil {
			return fail("reject_after", err)
		}
	}
	return c, nil
}

// Set is an immutable, compiled rule table plus artifact phrases. A Set is
// safe for concurrent use.
type Set struct {
	markers []Compiled
	phrases []string
	norm    normalize.Config
	file    string
}

// New compiles rules and artifact phrases into a Set. Rule names must be
// unique.
func New(rs []Rule, phrases []string) (*Set, error) {
	if len(rs) == 0 {
		return nil, &CompileError{Rule: "markers", Field: "markers", Err: fmt.Errorf("no marker rules")}
	}
	seen := make(map[string]bool, len(rs))
	markers := make([]Compiled, 0, len(rs))
	for _, r := range rs {
		if seen[r.Name] {
			return nil, &CompileError{Rule: r.Name, Field: "name", Err: fmt.Errorf("duplicate rule name")}
		}
		seen[r.Name] = true
		c, err := Compile(r)
		if err != nil {
			return nil, err
		}
		markers = append(markers, c)
	}

	res, err := normalize.CompilePhrases(phrases)
	if err != nil {
		return nil, &CompileError{Rule: "artifacts", Field: "phrase", Err: err}
	}
	return &Set{
		markers: markers,
		phrases: append([]string(nil), phrases...),
		norm:    normalize.Config{Artifacts: res},
	}, nil
}

var defaultSet = sync.OnceValue(func() *Set {
	s, err := New(DefaultRules(), normalize.DefaultArtifactPhrases)
	if err != nil {
		panic(err)
	}
	return s
})

// Default returns the built-in Set.
func Default() *Set { return defaultSet() }

// Markers returns the compiled rules in table order. Callers must not modify
// the returned slice.
func (s *Set) Markers() []Compiled { return s.markers }

// Rules returns the declarative rule table.
func (s *Set) Rules() []Rule {
	out := make([]Rule, len(s.markers))
	for i, c := range s.markers {
		out[i] = c.Rule
	}
	return out
}

// ArtifactPhrases returns the configured artifact phrases.
func (s *Set) ArtifactPhrases() []string {
	return append([]string(nil), s.phrases...)
}

// Normalize returns the normalizer configuration built from the phrases.
func (s *Set) Normalize() normalize.Config { return s.norm }

// File is the path the Set was loaded from, or "" for built-in sets.
func (s *Set) File() string { return s.file }
