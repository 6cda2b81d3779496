// Package scanner finds article and header boundaries in extracted law text.
package scanner

import (
	"sort"
	"strings"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/rules"
)

// Scan runs every rule in set over text and returns the markers ordered by
// start offset. Each rule is evaluated independently. When two markers start
// at the same offset the one from the earlier rule is kept, and a marker that
// starts inside the previous marker's token is dropped, so start offsets are
// strictly increasing and tokens never overlap.
//
// An empty result means nothing in text looks like a law boundary.
func Scan(text string, set *rules.Set) []law.RawMarker {
	type candidate struct {
		law.RawMarker
		order int
	}
	var found []candidate
	for order, r := range set.Markers() {
		for _, m := range find(text, r) {
			found = append(found, candidate{RawMarker: m, order: order})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Start != found[j].Start {
			return found[i].Start < found[j].Start
		}
		return found[i].order < found[j].order
	})

	out := make([]law.RawMarker, 0, len(found))
	end := -1
	for _, c := range found {
		if c.Start < end {
			continue
		}
		out = append(out, c.RawMarker)
		end = c.End
	}
	return out
}

// lookbehind bounds how much preceding text an AcceptBefore pattern sees.
const lookbehind = 64

// preceding returns the text before start for AcceptBefore matching. When the
// window is cut, a leading NUL keeps ^ from matching at the cut.
func preceding(text string, start int) string {
	if start <= lookbehind {
		return text[:start]
	}
	return "\x00" + text[start-lookbehind:start]
}

func find(text string, r rules.Compiled) []law.RawMarker {
	var out []law.RawMarker
	for _, m := range r.Re.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2*r.MarkerGroup], m[2*r.MarkerGroup+1]
		if start < 0 || end <= start {
			continue
		}
		if r.Before != nil && !r.Before.MatchString(preceding(text, start)) {
			continue
		}

		label, labelEnd := "", end
		if r.LabelGroup >= 0 && m[2*r.LabelGroup] >= 0 {
			label = text[m[2*r.LabelGroup]:m[2*r.LabelGroup+1]]
			labelEnd = m[2*r.LabelGroup+1]
		}
		if r.Reject != nil && r.Reject.MatchString(text[labelEnd:]) {
			continue
		}

		rm := law.RawMarker{
			Kind:  r.Kind,
			Rule:  r.Name,
			Start: start,
			End:   end,
			Label: strings.TrimSpace(label),
		}
		if r.Kind == law.KindHeader {
			rm.Text = strings.TrimSpace(text[start:end])
		}
		out = append(out, rm)
	}
	return out
}
