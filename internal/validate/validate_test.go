package validate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/lawgest/internal/law"
)

func articles(labels ...string) []law.Node {
	out := make([]law.Node, len(labels))
	for i, l := range labels {
		out[i] = law.Node{Kind: law.KindArticle, Number: l, Text: "Texto suficientemente largo."}
	}
	return out
}

func TestArticles_GapTolerance(t *testing.T) {
	rep := Articles(articles("1", "2", "3", "9"), DefaultConfig())
	if len(rep.Gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(rep.Gaps))
	}
	if rep.Gaps[0] != (Gap{Prev: "3", Next: "9"}) {
		t.Errorf("unexpected gap %+v", rep.Gaps[0])
	}

	rep = Articles(articles("1", "2", "3", "7"), DefaultConfig())
	if len(rep.Gaps) != 0 {
		t.Errorf("expected no gaps, got %+v", rep.Gaps)
	}

	// Exactly the tolerance is not a gap.
	rep = Articles(articles("3", "8"), DefaultConfig())
	if len(rep.Gaps) != 0 {
		t.Errorf("expected no gaps at the tolerance, got %+v", rep.Gaps)
	}
}

func TestArticles_DecreasingNotFlagged(t *testing.T) {
	rep := Articles(articles("1", "2", "40", "1", "2"), DefaultConfig())
	if len(rep.Gaps) != 1 || rep.Gaps[0].Next != "40" {
		t.Errorf("expected only the 2->40 gap, got %+v", rep.Gaps)
	}
}

func TestArticles_Duplicates(t *testing.T) {
	rep := Articles(articles("1", "2", "2", "3"), DefaultConfig())
	if !reflect.DeepEqual(rep.Duplicates, []int{2}) {
		t.Errorf("expected [2], got %v", rep.Duplicates)
	}

	rep = Articles(articles("4", "4", "4", "12", "12 bis"), DefaultConfig())
	if !reflect.DeepEqual(rep.Duplicates, []int{4, 12}) {
		t.Errorf("expected [4 12], got %v", rep.Duplicates)
	}
}

func TestArticles_ShortArticles(t *testing.T) {
	nodes := []law.Node{
		{Kind: law.KindArticle, Number: "1", Text: "Ok"},
		{Kind: law.KindArticle, Number: "2", Text: strings.Repeat("a", 50)},
		{Kind: law.KindArticle, Number: "3", Text: ""},
		// Counted in characters, not bytes.
		{Kind: law.KindArticle, Number: "4", Text: "ñññññññññ"},
	}
	rep := Articles(nodes, DefaultConfig())
	if !reflect.DeepEqual(rep.ShortArticles, []string{"1", "3", "4"}) {
		t.Errorf("expected [1 3 4], got %v", rep.ShortArticles)
	}
}

func TestArticles_UnknownBase(t *testing.T) {
	nodes := []law.Node{
		{Kind: law.KindArticle, Number: "1", Text: "Texto suficientemente largo."},
		{Kind: law.KindArticle, Number: "único", Text: "corto"},
		{Kind: law.KindArticle, Number: "9", Text: "Texto suficientemente largo."},
	}
	rep := Articles(nodes, DefaultConfig())
	if len(rep.Gaps) != 1 || rep.Gaps[0] != (Gap{Prev: "1", Next: "9"}) {
		t.Errorf("expected unknown base to be skipped for gaps, got %+v", rep.Gaps)
	}
	if !reflect.DeepEqual(rep.ShortArticles, []string{"único"}) {
		t.Errorf("expected unknown base to be length checked, got %v", rep.ShortArticles)
	}
}

func TestArticles_Missing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExpectedTotal = 6
	rep := Articles(articles("1", "2", "4", "6"), cfg)
	if !reflect.DeepEqual(rep.Missing, []int{3, 5}) {
		t.Errorf("expected [3 5], got %v", rep.Missing)
	}

	rep = Articles(articles("1", "2"), DefaultConfig())
	if rep.Missing != nil {
		t.Errorf("expected no missing check without a total, got %v", rep.Missing)
	}
}

func TestArticles_Summary(t *testing.T) {
	nodes := append([]law.Node{{Kind: law.KindHeader, Text: "TÍTULO I"}}, articles("3", "1", "12")...)
	rep := Articles(nodes, DefaultConfig())
	if rep.ArticleCount != 3 || rep.MinBase != 1 || rep.MaxBase != 12 {
		t.Errorf("unexpected summary %+v", rep)
	}

	rep = Articles(nil, DefaultConfig())
	if rep.ArticleCount != 0 || rep.MinBase != -1 || rep.MaxBase != -1 || rep.HasWarnings() {
		t.Errorf("unexpected empty report %+v", rep)
	}
}

func TestArticles_DoesNotMutate(t *testing.T) {
	nodes := articles("2", "1")
	before := append([]law.Node(nil), nodes...)
	Articles(nodes, DefaultConfig())
	if !reflect.DeepEqual(nodes, before) {
		t.Error("expected input to be unchanged")
	}
}

func TestMessages(t *testing.T) {
	rep := Report{
		Gaps:          []Gap{{Prev: "3", Next: "9"}},
		Duplicates:    []int{2},
		ShortArticles: []string{"5"},
		Missing:       []int{1, 2, 3, 7, 9, 10},
	}
	msgs := rep.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d: %v", len(msgs), msgs)
	}
	if msgs[3] != "6 missing articles: 1-3, 7, 9-10" {
		t.Errorf("unexpected missing message %q", msgs[3])
	}
	if !rep.HasWarnings() {
		t.Error("expected warnings")
	}
}
