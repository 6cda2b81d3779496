package law

import (
	"fmt"
	"time"
)

// MarkerKind distinguishes the two structural units found in a law text.
type MarkerKind string

const (
	KindArticle MarkerKind = "article"
	KindHeader  MarkerKind = "header"
)

// Valid reports whether k is a known marker kind.
func (k MarkerKind) Valid() bool {
	return k == KindArticle || k == KindHeader
}

// RawMarker is a boundary detected in the source text.
type RawMarker struct {
	Kind  MarkerKind
	Rule  string // Name of the rule that produced the marker
	Start int    // Byte offset of the marker token
	End   int    // Byte offset just past the marker token
	Label string // Article number label, e.g. "185-A" or "12 bis"
	Text  string // Header line, e.g. "TÍTULO II DE LOS DERECHOS"
}

// Node is a finished structural unit of a law.
type Node struct {
	Kind   MarkerKind
	Number string // Articles only
	Title  string // Articles only
	Text   string
}

// IsArticle reports whether n is an article.
func (n Node) IsArticle() bool { return n.Kind == KindArticle }

// ArticleTitle is the display title given to an article with the given label.
func ArticleTitle(label string) string {
	return "Artículo " + label
}

// DocType classifies a law document.
type DocType string

const (
	TypeLeyBase     DocType = "ley_base"
	TypeLeyOrganica DocType = "ley_organica"
	TypeDecreto     DocType = "decreto"
	TypeResolucion  DocType = "resolucion"
	TypeSentencia   DocType = "sentencia"
)

var docTypes = map[DocType]bool{
	TypeLeyBase:     true,
	TypeLeyOrganica: true,
	TypeDecreto:     true,
	TypeResolucion:  true,
	TypeSentencia:   true,
}

// ParseDocType validates a document type string.
func ParseDocType(s string) (DocType, error) {
	t := DocType(s)
	if !docTypes[t] {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return t, nil
}

// Metadata is the caller-supplied description of a law.
type Metadata struct {
	Title       string
	Category    string
	Type        DocType
	Date        time.Time
	Description string
}

// Document is the structured result of converting one source.
type Document struct {
	Title       string
	Category    string
	Type        DocType
	Date        time.Time
	Description string
	Content     []Node
}

// Articles returns the article nodes in document order.
func (d *Document) Articles() []Node {
	var out []Node
	for _, n := range d.Content {
		if n.IsArticle() {
			out = append(out, n)
		}
	}
	return out
}

// Metadata returns the document's metadata without its content.
func (d *Document) Metadata() Metadata {
	return Metadata{
		Title:       d.Title,
		Category:    d.Category,
		Type:        d.Type,
		Date:        d.Date,
		Description: d.Description,
	}
}
