package law

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	categoryRe   = regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)*$`)
)

// FoldAccents removes combining marks, so "Artículo" becomes "Articulo".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slug lowercases s, folds accents and joins the remaining alphanumeric runs
// with sep.
func Slug(s, sep string) string {
	s = strings.ToLower(FoldAccents(strings.TrimSpace(s)))
	s = nonSlugChars.ReplaceAllString(s, sep)
	return strings.Trim(s, sep)
}

// Category derives the stable category identifier from a document name.
// Any file extension is dropped: "Ley Orgánica-del Trabajo.pdf" becomes
// "ley_organica_del_trabajo".
func Category(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = name
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return Slug(base, "_")
}

// IsCategory reports whether s is a well-formed category identifier.
func IsCategory(s string) bool {
	return categoryRe.MatchString(s)
}

// TitleFromName turns a file stem such as "ley_de_transito" into "Ley De Transito".
func TitleFromName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	return cases.Title(language.Spanish).String(base)
}

// MetadataFromName derives metadata for a file that comes without any:
// category and title from the file stem, the given type and date.
func MetadataFromName(name string, typ DocType, date time.Time) Metadata {
	return Metadata{
		Title:       TitleFromName(name),
		Category:    Category(name),
		Type:        typ,
		Date:        date,
		Description: "Extraído automáticamente de " + filepath.Base(name),
	}
}
