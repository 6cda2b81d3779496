package source

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/lawgest/internal/convert"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"ley.pdf", "*source.PDFExtractor"},
		{"LEY.PDF", "*source.PDFExtractor"},
		{"ley.docx", "*source.DOCXExtractor"},
		{"ley.html", "*source.HTMLExtractor"},
		{"ley.htm", "*source.HTMLExtractor"},
		{"ley.md", "*source.MarkdownExtractor"},
		{"ley.txt", "*source.TextExtractor"},
	}
	for _, tt := range tests {
		ex, err := ForFile(tt.name, Options{})
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got := fmt.Sprintf("%T", ex); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
	if _, err := ForFile("ley.csv", Options{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestForFile_PassesOptions(t *testing.T) {
	ex, err := ForFile("ley.pdf", Options{FallbackPdftotext: true})
	if err != nil {
		t.Fatal(err)
	}
	if !ex.(*PDFExtractor).FallbackPdftotext {
		t.Error("expected fallback to be enabled")
	}
}

func TestIsSupported(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.markdown"} {
		if !IsSupported(name) {
			t.Errorf("expected %s to be supported", name)
		}
	}
	for _, name := range []string{"a.csv", "b", "c.doc"} {
		if IsSupported(name) {
			t.Errorf("expected %s to be unsupported", name)
		}
	}
}

func TestTextExtractor(t *testing.T) {
	got, err := (&TextExtractor{}).Extract(strings.NewReader("\ufeffArtículo 1.\r\nTexto."), "ley.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Artículo 1.\nTexto." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestMarkdownExtractor(t *testing.T) {
	input := `# Ley de Prueba

## TÍTULO I

### Artículo 1.

El Estado **garantiza** la educación
de todas las personas.

- primer inciso
- segundo inciso

---

> Artículo 2. Citado.
`
	got, err := (&MarkdownExtractor{}).Extract(strings.NewReader(input), "ley.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Ley de Prueba\nTÍTULO I\nArtículo 1.\nEl Estado garantiza la educación\nde todas las personas.\nprimer inciso\nsegundo inciso\nArtículo 2. Citado."
	if got != want {
		t.Errorf("expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestHTMLExtractor(t *testing.T) {
	input := `<html><head><title>Ley</title><style>p{}</style></head>
<body>
<nav>Inicio | Leyes</nav>
<h2>CAPÍTULO I</h2>
<p>Artículo 1. El trabajo<br>es un hecho social.</p>
<div>Artículo 2. Suelto en un div.</div>
<script>var x = 1;</script>
<footer>Gaceta Oficial</footer>
</body></html>`
	got, err := (&HTMLExtractor{}).Extract(strings.NewReader(input), "ley.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "CAPÍTULO I\nArtículo 1. El trabajo\nes un hecho social.\nArtículo 2. Suelto en un div."
	if got != want {
		t.Errorf("expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestExtract_NoText(t *testing.T) {
	_, err := Extract(strings.NewReader(" \n\t"), "vacio.txt", Options{})
	if !errors.Is(err, convert.ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
}

func TestExtract_Unsupported(t *testing.T) {
	if _, err := Extract(strings.NewReader("x"), "ley.csv", Options{}); err == nil {
		t.Error("expected error")
	}
}

func TestPDFExtractor_InvalidFile(t *testing.T) {
	_, err := (&PDFExtractor{}).Extract(strings.NewReader("not a pdf"), "roto.pdf")
	if err == nil {
		t.Error("expected error for a file that is not a PDF")
	}
}

func TestDOCXExtractor_InvalidFile(t *testing.T) {
	if _, err := (&DOCXExtractor{}).Extract(strings.NewReader("not a zip"), "roto.docx"); err == nil {
		t.Error("expected error for a file that is not a DOCX")
	}
}
