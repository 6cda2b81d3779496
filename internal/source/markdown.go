package source

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor handles Markdown files using goldmark. Markup is dropped
// and each block becomes its own line, so "## Artículo 1." reaches the
// scanner as a line starting with the article keyword.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(r io.Reader, filename string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if t := blockText(n, src); t != "" {
			blocks = append(blocks, t)
		}
	}
	return strings.Join(blocks, "\n"), nil
}

// blockText returns the text of a block, descending into lists and quotes.
func blockText(n ast.Node, src []byte) string {
	switch n.Kind() {
	case ast.KindList, ast.KindListItem, ast.KindBlockquote:
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t := blockText(c, src); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n")
	case ast.KindThematicBreak, ast.KindHTMLBlock:
		return ""
	}
	return inlineText(n, src)
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		buf.WriteString(inlineText(c, src))
	}
	return strings.TrimSpace(buf.String())
}
