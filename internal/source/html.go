package source

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLExtractor handles HTML files such as gazette pages saved from the web.
// Each block element becomes one line; scripts, styles and page chrome are
// skipped.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(r io.Reader, filename string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "head", "noscript":
				return
			case "p", "li", "td", "th", "blockquote", "pre", "dt", "dd",
				"h1", "h2", "h3", "h4", "h5", "h6":
				if t := textContent(n); t != "" {
					lines = append(lines, t)
				}
				return
			}
		}
		if n.Type == html.TextNode && n.Parent != nil && isContainer(n.Parent.Data) {
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return strings.Join(lines, "\n"), nil
}

// isContainer reports whether loose text directly inside tag is content.
func isContainer(tag string) bool {
	switch tag {
	case "body", "div", "section", "article", "main":
		return true
	}
	return false
}

// textContent joins the text below n. <br> becomes a newline.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
