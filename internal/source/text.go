package source

import (
	"fmt"
	"io"
	"strings"
)

// TextExtractor handles plain text files.
type TextExtractor struct{}

func (e *TextExtractor) Extract(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimPrefix(text, "\ufeff"), nil
}
