package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/lawgest/internal/normalize"
)

// File is the YAML form of a rule file. Unless Replace is set, markers are
// merged into the built-in table by name and artifact phrases are added to
// the built-in list.
type File struct {
	Replace   bool     `yaml:"replace,omitempty"`
	Markers   []Rule   `yaml:"markers"`
	Artifacts []string `yaml:"artifacts"`
}

// Parse decodes and compiles a YAML rule file.
func Parse(data []byte) (*Set, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	return f.Compile()
}

// LoadFile reads and compiles the rule file at path.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.file = path
	return s, nil
}

// Compile merges f with the built-in table (unless f.Replace) and compiles
// the result.
func (f File) Compile() (*Set, error) {
	if f.Replace {
		return New(f.Markers, f.Artifacts)
	}

	merged := DefaultRules()
	index := make(map[string]int, len(merged))
	for i, r := range merged {
		index[r.Name] = i
	}
	for _, r := range f.Markers {
		if i, ok := index[r.Name]; ok {
			merged[i] = r
			continue
		}
		index[r.Name] = len(merged)
		merged = append(merged, r)
	}

	phrases := append([]string(nil), normalize.DefaultArtifactPhrases...)
	phrases = append(phrases, f.Artifacts...)
	return New(merged, phrases)
}

// Export returns the YAML form of s with replace set, so the output can be
// edited and loaded back as a complete table.
func (s *Set) Export() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(File{Replace: true, Markers: s.Rules(), Artifacts: s.ArtifactPhrases()}); err != nil {
		return nil, fmt.Errorf("encode rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
