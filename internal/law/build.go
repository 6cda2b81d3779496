package law

import (
	"errors"
	"fmt"
)

// ErrInvalidMetadata is returned by Build for incomplete or malformed metadata.
var ErrInvalidMetadata = errors.New("invalid metadata")

// Build assembles a Document from metadata and an ordered node list.
// The content slice is copied so later changes by the caller do not leak in.
func Build(meta Metadata, content []Node) (*Document, error) {
	if meta.Title == "" {
		return nil, fmt.Errorf("build document: %w: title is required", ErrInvalidMetadata)
	}
	if !IsCategory(meta.Category) {
		return nil, fmt.Errorf("build document: %w: bad category %q", ErrInvalidMetadata, meta.Category)
	}
	if !docTypes[meta.Type] {
		return nil, fmt.Errorf("build document: %w: unknown type %q", ErrInvalidMetadata, meta.Type)
	}
	if meta.Date.IsZero() {
		return nil, fmt.Errorf("build document: %w: date is required", ErrInvalidMetadata)
	}

	nodes := make([]Node, len(content))
	copy(nodes, content)

	return &Document{
		Title:       meta.Title,
		Category:    meta.Category,
		Type:        meta.Type,
		Date:        meta.Date,
		Description: meta.Description,
		Content:     nodes,
	}, nil
}
