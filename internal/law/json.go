package law

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// DateLayout is the serialized form of a publication date.
const DateLayout = "2006-01-02"

type wireNode struct {
	Type   string          `json:"type"`
	Number json.RawMessage `json:"number,omitempty"`
	Title  string          `json:"title,omitempty"`
	Text   string          `json:"text"`
}

type wireContent struct {
	Articles []Node `json:"articles"`
}

type wireDocument struct {
	Title       string      `json:"title"`
	Category    string      `json:"category"`
	Type        DocType     `json:"type"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Content     wireContent `json:"content"`
}

// marshal is json.Marshal without HTML escaping, so "<" and "&" in law text
// survive an Encode round trip unchanged.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalJSON writes {"type","number"?,"title"?,"text"}; number and title
// are only present for articles.
func (n Node) MarshalJSON() ([]byte, error) {
	w := wireNode{Type: string(n.Kind), Text: n.Text}
	if n.IsArticle() {
		num, err := marshal(n.Number)
		if err != nil {
			return nil, err
		}
		w.Number = num
		w.Title = n.Title
	}
	return marshal(w)
}

// UnmarshalJSON accepts numbers stored either as strings or as bare integers,
// which older exports used.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind := MarkerKind(w.Type)
	if !kind.Valid() {
		return fmt.Errorf("unknown node type %q", w.Type)
	}
	*n = Node{Kind: kind, Text: w.Text}
	if kind != KindArticle {
		return nil
	}
	if len(w.Number) > 0 {
		var s string
		if err := json.Unmarshal(w.Number, &s); err != nil {
			var i int64
			if err := json.Unmarshal(w.Number, &i); err != nil {
				return fmt.Errorf("article number: %w", err)
			}
			s = strconv.FormatInt(i, 10)
		}
		n.Number = s
	}
	n.Title = w.Title
	if n.Title == "" && n.Number != "" {
		n.Title = ArticleTitle(n.Number)
	}
	return nil
}

// MarshalJSON writes the interchange shape of a single law.
func (d *Document) MarshalJSON() ([]byte, error) {
	content := d.Content
	if content == nil {
		content = []Node{}
	}
	return marshal(wireDocument{
		Title:       d.Title,
		Category:    d.Category,
		Type:        d.Type,
		Date:        d.Date.Format(DateLayout),
		Description: d.Description,
		Content:     wireContent{Articles: content},
	})
}

// UnmarshalJSON reads the interchange shape of a single law.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var date time.Time
	if w.Date != "" {
		var err error
		date, err = time.Parse(DateLayout, w.Date)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
	}
	*d = Document{
		Title:       w.Title,
		Category:    w.Category,
		Type:        w.Type,
		Date:        date,
		Description: w.Description,
		Content:     w.Content.Articles,
	}
	return nil
}

// Encode writes docs as the top-level JSON array used for interchange files.
// Non-ASCII text is written as-is.
func Encode(w io.Writer, docs ...*Document) error {
	if docs == nil {
		docs = []*Document{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Decode reads an interchange file.
func Decode(r io.Reader) ([]*Document, error) {
	var docs []*Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return docs, nil
}
