// Package publish writes converted laws to pathstore and reads them back.
//
// Layout:
//
//	laws/<category>/meta                     law metadata with item count, hash and generation
//	laws/<category>/items/<generation>/<id>  one record per content node
//	catalog/<category>                       copy of the metadata, for listing
//	system/metadata                          counters read by clients to detect updates
//
// Every publish writes its items under a fresh generation. Readers follow the
// generation named by meta, so a law being republished keeps serving its
// previous items until the new meta is written.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/pathstore"
)

// SchemaVersion is part of every law hash. Bump it to force a full
// republish after the stored layout or text formatting changes.
const SchemaVersion = "v4_cleaned_text"

// DefaultLargeLawThreshold is the item count above which a law is flagged
// as large, so clients page through it instead of loading it whole.
const DefaultLargeLawThreshold = 500

// Meta is the stored metadata record of a law.
type Meta struct {
	Title       string      `json:"title"`
	Category    string      `json:"category"`
	Type        law.DocType `json:"type"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	ItemCount   int         `json:"item_count"`
	IsLargeLaw  bool        `json:"is_large_law"`
	Hash        string      `json:"hash"`
	Generation  string      `json:"generation"`
	LastUpdated time.Time   `json:"last_updated"`
}

// Item is the stored record of one content node.
type Item struct {
	ID          string         `json:"id"`
	Type        law.MarkerKind `json:"type"`
	Number      string         `json:"number,omitempty"`
	Title       string         `json:"title,omitempty"`
	Text        string         `json:"text"`
	Index       int            `json:"index"`
	LawCategory string         `json:"law_category"`
}

// Node converts the item back to a content node.
func (it Item) Node() law.Node {
	return law.Node{Kind: it.Type, Number: it.Number, Title: it.Title, Text: it.Text}
}

// System is the global record clients poll to detect new uploads.
type System struct {
	LawsLastUpdated time.Time `json:"laws_last_updated"`
	LawsCount       int       `json:"laws_count"`
	LastUploadCount int       `json:"last_upload_count"`
	SchemaVersion   string    `json:"schema_version"`
}

// Config controls publishing.
type Config struct {
	MaxConcurrent     int
	LargeLawThreshold int
	Source            string // recorded on every write
}

// Publisher writes documents through a pathstore client.
type Publisher struct {
	ps  *pathstore.Client
	log *slog.Logger
	cfg Config
	now func() time.Time
	gen func() string
}

func New(ps *pathstore.Client, cfg Config, log *slog.Logger) *Publisher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.LargeLawThreshold <= 0 {
		cfg.LargeLawThreshold = DefaultLargeLawThreshold
	}
	if cfg.Source == "" {
		cfg.Source = "lawgest"
	}
	return &Publisher{ps: ps, log: log, cfg: cfg, now: time.Now, gen: uuid.NewString}
}

func metaKey(category string) string    { return "laws/" + category + "/meta" }
func itemsKey(category, generation string) string {
	return "laws/" + category + "/items/" + generation
}
func catalogKey(category string) string { return "catalog/" + category }

const systemKey = "system/metadata"

// Hash identifies a published version of doc: title, item count, date and
// schema version. Text edits that keep the item count do not change it;
// use force to republish those.
func Hash(doc *law.Document) string {
	return fmt.Sprintf("%s_%d_%s_%s", doc.Title, len(doc.Content), doc.Date.Format(law.DateLayout), SchemaVersion)
}

// ItemIDs returns the storage id of every node: art_<label> for articles
// and header_<index> for headers. A repeated article label gets its index
// appended, and a further counter if that id is taken too, so ids are unique.
func ItemIDs(nodes []law.Node) []string {
	ids := make([]string, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		id := "header_" + strconv.Itoa(i)
		if n.IsArticle() {
			label := law.Slug(n.Number, "_")
			if label == "" {
				label = strconv.Itoa(i)
			}
			id = "art_" + label
			if seen[id] {
				base := id + "_" + strconv.Itoa(i)
				id = base
				for n := 2; seen[id]; n++ {
					id = base + "_" + strconv.Itoa(n)
				}
			}
		}
		seen[id] = true
		ids[i] = id
	}
	return ids
}

// Outcome describes what Publish did.
type Outcome struct {
	Category string `json:"category"`
	Hash     string `json:"hash"`
	Items    int    `json:"items"`
	Skipped  bool   `json:"skipped"`
}

// Publish stores doc. If the stored hash matches and force is false nothing
// is written. Items go to a new generation before the metadata record
// switches to it, so readers never see a partial law. The previous
// generation is removed afterwards.
func (p *Publisher) Publish(ctx context.Context, doc *law.Document, force bool) (Outcome, error) {
	out := Outcome{Category: doc.Category, Hash: Hash(doc)}
	log := p.log.With("category", doc.Category)

	existing, err := p.Meta(ctx, doc.Category)
	if err != nil {
		log.Warn("metadata lookup failed, publishing", "error", err)
	}
	if !force && existing != nil && existing.Hash == out.Hash {
		log.Info("law unchanged, skipping", "hash", out.Hash)
		out.Skipped = true
		return out, nil
	}

	gen := p.gen()
	log = log.With("generation", gen)
	n, err := p.putItems(ctx, log, doc, gen)
	out.Items = n
	if err != nil {
		p.dropGeneration(ctx, log, doc.Category, gen)
		return out, err
	}

	meta := Meta{
		Title:       doc.Title,
		Category:    doc.Category,
		Type:        doc.Type,
		Date:        doc.Date.Format(law.DateLayout),
		Description: doc.Description,
		ItemCount:   len(doc.Content),
		IsLargeLaw:  len(doc.Content) > p.cfg.LargeLawThreshold,
		Hash:        out.Hash,
		Generation:  gen,
		LastUpdated: p.now().UTC(),
	}
	if err := p.put(ctx, log, metaKey(doc.Category), meta); err != nil {
		p.dropGeneration(ctx, log, doc.Category, gen)
		return out, err
	}
	if err := p.put(ctx, log, catalogKey(doc.Category), meta); err != nil {
		return out, err
	}
	if existing != nil && existing.Generation != "" && existing.Generation != gen {
		p.dropGeneration(ctx, log, doc.Category, existing.Generation)
	}
	log.Info("law published", "items", n, "large", meta.IsLargeLaw)
	return out, nil
}

// dropGeneration removes the items of a generation no meta points to. A
// failure only leaves unreachable records behind, so it is logged.
func (p *Publisher) dropGeneration(ctx context.Context, log *slog.Logger, category, gen string) {
	if err := p.retry(ctx, log, func() error {
		return p.ps.DeleteNode(ctx, itemsKey(category, gen), true)
	}); err != nil {
		log.Warn("failed to remove item generation", "drop", gen, "error", err)
	}
}

// putItems writes every node with bounded concurrency and returns how many
// were stored.
func (p *Publisher) putItems(ctx context.Context, log *slog.Logger, doc *law.Document, gen string) (int, error) {
	ids := ItemIDs(doc.Content)
	sem := make(chan struct{}, p.cfg.MaxConcurrent)
	errs := make(chan error, len(doc.Content))

	for i, n := range doc.Content {
		sem <- struct{}{}
		go func(i int, n law.Node) {
			defer func() { <-sem }()
			item := Item{
				ID:          ids[i],
				Type:        n.Kind,
				Text:        n.Text,
				Index:       i,
				LawCategory: doc.Category,
			}
			if n.IsArticle() {
				item.Number, item.Title = n.Number, n.Title
			}
			errs <- p.put(ctx, log, itemsKey(doc.Category, gen)+"/"+ids[i], item)
		}(i, n)
	}

	stored := 0
	var firstErr error
	for range doc.Content {
		if err := <-errs; err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		stored++
	}
	if firstErr != nil {
		return stored, fmt.Errorf("store items: %d of %d failed: %w", len(doc.Content)-stored, len(doc.Content), firstErr)
	}
	return stored, nil
}

func (p *Publisher) put(ctx context.Context, log *slog.Logger, key string, value any) error {
	return p.retry(ctx, log, func() error {
		return p.ps.PutNode(ctx, key, pathstore.NodeRequest{Value: value, MergeMode: "replace", Source: p.cfg.Source})
	})
}

func (p *Publisher) retry(ctx context.Context, log *slog.Logger, fn func() error) error {
	return pathstore.Retry(ctx, fn, func(attempt int, err error) {
		log.Warn("retryable pathstore error", "attempt", attempt, "error", err)
	})
}

// Meta returns the stored metadata for category, or nil if it is not
// published.
func (p *Publisher) Meta(ctx context.Context, category string) (*Meta, error) {
	node, err := p.ps.GetNode(ctx, metaKey(category))
	if err != nil || node == nil {
		return nil, err
	}
	var m Meta
	if err := node.Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns the metadata of every published law ordered by category.
func (p *Publisher) List(ctx context.Context) ([]Meta, error) {
	nodes, err := p.ps.ListChildren(ctx, "catalog", 0)
	if err != nil {
		return nil, err
	}
	out := make([]Meta, 0, len(nodes))
	for i := range nodes {
		var m Meta
		if err := nodes[i].Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// DefaultPageSize is the page size used by Items when limit is not positive.
const DefaultPageSize = 50

// Items returns the metadata of category and up to limit of its items with
// an index greater than after, in document order. Pass after = -1 for the
// first page. The metadata is nil when the law is not published.
func (p *Publisher) Items(ctx context.Context, category string, after, limit int) (*Meta, []Item, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	meta, err := p.Meta(ctx, category)
	if err != nil || meta == nil || meta.ItemCount == 0 {
		return meta, nil, err
	}
	nodes, err := p.ps.ListChildren(ctx, itemsKey(category, meta.Generation), meta.ItemCount)
	if err != nil {
		return nil, nil, err
	}
	if len(nodes) != meta.ItemCount {
		p.log.Warn("stored item count differs from metadata",
			"category", category, "stored", len(nodes), "expected", meta.ItemCount)
	}
	items := make([]Item, 0, min(limit, len(nodes)))
	for i := range nodes {
		var it Item
		if err := nodes[i].Decode(&it); err != nil {
			return nil, nil, err
		}
		if it.Index > after {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })
	if len(items) > limit {
		items = items[:limit]
	}
	return meta, items, nil
}

// Delete removes a law and its items. Deleting an unknown category is not
// an error.
func (p *Publisher) Delete(ctx context.Context, category string) error {
	log := p.log.With("category", category)
	for _, key := range []string{"laws/" + category, catalogKey(category)} {
		if err := p.retry(ctx, log, func() error {
			return p.ps.DeleteNode(ctx, key, true)
		}); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	log.Info("law deleted")
	return nil
}

// Touch updates system/metadata after uploaded laws were published.
func (p *Publisher) Touch(ctx context.Context, uploaded int) (System, error) {
	laws, err := p.List(ctx)
	if err != nil {
		return System{}, fmt.Errorf("count laws: %w", err)
	}
	sys := System{
		LawsLastUpdated: p.now().UTC(),
		LawsCount:       len(laws),
		LastUploadCount: uploaded,
		SchemaVersion:   SchemaVersion,
	}
	if err := p.put(ctx, p.log, systemKey, sys); err != nil {
		return System{}, err
	}
	return sys, nil
}
