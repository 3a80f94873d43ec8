// Package knowledge implements the similarity search behind the
// search_knowledge_base and search_experiences_by_keyword tools.
//
// Two Searcher implementations exist: LexicalIndex, a BM25 ranker that needs
// no network access, and EmbeddingIndex, which ranks by cosine similarity of
// OpenAI embeddings with vectors cached in Redis.
package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Mohamed711/customer-support-agent/logging"
	"github.com/Mohamed711/customer-support-agent/store"
)

// Document is one searchable entry. Fields is the payload handed back to the
// model for a hit.
type Document struct {
	ID     string
	Title  string
	Text   string
	Fields map[string]any
}

// Hit is a ranked search result.
type Hit struct {
	Document
	Score float64
}

// Searcher ranks documents against a free text query and returns at most k
// hits, best first. An empty result is not an error.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}

// Corpus sizes used by the gateway.
const (
	ArticleTopK    = 3
	ExperienceTopK = 5
)

// ArticleDocuments converts knowledge base articles into documents whose
// payload carries title, content and tags.
func ArticleDocuments(articles []store.Article) []Document {
	docs := make([]Document, 0, len(articles))
	for _, a := range articles {
		docs = append(docs, Document{
			ID:    a.ID,
			Title: a.Title,
			Text:  a.Content + " " + a.Tags,
			Fields: map[string]any{
				"title":   a.Title,
				"content": a.Content,
				"tags":    a.Tags,
			},
		})
	}
	return docs
}

// ExperienceDocuments converts the experience catalogue into documents.
func ExperienceDocuments(exps []store.Experience) []Document {
	docs := make([]Document, 0, len(exps))
	for _, e := range exps {
		docs = append(docs, Document{
			ID:    e.ID,
			Title: e.Title,
			Text:  fmt.Sprintf("%s %s", e.Description, e.Location),
			Fields: map[string]any{
				"experience_id":         e.ID,
				"experience_title":      e.Title,
				"experience_location":   e.Location,
				"experience_time":       e.When,
				"experience_is_premium": e.IsPremium,
				"slots_available":       e.SlotsAvailable,
				"description":           e.Description,
			},
		})
	}
	return docs
}

// Payloads returns the Fields of each hit, in rank order.
func Payloads(hits []Hit) []map[string]any {
	out := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Fields)
	}
	return out
}

// topK sorts hits by score (ties by id) and truncates to k.
func topK(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func documentText(d Document) string {
	return strings.TrimSpace(d.Title + "\n" + d.Text)
}

// CatalogSource lists the documents of both corpora.
type CatalogSource interface {
	ListArticles(ctx context.Context) ([]store.Article, error)
	ListExperiences(ctx context.Context) ([]store.Experience, error)
}

// Catalog holds one Searcher per corpus.
type Catalog struct {
	Articles    Searcher
	Experiences Searcher
}

// BuildCatalog loads both corpora from src and indexes them. A nil embedder
// selects the lexical index.
func BuildCatalog(ctx context.Context, src CatalogSource, embedder Embedder, logger logging.Logger) (*Catalog, error) {
	arts, err := src.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("knowledge: load articles: %w", err)
	}
	exps, err := src.ListExperiences(ctx)
	if err != nil {
		return nil, fmt.Errorf("knowledge: load experiences: %w", err)
	}

	if embedder == nil {
		return &Catalog{
			Articles:    NewLexicalIndex(ArticleDocuments(arts)),
			Experiences: NewLexicalIndex(ExperienceDocuments(exps)),
		}, nil
	}

	artIdx, err := NewEmbeddingIndex(ctx, embedder, ArticleDocuments(arts), logger)
	if err != nil {
		return nil, err
	}
	expIdx, err := NewEmbeddingIndex(ctx, embedder, ExperienceDocuments(exps), logger)
	if err != nil {
		return nil, err
	}
	return &Catalog{Articles: artIdx, Experiences: expIdx}, nil
}
