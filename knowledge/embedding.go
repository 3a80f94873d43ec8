package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/redis/go-redis/v9"

	"github.com/Mohamed711/customer-support-agent/logging"
)

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// OpenAIEmbedderOptions configure the OpenAI embedder.
type OpenAIEmbedderOptions struct {
	Model   string
	APIKey  string // falls back to OPENAI_API_KEY
	BaseURL string
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder using the official client.
func NewOpenAIEmbedder(optFns ...func(o *OpenAIEmbedderOptions)) *OpenAIEmbedder {
	opts := OpenAIEmbedderOptions{Model: string(openai.EmbeddingModelTextEmbedding3Small)}
	for _, fn := range optFns {
		fn(&opts)
	}
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)
	return &OpenAIEmbedder{client: &client, model: opts.Model}
}

// Model returns the embedding model name.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}
	return out, nil
}

// Cache stores vectors by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, v []float32, ttl time.Duration)
}

// RedisCache keeps vectors as little endian float32 blobs.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache wraps an existing client. Keys are prefixed with prefix.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "support:emb:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Get implements Cache. Any Redis failure is a miss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil || len(b)%4 != 0 {
		return nil, false
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, true
}

// Set implements Cache. Write failures are ignored; the vector is recomputed
// on the next miss.
func (r *RedisCache) Set(ctx context.Context, key string, v []float32, ttl time.Duration) {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	_ = r.client.Set(ctx, r.prefix+key, b, ttl).Err()
}

// CacheKey derives the cache key of text under model.
func CacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "|" + text))
	return hex.EncodeToString(h[:])
}

// CachedEmbedder consults a Cache before delegating misses to the wrapped
// Embedder in a single batch.
type CachedEmbedder struct {
	next  Embedder
	cache Cache
	ttl   time.Duration
}

// NewCachedEmbedder wraps next. A zero ttl keeps entries forever.
func NewCachedEmbedder(next Embedder, cache Cache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, ttl: ttl}
}

// Model returns the wrapped model name.
func (c *CachedEmbedder) Model() string { return c.next.Model() }

// Embed implements Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, t := range texts {
		if v, ok := c.cache.Get(ctx, CacheKey(c.next.Model(), t)); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Set(ctx, CacheKey(c.next.Model(), texts[i]), vecs[j], c.ttl)
	}
	return out, nil
}

// EmbeddingIndex ranks documents by cosine similarity to the query vector.
type EmbeddingIndex struct {
	embedder Embedder
	docs     []Document
	vectors  [][]float32
	logger   logging.Logger
}

// NewEmbeddingIndex embeds every document up front.
func NewEmbeddingIndex(ctx context.Context, embedder Embedder, docs []Document, logger logging.Logger) (*EmbeddingIndex, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = documentText(d)
	}
	vecs, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed corpus: %w", err)
	}
	logger.Info("knowledge.index.built", "model", embedder.Model(), "documents", len(docs))
	return &EmbeddingIndex{embedder: embedder, docs: docs, vectors: vecs, logger: logger}, nil
}

// Search implements Searcher. Hits with non-positive similarity are dropped.
func (idx *EmbeddingIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if len(idx.docs) == 0 {
		return nil, nil
	}
	qv, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}
	var hits []Hit
	for i, d := range idx.docs {
		if s := Cosine(qv[0], idx.vectors[i]); s > 0 {
			hits = append(hits, Hit{Document: d, Score: s})
		}
	}
	hits = topK(hits, k)
	idx.logger.Debug("knowledge.search", "query", query, "hits", len(hits))
	return hits, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
