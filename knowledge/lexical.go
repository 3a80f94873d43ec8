package knowledge

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "can": {},
	"do": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "my": {},
	"me": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "was": {}, "what": {}, "with": {},
	"you": {}, "your": {}, "please": {}, "any": {}, "this": {}, "that": {}, "not": {},
}

// LexicalIndex is an in-memory BM25 index. Title terms count twice.
type LexicalIndex struct {
	docs   []Document
	terms  []map[string]int
	lens   []int
	df     map[string]int
	avgLen float64
}

// NewLexicalIndex indexes docs. The index is immutable and safe for
// concurrent searches.
func NewLexicalIndex(docs []Document) *LexicalIndex {
	idx := &LexicalIndex{
		docs:  docs,
		terms: make([]map[string]int, len(docs)),
		lens:  make([]int, len(docs)),
		df:    map[string]int{},
	}
	total := 0
	for i, d := range docs {
		tf := map[string]int{}
		title := tokenize(d.Title)
		for _, tok := range title {
			tf[tok] += 2
		}
		body := tokenize(d.Text)
		for _, tok := range body {
			tf[tok]++
		}
		for tok := range tf {
			idx.df[tok]++
		}
		idx.terms[i] = tf
		idx.lens[i] = 2*len(title) + len(body)
		total += idx.lens[i]
	}
	if len(docs) > 0 {
		idx.avgLen = float64(total) / float64(len(docs))
	}
	return idx
}

// Search implements Searcher. Documents sharing no term with the query are
// never returned.
func (idx *LexicalIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := uniq(tokenize(query))
	if len(q) == 0 || len(idx.docs) == 0 {
		return nil, nil
	}

	n := float64(len(idx.docs))
	var hits []Hit
	for i, d := range idx.docs {
		score := 0.0
		for _, tok := range q {
			tf := float64(idx.terms[i][tok])
			if tf == 0 {
				continue
			}
			df := float64(idx.df[tok])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := 1 - bm25B + bm25B*float64(idx.lens[i])/idx.avgLen
			score += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
		if score > 0 {
			hits = append(hits, Hit{Document: d, Score: score})
		}
	}
	return topK(hits, k), nil
}

// tokenize lower-cases s, splits on anything that is not a letter or digit,
// drops stopwords and strips a plural "s".
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop || len(f) < 2 {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		out = append(out, f)
	}
	return out
}

func uniq(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
