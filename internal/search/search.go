// Package search serves hybrid retrieval over ingested content: BM25 via an
// in-memory bleve index fused with pgvector nearest-neighbour hits.
package search

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/studygen/studygen/internal/embedding"
	"github.com/studygen/studygen/internal/store"
)

// rrfK is the reciprocal-rank-fusion dampening constant.
const rrfK = 60

// Hit is one retrieval result.
type Hit struct {
	ContentID string  `json:"content_id"`
	TopicID   string  `json:"topic_id"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

// VectorStore captures the nearest-neighbour surface of the store.
type VectorStore interface {
	SearchSimilarContent(ctx context.Context, vector []float32, limit int) ([]store.SimilarContent, error)
}

// Engine indexes content in memory and answers hybrid queries.
type Engine struct {
	mu       sync.RWMutex
	index    bleve.Index
	meta     map[string]store.ContentRecord
	vectors  VectorStore
	embedder embedding.Provider
	logger   *log.Logger
}

// NewEngine builds an empty engine. vectors and embedder may be nil, in
// which case queries are keyword-only.
func NewEngine(vectors VectorStore, embedder embedding.Provider, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	return &Engine{
		index:    index,
		meta:     make(map[string]store.ContentRecord),
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// IndexContent adds content records to the keyword index.
func (e *Engine) IndexContent(records []store.ContentRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rec := range records {
		doc := map[string]string{"title": rec.Title, "body": rec.Body}
		if err := e.index.Index(rec.ID, doc); err != nil {
			return fmt.Errorf("indexing %s: %w", rec.ID, err)
		}
		e.meta[rec.ID] = rec
	}
	return nil
}

// Search answers a query with RRF-fused keyword and vector hits.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k < 1 {
		k = 10
	}
	keyword := e.keywordSearch(query, k)

	if e.vectors == nil || e.embedder == nil {
		return keyword, nil
	}
	vecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		if err != nil {
			e.logger.Printf("query embedding failed, keyword-only results: %v", err)
		}
		return keyword, nil
	}
	similar, err := e.vectors.SearchSimilarContent(ctx, vecs[0], k)
	if err != nil {
		e.logger.Printf("vector search failed, keyword-only results: %v", err)
		return keyword, nil
	}

	vector := make([]Hit, 0, len(similar))
	for i, s := range similar {
		vector = append(vector, Hit{
			ContentID: s.Content.ID,
			TopicID:   s.Content.TopicID,
			Title:     s.Content.Title,
			Snippet:   snippet(s.Content.Body),
			Score:     1 - s.Distance,
			Rank:      i + 1,
		})
	}
	return fuseRRF(keyword, vector, k), nil
}

func (e *Engine) keywordSearch(q string, k int) []Hit {
	e.mu.RLock()
	defer e.mu.RUnlock()
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	res, err := e.index.Search(searchReq)
	if err != nil {
		e.logger.Printf("keyword search failed: %v", err)
		return nil
	}
	var out []Hit
	for i, hit := range res.Hits {
		rec := e.meta[hit.ID]
		out = append(out, Hit{
			ContentID: rec.ID,
			TopicID:   rec.TopicID,
			Title:     rec.Title,
			Snippet:   snippet(rec.Body),
			Score:     hit.Score,
			Rank:      i + 1,
		})
		if len(out) >= k {
			break
		}
	}
	return out
}

// fuseRRF merges two ranked lists by reciprocal rank fusion.
func fuseRRF(a, b []Hit, k int) []Hit {
	type agg struct {
		hit   Hit
		score float64
	}
	m := map[string]*agg{}
	add := func(list []Hit) {
		for _, h := range list {
			x, ok := m[h.ContentID]
			if !ok {
				x = &agg{hit: h}
				m[h.ContentID] = x
			}
			x.score += 1.0 / float64(rrfK+h.Rank)
		}
	}
	add(a)
	add(b)

	fused := make([]Hit, 0, len(m))
	for _, v := range m {
		h := v.hit
		h.Score = v.score
		fused = append(fused, h)
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	if len(fused) > k {
		fused = fused[:k]
	}
	for i := range fused {
		fused[i].Rank = i + 1
	}
	return fused
}

func snippet(text string) string {
	const max = 240
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
