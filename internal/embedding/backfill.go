package embedding

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/studygen/studygen/internal/store"
)

// EmbeddingStore captures the persistence surface the backfiller requires.
type EmbeddingStore interface {
	ListContentMissingEmbeddings(ctx context.Context, limit int) ([]store.ContentRecord, error)
	SaveContentEmbedding(ctx context.Context, contentID, model string, vector []float32) error
}

// Backfiller embeds stored content that has no vector yet.
type Backfiller struct {
	store     EmbeddingStore
	provider  Provider
	model     string
	batchSize int
	pause     time.Duration
	logger    *log.Logger
}

// NewBackfiller wires a backfiller. batchSize bounds chunks per provider
// call; pause spaces calls to avoid saturating a local model server.
func NewBackfiller(st EmbeddingStore, provider Provider, model string, batchSize int, pause time.Duration, logger *log.Logger) *Backfiller {
	if logger == nil {
		logger = log.New(log.Writer(), "[EMBED] ", log.LstdFlags)
	}
	if batchSize < 1 {
		batchSize = 16
	}
	return &Backfiller{
		store:     st,
		provider:  provider,
		model:     model,
		batchSize: batchSize,
		pause:     pause,
		logger:    logger,
	}
}

// Run embeds missing content until none remains or the context is
// cancelled. It returns the number of vectors written.
func (b *Backfiller) Run(ctx context.Context) (int, error) {
	total := 0
	for {
		records, err := b.store.ListContentMissingEmbeddings(ctx, b.batchSize)
		if err != nil {
			return total, fmt.Errorf("listing content: %w", err)
		}
		if len(records) == 0 {
			b.logger.Printf("backfill complete: %d vectors written", total)
			return total, nil
		}

		texts := make([]string, len(records))
		for i, rec := range records {
			texts[i] = rec.Body
		}
		vectors, err := b.provider.Embed(ctx, texts)
		if err != nil {
			return total, fmt.Errorf("embedding batch: %w", err)
		}

		for i, rec := range records {
			if err := b.store.SaveContentEmbedding(ctx, rec.ID, b.model, vectors[i]); err != nil {
				return total, fmt.Errorf("saving embedding for %s: %w", rec.ID, err)
			}
			total++
		}
		b.logger.Printf("embedded %d chunks (%d total)", len(records), total)

		if b.pause > 0 {
			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(b.pause):
			}
		}
	}
}
