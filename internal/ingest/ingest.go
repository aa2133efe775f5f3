package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/studygen/studygen/internal/store"
)

// ContentStore captures the persistence surface the ingester requires.
type ContentStore interface {
	InsertContent(ctx context.Context, rec store.ContentRecord) (string, bool, error)
}

// Ingester validates and stores chunks of curriculum material.
type Ingester struct {
	store     ContentStore
	validator *ContentValidator
	logger    *log.Logger
}

// New wires an ingester.
func New(st ContentStore, validator *ContentValidator, logger *log.Logger) *Ingester {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	if validator == nil {
		validator = NewContentValidator(DefaultValidatorConfig(), nil)
	}
	return &Ingester{store: st, validator: validator, logger: logger}
}

// Result summarizes one ingestion run.
type Result struct {
	Accepted   int
	Duplicates int
	Rejected   int
}

// Chunk is one piece of material to ingest.
type Chunk struct {
	TopicID string
	Subject string
	Source  string
	Title   string
	Body    string
}

// HashContent returns the dedupe key for a body of text: the hex sha256 of
// its whitespace-normalized form, so formatting changes don't defeat
// deduplication.
func HashContent(body string) string {
	normalized := strings.Join(strings.Fields(body), " ")
	sum := sha256.Sum256([]byte(strings.ToLower(normalized)))
	return hex.EncodeToString(sum[:])
}

// Ingest validates and stores a batch of chunks. Invalid chunks are counted
// and skipped; an error is returned only for storage failures.
func (i *Ingester) Ingest(ctx context.Context, chunks []Chunk) (Result, error) {
	var res Result
	for _, chunk := range chunks {
		if err := i.validator.Validate(chunk.Body, chunk.Subject); err != nil {
			i.logger.Printf("rejecting chunk from %s: %v", chunk.Source, err)
			res.Rejected++
			continue
		}

		rec := store.ContentRecord{
			TopicID:     chunk.TopicID,
			Source:      chunk.Source,
			Title:       chunk.Title,
			Body:        chunk.Body,
			ContentHash: HashContent(chunk.Body),
			WordCount:   len(strings.Fields(chunk.Body)),
		}
		_, inserted, err := i.store.InsertContent(ctx, rec)
		if err != nil {
			return res, fmt.Errorf("storing chunk from %s: %w", chunk.Source, err)
		}
		if inserted {
			res.Accepted++
		} else {
			res.Duplicates++
		}
	}
	i.logger.Printf("ingest finished: %d accepted, %d duplicates, %d rejected",
		res.Accepted, res.Duplicates, res.Rejected)
	return res, nil
}
