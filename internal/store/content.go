package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ContentRecord is one ingested chunk of curriculum material.
type ContentRecord struct {
	ID          string
	TopicID     string
	Source      string
	Title       string
	Body        string
	ContentHash string
	WordCount   int
	CreatedAt   time.Time
}

// InsertContent stores an ingested chunk, deduplicating on the content hash.
// It reports whether a new row was written.
func (s *Store) InsertContent(ctx context.Context, rec ContentRecord) (string, bool, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	var insertedID string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO raw_content (id, topic_id, source, title, body, content_hash, word_count, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (content_hash) DO NOTHING
RETURNING id
`, id, rec.TopicID, rec.Source, nullableString(rec.Title), rec.Body, rec.ContentHash, rec.WordCount).Scan(&insertedID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return insertedID, true, nil
}

// ListContentForTopic returns a topic's ingested chunks, newest first.
func (s *Store) ListContentForTopic(ctx context.Context, topicID string, limit int) ([]ContentRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, topic_id, source, COALESCE(title, ''), body, content_hash, word_count, created_at
FROM raw_content WHERE topic_id=$1 ORDER BY created_at DESC LIMIT $2
`, topicID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContentRecord
	for rows.Next() {
		var rec ContentRecord
		if err := rows.Scan(&rec.ID, &rec.TopicID, &rec.Source, &rec.Title, &rec.Body,
			&rec.ContentHash, &rec.WordCount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListContent returns the newest ingested chunks across all topics.
func (s *Store) ListContent(ctx context.Context, limit int) ([]ContentRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, topic_id, source, COALESCE(title, ''), body, content_hash, word_count, created_at
FROM raw_content ORDER BY created_at DESC LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContentRecord
	for rows.Next() {
		var rec ContentRecord
		if err := rows.Scan(&rec.ID, &rec.TopicID, &rec.Source, &rec.Title, &rec.Body,
			&rec.ContentHash, &rec.WordCount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListContentMissingEmbeddings returns chunks that have no stored vector yet.
func (s *Store) ListContentMissingEmbeddings(ctx context.Context, limit int) ([]ContentRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT c.id, c.topic_id, c.source, COALESCE(c.title, ''), c.body, c.content_hash, c.word_count, c.created_at
FROM raw_content c
LEFT JOIN content_embeddings e ON e.content_id = c.id
WHERE e.id IS NULL
ORDER BY c.created_at ASC LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContentRecord
	for rows.Next() {
		var rec ContentRecord
		if err := rows.Scan(&rec.ID, &rec.TopicID, &rec.Source, &rec.Title, &rec.Body,
			&rec.ContentHash, &rec.WordCount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveContentEmbedding stores a vector for one chunk.
func (s *Store) SaveContentEmbedding(ctx context.Context, contentID, model string, vector []float32) error {
	literal, err := encodeVectorLiteral(vector)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO content_embeddings (id, content_id, model, embedding, created_at)
VALUES ($1,$2,$3,$4::vector,NOW())
ON CONFLICT (content_id) DO UPDATE SET model = EXCLUDED.model, embedding = EXCLUDED.embedding
`, uuid.NewString(), contentID, model, literal)
	return err
}

// SimilarContent is one nearest-neighbour hit.
type SimilarContent struct {
	Content  ContentRecord
	Distance float64
}

// SearchSimilarContent returns the chunks nearest to the query vector by
// cosine distance.
func (s *Store) SearchSimilarContent(ctx context.Context, vector []float32, limit int) ([]SimilarContent, error) {
	literal, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT c.id, c.topic_id, c.source, COALESCE(c.title, ''), c.body, c.content_hash, c.word_count, c.created_at,
       e.embedding <=> $1::vector AS distance
FROM content_embeddings e
JOIN raw_content c ON c.id = e.content_id
ORDER BY distance ASC LIMIT $2
`, literal, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SimilarContent
	for rows.Next() {
		var hit SimilarContent
		if err := rows.Scan(&hit.Content.ID, &hit.Content.TopicID, &hit.Content.Source,
			&hit.Content.Title, &hit.Content.Body, &hit.Content.ContentHash,
			&hit.Content.WordCount, &hit.Content.CreatedAt, &hit.Distance); err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}
