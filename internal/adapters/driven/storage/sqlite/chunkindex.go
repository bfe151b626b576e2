package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/qagent/internal/adapters/driven/storage/cosine"
	"github.com/custodia-labs/qagent/internal/core/domain"
	"github.com/custodia-labs/qagent/internal/core/ports/driven"
)

var _ driven.ChunkIndex = (*ChunkIndex)(nil)

// ChunkIndex is one collection of a Store.
type ChunkIndex struct {
	db         *sql.DB
	collection string
}

// Collection returns the collection name.
func (c *ChunkIndex) Collection() string {
	return c.collection
}

// Replace swaps the collection contents and records their vector width.
// Chunks of mixed widths are rejected before anything is written.
func (c *ChunkIndex) Replace(ctx context.Context, chunks []domain.IndexedChunk) error {
	dims, err := cosine.Dimensions(chunks)
	if err != nil {
		return fmt.Errorf("replace %s: %w", c.collection, err)
	}

	return inTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, c.collection); err != nil {
			return fmt.Errorf("clear %s: %w", c.collection, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collections (name, dimensions, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (name) DO UPDATE SET dimensions = excluded.dimensions, updated_at = excluded.updated_at`,
			c.collection, dims); err != nil {
			return fmt.Errorf("record %s: %w", c.collection, err)
		}

		insert, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (collection, position, id, text, source_filename, chunk_index, total_chunks, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer insert.Close()

		for pos, ch := range chunks {
			if _, err := insert.ExecContext(ctx, c.collection, pos, ch.ID, ch.Text, ch.SourceFilename,
				ch.ChunkIndex, ch.TotalChunks, float32SliceToBytes(ch.Embedding)); err != nil {
				return fmt.Errorf("insert chunk %d of %s: %w", pos, c.collection, err)
			}
		}
		return nil
	})
}

// Search ranks the collection against query. An unknown collection yields
// no hits; a query whose width differs from the stored vectors fails with
// domain.ErrDimensionMismatch.
func (c *ChunkIndex) Search(ctx context.Context, query []float32, k int) ([]domain.RetrievalHit, error) {
	if k <= 0 {
		return []domain.RetrievalHit{}, nil
	}

	dims, err := c.dimensions(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return []domain.RetrievalHit{}, nil
	case err != nil:
		return nil, err
	case dims > 0 && len(query) != dims:
		return nil, fmt.Errorf("%w: query has %d dimensions, %s stores %d",
			domain.ErrDimensionMismatch, len(query), c.collection, dims)
	}

	chunks, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return cosine.TopK(query, chunks, k), nil
}

// Count returns the number of chunks and distinct source documents.
func (c *ChunkIndex) Count(ctx context.Context) (chunks, documents int, err error) {
	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT source_filename) FROM chunks WHERE collection = ?`,
		c.collection).Scan(&chunks, &documents)
	if err != nil {
		return 0, 0, fmt.Errorf("count %s: %w", c.collection, err)
	}
	return chunks, documents, nil
}

// Close is a no-op; Store.Close releases the database.
func (c *ChunkIndex) Close() error {
	return nil
}

func (c *ChunkIndex) dimensions(ctx context.Context) (int, error) {
	var dims int
	err := c.db.QueryRowContext(ctx, `SELECT dimensions FROM collections WHERE name = ?`, c.collection).Scan(&dims)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read %s: %w", c.collection, err)
	}
	return dims, err
}

func (c *ChunkIndex) load(ctx context.Context) ([]domain.IndexedChunk, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, text, source_filename, chunk_index, total_chunks, embedding
		FROM chunks WHERE collection = ? ORDER BY position`, c.collection)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.collection, err)
	}
	defer rows.Close()

	var out []domain.IndexedChunk
	for rows.Next() {
		var ch domain.IndexedChunk
		var blob []byte
		if err := rows.Scan(&ch.ID, &ch.Text, &ch.SourceFilename, &ch.ChunkIndex, &ch.TotalChunks, &blob); err != nil {
			return nil, fmt.Errorf("load %s: %w", c.collection, err)
		}
		ch.Embedding = bytesToFloat32Slice(blob)
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", c.collection, err)
	}
	return out, nil
}
