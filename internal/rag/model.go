package rag

import (
	"context"
	"fmt"
)

// ChunkType records where a chunk's text came from. Image chunks carry text
// recovered by OCR from figures embedded in slides or PDFs.
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeImage ChunkType = "image"
)

// Passage is a retrieved excerpt of course material with provenance.
type Passage struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
	// Page is the page or slide number. 0 means the source is not
	// paginated (prose documents split by the chunker).
	Page      int       `json:"page"`
	ChunkType ChunkType `json:"chunk_type"`
	// Score is the COSINE similarity reported by the vector store;
	// higher means closer. Never mix in distance-style scores.
	Score float32 `json:"score"`
}

// DocumentChunk is one indexable unit produced by ingestion.
type DocumentChunk struct {
	Content   string    `json:"content"`
	Filename  string    `json:"filename"`
	Filepath  string    `json:"filepath"`
	Filetype  string    `json:"filetype"`
	Page      int       `json:"page"`
	ChunkID   int       `json:"chunk_id"`
	ChunkType ChunkType `json:"chunk_type"`
}

// UID returns the store key for this chunk. Paginated sources distinguish
// chunks by page, prose sources by chunk id.
func (c DocumentChunk) UID() string {
	return fmt.Sprintf("%s_p%d_c%d", c.Filename, c.Page, c.ChunkID)
}

// ChunkRecord is a DocumentChunk paired with its embedding, ready to insert.
type ChunkRecord struct {
	DocumentChunk
	Embedding []float32 `json:"embedding"`
}

// VectorStore defines the interface for chunk storage and similarity search.
type VectorStore interface {
	// Insert inserts chunk records in a single operation.
	Insert(ctx context.Context, records []ChunkRecord) error

	// Flush ensures all pending data is persisted.
	Flush(ctx context.Context) error

	// Search performs top-K similarity search and returns passages in
	// descending similarity order.
	Search(ctx context.Context, queryVector []float32, topK int) ([]Passage, error)

	// Query reports which chunk UIDs already exist in the store.
	Query(ctx context.Context, uids []string) (map[string]bool, error)

	// Delete removes records by chunk UIDs.
	Delete(ctx context.Context, uids []string) error

	// Clear drops all indexed chunks and recreates the collection.
	Clear(ctx context.Context) error

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int64, error)

	// Close releases resources and closes connections.
	Close() error
}

// IndexOptions provides configuration for chunk indexing.
type IndexOptions struct {
	// BatchSize determines how many chunks to embed at once.
	BatchSize int

	// ForceReindex will delete and re-insert chunks even if they exist.
	ForceReindex bool

	// SkipExisting will check if a chunk already exists and skip it.
	SkipExisting bool
}

// DefaultIndexOptions returns sensible defaults for indexing.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		BatchSize:    16,
		ForceReindex: false,
		SkipExisting: true,
	}
}
