package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// IndexChunks embeds document chunks in batches and stores them in the
// vector store. Chunks with empty content are skipped. Depending on the
// options, chunks that already exist (by UID) are skipped or re-inserted.
func IndexChunks(
	ctx context.Context,
	chunks []DocumentChunk,
	embedder Embedder,
	vectorStore VectorStore,
	opts IndexOptions,
	logger *zap.Logger,
) error {
	if embedder == nil {
		return fmt.Errorf("embedder cannot be nil")
	}
	if vectorStore == nil {
		return fmt.Errorf("vector store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultIndexOptions().BatchSize
	}

	// Empty content cannot be embedded.
	filtered := make([]DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Content != "" {
			filtered = append(filtered, c)
		}
	}
	chunks = filtered

	if len(chunks) == 0 {
		return nil
	}

	if opts.ForceReindex {
		uids := make([]string, len(chunks))
		for i, c := range chunks {
			uids[i] = c.UID()
		}
		if err := vectorStore.Delete(ctx, uids); err != nil {
			return fmt.Errorf("failed to delete existing chunks: %w", err)
		}
	} else if opts.SkipExisting {
		chunks = filterNewChunks(ctx, chunks, vectorStore, logger)
	}

	logger.Info("indexing chunks", zap.Int("count", len(chunks)))

	for batchStart := 0; batchStart < len(chunks); batchStart += opts.BatchSize {
		batchEnd := min(batchStart+opts.BatchSize, len(chunks))
		batch := chunks[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch starting at %d: %w", batchStart, err)
		}

		records := make([]ChunkRecord, len(batch))
		for i, c := range batch {
			records[i] = ChunkRecord{
				DocumentChunk: c,
				Embedding:     vectors[i],
			}
		}

		if err := vectorStore.Insert(ctx, records); err != nil {
			return fmt.Errorf("failed to insert batch starting at %d: %w", batchStart, err)
		}
	}

	if err := vectorStore.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush index: %w", err)
	}

	return nil
}

// filterNewChunks removes chunks whose UID already exists in the store.
func filterNewChunks(
	ctx context.Context,
	chunks []DocumentChunk,
	vectorStore VectorStore,
	logger *zap.Logger,
) []DocumentChunk {
	uids := make([]string, len(chunks))
	for i, c := range chunks {
		uids[i] = c.UID()
	}

	existingMap, err := vectorStore.Query(ctx, uids)
	if err != nil {
		// If the existence check fails, index everything and let the
		// insertion surface any real problem.
		logger.Warn("existence check failed, indexing all chunks", zap.Error(err))
		return chunks
	}

	newChunks := make([]DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		if !existingMap[c.UID()] {
			newChunks = append(newChunks, c)
		}
	}

	if skipped := len(chunks) - len(newChunks); skipped > 0 {
		logger.Info("skipping already-indexed chunks", zap.Int("skipped", skipped))
	}

	return newChunks
}
