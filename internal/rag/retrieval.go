package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Retriever provides semantic retrieval over indexed course materials.
//
// Retrieval is deliberately fail-soft: an embedding or search failure
// degrades to an empty result so a conversational turn can continue in
// "no relevant material" mode instead of aborting.
type Retriever struct {
	embedder    Embedder
	vectorStore VectorStore
	logger      *zap.Logger
}

// NewRetriever creates a new Retriever instance.
func NewRetriever(embedder Embedder, vectorStore VectorStore, logger *zap.Logger) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if vectorStore == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		logger:      logger.Named("retriever"),
	}, nil
}

// Retrieve embeds the query and performs a top-K similarity search.
// It never returns an error: collaborator failures are logged and reported
// as an empty passage list.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) []Passage {
	if query == "" || topK <= 0 {
		return []Passage{}
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		r.logger.Warn("query embedding failed, degrading to empty result",
			zap.Error(err))
		return []Passage{}
	}
	if len(vectors) == 0 {
		r.logger.Warn("embedder returned no vectors for query")
		return []Passage{}
	}

	passages, err := r.vectorStore.Search(ctx, vectors[0], topK)
	if err != nil {
		r.logger.Warn("vector search failed, degrading to empty result",
			zap.Error(err))
		return []Passage{}
	}

	r.logger.Debug("retrieved passages",
		zap.Int("requested", topK),
		zap.Int("returned", len(passages)))

	return passages
}
