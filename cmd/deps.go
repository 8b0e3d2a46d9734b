package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hjh12035/NLP-Proj2/internal/assistant"
	"github.com/hjh12035/NLP-Proj2/internal/config"
	"github.com/hjh12035/NLP-Proj2/internal/ingest"
	"github.com/hjh12035/NLP-Proj2/internal/rag"
)

// newLogger builds the CLI logger. Verbose mode switches to development
// output with debug level.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// stack bundles the shared collaborators the commands build on.
type stack struct {
	cfg    config.Config
	logger *zap.Logger
	store  *rag.MilvusStore
	llm    *assistant.OpenAILLM
}

// buildStack loads config and connects to Milvus and the model provider.
func buildStack(ctx context.Context) (*stack, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	store, err := rag.NewMilvusStore(ctx, rag.DefaultMilvusConfig(
		cfg.MilvusAddress, cfg.CollectionName, cfg.EmbeddingDim))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	llm, err := assistant.NewOpenAILLM(cfg.APIKey, cfg.BaseURL)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &stack{cfg: cfg, logger: logger, store: store, llm: llm}, nil
}

func (s *stack) Close() {
	s.store.Close()
	s.logger.Sync()
}

func (s *stack) newEmbedder() (*rag.OpenAIEmbedder, error) {
	return rag.NewOpenAIEmbedder(s.cfg.APIKey, s.cfg.BaseURL, s.cfg.EmbeddingModel, s.cfg.EmbeddingDim)
}

// newAssistant creates a fresh conversation session over the stack.
func (s *stack) newAssistant() (*assistant.Assistant, error) {
	embedder, err := s.newEmbedder()
	if err != nil {
		return nil, err
	}

	retriever, err := rag.NewRetriever(embedder, s.store, s.logger)
	if err != nil {
		return nil, err
	}

	return assistant.New(s.llm, retriever, assistant.Config{
		MainModel:      s.cfg.Model,
		FastModel:      s.cfg.FastModel,
		TopK:           s.cfg.TopK,
		WindowCapacity: s.cfg.WindowCapacity,
	}, s.logger)
}

// buildKnowledgeBase loads, splits and indexes everything under the data
// directory. Returns the number of chunks indexed.
func (s *stack) buildKnowledgeBase(ctx context.Context, force bool) (int, error) {
	extractor := ingest.NewHTTPExtractor(s.cfg.ExtractorURL)

	loader, err := ingest.NewLoader(s.cfg.DataDir, extractor, s.logger)
	if err != nil {
		return 0, err
	}

	docs, err := loader.LoadAll(ctx)
	if err != nil {
		return 0, err
	}

	splitter := ingest.NewSplitter(s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	chunks := splitter.SplitDocuments(docs)

	embedder, err := s.newEmbedder()
	if err != nil {
		return 0, err
	}

	opts := rag.DefaultIndexOptions()
	if force {
		opts.ForceReindex = true
		opts.SkipExisting = false
	}

	if err := rag.IndexChunks(ctx, chunks, embedder, s.store, opts, s.logger); err != nil {
		return 0, err
	}

	return len(chunks), nil
}
