package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Common errors for Milvus operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrEmptyRecords     = errors.New("no records provided for insertion")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert records")
	ErrSearchFailed     = errors.New("failed to search vectors")
)

// MilvusConfig holds configuration for Milvus connection and collection
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string // Name of the collection
	Dimension      int    // Vector dimension
	IndexType      string // Index type (default: "HNSW")
	MetricType     string // Similarity metric (default: "COSINE")

	// HNSW index parameters
	M              int // HNSW M parameter (default: 16)
	EfConstruction int // HNSW efConstruction (default: 256)
}

// DefaultMilvusConfig returns default collection settings for the given
// address, collection name and embedding dimension.
func DefaultMilvusConfig(address, collection string, dimension int) MilvusConfig {
	return MilvusConfig{
		Address:        address,
		CollectionName: collection,
		Dimension:      dimension,
		IndexType:      "HNSW",
		MetricType:     "COSINE",
		M:              16,
		EfConstruction: 256,
	}
}

// MilvusStore implements VectorStore interface using Milvus
type MilvusStore struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusStore creates a new Milvus vector store instance.
// Connects to Milvus and ensures the collection exists with proper schema.
func NewMilvusStore(ctx context.Context, config MilvusConfig) (*MilvusStore, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &MilvusStore{
		client: c,
		config: config,
	}

	if err := store.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the collection with schema if it doesn't exist
func (m *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if has {
		return nil
	}

	// Schema for course-material chunk embeddings. uid is the chunk key
	// "<filename>_p<page>_c<chunk>".
	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:     "uid",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "filename",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "page",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "chunk_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "chunk_type",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16",
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.config.Dimension),
				},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}

	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Insert adds chunk records to Milvus
func (m *MilvusStore) Insert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}

	uids := make([]string, len(records))
	filenames := make([]string, len(records))
	pages := make([]int64, len(records))
	chunkIDs := make([]int64, len(records))
	chunkTypes := make([]string, len(records))
	contents := make([]string, len(records))
	embeddings := make([][]float32, len(records))

	for i, rec := range records {
		if len(rec.Embedding) != m.config.Dimension {
			return fmt.Errorf("%w: expected %d, got %d for %s",
				ErrInvalidDimension, m.config.Dimension, len(rec.Embedding), rec.UID())
		}
		uids[i] = rec.UID()
		filenames[i] = rec.Filename
		pages[i] = int64(rec.Page)
		chunkIDs[i] = int64(rec.ChunkID)
		chunkTypes[i] = string(rec.ChunkType)
		contents[i] = rec.Content
		embeddings[i] = rec.Embedding
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("uid", uids),
		entity.NewColumnVarChar("filename", filenames),
		entity.NewColumnInt64("page", pages),
		entity.NewColumnInt64("chunk_id", chunkIDs),
		entity.NewColumnVarChar("chunk_type", chunkTypes),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	return nil
}

// Flush ensures all pending data is persisted
func (m *MilvusStore) Flush(ctx context.Context) error {
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}
	return nil
}

// Search performs top-K similarity search
func (m *MilvusStore) Search(ctx context.Context, queryVector []float32, topK int) ([]Passage, error) {
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(queryVector))
	}

	sp, err := entity.NewIndexHNSWSearchParam(64) // ef parameter for search
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	vectors := []entity.Vector{entity.FloatVector(queryVector)}
	outputFields := []string{"filename", "page", "chunk_type", "content"}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		"",
		outputFields,
		vectors,
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if len(results) == 0 {
		return []Passage{}, nil
	}

	passages := make([]Passage, 0, results[0].ResultCount)

	for i := 0; i < results[0].ResultCount; i++ {
		p := Passage{
			Score: results[0].Scores[i],
		}

		for _, field := range results[0].Fields {
			switch field.Name() {
			case "filename":
				p.Filename = field.(*entity.ColumnVarChar).Data()[i]
			case "page":
				p.Page = int(field.(*entity.ColumnInt64).Data()[i])
			case "chunk_type":
				p.ChunkType = ChunkType(field.(*entity.ColumnVarChar).Data()[i])
			case "content":
				p.Content = field.(*entity.ColumnVarChar).Data()[i]
			}
		}

		passages = append(passages, p)
	}

	return passages, nil
}

// Query reports which chunk UIDs exist in the store
func (m *MilvusStore) Query(ctx context.Context, uids []string) (map[string]bool, error) {
	existenceMap := make(map[string]bool, len(uids))
	if len(uids) == 0 {
		return existenceMap, nil
	}
	for _, uid := range uids {
		existenceMap[uid] = false
	}

	expr := fmt.Sprintf(`uid == "%s"`, uids[0])
	for i := 1; i < len(uids); i++ {
		expr = fmt.Sprintf(`%s or uid == "%s"`, expr, uids[i])
	}

	results, err := m.client.Query(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		expr,
		[]string{"uid"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	for _, column := range results {
		if column.Name() == "uid" {
			if varcharCol, ok := column.(*entity.ColumnVarChar); ok {
				for _, uid := range varcharCol.Data() {
					existenceMap[uid] = true
				}
			}
		}
	}

	return existenceMap, nil
}

// Delete removes records by chunk UIDs
func (m *MilvusStore) Delete(ctx context.Context, uids []string) error {
	if len(uids) == 0 {
		return nil
	}

	expr := fmt.Sprintf(`uid == "%s"`, uids[0])
	for i := 1; i < len(uids); i++ {
		expr = fmt.Sprintf(`%s or uid == "%s"`, expr, uids[i])
	}

	if err := m.client.Delete(ctx, m.config.CollectionName, "", expr); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}

	return nil
}

// Clear drops the collection and recreates it empty
func (m *MilvusStore) Clear(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		if err := m.client.DropCollection(ctx, m.config.CollectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	return m.ensureCollection(ctx)
}

// Count returns the number of indexed chunks
func (m *MilvusStore) Count(ctx context.Context) (int64, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.config.CollectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to get stats: %w", err)
	}

	var count int64
	fmt.Sscanf(stats["row_count"], "%d", &count)
	return count, nil
}

// Close releases resources and closes the Milvus connection
func (m *MilvusStore) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
