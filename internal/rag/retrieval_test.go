package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// mockEmbedder implements Embedder for testing
type mockEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float32, error)
	dimension int
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, m.dimension)
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimension() int {
	return m.dimension
}

// mockVectorStore implements VectorStore for testing
type mockVectorStore struct {
	insertFunc func(ctx context.Context, records []ChunkRecord) error
	searchFunc func(ctx context.Context, queryVector []float32, topK int) ([]Passage, error)
	queryFunc  func(ctx context.Context, uids []string) (map[string]bool, error)
	deleteFunc func(ctx context.Context, uids []string) error
}

func (m *mockVectorStore) Insert(ctx context.Context, records []ChunkRecord) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, records)
	}
	return nil
}

func (m *mockVectorStore) Flush(ctx context.Context) error { return nil }

func (m *mockVectorStore) Search(ctx context.Context, queryVector []float32, topK int) ([]Passage, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, queryVector, topK)
	}
	return []Passage{}, nil
}

func (m *mockVectorStore) Query(ctx context.Context, uids []string) (map[string]bool, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, uids)
	}
	existence := make(map[string]bool, len(uids))
	for _, uid := range uids {
		existence[uid] = false
	}
	return existence, nil
}

func (m *mockVectorStore) Delete(ctx context.Context, uids []string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, uids)
	}
	return nil
}

func (m *mockVectorStore) Clear(ctx context.Context) error    { return nil }
func (m *mockVectorStore) Count(ctx context.Context) (int64, error) { return 0, nil }
func (m *mockVectorStore) Close() error                       { return nil }

func TestNewRetriever(t *testing.T) {
	embedder := &mockEmbedder{dimension: 4}
	store := &mockVectorStore{}

	t.Run("valid construction", func(t *testing.T) {
		r, err := NewRetriever(embedder, store, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r == nil {
			t.Fatal("expected non-nil retriever")
		}
	})

	t.Run("nil embedder", func(t *testing.T) {
		if _, err := NewRetriever(nil, store, nil); err == nil {
			t.Fatal("expected error for nil embedder")
		}
	})

	t.Run("nil vector store", func(t *testing.T) {
		if _, err := NewRetriever(embedder, nil, nil); err == nil {
			t.Fatal("expected error for nil vector store")
		}
	})
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns passages in store order", func(t *testing.T) {
		embedder := &mockEmbedder{dimension: 4}
		store := &mockVectorStore{
			searchFunc: func(ctx context.Context, queryVector []float32, topK int) ([]Passage, error) {
				return []Passage{
					{Content: "词向量是词的稠密表示", Filename: "lecture3.pdf", Page: 12, Score: 0.91},
					{Content: "one-hot 表示的问题", Filename: "lecture3.pdf", Page: 10, Score: 0.84},
				}, nil
			},
		}

		r, err := NewRetriever(embedder, store, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		passages := r.Retrieve(ctx, "什么是词向量？", 10)
		if len(passages) != 2 {
			t.Fatalf("expected 2 passages, got %d", len(passages))
		}
		if passages[0].Score < passages[1].Score {
			t.Error("expected passages in descending similarity order")
		}
		if passages[0].Filename != "lecture3.pdf" {
			t.Errorf("expected filename lecture3.pdf, got %s", passages[0].Filename)
		}
	})

	t.Run("embedding failure degrades to empty", func(t *testing.T) {
		embedder := &mockEmbedder{
			embedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
				return nil, errors.New("api unavailable")
			},
		}
		store := &mockVectorStore{
			searchFunc: func(ctx context.Context, queryVector []float32, topK int) ([]Passage, error) {
				t.Fatal("search should not be called when embedding fails")
				return nil, nil
			},
		}

		r, _ := NewRetriever(embedder, store, nil)
		passages := r.Retrieve(ctx, "什么是词向量？", 10)
		if passages == nil {
			t.Fatal("expected non-nil empty slice")
		}
		if len(passages) != 0 {
			t.Fatalf("expected empty result, got %d passages", len(passages))
		}
	})

	t.Run("search failure degrades to empty", func(t *testing.T) {
		embedder := &mockEmbedder{dimension: 4}
		store := &mockVectorStore{
			searchFunc: func(ctx context.Context, queryVector []float32, topK int) ([]Passage, error) {
				return nil, ErrSearchFailed
			},
		}

		r, _ := NewRetriever(embedder, store, nil)
		passages := r.Retrieve(ctx, "什么是词向量？", 10)
		if len(passages) != 0 {
			t.Fatalf("expected empty result, got %d passages", len(passages))
		}
	})

	t.Run("empty query short-circuits", func(t *testing.T) {
		called := false
		embedder := &mockEmbedder{
			embedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
				called = true
				return nil, nil
			},
		}
		r, _ := NewRetriever(embedder, &mockVectorStore{}, nil)

		if got := r.Retrieve(ctx, "", 10); len(got) != 0 {
			t.Fatalf("expected empty result, got %d", len(got))
		}
		if called {
			t.Error("embedder should not be called for empty query")
		}
	})
}

func TestRetrieveTopK(t *testing.T) {
	embedder := &mockEmbedder{dimension: 4}

	var gotTopK int
	store := &mockVectorStore{
		searchFunc: func(ctx context.Context, queryVector []float32, topK int) ([]Passage, error) {
			gotTopK = topK
			passages := make([]Passage, topK)
			for i := range passages {
				passages[i] = Passage{Content: fmt.Sprintf("chunk %d", i)}
			}
			return passages, nil
		},
	}

	r, _ := NewRetriever(embedder, store, nil)
	passages := r.Retrieve(context.Background(), "注意力机制", 3)

	if gotTopK != 3 {
		t.Errorf("expected store to receive topK=3, got %d", gotTopK)
	}
	if len(passages) != 3 {
		t.Errorf("expected 3 passages, got %d", len(passages))
	}
}
