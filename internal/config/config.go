// Package config loads assistant configuration from defaults, an optional
// JSON overlay file, and environment variables, in that order of precedence
// (environment wins).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every tunable for the course assistant.
type Config struct {
	// OpenAI-compatible endpoint settings. BaseURL may point at any
	// compatible provider (e.g. DashScope's compatible-mode endpoint).
	APIKey  string `json:"OPENAI_API_KEY"`
	BaseURL string `json:"OPENAI_API_BASE"`

	// Model is used for answer/quiz/outline generation; FastModel is a
	// cheaper model used for intent classification and query expansion.
	Model          string `json:"MODEL_NAME"`
	FastModel      string `json:"FAST_MODEL_NAME"`
	EmbeddingModel string `json:"OPENAI_EMBEDDING_MODEL"`
	EmbeddingDim   int    `json:"EMBEDDING_DIMENSION"`

	DataDir string `json:"DATA_DIR"`

	MilvusAddress  string `json:"MILVUS_ADDRESS"`
	CollectionName string `json:"COLLECTION_NAME"`

	// ExtractorURL points at the document extraction sidecar used for
	// PDF, PPTX and DOCX parsing plus image OCR.
	ExtractorURL string `json:"EXTRACTOR_URL"`

	ChunkSize    int `json:"CHUNK_SIZE"`
	ChunkOverlap int `json:"CHUNK_OVERLAP"`
	MaxTokens    int `json:"MAX_TOKENS"`
	TopK         int `json:"TOP_K"`

	// WindowCapacity bounds the conversational context window.
	WindowCapacity int `json:"WINDOW_CAPACITY"`

	ListenAddr string `json:"LISTEN_ADDR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:        "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:          "qwen3-max",
		FastModel:      "qwen-flash",
		EmbeddingModel: "text-embedding-v2",
		EmbeddingDim:   1536,
		DataDir:        "./data",
		MilvusAddress:  "localhost:19530",
		CollectionName: "nlp_course_rag",
		ExtractorURL:   "http://localhost:8081",
		ChunkSize:      500,
		ChunkOverlap:   50,
		MaxTokens:      4096,
		TopK:           10,
		WindowCapacity: 15,
		ListenAddr:     ":8000",
	}
}

// Load builds a Config from defaults, then the JSON overlay at path (if it
// exists), then environment variables. A missing overlay file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.APIKey, "OPENAI_API_KEY")
	setString(&c.BaseURL, "OPENAI_API_BASE")
	setString(&c.Model, "MODEL_NAME")
	setString(&c.FastModel, "FAST_MODEL_NAME")
	setString(&c.EmbeddingModel, "OPENAI_EMBEDDING_MODEL")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.MilvusAddress, "MILVUS_ADDRESS")
	setString(&c.CollectionName, "MILVUS_COLLECTION")
	setString(&c.ExtractorURL, "EXTRACTOR_URL")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setInt(&c.EmbeddingDim, "EMBEDDING_DIMENSION")
	setInt(&c.ChunkSize, "CHUNK_SIZE")
	setInt(&c.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&c.MaxTokens, "MAX_TOKENS")
	setInt(&c.TopK, "TOP_K")
	setInt(&c.WindowCapacity, "WINDOW_CAPACITY")
}

// Validate checks that the configuration is internally consistent. It does
// not require an API key: commands that never call the model (e.g. purely
// local ingestion dry runs) should still be able to load config.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidConfig)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive, got %d", ErrInvalidConfig, c.EmbeddingDim)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, chunk size)", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.WindowCapacity <= 0 {
		return fmt.Errorf("%w: window capacity must be positive, got %d", ErrInvalidConfig, c.WindowCapacity)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
