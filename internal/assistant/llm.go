// Package assistant implements the conversational course assistant: intent
// classification, query rewriting, the retrieved-context window, answer
// generation with streaming, and quiz and outline generation. It defines a
// provider-agnostic LLM interface with a concrete OpenAI-compatible
// implementation and deterministic mocks for testing.
package assistant

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid assistant configuration")
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a chat transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions holds per-request parameters. The assistant runs two
// models through a single client: the main model for answers and a fast
// model for classification and query expansion, so the model name travels
// with the request rather than the client.
type CompletionOptions struct {
	// Model specifies the model identifier (e.g., "qwen3-max", "qwen-flash")
	Model string

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float32

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// JSONObject requests a JSON-object response format from the provider.
	JSONObject bool
}

// LLM defines the interface for interacting with chat language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Complete produces a full response for the conversation.
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)

	// CompleteStream produces the response incrementally. The returned
	// channel yields text fragments in order and is closed when the
	// response is complete or the context is cancelled. After the channel
	// closes, Err reports any failure that interrupted the stream.
	CompleteStream(ctx context.Context, messages []Message, opts CompletionOptions) (*Stream, error)
}

// Stream delivers an in-progress model response fragment by fragment.
type Stream struct {
	// Fragments yields response text in arrival order. Receive until closed.
	Fragments <-chan string

	err *error
}

// Err reports the failure that terminated the stream, if any. Only valid
// after Fragments has been closed.
func (s *Stream) Err() error {
	if s.err == nil {
		return nil
	}
	return *s.err
}
