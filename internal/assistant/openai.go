package assistant

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAILLM implements the LLM interface against any OpenAI-compatible
// chat completions endpoint (OpenAI, DashScope, vLLM, ...).
type OpenAILLM struct {
	client openai.Client
}

// NewOpenAILLM creates an OpenAI-backed LLM implementation. baseURL may be
// empty to use the default OpenAI endpoint.
func NewOpenAILLM(apiKey, baseURL string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrInvalidConfig)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAILLM{client: openai.NewClient(opts...)}, nil
}

func buildParams(messages []Message, opts CompletionOptions) (openai.ChatCompletionNewParams, error) {
	if len(messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("%w: no messages provided", ErrInvalidConfig)
	}
	if opts.Model == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(opts.Model),
		Messages: converted,
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(float64(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.JSONObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	return params, nil
}

// Complete sends the conversation to the provider and returns the full
// response text.
func (o *OpenAILLM) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	params, err := buildParams(messages, opts)
	if err != nil {
		return "", err
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no response generated", ErrLLMFailed)
	}

	return completion.Choices[0].Message.Content, nil
}

// CompleteStream starts a streaming completion and forwards text deltas
// over the returned Stream's channel.
func (o *OpenAILLM) CompleteStream(ctx context.Context, messages []Message, opts CompletionOptions) (*Stream, error) {
	params, err := buildParams(messages, opts)
	if err != nil {
		return nil, err
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)

	fragments := make(chan string)
	var streamErr error

	go func() {
		defer close(fragments)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case fragments <- delta:
			case <-ctx.Done():
				streamErr = ctx.Err()
				return
			}
		}
		if err := stream.Err(); err != nil {
			streamErr = fmt.Errorf("%w: %w", ErrLLMFailed, err)
		}
	}()

	return &Stream{Fragments: fragments, err: &streamErr}, nil
}
