package assistant

import (
	"context"
	"fmt"
)

const outlineMaxTokens = 2000

// GenerateOutline retrieves course material for the topic and produces a
// Markdown study outline in one model call.
func (a *Assistant) GenerateOutline(ctx context.Context, topic string) (string, error) {
	messages := a.outlineMessages(ctx, topic)

	outline, err := a.llm.Complete(ctx, messages, CompletionOptions{
		Model:       a.config.MainModel,
		Temperature: 0.7,
		MaxTokens:   outlineMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("outline generation failed: %w", err)
	}
	return outline, nil
}

// GenerateOutlineStream is the streaming variant of GenerateOutline.
func (a *Assistant) GenerateOutlineStream(ctx context.Context, topic string) (*Stream, error) {
	messages := a.outlineMessages(ctx, topic)

	stream, err := a.llm.CompleteStream(ctx, messages, CompletionOptions{
		Model:       a.config.MainModel,
		Temperature: 0.7,
		MaxTokens:   outlineMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}
	return stream, nil
}

func (a *Assistant) outlineMessages(ctx context.Context, topic string) []Message {
	query := a.expandQuery(ctx, topic)
	passages := a.retriever.Retrieve(ctx, query, derivedTopK)

	return []Message{
		{Role: RoleSystem, Content: outlineSystemPrompt},
		{Role: RoleUser, Content: buildOutlinePrompt(topic, FormatContext(passages))},
	}
}
