package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Intent labels how a new question relates to the conversation so far.
// The set is closed: the window update policy switches exhaustively over it.
type Intent string

const (
	// IntentDrillDown is a follow-up on the current topic, usually with
	// pronouns that need resolving against the history.
	IntentDrillDown Intent = "DRILL_DOWN"

	// IntentTopicShift moves to a related but distinct topic.
	IntentTopicShift Intent = "TOPIC_SHIFT"

	// IntentNewTopic is unrelated to the history and resets the context.
	IntentNewTopic Intent = "NEW_TOPIC"

	// IntentClarification corrects or restates an earlier question.
	IntentClarification Intent = "CLARIFICATION"

	// IntentSummarization asks to review or recap discussed material.
	IntentSummarization Intent = "SUMMARIZATION"

	// IntentChitChat is social conversation that needs no retrieval.
	IntentChitChat Intent = "CHIT_CHAT"
)

// ParseIntent maps a model-produced label onto the closed intent set.
// Unknown labels report ok=false so callers can apply the safe default.
func ParseIntent(label string) (Intent, bool) {
	switch Intent(strings.ToUpper(strings.TrimSpace(label))) {
	case IntentDrillDown:
		return IntentDrillDown, true
	case IntentTopicShift:
		return IntentTopicShift, true
	case IntentNewTopic:
		return IntentNewTopic, true
	case IntentClarification:
		return IntentClarification, true
	case IntentSummarization:
		return IntentSummarization, true
	case IntentChitChat:
		return IntentChitChat, true
	}
	return "", false
}

// Classification is the per-turn result of intent analysis: the intent
// label plus a self-contained rewrite of the question suitable for
// retrieval without the conversation history.
type Classification struct {
	Intent         Intent `json:"intent"`
	RewrittenQuery string `json:"rewritten_query"`
}

// classifierHistoryTurns bounds how much history the classifier sees.
// Four messages cover the last two question/answer exchanges.
const classifierHistoryTurns = 4

// Classifier determines conversational intent using a fast model.
type Classifier struct {
	llm    LLM
	model  string
	logger *zap.Logger
}

// NewClassifier creates a classifier backed by the given fast model.
func NewClassifier(llm LLM, model string, logger *zap.Logger) (*Classifier, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: llm cannot be nil", ErrInvalidConfig)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: missing classifier model name", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{llm: llm, model: model, logger: logger.Named("classifier")}, nil
}

// Classify labels the query against the recent history and rewrites it to
// be self-contained. An empty history deterministically yields
// {NEW_TOPIC, query} without calling the model. Any model or parse failure
// degrades to the same safe default so a turn is never blocked.
func (c *Classifier) Classify(ctx context.Context, query string, history []Message) Classification {
	fallback := Classification{Intent: IntentNewTopic, RewrittenQuery: query}

	if len(history) == 0 {
		return fallback
	}

	recent := history
	if len(recent) > classifierHistoryTurns {
		recent = recent[len(recent)-classifierHistoryTurns:]
	}

	messages := []Message{
		{Role: RoleSystem, Content: classifierSystemPrompt},
		{Role: RoleUser, Content: buildClassifierPrompt(query, recent)},
	}
	opts := CompletionOptions{
		Model:       c.model,
		Temperature: 0.1,
		JSONObject:  true,
	}

	raw, err := c.llm.Complete(ctx, messages, opts)
	if err != nil {
		// Some providers reject response_format; retry once without it.
		opts.JSONObject = false
		raw, err = c.llm.Complete(ctx, messages, opts)
		if err != nil {
			c.logger.Warn("intent classification failed, defaulting to new topic",
				zap.Error(err))
			return fallback
		}
	}

	result, ok := parseClassification(raw)
	if !ok {
		c.logger.Warn("unparsable classification output, defaulting to new topic",
			zap.String("raw", raw))
		return fallback
	}
	if result.RewrittenQuery == "" {
		result.RewrittenQuery = query
	}

	c.logger.Debug("classified query",
		zap.String("intent", string(result.Intent)),
		zap.String("rewritten", result.RewrittenQuery))

	return result
}

func parseClassification(raw string) (Classification, bool) {
	raw = stripJSONFence(raw)

	var decoded struct {
		Intent         string `json:"intent"`
		RewrittenQuery string `json:"rewritten_query"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return Classification{}, false
	}

	intent, ok := ParseIntent(decoded.Intent)
	if !ok {
		return Classification{}, false
	}

	return Classification{
		Intent:         intent,
		RewrittenQuery: strings.TrimSpace(decoded.RewrittenQuery),
	}, true
}

// stripJSONFence removes a Markdown code fence some models wrap around
// JSON output despite instructions.
func stripJSONFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
