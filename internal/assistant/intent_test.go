package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseIntent(t *testing.T) {
	cases := []struct {
		label string
		want  Intent
		ok    bool
	}{
		{"DRILL_DOWN", IntentDrillDown, true},
		{"TOPIC_SHIFT", IntentTopicShift, true},
		{"NEW_TOPIC", IntentNewTopic, true},
		{"CLARIFICATION", IntentClarification, true},
		{"SUMMARIZATION", IntentSummarization, true},
		{"CHIT_CHAT", IntentChitChat, true},
		{" drill_down ", IntentDrillDown, true},
		{"FOLLOW_UP", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseIntent(tc.label)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseIntent(%q) = (%q, %v), want (%q, %v)", tc.label, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClassifyBaseCase(t *testing.T) {
	// With no history, classification is deterministic and makes no model
	// call at all.
	mock := NewMockLLM(`{"intent": "DRILL_DOWN", "rewritten_query": "should not be used"}`)
	c, err := NewClassifier(mock, "qwen-flash", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := c.Classify(context.Background(), "什么是词向量？", nil)

	if got.Intent != IntentNewTopic {
		t.Errorf("expected NEW_TOPIC, got %s", got.Intent)
	}
	if got.RewrittenQuery != "什么是词向量？" {
		t.Errorf("expected original query passthrough, got %q", got.RewrittenQuery)
	}
	if len(mock.Calls) != 0 {
		t.Errorf("expected zero model calls, got %d", len(mock.Calls))
	}
}

func TestClassifyWithHistory(t *testing.T) {
	history := []Message{
		{Role: RoleUser, Content: "什么是词向量？"},
		{Role: RoleAssistant, Content: "词向量是将词映射为稠密向量的技术。"},
	}

	t.Run("parses intent and rewrite", func(t *testing.T) {
		mock := NewMockLLM(`{"intent": "DRILL_DOWN", "rewritten_query": "词向量是如何计算的？"}`)
		c, _ := NewClassifier(mock, "qwen-flash", nil)

		got := c.Classify(context.Background(), "它是如何计算的？", history)

		if got.Intent != IntentDrillDown {
			t.Errorf("expected DRILL_DOWN, got %s", got.Intent)
		}
		if got.RewrittenQuery != "词向量是如何计算的？" {
			t.Errorf("unexpected rewrite: %q", got.RewrittenQuery)
		}
		if len(mock.Calls) != 1 {
			t.Fatalf("expected one model call, got %d", len(mock.Calls))
		}
		if !mock.Calls[0].Opts.JSONObject {
			t.Error("expected JSON response format requested")
		}
		if mock.Calls[0].Opts.Model != "qwen-flash" {
			t.Errorf("expected fast model, got %s", mock.Calls[0].Opts.Model)
		}
	})

	t.Run("history bounded to last four messages", func(t *testing.T) {
		long := make([]Message, 0, 10)
		for i := 0; i < 5; i++ {
			long = append(long,
				Message{Role: RoleUser, Content: "问题" + string(rune('A'+i))},
				Message{Role: RoleAssistant, Content: "回答" + string(rune('A'+i))},
			)
		}

		mock := NewMockLLM(`{"intent": "TOPIC_SHIFT", "rewritten_query": "q"}`)
		c, _ := NewClassifier(mock, "qwen-flash", nil)
		c.Classify(context.Background(), "新问题", long)

		prompt := mock.Calls[0].Messages[1].Content
		if strings.Contains(prompt, "问题A") {
			t.Error("classifier prompt included history beyond the last 4 messages")
		}
		if !strings.Contains(prompt, "问题E") || !strings.Contains(prompt, "回答E") {
			t.Error("classifier prompt missing most recent exchange")
		}
	})

	t.Run("fenced JSON is tolerated", func(t *testing.T) {
		mock := NewMockLLM("```json\n{\"intent\": \"SUMMARIZATION\", \"rewritten_query\": \"总结词向量\"}\n```")
		c, _ := NewClassifier(mock, "qwen-flash", nil)

		got := c.Classify(context.Background(), "帮我总结一下", history)
		if got.Intent != IntentSummarization {
			t.Errorf("expected SUMMARIZATION, got %s", got.Intent)
		}
	})

	t.Run("model failure degrades to new topic", func(t *testing.T) {
		mock := NewMockLLMWithError(errors.New("timeout"))
		c, _ := NewClassifier(mock, "qwen-flash", nil)

		got := c.Classify(context.Background(), "它是如何计算的？", history)
		if got.Intent != IntentNewTopic {
			t.Errorf("expected NEW_TOPIC fallback, got %s", got.Intent)
		}
		if got.RewrittenQuery != "它是如何计算的？" {
			t.Errorf("expected query passthrough, got %q", got.RewrittenQuery)
		}
		// One structured attempt plus one unstructured retry.
		if len(mock.Calls) != 2 {
			t.Errorf("expected 2 attempts, got %d", len(mock.Calls))
		}
	})

	t.Run("unparsable output degrades to new topic", func(t *testing.T) {
		mock := NewMockLLM("我认为这是一个追问。")
		c, _ := NewClassifier(mock, "qwen-flash", nil)

		got := c.Classify(context.Background(), "它是如何计算的？", history)
		if got.Intent != IntentNewTopic {
			t.Errorf("expected NEW_TOPIC fallback, got %s", got.Intent)
		}
	})

	t.Run("unknown label degrades to new topic", func(t *testing.T) {
		mock := NewMockLLM(`{"intent": "FOLLOW_UP", "rewritten_query": "x"}`)
		c, _ := NewClassifier(mock, "qwen-flash", nil)

		got := c.Classify(context.Background(), "它是如何计算的？", history)
		if got.Intent != IntentNewTopic {
			t.Errorf("expected NEW_TOPIC fallback, got %s", got.Intent)
		}
	})

	t.Run("empty rewrite falls back to original query", func(t *testing.T) {
		mock := NewMockLLM(`{"intent": "DRILL_DOWN", "rewritten_query": ""}`)
		c, _ := NewClassifier(mock, "qwen-flash", nil)

		got := c.Classify(context.Background(), "它是如何计算的？", history)
		if got.RewrittenQuery != "它是如何计算的？" {
			t.Errorf("expected original query, got %q", got.RewrittenQuery)
		}
	})
}
