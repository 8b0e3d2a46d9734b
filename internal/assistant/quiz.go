package assistant

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// QuizQuestion is one generated test item.
type QuizQuestion struct {
	ID          int      `json:"id"`
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Source      string   `json:"source"`
}

const (
	// derivedTopK is the retrieval depth for quiz and outline generation.
	derivedTopK = 3

	// quizWorkers bounds concurrent per-question generations.
	quizWorkers = 5
)

// expandQuery turns a short topic into a richer retrieval query using the
// fast model. Failures degrade to the original topic.
func (a *Assistant) expandQuery(ctx context.Context, topic string) string {
	expanded, err := a.llm.Complete(ctx, []Message{
		{Role: RoleSystem, Content: expansionSystemPrompt},
		{Role: RoleUser, Content: topic},
	}, CompletionOptions{
		Model:       a.config.FastModel,
		Temperature: 0.1,
	})
	if err != nil || expanded == "" {
		if err != nil {
			a.logger.Warn("query expansion failed, using topic as-is", zap.Error(err))
		}
		return topic
	}
	return expanded
}

// GenerateQuiz retrieves course material for the topic once, then generates
// count questions as independent model calls over a bounded worker pool.
// Failed items are dropped and the survivors renumbered contiguously, so a
// partial failure shrinks the quiz instead of aborting it.
func (a *Assistant) GenerateQuiz(ctx context.Context, topic, difficulty, questionType string, count int) []QuizQuestion {
	if count <= 0 {
		return []QuizQuestion{}
	}

	query := a.expandQuery(ctx, topic)
	passages := a.retriever.Retrieve(ctx, query, derivedTopK)
	material := FormatContext(passages)

	results := make([]*QuizQuestion, count)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(quizWorkers)

	for i := 0; i < count; i++ {
		g.Go(func() error {
			q, err := a.generateQuestion(gctx, topic, difficulty, questionType, material, i+1)
			if err != nil {
				a.logger.Warn("quiz question generation failed, dropping item",
					zap.Int("item", i+1), zap.Error(err))
				return nil
			}
			mu.Lock()
			results[i] = q
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	questions := make([]QuizQuestion, 0, count)
	for _, q := range results {
		if q == nil {
			continue
		}
		q.ID = len(questions) + 1
		questions = append(questions, *q)
	}

	a.logger.Info("generated quiz",
		zap.String("topic", topic),
		zap.Int("requested", count),
		zap.Int("generated", len(questions)))

	return questions
}

// generateQuestion produces a single question. Structured output is
// requested first; if the provider rejects it, one retry goes out without
// the response format constraint.
func (a *Assistant) generateQuestion(ctx context.Context, topic, difficulty, questionType, material string, id int) (*QuizQuestion, error) {
	messages := []Message{
		{Role: RoleSystem, Content: quizSystemPrompt},
		{Role: RoleUser, Content: buildQuizPrompt(topic, difficulty, questionType, material, id)},
	}
	opts := CompletionOptions{
		Model:       a.config.MainModel,
		Temperature: 0.7,
		JSONObject:  true,
	}

	raw, err := a.llm.Complete(ctx, messages, opts)
	if err != nil {
		opts.JSONObject = false
		raw, err = a.llm.Complete(ctx, messages, opts)
		if err != nil {
			return nil, err
		}
	}

	return parseQuizQuestion(raw)
}

func parseQuizQuestion(raw string) (*QuizQuestion, error) {
	raw = stripJSONFence(raw)

	var payload struct {
		Questions []QuizQuestion `json:"questions"`
	}
	err := json.Unmarshal([]byte(raw), &payload)
	if err != nil || len(payload.Questions) == 0 {
		// Some models return a bare question object instead of the
		// wrapped list.
		var single QuizQuestion
		if err2 := json.Unmarshal([]byte(raw), &single); err2 != nil || single.Question == "" {
			if err == nil {
				err = ErrLLMFailed
			}
			return nil, err
		}
		payload.Questions = []QuizQuestion{single}
	}

	q := payload.Questions[0]
	if q.Options == nil {
		q.Options = []string{}
	}
	return &q, nil
}
