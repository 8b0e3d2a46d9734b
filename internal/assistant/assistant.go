package assistant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hjh12035/NLP-Proj2/internal/rag"
)

// Retriever is the retrieval dependency of the assistant. It degrades to an
// empty result instead of failing, matching rag.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) []rag.Passage
}

// Config holds the models and limits for one assistant instance.
type Config struct {
	// MainModel generates answers, quiz questions and outlines.
	MainModel string

	// FastModel handles intent classification and query expansion.
	FastModel string

	// TopK is how many passages a conversational turn retrieves.
	TopK int

	// WindowCapacity bounds the retrieved-context window (0 = default).
	WindowCapacity int
}

// answer generation parameters, tuned for a patient teaching register
const (
	answerTemperature = 0.7
	answerMaxTokens   = 1500
)

// Assistant orchestrates one conversation session: it owns the context
// window and sequences classification, retrieval, window update, context
// formatting and answer generation for each turn. One Assistant serves one
// session; windows are never shared across sessions. Turns within a
// session are serialized by the caller.
type Assistant struct {
	llm        LLM
	retriever  Retriever
	classifier *Classifier
	config     Config
	logger     *zap.Logger

	window Window
}

// New creates an assistant session.
func New(llm LLM, retriever Retriever, config Config, logger *zap.Logger) (*Assistant, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: llm cannot be nil", ErrInvalidConfig)
	}
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever cannot be nil", ErrInvalidConfig)
	}
	if config.MainModel == "" || config.FastModel == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}
	if config.TopK <= 0 {
		config.TopK = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	classifier, err := NewClassifier(llm, config.FastModel, logger)
	if err != nil {
		return nil, err
	}

	return &Assistant{
		llm:        llm,
		retriever:  retriever,
		classifier: classifier,
		config:     config,
		logger:     logger.Named("assistant"),
		window:     NewWindow(config.WindowCapacity),
	}, nil
}

// Response is the result of one conversational turn.
type Response struct {
	// Answer is the generated reply. Empty in streaming mode, where the
	// text arrives over the Stream instead.
	Answer string `json:"answer"`

	// Intent and RewrittenQuery report how the turn was interpreted.
	Intent         Intent `json:"intent"`
	RewrittenQuery string `json:"rewritten_query"`

	// Sources are the passages in scope when the answer was generated,
	// oldest first.
	Sources []rag.Passage `json:"sources"`
}

// prepare runs the pre-generation pipeline for a turn: reset the window
// for fresh conversations, classify, conditionally retrieve, update the
// window, and assemble the chat messages for the model.
func (a *Assistant) prepare(ctx context.Context, query string, history []Message) ([]Message, Response) {
	if len(history) == 0 {
		a.window = a.window.Reset()
	}

	classification := a.classifier.Classify(ctx, query, history)

	var retrieved []rag.Passage
	if classification.Intent != IntentChitChat {
		retrieved = a.retriever.Retrieve(ctx, classification.RewrittenQuery, a.config.TopK)
	}

	a.window = a.window.Update(retrieved, classification.Intent)
	sources := a.window.Passages()

	a.logger.Debug("prepared turn",
		zap.String("intent", string(classification.Intent)),
		zap.Int("retrieved", len(retrieved)),
		zap.Int("window", len(sources)))

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{
		Role:    RoleUser,
		Content: buildAnswerPrompt(query, FormatContext(sources)),
	})

	return messages, Response{
		Intent:         classification.Intent,
		RewrittenQuery: classification.RewrittenQuery,
		Sources:        sources,
	}
}

// Answer runs one conversational turn and returns the full reply. A
// generation failure never propagates: the returned answer carries a
// user-visible error message instead.
func (a *Assistant) Answer(ctx context.Context, query string, history []Message) Response {
	messages, resp := a.prepare(ctx, query, history)

	answer, err := a.llm.Complete(ctx, messages, CompletionOptions{
		Model:       a.config.MainModel,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		a.logger.Error("answer generation failed", zap.Error(err))
		answer = fmt.Sprintf("生成回答时出错: %v", err)
	}

	resp.Answer = answer
	return resp
}

// AnswerStream runs one conversational turn in streaming mode. The reply
// arrives as fragments over the returned Stream; the Response carries the
// turn metadata. If the stream cannot be started, the substituted error
// message is delivered as the only fragment.
func (a *Assistant) AnswerStream(ctx context.Context, query string, history []Message) (*Stream, Response) {
	messages, resp := a.prepare(ctx, query, history)

	stream, err := a.llm.CompleteStream(ctx, messages, CompletionOptions{
		Model:       a.config.MainModel,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		a.logger.Error("streaming answer failed to start", zap.Error(err))
		fragments := make(chan string, 1)
		fragments <- fmt.Sprintf("生成回答时出错: %v", err)
		close(fragments)
		return &Stream{Fragments: fragments}, resp
	}

	return stream, resp
}
