package assistant

import (
	"context"
)

// MockLLM is a deterministic LLM implementation for testing.
// Responses are served in order from Responses, or produced by RespondFunc
// when set. Calls records every request for later inspection.
type MockLLM struct {
	// Responses are returned one per call, in order. When exhausted the
	// last response repeats.
	Responses []string

	// RespondFunc, if set, overrides Responses entirely.
	RespondFunc func(messages []Message, opts CompletionOptions) (string, error)

	// Error, if set, is returned by every call instead of a response.
	Error error

	// Calls records the messages and options of every request.
	Calls []MockCall

	next int
}

// MockCall is one recorded request to the mock.
type MockCall struct {
	Messages []Message
	Opts     CompletionOptions
}

// NewMockLLM creates a mock that returns the given responses in order.
func NewMockLLM(responses ...string) *MockLLM {
	return &MockLLM{Responses: responses}
}

// NewMockLLMWithError creates a mock that always fails.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

func (m *MockLLM) respond(messages []Message, opts CompletionOptions) (string, error) {
	m.Calls = append(m.Calls, MockCall{Messages: messages, Opts: opts})

	if m.Error != nil {
		return "", m.Error
	}
	if m.RespondFunc != nil {
		return m.RespondFunc(messages, opts)
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	resp := m.Responses[min(m.next, len(m.Responses)-1)]
	m.next++
	return resp, nil
}

// Complete returns the next configured response.
func (m *MockLLM) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	return m.respond(messages, opts)
}

// CompleteStream splits the next configured response into rune fragments.
func (m *MockLLM) CompleteStream(ctx context.Context, messages []Message, opts CompletionOptions) (*Stream, error) {
	resp, err := m.respond(messages, opts)
	if err != nil {
		return nil, err
	}

	fragments := make(chan string)
	var streamErr error
	go func() {
		defer close(fragments)
		for _, r := range resp {
			select {
			case fragments <- string(r):
			case <-ctx.Done():
				streamErr = ctx.Err()
				return
			}
		}
	}()

	return &Stream{Fragments: fragments, err: &streamErr}, nil
}
