package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hjh12035/NLP-Proj2/internal/assistant"
	"github.com/hjh12035/NLP-Proj2/internal/rag"
)

// stubAgent implements Agent for testing
type stubAgent struct {
	answerFunc  func(ctx context.Context, query string, history []assistant.Message) assistant.Response
	quizFunc    func(ctx context.Context, topic, difficulty, questionType string, count int) []assistant.QuizQuestion
	outlineFunc func(ctx context.Context, topic string) (string, error)
}

func (a *stubAgent) Answer(ctx context.Context, query string, history []assistant.Message) assistant.Response {
	if a.answerFunc != nil {
		return a.answerFunc(ctx, query, history)
	}
	return assistant.Response{Answer: "stub answer", Intent: assistant.IntentNewTopic}
}

func (a *stubAgent) AnswerStream(ctx context.Context, query string, history []assistant.Message) (*assistant.Stream, assistant.Response) {
	resp := a.Answer(ctx, query, history)
	fragments := make(chan string, 2)
	fragments <- resp.Answer[:len(resp.Answer)/2]
	fragments <- resp.Answer[len(resp.Answer)/2:]
	close(fragments)
	resp.Answer = ""
	return &assistant.Stream{Fragments: fragments}, resp
}

func (a *stubAgent) GenerateQuiz(ctx context.Context, topic, difficulty, questionType string, count int) []assistant.QuizQuestion {
	if a.quizFunc != nil {
		return a.quizFunc(ctx, topic, difficulty, questionType, count)
	}
	return []assistant.QuizQuestion{}
}

func (a *stubAgent) GenerateOutline(ctx context.Context, topic string) (string, error) {
	if a.outlineFunc != nil {
		return a.outlineFunc(ctx, topic)
	}
	return "# 大纲", nil
}

func (a *stubAgent) GenerateOutlineStream(ctx context.Context, topic string) (*assistant.Stream, error) {
	outline, err := a.GenerateOutline(ctx, topic)
	if err != nil {
		return nil, err
	}
	fragments := make(chan string, 1)
	fragments <- outline
	close(fragments)
	return &assistant.Stream{Fragments: fragments}, nil
}

func newTestServer(t *testing.T, agent *stubAgent) *Server {
	t.Helper()
	s, err := New(Config{
		Addr:     ":0",
		NewAgent: func() (Agent, error) { return agent, nil },
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	t.Run("answers and assigns session id", func(t *testing.T) {
		agent := &stubAgent{
			answerFunc: func(ctx context.Context, query string, history []assistant.Message) assistant.Response {
				return assistant.Response{
					Answer: "词向量是稠密表示",
					Intent: assistant.IntentNewTopic,
					Sources: []rag.Passage{
						{Content: "c", Filename: "词向量.pdf", Page: 6},
					},
				}
			},
		}
		s := newTestServer(t, agent)

		rec := postJSON(t, s.Handler(), "/chat", map[string]any{"query": "什么是词向量？"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp chatResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response: %v", err)
		}
		if resp.SessionID == "" {
			t.Error("expected session id assigned")
		}
		if resp.Answer != "词向量是稠密表示" {
			t.Errorf("unexpected answer %q", resp.Answer)
		}
		if len(resp.Sources) != 1 {
			t.Errorf("expected 1 source, got %d", len(resp.Sources))
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		created := 0
		s, _ := New(Config{
			Addr: ":0",
			NewAgent: func() (Agent, error) {
				created++
				return &stubAgent{}, nil
			},
		}, nil)
		handler := s.Handler()

		rec1 := postJSON(t, handler, "/chat", map[string]any{"query": "q1"})
		var resp1 chatResponse
		json.Unmarshal(rec1.Body.Bytes(), &resp1)

		// Reusing the session id must not create a second agent.
		postJSON(t, handler, "/chat", map[string]any{"query": "q2", "session_id": resp1.SessionID})
		if created != 1 {
			t.Errorf("expected 1 agent for same session, got %d", created)
		}

		// A request without a session id gets a fresh agent.
		postJSON(t, handler, "/chat", map[string]any{"query": "q3"})
		if created != 2 {
			t.Errorf("expected new agent for new session, got %d", created)
		}
	})

	t.Run("missing query is rejected", func(t *testing.T) {
		s := newTestServer(t, &stubAgent{})
		rec := postJSON(t, s.Handler(), "/chat", map[string]any{})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("streaming emits SSE events", func(t *testing.T) {
		s := newTestServer(t, &stubAgent{})
		rec := postJSON(t, s.Handler(), "/chat", map[string]any{"query": "什么是词向量？", "stream": true})

		if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
			t.Fatalf("expected SSE content type, got %q", got)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `"session_id"`) {
			t.Error("missing metadata event")
		}
		if !strings.Contains(body, `"content"`) {
			t.Error("missing content events")
		}
		if !strings.Contains(body, `"done":true`) {
			t.Error("missing done marker")
		}
	})
}

func TestHandleQuiz(t *testing.T) {
	t.Run("returns generated questions", func(t *testing.T) {
		agent := &stubAgent{
			quizFunc: func(ctx context.Context, topic, difficulty, questionType string, count int) []assistant.QuizQuestion {
				qs := make([]assistant.QuizQuestion, count)
				for i := range qs {
					qs[i] = assistant.QuizQuestion{ID: i + 1, Type: questionType, Question: topic}
				}
				return qs
			},
		}
		s := newTestServer(t, agent)

		rec := postJSON(t, s.Handler(), "/quiz", map[string]any{"topic": "词向量", "count": 3})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Questions []assistant.QuizQuestion `json:"questions"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if len(resp.Questions) != 3 {
			t.Fatalf("expected 3 questions, got %d", len(resp.Questions))
		}
		// Defaults applied.
		if resp.Questions[0].Type != "选择题" {
			t.Errorf("expected default question type, got %q", resp.Questions[0].Type)
		}
	})

	t.Run("missing topic is rejected", func(t *testing.T) {
		s := newTestServer(t, &stubAgent{})
		rec := postJSON(t, s.Handler(), "/quiz", map[string]any{"count": 3})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleOutline(t *testing.T) {
	t.Run("returns outline", func(t *testing.T) {
		s := newTestServer(t, &stubAgent{
			outlineFunc: func(ctx context.Context, topic string) (string, error) {
				return "# " + topic, nil
			},
		})

		rec := postJSON(t, s.Handler(), "/outline", map[string]any{"topic": "词向量"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "# 词向量") {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("generation failure returns 500", func(t *testing.T) {
		s := newTestServer(t, &stubAgent{
			outlineFunc: func(ctx context.Context, topic string) (string, error) {
				return "", errors.New("unavailable")
			},
		})

		rec := postJSON(t, s.Handler(), "/outline", map[string]any{"topic": "词向量"})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestHandleBuildKB(t *testing.T) {
	t.Run("rebuilds and reports count", func(t *testing.T) {
		s, _ := New(Config{
			Addr:     ":0",
			NewAgent: func() (Agent, error) { return &stubAgent{}, nil },
			BuildKB: func(ctx context.Context) (int, error) {
				return 42, nil
			},
		}, nil)

		rec := postJSON(t, s.Handler(), "/build-kb", map[string]any{})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"chunks":42`) {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("unconfigured build reports unavailable", func(t *testing.T) {
		s := newTestServer(t, &stubAgent{})
		rec := postJSON(t, s.Handler(), "/build-kb", map[string]any{})
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &stubAgent{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}
