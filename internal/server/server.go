// Package server exposes the assistant over HTTP: chat with optional SSE
// streaming, quiz and outline generation, and knowledge-base rebuilds.
// Each chat session gets its own assistant instance so context windows
// never leak across sessions.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hjh12035/NLP-Proj2/internal/assistant"
)

// Agent is the per-session assistant surface the server drives.
// *assistant.Assistant satisfies it.
type Agent interface {
	Answer(ctx context.Context, query string, history []assistant.Message) assistant.Response
	AnswerStream(ctx context.Context, query string, history []assistant.Message) (*assistant.Stream, assistant.Response)
	GenerateQuiz(ctx context.Context, topic, difficulty, questionType string, count int) []assistant.QuizQuestion
	GenerateOutline(ctx context.Context, topic string) (string, error)
	GenerateOutlineStream(ctx context.Context, topic string) (*assistant.Stream, error)
}

// Config wires the server's collaborators.
type Config struct {
	// Addr is the listen address (e.g., ":8000").
	Addr string

	// NewAgent builds a fresh assistant for a new session.
	NewAgent func() (Agent, error)

	// BuildKB rebuilds the knowledge base and returns the number of
	// chunks indexed. Optional; when nil the endpoint reports an error.
	BuildKB func(ctx context.Context) (int, error)
}

// session serializes turns for one conversation.
type session struct {
	mu    sync.Mutex
	agent Agent
}

// Server routes HTTP requests to per-session assistants.
type Server struct {
	config Config
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// New creates a server.
func New(config Config, logger *zap.Logger) (*Server, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("listen address cannot be empty")
	}
	if config.NewAgent == nil {
		return nil, fmt.Errorf("agent factory cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		config:   config,
		logger:   logger.Named("server"),
		sessions: make(map[string]*session),
	}, nil
}

// Handler builds the route table with logging and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /quiz", s.handleQuiz)
	mux.HandleFunc("POST /outline", s.handleOutline)
	mux.HandleFunc("POST /build-kb", s.handleBuildKB)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.config.Addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Streaming responses stay open well past a normal request.
		WriteTimeout: 300 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("listening", zap.String("addr", s.config.Addr))
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// getSession returns the session for id, creating one (with a fresh id)
// when id is empty or unknown.
func (s *Server) getSession(id string) (string, *session, error) {
	if id != "" {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			return id, sess, nil
		}
	}

	agent, err := s.config.NewAgent()
	if err != nil {
		return "", nil, err
	}

	if id == "" {
		id = uuid.NewString()
	}
	sess := &session{agent: agent}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return id, sess, nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
