package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hjh12035/NLP-Proj2/internal/assistant"
)

type chatRequest struct {
	SessionID string              `json:"session_id"`
	Query     string              `json:"query"`
	History   []assistant.Message `json:"history"`
	Stream    bool                `json:"stream"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	assistant.Response
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	id, sess, err := s.getSession(req.SessionID)
	if err != nil {
		s.logger.Error("session creation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if req.Stream {
		s.streamChat(w, r, id, sess, req)
		return
	}

	resp := sess.agent.Answer(r.Context(), req.Query, req.History)
	writeJSON(w, http.StatusOK, chatResponse{SessionID: id, Response: resp})
}

// streamChat delivers the answer as SSE events: metadata first, then one
// event per fragment, then a done marker.
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, id string, sess *session, req chatRequest) {
	flusher, ok := beginSSE(w)
	if !ok {
		return
	}

	stream, resp := sess.agent.AnswerStream(r.Context(), req.Query, req.History)

	sendSSE(w, flusher, map[string]any{
		"session_id":      id,
		"intent":          resp.Intent,
		"rewritten_query": resp.RewrittenQuery,
		"sources":         resp.Sources,
	})

	for frag := range stream.Fragments {
		sendSSE(w, flusher, map[string]any{"content": frag})
	}
	if err := stream.Err(); err != nil {
		sendSSE(w, flusher, map[string]any{"error": err.Error(), "done": true})
		return
	}
	sendSSE(w, flusher, map[string]any{"done": true})
}

type quizRequest struct {
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	QuestionType string `json:"question_type"`
	Count        int    `json:"count"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Difficulty == "" {
		req.Difficulty = "中等"
	}
	if req.QuestionType == "" {
		req.QuestionType = "选择题"
	}

	// Quiz generation is stateless; a throwaway agent keeps it off any
	// chat session's window.
	agent, err := s.config.NewAgent()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	questions := agent.GenerateQuiz(r.Context(), req.Topic, req.Difficulty, req.QuestionType, req.Count)
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

type outlineRequest struct {
	Topic  string `json:"topic"`
	Stream bool   `json:"stream"`
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	var req outlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	agent, err := s.config.NewAgent()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	if req.Stream {
		flusher, ok := beginSSE(w)
		if !ok {
			return
		}
		stream, err := agent.GenerateOutlineStream(r.Context(), req.Topic)
		if err != nil {
			sendSSE(w, flusher, map[string]any{"error": err.Error(), "done": true})
			return
		}
		for frag := range stream.Fragments {
			sendSSE(w, flusher, map[string]any{"content": frag})
		}
		if err := stream.Err(); err != nil {
			sendSSE(w, flusher, map[string]any{"error": err.Error(), "done": true})
			return
		}
		sendSSE(w, flusher, map[string]any{"done": true})
		return
	}

	outline, err := agent.GenerateOutline(r.Context(), req.Topic)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outline": outline})
}

func (s *Server) handleBuildKB(w http.ResponseWriter, r *http.Request) {
	if s.config.BuildKB == nil {
		writeError(w, http.StatusServiceUnavailable, "knowledge base building not configured")
		return
	}

	count, err := s.config.BuildKB(r.Context())
	if err != nil {
		s.logger.Error("knowledge base build failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("构建知识库失败: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "知识库构建成功！",
		"chunks":  count,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func beginSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return flusher, true
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, data map[string]any) {
	payload, _ := json.Marshal(data)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
