package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/nbhq/notabene/internal/agent"
	"github.com/nbhq/notabene/internal/auth"
	"github.com/nbhq/notabene/internal/llm"
	"github.com/nbhq/notabene/internal/transcript"
)

type chatRequest struct {
	ChatID   string        `json:"chatId"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatDone struct {
	Response string           `json:"response"`
	Sources  []agent.Citation `json:"sources"`
	Steps    int              `json:"steps"`
}

type chatChunk struct {
	Text string `json:"text"`
}

type chatError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleChat runs one assistant turn and streams the answer over SSE.
// Events: "chunk" carries incremental text, "done" carries the final
// response with citations, "error" carries a failure after the stream
// already started.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}
	for _, m := range req.Messages {
		switch m.Role {
		case transcript.RoleUser, transcript.RoleAssistant, transcript.RoleSystem:
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown role %q", m.Role))
			return
		}
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != transcript.RoleUser || last.Content == "" {
		writeError(w, http.StatusBadRequest, "last message must be a non-empty user message")
		return
	}

	var chatID uuid.UUID
	if req.ChatID != "" {
		parsed, err := uuid.Parse(req.ChatID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "chatId must be a valid UUID")
			return
		}
		chatID = parsed
	}

	history, err := s.buildHistory(r, chatID, tenantID, req.Messages)
	if err != nil {
		s.logger.Error("loading chat history", "chatId", chatID, "error", err)
		writeError(w, http.StatusInternalServerError, "loading chat history")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	onChunk := func(text string) {
		if r.Context().Err() != nil {
			return
		}
		writeSSE(w, "chunk", chatChunk{Text: text})
		flusher.Flush()
	}

	result, err := s.agent.Run(r.Context(), history, tenantID, onChunk)
	if err != nil {
		s.logger.Error("agent turn failed", "chatId", chatID, "error", err)
		writeSSE(w, "error", chatError{Code: "agent_error", Message: "the assistant could not complete this turn"})
		flusher.Flush()
		return
	}

	if chatID != uuid.Nil && s.transcripts != nil {
		s.persistTurn(r, chatID, tenantID, last.Content, result)
	}

	writeSSE(w, "done", chatDone{
		Response: result.Answer,
		Sources:  result.Sources,
		Steps:    result.Steps,
	})
	flusher.Flush()
}

// buildHistory converts the wire messages to the model history, prepending
// any stored transcript when a chatId was supplied.
func (s *Server) buildHistory(r *http.Request, chatID uuid.UUID, tenantID string, wire []chatMessage) ([]llm.Message, error) {
	var history []llm.Message

	if chatID != uuid.Nil && s.transcripts != nil {
		stored, err := s.transcripts.History(r.Context(), chatID, tenantID)
		if err != nil {
			return nil, err
		}
		for _, m := range stored {
			history = append(history, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
		}
	}

	for _, m := range wire {
		history = append(history, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return history, nil
}

// persistTurn appends the user message and the assistant answer to the
// transcript. Failures are logged but do not fail the turn, which already
// streamed to the client.
func (s *Server) persistTurn(r *http.Request, chatID uuid.UUID, tenantID, userText string, result *agent.TurnResult) {
	ctx := r.Context()
	if err := s.transcripts.Append(ctx, transcript.Message{
		ChatID:   chatID,
		TenantID: tenantID,
		Role:     transcript.RoleUser,
		Content:  userText,
	}); err != nil {
		s.logger.Error("persisting user message", "chatId", chatID, "error", err)
		return
	}

	sources := make([]transcript.Source, 0, len(result.Sources))
	for _, c := range result.Sources {
		sources = append(sources, transcript.Source{Source: c.Source, Relevance: c.Relevance})
	}
	if err := s.transcripts.Append(ctx, transcript.Message{
		ChatID:   chatID,
		TenantID: tenantID,
		Role:     transcript.RoleAssistant,
		Content:  result.Answer,
		Sources:  sources,
	}); err != nil {
		s.logger.Error("persisting assistant message", "chatId", chatID, "error", err)
	}
}

// writeSSE emits one server-sent event with a JSON payload.
func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
