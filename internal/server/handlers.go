package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stridelabs/stride/internal/coach/loader"
	"github.com/stridelabs/stride/internal/coach/userctx"
	"github.com/stridelabs/stride/internal/logging"
	"github.com/stridelabs/stride/internal/markdown"
	"github.com/stridelabs/stride/internal/mcp"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// chatContextRequest is the body of POST /api/chat/context.
type chatContextRequest struct {
	ProfileID   string              `json:"profileId"`
	AgentIDs    []string            `json:"agentIds,omitempty"`
	Message     string              `json:"message"`
	Attachments []loader.Attachment `json:"attachments,omitempty"`
}

// chatContextResponse bundles the parallel load result with the
// rendered system prompt and the OpenAI-style tool array.
type chatContextResponse struct {
	*loader.Result
	SystemPrompt string         `json:"systemPrompt"`
	Tools        []mcp.ToolSpec `json:"tools"`
}

func (s *Server) handleChatContext(w http.ResponseWriter, r *http.Request) {
	var req chatContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProfileID == "" {
		writeError(w, http.StatusBadRequest, "profileId is required")
		return
	}

	result := s.loader.LoadContextParallel(r.Context(), loader.Options{
		ProfileID:   req.ProfileID,
		AgentIDs:    req.AgentIDs,
		Message:     req.Message,
		Attachments: req.Attachments,
	})

	agentID := "unified"
	if len(req.AgentIDs) > 0 {
		agentID = req.AgentIDs[0]
	}

	writeJSON(w, http.StatusOK, chatContextResponse{
		Result:       result,
		SystemPrompt: userctx.BuildSystemPrompt(result.Context, agentID, result.Skill),
		Tools:        s.manager.ToolSpecs(),
	})
}

// handlePreload warms the shared context snapshot ahead of the first
// chat turn. Concurrent preloads for the same snapshot are deduplicated
// by the loader.
func (s *Server) handlePreload(w http.ResponseWriter, r *http.Request) {
	var req chatContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProfileID == "" {
		writeError(w, http.StatusBadRequest, "profileId is required")
		return
	}

	result := s.loader.Preload(r.Context(), loader.Options{
		ProfileID: req.ProfileID,
		AgentIDs:  req.AgentIDs,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"preloaded": true,
		"loadTime":  result.LoadTime.String(),
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	writeJSON(w, http.StatusOK, s.builder.Build(profileID))
}

// handleContextPreview renders the profile's system prompt as HTML.
func (s *Server) handleContextPreview(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	uc := s.builder.Build(profileID)
	prompt := userctx.BuildSystemPrompt(uc, r.URL.Query().Get("agent"), nil)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(markdown.Render(prompt))); err != nil {
		logging.Errorf("server: write preview: %v", err)
	}
}

func (s *Server) handleMCPStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": s.manager.Enabled(),
		"servers": s.manager.Status(),
	})
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverID")

	var call mcp.ToolCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if call.Name == "" {
		writeError(w, http.StatusBadRequest, "tool name is required")
		return
	}
	if call.ID == "" {
		call.ID = uuid.NewString()
	}

	// Failures ride in the result body; the HTTP status stays 200
	writeJSON(w, http.StatusOK, s.manager.ExecuteTool(r.Context(), serverID, call))
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"skills":   s.skills.List(),
		"commands": s.skills.Commands(),
	})
}

func (s *Server) handlePromptMatch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	maxResults := 3
	if raw := r.URL.Query().Get("max"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxResults = n
		}
	}

	writeJSON(w, http.StatusOK, s.prompts.Match(query, maxResults))
}
