package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/strands-agents/sdk-go/pkg/types"
)

// InvokeRequest is the body of POST /invoke.
type InvokeRequest struct {
	Prompt string `json:"prompt"`
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	ID           string             `json:"id"`
	Busy         bool               `json:"busy"`
	MessageCount int                `json:"messageCount"`
	Manager      types.ManagerState `json:"manager"`
}

// invoke handles POST /invoke.
// The response is an SSE stream of the invocation's events, named by kind, ending with
// result.final on success or an error event on failure. Errors raised before the first
// event, such as a busy agent, are plain JSON responses instead.
func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "prompt is required")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	// Disconnecting the client cancels r.Context(), which abandons the invocation.
	stream := s.agent.Stream(r.Context(), req.Prompt)

	first, ok := <-stream.Events()
	if !ok {
		_, err := stream.Wait()
		if err == nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "invocation produced no events")
			return
		}
		writeInvocationError(w, err)
		return
	}

	sse.start()
	if err := sse.writeEvent(string(first.Kind()), first); err != nil {
		stream.Close()
		return
	}
	for e := range stream.Events() {
		if err := sse.writeEvent(string(e.Kind()), e); err != nil {
			s.logger.Debug().Err(err).Msg("client went away during invocation")
			stream.Close()
			return
		}
	}

	if _, err := stream.Wait(); err != nil {
		_, detail := describeError(err)
		sse.writeEvent("error", detail)
	}
}

// abort handles POST /abort.
func (s *Server) abort(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"aborted": s.agent.Abort()})
}

// getMessages handles GET /messages.
func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.agent.Messages())
}

// getState handles GET /state.
func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	snap := s.agent.Snapshot()
	writeJSON(w, http.StatusOK, StateResponse{
		ID:           snap.ID,
		Busy:         s.agent.Busy(),
		MessageCount: len(snap.Messages),
		Manager:      snap.Manager,
	})
}

// getTools handles GET /tools.
func (s *Server) getTools(w http.ResponseWriter, r *http.Request) {
	specs := s.agent.Tools().Specs()
	if specs == nil {
		specs = []types.ToolSpec{}
	}
	writeJSON(w, http.StatusOK, specs)
}

// getConfig handles GET /config. Provider API keys are redacted.
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	if s.appConfig == nil {
		writeJSON(w, http.StatusOK, types.Config{})
		return
	}

	cfg := *s.appConfig
	if cfg.Provider != nil {
		cfg.Provider = make(map[string]types.ProviderConfig, len(s.appConfig.Provider))
		for name, p := range s.appConfig.Provider {
			if p.APIKey != "" {
				p.APIKey = "********"
			}
			cfg.Provider[name] = p
		}
	}
	writeJSON(w, http.StatusOK, cfg)
}
