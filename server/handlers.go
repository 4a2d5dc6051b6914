package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"routeqa/llm/flow"

	"go.uber.org/zap"
)

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
	Document string `json:"document,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// IngestRequest is the body of POST /api/v1/ingest.
type IngestRequest struct {
	Document string `json:"document"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TopK < 0 {
		s.respondError(w, http.StatusBadRequest, "top_k must be positive")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question), zap.String("document", req.Document))

	var opts []flow.RunOption
	if req.TopK > 0 {
		opts = append(opts, flow.WithRunTopK(req.TopK))
	}
	res := s.runner.Run(r.Context(), req.Question, req.Document, opts...)

	status := http.StatusOK
	if res.Error == flow.ErrQuestionRequired.Error() {
		status = http.StatusBadRequest
	}
	s.respondJSON(w, status, res)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Document) == "" {
		s.respondError(w, http.StatusBadRequest, "document is required")
		return
	}

	n, err := s.ingester.Ingest(r.Context(), req.Document)
	if err != nil {
		s.logger.Error("ingest failed", zap.String("document", req.Document), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"document": req.Document, "chunks": n, "status": "indexed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
