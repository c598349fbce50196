package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/scipeer/reviewd/internal/review"
	"github.com/scipeer/reviewd/internal/section"
)

type analyzeRequest struct {
	Content       string   `json:"content"`
	SessionID     string   `json:"session_id"`
	AnalysisTypes []string `json:"analysis_types"`
}

// handleStrategies lists the registered retrieval strategies.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"strategies": s.registry.List()})
}

// handleAnalyze runs a full review over the posted document.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		jsonError(w, "content is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result := s.reviewer.Review(r.Context(), req.Content, req.SessionID, req.AnalysisTypes)

	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions":     nonNilSuggestions(result.Suggestions),
		"session_id":      result.SessionID,
		"processing_time": time.Since(start).Seconds(),
		"metadata":        result.Metadata,
	})
}

type structureRequest struct {
	Content string `json:"content"`
}

// handleStructure returns the document outline without running any agents.
func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req structureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		jsonError(w, "content is required", http.StatusBadRequest)
		return
	}

	sections := section.Parse(req.Content)
	writeJSON(w, http.StatusOK, map[string]any{
		"structure":     section.Summarize(sections),
		"section_count": len(sections),
	})
}

func nonNilSuggestions(sugs []review.Suggestion) []review.Suggestion {
	if sugs == nil {
		return []review.Suggestion{}
	}
	return sugs
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
