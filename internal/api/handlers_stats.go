package api

import (
	"net/http"
)

// handleLLMStats reports rolling latency stats for upstream model calls.
func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.llmStats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"models": map[string]string{
			"clarity":      s.cfg.ClarityModel,
			"rigor":        s.cfg.RigorModel,
			"orchestrator": s.cfg.OrchestratorModel,
			"embedding":    s.cfg.EmbeddingModel,
		},
		"operations": s.llmStats.Snapshot(),
	})
}
