package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Kruthik-JP/guard-rail-NER/internal/index"
	"github.com/Kruthik-JP/guard-rail-NER/internal/llm"
	"github.com/Kruthik-JP/guard-rail-NER/internal/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}
	if r.URL.Query().Get("detail") == "true" {
		resp["components"] = map[string]interface{}{
			"index":        "ok",
			"index_chunks": s.store.Count(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Answer       string   `json:"answer"`
	BlockedTerms []string `json:"blocked_terms,omitempty"`
	RiskScore    float64  `json:"risk_score,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	result, err := s.pipeline.Query(r.Context(), req.Query)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", "Query is required")
		return
	case errors.Is(err, index.ErrNoMatch), errors.Is(err, index.ErrEmptyIndex):
		writeError(w, http.StatusNotFound, "not_found", "No relevant data found for your query.")
		return
	case errors.Is(err, llm.ErrUpstreamModel):
		log.Error().Err(err).Msg("generation failed")
		writeError(w, http.StatusBadGateway, "upstream_error", "generation backend error")
		return
	default:
		log.Error().Err(err).Msg("query failed")
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	resp := queryResponse{
		Answer:       result.Answer,
		BlockedTerms: result.BlockedTerms,
		RiskScore:    result.RiskScore,
	}
	if result.Blocked {
		writeJSON(w, http.StatusForbidden, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type sanitizeRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	var req sanitizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	sanitized, report := s.guard.SanitizeReport(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sanitized":          sanitized,
		"contains_sensitive": report.ContainsSensitive,
		"risk_score":         report.RiskScore,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req sanitizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}

	report := s.guard.Analyze(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contains_sensitive": report.ContainsSensitive,
		"risk_score":         report.RiskScore,
		"entity_types":       report.EntityTypes(),
		"spans":              report.Spans,
		"semantic":           report.Semantic,
	})
}

type indexBuildRequest struct {
	DocumentsDir string `json:"documents_dir,omitempty"`
}

func (s *Server) handleIndexBuild(w http.ResponseWriter, r *http.Request) {
	var req indexBuildRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
			return
		}
	}
	dir := req.DocumentsDir
	if dir == "" {
		dir = s.documentsDir
	}

	report, err := s.pipeline.BuildIndex(r.Context(), dir)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoDocuments) {
			writeError(w, http.StatusBadRequest, "no_documents", "No documents found in "+dir)
			return
		}
		log.Error().Err(err).Str("dir", dir).Msg("index build failed")
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
