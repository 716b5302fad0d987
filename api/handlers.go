package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/formatter"
	"github.com/YKunlee/Financial-Research-Agent/identify"
	"github.com/YKunlee/Financial-Research-Agent/models"
	"github.com/YKunlee/Financial-Research-Agent/snapshot"
)

// analyzeRequest is the body of POST /api/analyze. AsOf is optional and
// defaults to today (UTC).
type analyzeRequest struct {
	Query string `json:"query"`
	AsOf  string `json:"as_of,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != "" {
		parsed, err := time.Parse(models.DateLayout, req.AsOf)
		if err != nil {
			http.Error(w, "as_of must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	result, err := s.analyzer.Analyze(r.Context(), req.Query, asOf)
	if err != nil {
		switch {
		case errors.Is(err, identify.ErrUnknownCompany):
			respondWithError(w, http.StatusNotFound, "unknown company", err)
		case errors.Is(err, snapshot.ErrConsistency):
			respondWithError(w, http.StatusInternalServerError, "snapshot consistency violation", err)
		default:
			respondWithError(w, http.StatusInternalServerError, "analysis failed", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(formatter.FormatResult(result.Snapshot, result.Explanation))
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	snap, ok, err := s.store.Load(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "snapshot lookup failed", err)
		return
	}
	if !ok {
		http.Error(w, "snapshot not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		http.Error(w, "news provider not configured", http.StatusServiceUnavailable)
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	day := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse(models.DateLayout, d)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	news, err := s.news.GetDaily(r.Context(), symbol, day)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "news fetch failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(news)
}

// handleHealth returns the health status of the API
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
