package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johnrirwin/citywatch/internal/cache"
	"github.com/johnrirwin/citywatch/internal/logging"
	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/pipeline"
)

type Server struct {
	pipe   *pipeline.Pipeline
	cache  cache.Cache
	logger *logging.Logger
	server *http.Server
}

func New(pipe *pipeline.Pipeline, summaryCache cache.Cache, logger *logging.Logger) *Server {
	return &Server{
		pipe:   pipe,
		cache:  summaryCache,
		logger: logger,
	}
}

// Handler builds the route table. Exposed separately from Start so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/search", s.corsMiddleware(s.handleSearch))
	mux.HandleFunc("/api/analyze", s.corsMiddleware(s.handleAnalyze))
	mux.HandleFunc("/api/filter", s.corsMiddleware(s.handleFilter))
	mux.HandleFunc("/api/summary", s.corsMiddleware(s.handleSummary))

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	city := query.Get("city")
	if city == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "city is required")
		return
	}

	maxResults := 0
	if m := query.Get("max_results"); m != "" {
		if parsed, err := strconv.Atoi(m); err == nil && parsed > 0 {
			maxResults = parsed
		}
	}

	result := s.pipe.Search(r.Context(), city, maxResults)
	if result.Status == models.StatusError {
		s.writeError(w, http.StatusServiceUnavailable, "no_sources", result.Message)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var result models.FetchResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body: "+err.Error())
		return
	}

	analysis, err := s.pipe.Analyze(result)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "no_events", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, analysis)
}

type filterRequest struct {
	Result   models.FetchResult `json:"result"`
	Keywords []string           `json:"keywords"`
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body: "+err.Error())
		return
	}

	filtered, err := s.pipe.FilterByKeywords(req.Result, req.Keywords)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	city := r.URL.Query().Get("city")
	if city == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "city is required")
		return
	}

	cacheKey := "summary:" + city
	if summary, ok := s.cache.Get(cacheKey); ok {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"city":    city,
			"summary": summary,
		})
		return
	}

	summary, err := s.pipe.Summarize(r.Context(), city)
	if err != nil {
		s.logger.Error("Failed to build summary", logging.WithFields(map[string]interface{}{
			"city":  city,
			"error": err.Error(),
		}))
		s.writeError(w, http.StatusServiceUnavailable, "summary_failed", err.Error())
		return
	}

	s.cache.Set(cacheKey, summary)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"city":    city,
		"summary": summary,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}
