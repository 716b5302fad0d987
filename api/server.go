package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/agent"
	"github.com/YKunlee/Financial-Research-Agent/datasource"
	"github.com/YKunlee/Financial-Research-Agent/snapshot"
)

// Server handles HTTP API requests
type Server struct {
	analyzer   Analyzer
	store      snapshot.Store
	news       *datasource.NewsService // nil when no API key is configured
	httpServer *http.Server
}

// Analyzer defines the interface for running research analyses
type Analyzer interface {
	Analyze(ctx context.Context, query string, asOf time.Time) (agent.Result, error)
}

// NewServer creates a new API server instance
func NewServer(analyzer Analyzer, store snapshot.Store, news *datasource.NewsService) *Server {
	return &Server{
		analyzer: analyzer,
		store:    store,
		news:     news,
	}
}

// Handler returns the full route table wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/snapshots/{id}", s.handleGetSnapshot)
	mux.HandleFunc("GET /api/news", s.handleGetNews)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) error {
	serverAddr := fmt.Sprintf("0.0.0.0:%s", port)
	s.httpServer = &http.Server{Addr: serverAddr, Handler: s.Handler()}
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
