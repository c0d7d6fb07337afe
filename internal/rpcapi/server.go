// Package rpcapi exposes the internal RPC surface over HTTP: similar-chunk
// search and top-k résumé ranking, per spec.md §4.6. Adapted from this
// codebase's HTTP server: a *http.ServeMux wrapped in a thin Server type,
// routes registered with Go 1.22's "METHOD /path" patterns, JSON
// request/response helpers, and error-kind-to-status-code mapping done
// once at the boundary.
package rpcapi

import (
	"net/http"

	"github.com/rs/zerolog"

	"cvmatch/internal/retriever"
)

// Server is the internal RPC surface's HTTP entry point.
type Server struct {
	retriever *retriever.Retriever
	log       zerolog.Logger
	mux       *http.ServeMux
}

// NewServer builds a Server and registers its routes.
func NewServer(r *retriever.Retriever, log zerolog.Logger) *Server {
	s := &Server{retriever: r, log: log, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler by delegating to the internal mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /internal/similar_chunks", s.handleSimilarChunks)
	s.mux.HandleFunc("POST /internal/search_top_k_cvs", s.handleSearchTopKCVs)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
