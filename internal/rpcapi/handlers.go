package rpcapi

import (
	"encoding/json"
	"net/http"

	"cvmatch/internal/apperr"
	"cvmatch/internal/retriever"
)

const (
	defaultMinScore         = 0.75
	defaultMaxChunksToQuery = 50
	defaultMaxReturnedChunks = 20
	defaultPerCvLimit       = 3
	defaultTopK             = 3
	defaultRawTopK          = 30
)

type similarChunksRequest struct {
	JDText            string   `json:"jd_text"`
	MinScore          *float64 `json:"min_score,omitempty"`
	MaxChunksToQuery  *int     `json:"max_chunks_to_query,omitempty"`
	MaxReturnedChunks *int     `json:"max_returned_chunks,omitempty"`
	PerCvLimit        *int     `json:"per_cv_limit,omitempty"`
}

type searchTopKRequest struct {
	JDText  string `json:"jd_text"`
	TopK    *int   `json:"top_k,omitempty"`
	RawTopK *int   `json:"raw_top_k,omitempty"`
}

func (s *Server) handleSimilarChunks(w http.ResponseWriter, r *http.Request) {
	var req similarChunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidInput, "rpcapi", "malformed request body"))
		return
	}

	params := retriever.FindSimilarChunksParams{
		JDText:            req.JDText,
		MinScore:          defaultMinScore,
		MaxChunksToQuery:  defaultMaxChunksToQuery,
		MaxReturnedChunks: defaultMaxReturnedChunks,
		PerCvLimit:        defaultPerCvLimit,
	}
	if req.MinScore != nil {
		params.MinScore = *req.MinScore
	}
	if req.MaxChunksToQuery != nil {
		params.MaxChunksToQuery = *req.MaxChunksToQuery
	}
	if req.MaxReturnedChunks != nil {
		params.MaxReturnedChunks = *req.MaxReturnedChunks
	}
	if req.PerCvLimit != nil {
		params.PerCvLimit = *req.PerCvLimit
	}

	hits, err := s.retriever.FindSimilarChunks(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"chunks": hits})
}

func (s *Server) handleSearchTopKCVs(w http.ResponseWriter, r *http.Request) {
	var req searchTopKRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.New(apperr.InvalidInput, "rpcapi", "malformed request body"))
		return
	}

	params := retriever.SearchTopKCVsParams{
		JDText:  req.JDText,
		TopK:    defaultTopK,
		RawTopK: defaultRawTopK,
	}
	if req.TopK != nil {
		params.TopK = *req.TopK
	}
	if req.RawTopK != nil {
		params.RawTopK = *req.RawTopK
	}

	hits, err := s.retriever.SearchTopKCVs(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cvs": hits})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFromError(err), map[string]string{"error": err.Error()})
}

func statusFromError(err error) int {
	switch apperr.KindOf(err) {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.UpstreamTransient:
		return http.StatusBadGateway
	case apperr.ResourceExhausted:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}
