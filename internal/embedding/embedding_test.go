package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvmatch/internal/apperr"
	"cvmatch/internal/config"
)

func TestDeterministicEmbedder_SameTextSameVector(t *testing.T) {
	e := NewDeterministicEmbedder(32, true)
	vecs, err := e.EmbedBatch(context.Background(), []string{"hello world", "hello world"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, vecs[0], vecs[1])
	assert.Len(t, vecs[0], 32)
}

func TestDeterministicEmbedder_DifferentTextDifferentVector(t *testing.T) {
	e := NewDeterministicEmbedder(32, true)
	vecs, err := e.EmbedBatch(context.Background(), []string{"alpha", "omega"})
	require.NoError(t, err)
	assert.NotEqual(t, vecs[0], vecs[1])
}

func TestDeterministicEmbedder_EmptyInput(t *testing.T) {
	e := NewDeterministicEmbedder(8, false)
	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestHTTPEmbedder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embedResponse{}
		for range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
			}{Embedding: []float32{0.1, 0.2}})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	cfg := config.EmbeddingConfig{BaseURL: srv.URL, Path: "/v1/embeddings", Model: "test-model", Header: "Authorization", Timeout: 5_000_000_000}
	e := NewHTTPEmbedder(cfg, 2)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vecs[0])
}

func TestHTTPEmbedder_ServerErrorIsUpstreamTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	cfg := config.EmbeddingConfig{BaseURL: srv.URL, Path: "/v1/embeddings", Model: "test-model", Header: "Authorization", Timeout: 5_000_000_000}
	e := NewHTTPEmbedder(cfg, 2)
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, apperr.UpstreamTransient, apperr.KindOf(err))
}

func TestHTTPEmbedder_ClientErrorIsInvalidInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	cfg := config.EmbeddingConfig{BaseURL: srv.URL, Path: "/v1/embeddings", Model: "test-model", Header: "Authorization", Timeout: 5_000_000_000}
	e := NewHTTPEmbedder(cfg, 2)
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestHTTPEmbedder_EmptyInputSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := config.EmbeddingConfig{BaseURL: srv.URL, Path: "/v1/embeddings", Timeout: 5_000_000_000}
	e := NewHTTPEmbedder(cfg, 2)
	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.False(t, called)
}
