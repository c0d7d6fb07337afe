// Package embedding provides the Embedder abstraction the indexer and
// retriever share: a batched text-to-vector function, backed in
// production by an HTTP embedding service and in tests by a
// deterministic, dependency-free stand-in. Adapted from this codebase's
// HTTP embedding client and its hash-based deterministic embedder used
// where a live model is unavailable.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"

	"cvmatch/internal/apperr"
	"cvmatch/internal/config"
)

const component = "embedding"

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
}

// HTTPEmbedder calls an external embeddings endpoint over HTTP, in the
// OpenAI-compatible request/response shape.
type HTTPEmbedder struct {
	cfg        config.EmbeddingConfig
	dimension  int
	httpClient *http.Client
}

// NewHTTPEmbedder builds an HTTPEmbedder. dimension is the vector size the
// caller expects back; it is reported by Dimension but not checked against
// the vectors the remote service returns (EmbedBatch checks only that one
// vector comes back per input).
func NewHTTPEmbedder(cfg config.EmbeddingConfig, dimension int) *HTTPEmbedder {
	return &HTTPEmbedder{
		cfg:       cfg,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (e *HTTPEmbedder) Name() string   { return e.cfg.Model }
func (e *HTTPEmbedder) Dimension() int { return e.dimension }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds every text in a single request. An empty input slice
// returns an empty result without making a call.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: texts})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, component, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	url := e.cfg.BaseURL + e.cfg.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, component, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set(e.cfg.Header, "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamTransient, component, err)
	}

	if resp.StatusCode/100 != 2 {
		kind := apperr.UpstreamTransient
		if resp.StatusCode/100 == 4 {
			kind = apperr.InvalidInput
		}
		return nil, apperr.New(kind, component, fmt.Sprintf("embedding service returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var er embedResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamTransient, component, err)
	}
	if len(er.Data) != len(texts) {
		return nil, apperr.New(apperr.UpstreamTransient, component,
			fmt.Sprintf("embedding service returned %d vectors for %d inputs", len(er.Data), len(texts)))
	}

	out := make([][]float32, len(er.Data))
	for i, d := range er.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// DeterministicEmbedder hashes byte trigrams of the input text into a
// fixed-size vector. It has no external dependency and no model quality,
// but is stable and fast, which is exactly what unit tests that exercise
// indexing/retrieval plumbing need.
type DeterministicEmbedder struct {
	dimension int
	normalize bool
}

// NewDeterministicEmbedder builds a DeterministicEmbedder of the given
// dimension. When normalize is true, output vectors are L2-normalized,
// which matches the behavior of most real embedding services and makes
// cosine-similarity scores comparable across test fixtures.
func NewDeterministicEmbedder(dimension int, normalize bool) *DeterministicEmbedder {
	return &DeterministicEmbedder{dimension: dimension, normalize: normalize}
}

func (e *DeterministicEmbedder) Name() string   { return "deterministic-fnv-trigram" }
func (e *DeterministicEmbedder) Dimension() int { return e.dimension }

func (e *DeterministicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *DeterministicEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)
	b := []byte(text)
	if len(b) == 0 {
		return vec
	}
	// Slide a 3-byte window over the text, hashing each trigram into a
	// bucket and a signed weight, so similar substrings land on similar
	// buckets without needing a real tokenizer or model.
	for i := 0; i+3 <= len(b); i++ {
		e.add(vec, b[i:i+3])
	}
	if len(b) < 3 {
		e.add(vec, b)
	}
	if e.normalize {
		normalize(vec)
	}
	return vec
}

func (e *DeterministicEmbedder) add(vec []float32, trigram []byte) {
	h := fnv.New64a()
	h.Write(trigram)
	sum := h.Sum64()
	bucket := int(sum % uint64(e.dimension))
	weight := float32(1.0)
	if (sum>>1)%2 == 0 {
		weight = -1.0
	}
	vec[bucket] += weight
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}
