// Package config loads process configuration from the environment, in the
// style the rest of this codebase's ancestry uses: a flat struct populated
// by Load(), .env-friendly, defaults applied where a zero value would be
// awkward.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-sourced setting the core needs. There is
// no file-based or code-level configuration beyond this: per spec.md §6,
// "all other behaviour is code-level."
type Config struct {
	Kafka    KafkaConfig
	Qdrant   QdrantConfig
	Embedding EmbeddingConfig
	DocStore  DocStoreConfig
	RPC       RPCConfig
}

// KafkaConfig configures the durable queue the indexer consumes from.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	// ReconnectBackoff is the fixed delay between broker reconnect attempts.
	ReconnectBackoff time.Duration
}

// QdrantConfig configures the vector store adapter.
type QdrantConfig struct {
	Addr       string
	APIKey     string
	Collection string
	Dimension  int
	Metric     string
}

// EmbeddingConfig configures the embedding HTTP client.
type EmbeddingConfig struct {
	BaseURL string
	Path    string
	Model   string
	APIKey  string
	Header  string
	Timeout time.Duration
}

// DocStoreConfig configures the structured-document client.
type DocStoreConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RPCConfig configures the internal RPC surface.
type RPCConfig struct {
	ListenAddr string
}

// Load reads configuration from the environment (optionally from a local
// .env file, which overlays but never overrides variables already set in
// the real environment).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Kafka: KafkaConfig{
			Brokers:          splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:            getenv("KAFKA_TOPIC", "cv.created"),
			ConsumerGroup:    getenv("KAFKA_CONSUMER_GROUP", "cv-indexer"),
			ReconnectBackoff: getenvDuration("KAFKA_RECONNECT_BACKOFF", 5*time.Second),
		},
		Qdrant: QdrantConfig{
			Addr:       getenv("QDRANT_ADDR", "localhost:6334"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			Collection: getenv("QDRANT_COLLECTION", "cv_chunks"),
			Dimension:  getenvInt("EMBEDDING_DIMENSION", 768),
			Metric:     getenv("QDRANT_METRIC", "cosine"),
		},
		Embedding: EmbeddingConfig{
			BaseURL: getenv("EMBEDDING_BASE_URL", "http://localhost:8081"),
			Path:    getenv("EMBEDDING_PATH", "/v1/embeddings"),
			Model:   getenv("EMBEDDING_MODEL", "default"),
			APIKey:  os.Getenv("EMBEDDING_API_KEY"),
			Header:  getenv("EMBEDDING_API_HEADER", "Authorization"),
			Timeout: getenvDuration("EMBEDDING_TIMEOUT", 60*time.Second),
		},
		DocStore: DocStoreConfig{
			BaseURL: getenv("DOCUMENT_STORE_BASE_URL", "http://localhost:8080"),
			Timeout: getenvDuration("DOCUMENT_STORE_TIMEOUT", 15*time.Second),
		},
		RPC: RPCConfig{
			ListenAddr: getenv("RPC_LISTEN_ADDR", ":8090"),
		},
	}

	if cfg.Qdrant.Dimension <= 0 {
		return Config{}, fmt.Errorf("config: EMBEDDING_DIMENSION must be positive, got %d", cfg.Qdrant.Dimension)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
