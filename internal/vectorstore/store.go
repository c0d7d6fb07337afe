// Package vectorstore defines the Store interface the indexer writes
// through and the retriever reads through, with a Qdrant-backed
// implementation. Adapted from this codebase's Qdrant vector adapter:
// same deterministic-UUID-from-string-id derivation, same
// original-id-in-payload recovery trick, generalized from a single-record
// Upsert to a batched one and from an arbitrary key/value filter to the
// flat metadata-equality filter this domain needs.
package vectorstore

import (
	"context"

	"cvmatch/internal/model"
)

// MaxBatchSize is the largest number of records Upsert sends to the
// store in a single call, per spec.md §4.3.
const MaxBatchSize = 100

// Store is the vector store adapter boundary. Implementations must be
// safe for concurrent use by multiple goroutines.
type Store interface {
	// Upsert writes records, batching internally at MaxBatchSize. Upsert
	// is idempotent: writing the same ID twice overwrites, it never
	// duplicates.
	Upsert(ctx context.Context, records []model.VectorRecord) error

	// Query returns the k nearest records to vector, optionally
	// restricted to records whose metadata matches every key/value pair
	// in filter, ordered by descending similarity score.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]model.Match, error)

	// Delete removes every record whose metadata matches every key/value
	// pair in filter.
	Delete(ctx context.Context, filter map[string]string) error

	// Dimension returns the configured vector size of the collection.
	Dimension() int

	// Close releases the underlying connection.
	Close() error
}
