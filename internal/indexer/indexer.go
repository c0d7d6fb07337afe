// Package indexer consumes cv.created events, fetches the structured
// résumé, chunks it, embeds the chunks, and upserts the resulting vectors.
// Adapted from this codebase's Kafka consumer: a per-worker fetch loop
// with fixed reconnect backoff, and the same ack-on-terminal-outcome
// idea, simplified from a generic command/DLQ workflow down to the
// five-way retry/drop classification spec.md §4.4 calls for.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"cvmatch/internal/apperr"
	"cvmatch/internal/chunker"
	"cvmatch/internal/config"
	"cvmatch/internal/embedding"
	"cvmatch/internal/model"
	"cvmatch/internal/obsmetrics"
	"cvmatch/internal/vectorstore"
)

const (
	maxTextMetadataLen  = 1000
	maxExtraMetadataLen = 500
)

// DocStore fetches a structured résumé by cv_id. Satisfied by
// *docstore.Client in production and by a fake in tests.
type DocStore interface {
	GetStructuredResumé(ctx context.Context, cvID string) (model.StructuredResumé, error)
}

// Indexer consumes IndexEvent messages and drives the chunk/embed/upsert
// pipeline for each one.
type Indexer struct {
	reader   *kafka.Reader
	docs     DocStore
	embedder embedding.Embedder
	store    vectorstore.Store
	log      zerolog.Logger
	metrics  obsmetrics.Metrics

	workerCount      int
	reconnectBackoff time.Duration
}

// Option customizes an Indexer built by New.
type Option func(*Indexer)

// WithWorkerCount sets the number of concurrent consumer goroutines.
// Each goroutine fetches, processes, and commits one message at a time
// (prefetch depth 1), per spec.md §5.
func WithWorkerCount(n int) Option {
	return func(i *Indexer) { i.workerCount = n }
}

// WithMetrics wires a Metrics sink. Defaults to obsmetrics.Noop.
func WithMetrics(m obsmetrics.Metrics) Option {
	return func(i *Indexer) { i.metrics = m }
}

// New builds an Indexer from KafkaConfig and its collaborators.
func New(cfg config.KafkaConfig, docs DocStore, embedder embedding.Embedder, store vectorstore.Store, log zerolog.Logger, opts ...Option) *Indexer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.ConsumerGroup,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	idx := &Indexer{
		reader:           reader,
		docs:             docs,
		embedder:         embedder,
		store:            store,
		log:              log,
		metrics:          obsmetrics.Noop{},
		workerCount:      1,
		reconnectBackoff: cfg.ReconnectBackoff,
	}
	for _, o := range opts {
		o(idx)
	}
	if idx.reconnectBackoff <= 0 {
		idx.reconnectBackoff = 5 * time.Second
	}
	return idx
}

// Run starts the consumer workers and blocks until ctx is canceled.
func (i *Indexer) Run(ctx context.Context) {
	done := make(chan struct{}, i.workerCount)
	for w := 0; w < i.workerCount; w++ {
		go func(id int) {
			i.workerLoop(ctx, id)
			done <- struct{}{}
		}(w)
	}
	for w := 0; w < i.workerCount; w++ {
		<-done
	}
}

// Close releases the underlying Kafka reader.
func (i *Indexer) Close() error {
	return i.reader.Close()
}

func (i *Indexer) workerLoop(ctx context.Context, id int) {
	logger := i.log.With().Int("worker", id).Logger()
	for {
		if ctx.Err() != nil {
			return
		}
		msg, err := i.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).
				Str("brokers", strings.Join(i.reader.Config().Brokers, ",")).
				Str("topic", i.reader.Config().Topic).
				Dur("backoff", i.reconnectBackoff).
				Msg("kafka fetch failed, reconnecting")
			select {
			case <-time.After(i.reconnectBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		if requeue := i.handle(ctx, logger, msg); requeue {
			// Leave uncommitted: the group will redeliver this offset on
			// the next rebalance or process restart.
			continue
		}
		if err := i.reader.CommitMessages(ctx, msg); err != nil {
			logger.Error().Err(err).Msg("failed to commit message offset")
		}
	}
}

// handle runs the parse -> fetch -> chunk -> embed -> upsert pipeline for
// one message and returns whether the message should be requeued
// (left uncommitted) rather than dropped.
func (i *Indexer) handle(ctx context.Context, logger zerolog.Logger, msg kafka.Message) (requeue bool) {
	var evt model.IndexEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil || strings.TrimSpace(evt.CvID) == "" {
		logger.Error().Err(err).Str("raw", string(msg.Value)).Msg("malformed index event, dropping")
		i.metrics.IncCounter("index_events_total", map[string]string{"outcome": "malformed"})
		return false
	}

	logger = logger.With().Str("cv_id", evt.CvID).Logger()

	doc, err := i.docs.GetStructuredResumé(ctx, evt.CvID)
	if err != nil {
		return i.classify(logger, "fetch", err)
	}

	chunks := chunker.Chunk(evt.CvID, doc.Sections)
	if len(chunks) == 0 {
		logger.Warn().Msg("structured résumé produced zero chunks")
		i.metrics.IncCounter("index_events_total", map[string]string{"outcome": "empty"})
		return false
	}

	texts := make([]string, len(chunks))
	for idx, c := range chunks {
		texts[idx] = c.Text
	}
	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return i.classify(logger, "embed", err)
	}

	records := make([]model.VectorRecord, len(chunks))
	for idx, c := range chunks {
		records[idx] = model.VectorRecord{
			ID:       recordID(c.CvID, c.Section, idx),
			Values:   vectors[idx],
			Metadata: recordMetadata(c),
		}
	}

	if err := i.store.Upsert(ctx, records); err != nil {
		return i.classify(logger, "upsert", err)
	}

	logger.Info().Int("chunks", len(chunks)).Msg("indexed résumé")
	i.metrics.IncCounter("index_events_total", map[string]string{"outcome": "success"})
	return false
}

// classify maps an apperr.Kind to a requeue decision and logs at the
// appropriate level, per the failure table in spec.md §4.4.
func (i *Indexer) classify(logger zerolog.Logger, stage string, err error) bool {
	switch apperr.KindOf(err) {
	case apperr.NotFound, apperr.InvalidInput:
		logger.Error().Err(err).Str("stage", stage).Msg("permanent failure, dropping event")
		i.metrics.IncCounter("index_events_total", map[string]string{"outcome": "permanent_error"})
		return false
	case apperr.ResourceExhausted:
		logger.Error().Err(err).Str("stage", stage).Msg("CRITICAL: resource exhaustion, dropping event without retry")
		i.metrics.IncCounter("index_events_total", map[string]string{"outcome": "resource_exhausted"})
		return false
	case apperr.UpstreamTransient:
		logger.Warn().Err(err).Str("stage", stage).Msg("transient failure, requeueing")
		i.metrics.IncCounter("index_events_total", map[string]string{"outcome": "transient_requeue"})
		return true
	default:
		logger.Error().Err(err).Str("stage", stage).Msg("unexpected failure, requeueing")
		i.metrics.IncCounter("index_events_total", map[string]string{"outcome": "internal_requeue"})
		return true
	}
}

func recordID(cvID, section string, ordinal int) string {
	return fmt.Sprintf("%s:%s:%d", cvID, section, ordinal)
}

func recordMetadata(c model.Chunk) map[string]string {
	md := map[string]string{
		"cv_id":   c.CvID,
		"section": c.Section,
		"text":    truncate(c.Text, maxTextMetadataLen),
	}
	for k, v := range c.Metadata {
		md[k] = truncate(v, maxExtraMetadataLen)
	}
	return md
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
