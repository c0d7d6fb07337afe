// Command indexer runs the cv.created consumer: it fetches, chunks,
// embeds, and upserts résumés as they're created. Adapted from this
// codebase's service-entrypoint shape: load config, build collaborators,
// run until a signal, shut down.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"cvmatch/internal/config"
	"cvmatch/internal/docstore"
	"cvmatch/internal/embedding"
	"cvmatch/internal/indexer"
	"cvmatch/internal/obslog"
	"cvmatch/internal/obsmetrics"
	"cvmatch/internal/vectorstore"
)

func main() {
	log := obslog.New("indexer")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meterProvider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(meterProvider)
	metrics := obsmetrics.NewOtel(otel.Meter("cvmatch/indexer"))

	store, err := vectorstore.NewQdrant(ctx, cfg.Qdrant, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to vector store")
	}
	defer store.Close()

	embedder := embedding.NewHTTPEmbedder(cfg.Embedding, cfg.Qdrant.Dimension)
	docs := docstore.New(cfg.DocStore)

	idx := indexer.New(cfg.Kafka, docs, embedder, store, log,
		indexer.WithWorkerCount(4),
		indexer.WithMetrics(metrics),
	)
	defer idx.Close()

	log.Info().
		Str("topic", cfg.Kafka.Topic).
		Str("group", cfg.Kafka.ConsumerGroup).
		Msg("indexer starting")
	idx.Run(ctx)
	log.Info().Msg("indexer shut down")
}
