// Command rpcserver exposes the internal RPC surface: similar-chunk
// search and top-k résumé ranking over HTTP. Adapted from this
// codebase's service-entrypoint shape: load config, build collaborators,
// serve until a signal, shut down.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cvmatch/internal/config"
	"cvmatch/internal/embedding"
	"cvmatch/internal/obslog"
	"cvmatch/internal/retriever"
	"cvmatch/internal/rpcapi"
	"cvmatch/internal/vectorstore"
)

func main() {
	log := obslog.New("rpcserver")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := vectorstore.NewQdrant(ctx, cfg.Qdrant, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to vector store")
	}
	defer store.Close()

	embedder := embedding.NewHTTPEmbedder(cfg.Embedding, cfg.Qdrant.Dimension)
	r := retriever.New(embedder, store)
	server := rpcapi.NewServer(r, log)

	httpServer := &http.Server{
		Addr:              cfg.RPC.ListenAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.RPC.ListenAddr).Msg("rpcserver starting")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("rpc server failed")
	}
	log.Info().Msg("rpcserver shut down")
}
