// Command seed-knowledge embeds the curated knowledge base and loads it into
// the external vector search service. Run it once after deploying the service
// or whenever the corpus changes.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/knowledge"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/retrieval"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	var (
		endpoint = flag.String("endpoint", cfg.VectorSearchURL, "vector search service URL")
		timeout  = flag.Duration("timeout", 2*time.Minute, "overall timeout for seeding")
	)
	flag.Parse()

	log := logger.New()

	if *endpoint == "" {
		log.Fatal().Msg("No vector search endpoint configured (set VECTOR_SEARCH_URL or -endpoint)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	embedder, err := retrieval.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create embedder")
	}

	index, err := retrieval.NewHTTPIndex(*endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid vector search endpoint")
	}
	if err := index.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Vector search service unreachable")
	}

	retriever := retrieval.NewRetriever(embedder, index, log)

	entries := knowledge.Corpus()
	if err := retriever.IndexKnowledge(ctx, entries); err != nil {
		log.Fatal().Err(err).Msg("Failed to index knowledge corpus")
	}

	log.Info().Int("entries", len(entries)).Str("endpoint", *endpoint).Msg("Knowledge corpus indexed")
}
