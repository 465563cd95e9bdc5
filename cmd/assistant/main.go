package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/actions"
	"github.com/dvloznov/finance-assistant/internal/api/handlers"
	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/assistant"
	"github.com/dvloznov/finance-assistant/internal/config"
	"github.com/dvloznov/finance-assistant/internal/conversation"
	"github.com/dvloznov/finance-assistant/internal/inference"
	"github.com/dvloznov/finance-assistant/internal/knowledge"
	"github.com/dvloznov/finance-assistant/internal/logger"
	"github.com/dvloznov/finance-assistant/internal/retrieval"
	"github.com/dvloznov/finance-assistant/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	var (
		port = flag.String("port", cfg.Port, "HTTP server port")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	// Ledger persistence: GCS when a bucket is configured, memory otherwise.
	var kv store.KV
	if cfg.GCSBucket != "" {
		gcsKV, err := store.NewGCSKV(ctx, cfg.GCSBucket, cfg.GCSPrefix, cfg.GCSEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS store")
		}
		defer gcsKV.Close()
		kv = gcsKV
		log.Info().Str("bucket", cfg.GCSBucket).Msg("Using GCS-backed ledger store")
	} else {
		kv = store.NewMemoryKV()
		log.Warn().Msg("No GCS bucket configured - ledger data will not survive restarts")
	}

	ledgerStore := store.NewLedger(kv, log)
	memory := conversation.NewMemory(kv)

	model, err := inference.NewGemini(ctx, cfg.GeminiAPIKey, cfg.InferenceModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create inference client")
	}

	retriever := buildRetriever(ctx, cfg, log)

	var indexer actions.TransactionIndexer
	if retriever != nil {
		indexer = retriever
	}
	registry := actions.NewRegistry(ledgerStore, indexer, log, nil)

	core := assistant.New(assistant.Config{
		Ledger:      ledgerStore,
		Memory:      memory,
		Registry:    registry,
		Retriever:   retrieverOrNil(retriever),
		Model:       model,
		Log:         log,
		CallTimeout: cfg.CallTimeout,
	})

	chatHandler := handlers.NewChatHandler(core, log)
	conversationsHandler := handlers.NewConversationsHandler(memory, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			chatHandler.Chat(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/conversations/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
		if id == "" || strings.Contains(id, "/") {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			conversationsHandler.History(w, r, id)
		case http.MethodDelete:
			conversationsHandler.Clear(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handler := middleware.RequestID(middleware.CORS(middleware.Recovery(log)(middleware.Logger(log)(mux))))

	server := &http.Server{
		Addr:    ":" + *port,
		Handler: handler,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting assistant server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down assistant server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Assistant server stopped")
}

// buildRetriever wires the embedder and a vector index, preferring the
// external search service when it is configured and answers a health probe.
// Returns nil when retrieval cannot be set up; the assistant then runs
// without retrieval context.
func buildRetriever(ctx context.Context, cfg *config.Config, log zerolog.Logger) *retrieval.Retriever {
	embedder, err := retrieval.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Warn().Err(err).Msg("Embedding unavailable - running without retrieval")
		return nil
	}

	var index retrieval.Index = retrieval.NewMemoryIndex()
	if cfg.VectorSearchURL != "" {
		httpIndex, err := retrieval.NewHTTPIndex(cfg.VectorSearchURL)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = httpIndex.Ping(pingCtx)
			cancel()
		}
		if err != nil {
			log.Warn().Err(err).Msg("Vector search service unreachable, falling back to in-memory index")
		} else {
			index = httpIndex
			log.Info().Str("endpoint", cfg.VectorSearchURL).Msg("Using external vector search service")
		}
	}

	retriever := retrieval.NewRetriever(embedder, index, log)

	// Seed the curated knowledge base. Best-effort: a failure here only
	// costs retrieval context.
	seedCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := retriever.IndexKnowledge(seedCtx, knowledge.Corpus()); err != nil {
		log.Warn().Err(err).Msg("Could not index knowledge corpus")
	}

	return retriever
}

func retrieverOrNil(r *retrieval.Retriever) assistant.Retriever {
	if r == nil {
		return nil
	}
	return r
}
