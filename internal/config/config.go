// Package config reads the assistant's configuration from the environment.
package config

import (
	"os"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Gemini
	GeminiAPIKey   string
	InferenceModel string
	EmbeddingModel string

	// Ledger persistence. An empty bucket selects the in-memory store.
	GCSBucket   string
	GCSPrefix   string
	GCSEndpoint string

	// Vector search. An empty URL selects the in-memory cosine index.
	VectorSearchURL string

	// Model calls
	CallTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		InferenceModel: getEnv("INFERENCE_MODEL", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", ""),

		GCSBucket:   getEnv("GCS_BUCKET", ""),
		GCSPrefix:   getEnv("GCS_PREFIX", "assistant"),
		GCSEndpoint: getEnv("GCS_ENDPOINT", ""),

		VectorSearchURL: getEnv("VECTOR_SEARCH_URL", ""),

		CallTimeout: getEnvDuration("MODEL_CALL_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
