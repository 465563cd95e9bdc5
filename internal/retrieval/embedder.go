// Package retrieval embeds text and finds semantically similar content: the
// curated knowledge base and past transactions. A retrieval fault never
// fails a request; callers proceed with an empty retrieval context.
package retrieval

import "context"

// Embedder turns text into fixed-length vectors. The same engine must be
// used for indexing knowledge, indexing transactions, and embedding queries,
// otherwise the vectors are not comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
