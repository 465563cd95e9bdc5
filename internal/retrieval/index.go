package retrieval

import "context"

// Entry is one vector plus its metadata, ready for insertion.
type Entry struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Match is one ranked query result. Matches are transient: they are used
// during context assembly and never persisted.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QueryOptions controls a similarity query.
type QueryOptions struct {
	TopK           int               `json:"top_k"`
	Filter         map[string]string `json:"filter,omitempty"`
	ReturnMetadata bool              `json:"return_metadata"`
}

// Index is a pluggable vector-similarity backend. Any implementation of
// insert(batch) and query(vector, options) can serve; the assistant ships an
// in-memory cosine index and an HTTP client for an external search service.
type Index interface {
	Insert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, opts QueryOptions) ([]Match, error)
}
