package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPIndex talks to an externally hosted vector-search service over JSON:
// POST /vectors/insert with a batch of entries, POST /vectors/query with a
// vector and options. It is preferred over the in-memory index when an
// endpoint is configured and reachable.
type HTTPIndex struct {
	endpoint string
	client   *http.Client
}

// NewHTTPIndex creates a client for the vector-search service at endpoint.
func NewHTTPIndex(endpoint string) (*HTTPIndex, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("vector search endpoint is required")
	}

	return &HTTPIndex{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type insertRequest struct {
	Entries []Entry `json:"entries"`
}

type queryRequest struct {
	Vector  []float32    `json:"vector"`
	Options QueryOptions `json:"options"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

// Insert implements the Index interface.
func (idx *HTTPIndex) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	return idx.post(ctx, "/vectors/insert", insertRequest{Entries: entries}, nil)
}

// Query implements the Index interface.
func (idx *HTTPIndex) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]Match, error) {
	var resp queryResponse
	if err := idx.post(ctx, "/vectors/query", queryRequest{Vector: vector, Options: opts}, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// Ping reports whether the service answers at all. Used at startup to decide
// between this backend and the in-memory fallback.
func (idx *HTTPIndex) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, idx.endpoint+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := idx.client.Do(req)
	if err != nil {
		return fmt.Errorf("vector search unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vector search health returned status %d", resp.StatusCode)
	}
	return nil
}

func (idx *HTTPIndex) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, idx.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := idx.client.Do(req)
	if err != nil {
		return fmt.Errorf("vector search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vector search returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
