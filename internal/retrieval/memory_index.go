package retrieval

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is a dependency-free in-memory cosine-similarity index. It is
// safe for concurrent use and is the fallback when no external vector
// service is configured.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Insert implements the Index interface. Re-inserting an existing id
// replaces the stored entry.
func (idx *MemoryIndex) Insert(ctx context.Context, entries []Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, entry := range entries {
		replaced := false
		for i := range idx.entries {
			if idx.entries[i].ID == entry.ID {
				idx.entries[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			idx.entries = append(idx.entries, entry)
		}
	}
	return nil
}

// Query implements the Index interface.
func (idx *MemoryIndex) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	matches := make([]Match, 0, len(idx.entries))
	for _, entry := range idx.entries {
		if !matchesFilter(entry.Metadata, opts.Filter) {
			continue
		}
		m := Match{
			ID:    entry.ID,
			Score: cosineSimilarity(vector, entry.Vector),
		}
		if opts.ReturnMetadata {
			m.Metadata = entry.Metadata
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if opts.TopK > 0 && len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	return matches, nil
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

// cosineSimilarity returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
