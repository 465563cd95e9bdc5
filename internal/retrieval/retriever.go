package retrieval

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/knowledge"
)

// Caps on retrieved context, sized to keep the assembled prompt small.
const (
	MaxKnowledgeSnippets   = 3
	MaxSimilarTransactions = 5
)

// Metadata keys used across both index backends.
const (
	metaKind     = "kind"
	metaContent  = "content"
	metaCategory = "category"

	kindKnowledge   = "knowledge"
	kindTransaction = "transaction"
)

// Snippet is one retrieved knowledge article.
type Snippet struct {
	ID       string
	Content  string
	Category string
	Score    float64
}

// SimilarTransaction is one semantically similar past transaction.
type SimilarTransaction struct {
	ID      string
	Summary string
	Score   float64
}

// Retriever embeds queries and searches the vector index. Lookups degrade
// silently: any embedding or index fault is logged and an empty result
// returned, so a retrieval outage never blocks a response.
type Retriever struct {
	embedder Embedder
	index    Index
	log      zerolog.Logger
}

// NewRetriever creates a retriever over the given embedder and index.
func NewRetriever(embedder Embedder, index Index, log zerolog.Logger) *Retriever {
	return &Retriever{embedder: embedder, index: index, log: log}
}

// IndexKnowledge embeds and inserts the knowledge corpus. Unlike lookups,
// indexing reports its error: the seeding path wants to know about failures.
func (r *Retriever) IndexKnowledge(ctx context.Context, entries []knowledge.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Content
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("index knowledge: %w", err)
	}

	batch := make([]Entry, len(entries))
	for i, e := range entries {
		batch[i] = Entry{
			ID:     e.ID,
			Vector: vectors[i],
			Metadata: map[string]string{
				metaKind:     kindKnowledge,
				metaContent:  e.Content,
				metaCategory: e.Category,
			},
		}
	}

	if err := r.index.Insert(ctx, batch); err != nil {
		return fmt.Errorf("index knowledge: %w", err)
	}
	return nil
}

// IndexTransaction embeds one transaction so later queries can surface it as
// similar spending. Best-effort: the caller treats failure as non-fatal.
func (r *Retriever) IndexTransaction(ctx context.Context, tx domain.Transaction) error {
	summary := transactionSummary(tx)

	vector, err := r.embedder.Embed(ctx, summary)
	if err != nil {
		return fmt.Errorf("index transaction %s: %w", tx.ID, err)
	}

	entry := Entry{
		ID:     tx.ID,
		Vector: vector,
		Metadata: map[string]string{
			metaKind:     kindTransaction,
			metaContent:  summary,
			metaCategory: string(tx.Category),
		},
	}
	if err := r.index.Insert(ctx, []Entry{entry}); err != nil {
		return fmt.Errorf("index transaction %s: %w", tx.ID, err)
	}
	return nil
}

func transactionSummary(tx domain.Transaction) string {
	return fmt.Sprintf("%s %s $%.2f on %s (%s)", tx.Type, tx.Description, tx.Amount, tx.Date, tx.Category)
}

// KnowledgeSnippets returns up to MaxKnowledgeSnippets articles relevant to
// the query, or nothing on any retrieval fault.
func (r *Retriever) KnowledgeSnippets(ctx context.Context, query string) []Snippet {
	matches := r.search(ctx, query, kindKnowledge, MaxKnowledgeSnippets)

	snippets := make([]Snippet, 0, len(matches))
	for _, m := range matches {
		snippets = append(snippets, Snippet{
			ID:       m.ID,
			Content:  m.Metadata[metaContent],
			Category: m.Metadata[metaCategory],
			Score:    m.Score,
		})
	}
	return snippets
}

// SimilarTransactions returns up to MaxSimilarTransactions past transactions
// resembling the query, or nothing on any retrieval fault.
func (r *Retriever) SimilarTransactions(ctx context.Context, query string) []SimilarTransaction {
	matches := r.search(ctx, query, kindTransaction, MaxSimilarTransactions)

	similar := make([]SimilarTransaction, 0, len(matches))
	for _, m := range matches {
		similar = append(similar, SimilarTransaction{
			ID:      m.ID,
			Summary: m.Metadata[metaContent],
			Score:   m.Score,
		})
	}
	return similar
}

func (r *Retriever) search(ctx context.Context, query, kind string, topK int) []Match {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn().Err(err).Str("kind", kind).Msg("Embedding failed, proceeding without retrieval context")
		return nil
	}

	matches, err := r.index.Query(ctx, vector, QueryOptions{
		TopK:           topK,
		Filter:         map[string]string{metaKind: kind},
		ReturnMetadata: true,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("kind", kind).Msg("Vector query failed, proceeding without retrieval context")
		return nil
	}
	return matches
}
