// Package assistant orchestrates one message turn: deterministic routing,
// context assembly, the primary model call, sequential directive execution,
// and the constrained confirmation call. The user-facing contract is
// "always answer in natural language" - every failure branch here ends in
// a textual response.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/actions"
	"github.com/dvloznov/finance-assistant/internal/conversation"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/inference"
	"github.com/dvloznov/finance-assistant/internal/ledger"
	"github.com/dvloznov/finance-assistant/internal/prompt"
	"github.com/dvloznov/finance-assistant/internal/retrieval"
	"github.com/dvloznov/finance-assistant/internal/router"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// DefaultCallTimeout bounds each model call. The confirmation call inherits
// the same ceiling.
const DefaultCallTimeout = 30 * time.Second

// Response is the consumer-facing result of one message.
type Response struct {
	Response        string   `json:"response"`
	Action          string   `json:"action,omitempty"`
	FunctionsCalled []string `json:"functions_called,omitempty"`
	StepsExecuted   int      `json:"steps_executed,omitempty"`
}

// Retriever is the slice of the retrieval subsystem the orchestrator uses.
// It may be nil when retrieval is disabled; lookups then simply return
// nothing.
type Retriever interface {
	KnowledgeSnippets(ctx context.Context, query string) []retrieval.Snippet
	SimilarTransactions(ctx context.Context, query string) []retrieval.SimilarTransaction
}

// Assistant processes messages for one ledger. Both the ledger handle and
// the conversation id are explicit; there is no process-wide default.
type Assistant struct {
	ledger      *store.Ledger
	memory      *conversation.Memory
	registry    *actions.Registry
	retriever   Retriever
	model       inference.Client
	router      *router.Router
	log         zerolog.Logger
	now         func() time.Time
	callTimeout time.Duration
}

// Config collects the assistant's dependencies.
type Config struct {
	Ledger    *store.Ledger
	Memory    *conversation.Memory
	Registry  *actions.Registry
	Retriever Retriever // optional
	Model     inference.Client
	Log       zerolog.Logger

	// CallTimeout defaults to DefaultCallTimeout.
	CallTimeout time.Duration
	// Now is injectable for tests.
	Now func() time.Time
}

// New creates an assistant.
func New(cfg Config) *Assistant {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Assistant{
		ledger:      cfg.Ledger,
		memory:      cfg.Memory,
		registry:    cfg.Registry,
		retriever:   cfg.Retriever,
		model:       cfg.Model,
		router:      router.New(cfg.Now),
		log:         cfg.Log,
		now:         cfg.Now,
		callTimeout: cfg.CallTimeout,
	}
}

// HandleMessage processes one user message within a conversation and always
// produces a natural-language response. Only a hard store fault returns an
// error.
func (a *Assistant) HandleMessage(ctx context.Context, conversationID, message string) (*Response, error) {
	if strings.TrimSpace(message) == "" {
		return &Response{Response: "I didn't catch that - could you rephrase?"}, nil
	}

	// Recent turns are read before appending so the current message is not
	// duplicated in the model history.
	recent, err := a.memory.Recent(ctx, conversationID, conversation.DefaultRecentTurns)
	if err != nil {
		a.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("Could not load conversation history")
		recent = nil
	}

	a.remember(ctx, conversationID, domain.RoleUser, message)

	txs, err := a.ledger.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("handle message: %w", err)
	}

	// Deterministic fast path: exact arithmetic, no model involved.
	if answer, ok := a.router.Route(message, txs); ok {
		a.remember(ctx, conversationID, domain.RoleAssistant, answer)
		return &Response{Response: answer}, nil
	}

	budgets, err := a.ledger.GetBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("handle message: %w", err)
	}

	var snippets []retrieval.Snippet
	var similar []retrieval.SimilarTransaction
	if a.retriever != nil && prompt.MentionsSpending(message) {
		snippets = a.retriever.KnowledgeSnippets(ctx, message)
		similar = a.retriever.SimilarTransactions(ctx, message)
	}

	systemPrompt := prompt.BuildSystemPrompt(prompt.Input{
		Transactions: txs,
		Budgets:      budgets,
		Snippets:     snippets,
		Similar:      similar,
		Catalog:      a.registry.CatalogDescription(),
		Now:          a.now(),
	})

	history := make([]inference.Message, 0, len(recent)+1)
	for _, msg := range recent {
		history = append(history, inference.Message{Role: msg.Role, Text: msg.Text})
	}
	history = append(history, inference.Message{Role: domain.RoleUser, Text: message})

	raw, err := a.generate(ctx, systemPrompt, history, inference.MaxAnswerTokens)
	if err != nil {
		answer := a.deterministicFallback(txs)
		a.log.Warn().Err(err).Msg("Model call failed, answering from deterministic aggregates")
		a.remember(ctx, conversationID, domain.RoleAssistant, answer)
		return &Response{Response: answer}, nil
	}

	calls, err := parseDirectives(raw)
	if err != nil {
		// Malformed directive syntax: degrade silently to the raw text.
		a.log.Warn().Err(err).Msg("Directive parse failed, returning model text as-is")
		a.remember(ctx, conversationID, domain.RoleAssistant, raw)
		return &Response{Response: raw}, nil
	}

	if len(calls) == 0 {
		a.remember(ctx, conversationID, domain.RoleAssistant, raw)
		return &Response{Response: raw}, nil
	}

	resp := a.executeBatch(ctx, calls)
	a.remember(ctx, conversationID, domain.RoleAssistant, resp.Response)
	return resp, nil
}

// executeBatch runs directives strictly in the order they appeared in the
// model text. A failed action is recorded and surfaced but does not abort
// the remaining batch; nothing is rolled back.
func (a *Assistant) executeBatch(ctx context.Context, calls []domain.FunctionCall) *Response {
	results := make([]domain.FunctionResult, 0, len(calls))
	called := make([]string, 0, len(calls))
	for _, call := range calls {
		result := a.registry.Execute(ctx, call)
		if !result.Success {
			a.log.Warn().Str("action", call.Name).Str("message", result.Message).Msg("Action failed, continuing batch")
		}
		results = append(results, result)
		called = append(called, call.Name)
	}

	resp := &Response{
		FunctionsCalled: called,
		StepsExecuted:   len(results),
		Action:          batchAction(results),
	}
	resp.Response = a.confirm(ctx, results)
	return resp
}

// confirm produces the final confirmation sentence. Aggregates are
// recomputed fresh from the store; pre-call values are never reused.
func (a *Assistant) confirm(ctx context.Context, results []domain.FunctionResult) string {
	messages := make([]string, len(results))
	for i, r := range results {
		if r.Success {
			messages[i] = r.Message
		} else {
			messages[i] = "FAILED: " + r.Message
		}
	}

	txs, err := a.ledger.ListTransactions(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("Could not recompute aggregates for confirmation")
		return strings.Join(messages, " ")
	}
	snapshot := prompt.Snapshot(txs, a.now())

	confirmation, err := a.generate(ctx,
		prompt.ConfirmationPrompt(messages, snapshot),
		[]inference.Message{{Role: domain.RoleUser, Text: "Confirm what was done."}},
		inference.MaxConfirmationTokens)
	if err != nil {
		a.log.Warn().Err(err).Msg("Confirmation call failed, joining action results")
		return strings.Join(messages, " ")
	}
	return confirmation
}

func (a *Assistant) generate(ctx context.Context, systemPrompt string, history []inference.Message, maxTokens int32) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	text, err := a.model.Generate(callCtx, systemPrompt, history, maxTokens)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("model call timed out after %s: %w", a.callTimeout, err)
		}
		return "", err
	}
	return text, nil
}

// deterministicFallback answers from figures that were already computed
// without the model.
func (a *Assistant) deterministicFallback(txs []domain.Transaction) string {
	balance := ledger.Balance(txs)
	now := a.now()
	monthSpent, monthCount := ledger.MonthTotal(txs, now.Year(), now.Month())

	return fmt.Sprintf(
		"I couldn't reach the language model just now, but here is what I know from your ledger: your balance is %s, and you've spent %s across %d transactions in %s %d.",
		ledger.FormatUSD(balance), ledger.FormatUSD(monthSpent), monthCount, now.Month(), now.Year())
}

func (a *Assistant) remember(ctx context.Context, conversationID string, role domain.Role, text string) {
	err := a.memory.Append(ctx, conversationID, domain.ConversationMessage{
		Role:      role,
		Text:      text,
		Timestamp: a.now(),
	})
	if err != nil {
		a.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("Could not append to conversation memory")
	}
}

// batchAction tags the response for the consumer surface: the action name
// for a single call, "multi_step" otherwise.
func batchAction(results []domain.FunctionResult) string {
	if len(results) == 1 {
		return results[0].Action
	}
	return "multi_step"
}
