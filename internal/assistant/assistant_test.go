package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/actions"
	"github.com/dvloznov/finance-assistant/internal/conversation"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/inference"
	"github.com/dvloznov/finance-assistant/internal/retrieval"
	"github.com/dvloznov/finance-assistant/internal/store"
)

var fixedNow = time.Date(2025, time.September, 25, 12, 0, 0, 0, time.UTC)

// scriptedModel returns canned responses in order. A nil error with an empty
// script fails the test via the returned error.
type scriptedModel struct {
	responses []string
	errs      []error
	calls     int
}

func (m *scriptedModel) Generate(ctx context.Context, systemPrompt string, history []inference.Message, maxTokens int32) (string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i >= len(m.responses) {
		return "", errors.New("scripted model exhausted")
	}
	return m.responses[i], nil
}

// recordingRetriever captures lookup queries and returns fixed context.
type recordingRetriever struct {
	queries []string
}

func (r *recordingRetriever) KnowledgeSnippets(ctx context.Context, query string) []retrieval.Snippet {
	r.queries = append(r.queries, query)
	return []retrieval.Snippet{{ID: "kb-1", Content: "Track every purchase.", Score: 0.9}}
}

func (r *recordingRetriever) SimilarTransactions(ctx context.Context, query string) []retrieval.SimilarTransaction {
	return nil
}

type testEnv struct {
	assistant *Assistant
	ledger    *store.Ledger
	memory    *conversation.Memory
	model     *scriptedModel
}

func newTestEnv(t *testing.T, model *scriptedModel, retriever Retriever) *testEnv {
	t.Helper()

	kv := store.NewMemoryKV()
	lg := store.NewLedger(kv, zerolog.Nop())
	memory := conversation.NewMemory(kv)
	registry := actions.NewRegistry(lg, nil, zerolog.Nop(), func() time.Time { return fixedNow })

	a := New(Config{
		Ledger:    lg,
		Memory:    memory,
		Registry:  registry,
		Retriever: retriever,
		Model:     model,
		Log:       zerolog.Nop(),
		Now:       func() time.Time { return fixedNow },
	})
	return &testEnv{assistant: a, ledger: lg, memory: memory, model: model}
}

func seedTransaction(t *testing.T, lg *store.Ledger) {
	t.Helper()
	// Seed through the action path so the record matches what the assistant
	// itself would write.
	registry := actions.NewRegistry(lg, nil, zerolog.Nop(), func() time.Time { return fixedNow })
	result := registry.Execute(context.Background(), domain.FunctionCall{
		Name: actions.ActionAddTransaction,
		Arguments: map[string]interface{}{
			"amount": 55.0, "description": "groceries", "category": "food", "type": "expense",
		},
	})
	if !result.Success {
		t.Fatalf("seed failed: %s", result.Message)
	}
}

func TestHandleMessage_EmptyMessage(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{}, nil)

	resp, err := env.assistant.HandleMessage(context.Background(), "conv-1", "   ")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.Response == "" {
		t.Error("empty message produced an empty response")
	}
	if env.model.calls != 0 {
		t.Errorf("model called %d times for an empty message, want 0", env.model.calls)
	}
}

func TestHandleMessage_RouterFastPath(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{}, nil)
	seedTransaction(t, env.ledger)
	ctx := context.Background()

	resp, err := env.assistant.HandleMessage(ctx, "conv-1", "What's my balance?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !strings.Contains(resp.Response, "-$55.00") {
		t.Errorf("response = %q, want the exact balance cited", resp.Response)
	}
	if env.model.calls != 0 {
		t.Errorf("model called %d times on the fast path, want 0", env.model.calls)
	}

	// Both turns are remembered.
	history, err := env.memory.History(ctx, "conv-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("conversation holds %d messages, want 2", len(history))
	}
	if history[0].Role != domain.RoleUser || history[1].Role != domain.RoleAssistant {
		t.Errorf("roles = [%s, %s], want [user, assistant]", history[0].Role, history[1].Role)
	}
}

func TestHandleMessage_PlainAnswer(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{responses: []string{
		"Your spending looks steady this month.",
	}}, nil)

	resp, err := env.assistant.HandleMessage(context.Background(), "conv-1", "Any thoughts on my finances?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.Response != "Your spending looks steady this month." {
		t.Errorf("response = %q, want the model text verbatim", resp.Response)
	}
	if resp.StepsExecuted != 0 || len(resp.FunctionsCalled) != 0 {
		t.Errorf("plain answer reported actions: %+v", resp)
	}
	if env.model.calls != 1 {
		t.Errorf("model called %d times, want 1 (no confirmation call)", env.model.calls)
	}
}

func TestHandleMessage_MultiStepBatch(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{responses: []string{
		`ACTION_CALL: {"name": "add_transaction", "arguments": {"amount": 55.0, "description": "groceries", "category": "food", "type": "expense"}}
ACTION_CALL: {"name": "get_budget_status", "arguments": {}}`,
		"Recorded $55.00 for groceries; no budgets are set yet.",
	}}, nil)
	ctx := context.Background()

	resp, err := env.assistant.HandleMessage(ctx, "conv-1", "Add $55 for groceries and check my budget")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if resp.StepsExecuted != 2 {
		t.Errorf("StepsExecuted = %d, want 2", resp.StepsExecuted)
	}
	wantCalled := []string{"add_transaction", "get_budget_status"}
	if len(resp.FunctionsCalled) != 2 || resp.FunctionsCalled[0] != wantCalled[0] || resp.FunctionsCalled[1] != wantCalled[1] {
		t.Errorf("FunctionsCalled = %v, want %v", resp.FunctionsCalled, wantCalled)
	}
	if resp.Action != "multi_step" {
		t.Errorf("Action = %q, want multi_step", resp.Action)
	}
	if resp.Response != "Recorded $55.00 for groceries; no budgets are set yet." {
		t.Errorf("response = %q, want the confirmation sentence", resp.Response)
	}

	// The addition happened exactly once.
	txs, err := env.ledger.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("ledger holds %d transactions, want 1", len(txs))
	}
}

func TestHandleMessage_SingleActionTag(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{responses: []string{
		`ACTION_CALL: {"name": "set_budget", "arguments": {"category": "food", "amount": 300.0}}`,
		"Your food budget is now $300.00 per month.",
	}}, nil)

	resp, err := env.assistant.HandleMessage(context.Background(), "conv-1", "Set my food budget to $300")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.Action != "set_budget" {
		t.Errorf("Action = %q, want set_budget", resp.Action)
	}
	if resp.StepsExecuted != 1 {
		t.Errorf("StepsExecuted = %d, want 1", resp.StepsExecuted)
	}
}

func TestHandleMessage_FailedActionDoesNotAbortBatch(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{responses: []string{
		`ACTION_CALL: {"name": "add_transaction", "arguments": {"amount": -5.0, "description": "bad", "category": "food", "type": "expense"}}
ACTION_CALL: {"name": "set_budget", "arguments": {"category": "food", "amount": 300.0}}`,
		"The transaction was invalid, but your food budget is set to $300.00.",
	}}, nil)
	ctx := context.Background()

	resp, err := env.assistant.HandleMessage(ctx, "conv-1", "Add it and set my budget")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.StepsExecuted != 2 {
		t.Errorf("StepsExecuted = %d, want both steps attempted", resp.StepsExecuted)
	}

	// The failed first step left no record; the second still ran.
	txs, _ := env.ledger.ListTransactions(ctx)
	if len(txs) != 0 {
		t.Errorf("ledger holds %d transactions, want 0", len(txs))
	}
	budgets, _ := env.ledger.GetBudgets(ctx)
	if budgets[domain.CategoryFood] != 300 {
		t.Errorf("budgets = %v, want food 300", budgets)
	}
}

func TestHandleMessage_MalformedDirectiveReturnsRawText(t *testing.T) {
	raw := `I'll record that. ACTION_CALL: {"name": "add_transaction", "arguments": {`
	env := newTestEnv(t, &scriptedModel{responses: []string{raw}}, nil)
	ctx := context.Background()

	resp, err := env.assistant.HandleMessage(ctx, "conv-1", "Add $5 for coffee please")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.Response != raw {
		t.Errorf("response = %q, want the raw model text", resp.Response)
	}
	if resp.StepsExecuted != 0 {
		t.Errorf("StepsExecuted = %d, want 0", resp.StepsExecuted)
	}

	// Nothing was executed.
	txs, _ := env.ledger.ListTransactions(ctx)
	if len(txs) != 0 {
		t.Errorf("ledger holds %d transactions after a malformed directive, want 0", len(txs))
	}
}

func TestHandleMessage_ModelFailureFallsBackToAggregates(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{errs: []error{errors.New("endpoint unavailable")}}, nil)
	seedTransaction(t, env.ledger)

	resp, err := env.assistant.HandleMessage(context.Background(), "conv-1", "Any advice for me?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !strings.Contains(resp.Response, "your balance is -$55.00") {
		t.Errorf("response = %q, want the deterministic balance figure", resp.Response)
	}
	if !strings.Contains(resp.Response, "September 2025") {
		t.Errorf("response = %q, want the current month cited", resp.Response)
	}
}

func TestHandleMessage_ConfirmationFailureJoinsResults(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{
		responses: []string{
			`ACTION_CALL: {"name": "set_budget", "arguments": {"category": "food", "amount": 300.0}}`,
		},
		errs: []error{nil, errors.New("endpoint unavailable")},
	}, nil)

	resp, err := env.assistant.HandleMessage(context.Background(), "conv-1", "Set my food budget to $300")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	// The action still happened; its own message stands in for the
	// confirmation.
	if !strings.Contains(resp.Response, "Set the monthly food budget to $300.00.") {
		t.Errorf("response = %q, want the action's message", resp.Response)
	}
	if resp.StepsExecuted != 1 {
		t.Errorf("StepsExecuted = %d, want 1", resp.StepsExecuted)
	}
}

func TestHandleMessage_RetrievalOnSpendingVocabulary(t *testing.T) {
	retriever := &recordingRetriever{}
	env := newTestEnv(t, &scriptedModel{responses: []string{"Here's a thought.", "Another."}}, retriever)
	ctx := context.Background()

	if _, err := env.assistant.HandleMessage(ctx, "conv-1", "How should I manage my spending?"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(retriever.queries) != 1 {
		t.Fatalf("retriever queried %d times, want 1", len(retriever.queries))
	}

	// Messages without spending vocabulary skip retrieval entirely.
	if _, err := env.assistant.HandleMessage(ctx, "conv-1", "Tell me a joke"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(retriever.queries) != 1 {
		t.Errorf("retriever queried %d times, want still 1", len(retriever.queries))
	}
}

func TestHandleMessage_NilRetrieverIsFine(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{responses: []string{"Plain answer."}}, nil)

	resp, err := env.assistant.HandleMessage(context.Background(), "conv-1", "How is my spending?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.Response != "Plain answer." {
		t.Errorf("response = %q", resp.Response)
	}
}

func TestHandleMessage_ConversationMemoryRecordsTurns(t *testing.T) {
	env := newTestEnv(t, &scriptedModel{responses: []string{"First.", "Second."}}, nil)
	ctx := context.Background()

	if _, err := env.assistant.HandleMessage(ctx, "conv-1", "one"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if _, err := env.assistant.HandleMessage(ctx, "conv-1", "two"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	history, err := env.memory.History(ctx, "conv-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	wantTexts := []string{"one", "First.", "two", "Second."}
	if len(history) != len(wantTexts) {
		t.Fatalf("history holds %d messages, want %d", len(history), len(wantTexts))
	}
	for i, want := range wantTexts {
		if history[i].Text != want {
			t.Errorf("history[%d] = %q, want %q", i, history[i].Text, want)
		}
	}
}
