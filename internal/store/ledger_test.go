package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

func newTestLedger() (*Ledger, *MemoryKV) {
	kv := NewMemoryKV()
	return NewLedger(kv, zerolog.Nop()), kv
}

func validTx(id, description string) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		Amount:      12.50,
		Description: description,
		Category:    domain.CategoryFood,
		Type:        domain.TypeExpense,
		Date:        civil.Date{Year: 2025, Month: time.September, Day: 15},
		CreatedAt:   time.Now(),
	}
}

func TestLedger_EmptyList(t *testing.T) {
	lg, _ := newTestLedger()

	txs, err := lg.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("ListTransactions() = %d entries, want 0", len(txs))
	}
}

func TestLedger_AppendAndList(t *testing.T) {
	lg, _ := newTestLedger()
	ctx := context.Background()

	first := validTx("tx-1", "lunch")
	second := validTx("tx-2", "coffee")
	if err := lg.AppendTransaction(ctx, first); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}
	if err := lg.AppendTransaction(ctx, second); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}

	txs, err := lg.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("ListTransactions() = %d entries, want 2", len(txs))
	}
	// Creation order is preserved.
	if txs[0].ID != "tx-1" || txs[1].ID != "tx-2" {
		t.Errorf("order = [%s, %s], want [tx-1, tx-2]", txs[0].ID, txs[1].ID)
	}
}

func TestLedger_AppendRejectsInvalid(t *testing.T) {
	lg, _ := newTestLedger()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.Transaction)
	}{
		{"missing id", func(tx *domain.Transaction) { tx.ID = "" }},
		{"zero amount", func(tx *domain.Transaction) { tx.Amount = 0 }},
		{"negative amount", func(tx *domain.Transaction) { tx.Amount = -5 }},
		{"blank description", func(tx *domain.Transaction) { tx.Description = "  " }},
		{"unknown category", func(tx *domain.Transaction) { tx.Category = "gadgets" }},
		{"unknown type", func(tx *domain.Transaction) { tx.Type = "transfer" }},
		{"invalid date", func(tx *domain.Transaction) { tx.Date = civil.Date{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTx("tx-bad", "bad")
			tt.mutate(&tx)
			if err := lg.AppendTransaction(ctx, tx); err == nil {
				t.Error("AppendTransaction() error = nil, want validation failure")
			}
		})
	}

	txs, _ := lg.ListTransactions(ctx)
	if len(txs) != 0 {
		t.Errorf("rejected appends still stored %d entries", len(txs))
	}
}

func TestLedger_ListDropsMalformedRecords(t *testing.T) {
	lg, kv := newTestLedger()
	ctx := context.Background()

	// One valid record, one that was corrupted in storage.
	raw := `[
		{"id":"good","amount":10,"description":"lunch","category":"food","type":"expense","date":"2025-09-15","created_at":"2025-09-15T12:00:00Z"},
		{"id":"bad","amount":-3,"description":"","category":"food","type":"expense","date":"2025-09-15","created_at":"2025-09-15T12:00:00Z"}
	]`
	if _, err := kv.Put(ctx, KeyTransactions, []byte(raw), 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	txs, err := lg.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "good" {
		t.Errorf("ListTransactions() = %+v, want only the valid record", txs)
	}
}

func TestLedger_RemoveTransaction(t *testing.T) {
	lg, _ := newTestLedger()
	ctx := context.Background()

	for _, tx := range []domain.Transaction{
		validTx("tx-1", "Grocery store"),
		validTx("tx-2", "grocery run"),
		validTx("tx-3", "cinema"),
	} {
		if err := lg.AppendTransaction(ctx, tx); err != nil {
			t.Fatalf("AppendTransaction() error = %v", err)
		}
	}

	// First match in creation order wins.
	removed, err := lg.RemoveTransaction(ctx, func(tx domain.Transaction) bool {
		return strings.Contains(strings.ToLower(tx.Description), "grocery")
	})
	if err != nil {
		t.Fatalf("RemoveTransaction() error = %v", err)
	}
	if removed.ID != "tx-1" {
		t.Errorf("removed %s, want the first match tx-1", removed.ID)
	}

	txs, _ := lg.ListTransactions(ctx)
	if len(txs) != 2 {
		t.Fatalf("ListTransactions() = %d entries after removal, want 2", len(txs))
	}
	if txs[0].ID != "tx-2" || txs[1].ID != "tx-3" {
		t.Errorf("remaining = [%s, %s], want [tx-2, tx-3]", txs[0].ID, txs[1].ID)
	}
}

func TestLedger_RemoveTransaction_NotFound(t *testing.T) {
	lg, _ := newTestLedger()
	ctx := context.Background()

	if err := lg.AppendTransaction(ctx, validTx("tx-1", "lunch")); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}

	_, err := lg.RemoveTransaction(ctx, func(tx domain.Transaction) bool { return false })
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("RemoveTransaction() error = %v, want ErrTransactionNotFound", err)
	}

	// A miss must leave the ledger untouched.
	txs, _ := lg.ListTransactions(ctx)
	if len(txs) != 1 {
		t.Errorf("ListTransactions() = %d entries, want 1", len(txs))
	}
}

func TestLedger_RemoveTransaction_EmptyLedger(t *testing.T) {
	lg, _ := newTestLedger()

	_, err := lg.RemoveTransaction(context.Background(), func(tx domain.Transaction) bool { return true })
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("RemoveTransaction() error = %v, want ErrTransactionNotFound", err)
	}
}

func TestLedger_Budgets(t *testing.T) {
	lg, _ := newTestLedger()
	ctx := context.Background()

	budgets, err := lg.GetBudgets(ctx)
	if err != nil {
		t.Fatalf("GetBudgets() error = %v", err)
	}
	if len(budgets) != 0 {
		t.Errorf("GetBudgets() = %v on a fresh store, want empty", budgets)
	}

	if err := lg.SetBudget(ctx, domain.CategoryFood, 300); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if err := lg.SetBudget(ctx, domain.CategoryTransportation, 100); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	// Latest write wins.
	if err := lg.SetBudget(ctx, domain.CategoryFood, 250); err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}

	budgets, err = lg.GetBudgets(ctx)
	if err != nil {
		t.Fatalf("GetBudgets() error = %v", err)
	}
	if budgets[domain.CategoryFood] != 250 || budgets[domain.CategoryTransportation] != 100 {
		t.Errorf("GetBudgets() = %v, want food 250, transportation 100", budgets)
	}
}

func TestLedger_SetBudgetValidation(t *testing.T) {
	lg, _ := newTestLedger()
	ctx := context.Background()

	if err := lg.SetBudget(ctx, "gadgets", 100); err == nil {
		t.Error("SetBudget(unknown category) error = nil, want failure")
	}
	if err := lg.SetBudget(ctx, domain.CategoryFood, 0); err == nil {
		t.Error("SetBudget(zero limit) error = nil, want failure")
	}
	if err := lg.SetBudget(ctx, domain.CategoryFood, -10); err == nil {
		t.Error("SetBudget(negative limit) error = nil, want failure")
	}
}
