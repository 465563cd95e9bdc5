package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// ErrTransactionNotFound is returned by RemoveTransaction when no record
// matches the predicate. The store is left untouched in that case.
var ErrTransactionNotFound = errors.New("store: no matching transaction")

// Ledger exposes the transaction list and the budget map on top of a KV
// backend. It holds no derived figures; every aggregate is recomputed from
// the live list by callers. All mutations run through the CAS Update helper,
// so concurrent writers against the same backend cannot lose appends.
//
// A Ledger is an explicit handle: callers thread it (and a conversation id)
// through every call instead of relying on a process-wide default.
type Ledger struct {
	kv  KV
	log zerolog.Logger
}

// NewLedger creates a ledger adapter over the given KV backend.
func NewLedger(kv KV, log zerolog.Logger) *Ledger {
	return &Ledger{kv: kv, log: log}
}

// ListTransactions returns the full transaction list. Records that fail
// validation are dropped before they can reach aggregate computation.
func (l *Ledger) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	data, _, err := l.kv.Get(ctx, KeyTransactions)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return l.decodeTransactions(data)
}

func (l *Ledger) decodeTransactions(data []byte) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	valid := txs[:0]
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			l.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Dropping malformed ledger record")
			continue
		}
		valid = append(valid, tx)
	}
	return valid, nil
}

// AppendTransaction validates tx and appends it to the stored list.
func (l *Ledger) AppendTransaction(ctx context.Context, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	return Update(ctx, l.kv, KeyTransactions, func(old []byte) ([]byte, error) {
		txs := []domain.Transaction{}
		if old != nil {
			decoded, err := l.decodeTransactions(old)
			if err != nil {
				return nil, err
			}
			txs = decoded
		}
		txs = append(txs, tx)
		return json.Marshal(txs)
	})
}

// RemoveTransaction deletes the first transaction matching the predicate,
// scanning in creation order, and returns the removed record. It returns
// ErrTransactionNotFound without mutating anything when nothing matches.
func (l *Ledger) RemoveTransaction(ctx context.Context, match func(domain.Transaction) bool) (*domain.Transaction, error) {
	var removed *domain.Transaction

	err := Update(ctx, l.kv, KeyTransactions, func(old []byte) ([]byte, error) {
		removed = nil
		if old == nil {
			return nil, ErrTransactionNotFound
		}
		txs, err := l.decodeTransactions(old)
		if err != nil {
			return nil, err
		}

		idx := -1
		for i, tx := range txs {
			if match(tx) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrTransactionNotFound
		}

		hit := txs[idx]
		removed = &hit
		txs = append(txs[:idx], txs[idx+1:]...)
		return json.Marshal(txs)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// GetBudgets returns the budget map, which may be empty.
func (l *Ledger) GetBudgets(ctx context.Context) (domain.Budgets, error) {
	data, _, err := l.kv.Get(ctx, KeyBudgets)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return domain.Budgets{}, nil
		}
		return nil, fmt.Errorf("get budgets: %w", err)
	}

	var budgets domain.Budgets
	if err := json.Unmarshal(data, &budgets); err != nil {
		return nil, fmt.Errorf("decode budgets: %w", err)
	}
	if err := budgets.Validate(); err != nil {
		return nil, fmt.Errorf("stored budgets: %w", err)
	}
	return budgets, nil
}

// SetBudget sets the monthly limit for a category. The latest write wins.
func (l *Ledger) SetBudget(ctx context.Context, category domain.Category, amount float64) error {
	if _, err := domain.ParseCategory(string(category)); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("budget for %s: limit must be positive, got %v", category, amount)
	}

	return Update(ctx, l.kv, KeyBudgets, func(old []byte) ([]byte, error) {
		budgets := domain.Budgets{}
		if old != nil {
			if err := json.Unmarshal(old, &budgets); err != nil {
				return nil, fmt.Errorf("decode budgets: %w", err)
			}
		}
		budgets[category] = amount
		return json.Marshal(budgets)
	})
}
