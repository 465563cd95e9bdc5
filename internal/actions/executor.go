package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/ledger"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// Ledger is the slice of the store the actions need.
type Ledger interface {
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	AppendTransaction(ctx context.Context, tx domain.Transaction) error
	RemoveTransaction(ctx context.Context, match func(domain.Transaction) bool) (*domain.Transaction, error)
	GetBudgets(ctx context.Context) (domain.Budgets, error)
	SetBudget(ctx context.Context, category domain.Category, amount float64) error
}

// TransactionIndexer feeds new transactions into the retrieval index so
// later queries can surface them as similar spending.
type TransactionIndexer interface {
	IndexTransaction(ctx context.Context, tx domain.Transaction) error
}

// NewRegistry builds the fixed action catalog bound to one ledger handle.
// indexer may be nil when retrieval is disabled. now is injectable for tests.
func NewRegistry(lg Ledger, indexer TransactionIndexer, log zerolog.Logger, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	e := &executor{ledger: lg, indexer: indexer, log: log, now: now}

	r := &Registry{defs: make(map[string]actionDef)}
	r.register(actionDef{
		name:        ActionAddTransaction,
		description: `record a transaction. Arguments: amount (positive number), description (string), category (food|transportation|housing|entertainment|shopping|healthcare|other), type ("expense" or "income"), date (optional, YYYY-MM-DD, defaults to today)`,
		run:         e.addTransaction,
	})
	r.register(actionDef{
		name:        ActionSetBudget,
		description: "set a monthly spending limit. Arguments: category (same taxonomy), amount (positive number)",
		run:         e.setBudget,
	})
	r.register(actionDef{
		name:        ActionGetSpendingSummary,
		description: `summarize spending. Arguments: category (optional), month (optional, "YYYY-MM" or month name)`,
		run:         e.spendingSummary,
	})
	r.register(actionDef{
		name:        ActionGetBudgetStatus,
		description: "report each budgeted category's current-month spending against its limit. No arguments",
		run:         e.budgetStatus,
	})
	r.register(actionDef{
		name:        ActionDeleteTransaction,
		description: "delete the first transaction whose description contains the given text (case-insensitive). Arguments: description (string)",
		run:         e.deleteTransaction,
	})
	return r
}

type executor struct {
	ledger  Ledger
	indexer TransactionIndexer
	log     zerolog.Logger
	now     func() time.Time
}

func (e *executor) addTransaction(ctx context.Context, args map[string]interface{}) domain.FunctionResult {
	amount, err := getPositiveAmount(args, "amount")
	if err != nil {
		return failure(ActionAddTransaction, "invalid arguments: %v", err)
	}
	description, err := getStringField(args, "description", true)
	if err != nil {
		return failure(ActionAddTransaction, "invalid arguments: %v", err)
	}
	catStr, err := getStringField(args, "category", true)
	if err != nil {
		return failure(ActionAddTransaction, "invalid arguments: %v", err)
	}
	category, err := domain.ParseCategory(catStr)
	if err != nil {
		return failure(ActionAddTransaction, "invalid arguments: %v", err)
	}
	typeStr, err := getStringField(args, "type", true)
	if err != nil {
		return failure(ActionAddTransaction, "invalid arguments: %v", err)
	}
	txType, err := domain.ParseTxType(typeStr)
	if err != nil {
		return failure(ActionAddTransaction, "invalid arguments: %v", err)
	}

	date := civil.DateOf(e.now())
	if dateStr, err := getStringField(args, "date", false); err != nil {
		return failure(ActionAddTransaction, "invalid arguments: %v", err)
	} else if dateStr != "" {
		parsed, err := civil.ParseDate(dateStr)
		if err != nil {
			return failure(ActionAddTransaction, "invalid arguments: invalid date %q: %v", dateStr, err)
		}
		date = parsed
	}

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		Amount:      amount,
		Description: description,
		Category:    category,
		Type:        txType,
		Date:        date,
		CreatedAt:   e.now(),
	}

	if err := e.ledger.AppendTransaction(ctx, tx); err != nil {
		return failure(ActionAddTransaction, "could not record transaction: %v", err)
	}

	if e.indexer != nil {
		if err := e.indexer.IndexTransaction(ctx, tx); err != nil {
			e.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Transaction recorded but not indexed for retrieval")
		}
	}

	return success(ActionAddTransaction,
		fmt.Sprintf("Recorded %s %s for %q (%s) on %s.", tx.Type, ledger.FormatUSD(tx.Amount), tx.Description, tx.Category, tx.Date),
		tx)
}

func (e *executor) setBudget(ctx context.Context, args map[string]interface{}) domain.FunctionResult {
	catStr, err := getStringField(args, "category", true)
	if err != nil {
		return failure(ActionSetBudget, "invalid arguments: %v", err)
	}
	category, err := domain.ParseCategory(catStr)
	if err != nil {
		return failure(ActionSetBudget, "invalid arguments: %v", err)
	}
	amount, err := getPositiveAmount(args, "amount")
	if err != nil {
		return failure(ActionSetBudget, "invalid arguments: %v", err)
	}

	if err := e.ledger.SetBudget(ctx, category, amount); err != nil {
		return failure(ActionSetBudget, "could not set budget: %v", err)
	}
	return success(ActionSetBudget,
		fmt.Sprintf("Set the monthly %s budget to %s.", category, ledger.FormatUSD(amount)),
		map[string]interface{}{"category": category, "amount": amount})
}

func (e *executor) spendingSummary(ctx context.Context, args map[string]interface{}) domain.FunctionResult {
	catStr, err := getStringField(args, "category", false)
	if err != nil {
		return failure(ActionGetSpendingSummary, "invalid arguments: %v", err)
	}
	var category domain.Category
	if catStr != "" {
		category, err = domain.ParseCategory(catStr)
		if err != nil {
			return failure(ActionGetSpendingSummary, "invalid arguments: %v", err)
		}
	}

	monthStr, err := getStringField(args, "month", false)
	if err != nil {
		return failure(ActionGetSpendingSummary, "invalid arguments: %v", err)
	}

	txs, err := e.ledger.ListTransactions(ctx)
	if err != nil {
		return failure(ActionGetSpendingSummary, "could not read the ledger: %v", err)
	}

	year, month := 0, time.Month(0)
	if monthStr != "" {
		year, month, err = parseMonth(monthStr, txs, e.now)
		if err != nil {
			return failure(ActionGetSpendingSummary, "invalid arguments: %v", err)
		}
	}

	scope := "overall"
	var total float64
	var count int
	switch {
	case category != "" && month != 0:
		total, count = ledger.CategorySpent(txs, category, year, month)
		scope = fmt.Sprintf("on %s in %s %d", category, month, year)
	case category != "":
		total, count = ledger.CategorySpent(txs, category, 0, 0)
		scope = fmt.Sprintf("on %s", category)
	case month != 0:
		total, count = ledger.MonthTotal(txs, year, month)
		scope = fmt.Sprintf("in %s %d", month, year)
	default:
		total, count = ledger.TotalSpent(txs)
	}

	msg := fmt.Sprintf("Spending %s: %s across %d transactions.", scope, ledger.FormatUSD(total), count)
	return success(ActionGetSpendingSummary, msg, map[string]interface{}{
		"total": total,
		"count": count,
	})
}

func (e *executor) budgetStatus(ctx context.Context, args map[string]interface{}) domain.FunctionResult {
	budgets, err := e.ledger.GetBudgets(ctx)
	if err != nil {
		return failure(ActionGetBudgetStatus, "could not read budgets: %v", err)
	}
	if len(budgets) == 0 {
		return success(ActionGetBudgetStatus, "No budgets are set.", nil)
	}

	txs, err := e.ledger.ListTransactions(ctx)
	if err != nil {
		return failure(ActionGetBudgetStatus, "could not read the ledger: %v", err)
	}

	now := e.now()
	var lines []string
	status := make(map[string]interface{}, len(budgets))
	for _, cat := range sortedCategories(budgets) {
		limit := budgets[cat]
		spent, _ := ledger.CategorySpent(txs, cat, now.Year(), now.Month())
		remaining := limit - spent

		state := "under budget"
		if spent >= limit {
			state = "AT OR OVER its limit"
		}
		lines = append(lines, fmt.Sprintf("%s: %s spent of %s limit (%s remaining, %s)",
			cat, ledger.FormatUSD(spent), ledger.FormatUSD(limit), ledger.FormatUSD(remaining), state))
		status[string(cat)] = map[string]interface{}{
			"limit":     limit,
			"spent":     spent,
			"remaining": remaining,
			"over":      spent >= limit,
		}
	}

	return success(ActionGetBudgetStatus, "Budget status this month: "+strings.Join(lines, "; ")+".", status)
}

func (e *executor) deleteTransaction(ctx context.Context, args map[string]interface{}) domain.FunctionResult {
	needle, err := getStringField(args, "description", true)
	if err != nil {
		return failure(ActionDeleteTransaction, "invalid arguments: %v", err)
	}

	lower := strings.ToLower(needle)
	removed, err := e.ledger.RemoveTransaction(ctx, func(tx domain.Transaction) bool {
		return strings.Contains(strings.ToLower(tx.Description), lower)
	})
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return failure(ActionDeleteTransaction, "no transaction matching %q was found", needle)
		}
		return failure(ActionDeleteTransaction, "could not delete transaction: %v", err)
	}

	return success(ActionDeleteTransaction,
		fmt.Sprintf("Deleted %s %s for %q from %s.", removed.Type, ledger.FormatUSD(removed.Amount), removed.Description, removed.Date),
		removed)
}

// parseMonth accepts "YYYY-MM" or an English month name. A bare month name
// resolves to the most recent year with activity in that month, falling back
// to the current year.
func parseMonth(s string, txs []domain.Transaction, now func() time.Time) (int, time.Month, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if t, err := time.Parse("2006-01", s); err == nil {
		return t.Year(), t.Month(), nil
	}

	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || (len(s) >= 3 && s == name[:3]) {
			best := 0
			for _, tx := range txs {
				if tx.Date.Month == m && tx.Date.Year > best {
					best = tx.Date.Year
				}
			}
			if best == 0 {
				best = now().Year()
			}
			return best, m, nil
		}
	}
	return 0, 0, fmt.Errorf("invalid month %q (want YYYY-MM or a month name)", s)
}
